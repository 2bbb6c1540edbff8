package media

import (
	"fmt"
	"time"

	"github.com/pion/rtp"
)

// L16Depayloader turns RTP packets carrying uncompressed L16 audio
// (RFC 3551) into raw audio buffers. L16 is big endian on the wire; the
// depayloader byte-swaps into the S16LE layout the rest of the pipeline
// consumes.
//
// PTS is derived from the RTP timestamp relative to the first packet seen.
type L16Depayloader struct {
	format Audio

	started bool
	baseTS  uint32
}

// NewL16Depayloader creates a depayloader for the given channel count and
// clock rate.
func NewL16Depayloader(channels, rate int) (*L16Depayloader, error) {
	if channels < 1 || rate < 1 {
		return nil, fmt.Errorf("media/rtp: bad L16 stream: %d channels at %d Hz", channels, rate)
	}
	return &L16Depayloader{
		format: Audio{Sample: S16LE, Channels: channels, Rate: rate},
	}, nil
}

// Format returns the audio format of depayloaded buffers.
func (d *L16Depayloader) Format() Audio {
	return d.format
}

// Depayload parses one RTP packet and returns the contained samples as a
// raw audio buffer.
func (d *L16Depayloader) Depayload(raw []byte) (Buffer, error) {
	var pkt rtp.Packet
	if err := pkt.Unmarshal(raw); err != nil {
		return Buffer{}, fmt.Errorf("media/rtp: unmarshal packet: %w", err)
	}
	if len(pkt.Payload)%d.format.FrameSize() != 0 {
		return Buffer{}, fmt.Errorf("media/rtp: payload size %d is not whole frames of %d bytes",
			len(pkt.Payload), d.format.FrameSize())
	}

	if !d.started {
		d.started = true
		d.baseTS = pkt.Timestamp
	}
	elapsed := pkt.Timestamp - d.baseTS

	data := make([]byte, len(pkt.Payload))
	for i := 0; i+1 < len(pkt.Payload); i += 2 {
		data[i] = pkt.Payload[i+1]
		data[i+1] = pkt.Payload[i]
	}

	return Buffer{
		Format: d.format,
		Data:   data,
		PTS:    time.Duration(elapsed) * time.Second / time.Duration(d.format.Rate),
	}, nil
}
