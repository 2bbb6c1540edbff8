package convert

import (
	"fmt"
	"time"

	"github.com/haivivi/tensorstream/pkg/buffer"
	"github.com/haivivi/tensorstream/pkg/media"
	"github.com/haivivi/tensorstream/pkg/tensor"
)

// Converter adapts one media stream into a tensor stream. The first pushed
// buffer negotiates the tensor descriptor from its declared format; the
// format is then invariant for the life of the stream.
//
// One Converter serves one stream. Calls must be serialized by the caller.
type Converter struct {
	framesPerTensor int

	negotiated bool
	format     media.Format
	desc       tensor.Descriptor
	frameSize  int  // unpadded bytes of one source frame
	strip      bool // rows carry alignment padding to remove
	stride     int
	rowSize    int
	rows       int
	text       bool

	acc      buffer.Adapter
	groups   int64           // emitted group count, for PTS scaling
	basePTS  time.Duration   // PTS of the first frame of the stream
	framePTS []time.Duration // per-frame PTS queue when the rate is not meaningful
}

// New creates a Converter batching framesPerTensor source frames into each
// outgoing tensor buffer.
func New(framesPerTensor int) (*Converter, error) {
	if framesPerTensor < 1 {
		return nil, fmt.Errorf("convert: frames-per-tensor must be at least 1, got %d", framesPerTensor)
	}
	return &Converter{framesPerTensor: framesPerTensor}, nil
}

// Descriptor returns the negotiated tensor descriptor. ok is false before
// the first successful Push.
func (c *Converter) Descriptor() (desc tensor.Descriptor, ok bool) {
	return c.desc, c.negotiated
}

// Push consumes one media buffer and returns every tensor buffer it
// completes, in stream order. An empty result means the converter is still
// accumulating.
func (c *Converter) Push(in media.Buffer) ([]tensor.Buffer, error) {
	if !c.negotiated {
		if err := c.negotiate(in); err != nil {
			return nil, err
		}
	} else if in.Format != c.format {
		return nil, fmt.Errorf("convert: %s after %s: %w", in.Format, c.format, ErrRenegotiation)
	}

	if err := c.append(in); err != nil {
		return nil, err
	}

	groupSize := c.frameSize * c.framesPerTensor
	var out []tensor.Buffer
	for c.acc.Len() >= groupSize {
		out = append(out, tensor.Buffer{
			Desc: c.desc,
			Data: c.acc.Take(groupSize),
			PTS:  c.groupPTS(),
		})
		c.groups++
	}
	return out, nil
}

// Flush signals end of stream. Leftover frames smaller than one group are
// discarded, never emitted; the number of dropped frames is returned.
func (c *Converter) Flush() int {
	if c.frameSize == 0 {
		return 0
	}
	n := c.acc.Len() / c.frameSize
	c.acc.Reset()
	c.framePTS = c.framePTS[:0]
	return n
}

func (c *Converter) negotiate(in media.Buffer) error {
	desc, err := Map(in.Format, c.framesPerTensor)
	if err != nil {
		return err
	}

	switch f := in.Format.(type) {
	case media.Video:
		c.frameSize = f.FrameSize()
		c.strip = f.Padded()
		c.stride = f.Stride()
		c.rowSize = f.RowSize()
		c.rows = f.Height
		if len(in.Data)%f.BufferSize() != 0 {
			return fmt.Errorf("convert: buffer size %d is not whole %d-byte video frames: %w",
				len(in.Data), f.BufferSize(), ErrNegotiation)
		}
	case media.Audio:
		c.frameSize = f.FrameSize()
		if len(in.Data)%c.frameSize != 0 {
			return fmt.Errorf("convert: buffer size %d is not whole %d-byte audio frames: %w",
				len(in.Data), c.frameSize, ErrNegotiation)
		}
	case media.Text:
		c.text = true
		c.frameSize = media.TextRecordSize
		if len(in.Data) == 0 || len(in.Data) > media.TextRecordSize {
			return fmt.Errorf("convert: text record of %d bytes does not fit a %d-byte slot: %w",
				len(in.Data), media.TextRecordSize, ErrNegotiation)
		}
	}

	c.negotiated = true
	c.format = in.Format
	c.desc = desc
	c.basePTS = in.PTS
	return nil
}

// append validates the buffer against the negotiated format and adds its
// frames to the accumulation, compacting strided rows when needed.
func (c *Converter) append(in media.Buffer) error {
	switch {
	case c.text:
		if len(in.Data) == 0 || len(in.Data) > media.TextRecordSize {
			return fmt.Errorf("convert: text record of %d bytes does not fit a %d-byte slot: %w",
				len(in.Data), media.TextRecordSize, ErrFormatMismatch)
		}
		slot := make([]byte, media.TextRecordSize)
		copy(slot, in.Data)
		c.acc.Write(slot)
		c.framePTS = append(c.framePTS, in.PTS)

	case c.strip:
		frameIn := c.stride * c.rows
		if len(in.Data)%frameIn != 0 {
			return fmt.Errorf("convert: buffer size %d is not whole %d-byte frames: %w",
				len(in.Data), frameIn, ErrFormatMismatch)
		}
		for off := 0; off < len(in.Data); off += c.stride {
			c.acc.Write(in.Data[off : off+c.rowSize])
		}

	default:
		if len(in.Data)%c.frameSize != 0 {
			return fmt.Errorf("convert: buffer size %d is not whole %d-byte frames: %w",
				len(in.Data), c.frameSize, ErrFormatMismatch)
		}
		c.acc.Write(in.Data)
	}
	return nil
}

// groupPTS returns the timestamp of the first frame of the group being
// emitted: the stream base plus the consumed frame count scaled by the
// descriptor rate, or the recorded arrival time when the rate carries no
// meaning.
func (c *Converter) groupPTS() time.Duration {
	if c.desc.RateN <= 0 {
		if len(c.framePTS) == 0 {
			return c.basePTS
		}
		pts := c.framePTS[0]
		drop := c.framesPerTensor
		if drop > len(c.framePTS) {
			drop = len(c.framePTS)
		}
		c.framePTS = c.framePTS[drop:]
		return pts
	}
	frames := c.groups * int64(c.framesPerTensor)
	return c.basePTS + time.Duration(frames*int64(time.Second)*int64(c.desc.RateD)/int64(c.desc.RateN))
}
