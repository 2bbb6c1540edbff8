// Package media describes raw media-stream buffers before tensor
// conversion: video frames, audio samples and text records, each with the
// structured format description a converter negotiates against.
package media

import (
	"fmt"
	"time"
)

// Buffer is one raw media buffer with its declared format and
// presentation timestamp.
type Buffer struct {
	Format Format
	Data   []byte
	PTS    time.Duration
}

// Format is the tagged union of supported media formats: [Video], [Audio]
// or [Text].
type Format interface {
	fmt.Stringer
	mediaFormat()
}

// PixelFormat identifies a supported video pixel layout.
type PixelFormat int

const (
	// RGB is packed 8-bit RGB, 3 bytes per pixel.
	RGB PixelFormat = iota
	// BGRx is packed 8-bit BGR with one pad byte, 4 bytes per pixel.
	BGRx
	// GRAY8 is 8-bit grayscale, 1 byte per pixel.
	GRAY8
)

// Channels returns the number of bytes per pixel.
func (p PixelFormat) Channels() int {
	switch p {
	case RGB:
		return 3
	case BGRx:
		return 4
	case GRAY8:
		return 1
	}
	panic("media: invalid pixel format")
}

func (p PixelFormat) String() string {
	switch p {
	case RGB:
		return "RGB"
	case BGRx:
		return "BGRx"
	case GRAY8:
		return "GRAY8"
	}
	panic("media: invalid pixel format")
}

// ParsePixelFormat is the inverse of [PixelFormat.String].
func ParsePixelFormat(s string) (PixelFormat, error) {
	switch s {
	case "RGB":
		return RGB, nil
	case "BGRx":
		return BGRx, nil
	case "GRAY8":
		return GRAY8, nil
	}
	return 0, fmt.Errorf("media: unknown pixel format %q", s)
}

// SampleFormat identifies a supported audio sample layout. All multi-byte
// formats are little endian.
type SampleFormat int

const (
	S8 SampleFormat = iota
	U8
	S16LE
	U16LE
	S32LE
	U32LE
	F32LE
	F64LE
)

// Bytes returns the byte width of one sample.
func (s SampleFormat) Bytes() int {
	switch s {
	case S8, U8:
		return 1
	case S16LE, U16LE:
		return 2
	case S32LE, U32LE, F32LE:
		return 4
	case F64LE:
		return 8
	}
	panic("media: invalid sample format")
}

func (s SampleFormat) String() string {
	switch s {
	case S8:
		return "S8"
	case U8:
		return "U8"
	case S16LE:
		return "S16LE"
	case U16LE:
		return "U16LE"
	case S32LE:
		return "S32LE"
	case U32LE:
		return "U32LE"
	case F32LE:
		return "F32LE"
	case F64LE:
		return "F64LE"
	}
	panic("media: invalid sample format")
}

// ParseSampleFormat is the inverse of [SampleFormat.String].
func ParseSampleFormat(s string) (SampleFormat, error) {
	for f := S8; f <= F64LE; f++ {
		if f.String() == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("media: unknown sample format %q", s)
}

// rowAlign is the byte alignment of video rows. Sources pad each row up to
// this boundary; the pad bytes are not part of the logical image.
const rowAlign = 4

// Video describes a raw video stream.
type Video struct {
	Pixel  PixelFormat
	Width  int
	Height int
	RateN  int
	RateD  int
}

func (Video) mediaFormat() {}

func (v Video) String() string {
	return fmt.Sprintf("video/x-raw,format=%s,width=%d,height=%d,framerate=%d/%d",
		v.Pixel, v.Width, v.Height, v.RateN, v.RateD)
}

// RowSize returns the unpadded byte size of one row.
func (v Video) RowSize() int {
	return v.Width * v.Pixel.Channels()
}

// Stride returns the padded byte size of one row as delivered by the
// source.
func (v Video) Stride() int {
	return (v.RowSize() + rowAlign - 1) / rowAlign * rowAlign
}

// Padded reports whether rows carry alignment padding.
func (v Video) Padded() bool {
	return v.Stride() != v.RowSize()
}

// FrameSize returns the unpadded byte size of one video frame.
func (v Video) FrameSize() int {
	return v.RowSize() * v.Height
}

// BufferSize returns the byte size of one video frame as delivered,
// including row padding.
func (v Video) BufferSize() int {
	return v.Stride() * v.Height
}

// Audio describes a raw audio stream. One frame is one sample across all
// channels.
type Audio struct {
	Sample   SampleFormat
	Channels int
	Rate     int
}

func (Audio) mediaFormat() {}

func (a Audio) String() string {
	return fmt.Sprintf("audio/x-raw,format=%s,channels=%d,rate=%d",
		a.Sample, a.Channels, a.Rate)
}

// FrameSize returns the byte size of one audio frame.
func (a Audio) FrameSize() int {
	return a.Sample.Bytes() * a.Channels
}

// TextRecordSize is the fixed byte size of one text record slot. Shorter
// records are zero padded.
const TextRecordSize = 1024

// Text describes a stream of text records. Each incoming buffer is one
// record.
type Text struct{}

func (Text) mediaFormat() {}

func (Text) String() string { return "text/x-raw,format=utf8" }
