// Package convert turns raw media buffers into tensor buffers.
//
// The format mapper computes the tensor descriptor a negotiated media
// format produces; the converter applies it to a stream, stripping row
// padding and regrouping bytes into fixed frames-per-tensor buffers.
package convert

import (
	"errors"
	"fmt"

	"github.com/haivivi/tensorstream/pkg/media"
	"github.com/haivivi/tensorstream/pkg/tensor"
)

var (
	// ErrUnsupportedFormat means the media format is outside the closed
	// supported set.
	ErrUnsupportedFormat = errors.New("unsupported media format")
	// ErrNegotiation means the first buffer of a stream is inconsistent
	// with its declared format.
	ErrNegotiation = errors.New("negotiation failed")
	// ErrFormatMismatch means a buffer does not divide into whole frames
	// of the negotiated format.
	ErrFormatMismatch = errors.New("buffer does not match negotiated format")
	// ErrRenegotiation means the declared format changed mid-stream.
	ErrRenegotiation = errors.New("format change after negotiation")
)

// Map computes the tensor descriptor for one media format with the given
// number of source frames batched per tensor. Map is pure: the same inputs
// always produce the same descriptor.
func Map(f media.Format, framesPerTensor int) (tensor.Descriptor, error) {
	if framesPerTensor < 1 {
		return tensor.Descriptor{}, fmt.Errorf("convert: frames-per-tensor %d: %w",
			framesPerTensor, ErrUnsupportedFormat)
	}

	switch f := f.(type) {
	case media.Video:
		if f.Width < 1 || f.Height < 1 || f.RateN < 0 || f.RateD < 1 {
			return tensor.Descriptor{}, fmt.Errorf("convert: %s: %w", f, ErrUnsupportedFormat)
		}
		return tensor.Descriptor{
			Type: tensor.UInt8,
			Dim: tensor.Dimension{
				uint32(f.Pixel.Channels()), uint32(f.Width), uint32(f.Height),
				uint32(framesPerTensor),
			},
			RateN: f.RateN,
			RateD: f.RateD,
		}, nil

	case media.Audio:
		et, err := sampleElementType(f.Sample)
		if err != nil {
			return tensor.Descriptor{}, err
		}
		if f.Channels < 1 || f.Rate < 1 {
			return tensor.Descriptor{}, fmt.Errorf("convert: %s: %w", f, ErrUnsupportedFormat)
		}
		return tensor.Descriptor{
			Type:  et,
			Dim:   tensor.Dimension{uint32(f.Channels), uint32(framesPerTensor), 1, 1},
			RateN: f.Rate,
			RateD: 1,
		}, nil

	case media.Text:
		return tensor.Descriptor{
			Type:  tensor.Int8,
			Dim:   tensor.Dimension{media.TextRecordSize, uint32(framesPerTensor), 1, 1},
			RateN: 0,
			RateD: 1,
		}, nil
	}

	return tensor.Descriptor{}, fmt.Errorf("convert: %T: %w", f, ErrUnsupportedFormat)
}

func sampleElementType(s media.SampleFormat) (tensor.ElementType, error) {
	switch s {
	case media.S8:
		return tensor.Int8, nil
	case media.U8:
		return tensor.UInt8, nil
	case media.S16LE:
		return tensor.Int16, nil
	case media.U16LE:
		return tensor.UInt16, nil
	case media.S32LE:
		return tensor.Int32, nil
	case media.U32LE:
		return tensor.UInt32, nil
	case media.F32LE:
		return tensor.Float32, nil
	case media.F64LE:
		return tensor.Float64, nil
	}
	return 0, fmt.Errorf("convert: sample format %d: %w", s, ErrUnsupportedFormat)
}
