// Package aggregate re-batches a tensor stream across time: a sliding
// window regroups buffers of frames-in frames along one axis into buffers
// of frames-out frames, advancing by frames-flush frames per emission.
// frames-flush below frames-out yields overlapping windows; equal values
// yield disjoint windows.
package aggregate

import (
	"errors"
	"fmt"
	"time"

	"github.com/haivivi/tensorstream/pkg/buffer"
	"github.com/haivivi/tensorstream/pkg/tensor"
)

var (
	// ErrInvalidConfig means the window arithmetic cannot be satisfied by
	// integer division over whole input buffers.
	ErrInvalidConfig = errors.New("invalid aggregator configuration")
	// ErrDescriptorMismatch means an input buffer disagrees with the
	// descriptor captured from the first buffer.
	ErrDescriptorMismatch = errors.New("stream descriptor mismatch")
)

// Config controls the aggregation window.
type Config struct {
	FramesIn    int // frames per incoming buffer along Dim
	FramesOut   int // frames per outgoing buffer along Dim
	FramesFlush int // frames dropped from the window per emission; 0 means FramesOut
	Dim         int // aggregation axis, 0..3
}

// Aggregator owns one stream's aggregation window. Calls must be
// serialized by the caller; the window persists until Flush.
type Aggregator struct {
	cfg Config

	configured bool
	inDesc     tensor.Descriptor
	outDesc    tensor.Descriptor
	frameSize  int

	win      buffer.Adapter
	winStart int64 // absolute index of the window's oldest frame
	basePTS  time.Duration
	arrivals []arrival // PTS bookkeeping when the rate is not meaningful
}

type arrival struct {
	frame int64
	pts   time.Duration
}

// New validates the configuration and creates an Aggregator.
//
// Accepted window shapes: FramesIn divides both FramesOut and FramesFlush,
// or FramesOut divides FramesIn with FramesFlush equal to FramesOut. Other
// combinations would need fractional window advances and are rejected.
func New(cfg Config) (*Aggregator, error) {
	if cfg.FramesIn < 1 || cfg.FramesOut < 1 {
		return nil, fmt.Errorf("aggregate: frames-in %d, frames-out %d: %w",
			cfg.FramesIn, cfg.FramesOut, ErrInvalidConfig)
	}
	if cfg.FramesFlush == 0 {
		cfg.FramesFlush = cfg.FramesOut
	}
	if cfg.FramesFlush < 0 || cfg.FramesFlush > cfg.FramesOut {
		return nil, fmt.Errorf("aggregate: frames-flush %d exceeds frames-out %d: %w",
			cfg.FramesFlush, cfg.FramesOut, ErrInvalidConfig)
	}
	if cfg.Dim < 0 || cfg.Dim >= tensor.Rank {
		return nil, fmt.Errorf("aggregate: frames-dim %d: %w", cfg.Dim, ErrInvalidConfig)
	}

	even := cfg.FramesOut%cfg.FramesIn == 0 && cfg.FramesFlush%cfg.FramesIn == 0
	split := cfg.FramesIn%cfg.FramesOut == 0 && cfg.FramesFlush == cfg.FramesOut
	if !even && !split {
		return nil, fmt.Errorf("aggregate: frames-in %d does not divide into frames-out %d / frames-flush %d: %w",
			cfg.FramesIn, cfg.FramesOut, cfg.FramesFlush, ErrInvalidConfig)
	}

	return &Aggregator{cfg: cfg}, nil
}

// Descriptor returns the output descriptor. ok is false before the first
// successful Push.
func (a *Aggregator) Descriptor() (desc tensor.Descriptor, ok bool) {
	return a.outDesc, a.configured
}

// Push consumes one input buffer and returns every output buffer the
// window completes.
func (a *Aggregator) Push(in tensor.Buffer) ([]tensor.Buffer, error) {
	if !a.configured {
		if err := a.configure(in); err != nil {
			return nil, err
		}
	} else if !in.Desc.Equal(a.inDesc) {
		return nil, fmt.Errorf("aggregate: got %s, stream is %s: %w",
			in.Desc.Caps(), a.inDesc.Caps(), ErrDescriptorMismatch)
	}
	if len(in.Data) != a.inDesc.ByteSize() {
		return nil, fmt.Errorf("aggregate: buffer size %d, descriptor needs %d: %w",
			len(in.Data), a.inDesc.ByteSize(), ErrDescriptorMismatch)
	}

	if a.inDesc.RateN <= 0 {
		a.arrivals = append(a.arrivals, arrival{frame: a.winStart + int64(a.win.Len()/a.frameSize), pts: in.PTS})
	}
	a.win.Write(in.Data)

	outSize := a.cfg.FramesOut * a.frameSize
	var out []tensor.Buffer
	for a.win.Len() >= outSize {
		data := make([]byte, outSize)
		copy(data, a.win.Peek(outSize))
		out = append(out, tensor.Buffer{
			Desc: a.outDesc,
			Data: data,
			PTS:  a.windowPTS(),
		})
		a.win.Discard(a.cfg.FramesFlush * a.frameSize)
		a.winStart += int64(a.cfg.FramesFlush)
		a.pruneArrivals()
	}
	return out, nil
}

// Flush signals end of stream. A partially filled window never emits; the
// number of discarded frames is returned.
func (a *Aggregator) Flush() int {
	if a.frameSize == 0 {
		return 0
	}
	n := a.win.Len() / a.frameSize
	a.win.Reset()
	a.winStart += int64(n)
	a.arrivals = a.arrivals[:0]
	return n
}

func (a *Aggregator) configure(in tensor.Buffer) error {
	if !in.Desc.Valid() {
		return fmt.Errorf("aggregate: %s: %w", in.Desc.Caps(), ErrDescriptorMismatch)
	}
	if int(in.Desc.Dim[a.cfg.Dim]) != a.cfg.FramesIn {
		return fmt.Errorf("aggregate: input carries %d frames along axis %d, configured for %d: %w",
			in.Desc.Dim[a.cfg.Dim], a.cfg.Dim, a.cfg.FramesIn, ErrDescriptorMismatch)
	}
	if !in.Desc.Contiguous(a.cfg.Dim) {
		return fmt.Errorf("aggregate: axis %d of %s is not the outermost non-1 axis: %w",
			a.cfg.Dim, in.Desc.Caps(), ErrInvalidConfig)
	}

	a.inDesc = in.Desc
	a.outDesc = in.Desc
	a.outDesc.Dim[a.cfg.Dim] = uint32(a.cfg.FramesOut)
	a.frameSize = in.Desc.FrameSize(a.cfg.Dim)
	a.basePTS = in.PTS
	a.configured = true
	return nil
}

// windowPTS stamps an output with the timestamp of the window's oldest
// frame.
func (a *Aggregator) windowPTS() time.Duration {
	if a.inDesc.RateN > 0 {
		return a.basePTS + time.Duration(a.winStart*int64(time.Second)*int64(a.inDesc.RateD)/int64(a.inDesc.RateN))
	}
	pts := a.basePTS
	for _, ar := range a.arrivals {
		if ar.frame > a.winStart {
			break
		}
		pts = ar.pts
	}
	return pts
}

// pruneArrivals drops arrival records fully behind the window start,
// keeping the one that covers it.
func (a *Aggregator) pruneArrivals() {
	i := 0
	for i+1 < len(a.arrivals) && a.arrivals[i+1].frame <= a.winStart {
		i++
	}
	a.arrivals = a.arrivals[i:]
}
