// Package mux bundles parallel tensor streams into one synchronized
// multi-tensor stream, and splits such bundles back apart.
package mux

import (
	"errors"
	"fmt"

	"github.com/haivivi/tensorstream/pkg/tensor"
)

var (
	// ErrSlotCount means the slot count is out of the 1..MaxTensors range.
	ErrSlotCount = errors.New("mux: bad slot count")
	// ErrRateMismatch means member streams disagree on frame rate.
	ErrRateMismatch = errors.New("mux: frame rate mismatch across streams")
	// ErrSlotBusy means a slot received a second buffer before the
	// current bundle was collected.
	ErrSlotBusy = errors.New("mux: slot already holds a buffer")
	// ErrBadPick means a demux pick index is out of range.
	ErrBadPick = errors.New("mux: pick index out of range")
)

// Mux collects one buffer from each of n parallel tensor streams and
// emits a bundle buffer once every slot is filled. Descriptors are
// pinned per slot on first arrival; all slots must share one frame rate.
type Mux struct {
	slots   []tensor.Buffer
	filled  []bool
	descs   []tensor.Descriptor
	pinned  []bool
	pending int
}

// NewMux creates a mux with n input slots.
func NewMux(n int) (*Mux, error) {
	if n < 1 || n > tensor.MaxTensors {
		return nil, fmt.Errorf("%w: %d", ErrSlotCount, n)
	}
	return &Mux{
		slots:   make([]tensor.Buffer, n),
		filled:  make([]bool, n),
		descs:   make([]tensor.Descriptor, n),
		pinned:  make([]bool, n),
		pending: n,
	}, nil
}

// Push places a buffer on slot i. When the push fills the last empty
// slot, the completed bundle is returned and all slots reset; otherwise
// the returned ok is false.
func (m *Mux) Push(i int, buf tensor.Buffer) (out tensor.BundleBuffer, ok bool, err error) {
	if i < 0 || i >= len(m.slots) {
		return out, false, fmt.Errorf("%w: slot %d of %d", ErrSlotCount, i, len(m.slots))
	}
	if err := buf.Validate(); err != nil {
		return out, false, fmt.Errorf("mux: slot %d: %w", i, err)
	}
	if m.pinned[i] {
		if !buf.Desc.Equal(m.descs[i]) {
			return out, false, fmt.Errorf("mux: slot %d pinned to %s, got %s",
				i, m.descs[i].Caps(), buf.Desc.Caps())
		}
	} else {
		if err := m.pin(i, buf.Desc); err != nil {
			return out, false, err
		}
	}
	if m.filled[i] {
		return out, false, fmt.Errorf("%w: slot %d", ErrSlotBusy, i)
	}

	m.slots[i] = buf
	m.filled[i] = true
	m.pending--
	if m.pending > 0 {
		return out, false, nil
	}
	return m.collect(), true, nil
}

func (m *Mux) pin(i int, desc tensor.Descriptor) error {
	for j, p := range m.pinned {
		if p && (m.descs[j].RateN != desc.RateN || m.descs[j].RateD != desc.RateD) {
			return fmt.Errorf("%w: slot %d is %d/%d, slot %d is %d/%d",
				ErrRateMismatch, j, m.descs[j].RateN, m.descs[j].RateD, i, desc.RateN, desc.RateD)
		}
	}
	m.descs[i] = desc
	m.pinned[i] = true
	return nil
}

// collect concatenates the held payloads in slot order. The bundle
// carries the earliest timestamp among its members.
func (m *Mux) collect() tensor.BundleBuffer {
	bundle := tensor.Bundle{
		Tensors: append([]tensor.Descriptor(nil), m.descs...),
		RateN:   m.descs[0].RateN,
		RateD:   m.descs[0].RateD,
	}
	data := make([]byte, 0, bundle.ByteSize())
	pts := m.slots[0].PTS
	for i := range m.slots {
		data = append(data, m.slots[i].Data...)
		if m.slots[i].PTS < pts {
			pts = m.slots[i].PTS
		}
		m.slots[i] = tensor.Buffer{}
		m.filled[i] = false
	}
	m.pending = len(m.slots)
	return tensor.BundleBuffer{Desc: bundle, Data: data, PTS: pts}
}

// Bundle returns the bundle descriptor once every slot has been pinned.
func (m *Mux) Bundle() (tensor.Bundle, bool) {
	for _, p := range m.pinned {
		if !p {
			return tensor.Bundle{}, false
		}
	}
	return tensor.Bundle{
		Tensors: append([]tensor.Descriptor(nil), m.descs...),
		RateN:   m.descs[0].RateN,
		RateD:   m.descs[0].RateD,
	}, true
}

// Demux splits bundle buffers back into per-member tensor buffers. A
// non-empty pick list selects which members to emit, in pick order.
func Demux(buf tensor.BundleBuffer, pick ...int) ([]tensor.Buffer, error) {
	if err := buf.Validate(); err != nil {
		return nil, fmt.Errorf("mux: demux: %w", err)
	}

	offsets := make([]int, len(buf.Desc.Tensors)+1)
	for i, d := range buf.Desc.Tensors {
		offsets[i+1] = offsets[i] + d.ByteSize()
	}

	if len(pick) == 0 {
		pick = make([]int, len(buf.Desc.Tensors))
		for i := range pick {
			pick[i] = i
		}
	}

	out := make([]tensor.Buffer, 0, len(pick))
	for _, i := range pick {
		if i < 0 || i >= len(buf.Desc.Tensors) {
			return nil, fmt.Errorf("%w: %d of %d", ErrBadPick, i, len(buf.Desc.Tensors))
		}
		desc := buf.Desc.Tensors[i]
		desc.RateN = buf.Desc.RateN
		desc.RateD = buf.Desc.RateD
		data := make([]byte, desc.ByteSize())
		copy(data, buf.Data[offsets[i]:offsets[i+1]])
		out = append(out, tensor.Buffer{Desc: desc, Data: data, PTS: buf.PTS})
	}
	return out, nil
}
