// Package filter defines the shape-negotiation handshake between a tensor
// stream and a numeric backend, and dispatches invocations under strict
// size contracts.
//
// A backend declares its capabilities by the interfaces it implements:
// exactly one of [ShapeDeriver] (the backend computes its output shape
// from the input shape) or [ShapeSetter] (the backend is told its output
// shape and only validates it), and exactly one of [Invoker] (the caller
// allocates the output buffer) or [Allocator] (the backend allocates it).
// Both exclusivity rules are checked once at bind time.
package filter

import (
	"errors"
	"fmt"

	"github.com/haivivi/tensorstream/pkg/tensor"
)

var (
	// ErrUnknownBackend means no backend is registered under the name.
	ErrUnknownBackend = errors.New("unknown backend")
	// ErrBackendContract means a backend's capability set is not exactly
	// one shape mode and one invocation mode.
	ErrBackendContract = errors.New("backend capability contract violated")
	// ErrUnsupportedShape means the backend cannot work with the given
	// descriptor.
	ErrUnsupportedShape = errors.New("unsupported shape")
	// ErrSizeContract means an invocation produced a buffer whose size
	// disagrees with the output descriptor.
	ErrSizeContract = errors.New("output size contract violated")
)

// Backend is one numeric backend instance, bound to one stream.
type Backend interface {
	Name() string
}

// ShapeDeriver computes the output descriptor from the input descriptor.
type ShapeDeriver interface {
	DeriveOutput(in tensor.Descriptor) (tensor.Descriptor, error)
}

// ShapeSetter is told both descriptors and validates them.
type ShapeSetter interface {
	SetOutput(in, out tensor.Descriptor) error
}

// Invoker transforms input bytes into a caller-allocated output buffer.
type Invoker interface {
	Invoke(in, out []byte) error
}

// Allocator transforms input bytes into a backend-allocated output buffer.
type Allocator interface {
	AllocateInvoke(in []byte) ([]byte, error)
}

// Dispatcher holds one bound backend and its resolved descriptors.
type Dispatcher struct {
	backend Backend
	in      tensor.Descriptor
	out     tensor.Descriptor
	invoke  Invoker
	alloc   Allocator
}

// Bind performs the shape handshake with a derive-output backend: the
// backend reports the output descriptor for the given input.
func Bind(b Backend, in tensor.Descriptor) (*Dispatcher, error) {
	d, deriver, err := check(b, in)
	if err != nil {
		return nil, err
	}
	if deriver == nil {
		return nil, fmt.Errorf("filter: %s must be told its output shape, use BindOutput: %w",
			b.Name(), ErrBackendContract)
	}
	out, err := deriver.DeriveOutput(in)
	if err != nil {
		return nil, fmt.Errorf("filter: %s: %w", b.Name(), err)
	}
	if !out.Valid() {
		return nil, fmt.Errorf("filter: %s derived invalid descriptor: %w", b.Name(), ErrUnsupportedShape)
	}
	d.out = out
	return d, nil
}

// BindOutput performs the shape handshake with a set-output backend: the
// caller supplies the output descriptor and the backend validates it.
func BindOutput(b Backend, in, out tensor.Descriptor) (*Dispatcher, error) {
	d, deriver, err := check(b, in)
	if err != nil {
		return nil, err
	}
	if deriver != nil {
		return nil, fmt.Errorf("filter: %s derives its own output shape, use Bind: %w",
			b.Name(), ErrBackendContract)
	}
	if !out.Valid() {
		return nil, fmt.Errorf("filter: requested output descriptor is invalid: %w", ErrUnsupportedShape)
	}
	if err := b.(ShapeSetter).SetOutput(in, out); err != nil {
		return nil, fmt.Errorf("filter: %s: %w", b.Name(), err)
	}
	d.out = out
	return d, nil
}

// check enforces the capability XOR rules shared by both bind modes and
// prepares a dispatcher without an output descriptor.
func check(b Backend, in tensor.Descriptor) (*Dispatcher, ShapeDeriver, error) {
	deriver, hasDerive := b.(ShapeDeriver)
	_, hasSet := b.(ShapeSetter)
	if hasDerive == hasSet {
		return nil, nil, fmt.Errorf("filter: %s: derive-output and set-output are mutually exclusive: %w",
			b.Name(), ErrBackendContract)
	}

	invoker, hasInvoke := b.(Invoker)
	alloc, hasAlloc := b.(Allocator)
	if hasInvoke == hasAlloc {
		return nil, nil, fmt.Errorf("filter: %s: invoke and allocate-invoke are mutually exclusive: %w",
			b.Name(), ErrBackendContract)
	}

	if !in.Valid() {
		return nil, nil, fmt.Errorf("filter: input descriptor is invalid: %w", ErrUnsupportedShape)
	}

	d := &Dispatcher{backend: b, in: in, invoke: invoker, alloc: alloc}
	if !hasDerive {
		deriver = nil
	}
	return d, deriver, nil
}

// InputDescriptor returns the bound input descriptor.
func (d *Dispatcher) InputDescriptor() tensor.Descriptor { return d.in }

// OutputDescriptor returns the descriptor resolved at bind time.
func (d *Dispatcher) OutputDescriptor() tensor.Descriptor { return d.out }

// Backend returns the bound backend.
func (d *Dispatcher) Backend() Backend { return d.backend }

// Invoke runs the backend on one tensor buffer. The returned buffer
// carries the output descriptor and the input's timestamp; its size is
// guaranteed to satisfy the byte-size law.
func (d *Dispatcher) Invoke(in tensor.Buffer) (tensor.Buffer, error) {
	if !in.Desc.Equal(d.in) {
		return tensor.Buffer{}, fmt.Errorf("filter: %s bound to %s, got %s: %w",
			d.backend.Name(), d.in.Caps(), in.Desc.Caps(), ErrUnsupportedShape)
	}
	if len(in.Data) != d.in.ByteSize() {
		return tensor.Buffer{}, fmt.Errorf("filter: input size %d, descriptor needs %d: %w",
			len(in.Data), d.in.ByteSize(), ErrSizeContract)
	}

	want := d.out.ByteSize()
	var data []byte
	if d.invoke != nil {
		data = make([]byte, want)
		if err := d.invoke.Invoke(in.Data, data); err != nil {
			return tensor.Buffer{}, fmt.Errorf("filter: %s invoke: %w", d.backend.Name(), err)
		}
	} else {
		var err error
		data, err = d.alloc.AllocateInvoke(in.Data)
		if err != nil {
			return tensor.Buffer{}, fmt.Errorf("filter: %s allocate-invoke: %w", d.backend.Name(), err)
		}
		if len(data) != want {
			return tensor.Buffer{}, fmt.Errorf("filter: %s returned %d bytes, output descriptor needs %d: %w",
				d.backend.Name(), len(data), want, ErrSizeContract)
		}
	}

	return tensor.Buffer{Desc: d.out, Data: data, PTS: in.PTS}, nil
}
