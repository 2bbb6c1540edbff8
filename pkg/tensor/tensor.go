// Package tensor defines the value types shared by every stage of a tensor
// stream: a closed set of element types, a fixed four-axis shape, a frame
// rate expressed as a fraction, and the buffer that carries one tensor's
// bytes through the pipeline.
package tensor

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Rank is the fixed number of dimension axes.
const Rank = 4

// MaxTensors is the maximum number of tensors a bundle may carry.
const MaxTensors = 16

// ElementType identifies the primitive type of one tensor element.
type ElementType int

const (
	Int8 ElementType = iota
	UInt8
	Int16
	UInt16
	Int32
	UInt32
	Int64
	UInt64
	Float32
	Float64
)

var elementTypeNames = [...]string{
	Int8:    "int8",
	UInt8:   "uint8",
	Int16:   "int16",
	UInt16:  "uint16",
	Int32:   "int32",
	UInt32:  "uint32",
	Int64:   "int64",
	UInt64:  "uint64",
	Float32: "float32",
	Float64: "float64",
}

var elementTypeSizes = [...]int{
	Int8:    1,
	UInt8:   1,
	Int16:   2,
	UInt16:  2,
	Int32:   4,
	UInt32:  4,
	Int64:   8,
	UInt64:  8,
	Float32: 4,
	Float64: 8,
}

// Valid reports whether t is a member of the closed element type set.
func (t ElementType) Valid() bool {
	return t >= Int8 && t <= Float64
}

// Size returns the byte size of one element.
func (t ElementType) Size() int {
	if !t.Valid() {
		panic("tensor: invalid element type")
	}
	return elementTypeSizes[t]
}

func (t ElementType) String() string {
	if !t.Valid() {
		panic("tensor: invalid element type")
	}
	return elementTypeNames[t]
}

// ParseElementType is the inverse of [ElementType.String].
func ParseElementType(s string) (ElementType, error) {
	for t, name := range elementTypeNames {
		if s == name {
			return ElementType(t), nil
		}
	}
	return 0, fmt.Errorf("tensor: unknown element type %q", s)
}

// Dimension is a four-axis shape, innermost axis first. Axis 0 is the
// element/channel axis; axis 3 is typically the frames-per-buffer axis.
// Unused trailing axes are 1, never 0.
type Dimension [Rank]uint32

// Valid reports whether every axis is at least 1.
func (d Dimension) Valid() bool {
	for _, v := range d {
		if v < 1 {
			return false
		}
	}
	return true
}

// Count returns the number of elements the shape describes.
func (d Dimension) Count() uint64 {
	n := uint64(1)
	for _, v := range d {
		n *= uint64(v)
	}
	return n
}

// String renders the shape as "d0:d1:d2:d3".
func (d Dimension) String() string {
	parts := make([]string, Rank)
	for i, v := range d {
		parts[i] = strconv.FormatUint(uint64(v), 10)
	}
	return strings.Join(parts, ":")
}

// ParseDimension is the inverse of [Dimension.String]. Missing trailing
// axes default to 1.
func ParseDimension(s string) (Dimension, error) {
	var d Dimension
	parts := strings.Split(s, ":")
	if len(parts) == 0 || len(parts) > Rank {
		return d, fmt.Errorf("tensor: bad dimension %q", s)
	}
	for i := range d {
		d[i] = 1
	}
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return Dimension{}, fmt.Errorf("tensor: bad dimension %q: %w", s, err)
		}
		d[i] = uint32(v)
	}
	return d, nil
}

// Descriptor describes one tensor stream: element type, shape and the
// buffer rate as a fraction. RateN 0 with RateD 1 means the rate is not
// meaningful (text streams).
type Descriptor struct {
	Type  ElementType
	Dim   Dimension
	RateN int
	RateD int
}

// Valid reports whether the descriptor fully describes a tensor.
func (d Descriptor) Valid() bool {
	return d.Type.Valid() && d.Dim.Valid() && d.RateN >= 0 && d.RateD >= 1
}

// ByteSize returns the byte size of one tensor instance:
// element size times the product of all axes.
func (d Descriptor) ByteSize() int {
	return d.Type.Size() * int(d.Dim.Count())
}

// Equal reports whether two descriptors are identical.
func (d Descriptor) Equal(o Descriptor) bool {
	return d == o
}

// FrameSize returns the byte size of one frame along the given axis.
func (d Descriptor) FrameSize(axis int) int {
	return d.ByteSize() / int(d.Dim[axis])
}

// FrameDuration returns the duration of one frame, or 0 when the rate is
// not meaningful.
func (d Descriptor) FrameDuration() time.Duration {
	if d.RateN <= 0 {
		return 0
	}
	return time.Duration(int64(time.Second) * int64(d.RateD) / int64(d.RateN))
}

// Contiguous reports whether frames along the given axis occupy contiguous
// byte ranges, i.e. every axis above it is 1.
func (d Descriptor) Contiguous(axis int) bool {
	for i := axis + 1; i < Rank; i++ {
		if d.Dim[i] != 1 {
			return false
		}
	}
	return true
}

// Bundle is an ordered set of up to MaxTensors descriptors sharing one
// buffer rate.
type Bundle struct {
	Tensors []Descriptor
	RateN   int
	RateD   int
}

// Valid reports whether the bundle holds between 1 and MaxTensors valid
// descriptors.
func (b Bundle) Valid() bool {
	if len(b.Tensors) < 1 || len(b.Tensors) > MaxTensors {
		return false
	}
	for _, t := range b.Tensors {
		if !t.Valid() {
			return false
		}
	}
	return b.RateN >= 0 && b.RateD >= 1
}

// ByteSize returns the total byte size of one bundle instance.
func (b Bundle) ByteSize() int {
	n := 0
	for _, t := range b.Tensors {
		n += t.ByteSize()
	}
	return n
}

// Buffer carries one tensor instance. Ownership is exclusive to the stage
// currently holding it and transfers on emission.
type Buffer struct {
	Desc Descriptor
	Data []byte
	PTS  time.Duration
}

/// Validate checks the byte-size law: len(Data) must equal the descriptor's
// byte size.
func (b Buffer) Validate() error {
	if !b.Desc.Valid() {
		return fmt.Errorf("tensor: invalid descriptor %s", b.Desc.Caps())
	}
	if len(b.Data) != b.Desc.ByteSize() {
		return fmt.Errorf("tensor: buffer size %d does not match descriptor size %d",
			len(b.Data), b.Desc.ByteSize())
	}
	return nil
}

/// BundleBuffer carries one bundle instance: the payloads of all member
// tensors concatenated in stream order.
type BundleBuffer struct {
	Desc Bundle
	Data []byte
	PTS  time.Duration
}

// Validate checks the concatenated payload size against the bundle.
func (b BundleBuffer) Validate() error {
	if !b.Desc.Valid() {
		return fmt.Errorf("tensor: invalid bundle of %d tensors", len(b.Desc.Tensors))
	}
	if len(b.Data) != b.Desc.ByteSize() {
		return fmt.Errorf("tensor: bundle size %d does not match descriptor size %d",
			len(b.Data), b.Desc.ByteSize())
	}
	return nil
}
