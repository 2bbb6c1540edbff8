package filter

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/haivivi/tensorstream/pkg/tensor"
)

func init() {
	Register("typecast", func(props string) (Backend, error) {
		tokens := SplitProps(props)
		if len(tokens) == 0 || tokens[0] == "" {
			return nil, fmt.Errorf("typecast needs a target element type")
		}
		to, err := tensor.ParseElementType(tokens[0])
		if err != nil {
			return nil, err
		}
		return &typecast{to: to}, nil
	})
}

// typecast converts every element to a target type with C cast
// semantics: floats truncate toward zero when cast to integers, integers
// widen or wrap per two's complement.
type typecast struct {
	to tensor.ElementType

	in, out tensor.Descriptor
}

func (t *typecast) Name() string { return "typecast" }

func (t *typecast) DeriveOutput(in tensor.Descriptor) (tensor.Descriptor, error) {
	out := in
	out.Type = t.to
	t.in, t.out = in, out
	return out, nil
}

func (t *typecast) Invoke(in, out []byte) error {
	srcSize := t.in.Type.Size()
	dstSize := t.out.Type.Size()
	n := len(in) / srcSize
	for i := 0; i < n; i++ {
		iv, fv, isFloat := readElement(in[i*srcSize:], t.in.Type)
		writeElement(out[i*dstSize:], t.out.Type, iv, fv, isFloat)
	}
	return nil
}

// readElement decodes one little-endian element. Integer types come back
// sign-extended in iv; float types come back in fv with isFloat set.
func readElement(b []byte, et tensor.ElementType) (iv int64, fv float64, isFloat bool) {
	switch et {
	case tensor.Int8:
		return int64(int8(b[0])), 0, false
	case tensor.UInt8:
		return int64(b[0]), 0, false
	case tensor.Int16:
		return int64(int16(binary.LittleEndian.Uint16(b))), 0, false
	case tensor.UInt16:
		return int64(binary.LittleEndian.Uint16(b)), 0, false
	case tensor.Int32:
		return int64(int32(binary.LittleEndian.Uint32(b))), 0, false
	case tensor.UInt32:
		return int64(binary.LittleEndian.Uint32(b)), 0, false
	case tensor.Int64:
		return int64(binary.LittleEndian.Uint64(b)), 0, false
	case tensor.UInt64:
		return int64(binary.LittleEndian.Uint64(b)), 0, false
	case tensor.Float32:
		return 0, float64(math.Float32frombits(binary.LittleEndian.Uint32(b))), true
	case tensor.Float64:
		return 0, math.Float64frombits(binary.LittleEndian.Uint64(b)), true
	}
	panic("filter: invalid element type")
}

func writeElement(b []byte, et tensor.ElementType, iv int64, fv float64, isFloat bool) {
	if isFloat {
		switch et {
		case tensor.Float32:
			binary.LittleEndian.PutUint32(b, math.Float32bits(float32(fv)))
			return
		case tensor.Float64:
			binary.LittleEndian.PutUint64(b, math.Float64bits(fv))
			return
		}
		iv = int64(fv)
	}
	switch et {
	case tensor.Int8, tensor.UInt8:
		b[0] = byte(iv)
	case tensor.Int16, tensor.UInt16:
		binary.LittleEndian.PutUint16(b, uint16(iv))
	case tensor.Int32, tensor.UInt32:
		binary.LittleEndian.PutUint32(b, uint32(iv))
	case tensor.Int64, tensor.UInt64:
		binary.LittleEndian.PutUint64(b, uint64(iv))
	case tensor.Float32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(iv)))
	case tensor.Float64:
		binary.LittleEndian.PutUint64(b, math.Float64bits(float64(iv)))
	}
}
