package filter

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haivivi/tensorstream/pkg/tensor"
)

func rgbDesc(w, h uint32) tensor.Descriptor {
	return tensor.Descriptor{
		Type:  tensor.UInt8,
		Dim:   tensor.Dimension{3, w, h, 1},
		RateN: 30,
		RateD: 1,
	}
}

func TestRegistry(t *testing.T) {
	_, err := Open("no-such-backend", "")
	require.ErrorIs(t, err, ErrUnknownBackend)

	names := Backends()
	for _, want := range []string{"passthrough", "scaler", "scaler-alloc", "typecast"} {
		assert.Contains(t, names, want)
	}
}

func TestSplitProps(t *testing.T) {
	assert.Equal(t, []string{"640", "480"}, SplitProps("640x480"))
	assert.Equal(t, []string{"640", "480"}, SplitProps("640:480"))
	assert.Equal(t, []string{"640", "480"}, SplitProps("640 480"))
	assert.Equal(t, []string{"", "480"}, SplitProps("x480"))
	assert.Equal(t, []string{""}, SplitProps(""))

	tokens := SplitProps("x480")
	assert.Equal(t, uint32(0), PropUint(tokens, 0))
	assert.Equal(t, uint32(480), PropUint(tokens, 1))
	assert.Equal(t, uint32(0), PropUint(tokens, 2))
	assert.Equal(t, uint32(0), PropUint([]string{"abc"}, 0))
}

func TestScalerDeriveOutput(t *testing.T) {
	b, err := Open("scaler", "2x2")
	require.NoError(t, err)

	d, err := Bind(b, rgbDesc(4, 4))
	require.NoError(t, err)
	assert.Equal(t, tensor.Dimension{3, 2, 2, 1}, d.OutputDescriptor().Dim)
	assert.Equal(t, tensor.UInt8, d.OutputDescriptor().Type)

	// A zero token leaves that axis unchanged.
	b, err = Open("scaler", "2")
	require.NoError(t, err)
	d, err = Bind(b, rgbDesc(4, 4))
	require.NoError(t, err)
	assert.Equal(t, tensor.Dimension{3, 2, 4, 1}, d.OutputDescriptor().Dim)
}

func TestScalerNearestNeighbour(t *testing.T) {
	b, err := Open("scaler", "2x2")
	require.NoError(t, err)
	d, err := Bind(b, rgbDesc(4, 4))
	require.NoError(t, err)

	// Pixel (x, y) carries (16x+y, 16x+y+1, 16x+y+2) so sample origins
	// are recognizable after scaling.
	in := make([]byte, 4*4*3)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			base := (y*4 + x) * 3
			for c := 0; c < 3; c++ {
				in[base+c] = byte(16*x + y + c)
			}
		}
	}

	out, err := d.Invoke(tensor.Buffer{Desc: rgbDesc(4, 4), Data: in, PTS: 42 * time.Millisecond})
	require.NoError(t, err)
	require.Len(t, out.Data, 2*2*3)
	assert.Equal(t, 42*time.Millisecond, out.PTS)

	// 2x downscale keeps pixels at source coordinates 0 and 2.
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			base := (y*2 + x) * 3
			for c := 0; c < 3; c++ {
				assert.Equal(t, byte(16*(2*x)+2*y+c), out.Data[base+c], "pixel (%d,%d) channel %d", x, y, c)
			}
		}
	}
}

func TestScalerAlloc(t *testing.T) {
	b, err := Open("scaler-alloc", "8x2")
	require.NoError(t, err)
	d, err := Bind(b, rgbDesc(4, 4))
	require.NoError(t, err)
	assert.Equal(t, tensor.Dimension{3, 8, 2, 1}, d.OutputDescriptor().Dim)

	in := tensor.Buffer{Desc: rgbDesc(4, 4), Data: make([]byte, 4*4*3)}
	out, err := d.Invoke(in)
	require.NoError(t, err)
	assert.Equal(t, d.OutputDescriptor().ByteSize(), len(out.Data))
}

func TestTypecast(t *testing.T) {
	b, err := Open("typecast", "float32")
	require.NoError(t, err)

	in := tensor.Descriptor{Type: tensor.UInt8, Dim: tensor.Dimension{4, 1, 1, 1}, RateN: 0, RateD: 1}
	d, err := Bind(b, in)
	require.NoError(t, err)
	assert.Equal(t, tensor.Float32, d.OutputDescriptor().Type)
	assert.Equal(t, in.Dim, d.OutputDescriptor().Dim)

	out, err := d.Invoke(tensor.Buffer{Desc: in, Data: []byte{0, 1, 128, 255}})
	require.NoError(t, err)
	require.Len(t, out.Data, 16)
	for i, want := range []float32{0, 1, 128, 255} {
		got := math.Float32frombits(binary.LittleEndian.Uint32(out.Data[i*4:]))
		assert.Equal(t, want, got)
	}
}

func TestTypecastTruncatesFloat(t *testing.T) {
	b, err := Open("typecast", "int8")
	require.NoError(t, err)

	in := tensor.Descriptor{Type: tensor.Float32, Dim: tensor.Dimension{3, 1, 1, 1}, RateN: 0, RateD: 1}
	d, err := Bind(b, in)
	require.NoError(t, err)

	data := make([]byte, 12)
	for i, v := range []float32{-1.5, 0.9, 100.2} {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}
	out, err := d.Invoke(tensor.Buffer{Desc: in, Data: data})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0, 100}, out.Data)
}

func TestTypecastNeedsTarget(t *testing.T) {
	_, err := Open("typecast", "")
	require.Error(t, err)
	_, err = Open("typecast", "float128")
	require.Error(t, err)
}

func TestPassthrough(t *testing.T) {
	b, err := Open("passthrough", "")
	require.NoError(t, err)

	desc := rgbDesc(2, 2)
	d, err := BindOutput(b, desc, desc)
	require.NoError(t, err)

	in := tensor.Buffer{Desc: desc, Data: []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}}
	out, err := d.Invoke(in)
	require.NoError(t, err)
	assert.Equal(t, in.Data, out.Data)

	// Passthrough refuses a different output shape.
	_, err = BindOutput(b, desc, rgbDesc(4, 4))
	require.ErrorIs(t, err, ErrUnsupportedShape)

	// And it cannot derive a shape on its own.
	_, err = Bind(b, desc)
	require.ErrorIs(t, err, ErrBackendContract)
}

type bothShapes struct{}

func (bothShapes) Name() string { return "both-shapes" }
func (bothShapes) DeriveOutput(in tensor.Descriptor) (tensor.Descriptor, error) {
	return in, nil
}
func (bothShapes) SetOutput(in, out tensor.Descriptor) error { return nil }
func (bothShapes) Invoke(in, out []byte) error               { return nil }

type bothInvokes struct{}

func (bothInvokes) Name() string { return "both-invokes" }
func (bothInvokes) DeriveOutput(in tensor.Descriptor) (tensor.Descriptor, error) {
	return in, nil
}
func (bothInvokes) Invoke(in, out []byte) error              { return nil }
func (bothInvokes) AllocateInvoke(in []byte) ([]byte, error) { return nil, nil }

type noInvoke struct{}

func (noInvoke) Name() string { return "no-invoke" }
func (noInvoke) DeriveOutput(in tensor.Descriptor) (tensor.Descriptor, error) {
	return in, nil
}

type shortAlloc struct{}

func (shortAlloc) Name() string { return "short-alloc" }
func (shortAlloc) DeriveOutput(in tensor.Descriptor) (tensor.Descriptor, error) {
	return in, nil
}
func (shortAlloc) AllocateInvoke(in []byte) ([]byte, error) {
	return make([]byte, 1), nil
}

func TestBindCapabilityChecks(t *testing.T) {
	desc := rgbDesc(2, 2)

	_, err := Bind(bothShapes{}, desc)
	require.ErrorIs(t, err, ErrBackendContract)

	_, err = Bind(bothInvokes{}, desc)
	require.ErrorIs(t, err, ErrBackendContract)

	_, err = Bind(noInvoke{}, desc)
	require.ErrorIs(t, err, ErrBackendContract)
}

func TestInvokeSizeContract(t *testing.T) {
	desc := rgbDesc(2, 2)
	d, err := Bind(shortAlloc{}, desc)
	require.NoError(t, err)

	_, err = d.Invoke(tensor.Buffer{Desc: desc, Data: make([]byte, desc.ByteSize())})
	require.ErrorIs(t, err, ErrSizeContract)
}

func TestInvokeDescriptorMismatch(t *testing.T) {
	b, err := Open("passthrough", "")
	require.NoError(t, err)
	desc := rgbDesc(2, 2)
	d, err := BindOutput(b, desc, desc)
	require.NoError(t, err)

	_, err = d.Invoke(tensor.Buffer{Desc: rgbDesc(4, 4), Data: make([]byte, rgbDesc(4, 4).ByteSize())})
	require.ErrorIs(t, err, ErrUnsupportedShape)

	_, err = d.Invoke(tensor.Buffer{Desc: desc, Data: make([]byte, 3)})
	require.ErrorIs(t, err, ErrSizeContract)
}
