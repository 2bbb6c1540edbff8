package filter

import "github.com/haivivi/tensorstream/pkg/tensor"

func init() {
	Register("scaler", func(props string) (Backend, error) {
		return &scaler{newScalerCore(props)}, nil
	})
	Register("scaler-alloc", func(props string) (Backend, error) {
		return &scalerAlloc{newScalerCore(props)}, nil
	})
}

// scalerCore resizes the two spatial axes of a [channel, width, height,
// batch] tensor with nearest-neighbour sampling. The target size comes
// from the property string as "WIDTHxHEIGHT"; a missing or zero token
// leaves that axis unchanged.
//
// Two backends share it: "scaler" invokes into a caller-allocated
// buffer, "scaler-alloc" allocates its own output.
type scalerCore struct {
	newX, newY uint32

	in, out tensor.Descriptor
}

func newScalerCore(props string) scalerCore {
	tokens := SplitProps(props)
	return scalerCore{
		newX: PropUint(tokens, 0),
		newY: PropUint(tokens, 1),
	}
}

func (s *scalerCore) DeriveOutput(in tensor.Descriptor) (tensor.Descriptor, error) {
	out := in
	if s.newX > 0 {
		out.Dim[1] = s.newX
	}
	if s.newY > 0 {
		out.Dim[2] = s.newY
	}
	s.in, s.out = in, out
	return out, nil
}

// scale samples src into dst, both laid out innermost-first.
func (s *scalerCore) scale(src, dst []byte) {
	elem := s.in.Type.Size()
	ch := int(s.in.Dim[0])
	inW, inH := int(s.in.Dim[1]), int(s.in.Dim[2])
	outW, outH := int(s.out.Dim[1]), int(s.out.Dim[2])
	batch := int(s.in.Dim[3])

	inPlane := ch * inW * inH
	outPlane := ch * outW * outH
	for n := 0; n < batch; n++ {
		for y := 0; y < outH; y++ {
			iy := y * inH / outH
			for x := 0; x < outW; x++ {
				ix := x * inW / outW
				si := (n*inPlane + (iy*inW+ix)*ch) * elem
				di := (n*outPlane + (y*outW+x)*ch) * elem
				copy(dst[di:di+ch*elem], src[si:si+ch*elem])
			}
		}
	}
}

type scaler struct {
	scalerCore
}

func (s *scaler) Name() string { return "scaler" }

func (s *scaler) Invoke(in, out []byte) error {
	s.scale(in, out)
	return nil
}

type scalerAlloc struct {
	scalerCore
}

func (s *scalerAlloc) Name() string { return "scaler-alloc" }

func (s *scalerAlloc) AllocateInvoke(in []byte) ([]byte, error) {
	out := make([]byte, s.out.ByteSize())
	s.scale(in, out)
	return out, nil
}
