package filter

import (
	"fmt"

	"github.com/haivivi/tensorstream/pkg/tensor"
)

func init() {
	Register("passthrough", func(string) (Backend, error) {
		return passthrough{}, nil
	})
}

// passthrough copies input to output unchanged. It is a set-output
// backend: the configured output descriptor must match the input.
type passthrough struct{}

func (passthrough) Name() string { return "passthrough" }

func (passthrough) SetOutput(in, out tensor.Descriptor) error {
	if !out.Equal(in) {
		return fmt.Errorf("output %s must equal input %s: %w", out.Caps(), in.Caps(), ErrUnsupportedShape)
	}
	return nil
}

func (passthrough) Invoke(in, out []byte) error {
	copy(out, in)
	return nil
}
