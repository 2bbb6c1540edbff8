package tensor

import (
	"fmt"
	"strconv"
	"strings"
)

// Media type tags used in negotiation strings.
const (
	MediaTypeTensor  = "other/tensor"
	MediaTypeTensors = "other/tensors"
)

// Caps renders the descriptor as a negotiation string:
//
//	other/tensor,dimension=3:160:120:1,type=uint8,framerate=30/1
//
// ParseCaps is its lossless inverse for every valid descriptor.
func (d Descriptor) Caps() string {
	return fmt.Sprintf("%s,dimension=%s,type=%s,framerate=%d/%d",
		MediaTypeTensor, d.Dim, d.Type, d.RateN, d.RateD)
}

// ParseCaps parses a negotiation string produced by [Descriptor.Caps].
func ParseCaps(s string) (Descriptor, error) {
	fields, err := capsFields(s, MediaTypeTensor)
	if err != nil {
		return Descriptor{}, err
	}
	var d Descriptor
	d.Dim, err = ParseDimension(fields["dimension"])
	if err != nil {
		return Descriptor{}, err
	}
	d.Type, err = ParseElementType(fields["type"])
	if err != nil {
		return Descriptor{}, err
	}
	d.RateN, d.RateD, err = parseFraction(fields["framerate"])
	if err != nil {
		return Descriptor{}, err
	}
	if !d.Valid() {
		return Descriptor{}, fmt.Errorf("tensor: caps %q describe an invalid tensor", s)
	}
	return d, nil
}

// Caps renders the bundle as a negotiation string:
//
//	other/tensors,num_tensors=2,dimensions=3:160:120:1.3:160:120:1,types=uint8.uint8,framerate=30/1
func (b Bundle) Caps() string {
	dims := make([]string, len(b.Tensors))
	types := make([]string, len(b.Tensors))
	for i, t := range b.Tensors {
		dims[i] = t.Dim.String()
		types[i] = t.Type.String()
	}
	return fmt.Sprintf("%s,num_tensors=%d,dimensions=%s,types=%s,framerate=%d/%d",
		MediaTypeTensors, len(b.Tensors),
		strings.Join(dims, "."), strings.Join(types, "."), b.RateN, b.RateD)
}

// ParseBundleCaps parses a negotiation string produced by [Bundle.Caps].
func ParseBundleCaps(s string) (Bundle, error) {
	fields, err := capsFields(s, MediaTypeTensors)
	if err != nil {
		return Bundle{}, err
	}
	n, err := strconv.Atoi(fields["num_tensors"])
	if err != nil || n < 1 || n > MaxTensors {
		return Bundle{}, fmt.Errorf("tensor: bad num_tensors in caps %q", s)
	}
	dims := strings.Split(fields["dimensions"], ".")
	types := strings.Split(fields["types"], ".")
	if len(dims) != n || len(types) != n {
		return Bundle{}, fmt.Errorf("tensor: caps %q list %d dimensions and %d types, want %d",
			s, len(dims), len(types), n)
	}
	var b Bundle
	b.RateN, b.RateD, err = parseFraction(fields["framerate"])
	if err != nil {
		return Bundle{}, err
	}
	b.Tensors = make([]Descriptor, n)
	for i := 0; i < n; i++ {
		t := Descriptor{RateN: b.RateN, RateD: b.RateD}
		if t.Dim, err = ParseDimension(dims[i]); err != nil {
			return Bundle{}, err
		}
		if t.Type, err = ParseElementType(types[i]); err != nil {
			return Bundle{}, err
		}
		b.Tensors[i] = t
	}
	if !b.Valid() {
		return Bundle{}, fmt.Errorf("tensor: caps %q describe an invalid bundle", s)
	}
	return b, nil
}

func capsFields(s, mediaType string) (map[string]string, error) {
	parts := strings.Split(s, ",")
	if len(parts) < 1 || parts[0] != mediaType {
		return nil, fmt.Errorf("tensor: caps %q is not %s", s, mediaType)
	}
	fields := make(map[string]string, len(parts)-1)
	for _, p := range parts[1:] {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("tensor: bad caps field %q", p)
		}
		fields[k] = v
	}
	return fields, nil
}

func parseFraction(s string) (n, d int, err error) {
	ns, ds, ok := strings.Cut(s, "/")
	if !ok {
		return 0, 0, fmt.Errorf("tensor: bad framerate %q", s)
	}
	if n, err = strconv.Atoi(ns); err != nil {
		return 0, 0, fmt.Errorf("tensor: bad framerate %q: %w", s, err)
	}
	if d, err = strconv.Atoi(ds); err != nil {
		return 0, 0, fmt.Errorf("tensor: bad framerate %q: %w", s, err)
	}
	return n, d, nil
}
