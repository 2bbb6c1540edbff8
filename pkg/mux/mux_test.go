package mux

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/haivivi/tensorstream/pkg/tensor"
)

func videoDesc() tensor.Descriptor {
	return tensor.Descriptor{
		Type:  tensor.UInt8,
		Dim:   tensor.Dimension{3, 160, 120, 1},
		RateN: 30,
		RateD: 1,
	}
}

func videoBuf(fill byte, pts time.Duration) tensor.Buffer {
	desc := videoDesc()
	data := bytes.Repeat([]byte{fill}, desc.ByteSize())
	return tensor.Buffer{Desc: desc, Data: data, PTS: pts}
}

func TestMuxTwoStreams(t *testing.T) {
	m, err := NewMux(2)
	if err != nil {
		t.Fatal(err)
	}

	_, ok, err := m.Push(0, videoBuf(0xaa, 10*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("bundle emitted with one slot empty")
	}

	out, ok, err := m.Push(1, videoBuf(0xbb, 5*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("no bundle after filling both slots")
	}

	// Two 57600-byte video frames concatenate to 115200 bytes.
	if got := len(out.Data); got != 115200 {
		t.Fatalf("bundle size = %d, want 115200", got)
	}
	if out.Desc.ByteSize() != 115200 {
		t.Fatalf("bundle descriptor size = %d", out.Desc.ByteSize())
	}
	if out.PTS != 5*time.Millisecond {
		t.Fatalf("bundle pts = %v, want earliest member pts", out.PTS)
	}
	if out.Data[0] != 0xaa || out.Data[57600] != 0xbb {
		t.Fatal("payloads not concatenated in slot order")
	}
	if err := out.Validate(); err != nil {
		t.Fatal(err)
	}

	// Slots reset for the next round.
	if _, ok, _ := m.Push(0, videoBuf(1, 0)); ok {
		t.Fatal("bundle emitted from the first push of a new round")
	}
}

func TestMuxSlotBusy(t *testing.T) {
	m, _ := NewMux(2)
	if _, _, err := m.Push(0, videoBuf(0, 0)); err != nil {
		t.Fatal(err)
	}
	if _, _, err := m.Push(0, videoBuf(0, 0)); !errors.Is(err, ErrSlotBusy) {
		t.Fatalf("err = %v, want ErrSlotBusy", err)
	}
}

func TestMuxRateMismatch(t *testing.T) {
	m, _ := NewMux(2)
	if _, _, err := m.Push(0, videoBuf(0, 0)); err != nil {
		t.Fatal(err)
	}

	desc := videoDesc()
	desc.RateN = 25
	buf := tensor.Buffer{Desc: desc, Data: make([]byte, desc.ByteSize())}
	if _, _, err := m.Push(1, buf); !errors.Is(err, ErrRateMismatch) {
		t.Fatalf("err = %v, want ErrRateMismatch", err)
	}
}

func TestMuxPinnedDescriptor(t *testing.T) {
	m, _ := NewMux(1)
	if _, _, err := m.Push(0, videoBuf(0, 0)); err != nil {
		t.Fatal(err)
	}

	desc := videoDesc()
	desc.Dim[1] = 320
	buf := tensor.Buffer{Desc: desc, Data: make([]byte, desc.ByteSize())}
	if _, _, err := m.Push(0, buf); err == nil {
		t.Fatal("descriptor change on a pinned slot not rejected")
	}
}

func TestMuxSlotCount(t *testing.T) {
	if _, err := NewMux(0); !errors.Is(err, ErrSlotCount) {
		t.Fatal("slot count 0 accepted")
	}
	if _, err := NewMux(tensor.MaxTensors + 1); !errors.Is(err, ErrSlotCount) {
		t.Fatal("slot count above the bundle limit accepted")
	}
}

func TestDemux(t *testing.T) {
	m, _ := NewMux(2)
	m.Push(0, videoBuf(0x11, time.Second))
	bundle, ok, err := m.Push(1, videoBuf(0x22, time.Second))
	if err != nil || !ok {
		t.Fatalf("bundle not emitted: %v", err)
	}

	t.Run("all", func(t *testing.T) {
		bufs, err := Demux(bundle)
		if err != nil {
			t.Fatal(err)
		}
		if len(bufs) != 2 {
			t.Fatalf("got %d buffers, want 2", len(bufs))
		}
		for i, fill := range []byte{0x11, 0x22} {
			if bufs[i].Data[0] != fill {
				t.Fatalf("member %d starts with %#x, want %#x", i, bufs[i].Data[0], fill)
			}
			if err := bufs[i].Validate(); err != nil {
				t.Fatal(err)
			}
			if bufs[i].PTS != time.Second {
				t.Fatalf("member %d pts = %v", i, bufs[i].PTS)
			}
		}
	})

	t.Run("pick", func(t *testing.T) {
		bufs, err := Demux(bundle, 1)
		if err != nil {
			t.Fatal(err)
		}
		if len(bufs) != 1 || bufs[0].Data[0] != 0x22 {
			t.Fatal("pick list did not select the second member")
		}
	})

	t.Run("bad pick", func(t *testing.T) {
		if _, err := Demux(bundle, 2); !errors.Is(err, ErrBadPick) {
			t.Fatalf("err = %v, want ErrBadPick", err)
		}
	})
}
