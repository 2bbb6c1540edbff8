package stream

import (
	"bytes"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/haivivi/tensorstream/pkg/aggregate"
	"github.com/haivivi/tensorstream/pkg/convert"
	"github.com/haivivi/tensorstream/pkg/filter"
	"github.com/haivivi/tensorstream/pkg/media"
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

func videoBuf(pts time.Duration) tensor.Buffer {
	desc := videoDesc()
	return tensor.Buffer{Desc: desc, Data: make([]byte, desc.ByteSize()), PTS: pts}
}

func TestSinkDeliversEverything(t *testing.T) {
	var got []time.Duration
	var starts, ends int
	s := &Sink{
		OnStart: func() { starts++ },
		OnData:  func(b tensor.Buffer) { got = append(got, b.PTS) },
		OnEOS:   func() { ends++ },
	}

	for i := 0; i < 5; i++ {
		s.Push(videoBuf(time.Duration(i) * time.Second / 30))
	}
	s.EOS()
	s.EOS()

	if s.Received() != 5 || s.Delivered() != 5 {
		t.Fatalf("received %d delivered %d, want 5/5", s.Received(), s.Delivered())
	}
	if len(got) != 5 {
		t.Fatalf("callback saw %d buffers", len(got))
	}
	if starts != 1 || ends != 1 {
		t.Fatalf("starts %d ends %d, want 1/1", starts, ends)
	}
}

func TestSinkSignalRate(t *testing.T) {
	// 30 fps input through a 10 per second cap: every third buffer is
	// at least 100ms after the last delivered one.
	s := &Sink{SignalRate: 10}
	for i := 0; i < 30; i++ {
		s.Push(videoBuf(time.Duration(i) * time.Second / 30))
	}
	if s.Received() != 30 {
		t.Fatalf("received %d, want 30", s.Received())
	}
	if s.Delivered() != 10 {
		t.Fatalf("delivered %d, want 10", s.Delivered())
	}
}

func TestDumpRoundTrip(t *testing.T) {
	var file bytes.Buffer
	w := NewDumpWriter(&file)

	want := []tensor.Buffer{videoBuf(0), videoBuf(time.Second / 30)}
	want[0].Data[0] = 0x5a
	for _, b := range want {
		if err := w.Write(b); err != nil {
			t.Fatal(err)
		}
	}

	r := NewDumpReader(&file)
	for i := range want {
		got, err := r.Read()
		if err != nil {
			t.Fatal(err)
		}
		if !got.Desc.Equal(want[i].Desc) {
			t.Fatalf("record %d descriptor = %s", i, got.Desc.Caps())
		}
		if got.PTS != want[i].PTS {
			t.Fatalf("record %d pts = %v, want %v", i, got.PTS, want[i].PTS)
		}
		if !bytes.Equal(got.Data, want[i].Data) {
			t.Fatalf("record %d payload differs", i)
		}
	}
	if _, err := r.Read(); err != io.EOF {
		t.Fatalf("err = %v, want io.EOF", err)
	}
}

func TestDumpRejectsShortBuffer(t *testing.T) {
	w := NewDumpWriter(io.Discard)
	bad := tensor.Buffer{Desc: videoDesc(), Data: make([]byte, 3)}
	if err := w.Write(bad); err == nil {
		t.Fatal("undersized buffer accepted")
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPipelineConvertToSink(t *testing.T) {
	conv, err := convert.New(1)
	if err != nil {
		t.Fatal(err)
	}
	var got []tensor.Buffer
	p := &Pipeline{
		Converter: conv,
		Sink:      &Sink{OnData: func(b tensor.Buffer) { got = append(got, b) }},
		Log:       quietLogger(),
	}

	format := media.Video{Pixel: media.RGB, Width: 160, Height: 120, RateN: 30, RateD: 1}
	for i := 0; i < 3; i++ {
		in := media.Buffer{Format: format, Data: make([]byte, format.BufferSize())}
		if err := p.Push(in); err != nil {
			t.Fatal(err)
		}
	}
	p.Close()

	if len(got) != 3 {
		t.Fatalf("sink saw %d buffers, want 3", len(got))
	}
	for _, b := range got {
		if len(b.Data) != 57600 {
			t.Fatalf("buffer size = %d, want 57600", len(b.Data))
		}
	}
}

func TestPipelineWithBackend(t *testing.T) {
	conv, err := convert.New(1)
	if err != nil {
		t.Fatal(err)
	}
	backend, err := filter.Open("scaler", "80x60")
	if err != nil {
		t.Fatal(err)
	}

	var got []tensor.Buffer
	p := &Pipeline{
		Converter: conv,
		Backend:   backend,
		Sink:      &Sink{OnData: func(b tensor.Buffer) { got = append(got, b) }},
		Log:       quietLogger(),
	}

	format := media.Video{Pixel: media.RGB, Width: 160, Height: 120, RateN: 30, RateD: 1}
	in := media.Buffer{Format: format, Data: make([]byte, format.BufferSize())}
	if err := p.Push(in); err != nil {
		t.Fatal(err)
	}
	p.Close()

	if len(got) != 1 {
		t.Fatalf("sink saw %d buffers, want 1", len(got))
	}
	if got[0].Desc.Dim != (tensor.Dimension{3, 80, 60, 1}) {
		t.Fatalf("scaled dim = %s", got[0].Desc.Dim)
	}
	if len(got[0].Data) != 3*80*60 {
		t.Fatalf("scaled size = %d", len(got[0].Data))
	}
}

func TestPipelineWithAggregator(t *testing.T) {
	conv, err := convert.New(1)
	if err != nil {
		t.Fatal(err)
	}
	agg, err := aggregate.New(aggregate.Config{
		FramesIn:    1,
		FramesOut:   10,
		FramesFlush: 5,
		Dim:         3,
	})
	if err != nil {
		t.Fatal(err)
	}

	sink := &Sink{}
	p := &Pipeline{Converter: conv, Aggregator: agg, Sink: sink, Log: quietLogger()}

	format := media.Video{Pixel: media.RGB, Width: 160, Height: 120, RateN: 30, RateD: 1}
	const n = 35
	for i := 0; i < n; i++ {
		in := media.Buffer{Format: format, Data: make([]byte, format.BufferSize())}
		if err := p.Push(in); err != nil {
			t.Fatal(err)
		}
	}
	p.Close()

	// Window of 10 sliding by 5: (35-10)/5+1 outputs.
	if want := (n-10)/5 + 1; sink.Received() != want {
		t.Fatalf("sink received %d, want %d", sink.Received(), want)
	}
}
