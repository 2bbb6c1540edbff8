package stream

import (
	"fmt"
	"log/slog"

	"github.com/haivivi/tensorstream/pkg/aggregate"
	"github.com/haivivi/tensorstream/pkg/convert"
	"github.com/haivivi/tensorstream/pkg/filter"
	"github.com/haivivi/tensorstream/pkg/media"
	"github.com/haivivi/tensorstream/pkg/tensor"
)

// Pipeline chains one media stream through conversion, optional
// re-batching, an optional backend, and a sink. It is synchronous: Push
// drives every downstream stage before returning.
//
// The backend is bound lazily on the first tensor to reach it, once the
// upstream descriptor is known. Output must be set for backends that are
// told their output shape instead of deriving it.
type Pipeline struct {
	Converter  *convert.Converter
	Aggregator *aggregate.Aggregator
	Backend    filter.Backend
	Output     *tensor.Descriptor
	Sink       *Sink
	Log        *slog.Logger

	disp *filter.Dispatcher
}

func (p *Pipeline) log() *slog.Logger {
	if p.Log != nil {
		return p.Log
	}
	return slog.Default()
}

// Push feeds one media buffer through the whole chain.
func (p *Pipeline) Push(in media.Buffer) error {
	outs, err := p.Converter.Push(in)
	if err != nil {
		return fmt.Errorf("stream: convert: %w", err)
	}
	for _, buf := range outs {
		if err := p.pushTensor(buf); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) pushTensor(buf tensor.Buffer) error {
	bufs := []tensor.Buffer{buf}
	if p.Aggregator != nil {
		var err error
		bufs, err = p.Aggregator.Push(buf)
		if err != nil {
			return fmt.Errorf("stream: aggregate: %w", err)
		}
	}
	for _, b := range bufs {
		out, err := p.invoke(b)
		if err != nil {
			return err
		}
		p.Sink.Push(out)
	}
	return nil
}

func (p *Pipeline) invoke(buf tensor.Buffer) (tensor.Buffer, error) {
	if p.Backend == nil {
		return buf, nil
	}
	if p.disp == nil {
		var err error
		if p.Output != nil {
			p.disp, err = filter.BindOutput(p.Backend, buf.Desc, *p.Output)
		} else {
			p.disp, err = filter.Bind(p.Backend, buf.Desc)
		}
		if err != nil {
			return tensor.Buffer{}, fmt.Errorf("stream: bind %s: %w", p.Backend.Name(), err)
		}
		p.log().Info("backend bound",
			"backend", p.Backend.Name(),
			"input", buf.Desc.Caps(),
			"output", p.disp.OutputDescriptor().Caps())
	}
	out, err := p.disp.Invoke(buf)
	if err != nil {
		return tensor.Buffer{}, fmt.Errorf("stream: invoke: %w", err)
	}
	return out, nil
}

// Close flushes partial state out of every stage and signals end of
// stream to the sink. Incomplete tail frames are dropped and logged.
func (p *Pipeline) Close() {
	if n := p.Converter.Flush(); n > 0 {
		p.log().Info("dropped incomplete frames at end of stream", "stage", "convert", "frames", n)
	}
	if p.Aggregator != nil {
		if n := p.Aggregator.Flush(); n > 0 {
			p.log().Info("dropped buffered frames at end of stream", "stage", "aggregate", "frames", n)
		}
	}
	p.Sink.EOS()
}
