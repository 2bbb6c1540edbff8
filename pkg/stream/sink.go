// Package stream ties the conversion stages into a running pipeline: a
// terminal sink with optional delivery-rate capping, a msgpack dump
// format for emitted tensors, and a synchronous pipeline runner.
package stream

import (
	"time"

	"github.com/haivivi/tensorstream/pkg/tensor"
)

// Sink is the terminal stage of a tensor stream. Every pushed buffer
// counts as received; delivery to OnData can be thinned with SignalRate.
// Callbacks left nil are skipped.
type Sink struct {
	// SignalRate caps delivered buffers per second, measured by
	// timestamp distance. 0 delivers everything.
	SignalRate int

	// OnStart fires before the first delivery.
	OnStart func()
	// OnData receives each delivered buffer.
	OnData func(tensor.Buffer)
	// OnEOS fires once when the stream ends.
	OnEOS func()

	started   bool
	ended     bool
	received  int
	delivered int
	lastPTS   time.Duration
	hasLast   bool
}

// Push hands one buffer to the sink.
func (s *Sink) Push(buf tensor.Buffer) {
	s.received++

	if s.SignalRate > 0 && s.hasLast {
		if buf.PTS-s.lastPTS < time.Second/time.Duration(s.SignalRate) {
			return
		}
	}

	if !s.started {
		s.started = true
		if s.OnStart != nil {
			s.OnStart()
		}
	}
	s.delivered++
	s.lastPTS = buf.PTS
	s.hasLast = true
	if s.OnData != nil {
		s.OnData(buf)
	}
}

// EOS marks the end of the stream. Further pushes are still counted but
// EOS fires only once.
func (s *Sink) EOS() {
	if s.ended {
		return
	}
	s.ended = true
	if s.OnEOS != nil {
		s.OnEOS()
	}
}

// Received returns the number of buffers pushed.
func (s *Sink) Received() int { return s.received }

// Delivered returns the number of buffers that reached OnData.
func (s *Sink) Delivered() int { return s.delivered }
