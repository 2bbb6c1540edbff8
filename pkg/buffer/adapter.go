// Package buffer provides byte accumulation for streaming stages.
//
// An Adapter joins arbitrarily sized incoming chunks into one contiguous
// region and lets the consumer take or discard exact amounts from the
// front. Stream stages are single-threaded by contract (one instance per
// stream, calls serialized), so the adapter does no locking and never
// blocks.
package buffer

// Adapter is a growable front-discardable byte accumulator.
//
// The zero value is ready to use.
type Adapter struct {
	buf  []byte
	head int
}

// Write appends a copy of p to the accumulated region.
func (a *Adapter) Write(p []byte) {
	a.compact()
	a.buf = append(a.buf, p...)
}

// Len returns the number of accumulated bytes.
func (a *Adapter) Len() int {
	return len(a.buf) - a.head
}

// Peek returns a view of the first n accumulated bytes without consuming
// them. The view is valid until the next Write or Take. Peek panics if
// fewer than n bytes are accumulated.
func (a *Adapter) Peek(n int) []byte {
	if n > a.Len() {
		panic("buffer: peek beyond accumulated data")
	}
	return a.buf[a.head : a.head+n]
}

// Take removes the first n accumulated bytes and returns them as a fresh
// copy the caller owns. Take panics if fewer than n bytes are accumulated.
func (a *Adapter) Take(n int) []byte {
	out := make([]byte, n)
	copy(out, a.Peek(n))
	a.head += n
	return out
}

// Discard drops the first n accumulated bytes. If n exceeds the
// accumulated length everything is dropped.
func (a *Adapter) Discard(n int) {
	if n >= a.Len() {
		a.Reset()
		return
	}
	a.head += n
}

// Reset drops all accumulated bytes but keeps the allocation.
func (a *Adapter) Reset() {
	a.buf = a.buf[:0]
	a.head = 0
}

// compact reclaims the discarded prefix once it dominates the allocation.
func (a *Adapter) compact() {
	if a.head > len(a.buf)/2 && a.head > 0 {
		n := copy(a.buf, a.buf[a.head:])
		a.buf = a.buf[:n]
		a.head = 0
	}
}
