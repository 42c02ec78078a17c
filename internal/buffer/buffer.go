// Package buffer implements a reference-counted sample buffer and a small
// free-list pool, the reusable-allocation unit that flows through the NBFM
// pipeline.
//
// This is a Go re-expression of the teacher's rrbb_t lifecycle: rather than a
// C-style magic-number guard checked on every access, a released buffer is
// marked with an explicit flag and any further access panics immediately.
// There is no preprocessor Assert in Go, so the guard is just a field.
package buffer

import "fmt"

// Kind distinguishes the sample layout carried by a Buffer.
type Kind int

const (
	// Complex buffers hold interleaved I/Q float32 pairs.
	Complex Kind = iota
	// Real buffers hold mono float32 samples.
	Real
)

// Buffer is a reference-counted sample array. A freshly obtained Buffer
// starts with a user count of 1, representing the caller that requested it.
// Every stage that forwards a Buffer to another consumer must call
// IncrementUserCount first; every stage that finishes with a Buffer must call
// DecrementUserCount exactly once. The buffer returns to its Pool's free list
// when the count reaches zero, and any further access is a programmer error.
type Buffer struct {
	pool     *Pool
	kind     Kind
	samples  []float32
	count    int // number of mono samples (Real) or I/Q pairs (Complex)
	users    int
	released bool
}

// Samples returns the backing sample slice. Complex buffers interleave I at
// even indices and Q at odd indices; Real buffers are mono.
func (b *Buffer) Samples() []float32 {
	b.checkLive()
	return b.samples
}

// SampleCount returns the number of samples (complex pairs count once).
func (b *Buffer) SampleCount() int {
	b.checkLive()
	return b.count
}

// Kind reports whether this is a Complex or Real buffer.
func (b *Buffer) Kind() Kind {
	b.checkLive()
	return b.kind
}

// IncrementUserCount must be called before handing the buffer to an
// additional consumer (fan-out, or transferring ownership to the next
// pipeline stage while the current stage still needs it briefly).
func (b *Buffer) IncrementUserCount() {
	b.checkLive()
	b.users++
}

// DecrementUserCount must be called exactly once by every consumer that is
// done with the buffer. When the count reaches zero the buffer is returned
// to its pool and must not be touched again.
func (b *Buffer) DecrementUserCount() {
	b.checkLive()
	b.users--
	if b.users < 0 {
		panic(fmt.Sprintf("buffer: DecrementUserCount below zero (pool kind=%v)", b.kind))
	}
	if b.users == 0 {
		b.released = true
		b.pool.release(b)
	}
}

func (b *Buffer) checkLive() {
	if b.released {
		panic("buffer: access after release")
	}
}

// Pool is a free-list allocator of Buffers of a fixed kind. Pools are the
// only shared mutable resource in the pipeline (per spec's concurrency
// model). A Pool has no internal locking: Get, the release done by
// DecrementUserCount, and Outstanding are not synchronized, so concurrent
// use from several goroutines is not safe.
type Pool struct {
	kind     Kind
	free     []*Buffer
	outstand int
}

// NewPool constructs a Pool that vends buffers of the given kind.
func NewPool(kind Kind) *Pool {
	return &Pool{kind: kind}
}

// Get returns a Buffer with at least n samples of capacity and a user count
// of 1. n is the number of complex pairs for a Complex pool or the number of
// mono samples for a Real pool.
func (p *Pool) Get(n int) *Buffer {
	width := n
	if p.kind == Complex {
		width = n * 2
	}

	var b *Buffer
	for i, cand := range p.free {
		if cap(cand.samples) >= width {
			b = cand
			p.free = append(p.free[:i], p.free[i+1:]...)
			break
		}
	}
	if b == nil {
		b = &Buffer{pool: p, kind: p.kind, samples: make([]float32, width)}
	}

	b.samples = b.samples[:width]
	b.count = n
	b.users = 1
	b.released = false
	p.outstand++
	return b
}

func (p *Pool) release(b *Buffer) {
	p.outstand--
	p.free = append(p.free, b)
}

// Outstanding reports how many buffers are currently checked out of the
// pool's free list — used to feed the buffer-pool-depth gauge.
func (p *Pool) Outstanding() int {
	return p.outstand
}
