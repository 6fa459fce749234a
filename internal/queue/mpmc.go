package queue

import (
	"runtime"
	"sync/atomic"
)

// cell is one slot in the MPMC ring: a value plus a sequence stamp that
// tells producers/consumers which "generation" of the ring currently
// owns the slot.
type cell[T any] struct {
	sequence atomic.Uint64
	value    T
}

// MPMC is a bounded ring buffer safe for many concurrent producers and
// many concurrent consumers (the Vyukov bounded MPMC queue). Capacity
// must be a power of two.
//
// Structurally this generalizes ejyy-femto_go/ringbuffer.go's
// preallocated, power-of-two-masked buffer from a single producer/
// consumer index pair (atomic load/store) to per-cell sequence stamps
// advanced by compare-and-swap, which is what makes concurrent
// producers (and consumers) safe without a lock.
type MPMC[T any] struct {
	buffer []cell[T]
	mask   uint64

	_          [cacheLinePad]byte
	enqueuePos atomic.Uint64
	_          [cacheLinePad]byte
	dequeuePos atomic.Uint64
	_          [cacheLinePad]byte
}

// NewMPMC constructs a ring of the given capacity, rounded up to the
// next power of two (minimum 2).
func NewMPMC[T any](capacity int) *MPMC[T] {
	n := uint64(2)
	for n < uint64(capacity) {
		n <<= 1
	}
	q := &MPMC[T]{
		buffer: make([]cell[T], n),
		mask:   n - 1,
	}
	for i := range q.buffer {
		q.buffer[i].sequence.Store(uint64(i))
	}
	return q
}

// TryEnqueue attempts to push v without blocking. Returns false if the
// ring is currently full; the ring is never overwritten on failure.
func (q *MPMC[T]) TryEnqueue(v T) bool {
	pos := q.enqueuePos.Load()
	for {
		c := &q.buffer[pos&q.mask]
		seq := c.sequence.Load()
		diff := int64(seq) - int64(pos)

		switch {
		case diff == 0:
			if q.enqueuePos.CompareAndSwap(pos, pos+1) {
				c.value = v
				c.sequence.Store(pos + 1)
				return true
			}
			pos = q.enqueuePos.Load()
		case diff < 0:
			// Sequence behind our position: ring is full.
			return false
		default:
			pos = q.enqueuePos.Load()
		}
	}
}

// TryDequeue attempts to pop the oldest value without blocking.
// Returns the zero value and false if the ring is currently empty.
func (q *MPMC[T]) TryDequeue() (v T, ok bool) {
	pos := q.dequeuePos.Load()
	for {
		c := &q.buffer[pos&q.mask]
		seq := c.sequence.Load()
		diff := int64(seq) - int64(pos+1)

		switch {
		case diff == 0:
			if q.dequeuePos.CompareAndSwap(pos, pos+1) {
				v = c.value
				var zero T
				c.value = zero
				c.sequence.Store(pos + q.mask + 1)
				return v, true
			}
			pos = q.dequeuePos.Load()
		case diff < 0:
			// Sequence behind our expectation: ring is empty.
			return v, false
		default:
			pos = q.dequeuePos.Load()
		}
	}
}

// EnqueueWait retries TryEnqueue with a pause/yield backoff until it
// succeeds or retries is exhausted, returning false in the latter case
// rather than blocking forever.
func (q *MPMC[T]) EnqueueWait(v T, retries int) bool {
	for i := 0; i < retries; i++ {
		if q.TryEnqueue(v) {
			return true
		}
		backoff(i)
	}
	return false
}

// DequeueWait is EnqueueWait's counterpart for the consumer side.
func (q *MPMC[T]) DequeueWait(retries int) (v T, ok bool) {
	for i := 0; i < retries; i++ {
		if v, ok = q.TryDequeue(); ok {
			return v, true
		}
		backoff(i)
	}
	return v, false
}

// backoff implements a pause/yield progression: a few tight spins, then
// increasingly yielding the processor to the scheduler.
func backoff(attempt int) {
	switch {
	case attempt < 4:
		for i := 0; i < 1<<attempt; i++ {
			// busy spin
		}
	default:
		runtime.Gosched()
	}
}

// Capacity returns the ring's fixed slot count.
func (q *MPMC[T]) Capacity() int {
	return len(q.buffer)
}
