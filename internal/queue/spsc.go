// Package queue implements the two lock-free queue primitives the rest
// of the engine is built on: an unbounded single-producer/
// single-consumer FIFO (SPSC) and a bounded multi-producer/
// multi-consumer ring (MPMC).
package queue

import (
	"sync/atomic"
)

const cacheLinePad = 64 - 8

// spscNode is one link in the SPSC queue. value is only valid once
// next has been published (see Enqueue), which is what gives the
// consumer a happens-before edge on the payload without a separate
// fence.
type spscNode[T any] struct {
	next  atomic.Pointer[spscNode[T]]
	value T
}

// SPSC is an unbounded FIFO for exactly one producer and one consumer.
// Enqueue never blocks. Dequeue returns the oldest unconsumed value, or
// the zero value and false if the queue is empty.
//
// tail (producer-owned) and head (consumer-owned) are kept on separate
// cache lines by explicit byte padding, the same idiom
// ejyy-femto_go/ringbuffer.go uses for its write/read positions,
// adapted here from a bounded ring's two indices to a linked list's two
// node pointers — false sharing between the producer and consumer is
// exactly as undesirable in a linked design as in a ring.
type SPSC[T any] struct {
	tail *spscNode[T]
	_    [cacheLinePad]byte

	head *spscNode[T]
	_    [cacheLinePad]byte
}

// NewSPSC constructs an empty SPSC queue.
func NewSPSC[T any]() *SPSC[T] {
	sentinel := &spscNode[T]{}
	return &SPSC[T]{tail: sentinel, head: sentinel}
}

// Enqueue appends v. Called only by the single producer.
func (q *SPSC[T]) Enqueue(v T) {
	n := &spscNode[T]{value: v}
	// Publish the node pointer last: anyone observing q.tail.next
	// non-nil is guaranteed to see a fully initialized n.value, since
	// atomic.Pointer.Store is a release operation.
	q.tail.next.Store(n)
	q.tail = n
}

// Dequeue removes and returns the oldest value. Called only by the
// single consumer. ok is false if the queue was empty.
func (q *SPSC[T]) Dequeue() (v T, ok bool) {
	next := q.head.next.Load()
	if next == nil {
		return v, false
	}
	v = next.value
	q.head = next
	return v, true
}

// Empty reports whether the queue currently has nothing to dequeue.
// Racy with a concurrent Enqueue by design — it is a hint, not a lock.
func (q *SPSC[T]) Empty() bool {
	return q.head.next.Load() == nil
}
