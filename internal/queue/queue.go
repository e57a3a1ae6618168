// Package queue implements the unbounded command channel between the
// ingest listener and the control loop.
package queue

import (
	"errors"
	"sync"
)

// ErrClosed is returned by Send once the receiving side has gone away.
var ErrClosed = errors.New("queue closed: receiver gone")

// Item is a queued value together with the address it came from.
type Item[T any] struct {
	Value  T
	Remote string
}

// Queue is an unbounded FIFO with any number of senders and exactly one
// receiver. Send never blocks and TryRecv never waits.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []Item[T]
	closed bool
}

// New creates an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Send appends v to the queue. It fails only after Close.
func (q *Queue[T]) Send(v T, remote string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	q.items = append(q.items, Item[T]{Value: v, Remote: remote})
	return nil
}

// TryRecv pops the oldest item if one is immediately available.
func (q *Queue[T]) TryRecv() (Item[T], bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero Item[T]
	if len(q.items) == 0 {
		return zero, false
	}
	it := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return it, true
}

// Len reports how many items are waiting.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close marks the receiver as gone. Pending items are discarded and every
// later Send returns ErrClosed.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.items = nil
}
