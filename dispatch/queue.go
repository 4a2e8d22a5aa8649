package dispatch

import (
	"sync/atomic"

	"irqdemo-go/errcode"
	"irqdemo-go/x/critical"
)

// Queue is a fixed-capacity FIFO ring that may be fed from interrupt context
// and drained by exactly one consumer.
//
// Producers (possibly several, possibly nested interrupts) serialise through
// a critical section held only for the slot store and tail update. The
// consumer never enters the critical section: it owns head and only advances
// it after copying the slot out.
//
// Indices run over [0, 2*cap) so that full (tail-head == cap) and empty
// (tail == head) are distinguishable for any capacity using single-word
// atomics.
type Queue[T any] struct {
	buf  []T
	n    uint32 // capacity
	wrap uint32 // 2*n

	head atomic.Uint32 // written by consumer only
	tail atomic.Uint32 // written by producers only, inside cs

	cs      critical.Section
	dropped atomic.Uint32

	ready chan struct{} // enqueue wakeups, coalesced
}

// NewQueue allocates all storage up front. capacity must be >= 1.
func NewQueue[T any](capacity int) (*Queue[T], error) {
	if capacity < 1 || capacity > 1<<30 {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "dispatch.NewQueue", Msg: "capacity out of range"}
	}
	n := uint32(capacity)
	return &Queue[T]{
		buf:   make([]T, n),
		n:     n,
		wrap:  2 * n,
		ready: make(chan struct{}, 1),
	}, nil
}

func (q *Queue[T]) slot(i uint32) uint32 {
	if i >= q.n {
		return i - q.n
	}
	return i
}

func (q *Queue[T]) advance(i uint32) uint32 {
	i++
	if i == q.wrap {
		return 0
	}
	return i
}

func (q *Queue[T]) count(head, tail uint32) uint32 {
	if tail >= head {
		return tail - head
	}
	return tail + q.wrap - head
}

// TryEnqueue appends item or returns errcode.QueueFull. It never blocks
// (beyond a peer producer's handful of instructions), never allocates, and
// never retries. A full queue drops the item and bumps Dropped.
func (q *Queue[T]) TryEnqueue(item T) error {
	tok := q.cs.Enter()
	tail := q.tail.Load()
	head := q.head.Load() // acquire
	c := q.count(head, tail)
	if c == q.n {
		q.cs.Exit(tok)
		q.dropped.Add(1)
		return errcode.QueueFull
	}
	q.buf[q.slot(tail)] = item
	q.tail.Store(q.advance(tail)) // release
	q.cs.Exit(tok)

	// Wake an idle consumer. Signalled on every enqueue, not only on the
	// empty edge: the consumer may have sampled tail just before our store.
	// Tokens coalesce, so a stale one costs a single empty re-check.
	select {
	case q.ready <- struct{}{}:
	default:
	}
	return nil
}

// TryDequeue removes the oldest item. Consumer context only.
func (q *Queue[T]) TryDequeue() (T, bool) {
	var zero T
	head := q.head.Load()
	tail := q.tail.Load() // acquire
	if head == tail {
		return zero, false
	}
	s := q.slot(head)
	item := q.buf[s]
	q.buf[s] = zero
	q.head.Store(q.advance(head)) // release the slot to producers
	return item, true
}

// Len reports the number of queued items (a snapshot).
func (q *Queue[T]) Len() int {
	return int(q.count(q.head.Load(), q.tail.Load()))
}

func (q *Queue[T]) Cap() int { return int(q.n) }

// Dropped counts items rejected with QueueFull since construction.
func (q *Queue[T]) Dropped() uint32 { return q.dropped.Load() }

// Ready fires after enqueues. The consumer must re-check the queue after
// receiving; tokens are coalesced.
func (q *Queue[T]) Ready() <-chan struct{} { return q.ready }
