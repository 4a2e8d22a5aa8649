// Package shmring is a single-producer, single-consumer byte ring with a
// coalesced readiness channel.
package shmring

import (
	"sync/atomic"
)

// Ring is a single-producer, single-consumer byte ring. Indices are
// monotonic and wrap through uint32; size is a power of two.
type Ring struct {
	buf  []byte
	mask uint32
	rd   atomic.Uint32 // consumer index
	wr   atomic.Uint32 // producer index

	drops atomic.Uint32 // frames refused by WriteFrame

	readable chan struct{}
}

func New(size int) *Ring {
	if size < 2 || (size&(size-1)) != 0 {
		panic("shmring: size must be power of two >= 2")
	}
	return &Ring{
		buf:      make([]byte, size),
		mask:     uint32(size - 1),
		readable: make(chan struct{}, 1),
	}
}

// NewAtLeast rounds size up to the next power of two.
func NewAtLeast(size int) *Ring {
	n := 2
	for n < size {
		n <<= 1
	}
	return New(n)
}

func (r *Ring) size() uint32 { return uint32(len(r.buf)) }

func (r *Ring) Cap() int { return len(r.buf) }

func (r *Ring) Space() int {
	rd := r.rd.Load()
	wr := r.wr.Load()
	return int(r.size() - (wr - rd))
}

func (r *Ring) Available() int {
	rd := r.rd.Load()
	wr := r.wr.Load()
	return int(wr - rd)
}

// Producer side

// TryWriteFrom copies as much of src as fits and returns the count.
func (r *Ring) TryWriteFrom(src []byte) (n int) {
	if len(src) == 0 {
		return 0
	}
	rd := r.rd.Load()
	wr := r.wr.Load()
	space := int(r.size() - (wr - rd))
	if space <= 0 {
		return 0
	}
	n = min(space, len(src))

	wrIdx := wr & r.mask
	first := min(int(r.size()-wrIdx), n)
	copy(r.buf[wrIdx:wrIdx+uint32(first)], src[:first])
	if second := n - first; second > 0 {
		copy(r.buf[:second], src[first:n])
	}
	r.wr.Store(wr + uint32(n)) // release

	// Signal on every write: a reader that sampled wr before the store
	// would otherwise sleep with data present.
	notify(r.readable)
	return n
}

// WriteFrame writes all of p or nothing. A refused frame is counted.
func (r *Ring) WriteFrame(p []byte) bool {
	if len(p) > r.Space() {
		r.drops.Add(1)
		return false
	}
	r.TryWriteFrom(p)
	return true
}

// Drops reports frames refused by WriteFrame.
func (r *Ring) Drops() uint32 { return r.drops.Load() }

// Consumer side

// TryReadInto copies up to len(dst) buffered bytes and returns the count.
func (r *Ring) TryReadInto(dst []byte) (n int) {
	if len(dst) == 0 {
		return 0
	}
	rd := r.rd.Load()
	wr := r.wr.Load() // acquire
	avail := int(wr - rd)
	if avail <= 0 {
		return 0
	}
	n = min(avail, len(dst))

	rdIdx := rd & r.mask
	first := min(int(r.size()-rdIdx), n)
	copy(dst[:first], r.buf[rdIdx:rdIdx+uint32(first)])
	if second := n - first; second > 0 {
		copy(dst[first:n], r.buf[:second])
	}
	r.rd.Store(rd + uint32(n)) // release
	return n
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Readable is signalled after every write.
func (r *Ring) Readable() <-chan struct{} { return r.readable }
