package debounce

import (
	"math"
	"sync"
	"time"
)

// Timer is a reusable one-shot timer whose callback was fixed at creation,
// so arming it never allocates.
type Timer interface {
	Reset(d time.Duration) bool
	Stop() bool
}

// Clock supplies time and one-shot timers.
type Clock interface {
	Now() time.Time
	NewTimer(f func()) Timer
}

// SystemClock is backed by package time.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) NewTimer(f func()) Timer {
	t := time.AfterFunc(time.Duration(math.MaxInt64), f)
	t.Stop()
	return t
}

// ManualClock is a deterministic Clock for tests and simulations. Timers
// fire synchronously from Advance, on the caller's goroutine.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

func NewManualClock() *ManualClock {
	return &ManualClock{now: time.Unix(0, 0)}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) NewTimer(f func()) Timer {
	t := &manualTimer{c: c, f: f}
	c.mu.Lock()
	c.timers = append(c.timers, t)
	c.mu.Unlock()
	return t
}

// Advance moves time forward by d, firing due timers in deadline order with
// the clock set to each timer's deadline.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	for {
		var next *manualTimer
		for _, t := range c.timers {
			if t.armed && !t.at.After(target) && (next == nil || t.at.Before(next.at)) {
				next = t
			}
		}
		if next == nil {
			break
		}
		next.armed = false
		if next.at.After(c.now) {
			c.now = next.at
		}
		c.mu.Unlock()
		next.f()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

// AdvanceTo moves the clock to since-epoch offset at (no-op if in the past).
func (c *ManualClock) AdvanceTo(at time.Duration) {
	d := time.Unix(0, 0).Add(at).Sub(c.Now())
	if d > 0 {
		c.Advance(d)
	}
}

type manualTimer struct {
	c     *ManualClock
	f     func()
	at    time.Time
	armed bool
}

func (t *manualTimer) Reset(d time.Duration) bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	was := t.armed
	t.armed = true
	t.at = t.c.now.Add(d)
	return was
}

func (t *manualTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	was := t.armed
	t.armed = false
	return was
}
