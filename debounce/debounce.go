// Package debounce turns a noisy edge-triggered input into one logical
// action per transition, submitted through a dispatch.Submitter.
//
// States are Idle and Settling. An edge seen in Idle is accepted at once
// (leading-edge policy): its action is submitted, the state moves to
// Settling and a one-shot timer of Window is armed. When the timer expires
// the state returns to Idle. If a Level sampler is configured and the
// settled level differs from the last accepted one, that transition is
// submitted too and the window restarts.
//
// What happens to edges during Settling depends on Policy:
//
//   - FixedWindow masks the input line for the whole window. Edges that
//     still arrive are counted as spurious and ignored; the window is not
//     extended. The line is unmasked on expiry.
//   - ResetOnBounce leaves the line enabled and restarts the window on every
//     bounce, so the input must be quiet for Window before Idle.
//
// Edge and the timer callback may run in interrupt context. Neither blocks,
// allocates or logs; observations are exposed through Stats.
package debounce

import (
	"sync/atomic"
	"time"

	"irqdemo-go/dispatch"
	"irqdemo-go/errcode"
	"irqdemo-go/x/critical"
)

type State uint8

const (
	Idle State = iota
	Settling
)

func (s State) String() string {
	if s == Settling {
		return "settling"
	}
	return "idle"
}

type Policy uint8

const (
	FixedWindow Policy = iota
	ResetOnBounce
)

func (p Policy) String() string {
	if p == ResetOnBounce {
		return "reset_on_bounce"
	}
	return "fixed_window"
}

// ParsePolicy accepts the names produced by Policy.String.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "fixed_window":
		return FixedWindow, nil
	case "reset_on_bounce":
		return ResetOnBounce, nil
	}
	return 0, &errcode.E{C: errcode.InvalidConfig, Op: "debounce.ParsePolicy", Msg: "unknown policy " + s}
}

// Line masks and unmasks the interrupt source of one input. It must touch
// only that line, never the global interrupt state.
type Line interface {
	Mask()
	Unmask()
}

type Config struct {
	Window time.Duration
	Policy Policy
	// OnHigh/OnLow are submitted on accepted transitions to that logical
	// level. A zero Action submits nothing.
	OnHigh dispatch.WorkItem
	OnLow  dispatch.WorkItem
	// Initial is the logical level before the first edge.
	Initial bool
	// Level, when set, samples the logical level at window expiry.
	Level func() bool
	Clock Clock
}

// Stats counts what the state machine did with the edges it saw.
type Stats struct {
	Accepted uint32 // transitions submitted
	Bounces  uint32 // edges that restarted the window (ResetOnBounce)
	Spurious uint32 // edges ignored: masked line fired, or no level change
	Lost     uint32 // accepted transitions the dispatcher refused (queue full)
}

type Debouncer struct {
	cfg   Config
	sub   dispatch.Submitter
	line  Line
	clock Clock
	timer Timer

	cs       critical.Section
	state    State
	level    bool
	deadline time.Time
	stopped  bool

	accepted atomic.Uint32
	bounces  atomic.Uint32
	spurious atomic.Uint32
	lost     atomic.Uint32
}

// New builds a Debouncer in Idle. line may be nil when the input cannot be
// masked; FixedWindow then relies on counting spurious edges alone.
func New(cfg Config, sub dispatch.Submitter, line Line) (*Debouncer, error) {
	if cfg.Window <= 0 || sub == nil {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "debounce.New", Msg: "window and submitter required"}
	}
	if cfg.Policy != FixedWindow && cfg.Policy != ResetOnBounce {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "debounce.New", Msg: "unknown policy"}
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	d := &Debouncer{
		cfg:   cfg,
		sub:   sub,
		line:  line,
		clock: cfg.Clock,
		level: cfg.Initial,
	}
	d.timer = cfg.Clock.NewTimer(d.expire)
	return d, nil
}

// Edge reports an observed transition to logical level. Interrupt-safe.
func (d *Debouncer) Edge(level bool) {
	now := d.clock.Now()

	tok := d.cs.Enter()
	if d.stopped {
		d.cs.Exit(tok)
		return
	}
	switch d.state {
	case Idle:
		if level == d.level {
			d.cs.Exit(tok)
			d.spurious.Add(1)
			return
		}
		d.level = level
		d.state = Settling
		d.deadline = now.Add(d.cfg.Window)
		d.cs.Exit(tok)

		if d.cfg.Policy == FixedWindow && d.line != nil {
			d.line.Mask()
		}
		d.submit(level)
		d.timer.Reset(d.cfg.Window)

	case Settling:
		if d.cfg.Policy == FixedWindow {
			d.cs.Exit(tok)
			d.spurious.Add(1)
			return
		}
		d.deadline = now.Add(d.cfg.Window)
		d.cs.Exit(tok)
		d.bounces.Add(1)
		d.timer.Reset(d.cfg.Window)
	}
}

func (d *Debouncer) expire() {
	now := d.clock.Now()

	tok := d.cs.Enter()
	if d.stopped || d.state != Settling || now.Before(d.deadline) {
		// Stale fire from a timer that was reset meanwhile.
		d.cs.Exit(tok)
		return
	}
	if d.cfg.Level != nil {
		if lvl := d.cfg.Level(); lvl != d.level {
			d.level = lvl
			d.deadline = now.Add(d.cfg.Window)
			d.cs.Exit(tok)
			d.submit(lvl)
			d.timer.Reset(d.cfg.Window)
			return
		}
	}
	d.state = Idle
	d.cs.Exit(tok)

	if d.cfg.Policy == FixedWindow && d.line != nil {
		d.line.Unmask()
	}
}

// Stop cancels a pending window and returns to Idle without submitting or
// unmasking. Later edges and timer fires are ignored. Not for interrupt
// context.
func (d *Debouncer) Stop() {
	tok := d.cs.Enter()
	d.stopped = true
	d.state = Idle
	d.cs.Exit(tok)
	d.timer.Stop()
}

func (d *Debouncer) submit(level bool) {
	it := d.cfg.OnLow
	if level {
		it = d.cfg.OnHigh
	}
	d.accepted.Add(1)
	if it.Action == 0 {
		return
	}
	if !d.sub.SubmitFromInterrupt(it) {
		d.lost.Add(1)
	}
}

func (d *Debouncer) State() State {
	tok := d.cs.Enter()
	s := d.state
	d.cs.Exit(tok)
	return s
}

// Level returns the last accepted logical level.
func (d *Debouncer) Level() bool {
	tok := d.cs.Enter()
	l := d.level
	d.cs.Exit(tok)
	return l
}

func (d *Debouncer) Stats() Stats {
	return Stats{
		Accepted: d.accepted.Load(),
		Bounces:  d.bounces.Load(),
		Spurious: d.spurious.Load(),
		Lost:     d.lost.Load(),
	}
}
