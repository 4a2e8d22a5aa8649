// Package dispatch defers work from interrupt context to a single
// run-to-completion consumer.
//
// Interrupt handlers see only the Submitter facade: a non-blocking,
// allocation-free enqueue of a fixed-size WorkItem. The consumer side
// registers a Handler per ActionID and drains the queue in RunForever.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"irqdemo-go/errcode"
)

// ActionID names a registered consumer-side action. Zero is reserved.
type ActionID uint8

// MaxActions bounds the handler table so lookup is a plain array index.
const MaxActions = 64

// WorkItem is copied by value across the interrupt boundary.
type WorkItem struct {
	Action ActionID
	Arg    int32
}

// Item is shorthand for a WorkItem carrying arg.
func Item(id ActionID, arg int32) WorkItem { return WorkItem{Action: id, Arg: arg} }

// BoolArg encodes b as a WorkItem argument.
func BoolArg(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// Handler runs on the consumer context. It must be short and must not block:
// a handler that never returns starves every later item.
type Handler func(arg int32) error

// Submitter is the only surface interrupt-context code may use.
type Submitter interface {
	// SubmitFromInterrupt enqueues it and reports success. On a full queue it
	// returns false and the drop is counted; callers must not retry.
	SubmitFromInterrupt(it WorkItem) bool
}

// Policy selects how the consumer waits when the queue is empty.
type Policy uint8

const (
	// IdleWait blocks until an enqueue signals the consumer.
	IdleWait Policy = iota
	// Poll re-checks the queue every PollTick.
	Poll
)

func (p Policy) String() string {
	switch p {
	case IdleWait:
		return "idle_wait"
	case Poll:
		return "poll"
	default:
		return "unknown"
	}
}

// ParsePolicy accepts the names produced by Policy.String.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "idle_wait":
		return IdleWait, nil
	case "poll":
		return Poll, nil
	}
	return 0, &errcode.E{C: errcode.InvalidConfig, Op: "dispatch.ParsePolicy", Msg: "unknown policy " + s}
}

const (
	DefaultCapacity = 32
	DefaultPollTick = time.Millisecond
	// MaxPollTick keeps polling below the button-to-LED latency budget.
	MaxPollTick = 100 * time.Millisecond
)

// Config holds the integrator-supplied tunables.
type Config struct {
	Capacity int
	Policy   Policy
	PollTick time.Duration
	Logger   *slog.Logger
	// OnFailure, when set, is called on the consumer context for every
	// failed or unknown item after it has been logged and counted.
	OnFailure func(it WorkItem, err error)
}

// Stats is a snapshot of dispatcher counters.
type Stats struct {
	Submitted uint32
	Dropped   uint32
	Executed  uint32
	Failed    uint32
	Unhandled uint32
	Pending   int
}

type entry struct {
	name string
	fn   Handler
}

// Dispatcher owns one Queue and the loop that drains it. Create one per
// concurrency domain at start-up and keep it for the process lifetime.
type Dispatcher struct {
	q         *Queue[WorkItem]
	handlers  [MaxActions]entry
	policy    Policy
	tick      time.Duration
	log       *slog.Logger
	onFailure func(WorkItem, error)

	running atomic.Bool

	submitted atomic.Uint32
	executed  atomic.Uint32
	failed    atomic.Uint32
	unhandled atomic.Uint32
}

var _ Submitter = (*Dispatcher)(nil)

func New(cfg Config) (*Dispatcher, error) {
	if cfg.Capacity == 0 {
		cfg.Capacity = DefaultCapacity
	}
	q, err := NewQueue[WorkItem](cfg.Capacity)
	if err != nil {
		return nil, err
	}
	switch cfg.Policy {
	case IdleWait:
	case Poll:
		if cfg.PollTick <= 0 {
			cfg.PollTick = DefaultPollTick
		}
		if cfg.PollTick >= MaxPollTick {
			return nil, &errcode.E{C: errcode.InvalidConfig, Op: "dispatch.New", Msg: "poll tick must be below 100ms"}
		}
	default:
		return nil, &errcode.E{C: errcode.InvalidConfig, Op: "dispatch.New", Msg: "unknown policy"}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Dispatcher{
		q:         q,
		policy:    cfg.Policy,
		tick:      cfg.PollTick,
		log:       cfg.Logger.With("component", "dispatch"),
		onFailure: cfg.OnFailure,
	}, nil
}

// Handle registers fn for id. Call before RunForever; registration is not
// synchronised with the consumer.
func (d *Dispatcher) Handle(id ActionID, name string, fn Handler) error {
	if id == 0 || int(id) >= MaxActions || fn == nil {
		return &errcode.E{C: errcode.InvalidParams, Op: "dispatch.Handle", Msg: fmt.Sprintf("action %d", id)}
	}
	if d.running.Load() {
		return &errcode.E{C: errcode.Unsupported, Op: "dispatch.Handle", Msg: "dispatcher already running"}
	}
	d.handlers[id] = entry{name: name, fn: fn}
	return nil
}

// SubmitFromInterrupt implements Submitter.
func (d *Dispatcher) SubmitFromInterrupt(it WorkItem) bool {
	if d.q.TryEnqueue(it) != nil {
		return false
	}
	d.submitted.Add(1)
	return true
}

// Submit enqueues from task context and reports a full queue as an error.
func (d *Dispatcher) Submit(it WorkItem) error {
	if err := d.q.TryEnqueue(it); err != nil {
		return err
	}
	d.submitted.Add(1)
	return nil
}

// RunForever drains the queue on the calling goroutine until ctx is done.
// On an MCU the context is never cancelled and this never returns.
func (d *Dispatcher) RunForever(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return &errcode.E{C: errcode.Unsupported, Op: "dispatch.RunForever", Msg: "already running"}
	}
	defer d.running.Store(false)

	d.log.Info("dispatcher running", "policy", d.policy.String(), "capacity", d.q.Cap())

	var tick *time.Ticker
	var tickC <-chan time.Time
	if d.policy == Poll {
		tick = time.NewTicker(d.tick)
		defer tick.Stop()
		tickC = tick.C
	}

	for {
		d.DispatchPending()
		select {
		case <-ctx.Done():
			d.log.Info("dispatcher stopping", "dropped", d.q.Dropped())
			return ctx.Err()
		default:
		}
		if d.policy == Poll {
			select {
			case <-ctx.Done():
			case <-tickC:
			}
			continue
		}
		select {
		case <-ctx.Done():
		case <-d.q.Ready():
		}
	}
}

// DispatchPending runs every item queued at the time of each dequeue and
// returns how many ran. Consumer context only.
func (d *Dispatcher) DispatchPending() int {
	n := 0
	for {
		it, ok := d.q.TryDequeue()
		if !ok {
			return n
		}
		d.run(it)
		n++
	}
}

func (d *Dispatcher) run(it WorkItem) {
	var e entry
	if int(it.Action) < MaxActions {
		e = d.handlers[it.Action]
	}
	if e.fn == nil {
		d.unhandled.Add(1)
		err := &errcode.E{C: errcode.UnknownAction, Op: "dispatch.run", Msg: fmt.Sprintf("action %d", it.Action)}
		d.log.Warn("no handler", "action", it.Action, "arg", it.Arg)
		d.fail(it, err)
		return
	}

	err := d.call(e, it.Arg)
	d.executed.Add(1)
	if err != nil {
		d.failed.Add(1)
		d.log.Error("action failed", "action", e.name, "arg", it.Arg, "err", err)
		d.fail(it, errcode.Wrap(errcode.ActionFailure, e.name, err))
	}
}

// call isolates a panicking handler so one bad item cannot stop the loop.
func (d *Dispatcher) call(e entry, arg int32) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return e.fn(arg)
}

func (d *Dispatcher) fail(it WorkItem, err error) {
	if d.onFailure != nil {
		d.onFailure(it, err)
	}
}

// Every submits it once per period until ctx is done, the way a periodic
// timer interrupt would. A full queue drops that tick only.
func (d *Dispatcher) Every(ctx context.Context, period time.Duration, it WorkItem) {
	if period <= 0 {
		return
	}
	go func() {
		tick := time.NewTicker(period)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				d.SubmitFromInterrupt(it)
			}
		}
	}()
}

func (d *Dispatcher) Stats() Stats {
	return Stats{
		Submitted: d.submitted.Load(),
		Dropped:   d.q.Dropped(),
		Executed:  d.executed.Load(),
		Failed:    d.failed.Load(),
		Unhandled: d.unhandled.Load(),
		Pending:   d.q.Len(),
	}
}
