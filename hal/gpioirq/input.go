// Package gpioirq binds an interrupt-capable pin to a debouncer. The ISR
// reads the pin, applies inversion and hands the logical level to the
// debouncer; the debouncer masks and unmasks the pin's IRQ through Input.
package gpioirq

import (
	"sync/atomic"

	"irqdemo-go/debounce"
	"irqdemo-go/dispatch"
	"irqdemo-go/errcode"
	"irqdemo-go/hal"
)

type Input struct {
	name   string
	pin    hal.IRQPin
	edge   hal.Edge
	invert bool
	deb    *debounce.Debouncer

	armed  atomic.Bool
	closed atomic.Bool
	irqs   atomic.Uint32
	fails  atomic.Uint32 // SetIRQ failures on unmask
}

type Stats struct {
	IRQs       uint32
	ArmFailure uint32
	debounce.Stats
}

// Register configures pin for both edges and starts feeding it into a
// debouncer built from cfg. cfg.Initial is always read from the pin;
// cfg.Level defaults to the pin read when nil.
func Register(name string, pin hal.IRQPin, invert bool, cfg debounce.Config, sub dispatch.Submitter) (*Input, error) {
	if pin == nil {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "gpioirq.Register", Msg: "nil pin"}
	}
	in := &Input{name: name, pin: pin, edge: hal.EdgeBoth, invert: invert}

	cfg.Initial = in.logical()
	if cfg.Level == nil {
		cfg.Level = in.logical
	}
	d, err := debounce.New(cfg, sub, in)
	if err != nil {
		return nil, err
	}
	in.deb = d

	if err := pin.SetIRQ(in.edge, in.isr); err != nil {
		return nil, errcode.Wrap(errcode.Error, "gpioirq.Register", err)
	}
	in.armed.Store(true)
	return in, nil
}

func (in *Input) logical() bool {
	l := in.pin.Get()
	if in.invert {
		l = !l
	}
	return l
}

// isr runs in interrupt context.
func (in *Input) isr() {
	if in.closed.Load() {
		return
	}
	in.irqs.Add(1)
	in.deb.Edge(in.logical())
}

// Mask disables this pin's interrupt only.
func (in *Input) Mask() {
	if in.armed.CompareAndSwap(true, false) {
		_ = in.pin.ClearIRQ()
	}
}

// Unmask re-arms the pin's interrupt unless the input was closed.
func (in *Input) Unmask() {
	if in.closed.Load() {
		return
	}
	if in.armed.CompareAndSwap(false, true) {
		if err := in.pin.SetIRQ(in.edge, in.isr); err != nil {
			in.armed.Store(false)
			in.fails.Add(1)
		}
	}
}

// Close detaches the interrupt handler and abandons any settle window, so
// no further work items are submitted for this input.
func (in *Input) Close() error {
	in.closed.Store(true)
	in.deb.Stop()
	in.armed.Store(false)
	return in.pin.ClearIRQ()
}

func (in *Input) Name() string { return in.name }

// Pressed returns the last debounced logical level.
func (in *Input) Pressed() bool { return in.deb.Level() }

func (in *Input) Debouncer() *debounce.Debouncer { return in.deb }

func (in *Input) Stats() Stats {
	return Stats{IRQs: in.irqs.Load(), ArmFailure: in.fails.Load(), Stats: in.deb.Stats()}
}
