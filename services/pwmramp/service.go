// Package pwmramp sweeps a PWM output's duty cycle from 0% up to a maximum
// in 1% steps, either restarting from zero (sawtooth) or coming back down
// (triangle).
package pwmramp

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"irqdemo-go/errcode"
	"irqdemo-go/hal"
	"irqdemo-go/x/mathx"
	"irqdemo-go/x/ramp"
)

type Shape uint8

const (
	Sawtooth Shape = iota
	Triangle
)

func (s Shape) String() string {
	if s == Triangle {
		return "triangle"
	}
	return "sawtooth"
}

func ParseShape(s string) (Shape, error) {
	switch s {
	case "", "sawtooth":
		return Sawtooth, nil
	case "triangle":
		return Triangle, nil
	}
	return 0, &errcode.E{C: errcode.InvalidConfig, Op: "pwmramp.ParseShape", Msg: "unknown shape " + s}
}

type Config struct {
	Period     time.Duration
	Step       time.Duration
	MaxPercent uint32
	Shape      Shape
}

type Ramp struct {
	pwm    hal.PWM
	cfg    Config
	log    *slog.Logger
	cycles atomic.Uint32

	// newTick builds the step clock; replaced in tests.
	newTick func(ctx context.Context, step time.Duration) (ramp.Tick, func())
}

func New(pwm hal.PWM, cfg Config, log *slog.Logger) (*Ramp, error) {
	if pwm == nil || cfg.Period <= 0 || cfg.Step <= 0 {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "pwmramp.New", Msg: "pwm, period and step required"}
	}
	if cfg.MaxPercent == 0 || cfg.MaxPercent > 100 {
		cfg.MaxPercent = 99
	}
	if log == nil {
		log = slog.Default()
	}
	return &Ramp{pwm: pwm, cfg: cfg, log: log.With("service", "pwmramp"), newTick: tickerTick}, nil
}

// tickerTick paces steps on one ticker so the average rate holds even when
// a single wait overshoots.
func tickerTick(ctx context.Context, step time.Duration) (ramp.Tick, func()) {
	t := time.NewTicker(step)
	return func(time.Duration) bool {
		select {
		case <-ctx.Done():
			return false
		case <-t.C:
			return true
		}
	}, t.Stop
}

// Run configures the output and ramps until ctx is done.
func (r *Ramp) Run(ctx context.Context) error {
	if err := r.pwm.Configure(r.cfg.Period); err != nil {
		return errcode.Wrap(errcode.Error, "pwmramp.Configure", err)
	}
	top := r.pwm.Top()
	set := func(pct uint32) { r.pwm.Set(mathx.MapU32(pct, 0, 100, 0, top)) }
	tick, stop := r.newTick(ctx, r.cfg.Step)
	defer stop()

	hi := r.cfg.MaxPercent
	leg := time.Duration(hi) * r.cfg.Step
	r.log.Info("ramping", "period", r.cfg.Period, "step", r.cfg.Step, "max_percent", hi, "shape", r.cfg.Shape.String(), "top", top)

	set(0)
	for {
		if !ramp.StartLinear(0, hi, 100, leg, hi, tick, set) {
			break
		}
		if r.cfg.Shape == Triangle {
			if !ramp.StartLinear(hi, 0, 100, leg, hi, tick, set) {
				break
			}
		} else {
			if !tick(r.cfg.Step) {
				break
			}
			set(0)
		}
		r.cycles.Add(1)
	}
	r.log.Info("ramp stopped", "cycles", r.cycles.Load())
	return nil
}

// Cycles is the number of completed ramp cycles.
func (r *Ramp) Cycles() uint32 { return r.cycles.Load() }
