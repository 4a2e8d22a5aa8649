package ramp

import (
	"time"

	"irqdemo-go/x/mathx"
)

// Step sets the new logical level in [0..top].
type Step func(level uint32)

// Tick waits for d and reports whether to continue (false => cancelled).
type Tick func(d time.Duration) bool

// StartLinear runs a synchronous (caller-driven) integer ramp from cur to
// to in steps equal intervals spread over duration: each interval is a tick
// followed by a set. It reports false if tick cancelled the ramp.
// steps==0 or duration==0 snaps to 'to'.
func StartLinear(cur, to, top uint32, duration time.Duration, steps uint32, tick Tick, set Step) bool {
	to = mathx.Min(to, top)
	if steps == 0 || duration <= 0 {
		set(to)
		return true
	}
	d := int64(to) - int64(cur)
	st := int64(steps)
	acc := int64(0)
	cur64 := int64(cur)
	stepDur := time.Duration(mathx.RoundDiv(uint64(duration), uint64(steps)))
	if stepDur == 0 {
		stepDur = 1
	}

	for i := uint32(1); i <= steps; i++ {
		if !tick(stepDur) {
			return false
		}
		acc += d
		inc := acc / st
		if inc != 0 {
			acc -= inc * st
			cur64 = mathx.Clamp(cur64+inc, 0, int64(top))
			set(uint32(cur64))
		}
	}
	if uint32(cur64) != to {
		set(to)
	}
	return true
}
