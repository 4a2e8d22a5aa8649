// Package hal holds the small peripheral contracts the demos drive, with
// host simulations and RP2040 implementations selected by build tag.
package hal

import (
	"io"
	"time"

	"tinygo.org/x/drivers"
)

type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

type GPIOPin interface {
	ConfigureInput(pull Pull) error
	ConfigureOutput(initial bool) error
	Set(level bool)
	Get() bool
	Toggle()
	Number() int
}

// Edge selection for IRQ.
type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

func (e Edge) String() string {
	switch e {
	case EdgeRising:
		return "rising"
	case EdgeFalling:
		return "falling"
	case EdgeBoth:
		return "both"
	default:
		return "none"
	}
}

// IRQPin extends GPIOPin with interrupts. The handler runs in interrupt
// context on hardware targets.
type IRQPin interface {
	GPIOPin
	SetIRQ(edge Edge, handler func()) error
	ClearIRQ() error
}

// PWM is one PWM output channel.
type PWM interface {
	// Configure sets the period and enables the channel.
	Configure(period time.Duration) error
	// Top is the counter value for 100% duty.
	Top() uint32
	Set(value uint32)
}

// Board bundles the peripherals the demos use.
type Board struct {
	Name    string
	LED     GPIOPin
	Button  IRQPin
	PWM     PWM
	Console io.Writer
	// I2C is the sensor bus, nil when the board has none.
	I2C drivers.I2C
	// ButtonActiveLow reports pressed == low (pull-up button to ground).
	ButtonActiveLow bool
}
