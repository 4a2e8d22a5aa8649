//go:build rp2040

package hal

import (
	"machine"
	"time"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
)

const (
	buttonPin = machine.GP14
	pwmPin    = machine.GP16
	i2cSDA    = machine.GP4
	i2cSCL    = machine.GP5
)

// DefaultBoard wires the Pico: on-board LED, a pull-up button on GP14 to
// ground, PWM on GP16, the sensor bus on I2C0 (GP4/GP5) and the console on
// UART1 (GP8/GP9).
func DefaultBoard() Board {
	con := uartx.UART1
	_ = con.Configure(uartx.UARTConfig{
		BaudRate: 115200,
		TX:       uartx.UART1_TX_PIN,
		RX:       uartx.UART1_RX_PIN,
	})

	led := &rp2Pin{p: machine.LED, n: int(machine.LED)}
	_ = led.ConfigureOutput(false)
	btn := &rp2Pin{p: buttonPin, n: int(buttonPin)}
	_ = btn.ConfigureInput(PullUp)

	i2c := machine.I2C0
	_ = i2c.Configure(machine.I2CConfig{SDA: i2cSDA, SCL: i2cSCL, Frequency: 400_000})

	return Board{
		Name:            "pico",
		LED:             led,
		Button:          btn,
		PWM:             &rp2PWM{ctrl: machine.PWM0, pin: pwmPin},
		Console:         con,
		I2C:             i2c,
		ButtonActiveLow: true,
	}
}

type rp2Pin struct {
	p machine.Pin
	n int
}

func (r *rp2Pin) ConfigureInput(pull Pull) error {
	var mode machine.PinMode
	switch pull {
	case PullUp:
		mode = machine.PinInputPullup
	case PullDown:
		mode = machine.PinInputPulldown
	default:
		mode = machine.PinInput
	}
	r.p.Configure(machine.PinConfig{Mode: mode})
	return nil
}

func (r *rp2Pin) ConfigureOutput(initial bool) error {
	r.p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	r.p.Set(initial)
	return nil
}

func (r *rp2Pin) Set(level bool) { r.p.Set(level) }
func (r *rp2Pin) Get() bool      { return r.p.Get() }

func (r *rp2Pin) Toggle() {
	if r.p.Get() {
		r.p.Low()
	} else {
		r.p.High()
	}
}

func (r *rp2Pin) Number() int { return r.n }

func (r *rp2Pin) SetIRQ(edge Edge, handler func()) error {
	return r.p.SetInterrupt(toPinChange(edge), func(machine.Pin) { handler() })
}

func (r *rp2Pin) ClearIRQ() error {
	var zero machine.PinChange
	return r.p.SetInterrupt(zero, nil)
}

func toPinChange(e Edge) machine.PinChange {
	switch e {
	case EdgeRising:
		return machine.PinRising
	case EdgeFalling:
		return machine.PinFalling
	case EdgeBoth:
		return machine.PinToggle
	default:
		var zero machine.PinChange
		return zero
	}
}

// Local interface to avoid depending on an unexported concrete type in machine.
type pwmCtrl interface {
	Configure(cfg machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
}

type rp2PWM struct {
	ctrl pwmCtrl
	pin  machine.Pin
	ch   uint8
}

func (p *rp2PWM) Configure(period time.Duration) error {
	if err := p.ctrl.Configure(machine.PWMConfig{Period: uint64(period.Nanoseconds())}); err != nil {
		return err
	}
	ch, err := p.ctrl.Channel(p.pin)
	if err != nil {
		return err
	}
	p.ch = ch
	return nil
}

func (p *rp2PWM) Top() uint32 { return p.ctrl.Top() }

func (p *rp2PWM) Set(value uint32) { p.ctrl.Set(p.ch, value) }
