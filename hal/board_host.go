//go:build !rp2040

package hal

import "os"

// DefaultBoard returns simulated peripherals. The button idles high
// (pull-up, active low) like the boards the demos were written for.
func DefaultBoard() Board {
	return Board{
		Name:            "host",
		LED:             NewSimPin(25, false),
		Button:          NewSimPin(14, true),
		PWM:             NewSimPWM(1000),
		Console:         os.Stderr,
		ButtonActiveLow: true,
	}
}
