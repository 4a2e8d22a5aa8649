//go:build !baremetal

package boot

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"irqdemo-go/hal"
)

// DriveButton lets a terminal stand in for a simulated button: "p" presses,
// "r" releases and "b" presses with contact bounce. Other pins are left
// alone.
func DriveButton(ctx context.Context, in io.Reader, pin hal.IRQPin, activeLow bool, log *slog.Logger) error {
	sim, ok := pin.(*hal.SimPin)
	if !ok {
		return nil
	}
	pressed, released := !activeLow, activeLow
	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(in)
		defer close(lines)
		for sc.Scan() {
			select {
			case lines <- strings.TrimSpace(sc.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()
	log.Info("button console: p=press r=release b=bouncy press")
	for {
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			switch l {
			case "p":
				sim.Set(pressed)
			case "r":
				sim.Set(released)
			case "b":
				sim.Bounce(2*time.Millisecond, pressed, released, pressed, released, pressed)
			}
		}
	}
}
