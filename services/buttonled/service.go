// Package buttonled is the button-to-LED demo: a press logs and starts the
// settle window, a release toggles the LED. Both run on the dispatcher; the
// button ISR only feeds the debouncer.
package buttonled

import (
	"log/slog"
	"time"

	"irqdemo-go/bus"
	"irqdemo-go/debounce"
	"irqdemo-go/dispatch"
	"irqdemo-go/hal"
	"irqdemo-go/hal/gpioirq"
)

const (
	ActPressed dispatch.ActionID = iota + 10
	ActReleased
)

var (
	TopicButton = bus.T("button", "state")
	TopicLED    = bus.T("led", "state")
)

type Options struct {
	Window    time.Duration
	Policy    debounce.Policy
	ActiveLow bool
	// Clock defaults to the system clock.
	Clock debounce.Clock
}

type Service struct {
	disp   *dispatch.Dispatcher
	led    hal.GPIOPin
	conn   *bus.Connection
	log    *slog.Logger
	window time.Duration
	input  *gpioirq.Input

	presses  uint32
	releases uint32
}

func New(d *dispatch.Dispatcher, led hal.GPIOPin, conn *bus.Connection, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{disp: d, led: led, conn: conn, log: log.With("service", "buttonled")}
}

// Register installs the handlers and attaches the button interrupt.
func (s *Service) Register(button hal.IRQPin, opts Options) error {
	if err := s.disp.Handle(ActPressed, "button.pressed", s.pressed); err != nil {
		return err
	}
	if err := s.disp.Handle(ActReleased, "button.released", s.released); err != nil {
		return err
	}
	s.window = opts.Window
	in, err := gpioirq.Register("button", button, opts.ActiveLow, debounce.Config{
		Window: opts.Window,
		Policy: opts.Policy,
		OnHigh: dispatch.Item(ActPressed, 1),
		OnLow:  dispatch.Item(ActReleased, 0),
		Clock:  opts.Clock,
	}, s.disp)
	if err != nil {
		return err
	}
	s.input = in
	s.publish(TopicLED, s.led.Get())
	return nil
}

func (s *Service) pressed(int32) error {
	s.presses++
	s.log.Info("pressed")
	s.log.Info("start timer...", "window", s.window)
	s.publish(TopicButton, true)
	return nil
}

func (s *Service) released(int32) error {
	s.releases++
	s.led.Toggle()
	on := s.led.Get()
	s.log.Info("released", "led", on)
	s.publish(TopicButton, false)
	s.publish(TopicLED, on)
	return nil
}

func (s *Service) publish(t bus.Topic, v bool) {
	if s.conn != nil {
		s.conn.Publish(s.conn.NewMessage(t, v, true))
	}
}

// Counts returns presses and releases handled. Consumer context only.
func (s *Service) Counts() (presses, releases uint32) { return s.presses, s.releases }

func (s *Service) Input() *gpioirq.Input { return s.input }

func (s *Service) Close() error {
	if s.input == nil {
		return nil
	}
	return s.input.Close()
}
