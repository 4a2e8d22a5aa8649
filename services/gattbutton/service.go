// Package gattbutton exposes the button and LED over a GATT service.
//
// One service (0xA003) carries three characteristics: a read-only student
// id rewritten every second, the button state and the LED state. BLE
// callbacks and the button ISR never touch the server or the LED directly;
// they submit work items and the dispatcher applies them.
package gattbutton

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"tinygo.org/x/bluetooth"

	"irqdemo-go/bus"
	"irqdemo-go/debounce"
	"irqdemo-go/dispatch"
	"irqdemo-go/errcode"
	"irqdemo-go/hal"
	"irqdemo-go/hal/gpioirq"
)

const (
	ActStudentID dispatch.ActionID = iota + 20
	ActButton
	ActLED
	ActRejectLED
)

// ATT error codes returned to a refused LED write.
const (
	ATTInvalidOffset       uint8 = 0x07
	ATTInvalidAttValLength uint8 = 0x0D
)

// StudentIDLen is the characteristic size: the id plus a NUL terminator.
const StudentIDLen = 10

var (
	ServiceUUID   = bluetooth.New16BitUUID(0xA003)
	StudentIDUUID = bluetooth.NewUUID(uuid.MustParse("12345678-bc75-4741-8a26-264af75807de"))
	ButtonUUID    = bluetooth.NewUUID(uuid.MustParse("87654321-bc75-4741-8a26-264af75807de"))
	LEDUUID       = bluetooth.NewUUID(uuid.MustParse("55555555-bc75-4741-8a26-264af75807de"))
)

const rwni = bluetooth.CharacteristicReadPermission |
	bluetooth.CharacteristicWritePermission |
	bluetooth.CharacteristicNotifyPermission |
	bluetooth.CharacteristicIndicatePermission

type Options struct {
	LocalName  string
	StudentID  string
	IDInterval time.Duration
	Debounce   debounce.Config // Window, Policy and Clock are used
	ActiveLow  bool
}

type Service struct {
	disp  *dispatch.Dispatcher
	stack Stack
	led   hal.GPIOPin
	conn  *bus.Connection
	log   *slog.Logger
	opts  Options

	idChar, buttonChar, ledChar bluetooth.Characteristic
	id, button, ledVal          Value

	studentID [StudentIDLen]byte
	input     *gpioirq.Input

	idWrites, rejected uint32
}

func New(d *dispatch.Dispatcher, stack Stack, led hal.GPIOPin, conn *bus.Connection, log *slog.Logger, opts Options) (*Service, error) {
	if len(opts.StudentID) >= StudentIDLen {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "gattbutton.New", Msg: "student id too long"}
	}
	if opts.IDInterval <= 0 {
		opts.IDInterval = time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	s := &Service{disp: d, stack: stack, led: led, conn: conn, log: log.With("service", "gattbutton"), opts: opts}
	copy(s.studentID[:], opts.StudentID)
	return s, nil
}

// Register installs the handlers, adds the GATT service, starts
// advertising and attaches the button interrupt.
func (s *Service) Register(button hal.IRQPin) error {
	for _, h := range []struct {
		id   dispatch.ActionID
		name string
		fn   dispatch.Handler
	}{
		{ActStudentID, "gatt.student_id", s.sendStudentID},
		{ActButton, "gatt.button", s.updateButton},
		{ActLED, "gatt.led", s.setLED},
		{ActRejectLED, "gatt.led_reject", s.rejectLED},
	} {
		if err := s.disp.Handle(h.id, h.name, h.fn); err != nil {
			return err
		}
	}

	// The LED starts on, as does its characteristic.
	s.led.Set(true)
	err := s.stack.AddService(&bluetooth.Service{
		UUID: ServiceUUID,
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				Handle: &s.idChar,
				UUID:   StudentIDUUID,
				Value:  append([]byte(nil), s.studentID[:]...),
				Flags:  bluetooth.CharacteristicReadPermission,
			},
			{
				Handle: &s.buttonChar,
				UUID:   ButtonUUID,
				Value:  []byte{0},
				Flags:  rwni,
			},
			{
				Handle:     &s.ledChar,
				UUID:       LEDUUID,
				Value:      []byte{1},
				Flags:      rwni,
				WriteEvent: s.ledWritten,
			},
		},
	})
	if err != nil {
		return errcode.Wrap(errcode.Error, "gattbutton.AddService", err)
	}
	s.id = s.stack.Value(&s.idChar)
	s.button = s.stack.Value(&s.buttonChar)
	s.ledVal = s.stack.Value(&s.ledChar)
	s.log.Info("button service registered")

	if err := s.stack.Advertise(s.opts.LocalName, ServiceUUID); err != nil {
		return errcode.Wrap(errcode.Error, "gattbutton.Advertise", err)
	}

	dc := s.opts.Debounce
	dc.OnHigh = dispatch.Item(ActButton, 1)
	dc.OnLow = dispatch.Item(ActButton, 0)
	in, err := gpioirq.Register("gatt-button", button, s.opts.ActiveLow, dc, s.disp)
	if err != nil {
		return err
	}
	s.input = in
	return nil
}

// Run submits the student id refresh every IDInterval until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	s.disp.Every(ctx, s.opts.IDInterval, dispatch.Item(ActStudentID, 0))
	<-ctx.Done()
	return nil
}

// AuthorizeLEDWrite validates a write to the LED characteristic and
// returns the ATT error code, or 0 when the write is accepted.
func AuthorizeLEDWrite(offset int, value []byte) uint8 {
	if offset != 0 {
		return ATTInvalidOffset
	}
	if len(value) != 1 {
		return ATTInvalidAttValLength
	}
	return 0
}

// ledWritten runs in the BLE stack's callback context.
func (s *Service) ledWritten(_ bluetooth.Connection, offset int, value []byte) {
	if code := AuthorizeLEDWrite(offset, value); code != 0 {
		s.disp.SubmitFromInterrupt(dispatch.Item(ActRejectLED, int32(code)))
		return
	}
	s.disp.SubmitFromInterrupt(dispatch.Item(ActLED, dispatch.BoolArg(value[0] != 0)))
}

func (s *Service) sendStudentID(int32) error {
	if _, err := s.id.Write(s.studentID[:]); err != nil {
		return err
	}
	s.idWrites++
	return nil
}

func (s *Service) updateButton(arg int32) error {
	pressed := arg != 0
	s.publish(bus.T("button", "state"), pressed)
	if _, err := s.button.Write([]byte{byte(arg)}); err != nil {
		s.log.Warn("write of the button value failed", "err", err)
		return err
	}
	return nil
}

func (s *Service) setLED(arg int32) error {
	on := arg != 0
	s.led.Set(on)
	s.log.Info("led written", "on", on)
	s.publish(bus.T("led", "state"), on)
	return nil
}

// rejectLED restores the characteristic to the real LED state.
func (s *Service) rejectLED(arg int32) error {
	s.rejected++
	code := errcode.InvalidAttValLength
	if uint8(arg) == ATTInvalidOffset {
		code = errcode.InvalidOffset
	}
	s.log.Warn("led write refused", "att_err", uint8(arg), "code", code)
	_, err := s.ledVal.Write([]byte{byte(dispatch.BoolArg(s.led.Get()))})
	return err
}

func (s *Service) publish(t bus.Topic, v bool) {
	if s.conn != nil {
		s.conn.Publish(s.conn.NewMessage(t, v, true))
	}
}

// Counters returns student-id writes and refused LED writes. Consumer
// context only.
func (s *Service) Counters() (idWrites, rejected uint32) { return s.idWrites, s.rejected }

func (s *Service) Input() *gpioirq.Input { return s.input }
