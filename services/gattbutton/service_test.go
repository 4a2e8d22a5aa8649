package gattbutton

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tinygo.org/x/bluetooth"

	"irqdemo-go/debounce"
	"irqdemo-go/dispatch"
	"irqdemo-go/errcode"
	"irqdemo-go/hal"
)

type recValue struct {
	mu     sync.Mutex
	writes [][]byte
}

func (v *recValue) Write(p []byte) (int, error) {
	v.mu.Lock()
	v.writes = append(v.writes, append([]byte(nil), p...))
	v.mu.Unlock()
	return len(p), nil
}

func (v *recValue) last() []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.writes) == 0 {
		return nil
	}
	return v.writes[len(v.writes)-1]
}

type fakeStack struct {
	svc       *bluetooth.Service
	name      string
	advertise []bluetooth.UUID
	values    map[*bluetooth.Characteristic]*recValue
}

func (f *fakeStack) AddService(svc *bluetooth.Service) error {
	f.svc = svc
	f.values = map[*bluetooth.Characteristic]*recValue{}
	for _, c := range svc.Characteristics {
		f.values[c.Handle] = &recValue{}
	}
	return nil
}

func (f *fakeStack) Advertise(name string, uuids ...bluetooth.UUID) error {
	f.name, f.advertise = name, uuids
	return nil
}

func (f *fakeStack) Value(h *bluetooth.Characteristic) Value { return f.values[h] }

// char returns the config and recorded writes of the characteristic with u.
func (f *fakeStack) char(t *testing.T, u bluetooth.UUID) (bluetooth.CharacteristicConfig, *recValue) {
	t.Helper()
	for _, c := range f.svc.Characteristics {
		if c.UUID == u {
			return c, f.values[c.Handle]
		}
	}
	t.Fatalf("characteristic %s not registered", u.String())
	return bluetooth.CharacteristicConfig{}, nil
}

type rig struct {
	disp   *dispatch.Dispatcher
	stack  *fakeStack
	led    *hal.SimPin
	button *hal.SimPin
	clk    *debounce.ManualClock
	svc    *Service
}

func newRig(t *testing.T) *rig {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	d, err := dispatch.New(dispatch.Config{Capacity: 16, Logger: log})
	require.NoError(t, err)
	r := &rig{
		disp:   d,
		stack:  &fakeStack{},
		led:    hal.NewSimPin(25, false),
		button: hal.NewSimPin(14, true),
		clk:    debounce.NewManualClock(),
	}
	r.svc, err = New(d, r.stack, r.led, nil, log, Options{
		LocalName: "GattButton",
		StudentID: "B07901184",
		Debounce:  debounce.Config{Window: 50 * time.Millisecond, Clock: r.clk},
		ActiveLow: true,
	})
	require.NoError(t, err)
	require.NoError(t, r.svc.Register(r.button))
	return r
}

func TestServiceLayout(t *testing.T) {
	r := newRig(t)
	assert.Equal(t, ServiceUUID, r.stack.svc.UUID)
	require.Len(t, r.stack.svc.Characteristics, 3)
	assert.Equal(t, "GattButton", r.stack.name)
	assert.Equal(t, []bluetooth.UUID{ServiceUUID}, r.stack.advertise)

	id, _ := r.stack.char(t, StudentIDUUID)
	assert.Equal(t, []byte("B07901184\x00"), id.Value)
	assert.Equal(t, bluetooth.CharacteristicReadPermission, id.Flags)

	led, _ := r.stack.char(t, LEDUUID)
	assert.Equal(t, []byte{1}, led.Value)
	assert.Equal(t, rwni, led.Flags)
	assert.NotNil(t, led.WriteEvent)
	assert.True(t, r.led.Get(), "led starts on")
}

func TestStudentIDRewrittenPeriodically(t *testing.T) {
	r := newRig(t)
	for i := 0; i < 3; i++ {
		require.True(t, r.disp.SubmitFromInterrupt(dispatch.Item(ActStudentID, 0)))
	}
	r.disp.DispatchPending()

	_, v := r.stack.char(t, StudentIDUUID)
	assert.Len(t, v.writes, 3)
	assert.Equal(t, []byte("B07901184\x00"), v.last())
	n, _ := r.svc.Counters()
	assert.Equal(t, uint32(3), n)
}

func TestButtonEdgesUpdateCharacteristic(t *testing.T) {
	r := newRig(t)
	_, v := r.stack.char(t, ButtonUUID)

	r.button.Set(false)
	r.disp.DispatchPending()
	assert.Equal(t, []byte{1}, v.last())

	r.clk.Advance(50 * time.Millisecond)
	r.button.Set(true)
	r.disp.DispatchPending()
	assert.Equal(t, []byte{0}, v.last())
	assert.Len(t, v.writes, 2)
}

func TestLEDWriteAuthorization(t *testing.T) {
	assert.Equal(t, ATTInvalidOffset, AuthorizeLEDWrite(1, []byte{1}))
	assert.Equal(t, ATTInvalidAttValLength, AuthorizeLEDWrite(0, []byte{1, 0}))
	assert.Equal(t, ATTInvalidAttValLength, AuthorizeLEDWrite(0, nil))
	assert.Equal(t, uint8(0), AuthorizeLEDWrite(0, []byte{7}))
}

func TestLEDWritesAreDeferred(t *testing.T) {
	r := newRig(t)
	led, v := r.stack.char(t, LEDUUID)
	var conn bluetooth.Connection

	led.WriteEvent(conn, 0, []byte{0})
	assert.True(t, r.led.Get(), "LED changes only on the dispatcher")
	r.disp.DispatchPending()
	assert.False(t, r.led.Get())

	led.WriteEvent(conn, 0, []byte{0x42})
	r.disp.DispatchPending()
	assert.True(t, r.led.Get())

	// Refused writes leave the LED alone and restore the value.
	led.WriteEvent(conn, 2, []byte{0})
	led.WriteEvent(conn, 0, []byte{0, 0})
	r.disp.DispatchPending()
	assert.True(t, r.led.Get())
	assert.Equal(t, []byte{1}, v.last())
	_, rejected := r.svc.Counters()
	assert.Equal(t, uint32(2), rejected)
	assert.Equal(t, uint32(0), r.disp.Stats().Failed)
}

func TestNewRejectsLongStudentID(t *testing.T) {
	_, err := New(nil, &fakeStack{}, hal.NewSimPin(1, false), nil, nil, Options{StudentID: "B0790118400"})
	assert.Equal(t, errcode.InvalidParams, errcode.Of(err))
}
