package debounce

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"irqdemo-go/dispatch"
)

const (
	actPress   dispatch.ActionID = 1
	actRelease dispatch.ActionID = 2
)

// fakeSubmitter records submissions; capacity < 0 means unbounded.
type fakeSubmitter struct {
	mu       sync.Mutex
	items    []dispatch.WorkItem
	capacity int
}

func (f *fakeSubmitter) SubmitFromInterrupt(it dispatch.WorkItem) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.capacity >= 0 && len(f.items) >= f.capacity {
		return false
	}
	f.items = append(f.items, it)
	return true
}

func (f *fakeSubmitter) actions() []dispatch.ActionID {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]dispatch.ActionID, 0, len(f.items))
	for _, it := range f.items {
		out = append(out, it.Action)
	}
	return out
}

type fakeLine struct {
	masked  bool
	masks   int
	unmasks int
}

func (l *fakeLine) Mask()   { l.masked = true; l.masks++ }
func (l *fakeLine) Unmask() { l.masked = false; l.unmasks++ }

type rig struct {
	clk  *ManualClock
	sub  *fakeSubmitter
	line *fakeLine
	d    *Debouncer
	pin  bool
}

func newRig(t *testing.T, policy Policy, window time.Duration, withLevel bool) *rig {
	t.Helper()
	r := &rig{
		clk:  NewManualClock(),
		sub:  &fakeSubmitter{capacity: -1},
		line: &fakeLine{},
	}
	cfg := Config{
		Window: window,
		Policy: policy,
		OnHigh: dispatch.Item(actPress, 1),
		OnLow:  dispatch.Item(actRelease, 0),
		Clock:  r.clk,
	}
	if withLevel {
		cfg.Level = func() bool { return r.pin }
	}
	d, err := New(cfg, r.sub, r.line)
	require.NoError(t, err)
	r.d = d
	return r
}

// edge moves the simulated pin and reports it as the ISR would.
func (r *rig) edge(at time.Duration, level bool) {
	r.clk.AdvanceTo(at)
	r.pin = level
	r.d.Edge(level)
}

func TestFixedWindowBounceScenario(t *testing.T) {
	r := newRig(t, FixedWindow, 50*time.Millisecond, true)

	r.edge(0, true)
	require.Equal(t, Settling, r.d.State())
	require.True(t, r.line.masked)
	require.Equal(t, []dispatch.ActionID{actPress}, r.sub.actions())

	// Bounce train while masked; the input settles pressed.
	r.edge(5*time.Millisecond, false)
	r.edge(12*time.Millisecond, true)
	r.edge(30*time.Millisecond, true)

	assert.Equal(t, []dispatch.ActionID{actPress}, r.sub.actions(), "no work item for bounces")
	assert.Equal(t, 0, r.line.unmasks, "line must stay masked while settling")
	assert.Equal(t, Settling, r.d.State())

	r.clk.AdvanceTo(49 * time.Millisecond)
	assert.Equal(t, Settling, r.d.State())

	r.clk.AdvanceTo(50 * time.Millisecond)
	assert.Equal(t, Idle, r.d.State())
	assert.False(t, r.line.masked)
	assert.Equal(t, 1, r.line.unmasks)

	st := r.d.Stats()
	assert.Equal(t, uint32(1), st.Accepted)
	assert.Equal(t, uint32(3), st.Spurious)
	assert.Equal(t, uint32(0), st.Bounces)
}

func TestBounceTrainProducesOnePress(t *testing.T) {
	for _, policy := range []Policy{FixedWindow, ResetOnBounce} {
		t.Run(policy.String(), func(t *testing.T) {
			r := newRig(t, policy, 20*time.Millisecond, true)
			level := true
			for i := 0; i < 9; i++ {
				r.edge(time.Duration(i)*time.Millisecond, level)
				level = !level
			}
			// Train ends pressed.
			r.edge(9*time.Millisecond, true)
			r.clk.Advance(100 * time.Millisecond)

			assert.Equal(t, []dispatch.ActionID{actPress}, r.sub.actions())
			assert.Equal(t, Idle, r.d.State())
		})
	}
}

func TestResetOnBounceExtendsWindow(t *testing.T) {
	r := newRig(t, ResetOnBounce, 50*time.Millisecond, false)

	r.edge(0, true)
	assert.False(t, r.line.masked, "reset-on-bounce keeps the line live")
	r.edge(30*time.Millisecond, false)
	r.edge(60*time.Millisecond, true)

	r.clk.AdvanceTo(100 * time.Millisecond)
	assert.Equal(t, Settling, r.d.State(), "window restarted at 60ms")
	r.clk.AdvanceTo(110 * time.Millisecond)
	assert.Equal(t, Idle, r.d.State())

	st := r.d.Stats()
	assert.Equal(t, uint32(2), st.Bounces)
	assert.Equal(t, uint32(1), st.Accepted)
	assert.Equal(t, 0, r.line.masks)
}

func TestReleaseHiddenInWindowIsReconciled(t *testing.T) {
	r := newRig(t, FixedWindow, 50*time.Millisecond, true)

	// Press accepted, then a real release arrives while the line is masked.
	r.edge(0, true)
	r.edge(20*time.Millisecond, false)

	r.clk.AdvanceTo(50 * time.Millisecond)
	assert.Equal(t, []dispatch.ActionID{actPress, actRelease}, r.sub.actions())
	assert.Equal(t, Settling, r.d.State(), "reconciled release opens a new window")
	assert.False(t, r.d.Level())

	r.clk.AdvanceTo(100 * time.Millisecond)
	assert.Equal(t, Idle, r.d.State())
	assert.Equal(t, 1, r.line.unmasks)
}

func TestWithoutLevelSamplerHiddenReleaseIsDropped(t *testing.T) {
	r := newRig(t, FixedWindow, 50*time.Millisecond, false)
	r.edge(0, true)
	r.edge(20*time.Millisecond, false)
	r.clk.AdvanceTo(60 * time.Millisecond)

	assert.Equal(t, []dispatch.ActionID{actPress}, r.sub.actions())
	assert.True(t, r.d.Level())
	assert.Equal(t, Idle, r.d.State())
}

func TestSameLevelEdgeInIdleIsSpurious(t *testing.T) {
	r := newRig(t, FixedWindow, 10*time.Millisecond, false)
	r.edge(0, false) // Initial is false already
	assert.Empty(t, r.sub.actions())
	assert.Equal(t, Idle, r.d.State())
	assert.Equal(t, uint32(1), r.d.Stats().Spurious)
}

func TestPressReleaseSequence(t *testing.T) {
	r := newRig(t, FixedWindow, 10*time.Millisecond, true)
	r.edge(0, true)
	r.edge(30*time.Millisecond, false)
	r.edge(60*time.Millisecond, true)
	r.edge(90*time.Millisecond, false)
	r.clk.Advance(time.Second)

	assert.Equal(t,
		[]dispatch.ActionID{actPress, actRelease, actPress, actRelease},
		r.sub.actions())
	assert.Equal(t, 4, r.line.masks)
	assert.Equal(t, 4, r.line.unmasks)
}

func TestStopAbandonsWindow(t *testing.T) {
	r := newRig(t, FixedWindow, 50*time.Millisecond, true)
	r.edge(0, true)
	r.d.Stop()
	assert.Equal(t, Idle, r.d.State())

	r.pin = false
	r.clk.AdvanceTo(100 * time.Millisecond)
	r.edge(120*time.Millisecond, false)

	assert.Equal(t, []dispatch.ActionID{actPress}, r.sub.actions())
	assert.Equal(t, 0, r.line.unmasks)
}

func TestFullDispatcherCountsLost(t *testing.T) {
	r := newRig(t, FixedWindow, 10*time.Millisecond, false)
	r.sub.capacity = 0
	r.edge(0, true)
	st := r.d.Stats()
	assert.Equal(t, uint32(1), st.Accepted)
	assert.Equal(t, uint32(1), st.Lost)
}

func TestNewValidates(t *testing.T) {
	_, err := New(Config{}, &fakeSubmitter{}, nil)
	require.Error(t, err)
	_, err = New(Config{Window: time.Millisecond, Policy: 9}, &fakeSubmitter{}, nil)
	require.Error(t, err)

	p, err := ParsePolicy("reset_on_bounce")
	require.NoError(t, err)
	assert.Equal(t, ResetOnBounce, p)
	_, err = ParsePolicy("sticky")
	assert.Error(t, err)
}

func TestSystemClockExpires(t *testing.T) {
	sub := &fakeSubmitter{capacity: -1}
	line := &lockedLine{}
	d, err := New(Config{
		Window: 5 * time.Millisecond,
		OnHigh: dispatch.Item(actPress, 1),
	}, sub, line)
	require.NoError(t, err)

	d.Edge(true)
	require.Eventually(t, func() bool {
		return d.State() == Idle && !line.isMasked()
	}, time.Second, time.Millisecond)
	assert.Equal(t, []dispatch.ActionID{actPress}, sub.actions())
}

type lockedLine struct {
	mu     sync.Mutex
	masked bool
}

func (l *lockedLine) Mask()   { l.mu.Lock(); l.masked = true; l.mu.Unlock() }
func (l *lockedLine) Unmask() { l.mu.Lock(); l.masked = false; l.mu.Unlock() }
func (l *lockedLine) isMasked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.masked
}
