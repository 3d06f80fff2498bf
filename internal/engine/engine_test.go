package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rjwilson47/AutostopAlarms/internal/alarm"
	"github.com/rjwilson47/AutostopAlarms/internal/store"
)

// fakeSink records Play/Stop calls.
type fakeSink struct {
	mu      sync.Mutex
	playing bool
	loops   []bool
	plays   int
	stops   int
	failing bool
}

func (f *fakeSink) Play(pcm []byte, loop bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays++
	f.loops = append(f.loops, loop)
	if f.failing {
		return assert.AnError
	}
	f.playing = true
	return nil
}

func (f *fakeSink) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	f.playing = false
}

// fakeScheduler records scheduled and cancelled alarm IDs.
type fakeScheduler struct {
	mu        sync.Mutex
	scheduled map[string]time.Time
	cancelled []string
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{scheduled: make(map[string]time.Time)}
}

func (f *fakeScheduler) Schedule(r alarm.Record, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled[r.ID] = at
	return nil
}

func (f *fakeScheduler) Cancel(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.scheduled, id)
	f.cancelled = append(f.cancelled, id)
}

// testEngine wires an Engine with fakes, a fixed clock, and a manual
// auto-stop timer trigger.
type testEngine struct {
	*Engine
	sink  *fakeSink
	sched *fakeScheduler
	store *store.MemoryStore

	mu        sync.Mutex
	deadlines []func()
}

func newTestEngine(t *testing.T, opts Options) *testEngine {
	t.Helper()
	te := &testEngine{
		sink:  &fakeSink{},
		sched: newFakeScheduler(),
		store: store.NewMemoryStore(),
	}
	te.Engine = New(te.store, te.sched, te.sink, zap.NewNop(), opts)
	te.Engine.afterFunc = func(d time.Duration, f func()) *time.Timer {
		te.mu.Lock()
		te.deadlines = append(te.deadlines, f)
		te.mu.Unlock()
		// Parked far in the future; tests fire deadlines by hand.
		return time.AfterFunc(24*time.Hour, func() {})
	}
	return te
}

// fireDeadline invokes the most recently armed auto-stop callback.
func (te *testEngine) fireDeadline(t *testing.T) {
	t.Helper()
	te.mu.Lock()
	require.NotEmpty(t, te.deadlines, "no auto-stop deadline armed")
	f := te.deadlines[len(te.deadlines)-1]
	te.mu.Unlock()
	f()
}

func at(hour, minute, second int) time.Time {
	// 2025-01-06 is a Monday.
	return time.Date(2025, 1, 6, hour, minute, second, 0, time.Local)
}

func oneShot(hour, minute int, label string) alarm.Record {
	r := alarm.New(hour, minute, label)
	r.Sound = "Standard"
	return r
}

func TestTickFiresMatchingAlarm(t *testing.T) {
	te := newTestEngine(t, Options{})
	r := oneShot(8, 0, "wake")
	require.NoError(t, te.store.Upsert(r))

	require.NoError(t, te.Tick(at(8, 0, 0)))

	subject, ringing := te.Ringing()
	assert.True(t, ringing)
	assert.Equal(t, r.ID, subject.ID)
	assert.Equal(t, 1, te.sink.plays)
	assert.Equal(t, []bool{true}, te.sink.loops, "ring playback must loop")
}

func TestTickIgnoresNonZeroSecond(t *testing.T) {
	te := newTestEngine(t, Options{})
	require.NoError(t, te.store.Upsert(oneShot(8, 0, "wake")))

	require.NoError(t, te.Tick(at(8, 0, 30)))
	_, ringing := te.Ringing()
	assert.False(t, ringing)
}

func TestTickSameSecondProcessedOnce(t *testing.T) {
	te := newTestEngine(t, Options{})
	r := oneShot(8, 0, "wake")
	r.SnoozeEnabled = true
	require.NoError(t, te.store.Upsert(r))

	now := at(8, 0, 0)
	require.NoError(t, te.Tick(now))
	te.StopRinging()

	// A duplicate tick within the same second must not re-fire.
	require.NoError(t, te.Tick(now.Add(500*time.Millisecond)))
	_, ringing := te.Ringing()
	assert.False(t, ringing)
	assert.Equal(t, 1, te.sink.plays)
}

func TestOneShotDisabledExactlyOnce(t *testing.T) {
	te := newTestEngine(t, Options{})
	r := oneShot(8, 0, "once")
	require.NoError(t, te.store.Upsert(r))

	require.NoError(t, te.Tick(at(8, 0, 0)))

	got, err := te.store.Get(r.ID)
	require.NoError(t, err)
	assert.False(t, got.Enabled, "one-shot must auto-disable on fire")
	assert.Contains(t, te.sched.cancelled, r.ID, "pending backstop notification must be cancelled")

	// Next minute: the disabled record must not fire again.
	te.StopRinging()
	require.NoError(t, te.Tick(at(8, 1, 0)))
	_, ringing := te.Ringing()
	assert.False(t, ringing)
}

func TestRepeatingAlarmStaysEnabled(t *testing.T) {
	te := newTestEngine(t, Options{})
	r := oneShot(8, 0, "weekly")
	r.Repeat = []alarm.Weekday{alarm.Monday}
	require.NoError(t, te.store.Upsert(r))

	require.NoError(t, te.Tick(at(8, 0, 0)))

	got, err := te.store.Get(r.ID)
	require.NoError(t, err)
	assert.True(t, got.Enabled)
	// Its next occurrence is rescheduled with the backstop.
	assert.Contains(t, te.sched.scheduled, r.ID)
}

func TestStopWhileIdleIsNoOp(t *testing.T) {
	te := newTestEngine(t, Options{})
	te.StopRinging()
	te.StopRinging()
	_, ringing := te.Ringing()
	assert.False(t, ringing)
	assert.Equal(t, 0, te.sink.stops)
}

func TestAutoStopScenario(t *testing.T) {
	// Alarm 08:00, one-shot, automatic(20s): fires at 08:00:00, rings,
	// and after the deadline the session is idle and the record disabled.
	te := newTestEngine(t, Options{})
	r := oneShot(8, 0, "auto")
	r.Stop = alarm.StopAfter(20 * time.Second)
	require.NoError(t, te.store.Upsert(r))

	require.NoError(t, te.Tick(at(8, 0, 0)))
	_, ringing := te.Ringing()
	require.True(t, ringing)

	te.fireDeadline(t)

	_, ringing = te.Ringing()
	assert.False(t, ringing)
	assert.Equal(t, 1, te.sink.stops)

	got, err := te.store.Get(r.ID)
	require.NoError(t, err)
	assert.False(t, got.Enabled)
}

func TestStaleDeadlineIsGuardedNoOp(t *testing.T) {
	te := newTestEngine(t, Options{})
	r := oneShot(8, 0, "first")
	r.Stop = alarm.StopAfter(20 * time.Second)
	require.NoError(t, te.store.Upsert(r))

	require.NoError(t, te.Tick(at(8, 0, 0)))
	te.StopRinging()

	// A second alarm rings; the first session's timer fires late.
	r2 := oneShot(8, 1, "second")
	require.NoError(t, te.store.Upsert(r2))
	require.NoError(t, te.Tick(at(8, 1, 0)))

	te.fireDeadline(t) // replay the stale callback from the first session

	subject, ringing := te.Ringing()
	assert.True(t, ringing, "stale timer must not stop a newer session")
	assert.Equal(t, r2.ID, subject.ID)
}

func TestSnoozeDerivesOneShot(t *testing.T) {
	te := newTestEngine(t, Options{})
	r := oneShot(8, 0, "snoozable")
	r.SnoozeEnabled = true
	require.NoError(t, te.store.Upsert(r))

	now := at(8, 0, 0)
	te.Engine.now = func() time.Time { return now }
	require.NoError(t, te.Tick(now))

	derived, err := te.Snooze()
	require.NoError(t, err)

	_, ringing := te.Ringing()
	assert.False(t, ringing, "snooze must stop the session")

	assert.NotEqual(t, r.ID, derived.ID)
	assert.True(t, derived.OneShot())
	assert.Equal(t, 8, derived.Hour)
	assert.Equal(t, 5, derived.Minute)
	assert.Contains(t, derived.Label, "snoozed")

	stored, err := te.store.Get(derived.ID)
	require.NoError(t, err)
	assert.True(t, stored.Enabled)
	assert.Contains(t, te.sched.scheduled, derived.ID)
}

func TestSnoozeRejectedWhenIdle(t *testing.T) {
	te := newTestEngine(t, Options{})
	_, err := te.Snooze()
	assert.ErrorIs(t, err, ErrNotRinging)
}

func TestSnoozeRejectedWhenDisabled(t *testing.T) {
	te := newTestEngine(t, Options{})
	r := oneShot(8, 0, "no snooze")
	require.NoError(t, te.store.Upsert(r))
	require.NoError(t, te.Tick(at(8, 0, 0)))

	_, err := te.Snooze()
	assert.ErrorIs(t, err, ErrSnoozeDisabled)

	_, ringing := te.Ringing()
	assert.True(t, ringing, "rejected snooze must not mutate state")
}

func TestAudioFailureStillRings(t *testing.T) {
	te := newTestEngine(t, Options{})
	te.sink.failing = true
	require.NoError(t, te.store.Upsert(oneShot(8, 0, "silent ring")))

	err := te.Tick(at(8, 0, 0))
	assert.Error(t, err, "audio failure is reported, not swallowed")

	_, ringing := te.Ringing()
	assert.True(t, ringing, "ringing state is independent of audio success")
}

func TestPreviewStopsActiveSession(t *testing.T) {
	te := newTestEngine(t, Options{})
	require.NoError(t, te.store.Upsert(oneShot(8, 0, "ringing")))
	require.NoError(t, te.Tick(at(8, 0, 0)))

	require.NoError(t, te.Preview("Pulse"))

	_, ringing := te.Ringing()
	assert.False(t, ringing, "preview takes over the exclusive sink")
	assert.Equal(t, 2, te.sink.plays)
	assert.False(t, te.sink.loops[1], "preview must not loop")
}

func TestRescheduleAll(t *testing.T) {
	te := newTestEngine(t, Options{})
	enabled := oneShot(8, 0, "on")
	disabled := oneShot(9, 0, "off")
	disabled.Enabled = false
	require.NoError(t, te.store.Upsert(enabled))
	require.NoError(t, te.store.Upsert(disabled))

	te.Engine.now = func() time.Time { return at(7, 0, 0) }
	require.NoError(t, te.RescheduleAll())

	assert.Contains(t, te.sched.scheduled, enabled.ID)
	assert.NotContains(t, te.sched.scheduled, disabled.ID)
	when := te.sched.scheduled[enabled.ID]
	assert.Equal(t, at(8, 0, 0), when)
}
