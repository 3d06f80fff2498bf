// Package engine owns the alarm firing state machine: a once-per-second
// poll feeding the fire matcher, and a single Idle/Ringing session with
// auto-stop and snooze. All transitions are serialized through one mutex;
// a session generation counter turns stale auto-stop timers into no-ops.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rjwilson47/AutostopAlarms/internal/alarm"
	"github.com/rjwilson47/AutostopAlarms/internal/audio"
	"github.com/rjwilson47/AutostopAlarms/internal/notify"
	"github.com/rjwilson47/AutostopAlarms/internal/store"
)

// DefaultSnoozeOffset is how far in the future a snooze-derived alarm is set.
const DefaultSnoozeOffset = 5 * time.Minute

// previewDuration is the length of a sound-selection preview.
const previewDuration = 2 * time.Second

var (
	// ErrNotRinging is returned for session operations that need an active
	// ringing session.
	ErrNotRinging = errors.New("engine: no alarm is ringing")
	// ErrSnoozeDisabled is returned when the ringing alarm does not offer
	// snooze.
	ErrSnoozeDisabled = errors.New("engine: snooze disabled for this alarm")
)

// Sink is the audio output the engine rings through. It is exclusively
// owned: Play replaces whatever was playing, Stop releases the claim.
type Sink interface {
	Play(pcm []byte, loop bool) error
	Stop()
}

// Announcer broadcasts a firing to an out-of-process channel.
type Announcer interface {
	Announce(r alarm.Record, at time.Time) error
}

// Options configures an Engine beyond its required collaborators.
type Options struct {
	// SnoozeOffset defaults to DefaultSnoozeOffset when zero.
	SnoozeOffset time.Duration
	// Assets maps a sound profile name to a custom WAV file path. A missing
	// or unloadable asset falls back to the synthesized profile.
	Assets map[string]string
	// Announcer, if set, is notified of every firing (fire-and-forget).
	Announcer Announcer
}

// Engine drives the firing session. One Engine runs per process.
type Engine struct {
	store store.Store
	sched notify.Scheduler
	sink  Sink
	log   *zap.Logger
	opts  Options

	// Injected time sources. Tests replace these.
	now       func() time.Time
	afterFunc func(d time.Duration, f func()) *time.Timer

	mu       sync.Mutex
	ringing  bool
	subject  alarm.Record
	gen      uint64
	deadline *time.Timer
	lastTick time.Time
}

// New returns an idle Engine.
func New(s store.Store, sched notify.Scheduler, sink Sink, log *zap.Logger, opts Options) *Engine {
	if opts.SnoozeOffset <= 0 {
		opts.SnoozeOffset = DefaultSnoozeOffset
	}
	return &Engine{
		store:     s,
		sched:     sched,
		sink:      sink,
		log:       log,
		opts:      opts,
		now:       time.Now,
		afterFunc: time.AfterFunc,
	}
}

// Run polls once per second until ctx is cancelled, then stops any active
// session.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.StopRinging()
			return
		case <-ticker.C:
			if err := e.Tick(e.now()); err != nil {
				e.log.Warn("tick failed", zap.Error(err))
			}
		}
	}
}

// Tick runs one poll step at now. Ticks are truncated to whole seconds and
// a second is only ever processed once, so a minute boundary cannot fire
// the same alarm twice. Collaborator errors are returned for logging but
// never corrupt session state.
func (e *Engine) Tick(now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	tick := now.Truncate(time.Second)
	if !e.lastTick.IsZero() && !tick.After(e.lastTick) {
		return nil
	}
	e.lastTick = tick

	alarms, err := e.store.List()
	if err != nil {
		return err
	}

	matched := ShouldFire(tick, alarms, e.ringing)
	if matched == nil {
		return nil
	}
	return e.fireLocked(*matched, tick)
}

// fireLocked performs the Idle→Ringing transition. The state change always
// happens; audio and collaborator failures are collected and returned.
func (e *Engine) fireLocked(r alarm.Record, now time.Time) error {
	e.ringing = true
	e.subject = r
	e.gen++

	e.log.Info("alarm firing",
		zap.String("alarm_id", r.ID),
		zap.String("label", r.Label),
		zap.String("time", r.TimeOfDay()))

	var errs []error

	if err := e.sink.Play(e.ringPCM(r), true); err != nil {
		// Ringing state stands even when audio is unavailable.
		errs = append(errs, err)
		e.log.Warn("audio playback failed", zap.String("alarm_id", r.ID), zap.Error(err))
	}

	if after, auto := r.Stop.Automatic(); auto {
		gen := e.gen
		e.deadline = e.afterFunc(after, func() { e.autoStop(gen) })
	}

	if r.OneShot() {
		// First-class side effect, exactly once per firing.
		if err := e.store.SetEnabled(r.ID, false); err != nil {
			errs = append(errs, err)
			e.log.Warn("one-shot disable failed", zap.String("alarm_id", r.ID), zap.Error(err))
		}
		e.sched.Cancel(r.ID)
	} else if at, ok := alarm.NextFire(r, now); ok {
		if err := e.sched.Schedule(r, at); err != nil {
			errs = append(errs, err)
		}
	}

	if e.opts.Announcer != nil {
		rec, at := r, now
		go func() {
			if err := e.opts.Announcer.Announce(rec, at); err != nil {
				e.log.Warn("announce failed", zap.String("alarm_id", rec.ID), zap.Error(err))
			}
		}()
	}

	return errors.Join(errs...)
}

// ringPCM resolves the audio for a record: configured custom asset first,
// synthesized profile cadence as fallback. Synthesis covers whole cadence
// cycles so the looped buffer repeats cleanly.
func (e *Engine) ringPCM(r alarm.Record) []byte {
	if path, ok := e.opts.Assets[r.Sound]; ok {
		pcm, err := audio.LoadWAV(path)
		if err == nil {
			return pcm
		}
		e.log.Warn("custom asset unavailable, falling back to tone",
			zap.String("sound", r.Sound), zap.String("path", path), zap.Error(err))
	}

	p := audio.Lookup(r.Sound)
	cycle := p.Beep + p.Silence
	n := previewDuration / cycle
	if n < 1 {
		n = 1
	}
	return audio.GeneratePCM(p, n*cycle)
}

// autoStop is the deadline timer callback. A stale generation means the
// session it was armed for already ended: guarded no-op.
func (e *Engine) autoStop(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ringing || gen != e.gen {
		return
	}
	e.log.Info("auto-stop deadline reached", zap.String("alarm_id", e.subject.ID))
	e.stopLocked()
}

// StopRinging ends the active session. Stopping while idle is a no-op.
func (e *Engine) StopRinging() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

func (e *Engine) stopLocked() {
	if e.deadline != nil {
		e.deadline.Stop()
		e.deadline = nil
	}
	if !e.ringing {
		return
	}
	e.sink.Stop()
	e.log.Info("session stopped", zap.String("alarm_id", e.subject.ID))
	e.ringing = false
	e.subject = alarm.Record{}
	e.gen++
}

// Snooze stops the ringing session and stores a derived one-shot alarm a
// fixed offset in the future. It fails with ErrNotRinging when idle and
// ErrSnoozeDisabled when the subject does not offer snooze.
func (e *Engine) Snooze() (alarm.Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.ringing {
		return alarm.Record{}, ErrNotRinging
	}
	if !e.subject.SnoozeEnabled {
		return alarm.Record{}, ErrSnoozeDisabled
	}

	subject := e.subject
	e.stopLocked()

	now := e.now()
	derived := subject.Snoozed(now, e.opts.SnoozeOffset)
	if err := e.store.Upsert(derived); err != nil {
		return alarm.Record{}, err
	}
	if at, ok := alarm.NextFire(derived, now); ok {
		if err := e.sched.Schedule(derived, at); err != nil {
			e.log.Warn("snooze notification scheduling failed",
				zap.String("alarm_id", derived.ID), zap.Error(err))
		}
	}

	e.log.Info("alarm snoozed",
		zap.String("alarm_id", subject.ID),
		zap.String("snooze_id", derived.ID),
		zap.Duration("offset", e.opts.SnoozeOffset))
	return derived, nil
}

// Ringing returns a snapshot of the active session's subject, if any.
func (e *Engine) Ringing() (alarm.Record, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.subject, e.ringing
}

// Preview plays a short non-looped sample of the named sound profile. The
// sink is exclusively owned, so any active session is stopped first (last
// writer wins).
func (e *Engine) Preview(sound string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
	return e.sink.Play(audio.GeneratePCM(audio.Lookup(sound), previewDuration), false)
}

// RescheduleAll registers a deferred notification for every enabled alarm's
// next fire instant and cancels pending ones for disabled alarms. Called at
// daemon startup and after collection edits.
func (e *Engine) RescheduleAll() error {
	alarms, err := e.store.List()
	if err != nil {
		return err
	}
	now := e.now()
	for _, r := range alarms {
		if !r.Enabled {
			e.sched.Cancel(r.ID)
			continue
		}
		at, ok := alarm.NextFire(r, now)
		if !ok {
			continue
		}
		if err := e.sched.Schedule(r, at); err != nil {
			e.log.Warn("notification scheduling failed",
				zap.String("alarm_id", r.ID), zap.Error(err))
		}
	}
	return nil
}
