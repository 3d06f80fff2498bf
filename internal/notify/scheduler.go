// Package notify delivers alarm alerts outside the engine's poll loop: a
// timer-backed deferred notification per alarm as a backstop, and an
// optional MQTT announcement when an alarm actually fires. The in-process
// engine stays authoritative while the daemon runs.
package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rjwilson47/AutostopAlarms/internal/alarm"
)

// Scheduler registers a deferred alert for an alarm's next fire instant,
// keyed by the alarm's ID. Scheduling an already-registered ID replaces the
// pending alert.
type Scheduler interface {
	Schedule(r alarm.Record, at time.Time) error
	Cancel(id string)
}

// TimerScheduler implements Scheduler with one time.AfterFunc per alarm.
// When a timer fires it raises a desktop notification carrying the alarm's
// label and formatted time.
type TimerScheduler struct {
	log *zap.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewTimerScheduler returns an empty scheduler logging through log.
func NewTimerScheduler(log *zap.Logger) *TimerScheduler {
	return &TimerScheduler{log: log, timers: make(map[string]*time.Timer)}
}

func (ts *TimerScheduler) Schedule(r alarm.Record, at time.Time) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if t, ok := ts.timers[r.ID]; ok {
		t.Stop()
	}

	id, label, when := r.ID, r.Label, r.TimeOfDay()
	d := time.Until(at)
	if d < 0 {
		d = 0
	}
	ts.timers[id] = time.AfterFunc(d, func() {
		ts.mu.Lock()
		delete(ts.timers, id)
		ts.mu.Unlock()
		if err := Show("Alarm", label+" — "+when); err != nil {
			ts.log.Warn("desktop notification failed",
				zap.String("alarm_id", id), zap.Error(err))
		}
	})
	ts.log.Debug("deferred notification scheduled",
		zap.String("alarm_id", id), zap.Time("at", at))
	return nil
}

func (ts *TimerScheduler) Cancel(id string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if t, ok := ts.timers[id]; ok {
		t.Stop()
		delete(ts.timers, id)
	}
}

// Pending reports whether an alert is registered for id.
func (ts *TimerScheduler) Pending(id string) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	_, ok := ts.timers[id]
	return ok
}

// Close cancels all pending alerts.
func (ts *TimerScheduler) Close() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	for id, t := range ts.timers {
		t.Stop()
		delete(ts.timers, id)
	}
}
