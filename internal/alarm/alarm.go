package alarm

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Weekday is a 1-based weekday code: 1=Sunday … 7=Saturday.
type Weekday int

const (
	Sunday Weekday = iota + 1
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

// WeekdayOf returns the weekday code for t in t's location.
func WeekdayOf(t time.Time) Weekday {
	return Weekday(t.Weekday()) + 1
}

// StopMode describes how a ringing alarm ends: manually, or automatically
// after a fixed duration.
type StopMode struct {
	auto  bool
	after time.Duration
}

// StopManual rings until explicitly stopped.
func StopManual() StopMode {
	return StopMode{}
}

// StopAfter auto-stops the session after d.
func StopAfter(d time.Duration) StopMode {
	return StopMode{auto: true, after: d}
}

// Automatic reports whether the mode is automatic and, if so, the duration
// after which the session stops.
func (m StopMode) Automatic() (time.Duration, bool) {
	return m.after, m.auto
}

func (m StopMode) String() string {
	if m.auto {
		return fmt.Sprintf("auto(%s)", m.after)
	}
	return "manual"
}

// SnoozeSuffix marks labels of snooze-derived records.
const SnoozeSuffix = " (snoozed)"

// Record is one alarm definition. Repeat empty means one-shot: the alarm
// fires once at the next occurrence of Hour:Minute, then disables itself.
type Record struct {
	ID            string
	Hour          int
	Minute        int
	Enabled       bool
	Label         string
	Repeat        []Weekday
	Stop          StopMode
	SnoozeEnabled bool
	Sound         string
}

// New returns an enabled record with a fresh ID and the given wall-clock
// time. The result still needs Validate before it is stored.
func New(hour, minute int, label string) Record {
	return Record{
		ID:      uuid.New().String(),
		Hour:    hour,
		Minute:  minute,
		Enabled: true,
		Label:   label,
	}
}

// Validate rejects records with out-of-range fields. Stores call this
// before accepting a record; the engine never sees an invalid one.
func (r Record) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("alarm: empty id")
	}
	if r.Hour < 0 || r.Hour > 23 {
		return fmt.Errorf("alarm: hour %d out of range [0,23]", r.Hour)
	}
	if r.Minute < 0 || r.Minute > 59 {
		return fmt.Errorf("alarm: minute %d out of range [0,59]", r.Minute)
	}
	seen := make(map[Weekday]bool, len(r.Repeat))
	for _, d := range r.Repeat {
		if d < Sunday || d > Saturday {
			return fmt.Errorf("alarm: weekday code %d out of range [1,7]", d)
		}
		if seen[d] {
			return fmt.Errorf("alarm: duplicate weekday code %d", d)
		}
		seen[d] = true
	}
	if after, auto := r.Stop.Automatic(); auto && after <= 0 {
		return fmt.Errorf("alarm: automatic stop duration must be positive, got %s", after)
	}
	return nil
}

// OneShot reports whether the record fires once and then disables itself.
func (r Record) OneShot() bool {
	return len(r.Repeat) == 0
}

// RepeatsOn reports whether d is in the record's repeat set.
func (r Record) RepeatsOn(d Weekday) bool {
	for _, rd := range r.Repeat {
		if rd == d {
			return true
		}
	}
	return false
}

// TimeOfDay formats the record's wall-clock time as HH:MM.
func (r Record) TimeOfDay() string {
	return fmt.Sprintf("%02d:%02d", r.Hour, r.Minute)
}

// Snoozed derives a one-shot record from r, scheduled offset after now:
// fresh ID, empty repeat set, label suffixed, all other fields copied.
func (r Record) Snoozed(now time.Time, offset time.Duration) Record {
	at := now.Add(offset)
	out := r
	out.ID = uuid.New().String()
	out.Hour = at.Hour()
	out.Minute = at.Minute()
	out.Enabled = true
	out.Repeat = nil
	if !strings.HasSuffix(out.Label, SnoozeSuffix) {
		out.Label += SnoozeSuffix
	}
	return out
}
