package engine

import (
	"time"

	"github.com/rjwilson47/AutostopAlarms/internal/alarm"
)

// ShouldFire decides which alarm, if any, must fire at now. It is a pure
// function: the session controller owns all side effects.
//
// Rules:
//   - nil while a session is already ringing (at most one active session).
//   - nil unless now is exactly on a minute boundary (second == 0); firing
//     resolution is one minute, and the poll loop's whole-second tick guard
//     makes the check idempotent within a minute.
//   - otherwise the first enabled alarm in stored order whose hour and
//     minute equal now's and whose repeat set is empty or contains now's
//     weekday. First-in-order is the defined tie-break when several alarms
//     match the same instant.
func ShouldFire(now time.Time, alarms []alarm.Record, alreadyRinging bool) *alarm.Record {
	if alreadyRinging {
		return nil
	}
	if now.Second() != 0 {
		return nil
	}

	weekday := alarm.WeekdayOf(now)
	for i := range alarms {
		r := &alarms[i]
		if !r.Enabled {
			continue
		}
		if r.Hour != now.Hour() || r.Minute != now.Minute() {
			continue
		}
		if r.OneShot() || r.RepeatsOn(weekday) {
			return r
		}
	}
	return nil
}
