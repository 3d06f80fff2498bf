package alarm

import "time"

// NextFire computes the next local instant strictly after now at which r
// triggers, with seconds truncated to zero. For one-shot records this is
// the next occurrence of Hour:Minute (exact-now advances a day: "next",
// never "now"). For repeating records it is the earliest occurrence over
// the repeat set. ok is false only in the defensive case where no candidate
// can be constructed.
func NextFire(r Record, now time.Time) (at time.Time, ok bool) {
	today := time.Date(now.Year(), now.Month(), now.Day(), r.Hour, r.Minute, 0, 0, now.Location())

	if r.OneShot() {
		if today.After(now) {
			return today, true
		}
		return today.AddDate(0, 0, 1), true
	}

	var best time.Time
	for _, d := range r.Repeat {
		c := nextOnWeekday(today, now, d)
		if best.IsZero() || c.Before(best) {
			best = c
		}
	}
	if best.IsZero() {
		return time.Time{}, false
	}
	return best, true
}

// nextOnWeekday returns the first instant strictly after now that falls on
// weekday d with today's wall-clock time-of-day.
func nextOnWeekday(today, now time.Time, d Weekday) time.Time {
	days := int(d-WeekdayOf(now)+7) % 7
	c := today.AddDate(0, 0, days)
	if !c.After(now) {
		c = c.AddDate(0, 0, 7)
	}
	return c
}
