// Package reminder schedules one-shot medication reminders as deferred jobs
// and runs the worker that fires them.
package reminder

import (
	"time"

	"github.com/tbourn/elderly-care-backend/internal/validate"
)

const day = 24 * time.Hour

// NextDelay returns how long to wait from now until the next occurrence of
// tod on the wall clock of now's location. A tod that is not strictly later
// today is taken as tomorrow, so the result is always in (0, 24h].
//
//	NextDelay(23:50, 00:05) == 15m
//	NextDelay(08:00, 08:00) == 24h
func NextDelay(now time.Time, tod validate.TimeOfDay) time.Duration {
	h, m, s := now.Clock()
	cur := time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(now.Nanosecond())

	d := tod.Offset() - cur
	if d <= 0 {
		d += day
	}
	return d
}
