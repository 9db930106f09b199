// Package validate checks user-entered times and dates before they reach the
// store. Instead of returning errors, checks return a Result carrying one of a
// small, closed set of reasons, each with a fixed message suitable for inline
// display next to the input form.
package validate

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/width"
)

// Reason enumerates why an input was accepted or rejected.
type Reason int

const (
	OK Reason = iota
	// Blank means a required free-text field was empty or whitespace.
	Blank
	// MissingTime means no time of day was entered.
	MissingTime
	// BadTimeFormat means the time of day is not HH:mm.
	BadTimeFormat
	// MissingDateOrTime means a note was saved without a date or a time.
	MissingDateOrTime
	// BadDateTimeFormat means a note's date is not yyyy-MM-dd or its time is not HH:mm.
	BadDateTimeFormat
)

var messages = map[Reason]string{
	OK:                "",
	Blank:             "Please fill in all fields",
	MissingTime:       "Please enter a time",
	BadTimeFormat:     "Invalid time format. Use HH:mm (e.g., 14:30)",
	MissingDateOrTime: "Please enter both date and time",
	BadDateTimeFormat: "Invalid format. Use yyyy-MM-dd for date and HH:mm for time",
}

// Message returns the user-facing text for r.
func (r Reason) Message() string { return messages[r] }

func (r Reason) String() string {
	switch r {
	case OK:
		return "ok"
	case Blank:
		return "blank"
	case MissingTime:
		return "missing_time"
	case BadTimeFormat:
		return "bad_time_format"
	case MissingDateOrTime:
		return "missing_date_or_time"
	case BadDateTimeFormat:
		return "bad_date_time_format"
	default:
		return "unknown"
	}
}

// Result is the outcome of validating one form submission.
type Result struct {
	Reason Reason
}

// Valid reports whether the input was well formed.
func (r Result) Valid() bool { return r.Reason == OK }

// Message returns the inline message for an invalid result, or "".
func (r Result) Message() string { return r.Reason.Message() }

// TimeOfDay is a parsed HH:mm value.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// String formats t as HH:mm.
func (t TimeOfDay) String() string {
	return time.Date(0, 1, 1, t.Hour, t.Minute, 0, 0, time.UTC).Format("15:04")
}

// Offset returns the duration from midnight to t.
func (t TimeOfDay) Offset() time.Duration {
	return time.Duration(t.Hour)*time.Hour + time.Duration(t.Minute)*time.Minute
}

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// normalize trims s and folds full-width digits and colons to ASCII.
func normalize(s string) string {
	return strings.TrimSpace(width.Narrow.String(s))
}

// ParseTimeOfDay parses a strict two-digit HH:mm value.
func ParseTimeOfDay(s string) (TimeOfDay, bool) {
	s = normalize(s)
	if len(s) != 5 {
		return TimeOfDay{}, false
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, false
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, true
}

// MedicationTime validates the time entered for a medication reminder.
// On success the parsed time of day is returned alongside an OK result.
func MedicationTime(s string) (TimeOfDay, Result) {
	if normalize(s) == "" {
		return TimeOfDay{}, Result{Reason: MissingTime}
	}
	t, ok := ParseTimeOfDay(s)
	if !ok {
		return TimeOfDay{}, Result{Reason: BadTimeFormat}
	}
	return t, Result{Reason: OK}
}

// NoteDateTime validates a note's date (yyyy-MM-dd shape) and time (HH:mm).
// The date is checked for shape only; it is stored as opaque text.
func NoteDateTime(date, tod string) Result {
	date, tod = normalize(date), normalize(tod)
	if date == "" || tod == "" {
		return Result{Reason: MissingDateOrTime}
	}
	if !datePattern.MatchString(date) {
		return Result{Reason: BadDateTimeFormat}
	}
	if _, ok := ParseTimeOfDay(tod); !ok {
		return Result{Reason: BadDateTimeFormat}
	}
	return Result{Reason: OK}
}

// NotBlank reports OK only when every value has non-whitespace content.
func NotBlank(values ...string) Result {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return Result{Reason: Blank}
		}
	}
	return Result{Reason: OK}
}

// Normalize exposes the folding applied before parsing so callers can store
// the canonical form of accepted input.
func Normalize(s string) string { return normalize(s) }
