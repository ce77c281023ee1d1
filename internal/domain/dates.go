package domain

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date form used by date-only fields.
const DateLayout = "2006-01-02"

// Day returns the calendar date of s, which may be a date or an RFC 3339
// instant. Instants keep the calendar date they were written with, so a
// value never drifts across a timezone boundary. Returns "" when s has no
// leading date.
func Day(s string) string {
	if len(s) < len(DateLayout) {
		return ""
	}
	d := s[:len(DateLayout)]
	if _, err := time.Parse(DateLayout, d); err != nil {
		return ""
	}
	return d
}

// SameDay reports whether a and b fall on the same calendar date.
func SameDay(a, b string) bool {
	da := Day(a)
	return da != "" && da == Day(b)
}

// ParseDay parses the calendar date of s at midnight UTC.
func ParseDay(s string) (time.Time, error) {
	d := Day(s)
	if d == "" {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return time.Parse(DateLayout, d)
}

// FormatDay formats t's calendar date in t's own location.
func FormatDay(t time.Time) string {
	return t.Format(DateLayout)
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// Timestamp formats an instant for timestamp fields.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
