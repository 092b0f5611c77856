// Package timeutil provides calendar-day helpers for the HabitForge engine.
// Streaks, "first completion today" and "perfect day" checks all reason about
// calendar days in the user's timezone, so every day boundary in the codebase
// goes through this package instead of ad-hoc time.Time math.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"time"
)

// DayKeyFormat is the canonical YYYY-MM-DD format used for day keys.
const DayKeyFormat = "2006-01-02"

// DefaultLocation is used when a caller does not supply a timezone.
// The engine stores timestamps in UTC; day math defaults to UTC as well.
var DefaultLocation = time.UTC

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = DefaultLocation
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// EndOfDay returns the last nanosecond of t's calendar day in loc.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	start := StartOfDay(t, loc)
	return start.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// DayKey returns the YYYY-MM-DD key for t's calendar day in loc.
// Used as the idempotency key for feed events and streak history rows.
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = DefaultLocation
	}
	return t.In(loc).Format(DayKeyFormat)
}

// ParseDayKey parses a YYYY-MM-DD key into midnight of that day in loc.
func ParseDayKey(key string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = DefaultLocation
	}
	t, err := time.ParseInLocation(DayKeyFormat, key, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("timeutil: invalid day key %q: %w", key, err)
	}
	return t, nil
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = DefaultLocation
	}
	al, bl := a.In(loc), b.In(loc)
	return al.Year() == bl.Year() && al.YearDay() == bl.YearDay()
}

// DaysBetween returns the number of whole calendar days from a's day to b's
// day in loc. Positive when b is after a, zero for the same day.
func DaysBetween(a, b time.Time, loc *time.Location) int {
	startA := StartOfDay(a, loc)
	startB := StartOfDay(b, loc)
	return int(startB.Sub(startA).Hours() / 24)
}

// Yesterday returns midnight of the day before t in loc.
func Yesterday(t time.Time, loc *time.Location) time.Time {
	return StartOfDay(t, loc).AddDate(0, 0, -1)
}

// IsYesterday reports whether candidate falls on the calendar day
// immediately before reference in loc.
func IsYesterday(candidate, reference time.Time, loc *time.Location) bool {
	return DaysBetween(candidate, reference, loc) == 1
}

// HourOfDay returns t's hour (0-23) in loc. Used by time-of-day achievement
// predicates (early bird, night owl).
func HourOfDay(t time.Time, loc *time.Location) int {
	if loc == nil {
		loc = DefaultLocation
	}
	return t.In(loc).Hour()
}

// StartOfWeek returns Monday 00:00:00 of t's week in loc.
func StartOfWeek(t time.Time, loc *time.Location) time.Time {
	local := StartOfDay(t, loc)
	weekday := int(local.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	return local.AddDate(0, 0, -(weekday - 1))
}

// FormatClock formats t as HH:MM in loc for human-readable notifications.
func FormatClock(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = DefaultLocation
	}
	return t.In(loc).Format("15:04")
}

// LoadLocation resolves an IANA timezone name, falling back to
// DefaultLocation on empty input.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return DefaultLocation, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timeutil: unknown timezone %q: %w", name, err)
	}
	return loc, nil
}
