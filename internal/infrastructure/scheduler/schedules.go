package scheduler

import (
	"fmt"
	"time"
)

// IntervalSchedule runs a job at a fixed interval.
type IntervalSchedule struct {
	Interval time.Duration
}

// Every creates a schedule that fires at the given interval.
func Every(interval time.Duration) IntervalSchedule {
	return IntervalSchedule{Interval: interval}
}

// Next returns the next run time after t.
func (s IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.Interval)
}

// String returns a human-readable representation.
func (s IntervalSchedule) String() string {
	return fmt.Sprintf("@every %s", s.Interval)
}

// DailySchedule runs a job once per day at a fixed local time.
type DailySchedule struct {
	Hour   int
	Minute int
}

// DailyAt creates a schedule that fires every day at hour:minute.
func DailyAt(hour, minute int) DailySchedule {
	return DailySchedule{Hour: hour, Minute: minute}
}

// Next returns the next hour:minute occurrence after t, in t's location.
func (s DailySchedule) Next(t time.Time) time.Time {
	next := time.Date(t.Year(), t.Month(), t.Day(), s.Hour, s.Minute, 0, 0, t.Location())
	if !next.After(t) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// String returns a human-readable representation.
func (s DailySchedule) String() string {
	return fmt.Sprintf("@daily %02d:%02d", s.Hour, s.Minute)
}
