package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIntervalSchedule(t *testing.T) {
	s := Every(15 * time.Minute)
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, now.Add(15*time.Minute), s.Next(now))
	assert.Equal(t, "@every 15m0s", s.String())
}

func TestDailySchedule_BeforeFireTime(t *testing.T) {
	s := DailyAt(8, 30)
	now := time.Date(2026, 8, 28, 6, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 8, 28, 8, 30, 0, 0, time.UTC), s.Next(now))
}

func TestDailySchedule_AfterFireTime(t *testing.T) {
	s := DailyAt(8, 30)
	now := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 8, 29, 8, 30, 0, 0, time.UTC), s.Next(now))
}

func TestDailySchedule_ExactlyAtFireTime(t *testing.T) {
	// Firing exactly at hh:mm schedules tomorrow, not a tight loop today.
	s := DailyAt(8, 30)
	now := time.Date(2026, 8, 28, 8, 30, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 8, 29, 8, 30, 0, 0, time.UTC), s.Next(now))
}

func TestDailySchedule_UsesLocation(t *testing.T) {
	almaty := time.FixedZone("UTC+5", 5*60*60)
	s := DailyAt(8, 0)
	now := time.Date(2026, 8, 28, 6, 0, 0, 0, almaty)

	next := s.Next(now)
	assert.Equal(t, almaty, next.Location())
	assert.Equal(t, 8, next.Hour())
}

func TestDailySchedule_String(t *testing.T) {
	assert.Equal(t, "@daily 08:05", DailyAt(8, 5).String())
}
