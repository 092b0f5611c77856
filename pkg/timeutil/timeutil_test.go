package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayKey(t *testing.T) {
	ts := time.Date(2026, 8, 28, 23, 45, 0, 0, time.UTC)
	assert.Equal(t, "2026-08-28", DayKey(ts, time.UTC))

	// The same instant is the next day in a UTC+5 zone.
	almaty := time.FixedZone("UTC+5", 5*60*60)
	assert.Equal(t, "2026-08-29", DayKey(ts, almaty))

	// Nil location falls back to the default.
	assert.Equal(t, "2026-08-28", DayKey(ts, nil))
}

func TestParseDayKey(t *testing.T) {
	day, err := ParseDayKey("2026-08-28", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC), day)

	_, err = ParseDayKey("28/08/2026", time.UTC)
	assert.Error(t, err)
}

func TestStartOfDayAndEndOfDay(t *testing.T) {
	ts := time.Date(2026, 8, 28, 15, 30, 45, 123, time.UTC)

	start := StartOfDay(ts, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC), start)

	end := EndOfDay(ts, time.UTC)
	assert.Equal(t, start.AddDate(0, 0, 1).Add(-time.Nanosecond), end)
}

func TestSameDay(t *testing.T) {
	morning := time.Date(2026, 8, 28, 0, 30, 0, 0, time.UTC)
	evening := time.Date(2026, 8, 28, 23, 30, 0, 0, time.UTC)
	nextDay := time.Date(2026, 8, 29, 0, 30, 0, 0, time.UTC)

	assert.True(t, SameDay(morning, evening, time.UTC))
	assert.False(t, SameDay(evening, nextDay, time.UTC))

	// 23:30 UTC and 00:30 UTC next day are the same day in UTC-5.
	nyc := time.FixedZone("UTC-5", -5*60*60)
	assert.True(t, SameDay(evening, nextDay, nyc))
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2026, 8, 28, 23, 0, 0, 0, time.UTC)
	b := time.Date(2026, 8, 29, 1, 0, 0, 0, time.UTC)

	assert.Equal(t, 1, DaysBetween(a, b, time.UTC))
	assert.Equal(t, -1, DaysBetween(b, a, time.UTC))
	assert.Equal(t, 0, DaysBetween(a, a, time.UTC))
}

func TestYesterdayAndIsYesterday(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	y := Yesterday(now, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC), y)

	assert.True(t, IsYesterday(y, now, time.UTC))
	assert.False(t, IsYesterday(now, now, time.UTC))
	assert.False(t, IsYesterday(now.AddDate(0, 0, -2), now, time.UTC))
}

func TestHourOfDay(t *testing.T) {
	ts := time.Date(2026, 8, 28, 6, 59, 0, 0, time.UTC)
	assert.Equal(t, 6, HourOfDay(ts, time.UTC))

	almaty := time.FixedZone("UTC+5", 5*60*60)
	assert.Equal(t, 11, HourOfDay(ts, almaty))
}

func TestStartOfWeek(t *testing.T) {
	// 2026-08-28 is a Friday; the week starts Monday 2026-08-24.
	friday := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), StartOfWeek(friday, time.UTC))

	// Sunday belongs to the week that started the previous Monday.
	sunday := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), StartOfWeek(sunday, time.UTC))
}

func TestLoadLocation(t *testing.T) {
	loc, err := LoadLocation("")
	require.NoError(t, err)
	assert.Equal(t, DefaultLocation, loc)

	_, err = LoadLocation("Not/AZone")
	assert.Error(t, err)
}
