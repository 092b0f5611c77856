package gamification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitforge/habitforge/internal/domain/habit"
	"github.com/habitforge/habitforge/internal/domain/shared"
)

// stubHistory returns a fixed set of completions regardless of arguments.
type stubHistory struct {
	completions []*habit.Completion
	err         error
}

func (s *stubHistory) ListRecent(_ context.Context, _ shared.HabitID, _ shared.UserID, _ int) ([]*habit.Completion, error) {
	return s.completions, s.err
}

func completionAt(t time.Time) *habit.Completion {
	return &habit.Completion{
		ID:          "c-" + t.Format("2006-01-02-15-04"),
		HabitID:     "habit-1",
		UserID:      "user-1",
		CompletedAt: t,
	}
}

func TestComputeStreak_NoPriorHistory(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	calc := NewStreakCalculator(&stubHistory{
		completions: []*habit.Completion{completionAt(now)},
	}, time.UTC)

	streak, err := calc.ComputeStreak(context.Background(), "habit-1", "user-1", now)
	require.NoError(t, err)
	assert.Equal(t, 1, streak)
}

func TestComputeStreak_ConsecutiveDays(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	calc := NewStreakCalculator(&stubHistory{
		completions: []*habit.Completion{
			completionAt(now),
			completionAt(now.AddDate(0, 0, -1)),
			completionAt(now.AddDate(0, 0, -2)),
		},
	}, time.UTC)

	streak, err := calc.ComputeStreak(context.Background(), "habit-1", "user-1", now)
	require.NoError(t, err)
	assert.Equal(t, 3, streak)
}

func TestComputeStreak_GapBreaksStreak(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	calc := NewStreakCalculator(&stubHistory{
		completions: []*habit.Completion{
			completionAt(now),
			completionAt(now.AddDate(0, 0, -1)),
			// Gap on day -2; this row must not count.
			completionAt(now.AddDate(0, 0, -3)),
		},
	}, time.UTC)

	streak, err := calc.ComputeStreak(context.Background(), "habit-1", "user-1", now)
	require.NoError(t, err)
	assert.Equal(t, 2, streak)
}

func TestComputeStreak_MultipleCompletionsSameDayCountOnce(t *testing.T) {
	now := time.Date(2026, 8, 28, 20, 0, 0, 0, time.UTC)
	calc := NewStreakCalculator(&stubHistory{
		completions: []*habit.Completion{
			completionAt(now),
			completionAt(now.Add(-2 * time.Hour)),
			completionAt(now.Add(-5 * time.Hour)),
			completionAt(now.AddDate(0, 0, -1)),
		},
	}, time.UTC)

	streak, err := calc.ComputeStreak(context.Background(), "habit-1", "user-1", now)
	require.NoError(t, err)
	assert.Equal(t, 2, streak)
}

func TestComputeStreak_TimezoneBoundary(t *testing.T) {
	// 23:30 UTC yesterday and 00:30 UTC today are the same calendar day in
	// UTC-5, so in that zone the two rows are one day, not two.
	nyc := time.FixedZone("UTC-5", -5*60*60)
	now := time.Date(2026, 8, 28, 0, 30, 0, 0, time.UTC)

	history := &stubHistory{
		completions: []*habit.Completion{
			completionAt(now),
			completionAt(time.Date(2026, 8, 27, 23, 30, 0, 0, time.UTC)),
		},
	}

	utcCalc := NewStreakCalculator(history, time.UTC)
	streak, err := utcCalc.ComputeStreak(context.Background(), "habit-1", "user-1", now)
	require.NoError(t, err)
	assert.Equal(t, 2, streak)

	nycCalc := NewStreakCalculator(history, nyc)
	streak, err = nycCalc.ComputeStreak(context.Background(), "habit-1", "user-1", now)
	require.NoError(t, err)
	assert.Equal(t, 1, streak)
}

func TestComputeStreak_HistoryError(t *testing.T) {
	calc := NewStreakCalculator(&stubHistory{err: assert.AnError}, time.UTC)

	_, err := calc.ComputeStreak(context.Background(), "habit-1", "user-1", time.Now())
	assert.Error(t, err)
}
