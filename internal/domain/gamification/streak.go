// Package gamification implements the scoring core of the engine: streak
// calculation, XP bonuses and the level curve, the achievement catalog and
// evaluator, and celebration classification. All functions here are pure or
// read-only over repository interfaces; persistence side effects belong to
// the completion command.
package gamification

import (
	"context"
	"time"

	"github.com/habitforge/habitforge/internal/domain/habit"
	"github.com/habitforge/habitforge/internal/domain/shared"
	"github.com/habitforge/habitforge/pkg/timeutil"
)

// DefaultHistoryBound is how many recent completions the streak walk fetches.
// It is a performance cap, not a correctness cap: a streak longer than the
// bound in rows is undercounted. Raise it if streaks beyond ~100 days matter.
const DefaultHistoryBound = 100

// CompletionHistory is the read surface the streak calculator needs.
// Satisfied by habit.CompletionRepository.
type CompletionHistory interface {
	ListRecent(ctx context.Context, habitID shared.HabitID, userID shared.UserID, limit int) ([]*habit.Completion, error)
}

// StreakCalculator computes consecutive-day streaks from completion history.
type StreakCalculator struct {
	history CompletionHistory
	bound   int
	loc     *time.Location
}

// NewStreakCalculator creates a calculator over the given history.
// A nil location defaults to timeutil.DefaultLocation.
func NewStreakCalculator(history CompletionHistory, loc *time.Location) *StreakCalculator {
	if loc == nil {
		loc = timeutil.DefaultLocation
	}
	return &StreakCalculator{
		history: history,
		bound:   DefaultHistoryBound,
		loc:     loc,
	}
}

// WithHistoryBound overrides the history fetch limit.
func (c *StreakCalculator) WithHistoryBound(bound int) *StreakCalculator {
	if bound > 0 {
		c.bound = bound
	}
	return c
}

// ComputeStreak returns the current consecutive-day streak for (habit, user)
// as of now. It is called immediately after inserting today's completion, so
// the just-inserted row is part of the history and the result is always >= 1.
//
// The walk advances by distinct calendar days, not by row count: several
// completions on the same day count once. A gap of exactly one day breaks
// the streak - there is no grace day.
func (c *StreakCalculator) ComputeStreak(ctx context.Context, habitID shared.HabitID, userID shared.UserID, now time.Time) (int, error) {
	completions, err := c.history.ListRecent(ctx, habitID, userID, c.bound)
	if err != nil {
		return 0, shared.WrapError("gamification", "ComputeStreak", shared.ErrExternalService, "failed to load completion history", err)
	}

	days := make(map[string]struct{}, len(completions))
	for _, comp := range completions {
		days[timeutil.DayKey(comp.CompletedAt, c.loc)] = struct{}{}
	}

	// Today's completion counts as 1 even with no prior history.
	streak := 1
	expected := timeutil.Yesterday(now, c.loc)
	for {
		if _, ok := days[timeutil.DayKey(expected, c.loc)]; !ok {
			break
		}
		streak++
		expected = expected.AddDate(0, 0, -1)
	}

	return streak, nil
}
