// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"
	"time"

	"github.com/habitforge/habitforge/internal/domain/gamification"
	"github.com/habitforge/habitforge/internal/domain/habit"
	"github.com/habitforge/habitforge/internal/domain/shared"
	"github.com/habitforge/habitforge/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// DAILY PROGRESS QUERY
// "How is today going": per-habit completed flags, completion counts, and
// perfect-day progress. This is what the home screen renders.
// ══════════════════════════════════════════════════════════════════════════════

// HabitDayStatus is one habit's state for today.
type HabitDayStatus struct {
	Habit          *habit.Habit
	CompletedToday bool
	Streak         int
}

// DailyProgress summarizes a user's day.
type DailyProgress struct {
	UserID           shared.UserID
	Day              string
	CompletionsToday int
	ActiveHabits     int
	CompletedHabits  int
	PerfectDay       bool
	Habits           []HabitDayStatus
}

// DailyProgressQuery computes the daily progress view.
type DailyProgressQuery struct {
	habits        habit.Repository
	completions   habit.CompletionRepository
	streakHistory gamification.StreakHistoryRepository
	loc           *time.Location
}

// NewDailyProgressQuery creates a new DailyProgressQuery.
func NewDailyProgressQuery(
	habits habit.Repository,
	completions habit.CompletionRepository,
	streakHistory gamification.StreakHistoryRepository,
	loc *time.Location,
) *DailyProgressQuery {
	if loc == nil {
		loc = timeutil.DefaultLocation
	}
	return &DailyProgressQuery{
		habits:        habits,
		completions:   completions,
		streakHistory: streakHistory,
		loc:           loc,
	}
}

// Execute builds the daily progress for the user as of now.
func (q *DailyProgressQuery) Execute(ctx context.Context, userID shared.UserID, now time.Time) (*DailyProgress, error) {
	if userID.IsEmpty() {
		return nil, shared.ErrMissingUserID
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	dayKey := timeutil.DayKey(now, q.loc)
	dayStart := timeutil.StartOfDay(now, q.loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	habits, err := q.habits.ListByUser(ctx, userID, false)
	if err != nil {
		return nil, shared.WrapError("query", "DailyProgress", shared.ErrExternalService, "failed to list habits", err)
	}

	totalToday, err := q.completions.CountForUserBetween(ctx, userID, dayStart, dayEnd)
	if err != nil {
		return nil, shared.WrapError("query", "DailyProgress", shared.ErrExternalService, "failed to count completions", err)
	}

	progress := &DailyProgress{
		UserID:           userID,
		Day:              dayKey,
		CompletionsToday: totalToday,
		ActiveHabits:     len(habits),
		Habits:           make([]HabitDayStatus, 0, len(habits)),
	}

	for _, hab := range habits {
		status := HabitDayStatus{Habit: hab}

		recent, err := q.completions.ListRecent(ctx, hab.ID, userID, 1)
		if err == nil && len(recent) > 0 && timeutil.SameDay(recent[0].CompletedAt, now, q.loc) {
			status.CompletedToday = true
			progress.CompletedHabits++
		}

		if entry, err := q.streakHistory.GetForDay(ctx, hab.ID, userID, dayKey); err == nil {
			status.Streak = entry.Length
		} else if !errors.Is(err, shared.ErrNotFound) {
			return nil, shared.WrapError("query", "DailyProgress", shared.ErrExternalService, "failed to load streak history", err)
		}

		progress.Habits = append(progress.Habits, status)
	}

	progress.PerfectDay = progress.ActiveHabits > 0 && progress.CompletedHabits >= progress.ActiveHabits

	return progress, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// USER PROGRESS QUERY
// Total XP (always the ledger sum), level, and distance to the next level.
// ══════════════════════════════════════════════════════════════════════════════

// UserProgress is the gamification summary for a user.
type UserProgress struct {
	UserID           shared.UserID
	TotalXP          int
	Level            int
	XPToNextLevel    int
	TotalCompletions int
	Unlocked         []gamification.Unlock
}

// UserProgressQuery computes the user progress view.
type UserProgressQuery struct {
	ledger      gamification.LedgerRepository
	completions habit.CompletionRepository
	unlocks     gamification.UnlockRepository
}

// NewUserProgressQuery creates a new UserProgressQuery.
func NewUserProgressQuery(
	ledger gamification.LedgerRepository,
	completions habit.CompletionRepository,
	unlocks gamification.UnlockRepository,
) *UserProgressQuery {
	return &UserProgressQuery{
		ledger:      ledger,
		completions: completions,
		unlocks:     unlocks,
	}
}

// Execute builds the progress summary for the user.
func (q *UserProgressQuery) Execute(ctx context.Context, userID shared.UserID) (*UserProgress, error) {
	if userID.IsEmpty() {
		return nil, shared.ErrMissingUserID
	}

	total, err := q.ledger.TotalForUser(ctx, userID)
	if err != nil {
		return nil, shared.WrapError("query", "UserProgress", shared.ErrExternalService, "failed to sum ledger", err)
	}

	completions, err := q.completions.CountForUser(ctx, userID)
	if err != nil {
		return nil, shared.WrapError("query", "UserProgress", shared.ErrExternalService, "failed to count completions", err)
	}

	unlocked, err := q.unlocks.ListByUser(ctx, userID)
	if err != nil {
		return nil, shared.WrapError("query", "UserProgress", shared.ErrExternalService, "failed to list unlocks", err)
	}

	return &UserProgress{
		UserID:           userID,
		TotalXP:          total.Int(),
		Level:            shared.LevelForXP(total).Int(),
		XPToNextLevel:    shared.XPToNextLevel(total).Int(),
		TotalCompletions: completions,
		Unlocked:         unlocked,
	}, nil
}
