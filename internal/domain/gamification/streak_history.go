package gamification

import (
	"context"
	"time"

	"github.com/habitforge/habitforge/internal/domain/shared"
)

// StreakHistoryEntry records the computed streak length for (habit, user) on
// one calendar day. Upserted once per day; the unique key makes re-running
// the same day's computation idempotent (last writer wins - acceptable
// because the streak for a given day is a pure function of the data up to
// that point, not of write order).
type StreakHistoryEntry struct {
	// HabitID / UserID - the streak's subject.
	HabitID shared.HabitID
	UserID  shared.UserID

	// Day - the calendar day (YYYY-MM-DD key) the streak was computed for.
	Day string

	// Length - the streak length as of Day.
	Length int

	// UpdatedAt - last upsert time.
	UpdatedAt time.Time
}

// StreakHistoryRepository defines persistence for per-day streak snapshots.
type StreakHistoryRepository interface {
	// Upsert inserts or replaces the entry keyed by (habit, user, day).
	Upsert(ctx context.Context, entry StreakHistoryEntry) error

	// GetForDay returns the entry for (habit, user, day), or
	// shared.ErrNotFound when the day has no snapshot.
	GetForDay(ctx context.Context, habitID shared.HabitID, userID shared.UserID, day string) (StreakHistoryEntry, error)

	// ListRecent returns up to limit entries for (habit, user), newest first.
	ListRecent(ctx context.Context, habitID shared.HabitID, userID shared.UserID, limit int) ([]StreakHistoryEntry, error)
}
