package habit

import (
	"context"
	"time"

	"github.com/habitforge/habitforge/internal/domain/shared"
)

// Repository defines persistence operations for habits.
type Repository interface {
	// Create inserts a new habit.
	Create(ctx context.Context, h *Habit) error

	// GetByID returns a habit by ID.
	GetByID(ctx context.Context, id shared.HabitID) (*Habit, error)

	// Update persists habit mutations (rename, archive, reward changes).
	Update(ctx context.Context, h *Habit) error

	// ListByUser returns the user's habits, optionally including archived ones.
	ListByUser(ctx context.Context, userID shared.UserID, includeArchived bool) ([]*Habit, error)

	// CountActive returns the number of non-archived habits for the user.
	// Used for the perfect-day check.
	CountActive(ctx context.Context, userID shared.UserID) (int, error)
}

// CompletionRepository defines persistence operations for completions.
type CompletionRepository interface {
	// Insert appends a completion row. Fatal to the orchestrator on failure.
	Insert(ctx context.Context, c *Completion) error

	// ListRecent returns up to limit completions for (habit, user),
	// ordered newest first. This is the streak calculator's history read.
	ListRecent(ctx context.Context, habitID shared.HabitID, userID shared.UserID, limit int) ([]*Completion, error)

	// Latest returns the most recent completion for (habit, user), or
	// shared.ErrCompletionNotFound if none exists. Used by undo.
	Latest(ctx context.Context, habitID shared.HabitID, userID shared.UserID) (*Completion, error)

	// Delete removes a completion by ID. Undo is the only caller.
	Delete(ctx context.Context, id string) error

	// CountForUserBetween returns how many completions (any habit) the user
	// has in [from, to). Count == 1 right after an insert means "first today".
	CountForUserBetween(ctx context.Context, userID shared.UserID, from, to time.Time) (int, error)

	// DistinctHabitsBetween returns how many distinct habits the user
	// completed at least once in [from, to). Feeds the perfect-day check.
	DistinctHabitsBetween(ctx context.Context, userID shared.UserID, from, to time.Time) (int, error)

	// CountForUser returns the user's all-time completion count across all
	// habits. Feeds cumulative achievement predicates.
	CountForUser(ctx context.Context, userID shared.UserID) (int, error)
}
