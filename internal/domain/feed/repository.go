package feed

import (
	"context"

	"github.com/habitforge/habitforge/internal/domain/shared"
)

// Repository defines persistence for feed events.
type Repository interface {
	// ExistsForDay reports whether an event already exists for
	// (user, habit, day). The emitter checks this before inserting.
	ExistsForDay(ctx context.Context, userID shared.UserID, habitID shared.HabitID, dayKey string) (bool, error)

	// Insert records a feed event.
	Insert(ctx context.Context, event *Event) error

	// ListRecent returns up to limit events for the user, newest first.
	ListRecent(ctx context.Context, userID shared.UserID, limit int) ([]*Event, error)

	// DeleteForDay removes the event for (user, habit, day), if any.
	// Used only by strict undo when symmetric compensation is enabled.
	DeleteForDay(ctx context.Context, userID shared.UserID, habitID shared.HabitID, dayKey string) error
}
