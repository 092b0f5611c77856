// Package feed contains the social activity feed aggregate. Feed events are a
// presentation feature, not a consistency-critical one: the engine records at
// most one event per (user, habit, calendar day) and swallows every failure
// so the completion path never rolls back because of the feed.
package feed

import (
	"time"

	"github.com/habitforge/habitforge/internal/domain/shared"
)

// EventType is the feed event subtype.
type EventType string

const (
	// TypeHabitCompletion - a plain daily completion.
	TypeHabitCompletion EventType = "habit_completion"

	// TypeStreakMilestone - a completion carrying a streak of 7 or more.
	TypeStreakMilestone EventType = "streak_milestone"
)

// MilestoneStreak is the streak at which a completion is promoted to a
// streak_milestone feed event.
const MilestoneStreak = 7

// Visibility controls who can see a feed event.
type Visibility string

const (
	// VisibilityPublic - visible to followers and trainers.
	VisibilityPublic Visibility = "public"

	// VisibilityPrivate - visible to the owner only.
	VisibilityPrivate Visibility = "private"
)

// Payload is the denormalized presentation data carried by a feed event.
type Payload struct {
	HabitName string `json:"habit_name"`
	HabitIcon string `json:"habit_icon"`
	Streak    int    `json:"streak"`
	XPEarned  int    `json:"xp_earned"`
}

// Event is one social feed entry.
type Event struct {
	// ID - unique event identifier.
	ID string

	// UserID / HabitID - the event's subject.
	UserID  shared.UserID
	HabitID shared.HabitID

	// Type - habit_completion or streak_milestone.
	Type EventType

	// DayKey - the calendar day (YYYY-MM-DD) this event covers. At most one
	// event exists per (user, habit, day); the pre-insert existence check on
	// this key is best-effort idempotency, not a database constraint.
	DayKey string

	// Payload - presentation data.
	Payload Payload

	// Visibility - public by default.
	Visibility Visibility

	// CreatedAt - when the event was recorded.
	CreatedAt time.Time
}

// TypeForStreak picks the event subtype from the streak signal.
func TypeForStreak(streak int) EventType {
	if streak >= MilestoneStreak {
		return TypeStreakMilestone
	}
	return TypeHabitCompletion
}

// NewEvent creates a public feed event for a completion.
func NewEvent(id string, userID shared.UserID, habitID shared.HabitID, dayKey string, streak, xpEarned int, habitName, habitIcon string, now time.Time) *Event {
	return &Event{
		ID:      id,
		UserID:  userID,
		HabitID: habitID,
		Type:    TypeForStreak(streak),
		DayKey:  dayKey,
		Payload: Payload{
			HabitName: habitName,
			HabitIcon: habitIcon,
			Streak:    streak,
			XPEarned:  xpEarned,
		},
		Visibility: VisibilityPublic,
		CreatedAt:  now,
	}
}

// IsMilestone reports whether the event celebrates a streak milestone.
func (e *Event) IsMilestone() bool {
	return e.Type == TypeStreakMilestone
}
