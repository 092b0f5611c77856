// Package habit contains the Habit and Completion aggregates.
// A habit is owned by a single user; completions are immutable rows appended
// each time the habit is done. A habit may be completed more than once per
// calendar day - completions are counted, never deduplicated.
package habit

import (
	"strings"
	"time"

	"github.com/habitforge/habitforge/internal/domain/shared"
)

// DefaultXPReward is the base XP for a completion when the habit does not
// override it.
const DefaultXPReward = 10

// Habit represents a user-defined habit.
type Habit struct {
	// ID - unique habit identifier.
	ID shared.HabitID

	// UserID - the owner of the habit.
	UserID shared.UserID

	// Name - display name shown in the UI and in feed payloads.
	Name string

	// Icon - emoji or icon key for presentation.
	Icon string

	// XPReward - base XP awarded per completion.
	XPReward shared.XP

	// Difficulty - normal or hard. Hard habits earn a bonus.
	Difficulty shared.Difficulty

	// Archived - soft-delete flag. Archived habits are excluded from
	// perfect-day math and cannot be completed. Habits are never hard-deleted
	// while completions reference them.
	Archived bool

	// CreatedAt / UpdatedAt - bookkeeping timestamps.
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewHabit creates a habit with validated fields and defaults applied.
func NewHabit(id shared.HabitID, userID shared.UserID, name, icon string, xpReward shared.XP, difficulty shared.Difficulty, now time.Time) (*Habit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.ErrInvalidHabitName
	}
	if userID.IsEmpty() {
		return nil, shared.ErrMissingUserID
	}
	if xpReward <= 0 {
		xpReward = DefaultXPReward
	}
	if !difficulty.IsValid() {
		difficulty = shared.DifficultyNormal
	}

	return &Habit{
		ID:         id,
		UserID:     userID,
		Name:       name,
		Icon:       icon,
		XPReward:   xpReward,
		Difficulty: difficulty,
		Archived:   false,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// IsActive reports whether the habit participates in completions and
// perfect-day checks.
func (h *Habit) IsActive() bool {
	return !h.Archived
}

// IsHard reports whether the habit earns the difficulty bonus.
func (h *Habit) IsHard() bool {
	return h.Difficulty == shared.DifficultyHard
}

// Archive soft-deletes the habit.
func (h *Habit) Archive(now time.Time) {
	h.Archived = true
	h.UpdatedAt = now
}

// Restore un-archives the habit.
func (h *Habit) Restore(now time.Time) {
	h.Archived = false
	h.UpdatedAt = now
}

// Rename updates the display name.
func (h *Habit) Rename(name string, now time.Time) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.ErrInvalidHabitName
	}
	h.Name = name
	h.UpdatedAt = now
	return nil
}

// Completion represents one discrete completion of a habit.
// Immutable once created; deletion (undo) is the only mutation path.
type Completion struct {
	// ID - unique completion identifier.
	ID string

	// HabitID - the completed habit.
	HabitID shared.HabitID

	// UserID - the user who completed it.
	UserID shared.UserID

	// CompletedAt - when the completion happened.
	CompletedAt time.Time

	// Note - optional free-text note.
	Note string

	// CreatedAt - when the row was inserted.
	CreatedAt time.Time
}

// NewCompletion creates a completion record.
func NewCompletion(id string, habitID shared.HabitID, userID shared.UserID, completedAt time.Time, note string) (*Completion, error) {
	if id == "" {
		return nil, shared.NewDomainError("habit", "NewCompletion", shared.ErrInvalidID, "completion ID is required")
	}
	if habitID.IsEmpty() {
		return nil, shared.NewDomainError("habit", "NewCompletion", shared.ErrInvalidID, "habit ID is required")
	}
	if userID.IsEmpty() {
		return nil, shared.ErrMissingUserID
	}
	if completedAt.IsZero() {
		return nil, shared.NewDomainError("habit", "NewCompletion", shared.ErrInvalidInput, "completed_at is required")
	}

	return &Completion{
		ID:          id,
		HabitID:     habitID,
		UserID:      userID,
		CompletedAt: completedAt,
		Note:        note,
		CreatedAt:   completedAt,
	}, nil
}
