package command

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/habitforge/habitforge/internal/domain/habit"
	"github.com/habitforge/habitforge/internal/domain/shared"
	"github.com/habitforge/habitforge/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HABIT CRUD COMMANDS
// Habit creation and edits are plain CRUD around the store; the engine only
// needs xp_reward, difficulty_level and the archived flag to score
// completions. Habits are soft-archived, never hard-deleted, while
// completions reference them.
// ══════════════════════════════════════════════════════════════════════════════

// UUIDGenerator mints UUIDv4 identifiers. Implements gamification.IDGenerator.
type UUIDGenerator struct{}

// NewID returns a new UUID string.
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// CreateHabitCommand contains the data to create a habit.
type CreateHabitCommand struct {
	UserID     shared.UserID
	Name       string
	Icon       string
	XPReward   int
	Difficulty string
}

// CreateHabitHandler handles habit creation.
type CreateHabitHandler struct {
	habits habit.Repository
	events shared.EventPublisher
	ids    UUIDGenerator
	log    *logger.Logger
}

// NewCreateHabitHandler creates a new CreateHabitHandler.
func NewCreateHabitHandler(habits habit.Repository, events shared.EventPublisher, log *logger.Logger) *CreateHabitHandler {
	if log == nil {
		log = logger.Default()
	}
	return &CreateHabitHandler{
		habits: habits,
		events: events,
		log:    log.With(logger.Component("create_habit")),
	}
}

// Handle creates the habit and returns it.
func (h *CreateHabitHandler) Handle(ctx context.Context, cmd CreateHabitCommand) (*habit.Habit, error) {
	if cmd.UserID.IsEmpty() {
		return nil, shared.ErrMissingUserID
	}

	now := time.Now().UTC()
	hab, err := habit.NewHabit(
		shared.HabitID(h.ids.NewID()),
		cmd.UserID,
		cmd.Name,
		cmd.Icon,
		shared.XP(cmd.XPReward),
		shared.ParseDifficulty(cmd.Difficulty),
		now,
	)
	if err != nil {
		return nil, err
	}

	if err := h.habits.Create(ctx, hab); err != nil {
		return nil, shared.WrapError("command", "CreateHabit", shared.ErrExternalService, "failed to create habit", err)
	}

	if h.events != nil {
		_ = h.events.Publish(shared.NewHabitCreatedEvent(
			cmd.UserID.String(), hab.ID.String(), hab.Name))
	}

	h.log.Info("habit created",
		logger.UserID(cmd.UserID.String()),
		logger.HabitID(hab.ID.String()),
		logger.HabitName(hab.Name),
	)

	return hab, nil
}

// ArchiveHabitCommand soft-deletes a habit. Archived habits drop out of the
// perfect-day denominator and cannot be completed.
type ArchiveHabitCommand struct {
	UserID  shared.UserID
	HabitID shared.HabitID
}

// ArchiveHabitHandler handles habit archiving.
type ArchiveHabitHandler struct {
	habits habit.Repository
	log    *logger.Logger
}

// NewArchiveHabitHandler creates a new ArchiveHabitHandler.
func NewArchiveHabitHandler(habits habit.Repository, log *logger.Logger) *ArchiveHabitHandler {
	if log == nil {
		log = logger.Default()
	}
	return &ArchiveHabitHandler{
		habits: habits,
		log:    log.With(logger.Component("archive_habit")),
	}
}

// Handle archives the habit after an ownership check.
func (h *ArchiveHabitHandler) Handle(ctx context.Context, cmd ArchiveHabitCommand) error {
	if cmd.UserID.IsEmpty() {
		return shared.ErrMissingUserID
	}

	hab, err := h.habits.GetByID(ctx, cmd.HabitID)
	if err != nil {
		return shared.WrapError("command", "ArchiveHabit", shared.ErrNotFound, "failed to load habit", err)
	}
	if hab.UserID != cmd.UserID {
		return shared.ErrHabitNotOwned
	}
	if hab.Archived {
		return nil
	}

	hab.Archive(time.Now().UTC())
	if err := h.habits.Update(ctx, hab); err != nil {
		return shared.WrapError("command", "ArchiveHabit", shared.ErrExternalService, "failed to archive habit", err)
	}

	h.log.Info("habit archived",
		logger.UserID(cmd.UserID.String()),
		logger.HabitID(cmd.HabitID.String()),
	)
	return nil
}

// RenameHabitCommand renames a habit.
type RenameHabitCommand struct {
	UserID  shared.UserID
	HabitID shared.HabitID
	Name    string
}

// RenameHabitHandler handles habit renames.
type RenameHabitHandler struct {
	habits habit.Repository
}

// NewRenameHabitHandler creates a new RenameHabitHandler.
func NewRenameHabitHandler(habits habit.Repository) *RenameHabitHandler {
	return &RenameHabitHandler{habits: habits}
}

// Handle renames the habit after an ownership check.
func (h *RenameHabitHandler) Handle(ctx context.Context, cmd RenameHabitCommand) error {
	if cmd.UserID.IsEmpty() {
		return shared.ErrMissingUserID
	}

	hab, err := h.habits.GetByID(ctx, cmd.HabitID)
	if err != nil {
		return shared.WrapError("command", "RenameHabit", shared.ErrNotFound, "failed to load habit", err)
	}
	if hab.UserID != cmd.UserID {
		return shared.ErrHabitNotOwned
	}

	if err := hab.Rename(cmd.Name, time.Now().UTC()); err != nil {
		return err
	}
	if err := h.habits.Update(ctx, hab); err != nil {
		return shared.WrapError("command", "RenameHabit", shared.ErrExternalService, "failed to rename habit", err)
	}
	return nil
}
