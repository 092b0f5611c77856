package command

import (
	"context"
	"errors"

	"github.com/habitforge/habitforge/internal/domain/habit"
	"github.com/habitforge/habitforge/internal/domain/shared"
	"github.com/habitforge/habitforge/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// UNDO COMPLETION COMMAND
// Removes the single most recent completion for (habit, user). This is the
// only deletion path for completions. It does NOT reverse the XP ledger
// entry, achievement unlocks, or the day's feed event: undo is soft and XP
// is sticky. Callers wanting symmetric compensation must build it on top.
// ══════════════════════════════════════════════════════════════════════════════

// UndoCompletionCommand contains the data to undo the latest completion.
type UndoCompletionCommand struct {
	// UserID is the authenticated user. Required.
	UserID shared.UserID

	// HabitID is the habit whose latest completion is removed.
	HabitID shared.HabitID
}

// Validate validates the command.
func (c UndoCompletionCommand) Validate() error {
	if c.UserID.IsEmpty() {
		return shared.ErrMissingUserID
	}
	if c.HabitID.IsEmpty() {
		return shared.NewDomainError("command", "UndoCompletion", shared.ErrInvalidID, "habit ID is required")
	}
	return nil
}

// UndoCompletionHandler handles the UndoCompletionCommand.
type UndoCompletionHandler struct {
	completions habit.CompletionRepository
	events      shared.EventPublisher
	log         *logger.Logger
}

// NewUndoCompletionHandler creates a new UndoCompletionHandler.
func NewUndoCompletionHandler(completions habit.CompletionRepository, events shared.EventPublisher, log *logger.Logger) *UndoCompletionHandler {
	if log == nil {
		log = logger.Default()
	}
	return &UndoCompletionHandler{
		completions: completions,
		events:      events,
		log:         log.With(logger.Component("undo_completion")),
	}
}

// Handle removes the most recent completion for (habit, user). Returns false
// without an error when there is nothing to undo.
func (h *UndoCompletionHandler) Handle(ctx context.Context, cmd UndoCompletionCommand) (bool, error) {
	if err := cmd.Validate(); err != nil {
		return false, err
	}

	latest, err := h.completions.Latest(ctx, cmd.HabitID, cmd.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return false, nil
		}
		return false, shared.WrapError("command", "UndoCompletion", shared.ErrExternalService, "failed to load latest completion", err)
	}

	if err := h.completions.Delete(ctx, latest.ID); err != nil {
		return false, shared.WrapError("command", "UndoCompletion", shared.ErrExternalService, "failed to delete completion", err)
	}

	if h.events != nil {
		_ = h.events.Publish(shared.NewCompletionUndoneEvent(
			cmd.UserID.String(),
			cmd.HabitID.String(),
			latest.ID,
			latest.CompletedAt,
		))
	}

	h.log.Info("completion undone",
		logger.UserID(cmd.UserID.String()),
		logger.HabitID(cmd.HabitID.String()),
		logger.String("completion_id", latest.ID),
	)

	return true, nil
}
