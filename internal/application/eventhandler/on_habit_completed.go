package eventhandler

import (
	"context"

	"github.com/habitforge/habitforge/internal/domain/shared"
	"github.com/habitforge/habitforge/pkg/logger"
)

// SummaryNotifier delivers the post-completion toast. Implemented by the
// notification service, which composes the body from the scoring result.
type SummaryNotifier interface {
	SendCompletionSummary(ctx context.Context, userID string, xpEarned, streak int, perfectDay bool) error
}

// OnHabitCompletedHandler sends a short summary after every completion.
// Noisy by nature, so it ships behind a flag that defaults off.
type OnHabitCompletedHandler struct {
	notifier SummaryNotifier
	log      *logger.Logger
}

// NewOnHabitCompletedHandler creates a new OnHabitCompletedHandler.
func NewOnHabitCompletedHandler(notifier SummaryNotifier, log *logger.Logger) *OnHabitCompletedHandler {
	if log == nil {
		log = logger.Default()
	}
	return &OnHabitCompletedHandler{
		notifier: notifier,
		log:      log.With(logger.Component("on_habit_completed")),
	}
}

// Handle processes a HabitCompletedEvent.
func (h *OnHabitCompletedHandler) Handle(event shared.Event) error {
	completed, ok := event.(shared.HabitCompletedEvent)
	if !ok {
		return nil
	}

	err := h.notifier.SendCompletionSummary(context.Background(),
		completed.UserID, completed.XPEarned, completed.Streak, completed.PerfectDay)
	if err != nil {
		h.log.Warn("completion summary failed",
			logger.UserID(completed.UserID),
			logger.HabitID(completed.HabitID),
			logger.Err(err))
	}
	return nil
}

// Subscribe registers the handler on the bus.
func (h *OnHabitCompletedHandler) Subscribe(bus shared.EventSubscriber) error {
	return bus.Subscribe(shared.EventHabitCompleted, h.Handle)
}
