// Package eventhandler contains domain event handlers. Handlers are the
// reactive part of the system: they subscribe to the event bus and trigger
// side effects such as push notifications. Every handler swallows its own
// failures - a dead notifier must never surface into the completion path.
package eventhandler

import (
	"context"
	"fmt"

	"github.com/habitforge/habitforge/internal/domain/shared"
	"github.com/habitforge/habitforge/pkg/logger"
)

// Notifier delivers a fire-and-forget notice to one user. Implemented by the
// notification infrastructure; presentation only, not part of the data
// contract.
type Notifier interface {
	SendToUser(ctx context.Context, userID, title, body string) error
}

// OnLevelUpHandler congratulates a user when they cross a level boundary.
type OnLevelUpHandler struct {
	notifier Notifier
	log      *logger.Logger
}

// NewOnLevelUpHandler creates a new OnLevelUpHandler.
func NewOnLevelUpHandler(notifier Notifier, log *logger.Logger) *OnLevelUpHandler {
	if log == nil {
		log = logger.Default()
	}
	return &OnLevelUpHandler{
		notifier: notifier,
		log:      log.With(logger.Component("on_level_up")),
	}
}

// Handle processes a LevelUpEvent.
func (h *OnLevelUpHandler) Handle(event shared.Event) error {
	levelUp, ok := event.(shared.LevelUpEvent)
	if !ok {
		return nil
	}

	title := fmt.Sprintf("Level %d reached!", levelUp.NewLevel)
	body := fmt.Sprintf("You leveled up from %d to %d with %d total XP. Keep going!",
		levelUp.OldLevel, levelUp.NewLevel, levelUp.TotalXP)

	if err := h.notifier.SendToUser(context.Background(), levelUp.UserID, title, body); err != nil {
		h.log.Warn("level-up notification failed",
			logger.UserID(levelUp.UserID),
			logger.Err(err))
	}
	return nil
}

// Subscribe registers the handler on the bus.
func (h *OnLevelUpHandler) Subscribe(bus shared.EventSubscriber) error {
	return bus.Subscribe(shared.EventLevelUp, h.Handle)
}
