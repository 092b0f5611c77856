package eventhandler

import (
	"context"
	"fmt"

	"github.com/habitforge/habitforge/internal/domain/gamification"
	"github.com/habitforge/habitforge/internal/domain/shared"
	"github.com/habitforge/habitforge/pkg/logger"
)

// OnAchievementUnlockedHandler sends the per-achievement unlock notice.
type OnAchievementUnlockedHandler struct {
	notifier Notifier
	log      *logger.Logger
}

// NewOnAchievementUnlockedHandler creates a new OnAchievementUnlockedHandler.
func NewOnAchievementUnlockedHandler(notifier Notifier, log *logger.Logger) *OnAchievementUnlockedHandler {
	if log == nil {
		log = logger.Default()
	}
	return &OnAchievementUnlockedHandler{
		notifier: notifier,
		log:      log.With(logger.Component("on_achievement_unlocked")),
	}
}

// Handle processes an AchievementUnlockedEvent.
func (h *OnAchievementUnlockedHandler) Handle(event shared.Event) error {
	unlocked, ok := event.(shared.AchievementUnlockedEvent)
	if !ok {
		return nil
	}

	icon := ""
	if def, found := gamification.CatalogByID(gamification.AchievementID(unlocked.AchievementID)); found {
		icon = def.Icon + " "
	}

	title := fmt.Sprintf("%sAchievement unlocked: %s", icon, unlocked.Title)
	body := fmt.Sprintf("+%d XP", unlocked.XPAwarded)

	if err := h.notifier.SendToUser(context.Background(), unlocked.UserID, title, body); err != nil {
		h.log.Warn("achievement notification failed",
			logger.UserID(unlocked.UserID),
			logger.Achievement(unlocked.AchievementID),
			logger.Err(err))
	}
	return nil
}

// Subscribe registers the handler on the bus.
func (h *OnAchievementUnlockedHandler) Subscribe(bus shared.EventSubscriber) error {
	return bus.Subscribe(shared.EventAchievementUnlocked, h.Handle)
}
