package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// Habit events
	EventHabitCreated     EventType = "habit.created"
	EventHabitArchived    EventType = "habit.archived"
	EventHabitCompleted   EventType = "habit.completed"
	EventCompletionUndone EventType = "habit.completion_undone"

	// Progress events
	EventXPGained       EventType = "progress.xp_gained"
	EventLevelUp        EventType = "progress.level_up"
	EventPerfectDay     EventType = "progress.perfect_day"
	EventStreakExtended EventType = "progress.streak_extended"

	// Achievement events
	EventAchievementUnlocked EventType = "achievement.unlocked"

	// Feed events
	EventFeedEventRecorded EventType = "feed.event_recorded"

	// Notification events
	EventNotificationSent   EventType = "notification.sent"
	EventNotificationFailed EventType = "notification.failed"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Habit Events
// ═══════════════════════════════════════════════════════════════════════════

// HabitCreatedEvent is emitted when a new habit is registered.
type HabitCreatedEvent struct {
	BaseEvent
	UserID    string `json:"user_id"`
	HabitID   string `json:"habit_id"`
	HabitName string `json:"habit_name"`
}

// Payload implements Event interface.
func (e HabitCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":    e.UserID,
		"habit_id":   e.HabitID,
		"habit_name": e.HabitName,
	}
}

// NewHabitCreatedEvent creates a new HabitCreatedEvent.
func NewHabitCreatedEvent(userID, habitID, habitName string) HabitCreatedEvent {
	return HabitCreatedEvent{
		BaseEvent: NewBaseEvent(EventHabitCreated, userID),
		UserID:    userID,
		HabitID:   habitID,
		HabitName: habitName,
	}
}

// HabitCompletedEvent is emitted after a completion is persisted and scored.
type HabitCompletedEvent struct {
	BaseEvent
	UserID     string `json:"user_id"`
	HabitID    string `json:"habit_id"`
	HabitName  string `json:"habit_name"`
	XPEarned   int    `json:"xp_earned"`
	Streak     int    `json:"streak"`
	PerfectDay bool   `json:"perfect_day"`
}

// Payload implements Event interface.
func (e HabitCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":     e.UserID,
		"habit_id":    e.HabitID,
		"habit_name":  e.HabitName,
		"xp_earned":   e.XPEarned,
		"streak":      e.Streak,
		"perfect_day": e.PerfectDay,
	}
}

// NewHabitCompletedEvent creates a new HabitCompletedEvent.
func NewHabitCompletedEvent(userID, habitID, habitName string, xpEarned, streak int, perfectDay bool) HabitCompletedEvent {
	return HabitCompletedEvent{
		BaseEvent:  NewBaseEvent(EventHabitCompleted, userID),
		UserID:     userID,
		HabitID:    habitID,
		HabitName:  habitName,
		XPEarned:   xpEarned,
		Streak:     streak,
		PerfectDay: perfectDay,
	}
}

// CompletionUndoneEvent is emitted when the most recent completion is removed.
type CompletionUndoneEvent struct {
	BaseEvent
	UserID       string    `json:"user_id"`
	HabitID      string    `json:"habit_id"`
	CompletionID string    `json:"completion_id"`
	CompletedAt  time.Time `json:"completed_at"`
}

// Payload implements Event interface.
func (e CompletionUndoneEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":       e.UserID,
		"habit_id":      e.HabitID,
		"completion_id": e.CompletionID,
		"completed_at":  e.CompletedAt,
	}
}

// NewCompletionUndoneEvent creates a new CompletionUndoneEvent.
func NewCompletionUndoneEvent(userID, habitID, completionID string, completedAt time.Time) CompletionUndoneEvent {
	return CompletionUndoneEvent{
		BaseEvent:    NewBaseEvent(EventCompletionUndone, userID),
		UserID:       userID,
		HabitID:      habitID,
		CompletionID: completionID,
		CompletedAt:  completedAt,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// XPGainedEvent is emitted for every XP ledger append.
type XPGainedEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	Amount   int    `json:"amount"`
	Source   string `json:"source"`
	SourceID string `json:"source_id"`
	NewTotal int    `json:"new_total"`
}

// Payload implements Event interface.
func (e XPGainedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"amount":    e.Amount,
		"source":    e.Source,
		"source_id": e.SourceID,
		"new_total": e.NewTotal,
	}
}

// NewXPGainedEvent creates a new XPGainedEvent.
func NewXPGainedEvent(userID string, amount int, source, sourceID string, newTotal int) XPGainedEvent {
	return XPGainedEvent{
		BaseEvent: NewBaseEvent(EventXPGained, userID),
		UserID:    userID,
		Amount:    amount,
		Source:    source,
		SourceID:  sourceID,
		NewTotal:  newTotal,
	}
}

// LevelUpEvent is emitted when the ledger sum crosses a level boundary.
type LevelUpEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	OldLevel int    `json:"old_level"`
	NewLevel int    `json:"new_level"`
	TotalXP  int    `json:"total_xp"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"old_level": e.OldLevel,
		"new_level": e.NewLevel,
		"total_xp":  e.TotalXP,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(userID string, oldLevel, newLevel, totalXP int) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: NewBaseEvent(EventLevelUp, userID),
		UserID:    userID,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		TotalXP:   totalXP,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Achievement Events
// ═══════════════════════════════════════════════════════════════════════════

// AchievementUnlockedEvent is emitted on the first unlock of an achievement.
type AchievementUnlockedEvent struct {
	BaseEvent
	UserID        string `json:"user_id"`
	AchievementID string `json:"achievement_id"`
	Title         string `json:"title"`
	XPAwarded     int    `json:"xp_awarded"`
}

// Payload implements Event interface.
func (e AchievementUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":        e.UserID,
		"achievement_id": e.AchievementID,
		"title":          e.Title,
		"xp_awarded":     e.XPAwarded,
	}
}

// NewAchievementUnlockedEvent creates a new AchievementUnlockedEvent.
func NewAchievementUnlockedEvent(userID, achievementID, title string, xpAwarded int) AchievementUnlockedEvent {
	return AchievementUnlockedEvent{
		BaseEvent:     NewBaseEvent(EventAchievementUnlocked, userID),
		UserID:        userID,
		AchievementID: achievementID,
		Title:         title,
		XPAwarded:     xpAwarded,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Feed Events
// ═══════════════════════════════════════════════════════════════════════════

// FeedEventRecordedEvent is emitted after a social feed row is written.
type FeedEventRecordedEvent struct {
	BaseEvent
	UserID    string `json:"user_id"`
	HabitID   string `json:"habit_id"`
	FeedType  string `json:"feed_type"`
	DayKey    string `json:"day_key"`
	FeedID    string `json:"feed_id"`
	Streak    int    `json:"streak"`
	XPEarned  int    `json:"xp_earned"`
	Milestone bool   `json:"milestone"`
}

// Payload implements Event interface.
func (e FeedEventRecordedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"habit_id":  e.HabitID,
		"feed_type": e.FeedType,
		"day_key":   e.DayKey,
		"feed_id":   e.FeedID,
		"streak":    e.Streak,
		"xp_earned": e.XPEarned,
		"milestone": e.Milestone,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Bus Interfaces
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish publishes an event to all subscribed handlers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for a specific event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
