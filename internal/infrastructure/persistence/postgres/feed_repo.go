// Package postgres implements the PostgreSQL persistence layer for HabitForge.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/habitforge/habitforge/internal/domain/feed"
	"github.com/habitforge/habitforge/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// FEED REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// FeedRepository implements feed.Repository for PostgreSQL.
type FeedRepository struct {
	conn *Connection
}

// NewFeedRepository creates a new FeedRepository.
func NewFeedRepository(conn *Connection) *FeedRepository {
	return &FeedRepository{conn: conn}
}

// ExistsForDay reports whether an event already exists for (user, habit, day).
func (r *FeedRepository) ExistsForDay(ctx context.Context, userID shared.UserID, habitID shared.HabitID, dayKey string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM feed_events
			WHERE user_id = $1 AND habit_id = $2 AND day_key = $3
		)
	`

	var exists bool
	if err := r.conn.QueryRow(ctx, query, string(userID), string(habitID), dayKey).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check feed event existence: %w", err)
	}

	return exists, nil
}

// Insert records a feed event. A concurrent duplicate hits the unique
// (user, habit, day) index and maps to shared.ErrFeedEventExists.
func (r *FeedRepository) Insert(ctx context.Context, event *feed.Event) error {
	query := `
		INSERT INTO feed_events (id, user_id, habit_id, event_type, day_key, payload, visibility, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	payloadJSON, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal feed payload: %w", err)
	}

	_, err = r.conn.Exec(ctx, query,
		event.ID,
		string(event.UserID),
		string(event.HabitID),
		string(event.Type),
		event.DayKey,
		payloadJSON,
		string(event.Visibility),
		event.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrFeedEventExists
		}
		return fmt.Errorf("failed to insert feed event: %w", err)
	}

	return nil
}

// ListRecent returns up to limit events for the user, newest first.
func (r *FeedRepository) ListRecent(ctx context.Context, userID shared.UserID, limit int) ([]*feed.Event, error) {
	query := `
		SELECT id, user_id, habit_id, event_type, to_char(day_key, 'YYYY-MM-DD'), payload, visibility, created_at
		FROM feed_events
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, string(userID), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list feed events: %w", err)
	}
	defer rows.Close()

	events := make([]*feed.Event, 0, limit)
	for rows.Next() {
		var event feed.Event
		var uid, hid, eventType, visibility string
		var payloadJSON []byte

		if err := rows.Scan(&event.ID, &uid, &hid, &eventType, &event.DayKey, &payloadJSON, &visibility, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feed event: %w", err)
		}

		event.UserID = shared.UserID(uid)
		event.HabitID = shared.HabitID(hid)
		event.Type = feed.EventType(eventType)
		event.Visibility = feed.Visibility(visibility)

		if err := json.Unmarshal(payloadJSON, &event.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal feed payload: %w", err)
		}

		events = append(events, &event)
	}

	return events, rows.Err()
}

// DeleteForDay removes the event for (user, habit, day), if any.
func (r *FeedRepository) DeleteForDay(ctx context.Context, userID shared.UserID, habitID shared.HabitID, dayKey string) error {
	query := `DELETE FROM feed_events WHERE user_id = $1 AND habit_id = $2 AND day_key = $3`

	if _, err := r.conn.Exec(ctx, query, string(userID), string(habitID), dayKey); err != nil {
		return fmt.Errorf("failed to delete feed event: %w", err)
	}

	return nil
}
