// Package sqlite implements a single-file persistence layer for local
// development and the worker's offline mode. It mirrors the PostgreSQL
// repositories over database/sql with the pure-Go sqlite driver, so the same
// application wiring runs without a server database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/habitforge/habitforge/internal/domain/feed"
	"github.com/habitforge/habitforge/internal/domain/gamification"
	"github.com/habitforge/habitforge/internal/domain/habit"
	"github.com/habitforge/habitforge/internal/domain/shared"
)

const schema = `
CREATE TABLE IF NOT EXISTS habits (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	icon TEXT NOT NULL DEFAULT '',
	xp_reward INTEGER NOT NULL DEFAULT 10,
	difficulty TEXT NOT NULL DEFAULT 'normal',
	archived INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_habits_user ON habits(user_id);

CREATE TABLE IF NOT EXISTS completions (
	id TEXT PRIMARY KEY,
	habit_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	completed_at TIMESTAMP NOT NULL,
	note TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_completions_habit_user ON completions(habit_id, user_id, completed_at DESC);
CREATE INDEX IF NOT EXISTS idx_completions_user_time ON completions(user_id, completed_at DESC);

CREATE TABLE IF NOT EXISTS xp_ledger (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	amount INTEGER NOT NULL,
	source TEXT NOT NULL,
	source_id TEXT NOT NULL,
	metadata TEXT,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_xp_ledger_user ON xp_ledger(user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS streak_history (
	habit_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	day TEXT NOT NULL,
	length INTEGER NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (habit_id, user_id, day)
);

CREATE TABLE IF NOT EXISTS achievement_unlocks (
	user_id TEXT NOT NULL,
	achievement_id TEXT NOT NULL,
	unlocked_at TIMESTAMP NOT NULL,
	PRIMARY KEY (user_id, achievement_id)
);

CREATE TABLE IF NOT EXISTS feed_events (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	habit_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	day_key TEXT NOT NULL,
	payload TEXT NOT NULL,
	visibility TEXT NOT NULL DEFAULT 'public',
	created_at TIMESTAMP NOT NULL,
	UNIQUE(user_id, habit_id, day_key)
);
CREATE INDEX IF NOT EXISTS idx_feed_events_user ON feed_events(user_id, created_at DESC);
`

// Store is a SQLite-backed implementation of every repository interface the
// engine depends on.
type Store struct {
	db *sql.DB
}

// Open opens (and migrates) a SQLite database at path. Use ":memory:" for an
// ephemeral database in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	// The sqlite driver serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent use.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}

	return &Store{db: db}, nil
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ─────────────────────────────────────────────────────────────────────────────
// habit.Repository
// ─────────────────────────────────────────────────────────────────────────────

// Habits returns the habit repository view of the store.
func (s *Store) Habits() *HabitRepository {
	return &HabitRepository{db: s.db}
}

// HabitRepository implements habit.Repository.
type HabitRepository struct {
	db *sql.DB
}

// Create inserts a new habit.
func (r *HabitRepository) Create(ctx context.Context, h *habit.Habit) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO habits (id, user_id, name, icon, xp_reward, difficulty, archived, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(h.ID), string(h.UserID), h.Name, h.Icon, int(h.XPReward), string(h.Difficulty),
		boolToInt(h.Archived), h.CreatedAt, h.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.ErrHabitAlreadyExists
		}
		return fmt.Errorf("sqlite: create habit: %w", err)
	}
	return nil
}

// GetByID returns a habit by ID.
func (r *HabitRepository) GetByID(ctx context.Context, id shared.HabitID) (*habit.Habit, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, icon, xp_reward, difficulty, archived, created_at, updated_at
		FROM habits WHERE id = ?`, string(id))
	return scanHabit(row)
}

// Update persists habit mutations.
func (r *HabitRepository) Update(ctx context.Context, h *habit.Habit) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE habits SET name = ?, icon = ?, xp_reward = ?, difficulty = ?, archived = ?, updated_at = ?
		WHERE id = ?`,
		h.Name, h.Icon, int(h.XPReward), string(h.Difficulty), boolToInt(h.Archived), h.UpdatedAt, string(h.ID),
	)
	if err != nil {
		return fmt.Errorf("sqlite: update habit: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return shared.ErrHabitNotFound
	}
	return nil
}

// ListByUser returns the user's habits, optionally including archived ones.
func (r *HabitRepository) ListByUser(ctx context.Context, userID shared.UserID, includeArchived bool) ([]*habit.Habit, error) {
	query := `
		SELECT id, user_id, name, icon, xp_reward, difficulty, archived, created_at, updated_at
		FROM habits WHERE user_id = ?`
	if !includeArchived {
		query += " AND archived = 0"
	}
	query += " ORDER BY created_at"

	rows, err := r.db.QueryContext(ctx, query, string(userID))
	if err != nil {
		return nil, fmt.Errorf("sqlite: list habits: %w", err)
	}
	defer rows.Close()

	habits := make([]*habit.Habit, 0)
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

// ListAllActive returns every non-archived habit across all users.
func (r *HabitRepository) ListAllActive(ctx context.Context) ([]*habit.Habit, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, icon, xp_reward, difficulty, archived, created_at, updated_at
		FROM habits WHERE archived = 0
		ORDER BY user_id, created_at`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list active habits: %w", err)
	}
	defer rows.Close()

	habits := make([]*habit.Habit, 0)
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

// CountActive returns the number of non-archived habits for the user.
func (r *HabitRepository) CountActive(ctx context.Context, userID shared.UserID) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM habits WHERE user_id = ? AND archived = 0`, string(userID)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: count active habits: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanHabit(row rowScanner) (*habit.Habit, error) {
	var (
		h          habit.Habit
		id, userID string
		xpReward   int
		difficulty string
		archived   int
	)

	err := row.Scan(&id, &userID, &h.Name, &h.Icon, &xpReward, &difficulty, &archived, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrHabitNotFound
		}
		return nil, fmt.Errorf("sqlite: scan habit: %w", err)
	}

	h.ID = shared.HabitID(id)
	h.UserID = shared.UserID(userID)
	h.XPReward = shared.XP(xpReward)
	h.Difficulty = shared.Difficulty(difficulty)
	h.Archived = archived != 0
	return &h, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ─────────────────────────────────────────────────────────────────────────────
// habit.CompletionRepository
// ─────────────────────────────────────────────────────────────────────────────

// Completions returns the completion repository view of the store.
func (s *Store) Completions() *CompletionRepository {
	return &CompletionRepository{db: s.db}
}

// CompletionRepository implements habit.CompletionRepository.
type CompletionRepository struct {
	db *sql.DB
}

// Insert appends a completion row.
func (r *CompletionRepository) Insert(ctx context.Context, c *habit.Completion) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO completions (id, habit_id, user_id, completed_at, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, string(c.HabitID), string(c.UserID), c.CompletedAt, c.Note, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert completion: %w", err)
	}
	return nil
}

// ListRecent returns up to limit completions for (habit, user), newest first.
func (r *CompletionRepository) ListRecent(ctx context.Context, habitID shared.HabitID, userID shared.UserID, limit int) ([]*habit.Completion, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, habit_id, user_id, completed_at, note, created_at
		FROM completions WHERE habit_id = ? AND user_id = ?
		ORDER BY completed_at DESC LIMIT ?`,
		string(habitID), string(userID), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list completions: %w", err)
	}
	defer rows.Close()

	completions := make([]*habit.Completion, 0, limit)
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, err
		}
		completions = append(completions, c)
	}
	return completions, rows.Err()
}

// Latest returns the most recent completion for (habit, user).
func (r *CompletionRepository) Latest(ctx context.Context, habitID shared.HabitID, userID shared.UserID) (*habit.Completion, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, habit_id, user_id, completed_at, note, created_at
		FROM completions WHERE habit_id = ? AND user_id = ?
		ORDER BY completed_at DESC LIMIT 1`,
		string(habitID), string(userID),
	)

	c, err := scanCompletion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrCompletionNotFound
		}
		return nil, err
	}
	return c, nil
}

// Delete removes a completion by ID.
func (r *CompletionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM completions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete completion: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return shared.ErrCompletionNotFound
	}
	return nil
}

// CountForUserBetween returns how many completions the user has in [from, to).
func (r *CompletionRepository) CountForUserBetween(ctx context.Context, userID shared.UserID, from, to time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM completions
		WHERE user_id = ? AND completed_at >= ? AND completed_at < ?`,
		string(userID), from, to,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: count completions: %w", err)
	}
	return count, nil
}

// DistinctHabitsBetween returns how many distinct habits the user completed in [from, to).
func (r *CompletionRepository) DistinctHabitsBetween(ctx context.Context, userID shared.UserID, from, to time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT habit_id) FROM completions
		WHERE user_id = ? AND completed_at >= ? AND completed_at < ?`,
		string(userID), from, to,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: count distinct habits: %w", err)
	}
	return count, nil
}

// CountForUser returns the user's all-time completion count.
func (r *CompletionRepository) CountForUser(ctx context.Context, userID shared.UserID) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM completions WHERE user_id = ?`, string(userID)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: count completions: %w", err)
	}
	return count, nil
}

func scanCompletion(row rowScanner) (*habit.Completion, error) {
	var (
		c               habit.Completion
		habitID, userID string
	)

	err := row.Scan(&c.ID, &habitID, &userID, &c.CompletedAt, &c.Note, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("sqlite: scan completion: %w", err)
	}

	c.HabitID = shared.HabitID(habitID)
	c.UserID = shared.UserID(userID)
	return &c, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// gamification.LedgerRepository
// ─────────────────────────────────────────────────────────────────────────────

// Ledger returns the XP ledger repository view of the store.
func (s *Store) Ledger() *LedgerRepository {
	return &LedgerRepository{db: s.db}
}

// LedgerRepository implements gamification.LedgerRepository.
type LedgerRepository struct {
	db *sql.DB
}

// Append inserts a ledger entry.
func (r *LedgerRepository) Append(ctx context.Context, entry *gamification.LedgerEntry) error {
	var metadataJSON []byte
	if entry.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("sqlite: marshal ledger metadata: %w", err)
		}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO xp_ledger (id, user_id, amount, source, source_id, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, string(entry.UserID), int(entry.Amount), entry.Source, entry.SourceID,
		string(metadataJSON), entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: append ledger entry: %w", err)
	}
	return nil
}

// TotalForUser returns the sum of all entry amounts for the user.
func (r *LedgerRepository) TotalForUser(ctx context.Context, userID shared.UserID) (shared.XP, error) {
	var total int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM xp_ledger WHERE user_id = ?`, string(userID)).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sqlite: sum ledger: %w", err)
	}
	return shared.XP(total), nil
}

// ListRecent returns up to limit entries for the user, newest first.
func (r *LedgerRepository) ListRecent(ctx context.Context, userID shared.UserID, limit int) ([]*gamification.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, amount, source, source_id, metadata, created_at
		FROM xp_ledger WHERE user_id = ?
		ORDER BY created_at DESC LIMIT ?`,
		string(userID), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list ledger entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*gamification.LedgerEntry, 0, limit)
	for rows.Next() {
		var (
			entry        gamification.LedgerEntry
			uid          string
			amount       int
			metadataJSON sql.NullString
		)

		if err := rows.Scan(&entry.ID, &uid, &amount, &entry.Source, &entry.SourceID, &metadataJSON, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan ledger entry: %w", err)
		}

		entry.UserID = shared.UserID(uid)
		entry.Amount = shared.XP(amount)

		if metadataJSON.Valid && metadataJSON.String != "" {
			if err := json.Unmarshal([]byte(metadataJSON.String), &entry.Metadata); err != nil {
				return nil, fmt.Errorf("sqlite: unmarshal ledger metadata: %w", err)
			}
		}

		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// gamification.UnlockRepository
// ─────────────────────────────────────────────────────────────────────────────

// Unlocks returns the achievement unlock repository view of the store.
func (s *Store) Unlocks() *UnlockRepository {
	return &UnlockRepository{db: s.db}
}

// UnlockRepository implements gamification.UnlockRepository.
type UnlockRepository struct {
	db *sql.DB
}

// TryUnlock records the unlock if absent.
func (r *UnlockRepository) TryUnlock(ctx context.Context, unlock gamification.Unlock) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO achievement_unlocks (user_id, achievement_id, unlocked_at)
		VALUES (?, ?, ?)`,
		string(unlock.UserID), string(unlock.AchievementID), unlock.UnlockedAt,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: insert unlock: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: insert unlock: %w", err)
	}
	return n > 0, nil
}

// ListByUser returns all unlocks for the user.
func (r *UnlockRepository) ListByUser(ctx context.Context, userID shared.UserID) ([]gamification.Unlock, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, achievement_id, unlocked_at
		FROM achievement_unlocks WHERE user_id = ?
		ORDER BY unlocked_at DESC`,
		string(userID),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list unlocks: %w", err)
	}
	defer rows.Close()

	unlocks := make([]gamification.Unlock, 0)
	for rows.Next() {
		var (
			unlock        gamification.Unlock
			uid, achievID string
		)
		if err := rows.Scan(&uid, &achievID, &unlock.UnlockedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan unlock: %w", err)
		}
		unlock.UserID = shared.UserID(uid)
		unlock.AchievementID = gamification.AchievementID(achievID)
		unlocks = append(unlocks, unlock)
	}
	return unlocks, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// gamification.StreakHistoryRepository
// ─────────────────────────────────────────────────────────────────────────────

// StreakHistory returns the streak history repository view of the store.
func (s *Store) StreakHistory() *StreakHistoryRepository {
	return &StreakHistoryRepository{db: s.db}
}

// StreakHistoryRepository implements gamification.StreakHistoryRepository.
type StreakHistoryRepository struct {
	db *sql.DB
}

// Upsert inserts or replaces the entry keyed by (habit, user, day).
func (r *StreakHistoryRepository) Upsert(ctx context.Context, entry gamification.StreakHistoryEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO streak_history (habit_id, user_id, day, length, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (habit_id, user_id, day)
		DO UPDATE SET length = excluded.length, updated_at = excluded.updated_at`,
		string(entry.HabitID), string(entry.UserID), entry.Day, entry.Length, entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upsert streak history: %w", err)
	}
	return nil
}

// GetForDay returns the entry for (habit, user, day).
func (r *StreakHistoryRepository) GetForDay(ctx context.Context, habitID shared.HabitID, userID shared.UserID, day string) (gamification.StreakHistoryEntry, error) {
	var (
		entry    gamification.StreakHistoryEntry
		hid, uid string
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT habit_id, user_id, day, length, updated_at
		FROM streak_history WHERE habit_id = ? AND user_id = ? AND day = ?`,
		string(habitID), string(userID), day,
	).Scan(&hid, &uid, &entry.Day, &entry.Length, &entry.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return gamification.StreakHistoryEntry{}, shared.ErrNotFound
		}
		return gamification.StreakHistoryEntry{}, fmt.Errorf("sqlite: get streak history: %w", err)
	}

	entry.HabitID = shared.HabitID(hid)
	entry.UserID = shared.UserID(uid)
	return entry, nil
}

// ListRecent returns up to limit entries for (habit, user), newest first.
func (r *StreakHistoryRepository) ListRecent(ctx context.Context, habitID shared.HabitID, userID shared.UserID, limit int) ([]gamification.StreakHistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT habit_id, user_id, day, length, updated_at
		FROM streak_history WHERE habit_id = ? AND user_id = ?
		ORDER BY day DESC LIMIT ?`,
		string(habitID), string(userID), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list streak history: %w", err)
	}
	defer rows.Close()

	entries := make([]gamification.StreakHistoryEntry, 0, limit)
	for rows.Next() {
		var (
			entry    gamification.StreakHistoryEntry
			hid, uid string
		)
		if err := rows.Scan(&hid, &uid, &entry.Day, &entry.Length, &entry.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan streak history: %w", err)
		}
		entry.HabitID = shared.HabitID(hid)
		entry.UserID = shared.UserID(uid)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// feed.Repository
// ─────────────────────────────────────────────────────────────────────────────

// Feed returns the feed repository view of the store.
func (s *Store) Feed() *FeedRepository {
	return &FeedRepository{db: s.db}
}

// FeedRepository implements feed.Repository.
type FeedRepository struct {
	db *sql.DB
}

// ExistsForDay reports whether an event already exists for (user, habit, day).
func (r *FeedRepository) ExistsForDay(ctx context.Context, userID shared.UserID, habitID shared.HabitID, dayKey string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM feed_events
		WHERE user_id = ? AND habit_id = ? AND day_key = ?`,
		string(userID), string(habitID), dayKey,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlite: check feed event: %w", err)
	}
	return count > 0, nil
}

// Insert records a feed event.
func (r *FeedRepository) Insert(ctx context.Context, event *feed.Event) error {
	payloadJSON, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("sqlite: marshal feed payload: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO feed_events (id, user_id, habit_id, event_type, day_key, payload, visibility, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, string(event.UserID), string(event.HabitID), string(event.Type),
		event.DayKey, string(payloadJSON), string(event.Visibility), event.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.ErrFeedEventExists
		}
		return fmt.Errorf("sqlite: insert feed event: %w", err)
	}
	return nil
}

// ListRecent returns up to limit events for the user, newest first.
func (r *FeedRepository) ListRecent(ctx context.Context, userID shared.UserID, limit int) ([]*feed.Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, habit_id, event_type, day_key, payload, visibility, created_at
		FROM feed_events WHERE user_id = ?
		ORDER BY created_at DESC LIMIT ?`,
		string(userID), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list feed events: %w", err)
	}
	defer rows.Close()

	events := make([]*feed.Event, 0, limit)
	for rows.Next() {
		var event feed.Event
		var uid, hid, eventType, visibility, payloadJSON string

		if err := rows.Scan(&event.ID, &uid, &hid, &eventType, &event.DayKey, &payloadJSON, &visibility, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan feed event: %w", err)
		}

		event.UserID = shared.UserID(uid)
		event.HabitID = shared.HabitID(hid)
		event.Type = feed.EventType(eventType)
		event.Visibility = feed.Visibility(visibility)

		if err := json.Unmarshal([]byte(payloadJSON), &event.Payload); err != nil {
			return nil, fmt.Errorf("sqlite: unmarshal feed payload: %w", err)
		}

		events = append(events, &event)
	}
	return events, rows.Err()
}

// DeleteForDay removes the event for (user, habit, day), if any.
func (r *FeedRepository) DeleteForDay(ctx context.Context, userID shared.UserID, habitID shared.HabitID, dayKey string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM feed_events WHERE user_id = ? AND habit_id = ? AND day_key = ?`,
		string(userID), string(habitID), dayKey,
	)
	if err != nil {
		return fmt.Errorf("sqlite: delete feed event: %w", err)
	}
	return nil
}
