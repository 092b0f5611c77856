// Package postgres implements the PostgreSQL persistence layer for HabitForge.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/habitforge/habitforge/internal/domain/gamification"
	"github.com/habitforge/habitforge/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// XP LEDGER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// LedgerRepository implements gamification.LedgerRepository for PostgreSQL.
type LedgerRepository struct {
	conn *Connection
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(conn *Connection) *LedgerRepository {
	return &LedgerRepository{conn: conn}
}

// Append inserts a ledger entry. Entries are never updated or deleted.
func (r *LedgerRepository) Append(ctx context.Context, entry *gamification.LedgerEntry) error {
	query := `
		INSERT INTO xp_ledger (id, user_id, amount, source, source_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	var metadataJSON []byte
	if entry.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal ledger metadata: %w", err)
		}
	}

	_, err := r.conn.Exec(ctx, query,
		entry.ID,
		string(entry.UserID),
		int(entry.Amount),
		entry.Source,
		entry.SourceID,
		metadataJSON,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	return nil
}

// TotalForUser returns the sum of all entry amounts for the user.
func (r *LedgerRepository) TotalForUser(ctx context.Context, userID shared.UserID) (shared.XP, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM xp_ledger WHERE user_id = $1`

	var total int64
	if err := r.conn.QueryRow(ctx, query, string(userID)).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum ledger: %w", err)
	}

	return shared.XP(total), nil
}

// ListRecent returns up to limit entries for the user, newest first.
func (r *LedgerRepository) ListRecent(ctx context.Context, userID shared.UserID, limit int) ([]*gamification.LedgerEntry, error) {
	query := `
		SELECT id, user_id, amount, source, source_id, metadata, created_at
		FROM xp_ledger
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, string(userID), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*gamification.LedgerEntry, 0, limit)
	for rows.Next() {
		var (
			entry        gamification.LedgerEntry
			uid          string
			amount       int
			metadataJSON []byte
		)

		if err := rows.Scan(&entry.ID, &uid, &amount, &entry.Source, &entry.SourceID, &metadataJSON, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}

		entry.UserID = shared.UserID(uid)
		entry.Amount = shared.XP(amount)

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal ledger metadata: %w", err)
			}
		}

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT UNLOCK REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// UnlockRepository implements gamification.UnlockRepository for PostgreSQL.
type UnlockRepository struct {
	conn *Connection
}

// NewUnlockRepository creates a new UnlockRepository.
func NewUnlockRepository(conn *Connection) *UnlockRepository {
	return &UnlockRepository{conn: conn}
}

// TryUnlock records the unlock if absent. The ON CONFLICT clause makes the
// insert-if-absent atomic; RowsAffected distinguishes "created" from
// "already there".
func (r *UnlockRepository) TryUnlock(ctx context.Context, unlock gamification.Unlock) (bool, error) {
	query := `
		INSERT INTO achievement_unlocks (user_id, achievement_id, unlocked_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, achievement_id) DO NOTHING
	`

	result, err := r.conn.Exec(ctx, query,
		string(unlock.UserID),
		string(unlock.AchievementID),
		unlock.UnlockedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert unlock: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// ListByUser returns all unlocks for the user.
func (r *UnlockRepository) ListByUser(ctx context.Context, userID shared.UserID) ([]gamification.Unlock, error) {
	query := `
		SELECT user_id, achievement_id, unlocked_at
		FROM achievement_unlocks
		WHERE user_id = $1
		ORDER BY unlocked_at DESC
	`

	rows, err := r.conn.Query(ctx, query, string(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to list unlocks: %w", err)
	}
	defer rows.Close()

	unlocks := make([]gamification.Unlock, 0)
	for rows.Next() {
		var (
			unlock        gamification.Unlock
			uid, achievID string
		)

		if err := rows.Scan(&uid, &achievID, &unlock.UnlockedAt); err != nil {
			return nil, fmt.Errorf("failed to scan unlock: %w", err)
		}

		unlock.UserID = shared.UserID(uid)
		unlock.AchievementID = gamification.AchievementID(achievID)
		unlocks = append(unlocks, unlock)
	}

	return unlocks, rows.Err()
}

// ══════════════════════════════════════════════════════════════════════════════
// STREAK HISTORY REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// StreakHistoryRepository implements gamification.StreakHistoryRepository for PostgreSQL.
type StreakHistoryRepository struct {
	conn *Connection
}

// NewStreakHistoryRepository creates a new StreakHistoryRepository.
func NewStreakHistoryRepository(conn *Connection) *StreakHistoryRepository {
	return &StreakHistoryRepository{conn: conn}
}

// Upsert inserts or replaces the entry keyed by (habit, user, day).
func (r *StreakHistoryRepository) Upsert(ctx context.Context, entry gamification.StreakHistoryEntry) error {
	query := `
		INSERT INTO streak_history (habit_id, user_id, day, length, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (habit_id, user_id, day)
		DO UPDATE SET length = EXCLUDED.length, updated_at = EXCLUDED.updated_at
	`

	_, err := r.conn.Exec(ctx, query,
		string(entry.HabitID),
		string(entry.UserID),
		entry.Day,
		entry.Length,
		entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert streak history: %w", err)
	}

	return nil
}

// GetForDay returns the entry for (habit, user, day).
func (r *StreakHistoryRepository) GetForDay(ctx context.Context, habitID shared.HabitID, userID shared.UserID, day string) (gamification.StreakHistoryEntry, error) {
	query := `
		SELECT habit_id, user_id, to_char(day, 'YYYY-MM-DD'), length, updated_at
		FROM streak_history
		WHERE habit_id = $1 AND user_id = $2 AND day = $3
	`

	var (
		entry    gamification.StreakHistoryEntry
		hid, uid string
	)

	err := r.conn.QueryRow(ctx, query, string(habitID), string(userID), day).
		Scan(&hid, &uid, &entry.Day, &entry.Length, &entry.UpdatedAt)
	if err != nil {
		if IsNoRows(err) {
			return gamification.StreakHistoryEntry{}, shared.ErrNotFound
		}
		return gamification.StreakHistoryEntry{}, fmt.Errorf("failed to get streak history: %w", err)
	}

	entry.HabitID = shared.HabitID(hid)
	entry.UserID = shared.UserID(uid)

	return entry, nil
}

// ListRecent returns up to limit entries for (habit, user), newest first.
func (r *StreakHistoryRepository) ListRecent(ctx context.Context, habitID shared.HabitID, userID shared.UserID, limit int) ([]gamification.StreakHistoryEntry, error) {
	query := `
		SELECT habit_id, user_id, to_char(day, 'YYYY-MM-DD'), length, updated_at
		FROM streak_history
		WHERE habit_id = $1 AND user_id = $2
		ORDER BY day DESC
		LIMIT $3
	`

	rows, err := r.conn.Query(ctx, query, string(habitID), string(userID), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list streak history: %w", err)
	}
	defer rows.Close()

	entries := make([]gamification.StreakHistoryEntry, 0, limit)
	for rows.Next() {
		var (
			entry    gamification.StreakHistoryEntry
			hid, uid string
		)

		if err := rows.Scan(&hid, &uid, &entry.Day, &entry.Length, &entry.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan streak history: %w", err)
		}

		entry.HabitID = shared.HabitID(hid)
		entry.UserID = shared.UserID(uid)
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
