// Package postgres implements the PostgreSQL persistence layer for HabitForge.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/habitforge/habitforge/internal/domain/habit"
	"github.com/habitforge/habitforge/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// HABIT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// HabitRepository implements habit.Repository for PostgreSQL.
type HabitRepository struct {
	conn *Connection
}

// NewHabitRepository creates a new HabitRepository.
func NewHabitRepository(conn *Connection) *HabitRepository {
	return &HabitRepository{conn: conn}
}

// Create inserts a new habit.
func (r *HabitRepository) Create(ctx context.Context, h *habit.Habit) error {
	query := `
		INSERT INTO habits (id, user_id, name, icon, xp_reward, difficulty, archived, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.conn.Exec(ctx, query,
		string(h.ID),
		string(h.UserID),
		h.Name,
		h.Icon,
		int(h.XPReward),
		string(h.Difficulty),
		h.Archived,
		h.CreatedAt,
		h.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrHabitAlreadyExists
		}
		return fmt.Errorf("failed to create habit: %w", err)
	}

	return nil
}

// GetByID returns a habit by ID.
func (r *HabitRepository) GetByID(ctx context.Context, id shared.HabitID) (*habit.Habit, error) {
	query := `
		SELECT id, user_id, name, icon, xp_reward, difficulty, archived, created_at, updated_at
		FROM habits
		WHERE id = $1
	`

	row := r.conn.QueryRow(ctx, query, string(id))
	return r.scanHabit(row)
}

// Update persists habit mutations.
func (r *HabitRepository) Update(ctx context.Context, h *habit.Habit) error {
	query := `
		UPDATE habits SET
			name = $1,
			icon = $2,
			xp_reward = $3,
			difficulty = $4,
			archived = $5,
			updated_at = $6
		WHERE id = $7
	`

	result, err := r.conn.Exec(ctx, query,
		h.Name,
		h.Icon,
		int(h.XPReward),
		string(h.Difficulty),
		h.Archived,
		h.UpdatedAt,
		string(h.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to update habit: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ErrHabitNotFound
	}

	return nil
}

// ListByUser returns the user's habits, optionally including archived ones.
func (r *HabitRepository) ListByUser(ctx context.Context, userID shared.UserID, includeArchived bool) ([]*habit.Habit, error) {
	query := `
		SELECT id, user_id, name, icon, xp_reward, difficulty, archived, created_at, updated_at
		FROM habits
		WHERE user_id = $1
	`
	if !includeArchived {
		query += " AND archived = FALSE"
	}
	query += " ORDER BY created_at"

	rows, err := r.conn.Query(ctx, query, string(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to list habits: %w", err)
	}
	defer rows.Close()

	habits := make([]*habit.Habit, 0)
	for rows.Next() {
		h, err := r.scanHabitRows(rows)
		if err != nil {
			return nil, err
		}
		habits = append(habits, h)
	}

	return habits, rows.Err()
}

// ListAllActive returns every non-archived habit across all users.
// Used by the worker's reminder and digest jobs.
func (r *HabitRepository) ListAllActive(ctx context.Context) ([]*habit.Habit, error) {
	query := `
		SELECT id, user_id, name, icon, xp_reward, difficulty, archived, created_at, updated_at
		FROM habits
		WHERE archived = FALSE
		ORDER BY user_id, created_at
	`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active habits: %w", err)
	}
	defer rows.Close()

	habits := make([]*habit.Habit, 0)
	for rows.Next() {
		h, err := r.scanHabitRows(rows)
		if err != nil {
			return nil, err
		}
		habits = append(habits, h)
	}

	return habits, rows.Err()
}

// CountActive returns the number of non-archived habits for the user.
func (r *HabitRepository) CountActive(ctx context.Context, userID shared.UserID) (int, error) {
	query := `SELECT COUNT(*) FROM habits WHERE user_id = $1 AND archived = FALSE`

	var count int
	if err := r.conn.QueryRow(ctx, query, string(userID)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active habits: %w", err)
	}

	return count, nil
}

func (r *HabitRepository) scanHabit(row pgx.Row) (*habit.Habit, error) {
	var (
		h          habit.Habit
		id, userID string
		xpReward   int
		difficulty string
	)

	err := row.Scan(&id, &userID, &h.Name, &h.Icon, &xpReward, &difficulty, &h.Archived, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrHabitNotFound
		}
		return nil, fmt.Errorf("failed to scan habit: %w", err)
	}

	h.ID = shared.HabitID(id)
	h.UserID = shared.UserID(userID)
	h.XPReward = shared.XP(xpReward)
	h.Difficulty = shared.Difficulty(difficulty)

	return &h, nil
}

func (r *HabitRepository) scanHabitRows(rows pgx.Rows) (*habit.Habit, error) {
	return r.scanHabit(rows)
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETION REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// CompletionRepository implements habit.CompletionRepository for PostgreSQL.
type CompletionRepository struct {
	conn *Connection
}

// NewCompletionRepository creates a new CompletionRepository.
func NewCompletionRepository(conn *Connection) *CompletionRepository {
	return &CompletionRepository{conn: conn}
}

// Insert appends a completion row.
func (r *CompletionRepository) Insert(ctx context.Context, c *habit.Completion) error {
	query := `
		INSERT INTO completions (id, habit_id, user_id, completed_at, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.conn.Exec(ctx, query,
		c.ID,
		string(c.HabitID),
		string(c.UserID),
		c.CompletedAt,
		c.Note,
		c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert completion: %w", err)
	}

	return nil
}

// ListRecent returns up to limit completions for (habit, user), newest first.
func (r *CompletionRepository) ListRecent(ctx context.Context, habitID shared.HabitID, userID shared.UserID, limit int) ([]*habit.Completion, error) {
	query := `
		SELECT id, habit_id, user_id, completed_at, note, created_at
		FROM completions
		WHERE habit_id = $1 AND user_id = $2
		ORDER BY completed_at DESC
		LIMIT $3
	`

	rows, err := r.conn.Query(ctx, query, string(habitID), string(userID), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list completions: %w", err)
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
	query := `
		SELECT id, habit_id, user_id, completed_at, note, created_at
		FROM completions
		WHERE habit_id = $1 AND user_id = $2
		ORDER BY completed_at DESC
		LIMIT 1
	`

	row := r.conn.QueryRow(ctx, query, string(habitID), string(userID))
	c, err := scanCompletion(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrCompletionNotFound
		}
		return nil, err
	}

	return c, nil
}

// Delete removes a completion by ID.
func (r *CompletionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.conn.Exec(ctx, `DELETE FROM completions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete completion: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ErrCompletionNotFound
	}

	return nil
}

// CountForUserBetween returns how many completions the user has in [from, to).
func (r *CompletionRepository) CountForUserBetween(ctx context.Context, userID shared.UserID, from, to time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM completions
		WHERE user_id = $1 AND completed_at >= $2 AND completed_at < $3
	`

	var count int
	if err := r.conn.QueryRow(ctx, query, string(userID), from, to).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count completions: %w", err)
	}

	return count, nil
}

// DistinctHabitsBetween returns how many distinct habits the user completed in [from, to).
func (r *CompletionRepository) DistinctHabitsBetween(ctx context.Context, userID shared.UserID, from, to time.Time) (int, error) {
	query := `
		SELECT COUNT(DISTINCT habit_id) FROM completions
		WHERE user_id = $1 AND completed_at >= $2 AND completed_at < $3
	`

	var count int
	if err := r.conn.QueryRow(ctx, query, string(userID), from, to).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count distinct habits: %w", err)
	}

	return count, nil
}

// CountForUser returns the user's all-time completion count.
func (r *CompletionRepository) CountForUser(ctx context.Context, userID shared.UserID) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM completions WHERE user_id = $1`, string(userID)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count completions: %w", err)
	}

	return count, nil
}

func scanCompletion(row pgx.Row) (*habit.Completion, error) {
	var (
		c               habit.Completion
		habitID, userID string
	)

	err := row.Scan(&c.ID, &habitID, &userID, &c.CompletedAt, &c.Note, &c.CreatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan completion: %w", err)
	}

	c.HabitID = shared.HabitID(habitID)
	c.UserID = shared.UserID(userID)

	return &c, nil
}
