// Package postgres implements the PostgreSQL persistence layer for HabitForge.
package postgres

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_habits",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_gamification",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_feed",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE HABITS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create habits and completions tables
-- Version: 001

CREATE TABLE IF NOT EXISTS habits (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL,
    name VARCHAR(100) NOT NULL,
    icon VARCHAR(16) NOT NULL DEFAULT '',
    xp_reward INTEGER NOT NULL DEFAULT 10,
    difficulty VARCHAR(10) NOT NULL DEFAULT 'normal',
    archived BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_difficulty CHECK (difficulty IN ('normal', 'hard')),
    CONSTRAINT valid_xp_reward CHECK (xp_reward > 0)
);

CREATE INDEX IF NOT EXISTS idx_habits_user_id ON habits(user_id);
CREATE INDEX IF NOT EXISTS idx_habits_user_active ON habits(user_id) WHERE archived = FALSE;

-- Completion log. Multiple completions of the same habit on the same day are
-- allowed; the gamification reads collapse them to calendar days.
CREATE TABLE IF NOT EXISTS completions (
    id UUID PRIMARY KEY,
    habit_id UUID NOT NULL REFERENCES habits(id) ON DELETE CASCADE,
    user_id UUID NOT NULL,
    completed_at TIMESTAMP WITH TIME ZONE NOT NULL,
    note TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_completions_habit_user ON completions(habit_id, user_id, completed_at DESC);
CREATE INDEX IF NOT EXISTS idx_completions_user_time ON completions(user_id, completed_at DESC);
`

const migration001Down = `
DROP TABLE IF EXISTS completions;
DROP TABLE IF EXISTS habits;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE GAMIFICATION
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create XP ledger, streak history and achievement unlocks
-- Version: 002

-- Append-only XP ledger. The sum over a user's rows is the authoritative
-- total; any cached total must be reconcilable against this table.
CREATE TABLE IF NOT EXISTS xp_ledger (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL,
    amount INTEGER NOT NULL,
    source VARCHAR(30) NOT NULL,
    source_id VARCHAR(100) NOT NULL,
    metadata JSONB,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_source CHECK (source IN ('habit_completion', 'achievement'))
);

CREATE INDEX IF NOT EXISTS idx_xp_ledger_user ON xp_ledger(user_id);
CREATE INDEX IF NOT EXISTS idx_xp_ledger_user_time ON xp_ledger(user_id, created_at DESC);

-- One streak length per (habit, user, day). Re-completions on the same day
-- overwrite the row instead of appending.
CREATE TABLE IF NOT EXISTS streak_history (
    habit_id UUID NOT NULL,
    user_id UUID NOT NULL,
    day DATE NOT NULL,
    length INTEGER NOT NULL,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (habit_id, user_id, day),
    CONSTRAINT valid_length CHECK (length >= 1)
);

CREATE INDEX IF NOT EXISTS idx_streak_history_user_day ON streak_history(user_id, day DESC);

-- Unlock set. The primary key makes unlocks idempotent: a second insert for
-- the same (user, achievement) is a no-op via ON CONFLICT DO NOTHING.
CREATE TABLE IF NOT EXISTS achievement_unlocks (
    user_id UUID NOT NULL,
    achievement_id VARCHAR(50) NOT NULL,
    unlocked_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (user_id, achievement_id)
);

CREATE INDEX IF NOT EXISTS idx_achievement_unlocks_user ON achievement_unlocks(user_id, unlocked_at DESC);
`

const migration002Down = `
DROP TABLE IF EXISTS achievement_unlocks;
DROP TABLE IF EXISTS streak_history;
DROP TABLE IF EXISTS xp_ledger;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE FEED
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create feed events table
-- Version: 003

-- At most one feed event per (user, habit, day). The unique index is the
-- hard backstop behind the existence pre-check in the emitter.
CREATE TABLE IF NOT EXISTS feed_events (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL,
    habit_id UUID NOT NULL,
    event_type VARCHAR(30) NOT NULL,
    day_key DATE NOT NULL,
    payload JSONB NOT NULL,
    visibility VARCHAR(10) NOT NULL DEFAULT 'public',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_event_type CHECK (event_type IN ('habit_completion', 'streak_milestone')),
    CONSTRAINT valid_visibility CHECK (visibility IN ('public', 'private')),

    UNIQUE(user_id, habit_id, day_key)
);

CREATE INDEX IF NOT EXISTS idx_feed_events_user_time ON feed_events(user_id, created_at DESC);
`

const migration003Down = `
DROP TABLE IF EXISTS feed_events;
`
