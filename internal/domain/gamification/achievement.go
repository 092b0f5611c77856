package gamification

import (
	"context"
	"time"

	"github.com/habitforge/habitforge/internal/domain/shared"
	"github.com/habitforge/habitforge/pkg/logger"
	"github.com/habitforge/habitforge/pkg/timeutil"
)

// AchievementID identifies a catalog achievement.
type AchievementID string

// Catalog achievement IDs.
const (
	AchievementFirstCompletion AchievementID = "first_completion"
	AchievementStreak7         AchievementID = "streak_7"
	AchievementStreak30        AchievementID = "streak_30"
	AchievementStreak100       AchievementID = "streak_100"
	AchievementCompletions100  AchievementID = "completions_100"
	AchievementCompletions500  AchievementID = "completions_500"
	AchievementPerfectDay      AchievementID = "perfect_day"
	AchievementEarlyBird       AchievementID = "early_bird"
	AchievementNightOwl        AchievementID = "night_owl"
)

// ProgressSnapshot is the user's progress at evaluation time. Predicates are
// pure functions of this snapshot, which keeps the catalog extensible and
// the evaluator testable.
type ProgressSnapshot struct {
	// UserID - the user being evaluated.
	UserID shared.UserID

	// Streak - current consecutive-day streak of the completed habit.
	Streak int

	// TotalCompletions - all-time completion count across all habits.
	TotalCompletions int

	// DailyCompletions - the user's completion count today.
	DailyCompletions int

	// PerfectDay - whether every active habit has a completion today.
	PerfectDay bool

	// CompletionTime - when the triggering completion happened.
	CompletionTime time.Time

	// Location - timezone for time-of-day predicates. Nil means UTC.
	Location *time.Location
}

// Achievement is a static catalog definition: an unlock predicate plus the
// XP it awards.
type Achievement struct {
	ID          AchievementID
	Title       string
	Description string
	Icon        string
	XPAward     shared.XP
	Predicate   func(snap ProgressSnapshot) bool
}

// Catalog returns all achievement definitions. Static data; extend by
// appending entries with new predicates.
func Catalog() []Achievement {
	return []Achievement{
		{
			ID:          AchievementFirstCompletion,
			Title:       "First Step",
			Description: "Complete your first habit",
			Icon:        "🎯",
			XPAward:     25,
			Predicate: func(s ProgressSnapshot) bool {
				return s.TotalCompletions >= 1
			},
		},
		{
			ID:          AchievementStreak7,
			Title:       "Week of Fire",
			Description: "Keep a 7-day streak",
			Icon:        "🔥",
			XPAward:     100,
			Predicate: func(s ProgressSnapshot) bool {
				return s.Streak >= 7
			},
		},
		{
			ID:          AchievementStreak30,
			Title:       "Iron Will",
			Description: "Keep a 30-day streak",
			Icon:        "💪",
			XPAward:     500,
			Predicate: func(s ProgressSnapshot) bool {
				return s.Streak >= 30
			},
		},
		{
			ID:          AchievementStreak100,
			Title:       "Centurion",
			Description: "Keep a 100-day streak",
			Icon:        "🏛️",
			XPAward:     2000,
			Predicate: func(s ProgressSnapshot) bool {
				return s.Streak >= 100
			},
		},
		{
			ID:          AchievementCompletions100,
			Title:       "Century Club",
			Description: "Log 100 completions",
			Icon:        "💯",
			XPAward:     250,
			Predicate: func(s ProgressSnapshot) bool {
				return s.TotalCompletions >= 100
			},
		},
		{
			ID:          AchievementCompletions500,
			Title:       "Habit Machine",
			Description: "Log 500 completions",
			Icon:        "⚙️",
			XPAward:     1000,
			Predicate: func(s ProgressSnapshot) bool {
				return s.TotalCompletions >= 500
			},
		},
		{
			ID:          AchievementPerfectDay,
			Title:       "Perfect Day",
			Description: "Complete every active habit in one day",
			Icon:        "🌟",
			XPAward:     150,
			Predicate: func(s ProgressSnapshot) bool {
				return s.PerfectDay
			},
		},
		{
			ID:          AchievementEarlyBird,
			Title:       "Early Bird",
			Description: "Complete a habit before 7 AM",
			Icon:        "🐦",
			XPAward:     25,
			Predicate: func(s ProgressSnapshot) bool {
				return timeutil.HourOfDay(s.CompletionTime, s.Location) < 7
			},
		},
		{
			ID:          AchievementNightOwl,
			Title:       "Night Owl",
			Description: "Complete a habit after 10 PM",
			Icon:        "🦉",
			XPAward:     25,
			Predicate: func(s ProgressSnapshot) bool {
				return timeutil.HourOfDay(s.CompletionTime, s.Location) >= 22
			},
		},
	}
}

// CatalogByID returns a catalog achievement by ID.
func CatalogByID(id AchievementID) (Achievement, bool) {
	for _, a := range Catalog() {
		if a.ID == id {
			return a, true
		}
	}
	return Achievement{}, false
}

// Unlock records that a user unlocked an achievement. At most one row per
// (user, achievement) pair; its existence is the idempotency guard.
type Unlock struct {
	UserID        shared.UserID
	AchievementID AchievementID
	UnlockedAt    time.Time
}

// UnlockRepository defines persistence for achievement unlocks.
type UnlockRepository interface {
	// TryUnlock records the unlock if absent. Returns true when this call
	// created the row, false when the pair already existed. Must be atomic
	// (insert-if-absent): a duplicate attempt can never produce two rows.
	TryUnlock(ctx context.Context, unlock Unlock) (bool, error)

	// ListByUser returns all unlocks for the user.
	ListByUser(ctx context.Context, userID shared.UserID) ([]Unlock, error)
}

// Award is one newly unlocked achievement and the XP it granted.
type Award struct {
	Achievement Achievement
	XPAwarded   shared.XP
}

// IDGenerator mints ledger entry IDs. Satisfied by uuid-based generators.
type IDGenerator interface {
	NewID() string
}

// Evaluator checks the catalog against a progress snapshot and awards
// newly qualified achievements.
type Evaluator struct {
	catalog []Achievement
	unlocks UnlockRepository
	ledger  LedgerRepository
	ids     IDGenerator
	log     *logger.Logger
}

// NewEvaluator creates an achievement evaluator over the full catalog.
func NewEvaluator(unlocks UnlockRepository, ledger LedgerRepository, ids IDGenerator, log *logger.Logger) *Evaluator {
	if log == nil {
		log = logger.Default()
	}
	return &Evaluator{
		catalog: Catalog(),
		unlocks: unlocks,
		ledger:  ledger,
		ids:     ids,
		log:     log.With(logger.Component("achievement_evaluator")),
	}
}

// CheckAndAward evaluates every catalog predicate against the snapshot and
// awards achievements that newly qualify. Already-unlocked achievements are
// silently omitted - calling twice with identical params cannot double-award.
// A failure on one achievement is logged and does not stop the rest.
func (e *Evaluator) CheckAndAward(ctx context.Context, snap ProgressSnapshot) ([]Award, error) {
	if snap.UserID.IsEmpty() {
		return nil, shared.ErrMissingUserID
	}

	var awards []Award
	for _, achievement := range e.catalog {
		if !achievement.Predicate(snap) {
			continue
		}

		inserted, err := e.unlocks.TryUnlock(ctx, Unlock{
			UserID:        snap.UserID,
			AchievementID: achievement.ID,
			UnlockedAt:    snap.CompletionTime,
		})
		if err != nil {
			e.log.Error("achievement unlock failed",
				logger.UserID(snap.UserID.String()),
				logger.Achievement(string(achievement.ID)),
				logger.Err(err))
			continue
		}
		if !inserted {
			// Already unlocked - expected idempotency short-circuit.
			continue
		}

		entry, err := NewLedgerEntry(
			e.ids.NewID(),
			snap.UserID,
			achievement.XPAward,
			SourceAchievement,
			string(achievement.ID),
			map[string]interface{}{
				"title": achievement.Title,
				"icon":  achievement.Icon,
			},
			snap.CompletionTime,
		)
		if err != nil {
			e.log.Error("achievement ledger entry invalid",
				logger.Achievement(string(achievement.ID)),
				logger.Err(err))
			continue
		}
		if err := e.ledger.Append(ctx, entry); err != nil {
			e.log.Error("achievement XP append failed",
				logger.UserID(snap.UserID.String()),
				logger.Achievement(string(achievement.ID)),
				logger.Err(err))
			continue
		}

		awards = append(awards, Award{
			Achievement: achievement,
			XPAwarded:   achievement.XPAward,
		})
	}

	return awards, nil
}
