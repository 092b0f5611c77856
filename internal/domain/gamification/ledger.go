package gamification

import (
	"context"
	"time"

	"github.com/habitforge/habitforge/internal/domain/shared"
)

// Ledger entry sources.
const (
	// SourceHabitCompletion marks XP earned by completing a habit.
	SourceHabitCompletion = "habit_completion"

	// SourceAchievement marks XP awarded by an achievement unlock.
	SourceAchievement = "achievement"
)

// LedgerEntry is one append-only XP award. A user's total XP is always the
// sum of their entries - it is never stored denormalized as the source of
// truth, so it cannot drift from the ledger.
type LedgerEntry struct {
	// ID - unique entry identifier.
	ID string

	// UserID - the user who earned the XP.
	UserID shared.UserID

	// Amount - XP awarded. Non-negative.
	Amount shared.XP

	// Source - what produced the entry (habit_completion, achievement).
	Source string

	// SourceID - the habit or achievement that produced it.
	SourceID string

	// Metadata - contextual data (habit name, streak, bonus flags).
	Metadata map[string]interface{}

	// CreatedAt - when the entry was appended.
	CreatedAt time.Time
}

// NewLedgerEntry creates a validated ledger entry.
func NewLedgerEntry(id string, userID shared.UserID, amount shared.XP, source, sourceID string, metadata map[string]interface{}, now time.Time) (*LedgerEntry, error) {
	if userID.IsEmpty() {
		return nil, shared.ErrMissingUserID
	}
	if amount < 0 {
		return nil, shared.ErrInvalidXPAmount
	}

	return &LedgerEntry{
		ID:        id,
		UserID:    userID,
		Amount:    amount,
		Source:    source,
		SourceID:  sourceID,
		Metadata:  metadata,
		CreatedAt: now,
	}, nil
}

// LedgerRepository defines persistence for the append-only XP ledger.
type LedgerRepository interface {
	// Append inserts a ledger entry. Entries are never updated or deleted.
	Append(ctx context.Context, entry *LedgerEntry) error

	// TotalForUser returns the sum of all entry amounts for the user.
	// This is the authoritative TotalXP; caches layered on top must
	// recompute from here on any miss.
	TotalForUser(ctx context.Context, userID shared.UserID) (shared.XP, error)

	// ListRecent returns up to limit entries for the user, newest first.
	ListRecent(ctx context.Context, userID shared.UserID, limit int) ([]*LedgerEntry, error)
}
