package gamification

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitforge/habitforge/internal/domain/shared"
)

// fakeUnlocks is an in-memory UnlockRepository for evaluator tests.
type fakeUnlocks struct {
	rows map[string]Unlock
}

func newFakeUnlocks() *fakeUnlocks {
	return &fakeUnlocks{rows: make(map[string]Unlock)}
}

func (f *fakeUnlocks) TryUnlock(_ context.Context, u Unlock) (bool, error) {
	key := string(u.UserID) + ":" + string(u.AchievementID)
	if _, exists := f.rows[key]; exists {
		return false, nil
	}
	f.rows[key] = u
	return true, nil
}

func (f *fakeUnlocks) ListByUser(_ context.Context, userID shared.UserID) ([]Unlock, error) {
	var out []Unlock
	for _, u := range f.rows {
		if u.UserID == userID {
			out = append(out, u)
		}
	}
	return out, nil
}

// fakeLedger is an in-memory LedgerRepository for evaluator tests.
type fakeLedger struct {
	entries []*LedgerEntry
}

func (f *fakeLedger) Append(_ context.Context, e *LedgerEntry) error {
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeLedger) TotalForUser(_ context.Context, userID shared.UserID) (shared.XP, error) {
	var total shared.XP
	for _, e := range f.entries {
		if e.UserID == userID {
			total += e.Amount
		}
	}
	return total, nil
}

func (f *fakeLedger) ListRecent(_ context.Context, userID shared.UserID, limit int) ([]*LedgerEntry, error) {
	var out []*LedgerEntry
	for _, e := range f.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type seqIDs struct{ n int }

func (s *seqIDs) NewID() string {
	s.n++
	return fmt.Sprintf("id-%d", s.n)
}

func noonSnapshot(userID shared.UserID) ProgressSnapshot {
	return ProgressSnapshot{
		UserID:         userID,
		Streak:         1,
		CompletionTime: time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC),
		Location:       time.UTC,
	}
}

func TestCheckAndAward_FirstCompletion(t *testing.T) {
	unlocks := newFakeUnlocks()
	ledger := &fakeLedger{}
	eval := NewEvaluator(unlocks, ledger, &seqIDs{}, nil)

	snap := noonSnapshot("user-1")
	snap.TotalCompletions = 1

	awards, err := eval.CheckAndAward(context.Background(), snap)
	require.NoError(t, err)
	require.Len(t, awards, 1)
	assert.Equal(t, AchievementFirstCompletion, awards[0].Achievement.ID)
	assert.Equal(t, shared.XP(25), awards[0].XPAwarded)

	// The award wrote a ledger entry.
	total, err := ledger.TotalForUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, shared.XP(25), total)
}

func TestCheckAndAward_Idempotent(t *testing.T) {
	unlocks := newFakeUnlocks()
	ledger := &fakeLedger{}
	eval := NewEvaluator(unlocks, ledger, &seqIDs{}, nil)

	snap := noonSnapshot("user-1")
	snap.TotalCompletions = 1

	first, err := eval.CheckAndAward(context.Background(), snap)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Identical snapshot again: nothing new, no extra XP.
	second, err := eval.CheckAndAward(context.Background(), snap)
	require.NoError(t, err)
	assert.Empty(t, second)

	total, _ := ledger.TotalForUser(context.Background(), "user-1")
	assert.Equal(t, shared.XP(25), total)
}

func TestCheckAndAward_MultipleAtOnce(t *testing.T) {
	unlocks := newFakeUnlocks()
	eval := NewEvaluator(unlocks, &fakeLedger{}, &seqIDs{}, nil)

	snap := noonSnapshot("user-1")
	snap.Streak = 7
	snap.TotalCompletions = 100
	snap.PerfectDay = true

	awards, err := eval.CheckAndAward(context.Background(), snap)
	require.NoError(t, err)

	ids := make(map[AchievementID]bool)
	for _, a := range awards {
		ids[a.Achievement.ID] = true
	}
	assert.True(t, ids[AchievementFirstCompletion])
	assert.True(t, ids[AchievementStreak7])
	assert.True(t, ids[AchievementCompletions100])
	assert.True(t, ids[AchievementPerfectDay])
	assert.False(t, ids[AchievementStreak30])
}

func TestCheckAndAward_TimeOfDayPredicates(t *testing.T) {
	run := func(hour int) map[AchievementID]bool {
		eval := NewEvaluator(newFakeUnlocks(), &fakeLedger{}, &seqIDs{}, nil)
		snap := noonSnapshot("user-1")
		snap.TotalCompletions = 1
		snap.CompletionTime = time.Date(2026, 8, 28, hour, 30, 0, 0, time.UTC)

		awards, err := eval.CheckAndAward(context.Background(), snap)
		require.NoError(t, err)
		ids := make(map[AchievementID]bool)
		for _, a := range awards {
			ids[a.Achievement.ID] = true
		}
		return ids
	}

	assert.True(t, run(6)[AchievementEarlyBird])
	assert.False(t, run(7)[AchievementEarlyBird])
	assert.True(t, run(22)[AchievementNightOwl])
	assert.False(t, run(21)[AchievementNightOwl])
}

func TestCheckAndAward_MissingUser(t *testing.T) {
	eval := NewEvaluator(newFakeUnlocks(), &fakeLedger{}, &seqIDs{}, nil)

	_, err := eval.CheckAndAward(context.Background(), ProgressSnapshot{})
	assert.ErrorIs(t, err, shared.ErrMissingUserID)
}

func TestCatalogByID(t *testing.T) {
	a, ok := CatalogByID(AchievementStreak30)
	require.True(t, ok)
	assert.Equal(t, shared.XP(500), a.XPAward)

	_, ok = CatalogByID("no_such_achievement")
	assert.False(t, ok)
}

func TestCatalog_CompletionTotalThresholds(t *testing.T) {
	// The cumulative-completion tiers unlock at exactly 1, 100 and 500.
	tests := []struct {
		id        AchievementID
		threshold int
	}{
		{AchievementFirstCompletion, 1},
		{AchievementCompletions100, 100},
		{AchievementCompletions500, 500},
	}

	for _, tt := range tests {
		a, ok := CatalogByID(tt.id)
		require.True(t, ok, string(tt.id))

		below := ProgressSnapshot{TotalCompletions: tt.threshold - 1}
		at := ProgressSnapshot{TotalCompletions: tt.threshold}
		assert.False(t, a.Predicate(below), "%s below threshold", tt.id)
		assert.True(t, a.Predicate(at), "%s at threshold", tt.id)
	}
}
