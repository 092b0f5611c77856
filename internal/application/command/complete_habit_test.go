package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitforge/habitforge/internal/domain/gamification"
	"github.com/habitforge/habitforge/internal/domain/habit"
	"github.com/habitforge/habitforge/internal/domain/shared"
	"github.com/habitforge/habitforge/internal/infrastructure/persistence/memory"
)

// testEngine wires a complete pipeline over the in-memory store, matching
// the production wiring in cmd/server minus Redis and the event bus.
type testEngine struct {
	store    *memory.Store
	complete *CompleteHabitHandler
	undo     *UndoCompletionHandler
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()

	store := memory.NewStore()
	ids := UUIDGenerator{}

	streaks := gamification.NewStreakCalculator(store.Completions(), time.UTC)
	evaluator := gamification.NewEvaluator(store.Unlocks(), store.Ledger(), ids, nil)

	complete := NewCompleteHabitHandler(
		store.Habits(), store.Completions(), store.Ledger(), store.StreakHistory(), store.Feed(),
		streaks, evaluator, nil, nil, ids, time.UTC, Options{}, nil,
	)
	undo := NewUndoCompletionHandler(store.Completions(), nil, nil)

	return &testEngine{store: store, complete: complete, undo: undo}
}

func (e *testEngine) addHabit(t *testing.T, id shared.HabitID, userID shared.UserID, difficulty shared.Difficulty, now time.Time) *habit.Habit {
	t.Helper()
	h, err := habit.NewHabit(id, userID, "Habit "+string(id), "✅", habit.DefaultXPReward, difficulty, now)
	require.NoError(t, err)
	require.NoError(t, e.store.Habits().Create(context.Background(), h))
	return h
}

func (e *testEngine) totalXP(t *testing.T, userID shared.UserID) int {
	t.Helper()
	total, err := e.store.Ledger().TotalForUser(context.Background(), userID)
	require.NoError(t, err)
	return total.Int()
}

var day1 = time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

func TestCompleteHabit_FirstEverCompletion(t *testing.T) {
	engine := newTestEngine(t)
	engine.addHabit(t, "habit-1", "user-1", shared.DifficultyNormal, day1.Add(-time.Hour))

	res, err := engine.complete.Handle(context.Background(), CompleteHabitCommand{
		UserID:    "user-1",
		HabitID:   "habit-1",
		Timestamp: day1,
	})
	require.NoError(t, err)
	require.True(t, res.Success)

	// base 10 + first-today 5 + perfect-day 20 (the only habit is done).
	assert.Equal(t, 35, res.XPEarned)
	assert.Equal(t, 1, res.StreakCount)
	assert.True(t, res.IsFirstToday)
	assert.True(t, res.IsPerfectDay)
	assert.False(t, res.LeveledUp)
	assert.Equal(t, 1, res.NewLevel)

	// Achievements: first_completion (25) and perfect_day (150).
	ids := make(map[gamification.AchievementID]bool)
	for _, a := range res.NewAchievements {
		ids[a.Achievement.ID] = true
	}
	assert.True(t, ids[gamification.AchievementFirstCompletion])
	assert.True(t, ids[gamification.AchievementPerfectDay])

	// Ledger holds completion XP plus achievement XP.
	assert.Equal(t, 35+25+150, engine.totalXP(t, "user-1"))
}

func TestCompleteHabit_SecondCompletionSameDay(t *testing.T) {
	engine := newTestEngine(t)
	engine.addHabit(t, "habit-1", "user-1", shared.DifficultyNormal, day1.Add(-time.Hour))

	ctx := context.Background()
	cmd := CompleteHabitCommand{UserID: "user-1", HabitID: "habit-1", Timestamp: day1}
	_, err := engine.complete.Handle(ctx, cmd)
	require.NoError(t, err)

	cmd.Timestamp = day1.Add(2 * time.Hour)
	res, err := engine.complete.Handle(ctx, cmd)
	require.NoError(t, err)

	// No first-today bonus the second time; perfect day still holds.
	assert.False(t, res.IsFirstToday)
	assert.True(t, res.IsPerfectDay)
	assert.Equal(t, 30, res.XPEarned)

	// Streak stays 1: same calendar day counts once.
	assert.Equal(t, 1, res.StreakCount)

	// No achievement can unlock twice.
	assert.Empty(t, res.NewAchievements)
}

func TestCompleteHabit_StreakAcrossDays(t *testing.T) {
	engine := newTestEngine(t)
	engine.addHabit(t, "habit-1", "user-1", shared.DifficultyNormal, day1.AddDate(0, 0, -3))

	ctx := context.Background()
	var res *CompleteHabitResult
	var err error
	for offset := -2; offset <= 0; offset++ {
		res, err = engine.complete.Handle(ctx, CompleteHabitCommand{
			UserID:    "user-1",
			HabitID:   "habit-1",
			Timestamp: day1.AddDate(0, 0, offset),
		})
		require.NoError(t, err)
	}

	assert.Equal(t, 3, res.StreakCount)
	assert.Equal(t, 2, res.Breakdown.StreakBonus.Int())
}

// brokenLedger fails every Append while delegating reads to the real ledger.
type brokenLedger struct {
	gamification.LedgerRepository
}

func (brokenLedger) Append(context.Context, *gamification.LedgerEntry) error {
	return assert.AnError
}

func TestCompleteHabit_LedgerAppendFailureRollsBack(t *testing.T) {
	store := memory.NewStore()
	ids := UUIDGenerator{}
	ledger := brokenLedger{store.Ledger()}

	streaks := gamification.NewStreakCalculator(store.Completions(), time.UTC)
	evaluator := gamification.NewEvaluator(store.Unlocks(), store.Ledger(), ids, nil)
	complete := NewCompleteHabitHandler(
		store.Habits(), store.Completions(), ledger, store.StreakHistory(), store.Feed(),
		streaks, evaluator, nil, nil, ids, time.UTC, Options{}, nil,
	)

	ctx := context.Background()
	h, err := habit.NewHabit("habit-1", "user-1", "Meditate", "", habit.DefaultXPReward, shared.DifficultyNormal, day1.Add(-time.Hour))
	require.NoError(t, err)
	require.NoError(t, store.Habits().Create(ctx, h))

	res, err := complete.Handle(ctx, CompleteHabitCommand{
		UserID:    "user-1",
		HabitID:   "habit-1",
		Timestamp: day1,
	})

	// The XP award is consistency-critical: no entry means no completion.
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, shared.ErrExternalService)
	assert.True(t, IsFatal(err))

	count, err := store.Completions().CountForUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count, "completion row must be rolled back")

	total, err := store.Ledger().TotalForUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, total.Int())
}

func TestCompleteHabit_MilestoneFiresOncePerDay(t *testing.T) {
	engine := newTestEngine(t)
	engine.addHabit(t, "habit-1", "user-1", shared.DifficultyNormal, day1.AddDate(0, 0, -7))

	ctx := context.Background()
	cmd := CompleteHabitCommand{UserID: "user-1", HabitID: "habit-1"}

	var res *CompleteHabitResult
	var err error
	for offset := -6; offset <= 0; offset++ {
		cmd.Timestamp = day1.AddDate(0, 0, offset)
		res, err = engine.complete.Handle(ctx, cmd)
		require.NoError(t, err)
	}

	// The seventh consecutive day crosses the 7-day bracket.
	require.Equal(t, 7, res.StreakCount)
	assert.Equal(t, gamification.CelebrationMilestone, res.CelebrationType)

	// A repeat completion the same day keeps the streak at 7; the bracket
	// was already crossed this morning, so it falls back to the every-7th
	// streak celebration.
	cmd.Timestamp = day1.Add(3 * time.Hour)
	res, err = engine.complete.Handle(ctx, cmd)
	require.NoError(t, err)
	require.Equal(t, 7, res.StreakCount)
	assert.Equal(t, gamification.CelebrationStreak, res.CelebrationType)
}

func TestCompleteHabit_HardHabitBonus(t *testing.T) {
	engine := newTestEngine(t)
	engine.addHabit(t, "habit-1", "user-1", shared.DifficultyHard, day1.Add(-time.Hour))

	res, err := engine.complete.Handle(context.Background(), CompleteHabitCommand{
		UserID:    "user-1",
		HabitID:   "habit-1",
		Timestamp: day1,
	})
	require.NoError(t, err)

	assert.Equal(t, 5, res.Breakdown.DifficultyBonus.Int())
	assert.Equal(t, 40, res.XPEarned)
}

func TestCompleteHabit_PerfectDayRequiresAllHabits(t *testing.T) {
	engine := newTestEngine(t)
	engine.addHabit(t, "habit-1", "user-1", shared.DifficultyNormal, day1.Add(-2*time.Hour))
	engine.addHabit(t, "habit-2", "user-1", shared.DifficultyNormal, day1.Add(-time.Hour))

	ctx := context.Background()
	res, err := engine.complete.Handle(ctx, CompleteHabitCommand{
		UserID: "user-1", HabitID: "habit-1", Timestamp: day1,
	})
	require.NoError(t, err)
	assert.False(t, res.IsPerfectDay, "one of two habits done is not perfect")

	res, err = engine.complete.Handle(ctx, CompleteHabitCommand{
		UserID: "user-1", HabitID: "habit-2", Timestamp: day1.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.True(t, res.IsPerfectDay, "both habits done completes the day")
	assert.Equal(t, 20, res.Breakdown.PerfectDayBonus.Int())
}

func TestCompleteHabit_ArchivedHabitsExcludedFromPerfectDay(t *testing.T) {
	engine := newTestEngine(t)
	engine.addHabit(t, "habit-1", "user-1", shared.DifficultyNormal, day1.Add(-2*time.Hour))
	archived := engine.addHabit(t, "habit-2", "user-1", shared.DifficultyNormal, day1.Add(-time.Hour))

	archived.Archive(day1)
	require.NoError(t, engine.store.Habits().Update(context.Background(), archived))

	res, err := engine.complete.Handle(context.Background(), CompleteHabitCommand{
		UserID: "user-1", HabitID: "habit-1", Timestamp: day1,
	})
	require.NoError(t, err)
	assert.True(t, res.IsPerfectDay, "archived habit must not block a perfect day")
}

func TestCompleteHabit_FeedEventOncePerDay(t *testing.T) {
	engine := newTestEngine(t)
	engine.addHabit(t, "habit-1", "user-1", shared.DifficultyNormal, day1.Add(-time.Hour))

	ctx := context.Background()
	cmd := CompleteHabitCommand{UserID: "user-1", HabitID: "habit-1", Timestamp: day1}
	_, err := engine.complete.Handle(ctx, cmd)
	require.NoError(t, err)

	cmd.Timestamp = day1.Add(3 * time.Hour)
	_, err = engine.complete.Handle(ctx, cmd)
	require.NoError(t, err)

	events, err := engine.store.Feed().ListRecent(ctx, "user-1", 10)
	require.NoError(t, err)
	assert.Len(t, events, 1, "at most one feed event per habit per day")

	// Next day gets its own event.
	cmd.Timestamp = day1.AddDate(0, 0, 1)
	_, err = engine.complete.Handle(ctx, cmd)
	require.NoError(t, err)

	events, err = engine.store.Feed().ListRecent(ctx, "user-1", 10)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestCompleteHabit_LevelUp(t *testing.T) {
	engine := newTestEngine(t)
	engine.addHabit(t, "habit-1", "user-1", shared.DifficultyNormal, day1.Add(-time.Hour))

	ctx := context.Background()

	// Seed the ledger just below the level boundary.
	seed, err := gamification.NewLedgerEntry("seed-1", "user-1", 980, gamification.SourceHabitCompletion, "seed", nil, day1.Add(-time.Minute))
	require.NoError(t, err)
	require.NoError(t, engine.store.Ledger().Append(ctx, seed))

	res, err := engine.complete.Handle(ctx, CompleteHabitCommand{
		UserID: "user-1", HabitID: "habit-1", Timestamp: day1,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.OldLevel)
	assert.Equal(t, 2, res.NewLevel)
	assert.True(t, res.LeveledUp)
	assert.Equal(t, gamification.CelebrationLevelUp, res.CelebrationType)
}

func TestCompleteHabit_StreakHistorySnapshot(t *testing.T) {
	engine := newTestEngine(t)
	engine.addHabit(t, "habit-1", "user-1", shared.DifficultyNormal, day1.Add(-time.Hour))

	ctx := context.Background()
	_, err := engine.complete.Handle(ctx, CompleteHabitCommand{
		UserID: "user-1", HabitID: "habit-1", Timestamp: day1,
	})
	require.NoError(t, err)

	entry, err := engine.store.StreakHistory().GetForDay(ctx, "habit-1", "user-1", "2026-08-28")
	require.NoError(t, err)
	assert.Equal(t, 1, entry.Length)
}

func TestCompleteHabit_Validation(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.complete.Handle(ctx, CompleteHabitCommand{HabitID: "habit-1"})
	assert.ErrorIs(t, err, shared.ErrMissingUserID)

	_, err = engine.complete.Handle(ctx, CompleteHabitCommand{UserID: "user-1"})
	assert.ErrorIs(t, err, shared.ErrInvalidID)
}

func TestCompleteHabit_OwnershipAndArchival(t *testing.T) {
	engine := newTestEngine(t)
	h := engine.addHabit(t, "habit-1", "user-1", shared.DifficultyNormal, day1.Add(-time.Hour))

	ctx := context.Background()

	_, err := engine.complete.Handle(ctx, CompleteHabitCommand{
		UserID: "intruder", HabitID: "habit-1", Timestamp: day1,
	})
	assert.ErrorIs(t, err, shared.ErrForbidden)

	h.Archive(day1)
	require.NoError(t, engine.store.Habits().Update(ctx, h))

	_, err = engine.complete.Handle(ctx, CompleteHabitCommand{
		UserID: "user-1", HabitID: "habit-1", Timestamp: day1,
	})
	assert.ErrorIs(t, err, shared.ErrArchived)

	_, err = engine.complete.Handle(ctx, CompleteHabitCommand{
		UserID: "user-1", HabitID: "no-such-habit", Timestamp: day1,
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUndoCompletion(t *testing.T) {
	engine := newTestEngine(t)
	engine.addHabit(t, "habit-1", "user-1", shared.DifficultyNormal, day1.Add(-time.Hour))

	ctx := context.Background()
	_, err := engine.complete.Handle(ctx, CompleteHabitCommand{
		UserID: "user-1", HabitID: "habit-1", Timestamp: day1,
	})
	require.NoError(t, err)

	xpBefore := engine.totalXP(t, "user-1")

	undone, err := engine.undo.Handle(ctx, UndoCompletionCommand{UserID: "user-1", HabitID: "habit-1"})
	require.NoError(t, err)
	assert.True(t, undone)

	// The completion row is gone.
	count, err := engine.store.Completions().CountForUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// XP is sticky: undo does not reverse the ledger.
	assert.Equal(t, xpBefore, engine.totalXP(t, "user-1"))

	// Nothing left to undo.
	undone, err = engine.undo.Handle(ctx, UndoCompletionCommand{UserID: "user-1", HabitID: "habit-1"})
	require.NoError(t, err)
	assert.False(t, undone)
}

func TestUndoCompletion_RemovesLatestOnly(t *testing.T) {
	engine := newTestEngine(t)
	engine.addHabit(t, "habit-1", "user-1", shared.DifficultyNormal, day1.AddDate(0, 0, -2))

	ctx := context.Background()
	for offset := -1; offset <= 0; offset++ {
		_, err := engine.complete.Handle(ctx, CompleteHabitCommand{
			UserID: "user-1", HabitID: "habit-1", Timestamp: day1.AddDate(0, 0, offset),
		})
		require.NoError(t, err)
	}

	undone, err := engine.undo.Handle(ctx, UndoCompletionCommand{UserID: "user-1", HabitID: "habit-1"})
	require.NoError(t, err)
	require.True(t, undone)

	// Yesterday's completion survives.
	latest, err := engine.store.Completions().Latest(ctx, "habit-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, day1.AddDate(0, 0, -1), latest.CompletedAt)
}

func TestCompleteHabit_OptionsDisableStages(t *testing.T) {
	store := memory.NewStore()
	ids := UUIDGenerator{}
	streaks := gamification.NewStreakCalculator(store.Completions(), time.UTC)
	evaluator := gamification.NewEvaluator(store.Unlocks(), store.Ledger(), ids, nil)

	handler := NewCompleteHabitHandler(
		store.Habits(), store.Completions(), store.Ledger(), store.StreakHistory(), store.Feed(),
		streaks, evaluator, nil, nil, ids, time.UTC,
		Options{DisableAchievements: true, DisableFeed: true, DisablePerfectDayBonus: true},
		nil,
	)

	ctx := context.Background()
	h, err := habit.NewHabit("habit-1", "user-1", "Habit", "", habit.DefaultXPReward, shared.DifficultyNormal, day1.Add(-time.Hour))
	require.NoError(t, err)
	require.NoError(t, store.Habits().Create(ctx, h))

	res, err := handler.Handle(ctx, CompleteHabitCommand{
		UserID: "user-1", HabitID: "habit-1", Timestamp: day1,
	})
	require.NoError(t, err)

	assert.False(t, res.IsPerfectDay)
	assert.Equal(t, 15, res.XPEarned) // base 10 + first-today 5
	assert.Empty(t, res.NewAchievements)

	events, err := store.Feed().ListRecent(ctx, "user-1", 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(shared.ErrHabitArchived))
	assert.True(t, IsFatal(shared.ErrHabitNotOwned))
	assert.True(t, IsFatal(shared.ErrHabitNotFound))
	assert.False(t, IsFatal(assert.AnError))
	assert.False(t, IsFatal(nil))
}
