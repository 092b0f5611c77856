package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitforge/habitforge/internal/domain/feed"
	"github.com/habitforge/habitforge/internal/domain/gamification"
	"github.com/habitforge/habitforge/internal/domain/habit"
	"github.com/habitforge/habitforge/internal/domain/shared"
	"github.com/habitforge/habitforge/internal/infrastructure/persistence/memory"
)

var testNow = time.Date(2026, 8, 28, 14, 0, 0, 0, time.UTC)

func seedHabit(t *testing.T, store *memory.Store, id shared.HabitID, userID shared.UserID) *habit.Habit {
	t.Helper()
	h, err := habit.NewHabit(id, userID, "Habit "+string(id), "", habit.DefaultXPReward, shared.DifficultyNormal, testNow.Add(-24*time.Hour))
	require.NoError(t, err)
	require.NoError(t, store.Habits().Create(context.Background(), h))
	return h
}

func seedCompletion(t *testing.T, store *memory.Store, habitID shared.HabitID, userID shared.UserID, at time.Time) {
	t.Helper()
	c, err := habit.NewCompletion("c-"+string(habitID)+at.Format("150405"), habitID, userID, at, "")
	require.NoError(t, err)
	require.NoError(t, store.Completions().Insert(context.Background(), c))
}

func TestDailyProgress_EmptyDay(t *testing.T) {
	store := memory.NewStore()
	seedHabit(t, store, "habit-1", "user-1")

	q := NewDailyProgressQuery(store.Habits(), store.Completions(), store.StreakHistory(), time.UTC)
	progress, err := q.Execute(context.Background(), "user-1", testNow)
	require.NoError(t, err)

	assert.Equal(t, "2026-08-28", progress.Day)
	assert.Equal(t, 0, progress.CompletionsToday)
	assert.Equal(t, 1, progress.ActiveHabits)
	assert.Equal(t, 0, progress.CompletedHabits)
	assert.False(t, progress.PerfectDay)
	require.Len(t, progress.Habits, 1)
	assert.False(t, progress.Habits[0].CompletedToday)
}

func TestDailyProgress_PartialAndPerfect(t *testing.T) {
	store := memory.NewStore()
	seedHabit(t, store, "habit-1", "user-1")
	seedHabit(t, store, "habit-2", "user-1")

	ctx := context.Background()
	q := NewDailyProgressQuery(store.Habits(), store.Completions(), store.StreakHistory(), time.UTC)

	seedCompletion(t, store, "habit-1", "user-1", testNow.Add(-time.Hour))

	progress, err := q.Execute(ctx, "user-1", testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, progress.CompletedHabits)
	assert.False(t, progress.PerfectDay)

	seedCompletion(t, store, "habit-2", "user-1", testNow.Add(-30*time.Minute))

	progress, err = q.Execute(ctx, "user-1", testNow)
	require.NoError(t, err)
	assert.Equal(t, 2, progress.CompletedHabits)
	assert.True(t, progress.PerfectDay)
}

func TestDailyProgress_StreakFromHistory(t *testing.T) {
	store := memory.NewStore()
	seedHabit(t, store, "habit-1", "user-1")
	seedCompletion(t, store, "habit-1", "user-1", testNow.Add(-time.Hour))

	ctx := context.Background()
	require.NoError(t, store.StreakHistory().Upsert(ctx, gamification.StreakHistoryEntry{
		HabitID:   "habit-1",
		UserID:    "user-1",
		Day:       "2026-08-28",
		Length:    5,
		UpdatedAt: testNow,
	}))

	q := NewDailyProgressQuery(store.Habits(), store.Completions(), store.StreakHistory(), time.UTC)
	progress, err := q.Execute(ctx, "user-1", testNow)
	require.NoError(t, err)

	require.Len(t, progress.Habits, 1)
	assert.Equal(t, 5, progress.Habits[0].Streak)
}

func TestDailyProgress_YesterdayCompletionDoesNotCount(t *testing.T) {
	store := memory.NewStore()
	seedHabit(t, store, "habit-1", "user-1")
	seedCompletion(t, store, "habit-1", "user-1", testNow.AddDate(0, 0, -1))

	q := NewDailyProgressQuery(store.Habits(), store.Completions(), store.StreakHistory(), time.UTC)
	progress, err := q.Execute(context.Background(), "user-1", testNow)
	require.NoError(t, err)

	assert.Equal(t, 0, progress.CompletionsToday)
	assert.False(t, progress.Habits[0].CompletedToday)
}

func TestUserProgress(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	entry, err := gamification.NewLedgerEntry("e-1", "user-1", 1250, gamification.SourceHabitCompletion, "habit-1", nil, testNow)
	require.NoError(t, err)
	require.NoError(t, store.Ledger().Append(ctx, entry))

	seedHabit(t, store, "habit-1", "user-1")
	seedCompletion(t, store, "habit-1", "user-1", testNow)

	_, err = store.Unlocks().TryUnlock(ctx, gamification.Unlock{
		UserID:        "user-1",
		AchievementID: gamification.AchievementFirstCompletion,
		UnlockedAt:    testNow,
	})
	require.NoError(t, err)

	q := NewUserProgressQuery(store.Ledger(), store.Completions(), store.Unlocks())
	progress, err := q.Execute(ctx, "user-1")
	require.NoError(t, err)

	assert.Equal(t, 1250, progress.TotalXP)
	assert.Equal(t, 2, progress.Level)
	assert.Equal(t, 750, progress.XPToNextLevel)
	assert.Equal(t, 1, progress.TotalCompletions)
	require.Len(t, progress.Unlocked, 1)
	assert.Equal(t, gamification.AchievementFirstCompletion, progress.Unlocked[0].AchievementID)
}

func TestUserProgress_FreshUser(t *testing.T) {
	store := memory.NewStore()

	q := NewUserProgressQuery(store.Ledger(), store.Completions(), store.Unlocks())
	progress, err := q.Execute(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, 0, progress.TotalXP)
	assert.Equal(t, 1, progress.Level)
	assert.Equal(t, 1000, progress.XPToNextLevel)
	assert.Empty(t, progress.Unlocked)
}

func TestFeedQuery(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	for day := 1; day <= 3; day++ {
		at := testNow.AddDate(0, 0, -day)
		event := feed.NewEvent("f-"+at.Format("20060102"), "user-1", "habit-1", at.Format("2006-01-02"), day, 10, "Habit", "", at)
		require.NoError(t, store.Feed().Insert(ctx, event))
	}

	q := NewFeedQuery(store.Feed())

	events, err := q.Execute(ctx, "user-1", 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	// Newest first.
	assert.True(t, events[0].CreatedAt.After(events[1].CreatedAt))

	// Zero limit falls back to the default page size.
	events, err = q.Execute(ctx, "user-1", 0)
	require.NoError(t, err)
	assert.Len(t, events, 3)

	_, err = q.Execute(ctx, "", 10)
	assert.ErrorIs(t, err, shared.ErrMissingUserID)
}
