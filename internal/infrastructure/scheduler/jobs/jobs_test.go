package jobs

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
	"github.com/habitforge/habitforge/pkg/timeutil"
)

// captureNotifier records every notice instead of delivering it.
type captureNotifier struct {
	sent []capturedNotice
}

type capturedNotice struct {
	UserID string
	Title  string
	Body   string
}

func (n *captureNotifier) SendToUser(_ context.Context, userID, title, body string) error {
	n.sent = append(n.sent, capturedNotice{UserID: userID, Title: title, Body: body})
	return nil
}

func seedHabit(t *testing.T, store *memory.Store, id shared.HabitID, userID shared.UserID, name string) {
	t.Helper()
	h, err := habit.NewHabit(id, userID, name, "", habit.DefaultXPReward, shared.DifficultyNormal, time.Now().AddDate(0, 0, -10))
	require.NoError(t, err)
	require.NoError(t, store.Habits().Create(context.Background(), h))
}

func seedCompletion(t *testing.T, store *memory.Store, habitID shared.HabitID, userID shared.UserID, at time.Time) {
	t.Helper()
	c, err := habit.NewCompletion("c-"+string(habitID)+"-"+at.Format("20060102150405"), habitID, userID, at, "")
	require.NoError(t, err)
	require.NoError(t, store.Completions().Insert(context.Background(), c))
}

func seedStreak(t *testing.T, store *memory.Store, habitID shared.HabitID, userID shared.UserID, day string, length int) {
	t.Helper()
	require.NoError(t, store.StreakHistory().Upsert(context.Background(), gamification.StreakHistoryEntry{
		HabitID:   habitID,
		UserID:    userID,
		Day:       day,
		Length:    length,
		UpdatedAt: time.Now(),
	}))
}

// yesterdayNoon returns a timestamp safely inside yesterday's calendar day.
func yesterdayNoon() time.Time {
	return timeutil.Yesterday(time.Now(), time.UTC).Add(12 * time.Hour)
}

func yesterdayKey() string {
	return timeutil.DayKey(timeutil.Yesterday(time.Now(), time.UTC), time.UTC)
}

func TestStreakReminder_NotifiesAtRiskHabit(t *testing.T) {
	store := memory.NewStore()
	notifier := &captureNotifier{}

	seedHabit(t, store, "habit-1", "user-1", "Meditate")
	seedStreak(t, store, "habit-1", "user-1", yesterdayKey(), 5)
	seedCompletion(t, store, "habit-1", "user-1", yesterdayNoon())

	job := NewStreakReminderJob(store.Habits(), store.Completions(), store.StreakHistory(), notifier, time.UTC, nil)
	require.NoError(t, job.Run(context.Background()))

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "user-1", notifier.sent[0].UserID)
	assert.Equal(t, "Streak at risk", notifier.sent[0].Title)
	assert.Contains(t, notifier.sent[0].Body, "Meditate (5 days)")
}

func TestStreakReminder_SkipsCompletedToday(t *testing.T) {
	store := memory.NewStore()
	notifier := &captureNotifier{}

	seedHabit(t, store, "habit-1", "user-1", "Meditate")
	seedStreak(t, store, "habit-1", "user-1", yesterdayKey(), 5)
	seedCompletion(t, store, "habit-1", "user-1", yesterdayNoon())
	seedCompletion(t, store, "habit-1", "user-1", time.Now())

	job := NewStreakReminderJob(store.Habits(), store.Completions(), store.StreakHistory(), notifier, time.UTC, nil)
	require.NoError(t, job.Run(context.Background()))

	assert.Empty(t, notifier.sent)
}

func TestStreakReminder_SkipsShortStreaks(t *testing.T) {
	store := memory.NewStore()
	notifier := &captureNotifier{}

	seedHabit(t, store, "habit-1", "user-1", "Meditate")
	seedStreak(t, store, "habit-1", "user-1", yesterdayKey(), MinStreakWorthReminding-1)
	seedCompletion(t, store, "habit-1", "user-1", yesterdayNoon())

	job := NewStreakReminderJob(store.Habits(), store.Completions(), store.StreakHistory(), notifier, time.UTC, nil)
	require.NoError(t, job.Run(context.Background()))

	assert.Empty(t, notifier.sent)
}

func TestStreakReminder_OneNoticePerUser(t *testing.T) {
	store := memory.NewStore()
	notifier := &captureNotifier{}

	seedHabit(t, store, "habit-1", "user-1", "Meditate")
	seedHabit(t, store, "habit-2", "user-1", "Run")
	for _, id := range []shared.HabitID{"habit-1", "habit-2"} {
		seedStreak(t, store, id, "user-1", yesterdayKey(), 7)
		seedCompletion(t, store, id, "user-1", yesterdayNoon())
	}

	job := NewStreakReminderJob(store.Habits(), store.Completions(), store.StreakHistory(), notifier, time.UTC, nil)
	require.NoError(t, job.Run(context.Background()))

	require.Len(t, notifier.sent, 1, "both habits aggregate into one notice")
	assert.Contains(t, notifier.sent[0].Body, "Meditate")
	assert.Contains(t, notifier.sent[0].Body, "Run")
}

func TestDailyDigest_SendsSummary(t *testing.T) {
	store := memory.NewStore()
	notifier := &captureNotifier{}
	ctx := context.Background()

	seedHabit(t, store, "habit-1", "user-1", "Meditate")
	seedHabit(t, store, "habit-2", "user-1", "Run")
	seedCompletion(t, store, "habit-1", "user-1", yesterdayNoon())
	seedCompletion(t, store, "habit-2", "user-1", yesterdayNoon().Add(time.Hour))

	entry, err := gamification.NewLedgerEntry("e-1", "user-1", 1100, gamification.SourceHabitCompletion, "habit-1", nil, yesterdayNoon())
	require.NoError(t, err)
	require.NoError(t, store.Ledger().Append(ctx, entry))

	job := NewDailyDigestJob(store.Habits(), store.Completions(), store.Ledger(), notifier, time.UTC, nil)
	require.NoError(t, job.Run(ctx))

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "Yesterday's progress", notifier.sent[0].Title)
	assert.Contains(t, notifier.sent[0].Body, "2 completions across 2 habits")
	assert.Contains(t, notifier.sent[0].Body, "Perfect day")
	assert.Contains(t, notifier.sent[0].Body, "Level 2")
}

func TestDailyDigest_SilentWhenNothingHappened(t *testing.T) {
	store := memory.NewStore()
	notifier := &captureNotifier{}

	seedHabit(t, store, "habit-1", "user-1", "Meditate")

	job := NewDailyDigestJob(store.Habits(), store.Completions(), store.Ledger(), notifier, time.UTC, nil)
	require.NoError(t, job.Run(context.Background()))

	assert.Empty(t, notifier.sent)
}

func TestDigestBody(t *testing.T) {
	body := digestBody(3, 2, 3, 450)
	assert.Equal(t, "3 completions across 2 habits. Level 1, 450 XP total.", body)

	perfect := digestBody(3, 3, 3, 450)
	assert.Contains(t, perfect, "Perfect day! 🌟")
}
