package eventhandler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitforge/habitforge/internal/domain/gamification"
	"github.com/habitforge/habitforge/internal/domain/shared"
)

// fakeNotifier records notices and can be told to fail.
type fakeNotifier struct {
	sent []sentNotice
	err  error
}

type sentNotice struct {
	UserID string
	Title  string
	Body   string
}

func (n *fakeNotifier) SendToUser(_ context.Context, userID, title, body string) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentNotice{UserID: userID, Title: title, Body: body})
	return nil
}

// fakeSummaryNotifier records summary calls and can be told to fail.
type fakeSummaryNotifier struct {
	calls []summaryCall
	err   error
}

type summaryCall struct {
	UserID     string
	XPEarned   int
	Streak     int
	PerfectDay bool
}

func (n *fakeSummaryNotifier) SendCompletionSummary(_ context.Context, userID string, xpEarned, streak int, perfectDay bool) error {
	if n.err != nil {
		return n.err
	}
	n.calls = append(n.calls, summaryCall{UserID: userID, XPEarned: xpEarned, Streak: streak, PerfectDay: perfectDay})
	return nil
}

func TestOnLevelUp_SendsCongratulation(t *testing.T) {
	notifier := &fakeNotifier{}
	h := NewOnLevelUpHandler(notifier, nil)

	require.NoError(t, h.Handle(shared.NewLevelUpEvent("user-1", 1, 2, 1035)))

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "user-1", notifier.sent[0].UserID)
	assert.Equal(t, "Level 2 reached!", notifier.sent[0].Title)
	assert.Contains(t, notifier.sent[0].Body, "1035 total XP")
}

func TestOnLevelUp_IgnoresOtherEvents(t *testing.T) {
	notifier := &fakeNotifier{}
	h := NewOnLevelUpHandler(notifier, nil)

	require.NoError(t, h.Handle(shared.NewHabitCompletedEvent("user-1", "habit-1", "Meditate", 35, 1, false)))
	assert.Empty(t, notifier.sent)
}

func TestOnLevelUp_SwallowsNotifierFailure(t *testing.T) {
	notifier := &fakeNotifier{err: errors.New("push service down")}
	h := NewOnLevelUpHandler(notifier, nil)

	// Delivery failure must never bubble back into the completion path.
	assert.NoError(t, h.Handle(shared.NewLevelUpEvent("user-1", 1, 2, 1035)))
}

func TestOnAchievementUnlocked_IncludesCatalogIcon(t *testing.T) {
	notifier := &fakeNotifier{}
	h := NewOnAchievementUnlockedHandler(notifier, nil)

	def, found := gamification.CatalogByID(gamification.AchievementFirstCompletion)
	require.True(t, found)

	event := shared.NewAchievementUnlockedEvent("user-1", string(def.ID), def.Title, int(def.XPAward))
	require.NoError(t, h.Handle(event))

	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0].Title, def.Icon)
	assert.Contains(t, notifier.sent[0].Title, def.Title)
	assert.Contains(t, notifier.sent[0].Body, "+25 XP")
}

func TestOnHabitCompleted_SendsSummary(t *testing.T) {
	notifier := &fakeSummaryNotifier{}
	h := NewOnHabitCompletedHandler(notifier, nil)

	require.NoError(t, h.Handle(shared.NewHabitCompletedEvent("user-1", "habit-1", "Meditate", 45, 7, true)))

	require.Len(t, notifier.calls, 1)
	assert.Equal(t, summaryCall{UserID: "user-1", XPEarned: 45, Streak: 7, PerfectDay: true}, notifier.calls[0])
}

func TestOnHabitCompleted_IgnoresOtherEvents(t *testing.T) {
	notifier := &fakeSummaryNotifier{}
	h := NewOnHabitCompletedHandler(notifier, nil)

	require.NoError(t, h.Handle(shared.NewLevelUpEvent("user-1", 1, 2, 1035)))
	assert.Empty(t, notifier.calls)
}

func TestOnHabitCompleted_SwallowsNotifierFailure(t *testing.T) {
	notifier := &fakeSummaryNotifier{err: errors.New("push service down")}
	h := NewOnHabitCompletedHandler(notifier, nil)

	assert.NoError(t, h.Handle(shared.NewHabitCompletedEvent("user-1", "habit-1", "Meditate", 35, 1, false)))
}
