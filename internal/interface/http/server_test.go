package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitforge/habitforge/internal/application/command"
	"github.com/habitforge/habitforge/internal/application/query"
	"github.com/habitforge/habitforge/internal/domain/gamification"
	"github.com/habitforge/habitforge/internal/infrastructure/persistence/memory"
)

// newTestServer wires a full server against the in-memory store, auth
// disabled so the user ID comes from X-User-ID.
func newTestServer(t *testing.T) *Server {
	t.Helper()

	store := memory.NewStore()
	ids := command.UUIDGenerator{}
	streakCalc := gamification.NewStreakCalculator(store.Completions(), time.UTC)
	evaluator := gamification.NewEvaluator(store.Unlocks(), store.Ledger(), ids, nil)

	deps := Dependencies{
		CompleteHabit: command.NewCompleteHabitHandler(
			store.Habits(), store.Completions(), store.Ledger(), store.StreakHistory(),
			store.Feed(), streakCalc, evaluator, nil, nil, ids, time.UTC, command.Options{}, nil),
		UndoCompletion: command.NewUndoCompletionHandler(store.Completions(), nil, nil),
		CreateHabit:    command.NewCreateHabitHandler(store.Habits(), nil, nil),
		ArchiveHabit:   command.NewArchiveHabitHandler(store.Habits(), nil),
		RenameHabit:    command.NewRenameHabitHandler(store.Habits()),
		DailyProgress:  query.NewDailyProgressQuery(store.Habits(), store.Completions(), store.StreakHistory(), time.UTC),
		UserProgress:   query.NewUserProgressQuery(store.Ledger(), store.Completions(), store.Unlocks()),
		Feed:           query.NewFeedQuery(store.Feed()),
		ListHabits:     store.Habits(),
	}

	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 0
	return NewServer(cfg, deps)
}

// do runs one request through the full middleware chain.
func do(t *testing.T, s *Server, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(dest))
}

func createHabit(t *testing.T, s *Server, userID, name string) habitResponse {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/api/v1/habits", userID, createHabitRequest{Name: name})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp habitResponse
	decode(t, rec, &resp)
	require.NotEmpty(t, resp.ID)
	return resp
}

func TestServer_CompleteHabitFlow(t *testing.T) {
	s := newTestServer(t)
	hab := createHabit(t, s, "user-1", "Meditate")

	rec := do(t, s, http.MethodPost, "/api/v1/habits/"+hab.ID+"/complete", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp completeHabitResponse
	decode(t, rec, &resp)

	// 10 base + 5 first-of-day + 20 perfect day.
	assert.Equal(t, 35, resp.XPEarned)
	assert.Equal(t, 1, resp.Streak)
	assert.True(t, resp.FirstToday)
	assert.True(t, resp.PerfectDay)
	assert.False(t, resp.LeveledUp)
	assert.Equal(t, 1, resp.Level)
	assert.NotEmpty(t, resp.CompletionID)

	ids := make([]string, 0, len(resp.NewAchievements))
	for _, a := range resp.NewAchievements {
		ids = append(ids, a.ID)
	}
	assert.Contains(t, ids, string(gamification.AchievementFirstCompletion))
	assert.Contains(t, ids, string(gamification.AchievementPerfectDay))

	// Same habit again on the same day: no first-of-day bonus, no new unlocks.
	rec = do(t, s, http.MethodPost, "/api/v1/habits/"+hab.ID+"/complete", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &resp)
	assert.Equal(t, 30, resp.XPEarned)
	assert.False(t, resp.FirstToday)
	assert.Empty(t, resp.NewAchievements)
}

func TestServer_RequiresIdentity(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/v1/habits", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_CompleteUnknownHabit(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/v1/habits/no-such-habit/complete", "user-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_CompleteForeignHabit(t *testing.T) {
	s := newTestServer(t)
	hab := createHabit(t, s, "user-1", "Meditate")

	rec := do(t, s, http.MethodPost, "/api/v1/habits/"+hab.ID+"/complete", "intruder", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestServer_ArchiveAndRename(t *testing.T) {
	s := newTestServer(t)
	hab := createHabit(t, s, "user-1", "Meditate")

	rec := do(t, s, http.MethodPatch, "/api/v1/habits/"+hab.ID, "user-1", renameHabitRequest{Name: "Morning meditation"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, s, http.MethodPost, "/api/v1/habits/"+hab.ID+"/archive", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Archived habits cannot be completed.
	rec = do(t, s, http.MethodPost, "/api/v1/habits/"+hab.ID+"/complete", "user-1", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// They drop out of the default listing but show up with include_archived.
	rec = do(t, s, http.MethodGet, "/api/v1/habits", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var habits []habitResponse
	decode(t, rec, &habits)
	assert.Empty(t, habits)

	rec = do(t, s, http.MethodGet, "/api/v1/habits?include_archived=true", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &habits)
	require.Len(t, habits, 1)
	assert.Equal(t, "Morning meditation", habits[0].Name)
	assert.True(t, habits[0].Archived)
}

func TestServer_UndoCompletion(t *testing.T) {
	s := newTestServer(t)
	hab := createHabit(t, s, "user-1", "Meditate")

	rec := do(t, s, http.MethodPost, "/api/v1/habits/"+hab.ID+"/complete", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var undo map[string]bool
	rec = do(t, s, http.MethodPost, "/api/v1/habits/"+hab.ID+"/undo", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &undo)
	assert.True(t, undo["undone"])

	// Nothing left to undo.
	rec = do(t, s, http.MethodPost, "/api/v1/habits/"+hab.ID+"/undo", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &undo)
	assert.False(t, undo["undone"])
}

func TestServer_ProgressAndFeed(t *testing.T) {
	s := newTestServer(t)
	hab := createHabit(t, s, "user-1", "Meditate")

	rec := do(t, s, http.MethodPost, "/api/v1/habits/"+hab.ID+"/complete", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/progress", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var progress query.UserProgress
	decode(t, rec, &progress)
	// Completion XP plus at least first_completion and perfect_day awards.
	assert.GreaterOrEqual(t, progress.TotalXP, 35+25+150)
	assert.Equal(t, 1, progress.TotalCompletions)
	assert.NotEmpty(t, progress.Unlocked)

	rec = do(t, s, http.MethodGet, "/api/v1/progress/today", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var daily query.DailyProgress
	decode(t, rec, &daily)
	assert.Equal(t, 1, daily.CompletionsToday)
	assert.True(t, daily.PerfectDay)

	rec = do(t, s, http.MethodGet, "/api/v1/feed", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var events []feedEventResponse
	decode(t, rec, &events)
	require.Len(t, events, 1)
	assert.Equal(t, hab.ID, events[0].HabitID)
}

func TestServer_HealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/health", "/healthz", "/live", "/ready", "/"} {
		rec := do(t, s, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := do(t, s, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
