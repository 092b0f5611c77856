package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/habitforge/habitforge/internal/application/command"
	"github.com/habitforge/habitforge/internal/domain/feed"
	"github.com/habitforge/habitforge/internal/domain/gamification"
	"github.com/habitforge/habitforge/internal/domain/habit"
	"github.com/habitforge/habitforge/internal/domain/shared"
	"github.com/habitforge/habitforge/internal/interface/http/handlers"
)

// HabitLister lists a user's habits for GET /habits. Satisfied by
// habit.Repository.
type HabitLister interface {
	ListByUser(ctx context.Context, userID shared.UserID, includeArchived bool) ([]*habit.Habit, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot returns basic service information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONError(w, http.StatusNotFound, "not_found", "Endpoint not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "habitforge",
		"status":  "running",
		"uptime":  s.Uptime().Round(time.Second).String(),
	})
}

// handleHealth returns the aggregated health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker == nil {
		writeJSON(w, http.StatusOK, map[string]bool{"healthy": true})
		return
	}

	status := s.deps.HealthChecker.Check(r.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// handleReady returns readiness status.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSONError(w, http.StatusServiceUnavailable, "not_ready", "Service is not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

// handleLive returns liveness status.
func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"alive": true})
}

// ══════════════════════════════════════════════════════════════════════════════
// HABIT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// habitResponse is the wire representation of a habit.
type habitResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Icon       string    `json:"icon,omitempty"`
	XPReward   int       `json:"xp_reward"`
	Difficulty string    `json:"difficulty"`
	Archived   bool      `json:"archived"`
	CreatedAt  time.Time `json:"created_at"`
}

func toHabitResponse(h *habit.Habit) habitResponse {
	return habitResponse{
		ID:         h.ID.String(),
		Name:       h.Name,
		Icon:       h.Icon,
		XPReward:   h.XPReward.Int(),
		Difficulty: string(h.Difficulty),
		Archived:   h.Archived,
		CreatedAt:  h.CreatedAt,
	}
}

// handleListHabits returns the authenticated user's habits.
// GET /api/v1/habits?include_archived=true
func (s *Server) handleListHabits(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticatedUser(w, r)
	if !ok {
		return
	}

	habits, err := s.deps.ListHabits.ListByUser(r.Context(), userID, getQueryParamBool(r, "include_archived"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	out := make([]habitResponse, 0, len(habits))
	for _, h := range habits {
		out = append(out, toHabitResponse(h))
	}
	writeJSON(w, http.StatusOK, out)
}

// createHabitRequest is the POST /habits body.
type createHabitRequest struct {
	Name       string `json:"name"`
	Icon       string `json:"icon"`
	XPReward   int    `json:"xp_reward"`
	Difficulty string `json:"difficulty"`
}

// handleCreateHabit creates a habit.
// POST /api/v1/habits
func (s *Server) handleCreateHabit(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticatedUser(w, r)
	if !ok {
		return
	}

	var req createHabitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "Request body must be valid JSON")
		return
	}

	hab, err := s.deps.CreateHabit.Handle(r.Context(), command.CreateHabitCommand{
		UserID:     userID,
		Name:       req.Name,
		Icon:       req.Icon,
		XPReward:   req.XPReward,
		Difficulty: req.Difficulty,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toHabitResponse(hab))
}

// completeHabitRequest is the optional POST /habits/{id}/complete body.
type completeHabitRequest struct {
	Note string `json:"note"`
}

// completeHabitResponse is the completion pipeline result on the wire.
type completeHabitResponse struct {
	CompletionID    string                   `json:"completion_id"`
	XPEarned        int                      `json:"xp_earned"`
	Breakdown       gamification.XPBreakdown `json:"breakdown"`
	Level           int                      `json:"level"`
	LeveledUp       bool                     `json:"leveled_up"`
	Celebration     string                   `json:"celebration"`
	Streak          int                      `json:"streak"`
	FirstToday      bool                     `json:"first_today"`
	PerfectDay      bool                     `json:"perfect_day"`
	NewAchievements []achievement            `json:"new_achievements,omitempty"`
	CompletedAt     time.Time                `json:"completed_at"`
}

type achievement struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Icon      string `json:"icon,omitempty"`
	XPAwarded int    `json:"xp_awarded"`
}

// handleCompleteHabit runs the completion pipeline.
// POST /api/v1/habits/{id}/complete
func (s *Server) handleCompleteHabit(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticatedUser(w, r)
	if !ok {
		return
	}

	var req completeHabitRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_body", "Request body must be valid JSON")
			return
		}
	}

	result, err := s.deps.CompleteHabit.Handle(r.Context(), command.CompleteHabitCommand{
		UserID:        userID,
		HabitID:       shared.HabitID(r.PathValue("id")),
		Note:          req.Note,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	resp := completeHabitResponse{
		CompletionID: result.CompletionID,
		XPEarned:     result.XPEarned,
		Breakdown:    result.Breakdown,
		Level:        result.NewLevel,
		LeveledUp:    result.LeveledUp,
		Celebration:  string(result.CelebrationType),
		Streak:       result.StreakCount,
		FirstToday:   result.IsFirstToday,
		PerfectDay:   result.IsPerfectDay,
		CompletedAt:  result.CompletedAt,
	}
	for _, award := range result.NewAchievements {
		resp.NewAchievements = append(resp.NewAchievements, achievement{
			ID:        string(award.Achievement.ID),
			Title:     award.Achievement.Title,
			Icon:      award.Achievement.Icon,
			XPAwarded: award.XPAwarded.Int(),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleUndoCompletion removes the habit's most recent completion.
// POST /api/v1/habits/{id}/undo
func (s *Server) handleUndoCompletion(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticatedUser(w, r)
	if !ok {
		return
	}

	undone, err := s.deps.UndoCompletion.Handle(r.Context(), command.UndoCompletionCommand{
		UserID:  userID,
		HabitID: shared.HabitID(r.PathValue("id")),
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"undone": undone})
}

// handleArchiveHabit soft-deletes a habit.
// POST /api/v1/habits/{id}/archive
func (s *Server) handleArchiveHabit(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticatedUser(w, r)
	if !ok {
		return
	}

	err := s.deps.ArchiveHabit.Handle(r.Context(), command.ArchiveHabitCommand{
		UserID:  userID,
		HabitID: shared.HabitID(r.PathValue("id")),
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"archived": true})
}

// renameHabitRequest is the PATCH /habits/{id} body.
type renameHabitRequest struct {
	Name string `json:"name"`
}

// handleRenameHabit renames a habit.
// PATCH /api/v1/habits/{id}
func (s *Server) handleRenameHabit(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticatedUser(w, r)
	if !ok {
		return
	}

	var req renameHabitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "Request body must be valid JSON")
		return
	}

	err := s.deps.RenameHabit.Handle(r.Context(), command.RenameHabitCommand{
		UserID:  userID,
		HabitID: shared.HabitID(r.PathValue("id")),
		Name:    req.Name,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"renamed": true})
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS & FEED HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetProgress returns the gamification summary.
// GET /api/v1/progress
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticatedUser(w, r)
	if !ok {
		return
	}

	progress, err := s.deps.UserProgress.Execute(r.Context(), userID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, progress)
}

// handleGetDailyProgress returns today's per-habit progress.
// GET /api/v1/progress/today
func (s *Server) handleGetDailyProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticatedUser(w, r)
	if !ok {
		return
	}

	progress, err := s.deps.DailyProgress.Execute(r.Context(), userID, time.Now().UTC())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, progress)
}

// feedEventResponse is the wire representation of a feed event.
type feedEventResponse struct {
	ID        string       `json:"id"`
	HabitID   string       `json:"habit_id"`
	Type      string       `json:"type"`
	DayKey    string       `json:"day"`
	Payload   feed.Payload `json:"payload"`
	CreatedAt time.Time    `json:"created_at"`
}

// handleGetFeed returns the user's recent feed events.
// GET /api/v1/feed?limit=50
func (s *Server) handleGetFeed(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticatedUser(w, r)
	if !ok {
		return
	}

	events, err := s.deps.Feed.Execute(r.Context(), userID, getQueryParamInt(r, "limit", 0))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	out := make([]feedEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, feedEventResponse{
			ID:        e.ID,
			HabitID:   e.HabitID.String(),
			Type:      string(e.Type),
			DayKey:    e.DayKey,
			Payload:   e.Payload,
			CreatedAt: e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// authenticatedUser resolves the caller's user ID. With auth configured the ID
// comes from the verified token; in demo mode it falls back to X-User-ID.
func (s *Server) authenticatedUser(w http.ResponseWriter, r *http.Request) (shared.UserID, bool) {
	id := handlers.UserIDFromContext(r.Context())
	if id == "" && s.deps.Auth == nil {
		id = r.Header.Get("X-User-ID")
	}
	if id == "" {
		writeJSONError(w, http.StatusUnauthorized, "unauthenticated", "User identity is required")
		return "", false
	}
	return shared.UserID(id), true
}

// writeDomainError maps domain errors to HTTP status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrUnauthenticated):
		writeJSONError(w, http.StatusUnauthorized, "unauthenticated", "User identity is required")
	case errors.Is(err, shared.ErrForbidden):
		writeJSONError(w, http.StatusForbidden, "forbidden", "Habit belongs to another user")
	case errors.Is(err, shared.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "not_found", "Habit not found")
	case errors.Is(err, shared.ErrArchived):
		writeJSONError(w, http.StatusConflict, "archived", "Habit is archived and cannot be completed")
	case errors.Is(err, shared.ErrAlreadyExists):
		writeJSONError(w, http.StatusConflict, "already_exists", "Entity already exists")
	case errors.Is(err, shared.ErrLocked):
		writeJSONError(w, http.StatusConflict, "locked", "Another completion for this day is in progress")
	case errors.Is(err, shared.ErrInvalidInput), errors.Is(err, shared.ErrInvalidID):
		writeJSONError(w, http.StatusBadRequest, "invalid_input", err.Error())
	default:
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
