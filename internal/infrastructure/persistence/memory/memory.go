// Package memory implements in-memory repositories. Used by tests and by the
// demo mode of the server binary; behavior mirrors the SQL implementations,
// including error mapping and ordering guarantees.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/habitforge/habitforge/internal/domain/feed"
	"github.com/habitforge/habitforge/internal/domain/gamification"
	"github.com/habitforge/habitforge/internal/domain/habit"
	"github.com/habitforge/habitforge/internal/domain/shared"
)

// Store bundles every in-memory repository over one mutex.
type Store struct {
	mu sync.RWMutex

	habits      map[shared.HabitID]*habit.Habit
	completions []*habit.Completion
	ledger      []*gamification.LedgerEntry
	streaks     map[string]gamification.StreakHistoryEntry
	unlocks     map[string]gamification.Unlock
	feedEvents  []*feed.Event
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		habits:  make(map[shared.HabitID]*habit.Habit),
		streaks: make(map[string]gamification.StreakHistoryEntry),
		unlocks: make(map[string]gamification.Unlock),
	}
}

// Habits returns the habit repository view of the store.
func (s *Store) Habits() *HabitRepository { return &HabitRepository{s: s} }

// Completions returns the completion repository view of the store.
func (s *Store) Completions() *CompletionRepository { return &CompletionRepository{s: s} }

// Ledger returns the XP ledger repository view of the store.
func (s *Store) Ledger() *LedgerRepository { return &LedgerRepository{s: s} }

// Unlocks returns the achievement unlock repository view of the store.
func (s *Store) Unlocks() *UnlockRepository { return &UnlockRepository{s: s} }

// StreakHistory returns the streak history repository view of the store.
func (s *Store) StreakHistory() *StreakHistoryRepository { return &StreakHistoryRepository{s: s} }

// Feed returns the feed repository view of the store.
func (s *Store) Feed() *FeedRepository { return &FeedRepository{s: s} }

// ─────────────────────────────────────────────────────────────────────────────
// habit.Repository
// ─────────────────────────────────────────────────────────────────────────────

// HabitRepository implements habit.Repository in memory.
type HabitRepository struct {
	s *Store
}

// Create inserts a new habit.
func (r *HabitRepository) Create(_ context.Context, h *habit.Habit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.habits[h.ID]; exists {
		return shared.ErrHabitAlreadyExists
	}

	clone := *h
	r.s.habits[h.ID] = &clone
	return nil
}

// GetByID returns a habit by ID.
func (r *HabitRepository) GetByID(_ context.Context, id shared.HabitID) (*habit.Habit, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	h, ok := r.s.habits[id]
	if !ok {
		return nil, shared.ErrHabitNotFound
	}

	clone := *h
	return &clone, nil
}

// Update persists habit mutations.
func (r *HabitRepository) Update(_ context.Context, h *habit.Habit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.habits[h.ID]; !ok {
		return shared.ErrHabitNotFound
	}

	clone := *h
	r.s.habits[h.ID] = &clone
	return nil
}

// ListByUser returns the user's habits, optionally including archived ones.
func (r *HabitRepository) ListByUser(_ context.Context, userID shared.UserID, includeArchived bool) ([]*habit.Habit, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	habits := make([]*habit.Habit, 0)
	for _, h := range r.s.habits {
		if h.UserID != userID {
			continue
		}
		if h.Archived && !includeArchived {
			continue
		}
		clone := *h
		habits = append(habits, &clone)
	}

	sort.Slice(habits, func(i, j int) bool {
		return habits[i].CreatedAt.Before(habits[j].CreatedAt)
	})

	return habits, nil
}

// ListAllActive returns every non-archived habit across all users.
func (r *HabitRepository) ListAllActive(_ context.Context) ([]*habit.Habit, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	habits := make([]*habit.Habit, 0)
	for _, h := range r.s.habits {
		if h.Archived {
			continue
		}
		clone := *h
		habits = append(habits, &clone)
	}

	sort.Slice(habits, func(i, j int) bool {
		if habits[i].UserID != habits[j].UserID {
			return habits[i].UserID < habits[j].UserID
		}
		return habits[i].CreatedAt.Before(habits[j].CreatedAt)
	})

	return habits, nil
}

// CountActive returns the number of non-archived habits for the user.
func (r *HabitRepository) CountActive(_ context.Context, userID shared.UserID) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	count := 0
	for _, h := range r.s.habits {
		if h.UserID == userID && !h.Archived {
			count++
		}
	}
	return count, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// habit.CompletionRepository
// ─────────────────────────────────────────────────────────────────────────────

// CompletionRepository implements habit.CompletionRepository in memory.
type CompletionRepository struct {
	s *Store
}

// Insert appends a completion row.
func (r *CompletionRepository) Insert(_ context.Context, c *habit.Completion) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	clone := *c
	r.s.completions = append(r.s.completions, &clone)
	return nil
}

// ListRecent returns up to limit completions for (habit, user), newest first.
func (r *CompletionRepository) ListRecent(_ context.Context, habitID shared.HabitID, userID shared.UserID, limit int) ([]*habit.Completion, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := make([]*habit.Completion, 0)
	for _, c := range r.s.completions {
		if c.HabitID == habitID && c.UserID == userID {
			clone := *c
			matched = append(matched, &clone)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CompletedAt.After(matched[j].CompletedAt)
	})

	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// Latest returns the most recent completion for (habit, user).
func (r *CompletionRepository) Latest(ctx context.Context, habitID shared.HabitID, userID shared.UserID) (*habit.Completion, error) {
	recent, err := r.ListRecent(ctx, habitID, userID, 1)
	if err != nil {
		return nil, err
	}
	if len(recent) == 0 {
		return nil, shared.ErrCompletionNotFound
	}
	return recent[0], nil
}

// Delete removes a completion by ID.
func (r *CompletionRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for i, c := range r.s.completions {
		if c.ID == id {
			r.s.completions = append(r.s.completions[:i], r.s.completions[i+1:]...)
			return nil
		}
	}
	return shared.ErrCompletionNotFound
}

// CountForUserBetween returns how many completions the user has in [from, to).
func (r *CompletionRepository) CountForUserBetween(_ context.Context, userID shared.UserID, from, to time.Time) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	count := 0
	for _, c := range r.s.completions {
		if c.UserID == userID && !c.CompletedAt.Before(from) && c.CompletedAt.Before(to) {
			count++
		}
	}
	return count, nil
}

// DistinctHabitsBetween returns how many distinct habits the user completed in [from, to).
func (r *CompletionRepository) DistinctHabitsBetween(_ context.Context, userID shared.UserID, from, to time.Time) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	seen := make(map[shared.HabitID]struct{})
	for _, c := range r.s.completions {
		if c.UserID == userID && !c.CompletedAt.Before(from) && c.CompletedAt.Before(to) {
			seen[c.HabitID] = struct{}{}
		}
	}
	return len(seen), nil
}

// CountForUser returns the user's all-time completion count.
func (r *CompletionRepository) CountForUser(_ context.Context, userID shared.UserID) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	count := 0
	for _, c := range r.s.completions {
		if c.UserID == userID {
			count++
		}
	}
	return count, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// gamification.LedgerRepository
// ─────────────────────────────────────────────────────────────────────────────

// LedgerRepository implements gamification.LedgerRepository in memory.
type LedgerRepository struct {
	s *Store
}

// Append inserts a ledger entry.
func (r *LedgerRepository) Append(_ context.Context, entry *gamification.LedgerEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	clone := *entry
	r.s.ledger = append(r.s.ledger, &clone)
	return nil
}

// TotalForUser returns the sum of all entry amounts for the user.
func (r *LedgerRepository) TotalForUser(_ context.Context, userID shared.UserID) (shared.XP, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var total shared.XP
	for _, e := range r.s.ledger {
		if e.UserID == userID {
			total += e.Amount
		}
	}
	return total, nil
}

// ListRecent returns up to limit entries for the user, newest first.
func (r *LedgerRepository) ListRecent(_ context.Context, userID shared.UserID, limit int) ([]*gamification.LedgerEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := make([]*gamification.LedgerEntry, 0)
	for _, e := range r.s.ledger {
		if e.UserID == userID {
			clone := *e
			matched = append(matched, &clone)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// gamification.UnlockRepository
// ─────────────────────────────────────────────────────────────────────────────

// UnlockRepository implements gamification.UnlockRepository in memory.
type UnlockRepository struct {
	s *Store
}

func unlockKey(userID shared.UserID, id gamification.AchievementID) string {
	return string(userID) + ":" + string(id)
}

// TryUnlock records the unlock if absent.
func (r *UnlockRepository) TryUnlock(_ context.Context, unlock gamification.Unlock) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := unlockKey(unlock.UserID, unlock.AchievementID)
	if _, exists := r.s.unlocks[key]; exists {
		return false, nil
	}

	r.s.unlocks[key] = unlock
	return true, nil
}

// ListByUser returns all unlocks for the user.
func (r *UnlockRepository) ListByUser(_ context.Context, userID shared.UserID) ([]gamification.Unlock, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	unlocks := make([]gamification.Unlock, 0)
	for _, u := range r.s.unlocks {
		if u.UserID == userID {
			unlocks = append(unlocks, u)
		}
	}

	sort.Slice(unlocks, func(i, j int) bool {
		return unlocks[i].UnlockedAt.After(unlocks[j].UnlockedAt)
	})

	return unlocks, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// gamification.StreakHistoryRepository
// ─────────────────────────────────────────────────────────────────────────────

// StreakHistoryRepository implements gamification.StreakHistoryRepository in memory.
type StreakHistoryRepository struct {
	s *Store
}

func streakKey(habitID shared.HabitID, userID shared.UserID, day string) string {
	return string(habitID) + ":" + string(userID) + ":" + day
}

// Upsert inserts or replaces the entry keyed by (habit, user, day).
func (r *StreakHistoryRepository) Upsert(_ context.Context, entry gamification.StreakHistoryEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.streaks[streakKey(entry.HabitID, entry.UserID, entry.Day)] = entry
	return nil
}

// GetForDay returns the entry for (habit, user, day).
func (r *StreakHistoryRepository) GetForDay(_ context.Context, habitID shared.HabitID, userID shared.UserID, day string) (gamification.StreakHistoryEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	entry, ok := r.s.streaks[streakKey(habitID, userID, day)]
	if !ok {
		return gamification.StreakHistoryEntry{}, shared.ErrNotFound
	}
	return entry, nil
}

// ListRecent returns up to limit entries for (habit, user), newest first.
func (r *StreakHistoryRepository) ListRecent(_ context.Context, habitID shared.HabitID, userID shared.UserID, limit int) ([]gamification.StreakHistoryEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	entries := make([]gamification.StreakHistoryEntry, 0)
	for _, e := range r.s.streaks {
		if e.HabitID == habitID && e.UserID == userID {
			entries = append(entries, e)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Day > entries[j].Day
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// feed.Repository
// ─────────────────────────────────────────────────────────────────────────────

// FeedRepository implements feed.Repository in memory.
type FeedRepository struct {
	s *Store
}

// ExistsForDay reports whether an event already exists for (user, habit, day).
func (r *FeedRepository) ExistsForDay(_ context.Context, userID shared.UserID, habitID shared.HabitID, dayKey string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, e := range r.s.feedEvents {
		if e.UserID == userID && e.HabitID == habitID && e.DayKey == dayKey {
			return true, nil
		}
	}
	return false, nil
}

// Insert records a feed event.
func (r *FeedRepository) Insert(_ context.Context, event *feed.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, e := range r.s.feedEvents {
		if e.UserID == event.UserID && e.HabitID == event.HabitID && e.DayKey == event.DayKey {
			return shared.ErrFeedEventExists
		}
	}

	clone := *event
	r.s.feedEvents = append(r.s.feedEvents, &clone)
	return nil
}

// ListRecent returns up to limit events for the user, newest first.
func (r *FeedRepository) ListRecent(_ context.Context, userID shared.UserID, limit int) ([]*feed.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := make([]*feed.Event, 0)
	for _, e := range r.s.feedEvents {
		if e.UserID == userID {
			clone := *e
			matched = append(matched, &clone)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// DeleteForDay removes the event for (user, habit, day), if any.
func (r *FeedRepository) DeleteForDay(_ context.Context, userID shared.UserID, habitID shared.HabitID, dayKey string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for i, e := range r.s.feedEvents {
		if e.UserID == userID && e.HabitID == habitID && e.DayKey == dayKey {
			r.s.feedEvents = append(r.s.feedEvents[:i], r.s.feedEvents[i+1:]...)
			return nil
		}
	}
	return nil
}
