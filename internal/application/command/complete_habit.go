// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"time"

	"github.com/habitforge/habitforge/internal/domain/feed"
	"github.com/habitforge/habitforge/internal/domain/gamification"
	"github.com/habitforge/habitforge/internal/domain/habit"
	"github.com/habitforge/habitforge/internal/domain/shared"
	"github.com/habitforge/habitforge/pkg/logger"
	"github.com/habitforge/habitforge/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE HABIT COMMAND
// The top-level completion pipeline: persist the completion, compute the
// streak and day flags, award XP, emit the feed event, evaluate achievements,
// snapshot the streak, and classify the celebration.
// ══════════════════════════════════════════════════════════════════════════════

// CompleteHabitCommand contains the data to complete a habit once.
type CompleteHabitCommand struct {
	// UserID is the authenticated user. Required - absence is fatal.
	UserID shared.UserID

	// HabitID is the habit being completed.
	HabitID shared.HabitID

	// Note is an optional free-text note stored on the completion.
	Note string

	// Timestamp is when the completion occurred (defaults to now if zero).
	// One timestamp drives every "today" decision in the pipeline, so a
	// request spanning midnight cannot see two different days.
	Timestamp time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c CompleteHabitCommand) Validate() error {
	if c.UserID.IsEmpty() {
		return shared.ErrMissingUserID
	}
	if c.HabitID.IsEmpty() {
		return shared.NewDomainError("command", "CompleteHabit", shared.ErrInvalidID, "habit ID is required")
	}
	return nil
}

// CompleteHabitResult summarizes what one completion produced.
type CompleteHabitResult struct {
	// Success indicates the consistency-critical path committed.
	Success bool

	// CompletionID is the ID of the inserted completion row.
	CompletionID string

	// XPEarned is the total XP awarded for this completion.
	XPEarned int

	// Breakdown itemizes the XP bonuses.
	Breakdown gamification.XPBreakdown

	// OldLevel / NewLevel derive from the ledger sum before and after the
	// award. LeveledUp is true when NewLevel > OldLevel.
	OldLevel  int
	NewLevel  int
	LeveledUp bool

	// CelebrationType tells the UI how to celebrate.
	CelebrationType gamification.CelebrationType

	// StreakCount is the consecutive-day streak including today.
	StreakCount int

	// IsFirstToday / IsPerfectDay are the day-level bonus flags.
	IsFirstToday bool
	IsPerfectDay bool

	// NewAchievements lists achievements unlocked by this completion.
	NewAchievements []gamification.Award

	// CompletedAt is the timestamp recorded on the completion.
	CompletedAt time.Time
}

// DayLocker serializes completions for one (user, day). Closes the
// double-tap race on the first-today / perfect-day / streak reads.
type DayLocker interface {
	// AcquireDayLock blocks until the lock for (user, day) is held or ctx
	// expires. The returned release function must always be called.
	AcquireDayLock(ctx context.Context, userID shared.UserID, dayKey string) (release func(), err error)
}

// Options toggles optional pipeline stages. Zero value enables everything.
type Options struct {
	DisableAchievements    bool
	DisableFeed            bool
	DisablePerfectDayBonus bool
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// CompleteHabitHandler handles the CompleteHabitCommand.
type CompleteHabitHandler struct {
	habits        habit.Repository
	completions   habit.CompletionRepository
	ledger        gamification.LedgerRepository
	streakHistory gamification.StreakHistoryRepository
	feedRepo      feed.Repository
	streaks       *gamification.StreakCalculator
	achievements  *gamification.Evaluator
	locker        DayLocker
	events        shared.EventPublisher
	ids           gamification.IDGenerator
	loc           *time.Location
	opts          Options
	log           *logger.Logger
}

// NewCompleteHabitHandler creates a new CompleteHabitHandler.
// locker may be nil, which disables day serialization (single-writer setups).
func NewCompleteHabitHandler(
	habits habit.Repository,
	completions habit.CompletionRepository,
	ledger gamification.LedgerRepository,
	streakHistory gamification.StreakHistoryRepository,
	feedRepo feed.Repository,
	streaks *gamification.StreakCalculator,
	achievements *gamification.Evaluator,
	locker DayLocker,
	events shared.EventPublisher,
	ids gamification.IDGenerator,
	loc *time.Location,
	opts Options,
	log *logger.Logger,
) *CompleteHabitHandler {
	if loc == nil {
		loc = timeutil.DefaultLocation
	}
	if log == nil {
		log = logger.Default()
	}
	return &CompleteHabitHandler{
		habits:        habits,
		completions:   completions,
		ledger:        ledger,
		streakHistory: streakHistory,
		feedRepo:      feedRepo,
		streaks:       streaks,
		achievements:  achievements,
		locker:        locker,
		events:        events,
		ids:           ids,
		loc:           loc,
		opts:          opts,
		log:           log.With(logger.Component("complete_habit")),
	}
}

// Handle executes the completion pipeline. Fatal failures are a missing user
// identity, a failed completion insert, and a failed XP ledger append (the
// completion is rolled back so the row never exists without its XP entry).
// Feed and achievement failures are isolated; everything else is absorbed
// into the result.
func (h *CompleteHabitHandler) Handle(ctx context.Context, cmd CompleteHabitCommand) (*CompleteHabitResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := cmd.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}
	dayKey := timeutil.DayKey(now, h.loc)
	dayStart := timeutil.StartOfDay(now, h.loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	log := h.log.With(
		logger.UserID(cmd.UserID.String()),
		logger.HabitID(cmd.HabitID.String()),
	)

	// Serialize with concurrent completions for the same user and day so
	// the first-today and perfect-day reads cannot race a double-tap.
	if h.locker != nil {
		release, err := h.locker.AcquireDayLock(ctx, cmd.UserID, dayKey)
		if err != nil {
			return nil, shared.WrapError("command", "CompleteHabit", shared.ErrLocked, "could not acquire day lock", err)
		}
		defer release()
	}

	// Load the habit and check it can be completed.
	hab, err := h.habits.GetByID(ctx, cmd.HabitID)
	if err != nil {
		return nil, shared.WrapError("command", "CompleteHabit", shared.ErrNotFound, "failed to load habit", err)
	}
	if hab.UserID != cmd.UserID {
		return nil, shared.ErrHabitNotOwned
	}
	if hab.Archived {
		return nil, shared.ErrHabitArchived
	}

	// Step 1: insert the completion row. Fatal on failure.
	completion, err := habit.NewCompletion(h.ids.NewID(), cmd.HabitID, cmd.UserID, now, cmd.Note)
	if err != nil {
		return nil, err
	}
	if err := h.completions.Insert(ctx, completion); err != nil {
		return nil, shared.WrapError("command", "CompleteHabit", shared.ErrExternalService, "failed to insert completion", err)
	}

	// Step 2: compute the streak including the just-inserted row.
	streak, err := h.streaks.ComputeStreak(ctx, cmd.HabitID, cmd.UserID, now)
	if err != nil {
		log.Error("streak computation failed, defaulting to 1", logger.Err(err))
		streak = 1
	}

	// Step 3: day-level flags.
	todayCount, err := h.completions.CountForUserBetween(ctx, cmd.UserID, dayStart, dayEnd)
	if err != nil {
		log.Error("daily completion count failed", logger.Err(err))
		todayCount = 0
	}
	isFirstToday := todayCount == 1

	isPerfectDay := false
	if !h.opts.DisablePerfectDayBonus {
		activeHabits, err := h.habits.CountActive(ctx, cmd.UserID)
		if err != nil {
			log.Error("active habit count failed", logger.Err(err))
		} else if activeHabits > 0 {
			distinctToday, err := h.completions.DistinctHabitsBetween(ctx, cmd.UserID, dayStart, dayEnd)
			if err != nil {
				log.Error("distinct habit count failed", logger.Err(err))
			} else {
				isPerfectDay = distinctToday >= activeHabits
			}
		}
	}

	// Step 4: XP award against the ledger. Old level from the sum before the
	// append, new level from the sum after.
	oldTotal, err := h.ledger.TotalForUser(ctx, cmd.UserID)
	if err != nil {
		log.Error("ledger sum failed", logger.Err(err))
		oldTotal = 0
	}

	breakdown := gamification.ComputeCompletionXPBreakdown(hab.XPReward, streak, hab.Difficulty, isFirstToday, isPerfectDay)
	xpEarned := breakdown.Total()

	entry, err := gamification.NewLedgerEntry(
		h.ids.NewID(),
		cmd.UserID,
		xpEarned,
		gamification.SourceHabitCompletion,
		cmd.HabitID.String(),
		map[string]interface{}{
			"habit_name":  hab.Name,
			"streak":      streak,
			"first_today": isFirstToday,
			"perfect_day": isPerfectDay,
		},
		now,
	)
	if err != nil {
		return nil, err
	}
	if err := h.ledger.Append(ctx, entry); err != nil {
		// A completion must never exist without its XP entry. Roll the
		// completion row back and fail the request so the client can retry
		// from a clean state.
		if delErr := h.completions.Delete(ctx, completion.ID); delErr != nil {
			log.Error("completion rollback failed", logger.Err(delErr))
		}
		return nil, shared.WrapError("command", "CompleteHabit", shared.ErrExternalService, "failed to append XP ledger entry", err)
	}

	newTotal := oldTotal.Add(xpEarned)
	oldLevel := shared.LevelForXP(oldTotal)
	newLevel := shared.LevelForXP(newTotal)

	// Step 5: feed event - best-effort, never aborts the pipeline.
	if !h.opts.DisableFeed {
		h.emitFeedEvent(ctx, log, hab, cmd.UserID, dayKey, streak, xpEarned.Int(), now)
	}

	// Step 6: achievements - isolated; failures are logged inside.
	var awards []gamification.Award
	if !h.opts.DisableAchievements {
		totalCompletions, err := h.completions.CountForUser(ctx, cmd.UserID)
		if err != nil {
			log.Error("total completion count failed", logger.Err(err))
		}
		awards, err = h.achievements.CheckAndAward(ctx, gamification.ProgressSnapshot{
			UserID:           cmd.UserID,
			Streak:           streak,
			TotalCompletions: totalCompletions,
			DailyCompletions: todayCount,
			PerfectDay:       isPerfectDay,
			CompletionTime:   now,
			Location:         h.loc,
		})
		if err != nil {
			log.Error("achievement evaluation failed", logger.Err(err))
		}
	}

	// The streak this habit carried before the completion: the first
	// completion of the day moved it from streak-1 to streak, a repeat
	// leaves it unchanged. Today's snapshot already existing means a
	// completion ran earlier today, so a milestone crossed this morning
	// does not re-fire this afternoon.
	prevStreak := streak - 1
	if _, err := h.streakHistory.GetForDay(ctx, cmd.HabitID, cmd.UserID, dayKey); err == nil {
		prevStreak = streak
	} else if !errors.Is(err, shared.ErrNotFound) {
		log.Error("streak history read failed", logger.Err(err))
	}

	// Step 7: snapshot the streak for today. The (habit, user, day) key makes
	// a retried invocation overwrite rather than duplicate.
	if err := h.streakHistory.Upsert(ctx, gamification.StreakHistoryEntry{
		HabitID:   cmd.HabitID,
		UserID:    cmd.UserID,
		Day:       dayKey,
		Length:    streak,
		UpdatedAt: now,
	}); err != nil {
		log.Error("streak history upsert failed", logger.Streak(streak), logger.Err(err))
	}

	// Step 8: classify the celebration.
	celebration := gamification.ClassifyCelebration(oldLevel, newLevel, prevStreak, streak)

	h.publishEvents(cmd, hab, xpEarned.Int(), streak, isPerfectDay, oldLevel, newLevel, newTotal, awards)

	log.Info("habit completed",
		logger.XPAmount(xpEarned.Int()),
		logger.Streak(streak),
		logger.Bool("perfect_day", isPerfectDay),
		logger.String("celebration", string(celebration)),
	)

	// Step 9: result object back to the caller.
	return &CompleteHabitResult{
		Success:         true,
		CompletionID:    completion.ID,
		XPEarned:        xpEarned.Int(),
		Breakdown:       breakdown,
		OldLevel:        oldLevel.Int(),
		NewLevel:        newLevel.Int(),
		LeveledUp:       newLevel > oldLevel,
		CelebrationType: celebration,
		StreakCount:     streak,
		IsFirstToday:    isFirstToday,
		IsPerfectDay:    isPerfectDay,
		NewAchievements: awards,
		CompletedAt:     now,
	}, nil
}

// emitFeedEvent records at most one feed event per (user, habit, day).
// Failures are logged and swallowed.
func (h *CompleteHabitHandler) emitFeedEvent(ctx context.Context, log *logger.Logger, hab *habit.Habit, userID shared.UserID, dayKey string, streak, xpEarned int, now time.Time) {
	exists, err := h.feedRepo.ExistsForDay(ctx, userID, hab.ID, dayKey)
	if err != nil {
		log.Warn("feed existence check failed", logger.Err(err))
		return
	}
	if exists {
		// Expected idempotency short-circuit.
		return
	}

	event := feed.NewEvent(h.ids.NewID(), userID, hab.ID, dayKey, streak, xpEarned, hab.Name, hab.Icon, now)
	if err := h.feedRepo.Insert(ctx, event); err != nil {
		log.Warn("feed event insert failed", logger.Err(err))
		return
	}

	if h.events != nil {
		_ = h.events.Publish(shared.FeedEventRecordedEvent{
			BaseEvent: shared.NewBaseEvent(shared.EventFeedEventRecorded, userID.String()),
			UserID:    userID.String(),
			HabitID:   hab.ID.String(),
			FeedType:  string(event.Type),
			DayKey:    dayKey,
			FeedID:    event.ID,
			Streak:    streak,
			XPEarned:  xpEarned,
			Milestone: event.IsMilestone(),
		})
	}
}

// publishEvents pushes domain events onto the bus. Publishing is fire-and-
// forget from the pipeline's point of view.
func (h *CompleteHabitHandler) publishEvents(cmd CompleteHabitCommand, hab *habit.Habit, xpEarned, streak int, perfectDay bool, oldLevel, newLevel shared.Level, newTotal shared.XP, awards []gamification.Award) {
	if h.events == nil {
		return
	}

	publish := func(event shared.Event) {
		_ = h.events.Publish(event)
	}

	completed := shared.NewHabitCompletedEvent(cmd.UserID.String(), cmd.HabitID.String(), hab.Name, xpEarned, streak, perfectDay)
	if cmd.CorrelationID != "" {
		completed.BaseEvent = completed.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	publish(completed)

	publish(shared.NewXPGainedEvent(cmd.UserID.String(), xpEarned, gamification.SourceHabitCompletion, cmd.HabitID.String(), newTotal.Int()))

	if newLevel > oldLevel {
		publish(shared.NewLevelUpEvent(cmd.UserID.String(), oldLevel.Int(), newLevel.Int(), newTotal.Int()))
	}

	for _, award := range awards {
		publish(shared.NewAchievementUnlockedEvent(cmd.UserID.String(), string(award.Achievement.ID), award.Achievement.Title, award.XPAwarded.Int()))
	}
}

// IsFatal reports whether a completion error is one of the aborting kinds
// (unauthenticated, habit missing or not completable, insert failure) as
// opposed to an isolated step failure - useful for HTTP status mapping.
func IsFatal(err error) bool {
	return errors.Is(err, shared.ErrUnauthenticated) ||
		errors.Is(err, shared.ErrNotFound) ||
		errors.Is(err, shared.ErrForbidden) ||
		errors.Is(err, shared.ErrArchived) ||
		errors.Is(err, shared.ErrLocked) ||
		errors.Is(err, shared.ErrExternalService)
}
