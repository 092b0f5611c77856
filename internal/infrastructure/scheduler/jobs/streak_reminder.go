// Package jobs contains the scheduled jobs run by the worker binary.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/habitforge/habitforge/internal/domain/gamification"
	"github.com/habitforge/habitforge/internal/domain/habit"
	"github.com/habitforge/habitforge/internal/domain/shared"
	"github.com/habitforge/habitforge/pkg/logger"
	"github.com/habitforge/habitforge/pkg/timeutil"
)

// HabitLister enumerates active habits across all users. The concrete
// repositories implement it alongside the per-user domain interface.
type HabitLister interface {
	ListAllActive(ctx context.Context) ([]*habit.Habit, error)
}

// Notifier delivers a notice to a user. Satisfied by the notification service.
type Notifier interface {
	SendToUser(ctx context.Context, userID, title, body string) error
}

// MinStreakWorthReminding is the smallest streak that triggers an at-risk
// reminder. Shorter streaks are cheap to rebuild and not worth a push.
const MinStreakWorthReminding = 3

// StreakReminderJob notifies users whose streaks are about to break: the
// habit had a streak yesterday but has no completion yet today.
type StreakReminderJob struct {
	habits      HabitLister
	completions habit.CompletionRepository
	streaks     gamification.StreakHistoryRepository
	notifier    Notifier
	location    *time.Location
	log         *logger.Logger
}

// NewStreakReminderJob creates the job.
func NewStreakReminderJob(
	habits HabitLister,
	completions habit.CompletionRepository,
	streaks gamification.StreakHistoryRepository,
	notifier Notifier,
	location *time.Location,
	log *logger.Logger,
) *StreakReminderJob {
	if location == nil {
		location = timeutil.DefaultLocation
	}
	if log == nil {
		log = logger.Default()
	}
	return &StreakReminderJob{
		habits:      habits,
		completions: completions,
		streaks:     streaks,
		notifier:    notifier,
		location:    location,
		log:         log.With(logger.Component("streak_reminder_job")),
	}
}

// Name returns the job name.
func (j *StreakReminderJob) Name() string { return "streak_reminder" }

// Description returns a human-readable description.
func (j *StreakReminderJob) Description() string {
	return "Reminds users about streaks at risk of breaking today"
}

// Run scans all active habits and sends one reminder per user listing their
// at-risk habits. Per-habit failures are logged and skipped so one bad row
// never blocks the rest of the scan.
func (j *StreakReminderJob) Run(ctx context.Context) error {
	now := time.Now()
	yesterdayKey := timeutil.DayKey(timeutil.Yesterday(now, j.location), j.location)

	habits, err := j.habits.ListAllActive(ctx)
	if err != nil {
		return fmt.Errorf("list active habits: %w", err)
	}

	atRisk := make(map[shared.UserID][]string)
	for _, h := range habits {
		if err := ctx.Err(); err != nil {
			return err
		}

		entry, err := j.streaks.GetForDay(ctx, h.ID, h.UserID, yesterdayKey)
		if err != nil {
			if !errors.Is(err, shared.ErrNotFound) {
				j.log.Warn("streak lookup failed",
					logger.HabitID(h.ID.String()),
					logger.Err(err))
			}
			continue
		}
		if entry.Length < MinStreakWorthReminding {
			continue
		}

		latest, err := j.completions.Latest(ctx, h.ID, h.UserID)
		if err != nil {
			if !errors.Is(err, shared.ErrCompletionNotFound) {
				j.log.Warn("latest completion lookup failed",
					logger.HabitID(h.ID.String()),
					logger.Err(err))
			}
			continue
		}
		if timeutil.SameDay(latest.CompletedAt, now, j.location) {
			continue
		}

		atRisk[h.UserID] = append(atRisk[h.UserID], fmt.Sprintf("%s (%d days)", h.Name, entry.Length))
	}

	sent := 0
	for userID, names := range atRisk {
		body := fmt.Sprintf("Don't break the chain! Still waiting today: %s", strings.Join(names, ", "))
		if err := j.notifier.SendToUser(ctx, userID.String(), "Streak at risk", body); err != nil {
			j.log.Warn("streak reminder delivery failed",
				logger.UserID(userID.String()),
				logger.Err(err))
			continue
		}
		sent++
	}

	j.log.Info("streak reminder scan finished",
		logger.Int("habits_scanned", len(habits)),
		logger.Int("users_at_risk", len(atRisk)),
		logger.Int("reminders_sent", sent))

	return nil
}
