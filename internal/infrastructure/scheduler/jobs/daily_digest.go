package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/habitforge/habitforge/internal/domain/gamification"
	"github.com/habitforge/habitforge/internal/domain/habit"
	"github.com/habitforge/habitforge/internal/domain/shared"
	"github.com/habitforge/habitforge/pkg/logger"
	"github.com/habitforge/habitforge/pkg/timeutil"
)

// DailyDigestJob sends each user a morning summary of yesterday's progress:
// completions, perfect-day status, total XP and level.
type DailyDigestJob struct {
	habits      HabitLister
	completions habit.CompletionRepository
	ledger      gamification.LedgerRepository
	notifier    Notifier
	location    *time.Location
	log         *logger.Logger
}

// NewDailyDigestJob creates the job.
func NewDailyDigestJob(
	habits HabitLister,
	completions habit.CompletionRepository,
	ledger gamification.LedgerRepository,
	notifier Notifier,
	location *time.Location,
	log *logger.Logger,
) *DailyDigestJob {
	if location == nil {
		location = timeutil.DefaultLocation
	}
	if log == nil {
		log = logger.Default()
	}
	return &DailyDigestJob{
		habits:      habits,
		completions: completions,
		ledger:      ledger,
		notifier:    notifier,
		location:    location,
		log:         log.With(logger.Component("daily_digest_job")),
	}
}

// Name returns the job name.
func (j *DailyDigestJob) Name() string { return "daily_digest" }

// Description returns a human-readable description.
func (j *DailyDigestJob) Description() string {
	return "Sends each user a summary of yesterday's habit progress"
}

// Run builds and sends a digest for every user that has at least one active
// habit. Users with no completions yesterday are skipped - silence beats a
// "you did nothing" push.
func (j *DailyDigestJob) Run(ctx context.Context) error {
	now := time.Now()
	dayStart := timeutil.Yesterday(now, j.location)
	dayEnd := timeutil.StartOfDay(now, j.location)

	habits, err := j.habits.ListAllActive(ctx)
	if err != nil {
		return fmt.Errorf("list active habits: %w", err)
	}

	activeCount := make(map[shared.UserID]int)
	for _, h := range habits {
		activeCount[h.UserID]++
	}

	sent := 0
	for userID, active := range activeCount {
		if err := ctx.Err(); err != nil {
			return err
		}

		completed, err := j.completions.CountForUserBetween(ctx, userID, dayStart, dayEnd)
		if err != nil {
			j.log.Warn("digest completion count failed",
				logger.UserID(userID.String()),
				logger.Err(err))
			continue
		}
		if completed == 0 {
			continue
		}

		distinct, err := j.completions.DistinctHabitsBetween(ctx, userID, dayStart, dayEnd)
		if err != nil {
			j.log.Warn("digest distinct habit count failed",
				logger.UserID(userID.String()),
				logger.Err(err))
			continue
		}

		total, err := j.ledger.TotalForUser(ctx, userID)
		if err != nil {
			j.log.Warn("digest XP total failed",
				logger.UserID(userID.String()),
				logger.Err(err))
			continue
		}

		body := digestBody(completed, distinct, active, total)
		if err := j.notifier.SendToUser(ctx, userID.String(), "Yesterday's progress", body); err != nil {
			j.log.Warn("digest delivery failed",
				logger.UserID(userID.String()),
				logger.Err(err))
			continue
		}
		sent++
	}

	j.log.Info("daily digest finished",
		logger.Int("users_considered", len(activeCount)),
		logger.Int("digests_sent", sent))

	return nil
}

// digestBody formats the digest message.
func digestBody(completed, distinct, active int, total shared.XP) string {
	body := fmt.Sprintf("%d completions across %d habits.", completed, distinct)
	if active > 0 && distinct >= active {
		body += " Perfect day! 🌟"
	}
	body += fmt.Sprintf(" Level %d, %d XP total.", shared.LevelForXP(total).Int(), total.Int())
	return body
}
