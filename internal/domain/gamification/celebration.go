package gamification

import (
	"github.com/habitforge/habitforge/internal/domain/shared"
)

// CelebrationType tells the UI how loudly to celebrate a completion.
type CelebrationType string

const (
	// CelebrationLevelUp - the completion crossed a level boundary.
	CelebrationLevelUp CelebrationType = "level_up"

	// CelebrationMilestone - the streak crossed a milestone bracket
	// (7, 30, 100, 365 days) it had not crossed before.
	CelebrationMilestone CelebrationType = "milestone"

	// CelebrationStreak - the streak hit a multiple of seven.
	CelebrationStreak CelebrationType = "streak"

	// CelebrationCompletion - a plain completion.
	CelebrationCompletion CelebrationType = "completion"
)

// StreakMilestones are the celebratory streak thresholds, distinct from the
// simpler "every 7th day" streak celebration.
var StreakMilestones = []int{7, 30, 100, 365}

// MilestoneBracket returns the highest milestone <= streak, or 0 when the
// streak has not reached any milestone yet.
func MilestoneBracket(streak int) int {
	bracket := 0
	for _, m := range StreakMilestones {
		if streak >= m {
			bracket = m
		}
	}
	return bracket
}

// ClassifyCelebration picks the celebration for a completion, in strict
// priority order: level_up, then milestone (newly crossed bracket only),
// then streak (every 7th day), then plain completion.
func ClassifyCelebration(oldLevel, newLevel shared.Level, prevStreak, newStreak int) CelebrationType {
	if newLevel > oldLevel {
		return CelebrationLevelUp
	}
	if MilestoneBracket(newStreak) > MilestoneBracket(prevStreak) {
		return CelebrationMilestone
	}
	if newStreak > 0 && newStreak%7 == 0 {
		return CelebrationStreak
	}
	return CelebrationCompletion
}
