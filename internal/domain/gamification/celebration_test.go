package gamification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMilestoneBracket(t *testing.T) {
	tests := []struct {
		streak  int
		bracket int
	}{
		{0, 0},
		{6, 0},
		{7, 7},
		{29, 7},
		{30, 30},
		{99, 30},
		{100, 100},
		{364, 100},
		{365, 365},
		{1000, 365},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.bracket, MilestoneBracket(tt.streak), "streak %d", tt.streak)
	}
}

func TestClassifyCelebration_LevelUpWins(t *testing.T) {
	// Level-up outranks everything, even a fresh milestone.
	got := ClassifyCelebration(1, 2, 6, 7)
	assert.Equal(t, CelebrationLevelUp, got)
}

func TestClassifyCelebration_MilestoneOnlyWhenNewlyCrossed(t *testing.T) {
	// 6 -> 7 crosses the 7-day bracket.
	assert.Equal(t, CelebrationMilestone, ClassifyCelebration(1, 1, 6, 7))

	// 29 -> 30 crosses the 30-day bracket.
	assert.Equal(t, CelebrationMilestone, ClassifyCelebration(1, 1, 29, 30))

	// 7 -> 8 stays inside the same bracket; no milestone.
	assert.Equal(t, CelebrationCompletion, ClassifyCelebration(1, 1, 7, 8))

	// 7 -> 7 (a repeat completion on the milestone day) does not re-fire
	// the milestone; the every-7th streak celebration applies instead.
	assert.Equal(t, CelebrationStreak, ClassifyCelebration(1, 1, 7, 7))
}

func TestClassifyCelebration_StreakEverySeventhDay(t *testing.T) {
	// 13 -> 14 is a multiple of seven but not a new bracket.
	assert.Equal(t, CelebrationStreak, ClassifyCelebration(1, 1, 13, 14))
	assert.Equal(t, CelebrationStreak, ClassifyCelebration(1, 1, 20, 21))
}

func TestClassifyCelebration_PlainCompletion(t *testing.T) {
	assert.Equal(t, CelebrationCompletion, ClassifyCelebration(1, 1, 0, 1))
	assert.Equal(t, CelebrationCompletion, ClassifyCelebration(3, 3, 4, 5))
}
