package gamification

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/habitforge/habitforge/internal/domain/shared"
)

func TestStreakBonus(t *testing.T) {
	tests := []struct {
		streak int
		bonus  shared.XP
	}{
		{0, 0},
		{1, 0},
		{2, 0},
		{3, 2},
		{6, 2},
		{7, 5},
		{13, 5},
		{14, 10},
		{29, 10},
		{30, 15},
		{99, 15},
		{100, 25},
		{500, 25},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.bonus, StreakBonus(tt.streak), "streak %d", tt.streak)
	}
}

func TestStreakBonus_Monotonic(t *testing.T) {
	prev := shared.XP(0)
	for streak := 0; streak <= 400; streak++ {
		bonus := StreakBonus(streak)
		assert.GreaterOrEqual(t, bonus, prev, "bonus dropped at streak %d", streak)
		assert.LessOrEqual(t, bonus, MaxStreakBonus())
		prev = bonus
	}
}

func TestComputeCompletionXP_BaseOnly(t *testing.T) {
	xp := ComputeCompletionXP(10, 1, shared.DifficultyNormal, false, false)
	assert.Equal(t, shared.XP(10), xp)
}

func TestComputeCompletionXP_AllBonuses(t *testing.T) {
	// base 10 + streak(7)=5 + hard 5 + first 5 + perfect 20
	xp := ComputeCompletionXP(10, 7, shared.DifficultyHard, true, true)
	assert.Equal(t, shared.XP(45), xp)
}

func TestComputeCompletionXP_SingleHabitFirstCompletion(t *testing.T) {
	// The canonical onboarding case: one habit, first-ever completion.
	// base 10 + first-today 5 + perfect-day 20 = 35.
	xp := ComputeCompletionXP(10, 1, shared.DifficultyNormal, true, true)
	assert.Equal(t, shared.XP(35), xp)
}

func TestComputeCompletionXPBreakdown_Itemization(t *testing.T) {
	b := ComputeCompletionXPBreakdown(10, 14, shared.DifficultyHard, true, false)

	assert.Equal(t, shared.XP(10), b.Base)
	assert.Equal(t, shared.XP(10), b.StreakBonus)
	assert.Equal(t, shared.XP(5), b.DifficultyBonus)
	assert.Equal(t, shared.XP(5), b.FirstOfDayBonus)
	assert.Equal(t, shared.XP(0), b.PerfectDayBonus)
	assert.Equal(t, shared.XP(30), b.Total())
}

func TestComputeCompletionXPBreakdown_NegativeBaseClamped(t *testing.T) {
	b := ComputeCompletionXPBreakdown(-50, 1, shared.DifficultyNormal, false, false)
	assert.Equal(t, shared.XP(0), b.Base)
	assert.Equal(t, shared.XP(0), b.Total())
}

func TestXPBreakdown_BonusesAreIndependent(t *testing.T) {
	// Toggling one flag changes the total by exactly that bonus.
	without := ComputeCompletionXP(10, 1, shared.DifficultyNormal, false, false)
	withFirst := ComputeCompletionXP(10, 1, shared.DifficultyNormal, true, false)
	withPerfect := ComputeCompletionXP(10, 1, shared.DifficultyNormal, false, true)
	withHard := ComputeCompletionXP(10, 1, shared.DifficultyHard, false, false)

	assert.Equal(t, FirstCompletionBonus, withFirst-without)
	assert.Equal(t, PerfectDayBonus, withPerfect-without)
	assert.Equal(t, DifficultyBonus, withHard-without)
}
