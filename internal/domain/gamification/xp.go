package gamification

import (
	"github.com/habitforge/habitforge/internal/domain/shared"
)

// Flat bonus amounts. Each bonus is independently gated, so the total is a
// simple sum and superposition holds.
const (
	// DifficultyBonus is added when the completed habit is hard.
	DifficultyBonus shared.XP = 5

	// FirstCompletionBonus is added for the user's first completion of any
	// habit that calendar day.
	FirstCompletionBonus shared.XP = 5

	// PerfectDayBonus is added when, after this completion, every active
	// habit of the user has at least one completion today.
	PerfectDayBonus shared.XP = 20
)

// streakBonusStep is one row of the streak bonus table.
type streakBonusStep struct {
	MinStreak int
	Bonus     shared.XP
}

// streakBonusTable is a monotonic non-decreasing step function of the
// consecutive-day streak. The breakpoints are game-design tunables; the
// contract is only monotonicity and boundedness. Ordered high to low.
var streakBonusTable = []streakBonusStep{
	{MinStreak: 100, Bonus: 25},
	{MinStreak: 30, Bonus: 15},
	{MinStreak: 14, Bonus: 10},
	{MinStreak: 7, Bonus: 5},
	{MinStreak: 3, Bonus: 2},
}

// StreakBonus returns the streak bonus for the given consecutive-day streak.
func StreakBonus(streak int) shared.XP {
	for _, step := range streakBonusTable {
		if streak >= step.MinStreak {
			return step.Bonus
		}
	}
	return 0
}

// MaxStreakBonus is the upper bound of the streak bonus table.
func MaxStreakBonus() shared.XP {
	return streakBonusTable[0].Bonus
}

// XPBreakdown itemizes the XP earned by a single completion.
type XPBreakdown struct {
	Base            shared.XP `json:"base"`
	StreakBonus     shared.XP `json:"streak_bonus"`
	DifficultyBonus shared.XP `json:"difficulty_bonus"`
	FirstOfDayBonus shared.XP `json:"first_of_day_bonus"`
	PerfectDayBonus shared.XP `json:"perfect_day_bonus"`
}

// Total sums the breakdown. Always non-negative.
func (b XPBreakdown) Total() shared.XP {
	total := b.Base + b.StreakBonus + b.DifficultyBonus + b.FirstOfDayBonus + b.PerfectDayBonus
	if total < 0 {
		return 0
	}
	return total
}

// ComputeCompletionXP computes the XP earned by a single habit completion.
// Bonuses are additive and independently gated.
func ComputeCompletionXP(baseXP shared.XP, streak int, difficulty shared.Difficulty, firstToday, perfectDay bool) shared.XP {
	return ComputeCompletionXPBreakdown(baseXP, streak, difficulty, firstToday, perfectDay).Total()
}

// ComputeCompletionXPBreakdown is ComputeCompletionXP with the per-bonus
// itemization preserved, for ledger metadata and notifications.
func ComputeCompletionXPBreakdown(baseXP shared.XP, streak int, difficulty shared.Difficulty, firstToday, perfectDay bool) XPBreakdown {
	if baseXP < 0 {
		baseXP = 0
	}

	breakdown := XPBreakdown{
		Base:        baseXP,
		StreakBonus: StreakBonus(streak),
	}
	if difficulty == shared.DifficultyHard {
		breakdown.DifficultyBonus = DifficultyBonus
	}
	if firstToday {
		breakdown.FirstOfDayBonus = FirstCompletionBonus
	}
	if perfectDay {
		breakdown.PerfectDayBonus = PerfectDayBonus
	}

	return breakdown
}
