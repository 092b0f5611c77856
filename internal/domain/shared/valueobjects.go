package shared

import (
	"regexp"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// UserID represents a unique authenticated user identifier (UUID format).
// It comes from the identity boundary; every engine operation requires one.
type UserID string

// IsValid checks if the user ID is a valid UUID.
func (u UserID) IsValid() bool {
	return uuidRegex.MatchString(string(u))
}

// IsEmpty checks if the ID is empty.
func (u UserID) IsEmpty() bool {
	return u == ""
}

// String returns the string representation.
func (u UserID) String() string {
	return string(u)
}

// NewUserID creates a new UserID with validation.
func NewUserID(id string) (UserID, error) {
	uid := UserID(strings.ToLower(strings.TrimSpace(id)))
	if uid.IsEmpty() {
		return "", ErrMissingUserID
	}
	if !uid.IsValid() {
		return "", NewDomainError("shared", "NewUserID", ErrInvalidID, "invalid user ID format")
	}
	return uid, nil
}

// HabitID represents a unique habit identifier (UUID format).
type HabitID string

// IsValid checks if the habit ID is a valid UUID.
func (h HabitID) IsValid() bool {
	return uuidRegex.MatchString(string(h))
}

// IsEmpty checks if the ID is empty.
func (h HabitID) IsEmpty() bool {
	return h == ""
}

// String returns the string representation.
func (h HabitID) String() string {
	return string(h)
}

// NewHabitID creates a new HabitID with validation.
func NewHabitID(id string) (HabitID, error) {
	hid := HabitID(strings.ToLower(strings.TrimSpace(id)))
	if !hid.IsValid() {
		return "", NewDomainError("shared", "NewHabitID", ErrInvalidID, "invalid habit ID format")
	}
	return hid, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// XP and Level Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// XP represents experience points earned by a user.
type XP int

const (
	// MinXP is the lower XP boundary.
	MinXP XP = 0
	// MaxXP caps a user's total XP.
	MaxXP XP = 10000000
)

// IsValid checks if the XP value is within valid range.
func (x XP) IsValid() bool {
	return x >= MinXP && x <= MaxXP
}

// Int returns the underlying int value.
func (x XP) Int() int {
	return int(x)
}

// Add adds XP and returns the result, clamped to [MinXP, MaxXP].
func (x XP) Add(amount XP) XP {
	result := x + amount
	if result > MaxXP {
		return MaxXP
	}
	if result < MinXP {
		return MinXP
	}
	return result
}

// Level represents a user's level derived from total XP.
type Level int

// XPPerLevel is the total-XP width of one level on the reference curve.
const XPPerLevel = 1000

// LevelForXP maps total XP to a level. The curve is a pure, monotonic,
// deterministic function of total XP: level 1 starts at 0 XP and each level
// spans XPPerLevel points.
func LevelForXP(total XP) Level {
	if total < 0 {
		return 1
	}
	return Level(int(total)/XPPerLevel) + 1
}

// XPToNextLevel returns how much XP is missing until the next level.
func XPToNextLevel(total XP) XP {
	if total < 0 {
		total = 0
	}
	next := (int(total)/XPPerLevel + 1) * XPPerLevel
	return XP(next) - total
}

// Int returns the underlying int value.
func (l Level) Int() int {
	return int(l)
}

// ═══════════════════════════════════════════════════════════════════════════
// Difficulty
// ═══════════════════════════════════════════════════════════════════════════

// Difficulty represents how demanding a habit is. Hard habits earn a bonus.
type Difficulty string

const (
	// DifficultyNormal is the default difficulty.
	DifficultyNormal Difficulty = "normal"
	// DifficultyHard marks a demanding habit.
	DifficultyHard Difficulty = "hard"
)

// IsValid checks if the difficulty is a known value.
func (d Difficulty) IsValid() bool {
	return d == DifficultyNormal || d == DifficultyHard
}

// ParseDifficulty parses a string into a Difficulty, defaulting to normal.
func ParseDifficulty(s string) Difficulty {
	if Difficulty(strings.ToLower(strings.TrimSpace(s))) == DifficultyHard {
		return DifficultyHard
	}
	return DifficultyNormal
}
