// Package notification contains the presentation strings the engine hands to
// the toast/snackbar boundary, plus the sender contract the infrastructure
// implements. These are fire-and-forget presentation events, not part of the
// data contract.
package notification

import (
	"context"
	"fmt"
)

// Sender delivers a notice to one user's devices. Implementations wrap the
// external push provider.
type Sender interface {
	Send(ctx context.Context, userID, title, body string) error
}

// CompletionSummary builds the toast line for a completed habit from the
// signals the result object carries.
func CompletionSummary(xpEarned, streak int, perfectDay bool) string {
	summary := fmt.Sprintf("+%d XP", xpEarned)
	if streak > 1 {
		summary += fmt.Sprintf(" · %d-day streak", streak)
	}
	if perfectDay {
		summary += " · Perfect day! 🌟"
	}
	return summary
}

// LevelUpNotice builds the level-up toast line.
func LevelUpNotice(newLevel int) string {
	return fmt.Sprintf("Level up! You reached level %d 🎉", newLevel)
}

// AchievementNotice builds the per-achievement unlock line.
func AchievementNotice(icon, title string, xpAwarded int) string {
	if icon != "" {
		return fmt.Sprintf("%s %s unlocked · +%d XP", icon, title, xpAwarded)
	}
	return fmt.Sprintf("%s unlocked · +%d XP", title, xpAwarded)
}
