package config

import (
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FeatureFlags manages feature toggles and gradual rollouts for the
// gamification engine. Supports percentage rollout and per-user overrides.
type FeatureFlags struct {
	mu sync.RWMutex

	features map[string]*Feature

	// Override rules (for testing/debugging)
	userOverrides map[string]map[string]bool // userID -> feature -> enabled
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100)
	// Users are assigned based on hash of their ID
	RolloutPercent int

	// Time-based activation
	EnabledFrom  *time.Time
	EnabledUntil *time.Time
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	UserID  string
	IsAdmin bool
}

// Predefined feature flag names.
const (
	// === Gamification Features ===
	FeatureGamificationAchievements = "gamification.achievements"  // Achievement unlocks
	FeatureGamificationPerfectDay   = "gamification.perfect_day"   // Perfect-day bonus
	FeatureGamificationCelebrations = "gamification.celebrations"  // Celebration classification

	// === Feed Features ===
	FeatureFeedEvents = "feed.events" // Social feed emission

	// === Engine Features ===
	FeatureEngineDayLocks = "engine.day_locks" // Per-(user,day) completion locks
	FeatureEngineXPCache  = "engine.xp_cache"  // Redis totals cache

	// === Notification Features ===
	FeatureNotifyCompletionSummary = "notify.completion_summary" // Post-completion toast
	FeatureNotifyLevelUp           = "notify.level_up"           // Level-up push
	FeatureNotifyAchievement       = "notify.achievement"        // Achievement push
	FeatureNotifyStreakReminder    = "notify.streak_reminder"    // Streak-at-risk reminders
	FeatureNotifyDailyDigest       = "notify.daily_digest"       // Morning digest
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:      make(map[string]*Feature),
		userOverrides: make(map[string]map[string]bool),
	}

	ff.initializeDefaults()
	ff.loadFromEnvironment()

	return ff
}

// initializeDefaults sets up all features with default values.
func (ff *FeatureFlags) initializeDefaults() {
	// Gamification features - the engine's core, enabled by default.
	ff.features[FeatureGamificationAchievements] = &Feature{
		Name:           FeatureGamificationAchievements,
		Description:    "Unlock achievements on completions",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureGamificationPerfectDay] = &Feature{
		Name:           FeatureGamificationPerfectDay,
		Description:    "Award the perfect-day bonus",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureGamificationCelebrations] = &Feature{
		Name:           FeatureGamificationCelebrations,
		Description:    "Classify celebration animations",
		Enabled:        true,
		RolloutPercent: 100,
	}

	// Feed features
	ff.features[FeatureFeedEvents] = &Feature{
		Name:           FeatureFeedEvents,
		Description:    "Emit social feed events on completion",
		Enabled:        true,
		RolloutPercent: 100,
	}

	// Engine features
	ff.features[FeatureEngineDayLocks] = &Feature{
		Name:           FeatureEngineDayLocks,
		Description:    "Serialize completions per user and day",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureEngineXPCache] = &Feature{
		Name:           FeatureEngineXPCache,
		Description:    "Cache XP totals in Redis",
		Enabled:        true,
		RolloutPercent: 100,
	}

	// Notification features - carefully tuned to avoid spam.
	ff.features[FeatureNotifyCompletionSummary] = &Feature{
		Name:           FeatureNotifyCompletionSummary,
		Description:    "Send a summary after each completion",
		Enabled:        false, // Can be noisy for multi-habit users
		RolloutPercent: 0,
	}

	ff.features[FeatureNotifyLevelUp] = &Feature{
		Name:           FeatureNotifyLevelUp,
		Description:    "Notify on level-up",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureNotifyAchievement] = &Feature{
		Name:           FeatureNotifyAchievement,
		Description:    "Notify on achievement unlock",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureNotifyStreakReminder] = &Feature{
		Name:           FeatureNotifyStreakReminder,
		Description:    "Remind about streaks at risk",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureNotifyDailyDigest] = &Feature{
		Name:           FeatureNotifyDailyDigest,
		Description:    "Morning summary of yesterday's progress",
		Enabled:        true,
		RolloutPercent: 50, // Gradual rollout
	}
}

// loadFromEnvironment loads feature flag overrides from env vars.
// Format: FEATURE_<NAME>=true|false|<percent>
// Example: FEATURE_FEED_EVENTS=false
// Example: FEATURE_NOTIFY_DAILY_DIGEST=50 (50% rollout)
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		envKey := featureNameToEnvKey(name)
		if val := os.Getenv(envKey); val != "" {
			// Try parsing as boolean
			if b, err := strconv.ParseBool(val); err == nil {
				feature.Enabled = b
				if b {
					feature.RolloutPercent = 100
				} else {
					feature.RolloutPercent = 0
				}
				continue
			}

			// Try parsing as percentage
			if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
				feature.Enabled = p > 0
				feature.RolloutPercent = p
			}
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "feed.events" -> "FEATURE_FEED_EVENTS"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled for the given context.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	// Check user overrides first
	if ctx != nil && ctx.UserID != "" {
		if userOverrides, ok := ff.userOverrides[ctx.UserID]; ok {
			if enabled, ok := userOverrides[featureName]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[featureName]
	if !ok {
		return false
	}

	// Admin users get all features
	if ctx != nil && ctx.IsAdmin {
		return true
	}

	if !feature.Enabled {
		return false
	}

	// Check time-based activation
	now := time.Now()
	if feature.EnabledFrom != nil && now.Before(*feature.EnabledFrom) {
		return false
	}
	if feature.EnabledUntil != nil && now.After(*feature.EnabledUntil) {
		return false
	}

	// Check rollout percentage
	if feature.RolloutPercent < 100 && ctx != nil && ctx.UserID != "" {
		return ff.isInRollout(ctx.UserID, featureName, feature.RolloutPercent)
	}

	return feature.RolloutPercent > 0
}

// isInRollout determines if a user is in the rollout percentage.
// Uses consistent hashing so users stay in their bucket.
func (ff *FeatureFlags) isInRollout(userID, featureName string, percent int) bool {
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(userID))
	hash := h.Sum32()

	// Map to 0-99 range
	bucket := int(hash % 100)

	return bucket < percent
}

// SetUserOverride sets a feature override for a specific user.
// Useful for testing and debugging.
func (ff *FeatureFlags) SetUserOverride(userID, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if _, ok := ff.userOverrides[userID]; !ok {
		ff.userOverrides[userID] = make(map[string]bool)
	}
	ff.userOverrides[userID][featureName] = enabled
}

// ClearUserOverrides removes all overrides for a user.
func (ff *FeatureFlags) ClearUserOverrides(userID string) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	delete(ff.userOverrides, userID)
}

// SetRolloutPercent updates the rollout percentage for a feature.
// Thread-safe for live updates.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}

	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}

	feature.RolloutPercent = percent
	feature.Enabled = percent > 0

	return nil
}

// EnableFeature enables a feature at 100% rollout.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 100)
}

// DisableFeature disables a feature completely.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 0)
}

// GetAllFeatures returns a copy of all feature configurations.
func (ff *FeatureFlags) GetAllFeatures() map[string]*Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]*Feature, len(ff.features))
	for k, v := range ff.features {
		featureCopy := *v
		result[k] = &featureCopy
	}
	return result
}

// --- Errors ---

var (
	ErrFeatureNotFound       = &FeatureFlagError{Message: "feature not found"}
	ErrInvalidRolloutPercent = &FeatureFlagError{Message: "rollout percent must be 0-100"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
