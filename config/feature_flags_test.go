package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureFlags_Defaults(t *testing.T) {
	ff := LoadFeatureFlags()

	assert.True(t, ff.IsEnabled(FeatureGamificationAchievements, nil))
	assert.True(t, ff.IsEnabled(FeatureFeedEvents, nil))
	assert.True(t, ff.IsEnabled(FeatureEngineDayLocks, nil))

	// Completion summaries default off.
	assert.False(t, ff.IsEnabled(FeatureNotifyCompletionSummary, nil))

	// Unknown features are off.
	assert.False(t, ff.IsEnabled("no.such.feature", nil))
}

func TestFeatureFlags_EnvOverrideBool(t *testing.T) {
	t.Setenv("FEATURE_FEED_EVENTS", "false")

	ff := LoadFeatureFlags()
	assert.False(t, ff.IsEnabled(FeatureFeedEvents, nil))
}

func TestFeatureFlags_EnvOverridePercent(t *testing.T) {
	t.Setenv("FEATURE_NOTIFY_DAILY_DIGEST", "100")

	ff := LoadFeatureFlags()
	assert.True(t, ff.IsEnabled(FeatureNotifyDailyDigest, nil))
}

func TestFeatureFlags_RolloutIsConsistentPerUser(t *testing.T) {
	ff := LoadFeatureFlags()
	require.NoError(t, ff.SetRolloutPercent(FeatureFeedEvents, 50))

	ctx := &FeatureContext{UserID: "user-42"}
	first := ff.IsEnabled(FeatureFeedEvents, ctx)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, ff.IsEnabled(FeatureFeedEvents, ctx), "bucket must be stable")
	}
}

func TestFeatureFlags_RolloutBoundaries(t *testing.T) {
	ff := LoadFeatureFlags()

	require.NoError(t, ff.SetRolloutPercent(FeatureFeedEvents, 0))
	assert.False(t, ff.IsEnabled(FeatureFeedEvents, &FeatureContext{UserID: "anyone"}))

	require.NoError(t, ff.SetRolloutPercent(FeatureFeedEvents, 100))
	assert.True(t, ff.IsEnabled(FeatureFeedEvents, &FeatureContext{UserID: "anyone"}))

	assert.ErrorIs(t, ff.SetRolloutPercent(FeatureFeedEvents, 150), ErrInvalidRolloutPercent)
	assert.ErrorIs(t, ff.SetRolloutPercent("no.such.feature", 10), ErrFeatureNotFound)
}

func TestFeatureFlags_UserOverride(t *testing.T) {
	ff := LoadFeatureFlags()

	ff.SetUserOverride("user-1", FeatureNotifyCompletionSummary, true)
	assert.True(t, ff.IsEnabled(FeatureNotifyCompletionSummary, &FeatureContext{UserID: "user-1"}))
	assert.False(t, ff.IsEnabled(FeatureNotifyCompletionSummary, &FeatureContext{UserID: "user-2"}))

	ff.ClearUserOverrides("user-1")
	assert.False(t, ff.IsEnabled(FeatureNotifyCompletionSummary, &FeatureContext{UserID: "user-1"}))
}

func TestFeatureFlags_AdminSeesEverything(t *testing.T) {
	ff := LoadFeatureFlags()
	require.NoError(t, ff.SetRolloutPercent(FeatureNotifyDailyDigest, 0))

	assert.True(t, ff.IsEnabled(FeatureNotifyDailyDigest, &FeatureContext{UserID: "admin", IsAdmin: true}))
}

func TestFeatureNameToEnvKey(t *testing.T) {
	assert.Equal(t, "FEATURE_FEED_EVENTS", featureNameToEnvKey("feed.events"))
	assert.Equal(t, "FEATURE_NOTIFY_DAILY_DIGEST", featureNameToEnvKey("notify.daily_digest"))
}
