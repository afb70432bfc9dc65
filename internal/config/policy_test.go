package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-insights/internal/common"
	"github.com/Veraticus/spice-insights/internal/model"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	require.NoError(t, p.Validate())

	assert.InDelta(t, 2.0, p.AnomalyMediumZ, 1e-9)
	assert.InDelta(t, 3.0, p.AnomalyHighZ, 1e-9)
	assert.Equal(t, 3, p.MinClusterSize)
	assert.Equal(t, 5*time.Minute, p.DedupWindow)
	assert.Equal(t, 100, p.HistoryLimit)

	limit, ok := p.RateLimit(model.AlertBudgetWarning)
	assert.True(t, ok)
	assert.Equal(t, 3, limit)
	limit, _ = p.RateLimit(model.AlertInsight)
	assert.Equal(t, 2, limit)
}

func TestPolicyConfig_Validate(t *testing.T) {
	tests := []struct {
		mutate func(p *PolicyConfig)
		name   string
	}{
		{name: "high below medium", mutate: func(p *PolicyConfig) { p.AnomalyHighZ = 1 }},
		{name: "zero cluster size", mutate: func(p *PolicyConfig) { p.MinClusterSize = 0 }},
		{name: "descending tiers", mutate: func(p *PolicyConfig) { p.BudgetTiers.Critical = 0.5 }},
		{name: "zero rate window", mutate: func(p *PolicyConfig) { p.RateLimitWindow = 0 }},
		{name: "confidence cap above one", mutate: func(p *PolicyConfig) { p.ConfidenceCap = 1.2 }},
		{name: "inverted seasonal bounds", mutate: func(p *PolicyConfig) { p.SeasonalFactorMax = 0.1 }},
		{name: "negative rate limit", mutate: func(p *PolicyConfig) { p.RateLimits[model.AlertInsight] = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPolicy()
			tt.mutate(&p)
			assert.ErrorIs(t, p.Validate(), common.ErrInvalidConfig)
		})
	}
}

func TestLoadPolicy_Overrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("policy.anomaly_medium_z", 2.5)
	viper.Set("policy.dedup_window", "10m")
	viper.Set("policy.min_cluster_size", 4)

	p, err := LoadPolicy()
	require.NoError(t, err)

	assert.InDelta(t, 2.5, p.AnomalyMediumZ, 1e-9)
	assert.Equal(t, 10*time.Minute, p.DedupWindow)
	assert.Equal(t, 4, p.MinClusterSize)
	// Untouched keys keep their defaults
	assert.InDelta(t, 3.0, p.AnomalyHighZ, 1e-9)
	assert.Equal(t, 100, p.HistoryLimit)
}

func TestLoadPolicy_Invalid(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("policy.anomaly_high_z", 1.0)

	_, err := LoadPolicy()
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestLoadStorageConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg := LoadStorageConfig()
	assert.Contains(t, cfg.DatabasePath, "spice-insights")
	assert.Equal(t, "spice-insights:", cfg.RedisPrefix)
	assert.Empty(t, cfg.RedisURL)
}

func TestLoadPreferences(t *testing.T) {
	t.Run("defaults enable everything", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)

		prefs, err := LoadPreferences()
		require.NoError(t, err)
		for _, c := range model.AllAlertCategories {
			assert.True(t, prefs.CategoryEnabled(c), c)
		}
		assert.False(t, prefs.QuietHours.Enabled)
	})

	t.Run("overrides", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)

		viper.Set("notifications.disabled", []string{"achievement"})
		viper.Set("notifications.quiet_hours", map[string]any{"start": 22, "end": 7, "enabled": true})

		prefs, err := LoadPreferences()
		require.NoError(t, err)
		assert.False(t, prefs.CategoryEnabled(model.CategoryAchievement))
		assert.True(t, prefs.CategoryEnabled(model.CategoryBudget))
		assert.Equal(t, model.QuietHours{Start: 22, End: 7, Enabled: true}, prefs.QuietHours)
	})

	t.Run("unknown category", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)

		viper.Set("notifications.disabled", []string{"gossip"})
		_, err := LoadPreferences()
		assert.ErrorIs(t, err, common.ErrInvalidConfig)
	})

	t.Run("hour out of range", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)

		viper.Set("notifications.quiet_hours", map[string]any{"start": 25, "end": 7, "enabled": true})
		_, err := LoadPreferences()
		assert.ErrorIs(t, err, common.ErrInvalidConfig)
	})
}
