package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/spice-insights/internal/common"
	"github.com/Veraticus/spice-insights/internal/model"
)

// TemplateWeights are the contributions of each factor to a template score.
type TemplateWeights struct {
	Rating  float64 `mapstructure:"rating"`
	Usage   float64 `mapstructure:"usage"`
	Overlap float64 `mapstructure:"overlap"`
	Size    float64 `mapstructure:"size"`
}

// PolicyConfig collects the tunable constants used by the analytics and alerting components.
type PolicyConfig struct {
	RateLimits map[model.AlertType]int `mapstructure:"rate_limits"`

	BudgetTiers     model.BudgetTiers `mapstructure:"budget_tiers"`
	TemplateWeights TemplateWeights   `mapstructure:"template_weights"`

	DedupWindow     time.Duration `mapstructure:"dedup_window"`
	RateLimitWindow time.Duration `mapstructure:"rate_limit_window"`
	MonitorInterval time.Duration `mapstructure:"monitor_interval"`

	HistoryLimit         int `mapstructure:"history_limit"`
	MinClusterSize       int `mapstructure:"min_cluster_size"`
	MinRegressionPoints  int `mapstructure:"min_regression_points"`
	ConfidenceFullPoints int `mapstructure:"confidence_full_points"`
	LowSampleCount       int `mapstructure:"low_sample_count"`
	TemplateTopN         int `mapstructure:"template_top_n"`
	TemplateUsageCap     int `mapstructure:"template_usage_cap"`
	ChunkSize            int `mapstructure:"chunk_size"`

	AnomalyMediumZ     float64 `mapstructure:"anomaly_medium_z"`
	AnomalyHighZ       float64 `mapstructure:"anomaly_high_z"`
	AmountSmallMax     float64 `mapstructure:"amount_small_max"`
	AmountLargeMin     float64 `mapstructure:"amount_large_min"`
	ConfidenceCap      float64 `mapstructure:"confidence_cap"`
	ScenarioSpread     float64 `mapstructure:"scenario_spread"`
	SeasonalFactorMin  float64 `mapstructure:"seasonal_factor_min"`
	SeasonalFactorMax  float64 `mapstructure:"seasonal_factor_max"`
	VolatilityBuffer   float64 `mapstructure:"volatility_buffer"`
	TrendAdjustmentCap float64 `mapstructure:"trend_adjustment_cap"`
	BudgetMaxFactor    float64 `mapstructure:"budget_max_factor"`
	UnstableVolatility float64 `mapstructure:"unstable_volatility"`
	StableVolatility   float64 `mapstructure:"stable_volatility"`
	TemplateMinScore   float64 `mapstructure:"template_min_score"`
}

// DefaultPolicy returns the policy the engine ships with.
func DefaultPolicy() PolicyConfig {
	return PolicyConfig{
		RateLimits: map[model.AlertType]int{
			model.AlertBudgetWarning: 3,
			model.AlertAchievement:   5,
			model.AlertInsight:       2,
			model.AlertReminder:      10,
		},
		BudgetTiers: model.BudgetTiers{Warning: 0.8, Critical: 0.9, Over: 1.0},
		TemplateWeights: TemplateWeights{
			Rating:  0.3,
			Usage:   0.2,
			Overlap: 0.3,
			Size:    0.2,
		},
		DedupWindow:          5 * time.Minute,
		RateLimitWindow:      time.Hour,
		MonitorInterval:      5 * time.Minute,
		HistoryLimit:         100,
		MinClusterSize:       3,
		MinRegressionPoints:  10,
		ConfidenceFullPoints: 12,
		LowSampleCount:       5,
		TemplateTopN:         10,
		TemplateUsageCap:     100,
		ChunkSize:            1000,
		AnomalyMediumZ:       2,
		AnomalyHighZ:         3,
		AmountSmallMax:       50000,
		AmountLargeMin:       200000,
		ConfidenceCap:        0.9,
		ScenarioSpread:       0.2,
		SeasonalFactorMin:    0.5,
		SeasonalFactorMax:    1.5,
		VolatilityBuffer:     0.3,
		TrendAdjustmentCap:   0.5,
		BudgetMaxFactor:      1.5,
		UnstableVolatility:   0.5,
		StableVolatility:     0.2,
		TemplateMinScore:     0.3,
	}
}

// LoadPolicy reads overrides from the "policy" section of the viper configuration
// on top of DefaultPolicy.
func LoadPolicy() (PolicyConfig, error) {
	policy := DefaultPolicy()
	if viper.IsSet("policy") {
		if err := viper.UnmarshalKey("policy", &policy); err != nil {
			return PolicyConfig{}, fmt.Errorf("failed to decode policy: %w", err)
		}
	}
	if err := policy.Validate(); err != nil {
		return PolicyConfig{}, err
	}
	return policy, nil
}

// Validate checks that the policy values are internally consistent.
func (p PolicyConfig) Validate() error {
	switch {
	case p.AnomalyMediumZ <= 0 || p.AnomalyHighZ < p.AnomalyMediumZ:
		return fmt.Errorf("%w: anomaly thresholds must satisfy 0 < medium <= high", common.ErrInvalidConfig)
	case p.MinClusterSize < 1:
		return fmt.Errorf("%w: min_cluster_size must be at least 1", common.ErrInvalidConfig)
	case p.AmountSmallMax > p.AmountLargeMin:
		return fmt.Errorf("%w: amount_small_max must not exceed amount_large_min", common.ErrInvalidConfig)
	case p.BudgetTiers.Warning <= 0 || p.BudgetTiers.Critical < p.BudgetTiers.Warning || p.BudgetTiers.Over < p.BudgetTiers.Critical:
		return fmt.Errorf("%w: budget tiers must be positive and ascending", common.ErrInvalidConfig)
	case p.DedupWindow < 0 || p.RateLimitWindow <= 0:
		return fmt.Errorf("%w: alert windows must be positive", common.ErrInvalidConfig)
	case p.HistoryLimit < 1:
		return fmt.Errorf("%w: history_limit must be at least 1", common.ErrInvalidConfig)
	case p.MinRegressionPoints < 2:
		return fmt.Errorf("%w: min_regression_points must be at least 2", common.ErrInvalidConfig)
	case p.ConfidenceCap < 0 || p.ConfidenceCap > 1:
		return fmt.Errorf("%w: confidence_cap must be within [0,1]", common.ErrInvalidConfig)
	case p.SeasonalFactorMin <= 0 || p.SeasonalFactorMax < p.SeasonalFactorMin:
		return fmt.Errorf("%w: seasonal factor bounds must satisfy 0 < min <= max", common.ErrInvalidConfig)
	case p.ScenarioSpread < 0 || p.ScenarioSpread > 1:
		return fmt.Errorf("%w: scenario_spread must be within [0,1]", common.ErrInvalidConfig)
	case p.MonitorInterval <= 0:
		return fmt.Errorf("%w: monitor_interval must be positive", common.ErrInvalidConfig)
	}

	for alertType, limit := range p.RateLimits {
		if limit < 0 {
			return fmt.Errorf("%w: rate limit for %s must not be negative", common.ErrInvalidConfig, alertType)
		}
	}
	return nil
}

// RateLimit returns the hourly cap for an alert type. Types without a configured
// cap are not limited.
func (p PolicyConfig) RateLimit(alertType model.AlertType) (int, bool) {
	limit, ok := p.RateLimits[alertType]
	return limit, ok
}

// StorageConfig selects where persistent state lives.
type StorageConfig struct {
	DatabasePath string
	RedisURL     string
	RedisPrefix  string
}

// LoadStorageConfig reads the storage section of the viper configuration.
func LoadStorageConfig() StorageConfig {
	cfg := StorageConfig{
		DatabasePath: ExpandPath(viper.GetString("database")),
		RedisURL:     viper.GetString("redis.url"),
		RedisPrefix:  viper.GetString("redis.prefix"),
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = ExpandPath("~/.local/share/spice-insights/insights.db")
	}
	if cfg.RedisPrefix == "" {
		cfg.RedisPrefix = "spice-insights:"
	}
	return cfg
}
