package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/Veraticus/spice-insights/internal/common"
	"github.com/Veraticus/spice-insights/internal/model"
)

// LoadPreferences reads the "notifications" section. Every alert category is
// enabled unless listed under notifications.disabled.
func LoadPreferences() (model.Preferences, error) {
	prefs := model.DefaultPreferences()

	for _, name := range viper.GetStringSlice("notifications.disabled") {
		category := model.AlertCategory(name)
		if _, ok := prefs.EnabledCategories[category]; !ok {
			return model.Preferences{}, fmt.Errorf("%w: unknown alert category %q", common.ErrInvalidConfig, name)
		}
		prefs.EnabledCategories[category] = false
	}

	if viper.IsSet("notifications.quiet_hours") {
		if err := viper.UnmarshalKey("notifications.quiet_hours", &prefs.QuietHours); err != nil {
			return model.Preferences{}, fmt.Errorf("failed to decode quiet hours: %w", err)
		}
	}
	q := prefs.QuietHours
	if q.Start < 0 || q.Start > 23 || q.End < 0 || q.End > 23 {
		return model.Preferences{}, fmt.Errorf("%w: quiet hours must be within 0-23", common.ErrInvalidConfig)
	}
	return prefs, nil
}
