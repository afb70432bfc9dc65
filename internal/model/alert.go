package model

import "time"

// AlertType is the rate-limited kind of an alert.
type AlertType string

// Alert types.
const (
	AlertBudgetWarning AlertType = "budget_warning"
	AlertAchievement   AlertType = "achievement"
	AlertInsight       AlertType = "insight"
	AlertReminder      AlertType = "reminder"
)

// AlertCategory is the user-facing opt-in group an alert belongs to.
type AlertCategory string

// Alert categories.
const (
	CategoryBudget      AlertCategory = "budget"
	CategoryAchievement AlertCategory = "achievement"
	CategoryInsight     AlertCategory = "insight"
	CategoryReminder    AlertCategory = "reminder"
	CategoryAnalytics   AlertCategory = "analytics"
)

// AllAlertCategories lists every alert category.
var AllAlertCategories = []AlertCategory{
	CategoryBudget,
	CategoryAchievement,
	CategoryInsight,
	CategoryReminder,
	CategoryAnalytics,
}

// Alert is a notification record handed to the dispatcher.
type Alert struct {
	CreatedAt time.Time      `json:"created_at"`
	Data      map[string]any `json:"data,omitempty"`
	ID        string         `json:"id"`
	Type      AlertType      `json:"type"`
	Category  AlertCategory  `json:"category"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Priority  Priority       `json:"priority"`
	RuleID    string         `json:"rule_id,omitempty"`
	Subject   string         `json:"subject,omitempty"` // What the alert is about, e.g. a category or transaction ID
}

// QuietHours is an hour-of-day interval [Start, End) that may wrap midnight.
type QuietHours struct {
	Start   int  `json:"start" mapstructure:"start"`
	End     int  `json:"end" mapstructure:"end"`
	Enabled bool `json:"enabled" mapstructure:"enabled"`
}

// Active reports whether hour falls within the quiet interval.
func (q QuietHours) Active(hour int) bool {
	if !q.Enabled || q.Start == q.End {
		return false
	}
	if q.Start > q.End {
		return hour >= q.Start || hour < q.End
	}
	return hour >= q.Start && hour < q.End
}

// Preferences are the user's notification settings.
type Preferences struct {
	EnabledCategories map[AlertCategory]bool `json:"enabled_categories"`
	QuietHours        QuietHours             `json:"quiet_hours"`
}

// DefaultPreferences enables every category with no quiet hours.
func DefaultPreferences() Preferences {
	enabled := make(map[AlertCategory]bool, len(AllAlertCategories))
	for _, c := range AllAlertCategories {
		enabled[c] = true
	}
	return Preferences{EnabledCategories: enabled}
}

// CategoryEnabled reports whether the user opted in to a category.
func (p Preferences) CategoryEnabled(c AlertCategory) bool {
	return p.EnabledCategories[c]
}
