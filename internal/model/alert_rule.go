package model

import (
	"fmt"
	"time"
)

// RuleType selects the predicate an alert rule evaluates.
type RuleType string

// Rule types.
const (
	RuleBudgetThreshold      RuleType = "budget_threshold"
	RuleAnomalyDetection     RuleType = "anomaly_detection"
	RuleRecurringTransaction RuleType = "recurring_transaction"
	RuleCustom               RuleType = "custom"
)

// RuleFrequency limits how often one rule may alert about the same subject.
type RuleFrequency string

// Rule frequencies.
const (
	FrequencyRealtime RuleFrequency = "realtime"
	FrequencyHourly   RuleFrequency = "hourly"
	FrequencyDaily    RuleFrequency = "daily"
	FrequencyWeekly   RuleFrequency = "weekly"
)

// Cooldown returns the minimum gap between alerts for the same subject.
func (f RuleFrequency) Cooldown() time.Duration {
	switch f {
	case FrequencyHourly:
		return time.Hour
	case FrequencyDaily:
		return 24 * time.Hour
	case FrequencyWeekly:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

// AlertRule is a user-configurable rule evaluated by the alert evaluator.
type AlertRule struct {
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Type            RuleType      `json:"type"`
	MessageTemplate string        `json:"message_template"`
	Severity        Priority      `json:"severity"`
	Frequency       RuleFrequency `json:"frequency"`
	Category        string        `json:"category,omitempty"`   // Restricts the rule to one spending category
	Expression      string        `json:"expression,omitempty"` // CEL expression for custom rules
	Threshold       float64       `json:"threshold"`
	Enabled         bool          `json:"enabled"`
}

// Validate ensures the rule has the data its type needs.
func (r *AlertRule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("rule ID is required")
	}
	if r.Name == "" {
		return fmt.Errorf("rule name is required")
	}

	switch r.Type {
	case RuleBudgetThreshold:
		if r.Threshold <= 0 {
			return fmt.Errorf("budget threshold must be positive, got %.2f", r.Threshold)
		}
	case RuleAnomalyDetection:
		if r.Threshold <= 0 {
			return fmt.Errorf("anomaly z-score threshold must be positive, got %.2f", r.Threshold)
		}
	case RuleRecurringTransaction:
		if r.Threshold < 0 {
			return fmt.Errorf("overdue days must not be negative, got %.2f", r.Threshold)
		}
	case RuleCustom:
		if r.Expression == "" {
			return fmt.Errorf("custom rules require an expression")
		}
	default:
		return fmt.Errorf("unknown rule type %q", r.Type)
	}

	switch r.Severity {
	case PriorityHigh, PriorityMedium, PriorityLow, "":
	default:
		return fmt.Errorf("unknown severity %q", r.Severity)
	}

	switch r.Frequency {
	case FrequencyRealtime, FrequencyHourly, FrequencyDaily, FrequencyWeekly, "":
	default:
		return fmt.Errorf("unknown frequency %q", r.Frequency)
	}

	return nil
}
