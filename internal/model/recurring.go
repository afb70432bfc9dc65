package model

import (
	"math"
	"time"
)

// RecurringFrequency is the inferred cadence of a recurring expense.
type RecurringFrequency string

// Recurring frequencies.
const (
	RecurringWeekly      RecurringFrequency = "weekly"
	RecurringFortnightly RecurringFrequency = "fortnightly"
	RecurringMonthly     RecurringFrequency = "monthly"
	RecurringQuarterly   RecurringFrequency = "quarterly"
	RecurringAnnually    RecurringFrequency = "annually"
)

// RecurringSeries is a run of similar expenses that repeat on a cadence.
type RecurringSeries struct {
	LastSeen      time.Time          `json:"last_seen"`
	ExpectedNext  time.Time          `json:"expected_next"`
	Key           string             `json:"key"`
	Description   string             `json:"description"`
	Category      string             `json:"category"`
	Frequency     RecurringFrequency `json:"frequency"`
	Occurrences   int                `json:"occurrences"`
	AverageAmount float64            `json:"average_amount"`
}

// DaysOverdue returns how many whole days past ExpectedNext now is, 0 if not yet due.
func (s *RecurringSeries) DaysOverdue(now time.Time) int {
	if !now.After(s.ExpectedNext) {
		return 0
	}
	return int(math.Floor(now.Sub(s.ExpectedNext).Hours() / 24))
}
