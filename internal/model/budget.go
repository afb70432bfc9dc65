package model

// BudgetPeriod is the cadence a budget amount applies to.
type BudgetPeriod string

const (
	// PeriodWeekly budgets reset every week.
	PeriodWeekly BudgetPeriod = "weekly"
	// PeriodMonthly budgets reset every month.
	PeriodMonthly BudgetPeriod = "monthly"
	// PeriodYearly budgets reset every year.
	PeriodYearly BudgetPeriod = "yearly"
)

// Timeframe returns the window a budget's spending is measured over. The
// second result is false for an unknown period.
func (p BudgetPeriod) Timeframe() (Timeframe, bool) {
	switch p {
	case PeriodWeekly:
		return TimeframeWeek, true
	case PeriodMonthly:
		return TimeframeMonth, true
	case PeriodYearly:
		return TimeframeYear, true
	default:
		return "", false
	}
}

// Budget is a spending limit for one category. The engine never mutates budgets.
type Budget struct {
	Category string       `json:"category"`
	Period   BudgetPeriod `json:"period"`
	Amount   float64      `json:"amount"`
}

// BudgetStatus summarizes how close spending is to the budget.
type BudgetStatus string

// Budget statuses in increasing order of concern.
const (
	StatusOnTrack    BudgetStatus = "on-track"
	StatusWarning    BudgetStatus = "warning"
	StatusCritical   BudgetStatus = "critical"
	StatusOverBudget BudgetStatus = "over-budget"
)

// BudgetProgress is the derived spending state of a budget.
type BudgetProgress struct {
	Status    BudgetStatus `json:"status"`
	Budget    Budget       `json:"budget"`
	Spent     float64      `json:"spent"`
	Remaining float64      `json:"remaining"`
	Usage     float64      `json:"usage"` // Spent / Amount; 0 when Amount is 0
}

// BudgetTiers are the usage fractions at which a budget changes status.
type BudgetTiers struct {
	Warning  float64 `mapstructure:"warning" json:"warning"`
	Critical float64 `mapstructure:"critical" json:"critical"`
	Over     float64 `mapstructure:"over" json:"over"`
}

// StatusFor maps a usage fraction to a budget status.
func (t BudgetTiers) StatusFor(usage float64) BudgetStatus {
	switch {
	case usage >= t.Over:
		return StatusOverBudget
	case usage >= t.Critical:
		return StatusCritical
	case usage >= t.Warning:
		return StatusWarning
	default:
		return StatusOnTrack
	}
}

// PriorityFor maps a usage fraction to an alert priority.
func (t BudgetTiers) PriorityFor(usage float64) Priority {
	switch {
	case usage >= t.Over:
		return PriorityHigh
	case usage >= t.Critical:
		return PriorityMedium
	default:
		return PriorityLow
	}
}
