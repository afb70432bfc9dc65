package engine

import (
	"math"
	"time"

	"github.com/Veraticus/spice-insights/internal/common"
	"github.com/Veraticus/spice-insights/internal/model"
	"github.com/Veraticus/spice-insights/internal/stats"
)

// Analysis is everything Analyze derives for one timeframe.
type Analysis struct {
	GeneratedAt     time.Time                `json:"generated_at"`
	Window          model.Window             `json:"window"`
	Forecast        model.Forecast           `json:"forecast"` // Whole-portfolio forecast from the full history
	Progress        []model.BudgetProgress   `json:"progress"`
	AtRisk          []model.BudgetProgress   `json:"at_risk"`
	Anomalies       []model.Anomaly          `json:"anomalies"`
	Suggestions     []model.BudgetSuggestion `json:"suggestions"`
	Recommendations []model.Recommendation   `json:"recommendations"`
	Recurring       []model.RecurringSeries  `json:"recurring"`
	Timeframe       model.Timeframe          `json:"timeframe"`
	Summary         stats.Summary            `json:"summary"`
}

// atRisk keeps the budgets past their warning tier, highest usage first.
func atRisk(progress []model.BudgetProgress) []model.BudgetProgress {
	result := make([]model.BudgetProgress, 0)
	for _, p := range stats.MostAtRisk(progress) {
		if p.Status != model.StatusOnTrack {
			result = append(result, p)
		}
	}
	return result
}

func checkBudgets(budgets []model.Budget) error {
	for i, b := range budgets {
		switch {
		case b.Category == "":
			return common.InvalidInputf("budget %d has no category", i)
		case b.Amount < 0 || math.IsNaN(b.Amount) || math.IsInf(b.Amount, 0):
			return common.InvalidInputf("budget %d (%s) has invalid amount %v", i, b.Category, b.Amount)
		}
	}
	return nil
}
