package alerts

import (
	"time"

	"github.com/Veraticus/spice-insights/internal/model"
	"github.com/Veraticus/spice-insights/internal/stats"
)

// Snapshot is the spending state rules are evaluated against.
type Snapshot struct {
	Now       time.Time
	Summary   stats.Summary
	Progress  []model.BudgetProgress
	Anomalies []model.Anomaly
	Recurring []model.RecurringSeries
}

// variables exposes the snapshot to custom rule expressions.
func (s *Snapshot) variables() map[string]any {
	budgets := make(map[string]float64, len(s.Progress))
	spent := make(map[string]float64, len(s.Progress))
	usage := make(map[string]float64, len(s.Progress))
	for _, p := range s.Progress {
		budgets[p.Budget.Category] = p.Budget.Amount
		spent[p.Budget.Category] = p.Spent
		usage[p.Budget.Category] = p.Usage
	}

	categories := make([]string, 0, len(s.Summary.ByCategory))
	for _, cs := range s.Summary.Categories() {
		categories = append(categories, cs.Category)
	}

	return map[string]any{
		"total":      s.Summary.Total,
		"budgets":    budgets,
		"spent":      spent,
		"usage":      usage,
		"anomalies":  int64(len(s.Anomalies)),
		"categories": categories,
		"hour":       int64(s.Now.Hour()),
	}
}
