package recommend

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Veraticus/spice-insights/internal/forecast"
	"github.com/Veraticus/spice-insights/internal/model"
	"github.com/Veraticus/spice-insights/internal/stats"
)

const (
	// highShare is the fraction of total spending above which a category is worth trimming.
	highShare = 0.2
	// adjustmentTolerance is how far a budget may drift from its suggestion before we say so.
	adjustmentTolerance = 0.2
	// maxAnomalyReviews caps how many anomalies become recommendations.
	maxAnomalyReviews = 3
	// savingsRate is the share of a category's spend assumed recoverable.
	savingsRate = 0.1
)

// Input is everything the recommendation pass looks at.
type Input struct {
	Now          time.Time // Reference time for forecasts; zero means time.Now
	Window       model.Window
	Summary      stats.Summary
	Transactions []model.Transaction
	Budgets      []model.Budget
	Anomalies    []model.Anomaly
}

// Recommendations produces prioritized, actionable suggestions. The result is
// ordered by priority, then impact descending, then title.
func (e *Engine) Recommendations(in Input) []model.Recommendation {
	var recs []model.Recommendation

	suggestions := make(map[string]model.BudgetSuggestion)
	for _, s := range e.SuggestBudgets(in.Summary, in.Transactions, in.Window) {
		suggestions[s.Category] = s
	}

	budgeted := make(map[string]bool, len(in.Budgets))
	for _, p := range stats.BudgetProgress(in.Budgets, in.Transactions, e.policy.BudgetTiers) {
		budgeted[p.Budget.Category] = true
		recs = append(recs, e.riskAlerts(p, in)...)
		if s, ok := suggestions[p.Budget.Category]; ok {
			recs = append(recs, adjustment(p.Budget, s)...)
		}
	}

	for _, cs := range in.Summary.Categories() {
		if !budgeted[cs.Category] {
			if s, ok := suggestions[cs.Category]; ok {
				recs = append(recs, model.Recommendation{
					Type:     model.RecommendBudgetAdjustment,
					Priority: model.PriorityLow,
					Category: cs.Category,
					Title:    fmt.Sprintf("Set a budget for %s", cs.Category),
					Message:  fmt.Sprintf("You have no budget for %s. %s", cs.Category, s.Reasoning),
					Action:   fmt.Sprintf("Create a monthly budget of %.2f", s.Recommended),
					Impact:   s.Recommended,
				})
			}
		}
		if rec, ok := e.savings(cs, in); ok {
			recs = append(recs, rec)
		}
		if split := e.SuggestSplit(cs.Category, in.Transactions); split != nil {
			recs = append(recs, model.Recommendation{
				Type:     model.RecommendCategorySplit,
				Priority: model.PriorityLow,
				Category: cs.Category,
				Title:    fmt.Sprintf("Split %s into %d sub-categories", cs.Category, len(split.Clusters)),
				Message:  fmt.Sprintf("%s contains distinct groups of spending that could be tracked separately.", cs.Category),
				Action:   "Review the suggested sub-categories",
				Impact:   float64(len(split.Clusters)),
			})
		}
	}

	for i, a := range in.Anomalies {
		if i == maxAnomalyReviews {
			break
		}
		priority := model.PriorityMedium
		if a.Severity == model.SeverityHigh {
			priority = model.PriorityHigh
		}
		direction := "higher"
		if a.Direction == model.DirectionUnusuallyLow {
			direction = "lower"
		}
		recs = append(recs, model.Recommendation{
			Type:     model.RecommendAnomalyReview,
			Priority: priority,
			Category: a.Transaction.Category,
			Title:    fmt.Sprintf("Unusual %s transaction", a.Transaction.Category),
			Message: fmt.Sprintf("%q for %.2f is much %s than your usual %s spending.",
				a.Transaction.Description, a.Transaction.Amount, direction, a.Transaction.Category),
			Action: "Review this transaction",
			Impact: math.Abs(a.ZScore),
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Priority.Rank() != recs[j].Priority.Rank() {
			return recs[i].Priority.Rank() < recs[j].Priority.Rank()
		}
		if recs[i].Impact != recs[j].Impact {
			return recs[i].Impact > recs[j].Impact
		}
		return recs[i].Title < recs[j].Title
	})
	return recs
}

func (e *Engine) riskAlerts(p model.BudgetProgress, in Input) []model.Recommendation {
	category := p.Budget.Category
	switch p.Status {
	case model.StatusOverBudget:
		return []model.Recommendation{{
			Type:     model.RecommendRiskAlert,
			Priority: model.PriorityHigh,
			Category: category,
			Title:    fmt.Sprintf("%s is over budget", category),
			Message:  fmt.Sprintf("You've spent %.2f of your %.2f %s budget.", p.Spent, p.Budget.Amount, category),
			Action:   "Cut back or raise the budget",
			Impact:   p.Spent - p.Budget.Amount,
		}}
	case model.StatusCritical:
		return []model.Recommendation{{
			Type:     model.RecommendRiskAlert,
			Priority: model.PriorityMedium,
			Category: category,
			Title:    fmt.Sprintf("%s is close to its budget", category),
			Message:  fmt.Sprintf("Only %.2f left in your %s budget.", p.Remaining, category),
			Action:   "Slow down spending in this category",
			Impact:   p.Remaining,
		}}
	}

	fc := e.forecaster.Forecast(in.Transactions, forecast.Options{Now: in.Now, Category: &category})
	if fc.Method != model.MethodNone && fc.Prediction > p.Budget.Amount {
		return []model.Recommendation{{
			Type:     model.RecommendRiskAlert,
			Priority: model.PriorityMedium,
			Category: category,
			Title:    fmt.Sprintf("%s is forecast to exceed its budget", category),
			Message: fmt.Sprintf("Next period's %s spending is forecast at %.2f against a budget of %.2f.",
				category, fc.Prediction, p.Budget.Amount),
			Action: "Plan ahead for this category",
			Impact: fc.Prediction - p.Budget.Amount,
		}}
	}
	return nil
}

func adjustment(budget model.Budget, s model.BudgetSuggestion) []model.Recommendation {
	if budget.Amount <= 0 {
		return nil
	}
	drift := (s.Recommended - budget.Amount) / budget.Amount
	if math.Abs(drift) <= adjustmentTolerance {
		return nil
	}
	verb := "Raise"
	if drift < 0 {
		verb = "Lower"
	}
	return []model.Recommendation{{
		Type:     model.RecommendBudgetAdjustment,
		Priority: model.PriorityMedium,
		Category: budget.Category,
		Title:    fmt.Sprintf("%s your %s budget", verb, budget.Category),
		Message:  fmt.Sprintf("Your %s budget is %.2f but your spending suggests %.2f. %s", budget.Category, budget.Amount, s.Recommended, s.Reasoning),
		Action:   fmt.Sprintf("Change the budget to %.2f", s.Recommended),
		Impact:   math.Abs(s.Recommended - budget.Amount),
	}}
}

func (e *Engine) savings(cs model.CategoryStats, in Input) (model.Recommendation, bool) {
	total := in.Summary.Total
	if total <= 0 || cs.Total/total <= highShare {
		return model.Recommendation{}, false
	}

	volatile := cs.Volatility > e.policy.UnstableVolatility
	category := cs.Category
	rising := e.forecaster.Forecast(in.Transactions, forecast.Options{Now: in.Now, Category: &category}).Trend == model.TrendIncreasing
	if !volatile && !rising {
		return model.Recommendation{}, false
	}

	reason := "is rising"
	if volatile {
		reason = "varies a lot month to month"
	}
	return model.Recommendation{
		Type:     model.RecommendSavings,
		Priority: model.PriorityMedium,
		Category: cs.Category,
		Title:    fmt.Sprintf("Save on %s", cs.Category),
		Message: fmt.Sprintf("%s is %.0f%% of your spending and %s.",
			cs.Category, cs.Total/total*100, reason),
		Action: fmt.Sprintf("Aim to cut %s by %.0f%%", cs.Category, savingsRate*100),
		Impact: cs.Total * savingsRate,
	}, true
}
