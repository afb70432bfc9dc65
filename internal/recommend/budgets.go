package recommend

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Veraticus/spice-insights/internal/forecast"
	"github.com/Veraticus/spice-insights/internal/model"
	"github.com/Veraticus/spice-insights/internal/stats"
)

const (
	// daysPerMonth converts daily figures to monthly ones.
	daysPerMonth = 30
	// minTrendComment is the smallest trend adjustment worth mentioning.
	minTrendComment = 0.01
)

// SuggestBudgets proposes a monthly budget for every analyzed category.
// transactions are the ones summary was computed from; window is the span they
// cover, and a window without a start falls back to the span of transactions.
func (e *Engine) SuggestBudgets(summary stats.Summary, transactions []model.Transaction, window model.Window) []model.BudgetSuggestion {
	if window.Start.IsZero() {
		window = model.SpanOf(transactions)
	}
	days := float64(window.Days())
	suggestions := make([]model.BudgetSuggestion, 0, len(summary.ByCategory))

	for _, cs := range summary.Categories() {
		monthlyBase := cs.Total / days * daysPerMonth
		volatilityBuffer := monthlyBase * cs.Volatility * e.policy.VolatilityBuffer

		daily := forecast.Values(forecast.DenseSeries(model.FilterByCategory(transactions, cs.Category), forecast.Daily, window))
		slope := forecast.LinearRegression(daily).Slope
		limit := monthlyBase * e.policy.TrendAdjustmentCap
		trendAdjustment := math.Max(-limit, math.Min(limit, slope*daysPerMonth))

		recommended := math.Max(0, monthlyBase+volatilityBuffer+trendAdjustment)

		suggestions = append(suggestions, model.BudgetSuggestion{
			Category:    cs.Category,
			Recommended: recommended,
			Min:         math.Min(dailyMedian(daily)*daysPerMonth, recommended),
			Max:         math.Max(monthlyBase*e.policy.BudgetMaxFactor, recommended),
			Reasoning:   e.reasoning(cs, trendAdjustment),
			Confidence:  suggestionConfidence(cs),
		})
	}
	return suggestions
}

// dailyMedian is the median of per-day totals, days without spending included.
func dailyMedian(daily []float64) float64 {
	sorted := append([]float64(nil), daily...)
	sort.Float64s(sorted)
	return stats.Median(sorted)
}

func (e *Engine) reasoning(cs model.CategoryStats, trendAdjustment float64) string {
	var parts []string
	if cs.Count < e.policy.LowSampleCount {
		parts = append(parts, fmt.Sprintf("Based on only %d transactions, so treat this as a starting point.", cs.Count))
	}
	switch {
	case cs.Volatility > e.policy.UnstableVolatility:
		parts = append(parts, "Spending here is unstable, so the budget includes a buffer.")
	case cs.Volatility < e.policy.StableVolatility:
		parts = append(parts, "Spending here is stable.")
	}
	switch {
	case math.Abs(trendAdjustment) < minTrendComment:
	case trendAdjustment > 0:
		parts = append(parts, fmt.Sprintf("Spending is trending up, adding %.2f.", trendAdjustment))
	case trendAdjustment < 0:
		parts = append(parts, fmt.Sprintf("Spending is trending down, reducing by %.2f.", -trendAdjustment))
	}
	if len(parts) == 0 {
		return "Based on your average spending."
	}
	return strings.Join(parts, " ")
}

// suggestionConfidence grows with sample size and shrinks with volatility.
func suggestionConfidence(cs model.CategoryStats) float64 {
	coverage := math.Min(1, float64(cs.Count)/10)
	return math.Max(0, math.Min(1, coverage*(1-cs.Volatility/2)))
}
