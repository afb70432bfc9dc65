package stats

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/spice-insights/internal/model"
)

// BudgetProgress computes spending against each budget from the expenses in
// transactions. Callers restrict transactions to the budget period beforehand.
// Results follow the order of budgets.
func BudgetProgress(budgets []model.Budget, transactions []model.Transaction, tiers model.BudgetTiers) []model.BudgetProgress {
	spent := make(map[string]decimal.Decimal)
	for _, txn := range transactions {
		if !txn.IsExpense() {
			continue
		}
		spent[txn.Category] = spent[txn.Category].Add(decimal.NewFromFloat(txn.Amount))
	}

	result := make([]model.BudgetProgress, 0, len(budgets))
	for _, budget := range budgets {
		total := spent[budget.Category]
		limit := decimal.NewFromFloat(budget.Amount)

		progress := model.BudgetProgress{
			Budget:    budget,
			Spent:     total.InexactFloat64(),
			Remaining: limit.Sub(total).InexactFloat64(),
		}
		switch {
		case limit.IsPositive():
			progress.Usage = total.Div(limit).InexactFloat64()
			progress.Status = tiers.StatusFor(progress.Usage)
		case total.IsPositive():
			progress.Status = model.StatusOverBudget
		default:
			progress.Status = model.StatusOnTrack
		}
		result = append(result, progress)
	}
	return result
}

// ProgressByPeriod measures each budget against the expenses of its own period
// ending at now, so weekly and yearly budgets are not judged on a month of spend.
// Unknown periods fall back to a month. Results follow the order of budgets.
func ProgressByPeriod(budgets []model.Budget, transactions []model.Transaction, now time.Time, tiers model.BudgetTiers) []model.BudgetProgress {
	windowed := make(map[model.Timeframe][]model.Transaction)
	result := make([]model.BudgetProgress, 0, len(budgets))
	for _, budget := range budgets {
		tf, ok := budget.Period.Timeframe()
		if !ok {
			tf = model.TimeframeMonth
		}
		txns, seen := windowed[tf]
		if !seen {
			txns = InWindow(transactions, tf.Range(now))
			windowed[tf] = txns
		}
		result = append(result, BudgetProgress([]model.Budget{budget}, txns, tiers)...)
	}
	return result
}

// MostAtRisk orders progress entries by usage, highest first.
func MostAtRisk(progress []model.BudgetProgress) []model.BudgetProgress {
	sorted := append([]model.BudgetProgress(nil), progress...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Usage > sorted[j].Usage
	})
	return sorted
}
