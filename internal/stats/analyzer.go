// Package stats computes descriptive statistics, budget progress and anomalies
// over a user's transaction set.
package stats

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/spice-insights/internal/common"
	"github.com/Veraticus/spice-insights/internal/model"
)

// Summary is the result of one analysis pass.
type Summary struct {
	ByCategory map[string]model.CategoryStats `json:"by_category"`
	Total      float64                        `json:"total"`
	Count      int                            `json:"count"`
}

// Categories returns the analyzed categories sorted by total, largest first.
func (s Summary) Categories() []model.CategoryStats {
	result := make([]model.CategoryStats, 0, len(s.ByCategory))
	for _, cs := range s.ByCategory {
		result = append(result, cs)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Total != result[j].Total {
			return result[i].Total > result[j].Total
		}
		return result[i].Category < result[j].Category
	})
	return result
}

type accumulator struct {
	amounts []float64
	total   decimal.Decimal
}

// Analyze computes per-category statistics for transactions. Amounts are taken
// as magnitudes. An empty input yields an empty summary.
func Analyze(transactions []model.Transaction) (Summary, error) {
	return AnalyzeContext(context.Background(), transactions, 0)
}

// AnalyzeContext is Analyze with cancellation checked every chunkSize transactions.
// A chunkSize of zero or less checks only once, before starting.
func AnalyzeContext(ctx context.Context, transactions []model.Transaction, chunkSize int) (Summary, error) {
	if err := ctx.Err(); err != nil {
		return Summary{}, err
	}

	groups := make(map[string]*accumulator)
	grand := decimal.Zero

	for i, txn := range transactions {
		if chunkSize > 0 && i > 0 && i%chunkSize == 0 {
			if err := ctx.Err(); err != nil {
				return Summary{}, err
			}
		}
		if err := checkTransaction(i, &txn); err != nil {
			return Summary{}, err
		}

		amount := math.Abs(txn.Amount)
		acc, ok := groups[txn.Category]
		if !ok {
			acc = &accumulator{}
			groups[txn.Category] = acc
		}
		acc.amounts = append(acc.amounts, amount)
		exact := decimal.NewFromFloat(amount)
		acc.total = acc.total.Add(exact)
		grand = grand.Add(exact)
	}

	summary := Summary{
		ByCategory: make(map[string]model.CategoryStats, len(groups)),
		Total:      grand.InexactFloat64(),
		Count:      len(transactions),
	}
	for category, acc := range groups {
		summary.ByCategory[category] = describe(category, acc)
	}
	return summary, nil
}

// AnalyzeByTimeframe restricts transactions to the timeframe ending at now before analyzing.
func AnalyzeByTimeframe(transactions []model.Transaction, tf model.Timeframe, now time.Time) (Summary, error) {
	return Analyze(InWindow(transactions, tf.Range(now)))
}

// InWindow returns the transactions dated inside window, preserving order.
func InWindow(transactions []model.Transaction, window model.Window) []model.Transaction {
	result := make([]model.Transaction, 0, len(transactions))
	for _, txn := range transactions {
		if window.Contains(txn.Date) {
			result = append(result, txn)
		}
	}
	return result
}

// Validate reports the first transaction that no analysis can accept.
func Validate(transactions []model.Transaction) error {
	for i := range transactions {
		if err := checkTransaction(i, &transactions[i]); err != nil {
			return err
		}
	}
	return nil
}

func checkTransaction(index int, txn *model.Transaction) error {
	switch {
	case math.IsNaN(txn.Amount) || math.IsInf(txn.Amount, 0):
		return common.InvalidInputf("transaction %d (%s) has a non-finite amount", index, txn.ID)
	case !txn.Type.IsValid():
		return common.InvalidInputf("transaction %d (%s) has unknown type %q", index, txn.ID, txn.Type)
	case txn.Category == "":
		return common.InvalidInputf("transaction %d (%s) has no category", index, txn.ID)
	}
	return nil
}

func describe(category string, acc *accumulator) model.CategoryStats {
	count := len(acc.amounts)
	total := acc.total.InexactFloat64()
	mean := acc.total.Div(decimal.NewFromInt(int64(count))).InexactFloat64()

	sorted := append([]float64(nil), acc.amounts...)
	sort.Float64s(sorted)

	stdDev := StdDev(acc.amounts, mean)

	return model.CategoryStats{
		Category:   category,
		Count:      count,
		Total:      total,
		Mean:       mean,
		Median:     Median(sorted),
		StdDev:     stdDev,
		Volatility: Volatility(stdDev, mean),
	}
}

// Median returns the middle of an ascending slice, averaging the two middle values
// when its length is even. It returns 0 for an empty slice.
func Median(sorted []float64) float64 {
	n := len(sorted)
	switch {
	case n == 0:
		return 0
	case n%2 == 1:
		return sorted[n/2]
	default:
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
}

// StdDev returns the population standard deviation of values around mean.
func StdDev(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		diff := v - mean
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(values)))
}

// Volatility is stdDev/mean clamped to 1, and 0 when mean is not positive.
func Volatility(stdDev, mean float64) float64 {
	if mean <= 0 {
		return 0
	}
	return math.Min(stdDev/mean, 1)
}
