package stats

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/spice-insights/internal/config"
	"github.com/Veraticus/spice-insights/internal/model"
)

var propertyCategories = []string{"food", "rent", "transport", "fun"}

func buildTransactions(amounts []float64, picks []int) []model.Transaction {
	txns := make([]model.Transaction, len(amounts))
	for i, amount := range amounts {
		category := propertyCategories[0]
		if i < len(picks) {
			category = propertyCategories[picks[i]%len(propertyCategories)]
		}
		txnType := model.TypeExpense
		if i%5 == 4 {
			txnType = model.TypeIncome
			amount = -amount
		}
		txns[i] = model.Transaction{
			ID:       fmt.Sprintf("t%d", i),
			Date:     baseDate,
			Amount:   amount,
			Type:     txnType,
			Category: category,
		}
	}
	return txns
}

func amountGen() gopter.Gen {
	return gen.Float64Range(0, 1_000_000)
}

// TestAnalyzeTotalsMatchMagnitudes verifies the category totals account for every transaction.
// Property: sum(stats.total) == sum(|amount|)
func TestAnalyzeTotalsMatchMagnitudes(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("category totals sum to the magnitude total", prop.ForAll(
		func(amounts []float64, picks []int) bool {
			if len(amounts) == 0 {
				return true
			}
			txns := buildTransactions(amounts, picks)
			summary, err := Analyze(txns)
			if err != nil {
				return false
			}

			want := decimal.Zero
			for _, txn := range txns {
				want = want.Add(decimal.NewFromFloat(math.Abs(txn.Amount)))
			}
			got := decimal.Zero
			count := 0
			for _, cs := range summary.ByCategory {
				got = got.Add(decimal.NewFromFloat(cs.Total))
				count += cs.Count
			}

			tolerance := want.Abs().Mul(decimal.NewFromFloat(1e-12)).Add(decimal.NewFromFloat(1e-6))
			return count == len(txns) && got.Sub(want).Abs().LessThanOrEqual(tolerance)
		},
		gen.SliceOf(amountGen()),
		gen.SliceOf(gen.IntRange(0, 100)),
	))

	properties.TestingRun(t)
}

// TestAnalyzeOrderIndependent verifies shuffling the input does not change the statistics.
// Property: Analyze(shuffle(txns)) == Analyze(txns)
func TestAnalyzeOrderIndependent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("analysis is independent of input order", prop.ForAll(
		func(amounts []float64, picks []int, seed int64) bool {
			txns := buildTransactions(amounts, picks)
			shuffled := append([]model.Transaction(nil), txns...)
			rand.New(rand.NewSource(seed)).Shuffle(len(shuffled), func(i, j int) {
				shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
			})

			a, errA := Analyze(txns)
			b, errB := Analyze(shuffled)
			if errA != nil || errB != nil || len(a.ByCategory) != len(b.ByCategory) {
				return false
			}
			if a.Total != b.Total {
				return false
			}
			for category, sa := range a.ByCategory {
				sb := b.ByCategory[category]
				if sa.Total != sb.Total || sa.Median != sb.Median || sa.Count != sb.Count || sa.Mean != sb.Mean {
					return false
				}
				if math.Abs(sa.StdDev-sb.StdDev) > 1e-6*math.Max(1, sa.StdDev) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(amountGen()),
		gen.SliceOf(gen.IntRange(0, 100)),
		gen.Int64(),
	))

	properties.TestingRun(t)
}

// TestVolatilityBounds verifies the volatility invariant for every category.
// Property: 0 <= volatility <= 1, and volatility == 0 when mean == 0
func TestVolatilityBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("volatility stays within [0,1]", prop.ForAll(
		func(amounts []float64, picks []int) bool {
			summary, err := Analyze(buildTransactions(amounts, picks))
			if err != nil {
				return false
			}
			for _, cs := range summary.ByCategory {
				if cs.Volatility < 0 || cs.Volatility > 1 {
					return false
				}
				if cs.Mean == 0 && cs.Volatility != 0 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(amountGen()),
		gen.SliceOf(gen.IntRange(0, 100)),
	))

	properties.TestingRun(t)
}

// TestAnomaliesSortedByMagnitude verifies detector output ordering.
// Property: |z[i]| >= |z[i+1]| and every |z| exceeds the medium threshold
func TestAnomaliesSortedByMagnitude(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)
	policy := config.DefaultPolicy()
	detector := NewAnomalyDetector(policy)

	properties.Property("anomalies are ordered by |z| descending", prop.ForAll(
		func(amounts []float64, picks []int) bool {
			txns := buildTransactions(amounts, picks)
			summary, err := Analyze(txns)
			if err != nil {
				return false
			}
			anomalies := detector.Detect(txns, summary)
			for i, a := range anomalies {
				if math.Abs(a.ZScore) <= policy.AnomalyMediumZ {
					return false
				}
				if i > 0 && math.Abs(anomalies[i-1].ZScore) < math.Abs(a.ZScore) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(amountGen()),
		gen.SliceOf(gen.IntRange(0, 100)),
	))

	properties.TestingRun(t)
}
