package stats

import (
	"math"
	"sort"

	"github.com/Veraticus/spice-insights/internal/config"
	"github.com/Veraticus/spice-insights/internal/model"
)

// AnomalyDetector flags transactions far from their category mean.
type AnomalyDetector struct {
	mediumZ float64
	highZ   float64
}

// NewAnomalyDetector creates a detector using the policy's z-score thresholds.
func NewAnomalyDetector(policy config.PolicyConfig) *AnomalyDetector {
	return &AnomalyDetector{
		mediumZ: policy.AnomalyMediumZ,
		highZ:   policy.AnomalyHighZ,
	}
}

// ZScore returns (amount - mean) / stdDev, and false when stdDev is zero.
func ZScore(amount float64, stats model.CategoryStats) (float64, bool) {
	if stats.StdDev == 0 {
		return 0, false
	}
	return (amount - stats.Mean) / stats.StdDev, true
}

// Detect returns the anomalous transactions, most extreme first.
// Categories without variance, or absent from summary, produce no anomalies.
func (d *AnomalyDetector) Detect(transactions []model.Transaction, summary Summary) []model.Anomaly {
	anomalies := make([]model.Anomaly, 0)

	for _, txn := range transactions {
		stats, ok := summary.ByCategory[txn.Category]
		if !ok {
			continue
		}
		z, ok := ZScore(math.Abs(txn.Amount), stats)
		if !ok {
			continue
		}

		absZ := math.Abs(z)
		if absZ <= d.mediumZ {
			continue
		}

		anomaly := model.Anomaly{
			Transaction: txn,
			ZScore:      z,
			Severity:    model.SeverityMedium,
			Direction:   model.DirectionUnusuallyHigh,
		}
		if absZ > d.highZ {
			anomaly.Severity = model.SeverityHigh
		}
		if z < 0 {
			anomaly.Direction = model.DirectionUnusuallyLow
		}
		anomalies = append(anomalies, anomaly)
	}

	sort.SliceStable(anomalies, func(i, j int) bool {
		zi, zj := math.Abs(anomalies[i].ZScore), math.Abs(anomalies[j].ZScore)
		if zi != zj {
			return zi > zj
		}
		return anomalies[i].Transaction.ID < anomalies[j].Transaction.ID
	})
	return anomalies
}
