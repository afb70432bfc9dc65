// Package forecast predicts next-period spending from a transaction history.
package forecast

import (
	"sort"
	"time"

	"github.com/Veraticus/spice-insights/internal/model"
)

// Granularity is the period length a history is aggregated to.
type Granularity string

// Supported granularities.
const (
	Daily   Granularity = "daily"
	Monthly Granularity = "monthly"
)

// Point is the spending total of one period.
type Point struct {
	Period time.Time
	Total  float64
}

// periodStart truncates t to the start of its period in UTC.
func periodStart(t time.Time, g Granularity) time.Time {
	t = t.UTC()
	if g == Monthly {
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func nextPeriod(t time.Time, g Granularity) time.Time {
	if g == Monthly {
		return t.AddDate(0, 1, 0)
	}
	return t.AddDate(0, 0, 1)
}

// Series aggregates expenses into per-period totals, ascending by period.
// Only periods with at least one expense are present.
func Series(transactions []model.Transaction, g Granularity) []Point {
	totals := make(map[time.Time]float64)
	for _, txn := range transactions {
		if !txn.IsExpense() {
			continue
		}
		totals[periodStart(txn.Date, g)] += txn.Amount
	}

	points := make([]Point, 0, len(totals))
	for period, total := range totals {
		points = append(points, Point{Period: period, Total: total})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Period.Before(points[j].Period)
	})
	return points
}

// DenseSeries is Series over window with empty periods filled with zero.
func DenseSeries(transactions []model.Transaction, g Granularity, window model.Window) []Point {
	if window.Start.IsZero() || !window.Start.Before(window.End) {
		return Series(transactions, g)
	}

	observed := make(map[time.Time]float64)
	for _, p := range Series(transactions, g) {
		observed[p.Period] = p.Total
	}

	var points []Point
	for period := periodStart(window.Start, g); period.Before(window.End); period = nextPeriod(period, g) {
		points = append(points, Point{Period: period, Total: observed[period]})
	}
	return points
}

// Values returns the totals of points in order.
func Values(points []Point) []float64 {
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Total
	}
	return values
}
