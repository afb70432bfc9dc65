// Package recurring finds expenses that repeat on a regular cadence.
package recurring

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/spice-insights/internal/model"
)

const (
	// minOccurrences is the fewest payments that establish a series.
	minOccurrences = 3
	// minMatchRatio is the share of intervals that must fit the cadence.
	minMatchRatio = 0.5
)

type cadence struct {
	frequency model.RecurringFrequency
	minDays   float64
	maxDays   float64
}

var cadences = []cadence{
	{model.RecurringWeekly, 5, 9},
	{model.RecurringFortnightly, 12, 16},
	{model.RecurringMonthly, 27, 34},
	{model.RecurringQuarterly, 85, 95},
	{model.RecurringAnnually, 355, 375},
}

// Detect groups expenses by normalized description and returns the groups
// that recur on a weekly to annual cadence, soonest expected first.
func Detect(transactions []model.Transaction) []model.RecurringSeries {
	groups := make(map[string][]model.Transaction)
	for _, txn := range transactions {
		if !txn.IsExpense() {
			continue
		}
		key := Normalize(txn.Description)
		if key == "" {
			continue
		}
		groups[key] = append(groups[key], txn)
	}

	result := make([]model.RecurringSeries, 0)
	for key, group := range groups {
		if len(group) < minOccurrences {
			continue
		}
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Date.Before(group[j].Date)
		})

		var intervals []float64
		for i := 1; i < len(group); i++ {
			if days := group[i].Date.Sub(group[i-1].Date).Hours() / 24; days > 0 {
				intervals = append(intervals, days)
			}
		}

		frequency, ok := classify(intervals)
		if !ok {
			continue
		}

		var total float64
		for _, txn := range group {
			total += txn.Amount
		}
		last := group[len(group)-1]

		result = append(result, model.RecurringSeries{
			Key:           key,
			Description:   group[0].Description,
			Category:      last.Category,
			Frequency:     frequency,
			Occurrences:   len(group),
			AverageAmount: math.Round(total/float64(len(group))*100) / 100,
			LastSeen:      last.Date,
			ExpectedNext:  NextDate(last.Date, frequency),
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].ExpectedNext.Equal(result[j].ExpectedNext) {
			return result[i].ExpectedNext.Before(result[j].ExpectedNext)
		}
		return result[i].Key < result[j].Key
	})
	return result
}

// Overdue returns the series at least minDays past their expected date.
func Overdue(series []model.RecurringSeries, now time.Time, minDays int) []model.RecurringSeries {
	if minDays < 1 {
		minDays = 1
	}
	var result []model.RecurringSeries
	for _, s := range series {
		if s.DaysOverdue(now) >= minDays {
			result = append(result, s)
		}
	}
	return result
}

// Normalize reduces a description to its grouping key.
func Normalize(description string) string {
	return strings.Join(strings.Fields(strings.ToLower(description)), " ")
}

// NextDate returns when the payment after last is expected.
func NextDate(last time.Time, frequency model.RecurringFrequency) time.Time {
	switch frequency {
	case model.RecurringWeekly:
		return last.AddDate(0, 0, 7)
	case model.RecurringFortnightly:
		return last.AddDate(0, 0, 14)
	case model.RecurringQuarterly:
		return last.AddDate(0, 3, 0)
	case model.RecurringAnnually:
		return last.AddDate(1, 0, 0)
	default:
		return last.AddDate(0, 1, 0)
	}
}

func classify(intervals []float64) (model.RecurringFrequency, bool) {
	if len(intervals) == 0 {
		return "", false
	}
	var sum float64
	for _, d := range intervals {
		sum += d
	}
	avg := sum / float64(len(intervals))

	for _, c := range cadences {
		if avg < c.minDays || avg > c.maxDays {
			continue
		}
		matched := 0
		for _, d := range intervals {
			if d >= c.minDays && d <= c.maxDays {
				matched++
			}
		}
		if float64(matched)/float64(len(intervals)) < minMatchRatio {
			return "", false
		}
		return c.frequency, true
	}
	return "", false
}
