package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-insights/internal/model"
)

func TestSeries(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 3, d, 15, 0, 0, 0, time.UTC) }
	txns := []model.Transaction{
		{ID: "a", Date: day(3), Amount: 10, Type: model.TypeExpense, Category: "food"},
		{ID: "b", Date: day(1), Amount: 5, Type: model.TypeExpense, Category: "food"},
		{ID: "c", Date: day(3), Amount: 7, Type: model.TypeExpense, Category: "food"},
		{ID: "d", Date: day(2), Amount: 100, Type: model.TypeIncome, Category: "pay"},
	}

	daily := Series(txns, Daily)
	require.Len(t, daily, 2)
	assert.Equal(t, []float64{5, 17}, Values(daily))
	assert.True(t, daily[0].Period.Before(daily[1].Period))

	dense := DenseSeries(txns, Daily, model.Window{Start: day(1), End: day(5)})
	assert.Equal(t, []float64{5, 0, 17, 0}, Values(dense))

	months := Series(txns, Monthly)
	require.Len(t, months, 1)
	assert.InDelta(t, 22.0, months[0].Total, 1e-9)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), months[0].Period)
}

func TestLinearRegression(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   Regression
	}{
		{name: "empty", values: nil, want: Regression{}},
		{name: "single", values: []float64{4}, want: Regression{Intercept: 4}},
		{name: "flat", values: []float64{3, 3, 3}, want: Regression{Intercept: 3, RSquared: 1}},
		{name: "perfect line", values: []float64{1, 3, 5, 7}, want: Regression{Slope: 2, Intercept: 1, RSquared: 1}},
		{name: "noisy", values: []float64{1, 3, 2, 4}, want: Regression{Slope: 0.8, Intercept: 1.3, RSquared: 0.64}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LinearRegression(tt.values)
			assert.InDelta(t, tt.want.Slope, got.Slope, 1e-9)
			assert.InDelta(t, tt.want.Intercept, got.Intercept, 1e-9)
			assert.InDelta(t, tt.want.RSquared, got.RSquared, 1e-9)
		})
	}
}
