package forecast

import (
	"math"
	"time"

	"github.com/Veraticus/spice-insights/internal/config"
	"github.com/Veraticus/spice-insights/internal/model"
)

// slopeEpsilon is the smallest slope magnitude treated as a trend.
const slopeEpsilon = 1e-9

// Options select what to forecast.
type Options struct {
	Now         time.Time
	Category    *string // nil forecasts the whole portfolio
	Granularity Granularity
}

// Forecaster predicts the next period's spending.
type Forecaster struct {
	minRegressionPoints  int
	confidenceFullPoints int
	confidenceCap        float64
	scenarioSpread       float64
	seasonalMin          float64
	seasonalMax          float64
}

// NewForecaster creates a forecaster from policy.
func NewForecaster(policy config.PolicyConfig) *Forecaster {
	return &Forecaster{
		minRegressionPoints:  policy.MinRegressionPoints,
		confidenceFullPoints: policy.ConfidenceFullPoints,
		confidenceCap:        policy.ConfidenceCap,
		scenarioSpread:       policy.ScenarioSpread,
		seasonalMin:          policy.SeasonalFactorMin,
		seasonalMax:          policy.SeasonalFactorMax,
	}
}

// Forecast predicts spending for the period after the last observed one.
// Sparse histories degrade to a low-confidence mean rather than failing.
func (f *Forecaster) Forecast(transactions []model.Transaction, opts Options) model.Forecast {
	if opts.Granularity == "" {
		opts.Granularity = Monthly
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.Category != nil {
		transactions = model.FilterByCategory(transactions, *opts.Category)
	}

	return f.FromSeries(Series(transactions, opts.Granularity), opts)
}

// FromSeries forecasts from an already aggregated series.
func (f *Forecaster) FromSeries(points []Point, opts Options) model.Forecast {
	result := model.Forecast{
		Category:       opts.Category,
		DataPoints:     len(points),
		Trend:          model.TrendStable,
		Method:         model.MethodNone,
		SeasonalFactor: 1,
	}
	if len(points) == 0 {
		return result
	}

	values := Values(points)
	reg := LinearRegression(values)
	result.Slope = reg.Slope
	result.Trend = trendOf(reg.Slope)

	if len(points) < f.minRegressionPoints {
		result.Method = model.MethodSimple
		result.Prediction = mean(values)
		result.Confidence = 0.4
		if len(points) < 5 {
			result.Confidence = 0.3
		}
		result.Scenarios = f.scenarios(result.Prediction)
		return result
	}

	result.Method = model.MethodRegression
	result.RSquared = reg.RSquared
	result.SeasonalFactor = f.seasonalFactor(points, opts.Now)

	last := values[len(values)-1]
	result.Prediction = math.Max(0, (last+reg.Slope)*result.SeasonalFactor)

	coverage := math.Min(1, float64(len(points))/float64(f.confidenceFullPoints))
	result.Confidence = clamp(math.Min(f.confidenceCap, reg.RSquared*coverage), 0, 1)
	result.Scenarios = f.scenarios(result.Prediction)
	return result
}

// seasonalFactor compares the periods falling in now's calendar month with the
// whole series. It is 1 when there is nothing to compare.
func (f *Forecaster) seasonalFactor(points []Point, now time.Time) float64 {
	overall := mean(Values(points))
	if overall <= 0 {
		return 1
	}

	month := now.UTC().Month()
	var sum float64
	var n int
	for _, p := range points {
		if p.Period.Month() == month {
			sum += p.Total
			n++
		}
	}
	if n == 0 {
		return 1
	}
	return clamp((sum/float64(n))/overall, f.seasonalMin, f.seasonalMax)
}

func (f *Forecaster) scenarios(prediction float64) model.Scenarios {
	delta := prediction * f.scenarioSpread
	return model.Scenarios{
		Optimistic:  math.Max(0, prediction-delta),
		Realistic:   prediction,
		Pessimistic: prediction + delta,
	}
}

func trendOf(slope float64) model.Trend {
	switch {
	case slope > slopeEpsilon:
		return model.TrendIncreasing
	case slope < -slopeEpsilon:
		return model.TrendDecreasing
	default:
		return model.TrendStable
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
