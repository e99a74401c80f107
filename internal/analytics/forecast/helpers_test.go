package forecast

import (
	"math"
	"time"

	"github.com/soltixdb/forecaster/internal/analytics"
)

// Common test data and helpers for all forecast tests

var testBaseTime = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC) // a Monday

// generateWeeklyLinear creates weekly data with y = slope*i + intercept
func generateWeeklyLinear(n int, slope, intercept float64) analytics.TimeSeriesData {
	data := make(analytics.TimeSeriesData, n)
	for i := 0; i < n; i++ {
		data[i] = DataPoint{
			Time:  testBaseTime.AddDate(0, 0, 7*i),
			Value: slope*float64(i) + intercept,
		}
	}
	return data
}

// generateWeeklySeasonal creates weekly data with a yearly cycle
func generateWeeklySeasonal(n int) analytics.TimeSeriesData {
	data := make(analytics.TimeSeriesData, n)
	for i := 0; i < n; i++ {
		seasonal := 20 * math.Sin(2*math.Pi*float64(i)/52.18)
		data[i] = DataPoint{
			Time:  testBaseTime.AddDate(0, 0, 7*i),
			Value: 100 + 0.5*float64(i) + seasonal,
		}
	}
	return data
}

// fakeEngine predicts a constant and counts fits
type fakeEngine struct {
	value float64
	fits  int
	sizes []int
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Fit(data []DataPoint) (Model, error) {
	if len(data) < 2 {
		return nil, ErrTooFewPoints
	}
	e.fits++
	e.sizes = append(e.sizes, len(data))
	return constModel(e.value), nil
}

type constModel float64

func (m constModel) Predict(times []time.Time) []ForecastPoint {
	out := make([]ForecastPoint, len(times))
	for i, t := range times {
		out[i] = ForecastPoint{Time: t, Value: float64(m), LowerBound: float64(m) - 1, UpperBound: float64(m) + 1}
	}
	return out
}
