package forecast

import (
	"errors"
	"math"
	"time"

	"github.com/soltixdb/forecaster/internal/analytics"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// DataPoint is an alias to the shared analytics.TimeSeriesPoint type.
type DataPoint = analytics.TimeSeriesPoint

// ErrTooFewPoints is returned when a model cannot be fitted on the data given
var ErrTooFewPoints = errors.New("need at least 2 data points to fit")

// ForecastPoint represents a single forecast prediction
type ForecastPoint struct {
	Time       time.Time
	Value      float64
	LowerBound float64
	UpperBound float64
}

// Engine fits a model to a series. Each call to Fit yields an independent model.
type Engine interface {
	// Name returns the algorithm name
	Name() string
	// Fit estimates model parameters from sorted historical data
	Fit(data []DataPoint) (Model, error)
}

// Model predicts values and intervals for arbitrary timestamps
type Model interface {
	// Predict returns one point per requested time. Interval width grows with
	// the position of the time in the slice.
	Predict(times []time.Time) []ForecastPoint
}

// Metrics are backtest accuracy figures. A nil field means not computable.
type Metrics struct {
	MAE  *float64
	RMSE *float64
	MAPE *float64
}

// CalculateMAPE calculates Mean Absolute Percentage Error over periods whose
// actual value is non-zero. ok is false when no such period exists.
func CalculateMAPE(actual, predicted []float64) (mape float64, ok bool) {
	if len(actual) != len(predicted) || len(actual) == 0 {
		return 0, false
	}

	var ratios []float64
	for i := range actual {
		if actual[i] != 0 {
			ratios = append(ratios, math.Abs((actual[i]-predicted[i])/actual[i]))
		}
	}
	if len(ratios) == 0 {
		return 0, false
	}
	return stat.Mean(ratios, nil) * 100, true
}

// CalculateMAE calculates Mean Absolute Error
func CalculateMAE(actual, predicted []float64) float64 {
	if len(actual) != len(predicted) || len(actual) == 0 {
		return 0
	}
	return floats.Distance(actual, predicted, 1) / float64(len(actual))
}

// CalculateRMSE calculates Root Mean Squared Error
func CalculateRMSE(actual, predicted []float64) float64 {
	if len(actual) != len(predicted) || len(actual) == 0 {
		return 0
	}
	d := floats.Distance(actual, predicted, 2)
	return math.Sqrt(d * d / float64(len(actual)))
}

// CalculateMetrics computes MAE, RMSE and MAPE for paired values.
// Non-finite results are reported as nil.
func CalculateMetrics(actual, predicted []float64) Metrics {
	var m Metrics
	if len(actual) != len(predicted) || len(actual) == 0 {
		return m
	}
	m.MAE = finite(CalculateMAE(actual, predicted))
	m.RMSE = finite(CalculateRMSE(actual, predicted))
	if mape, ok := CalculateMAPE(actual, predicted); ok {
		m.MAPE = finite(mape)
	}
	return m
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// zScore returns the two-sided standard normal quantile for an interval width
// in (0, 1), e.g. 0.8 -> 1.2816.
func zScore(width float64) float64 {
	if width <= 0 || width >= 1 {
		width = 0.8
	}
	return distuv.UnitNormal.Quantile(0.5 + width/2)
}

// calculatePredictionInterval calculates prediction interval bounds
func calculatePredictionInterval(value, stdError, z float64) (lower, upper float64) {
	margin := z * stdError
	return value - margin, value + margin
}
