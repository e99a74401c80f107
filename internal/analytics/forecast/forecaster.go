package forecast

import (
	"fmt"
	"time"

	"github.com/soltixdb/forecaster/internal/aggregation"
	"github.com/soltixdb/forecaster/internal/analytics"
)

// EnsembleLabel names the forecaster as reported before label normalisation
const EnsembleLabel = "Ensemble (Prophet)"

// MaxHorizon caps the number of future periods one request may ask for
const MaxHorizon = 520

// FeaturesUsed lists the model components reported in data summaries
var FeaturesUsed = []string{"trend", "weekly_seasonality", "yearly_seasonality"}

// Request describes one forecast run
type Request struct {
	Level         aggregation.AggregationLevel
	Horizon       int
	IncludeBounds bool
}

// ModelInfo contains metadata about the fitted model and its backtest
type ModelInfo struct {
	Algorithm      string
	Metrics        Metrics
	BacktestPoints int
}

// DataSummary describes the series the model was trained on
type DataSummary struct {
	InputRows    int
	DateRange    string
	FeaturesUsed []string
}

// Output is the result of FitPredict. Bounds on Predictions are zero and
// HasBounds is false unless they were requested.
type Output struct {
	Predictions []ForecastPoint
	HasBounds   bool
	ModelInfo   ModelInfo
	DataSummary DataSummary
}

// Forecaster fits an engine on a clean series, generates future periods on
// the shared anchor grid and scores the engine with a holdout backtest.
type Forecaster struct {
	engine Engine
	anchor aggregation.Anchor
}

// NewForecaster creates a forecaster
func NewForecaster(engine Engine, anchor aggregation.Anchor) *Forecaster {
	return &Forecaster{engine: engine, anchor: anchor}
}

// FitPredict trains on the full series and predicts req.Horizon periods
// strictly after its last timestamp.
func (f *Forecaster) FitPredict(series analytics.TimeSeriesData, req Request) (*Output, error) {
	if req.Horizon <= 0 || req.Horizon > MaxHorizon {
		return nil, fmt.Errorf("horizon must be between 1 and %d, got %d", MaxHorizon, req.Horizon)
	}

	model, err := f.engine.Fit(series)
	if err != nil {
		return nil, err
	}

	last := series[len(series)-1].Time
	future, err := f.futurePeriods(req.Level, last, req.Horizon)
	if err != nil {
		return nil, err
	}

	predictions := model.Predict(future)
	if !req.IncludeBounds {
		for i := range predictions {
			predictions[i].LowerBound = 0
			predictions[i].UpperBound = 0
		}
	}

	metrics, nVal := f.Backtest(series, req)

	return &Output{
		Predictions: predictions,
		HasBounds:   req.IncludeBounds,
		ModelInfo: ModelInfo{
			Algorithm:      EnsembleLabel,
			Metrics:        metrics,
			BacktestPoints: nVal,
		},
		DataSummary: DataSummary{
			InputRows:    len(series),
			DateRange:    series.DateRange(),
			FeaturesUsed: append([]string(nil), FeaturesUsed...),
		},
	}, nil
}

// futurePeriods returns horizon period starts strictly after last
func (f *Forecaster) futurePeriods(level aggregation.AggregationLevel, last time.Time, horizon int) ([]time.Time, error) {
	return f.anchor.Future(level, last, horizon)
}
