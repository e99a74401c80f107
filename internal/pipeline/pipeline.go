// Package pipeline turns raw request rows into a forecast response. It runs
// column detection, normalization, aggregation, sanitizing and forecasting
// in that order, then shapes the forecast for output.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/soltixdb/forecaster/internal/aggregation"
	"github.com/soltixdb/forecaster/internal/analytics"
	"github.com/soltixdb/forecaster/internal/analytics/forecast"
	"github.com/soltixdb/forecaster/internal/config"
	"github.com/soltixdb/forecaster/internal/frame"
	"github.com/soltixdb/forecaster/internal/logging"
	"github.com/soltixdb/forecaster/internal/models"
	"github.com/soltixdb/forecaster/internal/preprocess"
)

// ErrInsufficientData is returned when the clean series is shorter than the
// configured minimum
var ErrInsufficientData = errors.New("insufficient data")

// PrimaryAlgorithm is the label reported when only the primary model contributed
const PrimaryAlgorithm = "Prophet"

// Params are the per-request inputs of a run
type Params struct {
	Frequency      string // weekly or monthly
	Horizon        int
	FeatureColumns []string
	IncludeBounds  bool
}

// Pipeline holds the stateless stages of a run. One Pipeline serves any
// number of concurrent runs.
type Pipeline struct {
	logger        *logging.Logger
	detector      *preprocess.Detector
	aggregator    *aggregation.Aggregator
	sanitizer     *preprocess.Sanitizer
	forecaster    *forecast.Forecaster
	minDataPoints int
	nonNegative   bool
}

// New creates a pipeline backed by the Prophet-style engine
func New(logger *logging.Logger, cfg config.PipelineConfig) (*Pipeline, error) {
	engine := forecast.NewProphetForecaster()
	if cfg.IntervalWidth > 0 {
		engine.IntervalWidth = cfg.IntervalWidth
	}
	return NewWithEngine(logger, cfg, engine)
}

// NewWithEngine creates a pipeline around an arbitrary forecasting engine
func NewWithEngine(logger *logging.Logger, cfg config.PipelineConfig, engine forecast.Engine) (*Pipeline, error) {
	anchor, err := aggregation.ParseAnchor(cfg.WeeklyRule, cfg.MonthlyRule)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		logger:        logger,
		detector:      preprocess.NewDetector(nil, nil),
		aggregator:    aggregation.NewAggregator(anchor),
		sanitizer:     preprocess.NewSanitizer(anchor),
		forecaster:    forecast.NewForecaster(engine, anchor),
		minDataPoints: cfg.MinDataPoints,
		nonNegative:   cfg.NonNegative,
	}, nil
}

// Run executes every stage on table. The minimum-length check happens after
// aggregation and sanitizing, so many raw rows that collapse into few
// periods still fail with ErrInsufficientData.
func (p *Pipeline) Run(ctx context.Context, table *frame.Table, params Params) (*models.PredictResponse, error) {
	log := p.logger.WithContext(ctx)
	start := time.Now()

	if table == nil || len(table.Rows) == 0 {
		return nil, fmt.Errorf("%w: empty data set", ErrInsufficientData)
	}

	level, err := aggregation.ParseLevel(params.Frequency)
	if err != nil {
		return nil, err
	}

	cols, err := p.detector.Detect(table)
	if err != nil {
		return nil, err
	}
	log.Debug("Columns detected", "date", cols.Date, "target", cols.Target)

	normalized, err := preprocess.Normalize(table, cols, params.FeatureColumns)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	aggregated, err := p.aggregator.Aggregate(normalized.Series(), level)
	if err != nil {
		return nil, err
	}

	clean, inf := p.sanitizer.Sanitize(aggregated, level)
	log.Debug("Series prepared",
		"raw_rows", len(table.Rows),
		"usable_rows", len(normalized),
		"buckets", len(aggregated),
		"clean_points", len(clean),
		"outliers", len(inf.Outliers),
		"step_confirmed", inf.Confirmed,
	)

	if len(clean) < p.minDataPoints {
		return nil, fmt.Errorf("%w: at least %d data points are required for a reliable forecast, got %d",
			ErrInsufficientData, p.minDataPoints, len(clean))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := p.forecaster.FitPredict(clean, forecast.Request{
		Level:         level,
		Horizon:       params.Horizon,
		IncludeBounds: params.IncludeBounds,
	})
	if err != nil {
		return nil, fmt.Errorf("forecast failed: %w", err)
	}

	log.Debug("Forecast fitted",
		"horizon", params.Horizon,
		"backtest_points", out.ModelInfo.BacktestPoints,
		"duration", time.Since(start),
	)

	return p.shape(out), nil
}

// shape renders the forecaster output: rows sorted by date, ISO dates, and
// in non-negative mode every value and bound floored at zero on its own.
func (p *Pipeline) shape(out *forecast.Output) *models.PredictResponse {
	points := append([]forecast.ForecastPoint(nil), out.Predictions...)
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Time.Before(points[j].Time)
	})

	preds := make([]models.Prediction, len(points))
	for i, fp := range points {
		pred := models.Prediction{
			Date:           fp.Time.UTC().Format(analytics.DateLayout),
			PredictedValue: p.floor(fp.Value),
		}
		if out.HasBounds {
			lower, upper := p.floor(fp.LowerBound), p.floor(fp.UpperBound)
			pred.ConfidenceLower = &lower
			pred.ConfidenceUpper = &upper
		}
		preds[i] = pred
	}

	return &models.PredictResponse{
		Success: true,
		DataSummary: models.DataSummary{
			InputRows:    out.DataSummary.InputRows,
			DateRange:    out.DataSummary.DateRange,
			FeaturesUsed: out.DataSummary.FeaturesUsed,
		},
		Predictions: preds,
		ModelInfo: models.ModelInfo{
			Algorithm:      SquashLabel(out.ModelInfo.Algorithm),
			AccuracyMAE:    out.ModelInfo.Metrics.MAE,
			AccuracyRMSE:   out.ModelInfo.Metrics.RMSE,
			AccuracyMAPE:   out.ModelInfo.Metrics.MAPE,
			BacktestPoints: out.ModelInfo.BacktestPoints,
		},
	}
}

func (p *Pipeline) floor(v float64) float64 {
	if p.nonNegative && v <= 0 {
		return 0
	}
	return v
}

// SquashLabel names only the primary model when an ensemble label reports
// no secondary contributor
func SquashLabel(label string) string {
	l := strings.ToLower(strings.TrimSpace(label))
	if l == "" {
		return PrimaryAlgorithm
	}
	if strings.HasPrefix(l, "ensemble") && !strings.Contains(l, "xgboost") {
		return PrimaryAlgorithm
	}
	return label
}
