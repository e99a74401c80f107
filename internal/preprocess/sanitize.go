package preprocess

import (
	"time"

	"github.com/soltixdb/forecaster/internal/aggregation"
	"github.com/soltixdb/forecaster/internal/analytics"
	"github.com/soltixdb/forecaster/internal/analytics/anomaly"
)

const (
	week = 7 * 24 * time.Hour
	// median gaps of at least this many days read as monthly
	monthlyGapDays = 25
)

// Inference describes the period grid a series was reindexed onto
type Inference struct {
	Level     aggregation.AggregationLevel
	Anchor    aggregation.Anchor
	Direct    bool // timestamps are exactly one period apart
	Confirmed bool // the median gap agrees with Level
	Outliers  []anomaly.AnomalyResult
}

// Sanitizer regularises a bucketed series: it reindexes onto the full grid
// of the requested level, fills holes and clamps outliers.
type Sanitizer struct {
	anchor  aggregation.Anchor
	clipper *anomaly.IQRClipper
}

// NewSanitizer creates a sanitizer that reindexes on anchor's grid
func NewSanitizer(anchor aggregation.Anchor) *Sanitizer {
	return &Sanitizer{anchor: anchor, clipper: anomaly.NewIQRClipper()}
}

// Sanitize returns a hole-free series on level's grid with the same span and
// every value inside the IQR fence. Series shorter than two points are
// returned as is. The input must be sorted ascending.
func (s *Sanitizer) Sanitize(series analytics.TimeSeriesData, level aggregation.AggregationLevel) (analytics.TimeSeriesData, Inference) {
	if len(series) < 2 {
		return series.Clone(), Inference{Level: level, Anchor: s.anchor}
	}

	inf := s.Infer(series, level)
	filled := reindex(series, inf)
	inf.Outliers = s.clipper.Detect(filled)
	return s.clipper.Clip(filled), inf
}

// Infer checks the timestamps against level. The level itself is never
// changed: a sparse weekly series whose gaps look monthly stays weekly.
// A series already spaced exactly one week apart keeps its own weekday,
// anything else uses the sanitizer's anchor.
func (s *Sanitizer) Infer(series analytics.TimeSeriesData, level aggregation.AggregationLevel) Inference {
	inf := Inference{Level: level, Anchor: s.anchor}
	if len(series) < 2 {
		return inf
	}

	switch level {
	case aggregation.AggregationWeekly:
		if len(series) >= 3 && isWeekly(series) {
			inf.Anchor = aggregation.Anchor{WeekStart: series[0].Time.UTC().Weekday()}
			inf.Direct = true
		}
	case aggregation.AggregationMonthly:
		inf.Direct = len(series) >= 3 && isMonthStarts(series)
	}

	gaps := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		gaps = append(gaps, series[i].Time.Sub(series[i-1].Time).Hours()/24)
	}
	monthly := int(anomaly.Percentile(gaps, 50)) >= monthlyGapDays
	inf.Confirmed = monthly == (level == aggregation.AggregationMonthly)
	return inf
}

func isWeekly(series analytics.TimeSeriesData) bool {
	for i, p := range series {
		if !p.Time.Equal(aggregation.TruncateToDay(p.Time)) {
			return false
		}
		if i > 0 && p.Time.Sub(series[i-1].Time) != week {
			return false
		}
	}
	return true
}

func isMonthStarts(series analytics.TimeSeriesData) bool {
	for i, p := range series {
		if !p.Time.Equal(aggregation.TruncateToMonth(p.Time)) {
			return false
		}
		if i > 0 && !p.Time.Equal(series[i-1].Time.AddDate(0, 1, 0)) {
			return false
		}
	}
	return true
}

// reindex places every point on the grid period that contains it (later
// points win on collision), then forward- and back-fills empty periods.
func reindex(series analytics.TimeSeriesData, inf Inference) analytics.TimeSeriesData {
	grid, err := inf.Anchor.Range(inf.Level, series[0].Time, series[len(series)-1].Time)
	if err != nil {
		return series.Clone()
	}

	observed := make(map[int64]float64, len(series))
	for _, p := range series {
		start, _ := inf.Anchor.Truncate(inf.Level, p.Time)
		observed[start.Unix()] = p.Value
	}

	out := make(analytics.TimeSeriesData, len(grid))
	have := make([]bool, len(grid))
	for i, t := range grid {
		out[i].Time = t
		out[i].Value, have[i] = observed[t.Unix()]
	}

	// forward fill
	last := -1
	for i := range out {
		if have[i] {
			last = i
		} else if last >= 0 {
			out[i].Value = out[last].Value
			have[i] = true
		}
	}
	// back fill the leading gap
	next := -1
	for i := len(out) - 1; i >= 0; i-- {
		if have[i] {
			next = i
		} else if next >= 0 {
			out[i].Value = out[next].Value
		}
	}
	return out
}
