package preprocess

import (
	"fmt"
	"sort"
	"time"

	"github.com/soltixdb/forecaster/internal/analytics"
	"github.com/soltixdb/forecaster/internal/frame"
)

// NormalizedPoint is one usable observation after renaming to ds/y
type NormalizedPoint struct {
	DS       time.Time
	Y        float64
	Features map[string]interface{}
}

// NormalizedSeries is sorted ascending by DS; duplicate timestamps are allowed
type NormalizedSeries []NormalizedPoint

// Series drops passthrough features and returns the ds/y pairs
func (s NormalizedSeries) Series() analytics.TimeSeriesData {
	out := make(analytics.TimeSeriesData, len(s))
	for i, p := range s {
		out[i] = analytics.TimeSeriesPoint{Time: p.DS, Value: p.Y}
	}
	return out
}

// Normalize renames the detected columns to ds/y, drops rows whose date does
// not parse or whose target is not numeric, keeps requested feature columns
// that exist, and sorts by ds.
//
// A target or date column that yields no usable value in any row is treated
// as missing and reported as ErrColumnNotFound.
func Normalize(table *frame.Table, cols DetectedColumns, featureColumns []string) (NormalizedSeries, error) {
	present := make(map[string]struct{}, len(table.Columns))
	for _, c := range table.Columns {
		present[c] = struct{}{}
	}
	var kept []string
	for _, f := range featureColumns {
		if _, ok := present[f]; ok && f != cols.Date && f != cols.Target {
			kept = append(kept, f)
		}
	}

	var (
		out       NormalizedSeries
		anyDate   bool
		anyTarget bool
	)
	for _, row := range table.Rows {
		ds, okDate := row.Time(cols.Date)
		y, okTarget := row.Float(cols.Target)
		anyDate = anyDate || okDate
		anyTarget = anyTarget || okTarget
		if !okDate || !okTarget {
			continue
		}

		p := NormalizedPoint{DS: ds, Y: y}
		if len(kept) > 0 {
			p.Features = make(map[string]interface{}, len(kept))
			for _, f := range kept {
				p.Features[f] = row[f]
			}
		}
		out = append(out, p)
	}

	if !anyTarget {
		return nil, fmt.Errorf("%w: column %q has no numeric values", ErrColumnNotFound, cols.Target)
	}
	if !anyDate {
		return nil, fmt.Errorf("%w: column %q has no parseable dates", ErrColumnNotFound, cols.Date)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DS.Before(out[j].DS)
	})
	return out, nil
}
