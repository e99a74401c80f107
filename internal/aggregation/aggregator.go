package aggregation

import (
	"sort"
	"time"

	"github.com/soltixdb/forecaster/internal/analytics"
)

// Bucket accumulates observations that fall into one period
type Bucket struct {
	Start time.Time
	Sum   float64
}

// Aggregator sums observations into anchor-aligned periods
type Aggregator struct {
	anchor Anchor
}

// NewAggregator creates an aggregator bound to one anchor
func NewAggregator(anchor Anchor) *Aggregator {
	return &Aggregator{anchor: anchor}
}

// Buckets groups points by period start. The result is sorted ascending and
// holds one bucket per period that received at least one point.
func (a *Aggregator) Buckets(points analytics.TimeSeriesData, level AggregationLevel) ([]*Bucket, error) {
	index := make(map[int64]*Bucket)
	for _, p := range points {
		start, err := a.anchor.Truncate(level, p.Time)
		if err != nil {
			return nil, err
		}
		key := start.Unix()
		b, ok := index[key]
		if !ok {
			b = &Bucket{Start: start}
			index[key] = b
		}
		b.Sum += p.Value
	}

	buckets := make([]*Bucket, 0, len(index))
	for _, b := range index {
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Start.Before(buckets[j].Start)
	})
	return buckets, nil
}

// Aggregate sums values per period. Every period from the first observation
// to the last is present; periods with no observations sum to zero.
// Timestamps of the result are period starts, strictly increasing.
func (a *Aggregator) Aggregate(points analytics.TimeSeriesData, level AggregationLevel) (analytics.TimeSeriesData, error) {
	if _, err := a.anchor.Truncate(level, time.Time{}); err != nil {
		return nil, err
	}
	buckets, err := a.Buckets(points, level)
	if err != nil {
		return nil, err
	}
	if len(buckets) == 0 {
		return analytics.TimeSeriesData{}, nil
	}

	grid, err := a.anchor.Range(level, buckets[0].Start, buckets[len(buckets)-1].Start)
	if err != nil {
		return nil, err
	}
	out := make(analytics.TimeSeriesData, len(grid))
	next := 0
	for i, start := range grid {
		out[i].Time = start
		if next < len(buckets) && buckets[next].Start.Equal(start) {
			out[i].Value = buckets[next].Sum
			next++
		}
	}
	return out, nil
}
