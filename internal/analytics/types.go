// Package analytics provides the series types shared by preprocessing,
// anomaly clipping and forecasting.
package analytics

import "time"

// DateLayout is the calendar format used on the wire for series timestamps
const DateLayout = "2006-01-02"

// TimeSeriesPoint represents a single time-series data point with time and value.
type TimeSeriesPoint struct {
	Time  time.Time
	Value float64
}

// TimeSeriesData represents a collection of time-series data points
type TimeSeriesData []TimeSeriesPoint

// Values extracts just the values from the time series
func (ts TimeSeriesData) Values() []float64 {
	values := make([]float64, len(ts))
	for i, p := range ts {
		values[i] = p.Value
	}
	return values
}

// DateRange renders the first and last timestamps as "YYYY-MM-DD to YYYY-MM-DD".
// The series is assumed sorted; an empty series yields "".
func (ts TimeSeriesData) DateRange() string {
	if len(ts) == 0 {
		return ""
	}
	return ts[0].Time.Format(DateLayout) + " to " + ts[len(ts)-1].Time.Format(DateLayout)
}

// Clone returns a copy that shares no backing array with ts
func (ts TimeSeriesData) Clone() TimeSeriesData {
	out := make(TimeSeriesData, len(ts))
	copy(out, ts)
	return out
}
