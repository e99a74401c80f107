// Package anomaly finds and clamps outlying values in a time series.
package anomaly

import "github.com/soltixdb/forecaster/internal/analytics"

// AnomalyType represents the direction of an outlier
type AnomalyType string

const (
	AnomalyTypeSpike AnomalyType = "spike" // above the upper fence
	AnomalyTypeDrop  AnomalyType = "drop"  // below the lower fence
)

// DataPoint is an alias to the shared analytics.TimeSeriesPoint type.
type DataPoint = analytics.TimeSeriesPoint

// Range is the closed interval of values considered normal
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies inside the range
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Clamp pulls v into the range
func (r Range) Clamp(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// AnomalyResult describes one point outside the expected range
type AnomalyResult struct {
	Index    int
	Score    float64 // distance beyond the fence in IQR units
	Type     AnomalyType
	Expected Range
}
