package anomaly

import (
	"sort"

	"github.com/soltixdb/forecaster/internal/analytics"
)

// DefaultIQRMultiplier is the Tukey fence constant
const DefaultIQRMultiplier = 1.5

// IQRClipper bounds values to [Q1 - k*IQR, Q3 + k*IQR].
// Quartiles use linear interpolation between closest ranks.
type IQRClipper struct {
	Multiplier float64
}

// NewIQRClipper returns a clipper with the standard 1.5 multiplier
func NewIQRClipper() *IQRClipper {
	return &IQRClipper{Multiplier: DefaultIQRMultiplier}
}

// Fence computes the expected range for values
func (c *IQRClipper) Fence(values []float64) Range {
	q1, q3, iqr := CalculateIQR(values)
	return Range{
		Min: q1 - c.Multiplier*iqr,
		Max: q3 + c.Multiplier*iqr,
	}
}

// Detect finds points outside the fence
func (c *IQRClipper) Detect(data []DataPoint) []AnomalyResult {
	if len(data) == 0 {
		return nil
	}

	values := analytics.TimeSeriesData(data).Values()
	_, _, iqr := CalculateIQR(values)
	fence := c.Fence(values)

	var results []AnomalyResult
	for i, dp := range data {
		if fence.Contains(dp.Value) {
			continue
		}
		score := 1.0
		anomalyType := AnomalyTypeSpike
		if dp.Value < fence.Min {
			anomalyType = AnomalyTypeDrop
			if iqr > 0 {
				score = (fence.Min - dp.Value) / iqr
			}
		} else if iqr > 0 {
			score = (dp.Value - fence.Max) / iqr
		}
		results = append(results, AnomalyResult{
			Index:    i,
			Score:    score,
			Type:     anomalyType,
			Expected: fence,
		})
	}
	return results
}

// Clip returns a copy of data with every value clamped into the fence.
// Point count and timestamps are unchanged.
func (c *IQRClipper) Clip(data []DataPoint) []DataPoint {
	out := make([]DataPoint, len(data))
	if len(data) == 0 {
		return out
	}

	values := analytics.TimeSeriesData(data).Values()
	fence := c.Fence(values)

	for i, dp := range data {
		out[i] = DataPoint{Time: dp.Time, Value: fence.Clamp(dp.Value)}
	}
	return out
}

// percentile calculates the p-th percentile of sorted data
// p should be between 0 and 100
func percentile(sortedData []float64, p float64) float64 {
	if len(sortedData) == 0 {
		return 0
	}
	if len(sortedData) == 1 {
		return sortedData[0]
	}

	index := (p / 100) * float64(len(sortedData)-1)
	lower := int(index)
	upper := lower + 1

	if upper >= len(sortedData) {
		return sortedData[len(sortedData)-1]
	}

	weight := index - float64(lower)
	return sortedData[lower]*(1-weight) + sortedData[upper]*weight
}

// Percentile returns the p-th percentile (0..100) of unsorted values using
// linear interpolation. Values are not modified.
func Percentile(values []float64, p float64) float64 {
	sortedValues := make([]float64, len(values))
	copy(sortedValues, values)
	sort.Float64s(sortedValues)
	return percentile(sortedValues, p)
}

// CalculateIQR returns Q1, Q3, and IQR for a slice of values
func CalculateIQR(values []float64) (q1, q3, iqr float64) {
	if len(values) == 0 {
		return 0, 0, 0
	}

	sortedValues := make([]float64, len(values))
	copy(sortedValues, values)
	sort.Float64s(sortedValues)

	q1 = percentile(sortedValues, 25)
	q3 = percentile(sortedValues, 75)
	return q1, q3, q3 - q1
}
