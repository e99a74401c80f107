package forecast

import "github.com/soltixdb/forecaster/internal/analytics"

// ValidationSize returns the holdout length for a series of n points and
// whether a backtest can run.
func ValidationSize(n, horizon int) (nVal int, ok bool) {
	nVal = min(max(4, horizon), max(2, n/3))
	return nVal, n >= nVal+5 && nVal >= 2
}

// Backtest holds out the tail, fits a second model on the prefix and scores
// its predictions on periods present in both. Metrics stay nil when the
// preconditions fail or fewer than two periods overlap.
func (f *Forecaster) Backtest(series analytics.TimeSeriesData, req Request) (Metrics, int) {
	nVal, ok := ValidationSize(len(series), req.Horizon)
	if !ok {
		return Metrics{}, nVal
	}

	train := series[:len(series)-nVal]
	holdout := series[len(series)-nVal:]

	model, err := f.engine.Fit(train)
	if err != nil {
		return Metrics{}, nVal
	}
	periods, err := f.futurePeriods(req.Level, train[len(train)-1].Time, nVal)
	if err != nil {
		return Metrics{}, nVal
	}

	predicted := make(map[int64]float64, nVal)
	for _, p := range model.Predict(periods) {
		predicted[p.Time.Unix()] = p.Value
	}

	var actual, fitted []float64
	for _, p := range holdout {
		if v, ok := predicted[p.Time.Unix()]; ok {
			actual = append(actual, p.Value)
			fitted = append(fitted, v)
		}
	}
	if len(actual) < 2 {
		return Metrics{}, nVal
	}
	return CalculateMetrics(actual, fitted), nVal
}
