package forecast

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	secondsPerDay = 24 * 3600
	yearDays      = 365.25
	weekDays      = 7.0
	// assumed observation noise variance on the scaled series, used to turn
	// prior scales into ridge penalties
	noiseVariance = 0.01
	// floor for seasonal penalties so short histories stay well conditioned
	seasonalRidge = 0.05
	trendRidge    = 1e-6
)

// ProphetForecaster implements a Prophet-style additive model:
// - Piecewise linear trend with changepoints spread over the early history
// - Weekly, yearly and optionally daily seasonality using Fourier series
// All components are estimated jointly by ridge-regularised least squares.
type ProphetForecaster struct {
	ChangePointRange      float64 // Proportion of history for potential changepoints (0-1)
	NumChangePoints       int     // Number of potential changepoints
	ChangePointPriorScale float64 // Flexibility of trend changes
	SeasonalityPriorScale float64 // Flexibility of seasonal terms

	YearlySeasonality  bool
	WeeklySeasonality  bool
	DailySeasonality   bool
	FourierOrderYearly int
	FourierOrderWeekly int
	FourierOrderDaily  int

	IntervalWidth float64 // Coverage of prediction intervals (0-1)
}

// prophetModel holds the fitted model parameters
type prophetModel struct {
	cfg          *ProphetForecaster
	changePoints []float64 // normalized changepoint times
	beta         []float64 // intercept, slope, deltas, seasonal coefficients

	yScale float64
	tMin   float64
	tScale float64

	sigma float64 // residual std in original units
	z     float64
}

// NewProphetForecaster creates a forecaster with Prophet's defaults for
// weekly and monthly data: weekly and yearly seasonality on, daily off.
func NewProphetForecaster() *ProphetForecaster {
	return &ProphetForecaster{
		ChangePointRange:      0.8,
		NumChangePoints:       25,
		ChangePointPriorScale: 0.05,
		SeasonalityPriorScale: 10,
		YearlySeasonality:     true,
		WeeklySeasonality:     true,
		DailySeasonality:      false,
		FourierOrderYearly:    10,
		FourierOrderWeekly:    3,
		FourierOrderDaily:     4,
		IntervalWidth:         0.8,
	}
}

// Name returns the algorithm name
func (f *ProphetForecaster) Name() string {
	return "Prophet"
}

// Fit estimates model parameters from historical data
func (f *ProphetForecaster) Fit(data []DataPoint) (Model, error) {
	n := len(data)
	if n < 2 {
		return nil, ErrTooFewPoints
	}

	sorted := make([]DataPoint, n)
	copy(sorted, data)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	model := &prophetModel{cfg: f, z: zScore(f.IntervalWidth)}

	model.tMin = float64(sorted[0].Time.Unix())
	model.tScale = float64(sorted[n-1].Time.Unix()) - model.tMin
	if model.tScale == 0 {
		model.tScale = 1
	}

	model.yScale = 0
	for _, dp := range sorted {
		model.yScale = math.Max(model.yScale, math.Abs(dp.Value))
	}
	if model.yScale == 0 {
		model.yScale = 1
	}

	t := make([]float64, n)
	y := mat.NewVecDense(n, nil)
	for i, dp := range sorted {
		t[i] = model.normTime(dp.Time)
		y.SetVec(i, dp.Value/model.yScale)
	}
	model.changePoints = f.changePoints(t)

	x := mat.NewDense(n, model.numFeatures(), nil)
	for i, dp := range sorted {
		x.SetRow(i, model.features(dp.Time))
	}

	beta, err := solveRidge(x, y, model.penalties())
	if err != nil {
		return nil, fmt.Errorf("failed to fit prophet model: %w", err)
	}
	model.beta = beta

	residuals := make([]float64, n)
	for i, dp := range sorted {
		residuals[i] = dp.Value - model.point(dp.Time)
	}
	model.sigma = residualStd(residuals)

	return model, nil
}

// changePoints places potential changepoints at evenly spaced observations
// within the first ChangePointRange of the history.
func (f *ProphetForecaster) changePoints(t []float64) []float64 {
	histSize := int(math.Floor(float64(len(t)) * f.ChangePointRange))
	num := f.NumChangePoints
	if num+1 > histSize {
		num = histSize - 1
	}
	if num <= 0 {
		return nil
	}

	cps := make([]float64, 0, num)
	step := float64(histSize-1) / float64(num)
	for i := 1; i <= num; i++ {
		idx := int(math.Round(step * float64(i)))
		cps = append(cps, t[idx])
	}
	return cps
}

func (m *prophetModel) normTime(t time.Time) float64 {
	return (float64(t.Unix()) - m.tMin) / m.tScale
}

func (m *prophetModel) numFeatures() int {
	n := 2 + len(m.changePoints)
	if m.cfg.YearlySeasonality {
		n += 2 * m.cfg.FourierOrderYearly
	}
	if m.cfg.WeeklySeasonality {
		n += 2 * m.cfg.FourierOrderWeekly
	}
	if m.cfg.DailySeasonality {
		n += 2 * m.cfg.FourierOrderDaily
	}
	return n
}

// features builds one design row: intercept, slope, changepoint hinges, then
// sin/cos pairs for each enabled seasonality.
func (m *prophetModel) features(ts time.Time) []float64 {
	t := m.normTime(ts)
	row := make([]float64, 0, m.numFeatures())
	row = append(row, 1, t)
	for _, cp := range m.changePoints {
		row = append(row, math.Max(0, t-cp))
	}

	days := float64(ts.Unix()) / secondsPerDay
	if m.cfg.YearlySeasonality {
		row = appendFourier(row, days, yearDays, m.cfg.FourierOrderYearly)
	}
	if m.cfg.WeeklySeasonality {
		row = appendFourier(row, days, weekDays, m.cfg.FourierOrderWeekly)
	}
	if m.cfg.DailySeasonality {
		row = appendFourier(row, days, 1, m.cfg.FourierOrderDaily)
	}
	return row
}

func appendFourier(row []float64, days, period float64, order int) []float64 {
	for k := 1; k <= order; k++ {
		phase := 2 * math.Pi * float64(k) * days / period
		row = append(row, math.Sin(phase), math.Cos(phase))
	}
	return row
}

// penalties returns the ridge weight for every design column, derived from
// the prior scales the way a Gaussian prior maps onto an L2 penalty.
func (m *prophetModel) penalties() []float64 {
	p := make([]float64, 0, m.numFeatures())
	p = append(p, 0, trendRidge)

	cpScale := m.cfg.ChangePointPriorScale
	for range m.changePoints {
		p = append(p, noiseVariance/(cpScale*cpScale))
	}

	sScale := m.cfg.SeasonalityPriorScale
	seasonal := noiseVariance/(sScale*sScale) + seasonalRidge
	for len(p) < m.numFeatures() {
		p = append(p, seasonal)
	}
	return p
}

// solveRidge solves (XᵀX + diag(λ)) β = Xᵀy
func solveRidge(x *mat.Dense, y *mat.VecDense, lambda []float64) ([]float64, error) {
	_, cols := x.Dims()

	var gram mat.SymDense
	gram.SymOuterK(1, x.T())
	for j := 0; j < cols; j++ {
		gram.SetSym(j, j, gram.At(j, j)+lambda[j])
	}

	var xty mat.VecDense
	xty.MulVec(x.T(), y)

	var beta mat.VecDense
	var chol mat.Cholesky
	if chol.Factorize(&gram) {
		if err := chol.SolveVecTo(&beta, &xty); err == nil {
			return beta.RawVector().Data, nil
		}
	}

	// fall back to a general solver for near-singular systems
	if err := beta.SolveVec(&gram, &xty); err != nil {
		return nil, err
	}
	return beta.RawVector().Data, nil
}

// point evaluates the fitted mean at ts in original units
func (m *prophetModel) point(ts time.Time) float64 {
	row := m.features(ts)
	sum := 0.0
	for i, v := range row {
		sum += v * m.beta[i]
	}
	return sum * m.yScale
}

// Predict generates predictions for the requested times
func (m *prophetModel) Predict(times []time.Time) []ForecastPoint {
	out := make([]ForecastPoint, len(times))
	for h, ts := range times {
		value := m.point(ts)
		// Prediction interval widens with horizon
		lower, upper := calculatePredictionInterval(value, m.sigma*math.Sqrt(float64(h+1)), m.z)
		out[h] = ForecastPoint{Time: ts, Value: value, LowerBound: lower, UpperBound: upper}
	}
	return out
}

// residualStd is the population standard deviation of residuals, or 1 when
// the fit is exact.
func residualStd(residuals []float64) float64 {
	if len(residuals) == 0 {
		return 1.0
	}
	_, variance := stat.PopMeanVariance(residuals, nil)
	std := math.Sqrt(variance)
	if std == 0 || math.IsNaN(std) {
		return 1.0
	}
	return std
}
