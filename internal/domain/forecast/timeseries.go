// Package forecast projects momentum trajectories forward and combines
// sub-model risk scores into the final assessment.
package forecast

import (
	"math"

	"github.com/okian/momentum/pkg/metrics"
)

// Forecaster settings.
const (
	minFitPoints = 10

	// ARIMA(2,1,2) structure: two autoregressive lags and two moving-average
	// lags on the once-differenced series.
	arOrder = 2
	maOrder = 2

	// Baseline fallback: geometric decay with flat uncertainty bands.
	baselineDecay = 0.98
	baselineBand  = 10.0

	// 95% band multiplier on the residual standard deviation.
	bandZ = 1.96

	// Holt double-exponential smoothing parameters.
	holtLevelAlpha = 0.3
	holtTrendBeta  = 0.1

	// Model labels reported on projections.
	ModelARIMA    = "arima"
	ModelBaseline = "baseline"
	ModelHolt     = "holt"
)

// Projection is a point forecast with uncertainty bands.
type Projection struct {
	Forecast []float64 `json:"forecast"`
	Lower    []float64 `json:"lower"`
	Upper    []float64 `json:"upper"`
	Model    string    `json:"model"`
}

// Forecaster fits low-order time-series models to momentum history.
type Forecaster struct{}

// NewForecaster constructs a Forecaster.
func NewForecaster() *Forecaster {
	return &Forecaster{}
}

// Forecast projects the series nDays ahead. Series with at least ten points
// get an ARIMA(2,1,2) fit; shorter series, or series the fit cannot handle,
// fall back to geometric decay from the last value.
func (f *Forecaster) Forecast(series []float64, nDays int) Projection {
	if nDays < 1 {
		nDays = 1
	}
	if len(series) < minFitPoints {
		metrics.RecordForecastFallback(ModelBaseline)
		return baseline(series, nDays)
	}
	if p, ok := fitARIMA(series, nDays); ok {
		return p
	}
	metrics.RecordForecastFallback(ModelBaseline)
	return baseline(series, nDays)
}

// ForecastSmoothed projects via Holt double-exponential smoothing, an
// alternate trend-following view of the same series.
func (f *Forecaster) ForecastSmoothed(series []float64, nDays int) Projection {
	if nDays < 1 {
		nDays = 1
	}
	if len(series) < 2 {
		metrics.RecordForecastFallback(ModelHolt)
		return baseline(series, nDays)
	}

	level := series[0]
	trend := series[1] - series[0]
	for i := 1; i < len(series); i++ {
		prev := level
		level = holtLevelAlpha*series[i] + (1-holtLevelAlpha)*(level+trend)
		trend = holtTrendBeta*(level-prev) + (1-holtTrendBeta)*trend
	}

	residStd := holtResidualStd(series)
	out := Projection{
		Forecast: make([]float64, nDays),
		Lower:    make([]float64, nDays),
		Upper:    make([]float64, nDays),
		Model:    ModelHolt,
	}
	for i := 0; i < nDays; i++ {
		v := level + float64(i+1)*trend
		band := bandZ * residStd * math.Sqrt(float64(i+1))
		out.Forecast[i] = v
		out.Lower[i] = v - band
		out.Upper[i] = v + band
	}
	return out
}

// baseline decays the last observation geometrically with flat bands. An
// empty series decays from the neutral midpoint.
func baseline(series []float64, nDays int) Projection {
	last := 50.0
	if len(series) > 0 {
		last = series[len(series)-1]
	}

	out := Projection{
		Forecast: make([]float64, nDays),
		Lower:    make([]float64, nDays),
		Upper:    make([]float64, nDays),
		Model:    ModelBaseline,
	}
	for i := 0; i < nDays; i++ {
		v := last * math.Pow(baselineDecay, float64(i+1))
		out.Forecast[i] = v
		out.Lower[i] = v - baselineBand
		out.Upper[i] = v + baselineBand
	}
	return out
}

// fitARIMA fits ARIMA(2,1,2) by Yule-Walker estimation of the AR part on the
// differenced series and least-squares regression of MA terms on the AR
// residuals. Returns false when the series is too flat or the normal
// equations are singular.
func fitARIMA(series []float64, nDays int) (Projection, bool) {
	d := difference(series)
	if len(d) < arOrder+maOrder+2 {
		return Projection{}, false
	}

	phi, ok := yuleWalker(d)
	if !ok {
		return Projection{}, false
	}

	// AR residuals drive the MA estimation.
	resid := make([]float64, len(d))
	for t := arOrder; t < len(d); t++ {
		pred := phi[0]*d[t-1] + phi[1]*d[t-2]
		resid[t] = d[t] - pred
	}

	theta, ok := maCoefficients(d, phi, resid)
	if !ok {
		theta = [maOrder]float64{}
	}

	residStd := stddev(resid[arOrder:])

	// Recursive forecast of differences, future shocks at their mean of zero.
	hist := append([]float64(nil), d...)
	shocks := append([]float64(nil), resid...)
	diffs := make([]float64, nDays)
	for i := 0; i < nDays; i++ {
		n := len(hist)
		v := phi[0]*hist[n-1] + phi[1]*hist[n-2] +
			theta[0]*shocks[len(shocks)-1] + theta[1]*shocks[len(shocks)-2]
		diffs[i] = v
		hist = append(hist, v)
		shocks = append(shocks, 0)
	}

	// Re-integrate from the last observed level.
	out := Projection{
		Forecast: make([]float64, nDays),
		Lower:    make([]float64, nDays),
		Upper:    make([]float64, nDays),
		Model:    ModelARIMA,
	}
	level := series[len(series)-1]
	for i := 0; i < nDays; i++ {
		level += diffs[i]
		band := bandZ * residStd * math.Sqrt(float64(i+1))
		out.Forecast[i] = level
		out.Lower[i] = level - band
		out.Upper[i] = level + band
	}
	return out, true
}

// yuleWalker solves the order-2 Yule-Walker equations for the AR
// coefficients.
func yuleWalker(d []float64) ([arOrder]float64, bool) {
	r0 := autocovariance(d, 0)
	r1 := autocovariance(d, 1)
	r2 := autocovariance(d, 2)
	if r0 < 1e-12 {
		return [arOrder]float64{}, false
	}

	// [r0 r1; r1 r0] phi = [r1; r2]
	det := r0*r0 - r1*r1
	if math.Abs(det) < 1e-12 {
		return [arOrder]float64{}, false
	}
	phi1 := (r1*r0 - r2*r1) / det
	phi2 := (r2*r0 - r1*r1) / det

	// Reject explosive fits; the fallback handles those series better.
	if math.Abs(phi1)+math.Abs(phi2) >= 2 {
		return [arOrder]float64{}, false
	}
	return [arOrder]float64{phi1, phi2}, true
}

// maCoefficients regresses the AR residual at t on the residuals at t-1 and
// t-2.
func maCoefficients(d []float64, phi [arOrder]float64, resid []float64) ([maOrder]float64, bool) {
	var s11, s12, s22, b1, b2 float64
	for t := arOrder + maOrder; t < len(d); t++ {
		e1, e2 := resid[t-1], resid[t-2]
		target := d[t] - phi[0]*d[t-1] - phi[1]*d[t-2]
		s11 += e1 * e1
		s12 += e1 * e2
		s22 += e2 * e2
		b1 += e1 * target
		b2 += e2 * target
	}
	det := s11*s22 - s12*s12
	if math.Abs(det) < 1e-12 {
		return [maOrder]float64{}, false
	}
	return [maOrder]float64{
		(b1*s22 - b2*s12) / det,
		(b2*s11 - b1*s12) / det,
	}, true
}

func difference(s []float64) []float64 {
	if len(s) < 2 {
		return nil
	}
	out := make([]float64, len(s)-1)
	for i := 1; i < len(s); i++ {
		out[i-1] = s[i] - s[i-1]
	}
	return out
}

func autocovariance(s []float64, lag int) float64 {
	n := len(s)
	m := 0.0
	for _, v := range s {
		m += v
	}
	m /= float64(n)

	sum := 0.0
	for t := lag; t < n; t++ {
		sum += (s[t] - m) * (s[t-lag] - m)
	}
	return sum / float64(n)
}

func stddev(s []float64) float64 {
	if len(s) < 2 {
		return 0
	}
	m := 0.0
	for _, v := range s {
		m += v
	}
	m /= float64(len(s))
	sum := 0.0
	for _, v := range s {
		sum += (v - m) * (v - m)
	}
	return math.Sqrt(sum / float64(len(s)))
}

// holtResidualStd measures one-step-ahead smoothing error over the series.
func holtResidualStd(series []float64) float64 {
	level := series[0]
	trend := series[1] - series[0]
	resid := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		resid = append(resid, series[i]-(level+trend))
		prev := level
		level = holtLevelAlpha*series[i] + (1-holtLevelAlpha)*(level+trend)
		trend = holtTrendBeta*(level-prev) + (1-holtTrendBeta)*trend
	}
	return stddev(resid)
}
