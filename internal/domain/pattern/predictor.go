// Package pattern scores collapse risk from statistical features of recent
// history: level, trend, and volatility of the momentum series.
package pattern

import (
	"math"

	"github.com/okian/momentum/internal/domain/state"
)

// Feature window and vector layout.
const (
	window       = 5
	featureCount = 11

	idxMeanMomentum = 0
	idxTrend        = 4
	idxVolatility   = 9
)

// Risk thresholds and contributions. Low recent momentum, a negative trend,
// and high volatility each add risk independently.
const (
	lowMomentum      = 30.0
	midMomentum      = 50.0
	steepDecline     = -5.0
	highVolatility   = 10.0
	lowMomentumRisk  = 0.4
	midMomentumRisk  = 0.2
	steepDeclineRisk = 0.3
	mildDeclineRisk  = 0.1
	volatilityRisk   = 0.2
)

// Predictor extracts history features and scores collapse probability.
type Predictor struct{}

// New constructs a Predictor.
func New() *Predictor {
	return &Predictor{}
}

// ExtractFeatures summarizes the trailing window of each history into the
// fixed feature layout. With fewer than five momentum points every feature
// degrades to the neutral midpoint.
func (p *Predictor) ExtractFeatures(momentum, academic, psychological []float64) []float64 {
	if len(momentum) < window {
		features := make([]float64, featureCount)
		for i := range features {
			features[i] = state.NeutralValue
		}
		return features
	}

	m := tail(momentum, window)
	a := tail(academic, window)
	psy := tail(psychological, window)

	features := make([]float64, 0, featureCount)
	features = append(features,
		mean(m), std(m), minOf(m), maxOf(m),
		m[len(m)-1]-m[0], // trend over the window
		mean(a), std(a),
		mean(psy), std(psy),
		std(diff(m)), // volatility
	)

	acceleration := 0.0
	if len(momentum) >= window+2 {
		acceleration = mean(diff(diff(tail(momentum, window+2))))
	}
	return append(features, acceleration)
}

// CollapseProbability applies the heuristic risk table to a feature vector,
// returning a probability in [0,1].
func (p *Predictor) CollapseProbability(features []float64) float64 {
	if len(features) < featureCount {
		return 0.0
	}
	meanMomentum := features[idxMeanMomentum]
	trend := features[idxTrend]
	volatility := features[idxVolatility]

	risk := 0.0
	switch {
	case meanMomentum < lowMomentum:
		risk += lowMomentumRisk
	case meanMomentum < midMomentum:
		risk += midMomentumRisk
	}
	switch {
	case trend < steepDecline:
		risk += steepDeclineRisk
	case trend < 0:
		risk += mildDeclineRisk
	}
	if volatility > highVolatility {
		risk += volatilityRisk
	}
	return math.Min(risk, 1.0)
}

func tail(s []float64, n int) []float64 {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func diff(s []float64) []float64 {
	if len(s) < 2 {
		return nil
	}
	out := make([]float64, len(s)-1)
	for i := 1; i < len(s); i++ {
		out[i-1] = s[i] - s[i-1]
	}
	return out
}

func mean(s []float64) float64 {
	if len(s) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range s {
		sum += v
	}
	return sum / float64(len(s))
}

func std(s []float64) float64 {
	if len(s) < 2 {
		return 0
	}
	m := mean(s)
	sum := 0.0
	for _, v := range s {
		sum += (v - m) * (v - m)
	}
	return math.Sqrt(sum / float64(len(s)))
}

func minOf(s []float64) float64 {
	out := s[0]
	for _, v := range s {
		out = math.Min(out, v)
	}
	return out
}

func maxOf(s []float64) float64 {
	out := s[0]
	for _, v := range s {
		out = math.Max(out, v)
	}
	return out
}
