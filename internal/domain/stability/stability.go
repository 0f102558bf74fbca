// Package stability classifies trajectory stability from divergence rates
// and deviation from the healthy equilibrium.
package stability

import (
	"math"

	"github.com/okian/momentum/internal/domain/state"
)

// Verdict labels returned by Assess.
const (
	Stable           = "stable"
	MarginallyStable = "marginally_stable"
	Unstable         = "unstable"
)

// Healthy equilibrium targets and scoring thresholds. Psychological load is
// healthiest well below the midpoint.
const (
	targetMomentum      = 70.0
	targetAcademic      = 70.0
	targetPsychological = 40.0

	stableDeviation   = 15.0
	marginalDeviation = 30.0

	scoreStable   = 0.9
	scoreMarginal = 0.5
	scoreUnstable = 0.1

	// Divergence estimation settings.
	minSeriesLength = 20
	maxDivergences  = 9
	referenceDelta  = 1e-8
)

// Assessment is the result of one stability evaluation.
type Assessment struct {
	Stability      string
	Score          float64
	TotalDeviation float64
}

// Analyzer scores trajectory stability.
type Analyzer struct{}

// New constructs an Analyzer.
func New() *Analyzer {
	return &Analyzer{}
}

// LyapunovEstimate computes a divergence exponent from a momentum series:
// the mean logarithmic step divergence against a small reference delta.
// Series shorter than 20 points score 0. A higher value means greater
// sensitivity to initial conditions.
func (a *Analyzer) LyapunovEstimate(series []float64) float64 {
	if len(series) < minSeriesLength {
		return 0.0
	}

	sum, count := 0.0, 0
	for i := 1; i < len(series) && count < maxDivergences; i++ {
		diff := math.Abs(series[i] - series[i-1])
		if diff > referenceDelta {
			sum += math.Log(diff / referenceDelta)
			count++
		}
	}
	if count == 0 {
		return 0.0
	}
	return sum / float64(count)
}

// Assess scores how far the current state sits from the healthy equilibrium
// (momentum 70, academic 70, psychological 40) and classifies it.
func (a *Analyzer) Assess(momentum float64, academic, psychological []float64) Assessment {
	deviation := (math.Abs(momentum-targetMomentum) +
		math.Abs(state.Series(academic).Mean(state.NeutralValue)-targetAcademic) +
		math.Abs(state.Series(psychological).Mean(state.NeutralValue)-targetPsychological)) / 3

	out := Assessment{TotalDeviation: deviation}
	switch {
	case deviation < stableDeviation:
		out.Stability = Stable
		out.Score = scoreStable
	case deviation < marginalDeviation:
		out.Stability = MarginallyStable
		out.Score = scoreMarginal
	default:
		out.Stability = Unstable
		out.Score = scoreUnstable
	}
	return out
}
