// Package catastrophe detects proximity to discontinuous collapse
// transitions using the cusp catastrophe model.
//
// The potential V(x,a,b) = x^4/4 + a*x^2/2 + b*x has equilibria on the cubic
// x^3 + a*x + b = 0 and a bifurcation set at 4a^3 + 27b^2 = 0. The stress
// control parameter a and the support control parameter b are rescaled from
// raw [0,100] readings.
package catastrophe

import (
	"math"
)

// Model constants.
const (
	// Rescaling maps raw [0,100] readings to roughly [-2,2].
	rescaleCenter = 50.0
	rescaleWidth  = 25.0

	defaultBifurcationThreshold = 0.1

	// Risk decision table, in precedence order: bifurcation proximity
	// dominates raw instability.
	riskNearBifurcation    = 0.8
	riskUnstable           = 0.6
	riskMultipleEquilibria = 0.5
	riskBaseline           = 0.2

	realRootTolerance = 1e-10
)

// Analysis is the result of one collapse-risk evaluation.
type Analysis struct {
	CollapseRisk        float64
	NearBifurcation     bool
	Stable              bool
	Equilibria          []float64
	BifurcationDistance float64
}

// Option applies a configuration option to the Analyzer.
type Option func(*Analyzer)

// WithBifurcationThreshold sets the proximity threshold on |4a^3 + 27b^2|.
func WithBifurcationThreshold(t float64) Option {
	return func(a *Analyzer) {
		if t > 0 {
			a.bifurcationThreshold = t
		}
	}
}

// Analyzer evaluates cusp-catastrophe collapse risk.
type Analyzer struct {
	bifurcationThreshold float64
}

// New constructs an Analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{bifurcationThreshold: defaultBifurcationThreshold}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze maps the raw momentum/stress/support readings onto the cusp model
// and scores collapse risk. Stress drives the a control parameter, support
// drives b, and momentum is the state variable x.
func (an *Analyzer) Analyze(momentum, stress, support float64) Analysis {
	a := rescale(stress)
	b := rescale(support)
	x := rescale(momentum)

	distance := math.Abs(4*a*a*a + 27*b*b)
	near := distance < an.bifurcationThreshold

	// d^2V/dx^2 = 3x^2 + a; positive curvature means a stable well.
	stable := 3*x*x+a > 0

	equilibria := Equilibria(a, b)

	risk := riskBaseline
	switch {
	case near:
		risk = riskNearBifurcation
	case !stable:
		risk = riskUnstable
	case len(equilibria) > 1:
		risk = riskMultipleEquilibria
	}

	return Analysis{
		CollapseRisk:        risk,
		NearBifurcation:     near,
		Stable:              stable,
		Equilibria:          equilibria,
		BifurcationDistance: distance,
	}
}

// Equilibria returns the real roots of the depressed cubic x^3 + a*x + b = 0
// in closed form, coincident roots collapsed to one.
func Equilibria(a, b float64) []float64 {
	// Discriminant of the depressed cubic: -(4a^3 + 27b^2).
	disc := -(4*a*a*a + 27*b*b)

	switch {
	case math.Abs(a) < realRootTolerance && math.Abs(b) < realRootTolerance:
		return []float64{0}
	case disc > realRootTolerance:
		// Three distinct real roots (requires a < 0): trigonometric form.
		m := 2 * math.Sqrt(-a/3)
		theta := math.Acos(clampUnit(3*b/(a*m))) / 3
		roots := make([]float64, 0, 3)
		for k := 0; k < 3; k++ {
			roots = append(roots, m*math.Cos(theta-2*math.Pi*float64(k)/3))
		}
		return roots
	default:
		// One real root: Cardano's formula.
		d := math.Sqrt(b*b/4 + a*a*a/27)
		return []float64{math.Cbrt(-b/2+d) + math.Cbrt(-b/2-d)}
	}
}

func rescale(v float64) float64 {
	return (v - rescaleCenter) / rescaleWidth
}

func clampUnit(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
