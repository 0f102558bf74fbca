// Package trajectory computes optimal momentum paths by minimizing an energy
// functional over a discretized trajectory.
package trajectory

import (
	"context"

	"github.com/okian/momentum/internal/domain/state"
	"github.com/okian/momentum/pkg/logger"
	"github.com/okian/momentum/pkg/metrics"
)

// Energy functional and optimizer defaults.
const (
	defaultLambda        = 1.0  // terminal-constraint Lagrange multiplier
	defaultIdealMomentum = 75.0 // potential well center
	stressPenaltyWeight  = 0.1

	defaultMaxIterations = 1500
	defaultTolerance     = 1e-6
	gradientEpsilon      = 1e-5
	initialStepSize      = 0.5
	stepShrink           = 0.5
	minStepSize          = 1e-10
)

// Option applies a configuration option to the Optimizer.
type Option func(*Optimizer)

// WithLambda sets the terminal-constraint multiplier.
func WithLambda(lambda float64) Option {
	return func(o *Optimizer) {
		if lambda > 0 {
			o.lambda = lambda
		}
	}
}

// WithMaxIterations bounds the descent loop.
func WithMaxIterations(n int) Option {
	return func(o *Optimizer) {
		if n > 0 {
			o.maxIterations = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Optimizer) {
		if l != nil {
			o.logger = l
		}
	}
}

// Optimizer minimizes the trajectory energy functional with a bounded
// projected gradient descent.
type Optimizer struct {
	lambda        float64
	idealMomentum float64
	maxIterations int
	tolerance     float64
	logger        logger.Logger
}

// New constructs an Optimizer with default settings.
func New(opts ...Option) *Optimizer {
	o := &Optimizer{
		lambda:        defaultLambda,
		idealMomentum: defaultIdealMomentum,
		maxIterations: defaultMaxIterations,
		tolerance:     defaultTolerance,
		logger:        logger.Get().Named("trajectory"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Optimize returns an nSteps-point momentum path from the current state
// toward targetMomentum, each point bounded to [0,100]. On non-convergence
// the linear-interpolation seed is returned unmodified; the caller never
// sees a failure.
func (o *Optimizer) Optimize(ctx context.Context, current state.Vector, targetMomentum float64, nSteps int) []float64 {
	if nSteps < 2 {
		nSteps = 2
	}
	target := state.Clamp(targetMomentum)

	seed := make([]float64, nSteps)
	for i := range seed {
		frac := float64(i) / float64(nSteps-1)
		seed[i] = state.Clamp(current.Momentum + frac*(target-current.Momentum))
	}

	aMean := state.Series(current.Academic).Mean(state.NeutralValue)
	stress := 0.0
	if len(current.Psychological) > 0 {
		stress = current.Psychological[0]
	}

	objective := func(m []float64) float64 {
		return o.energy(m, aMean, stress) + o.lambda*sq(m[len(m)-1]-target)
	}

	path, converged := o.descend(ctx, seed, objective)
	if !converged {
		o.logger.Warn(ctx, "trajectory optimization did not converge, returning linear path",
			logger.Float64("target", target),
			logger.Int("steps", nSteps),
		)
		metrics.RecordOptimizerFallback()
		return seed
	}
	return path
}

// energy is the discretized functional: gradient smoothness, distance from
// the ideal state, negative academic coupling, and a stress penalty.
func (o *Optimizer) energy(m []float64, aMean, stress float64) float64 {
	gradient := 0.0
	for i := range m {
		gradient += sq(centralDiff(m, i))
	}

	potential, coupling := 0.0, 0.0
	for _, v := range m {
		potential += sq(v - o.idealMomentum)
		coupling -= v * aMean
	}

	stressPenalty := sq(stress) * float64(len(m))
	return 0.5*gradient + potential + coupling + stressPenaltyWeight*stressPenalty
}

// descend runs projected gradient descent with a backtracking step size.
// Convergence means the energy improvement fell below tolerance before the
// iteration budget ran out.
func (o *Optimizer) descend(ctx context.Context, seed []float64, objective func([]float64) float64) ([]float64, bool) {
	n := len(seed)
	x := append([]float64(nil), seed...)
	grad := make([]float64, n)
	trial := make([]float64, n)
	energy := objective(x)
	step := initialStepSize

	for iter := 0; iter < o.maxIterations; iter++ {
		if ctx.Err() != nil {
			return nil, false
		}

		for i := 0; i < n; i++ {
			orig := x[i]
			x[i] = orig + gradientEpsilon
			up := objective(x)
			x[i] = orig - gradientEpsilon
			down := objective(x)
			x[i] = orig
			grad[i] = (up - down) / (2 * gradientEpsilon)
		}

		// Backtrack until the step improves the energy.
		improved := false
		for step >= minStepSize {
			for i := 0; i < n; i++ {
				trial[i] = state.Clamp(x[i] - step*grad[i])
			}
			if trialEnergy := objective(trial); trialEnergy < energy {
				if energy-trialEnergy < o.tolerance {
					copy(x, trial)
					return x, true
				}
				copy(x, trial)
				energy = trialEnergy
				step *= 2 // cautious growth after a success
				improved = true
				break
			}
			step *= stepShrink
		}
		if !improved {
			// Gradient step cannot improve further: stationary point.
			return x, true
		}
	}
	return nil, false
}

func centralDiff(m []float64, i int) float64 {
	switch {
	case len(m) < 2:
		return 0
	case i == 0:
		return m[1] - m[0]
	case i == len(m)-1:
		return m[i] - m[i-1]
	default:
		return (m[i+1] - m[i-1]) / 2
	}
}

func sq(v float64) float64 { return v * v }
