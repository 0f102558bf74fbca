// Package dynamics evolves a student state under a coupled nonlinear ODE
// system linking momentum, academic, and psychological components.
package dynamics

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/okian/momentum/internal/domain/state"
	"github.com/okian/momentum/pkg/logger"
	"github.com/okian/momentum/pkg/metrics"
)

// Default system parameters.
const (
	defaultAlpha = 0.5 // diffusion-like momentum/academic coupling
	defaultBeta  = 0.3 // psychological source coupling
	defaultGamma = 0.2 // academic source coupling

	defaultRelTol = 1e-6
	defaultAbsTol = 1e-8

	carryingCapacity  = 100.0
	interventionGain  = 0.1
	academicDecay     = 0.05
	academicCoupling  = 0.15
	psychDecay        = 0.08
	psychCoupling     = 0.12
	stressGain        = 0.01
	perturbationSigma = 0.01

	// Integrator limits. Sampling below is the minimum resolution of the
	// solution across the horizon.
	defaultSamples  = 100
	maxSteps        = 200_000
	minStepFraction = 1e-12
	defaultSeed     = 42
)

// Dormand-Prince RK4(5) tableau. Stage times are omitted: the system is
// autonomous.
var (
	dpA = [7][6]float64{
		{},
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{44.0 / 45, -56.0 / 15, 32.0 / 9},
		{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729},
		{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656},
		{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84},
	}
	// 5th order solution weights.
	dpB = [7]float64{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84, 0}
	// 4th order embedded weights for error estimation.
	dpBStar = [7]float64{5179.0 / 57600, 0, 7571.0 / 16695, 393.0 / 640, -92097.0 / 339200, 187.0 / 2100, 1.0 / 40}
)

// Params carries the external drivers of a single solve.
type Params struct {
	TeacherIntervention float64
	ExternalStress      float64
}

// Option applies a configuration option to the System.
type Option func(*System)

// WithCouplings overrides the alpha/beta/gamma coupling coefficients.
func WithCouplings(alpha, beta, gamma float64) Option {
	return func(s *System) {
		if alpha > 0 {
			s.alpha = alpha
		}
		if beta > 0 {
			s.beta = beta
		}
		if gamma > 0 {
			s.gamma = gamma
		}
	}
}

// WithTolerances sets the integrator's relative and absolute tolerances.
func WithTolerances(rel, abs float64) Option {
	return func(s *System) {
		if rel > 0 {
			s.relTol = rel
		}
		if abs > 0 {
			s.absTol = abs
		}
	}
}

// WithRand sets the pseudo-random source for the perturbation terms.
func WithRand(rng *rand.Rand) Option {
	return func(s *System) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *System) {
		if l != nil {
			s.logger = l
		}
	}
}

// System is the coupled momentum/academic/psychological ODE system together
// with its adaptive embedded RK4(5) integrator.
type System struct {
	alpha, beta, gamma float64
	relTol, absTol     float64
	samples            int
	rng                *rand.Rand
	logger             logger.Logger
}

// New constructs a System with default couplings and tolerances.
func New(opts ...Option) *System {
	s := &System{
		alpha:   defaultAlpha,
		beta:    defaultBeta,
		gamma:   defaultGamma,
		relTol:  defaultRelTol,
		absTol:  defaultAbsTol,
		samples: defaultSamples,
		rng:     rand.New(rand.NewSource(defaultSeed)), //nolint:gosec // deterministic seed for reproducibility
		logger:  logger.Get().Named("dynamics"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// rhs evaluates the derivative of the flattened state
// [M, A0..A3, P0..P4]. The perturbation vectors are drawn once per solve so
// the adaptive step controller sees a smooth right-hand side.
func (s *System) rhs(y []float64, p Params, noiseA, noiseP []float64) []float64 {
	m := y[0]
	a := y[1 : 1+state.AcademicDim]
	psy := y[1+state.AcademicDim:]

	sumASq, meanA := 0.0, 0.0
	for _, v := range a {
		sumASq += v * v
		meanA += v
	}
	meanA /= float64(len(a))

	meanP := 0.0
	for _, v := range psy {
		meanP += v
	}
	meanP /= float64(len(psy))

	diffusion := s.alpha * (sumASq - m*m)
	psychSource := s.beta * meanP
	academicSource := s.gamma * meanA
	intervention := interventionGain * p.TeacherIntervention
	logistic := m * (1 - m/carryingCapacity) * (1 + academicSource/50)

	out := make([]float64, len(y))
	out[0] = diffusion + psychSource + intervention + logistic

	for i, v := range a {
		out[1+i] = -academicDecay*v + academicCoupling*m + noiseA[i]
	}
	for i, v := range psy {
		stress := 0.0
		switch i {
		case 0:
			stress = p.ExternalStress
		case len(psy) - 1:
			stress = -p.ExternalStress
		}
		out[1+state.AcademicDim+i] = -psychDecay*v + psychCoupling*m + stressGain*stress + noiseP[i]
	}
	return out
}

// Solve evolves the state forward by horizonDays. On integrator failure the
// initial state is returned unmodified; that degradation is logged and
// counted, never surfaced as an error. The returned error is non-nil only
// when ctx is cancelled.
func (s *System) Solve(ctx context.Context, initial state.Vector, horizonDays float64, p Params) (state.Vector, error) {
	if horizonDays <= 0 {
		return initial, nil
	}

	y := make([]float64, 1+state.AcademicDim+state.PsychologicalDim)
	y[0] = initial.Momentum
	copy(y[1:], initial.Academic)
	copy(y[1+state.AcademicDim:], initial.Psychological)

	noiseA := make([]float64, state.AcademicDim)
	for i := range noiseA {
		noiseA[i] = s.rng.NormFloat64() * perturbationSigma
	}
	noiseP := make([]float64, state.PsychologicalDim)
	for i := range noiseP {
		noiseP[i] = s.rng.NormFloat64() * perturbationSigma
	}

	final, ok := s.integrate(ctx, y, horizonDays, p, noiseA, noiseP)
	if err := ctx.Err(); err != nil {
		return initial, fmt.Errorf("dynamics solve cancelled: %w", err)
	}
	if !ok {
		s.logger.Warn(ctx, "integration failed to converge, returning initial state",
			logger.Float64("horizonDays", horizonDays),
			logger.String("studentID", initial.StudentID),
		)
		metrics.RecordIntegrationFailure()
		return initial, nil
	}

	out := initial.Clone()
	out.Momentum = state.Clamp(final[0])
	for i := range out.Academic {
		out.Academic[i] = state.Clamp(final[1+i])
	}
	for i := range out.Psychological {
		out.Psychological[i] = state.Clamp(final[1+state.AcademicDim+i])
	}
	out.Timestamp = initial.Timestamp.AddDate(0, 0, int(math.Ceil(horizonDays)))
	out.LearningVelocity = (out.Momentum - initial.Momentum) / horizonDays
	out.InterventionLevel = p.TeacherIntervention
	return out, nil
}

// integrate runs the adaptive Dormand-Prince loop, forcing steps to land on
// the sample grid so the solution is observed at >= samples points.
func (s *System) integrate(ctx context.Context, y0 []float64, horizon float64, p Params, noiseA, noiseP []float64) ([]float64, bool) {
	dim := len(y0)
	y := append([]float64(nil), y0...)
	t := 0.0
	sampleStep := horizon / float64(s.samples)
	h := sampleStep
	minStep := horizon * minStepFraction

	k := make([][]float64, 7)
	for i := range k {
		k[i] = make([]float64, dim)
	}
	yTmp := make([]float64, dim)
	yNext := make([]float64, dim)

	for step := 0; t < horizon; step++ {
		if step >= maxSteps {
			return nil, false
		}
		if ctx.Err() != nil {
			return nil, false
		}

		// Land exactly on the next sample boundary.
		boundary := (math.Floor(t/sampleStep) + 1) * sampleStep
		if boundary <= t+minStep {
			boundary += sampleStep
		}
		next := math.Min(math.Min(t+h, horizon), boundary)
		hEff := next - t
		if hEff < minStep {
			return nil, false
		}

		k[0] = s.rhs(y, p, noiseA, noiseP)
		for i := 1; i < 7; i++ {
			for j := 0; j < dim; j++ {
				acc := 0.0
				for l := 0; l < i; l++ {
					acc += dpA[i][l] * k[l][j]
				}
				yTmp[j] = y[j] + hEff*acc
			}
			k[i] = s.rhs(yTmp, p, noiseA, noiseP)
		}

		errNorm := 0.0
		for j := 0; j < dim; j++ {
			sum5, sum4 := 0.0, 0.0
			for i := 0; i < 7; i++ {
				sum5 += dpB[i] * k[i][j]
				sum4 += dpBStar[i] * k[i][j]
			}
			yNext[j] = y[j] + hEff*sum5
			scale := s.absTol + s.relTol*math.Max(math.Abs(y[j]), math.Abs(yNext[j]))
			diff := hEff * (sum5 - sum4)
			errNorm += (diff / scale) * (diff / scale)
		}
		errNorm = math.Sqrt(errNorm / float64(dim))

		if !isFinite(yNext) {
			return nil, false
		}

		if errNorm <= 1 {
			t = next
			copy(y, yNext)
		}

		// PI-free step controller with the usual safety clamp.
		factor := 5.0
		if errNorm > 0 {
			factor = 0.9 * math.Pow(errNorm, -0.2)
		}
		factor = math.Max(0.2, math.Min(5.0, factor))
		h = math.Min(hEff*factor, sampleStep)
		if h < minStep {
			return nil, false
		}
	}
	return y, true
}

func isFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
