// Package engine provides the core momentum engine that composes the
// dynamical, probabilistic, and learning models into the public operations.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/momentum/internal/domain/catastrophe"
	"github.com/okian/momentum/internal/domain/dynamics"
	"github.com/okian/momentum/internal/domain/forecast"
	"github.com/okian/momentum/internal/domain/pattern"
	"github.com/okian/momentum/internal/domain/posterior"
	"github.com/okian/momentum/internal/domain/stability"
	"github.com/okian/momentum/internal/domain/state"
	"github.com/okian/momentum/internal/domain/stochastic"
	"github.com/okian/momentum/internal/domain/strategy"
	"github.com/okian/momentum/internal/domain/trajectory"
	"github.com/okian/momentum/pkg/logger"
	"github.com/okian/momentum/pkg/metrics"
)

// Engine defaults.
const (
	defaultForecastDays = 30
	defaultSimulations  = 100

	// Blend between the deterministic trajectory solve and the posterior
	// estimate when scoring momentum.
	deterministicWeight = 0.6
	probabilisticWeight = 0.4

	// Reported confidence of a forecast assessment.
	forecastConfidence = 0.85
	// Confidence level of the momentum score interval.
	scoreConfidence = 0.95

	momentumSolveDays = 1.0
	stressScale       = 10.0
)

// MomentumResult is the outcome of one momentum computation.
type MomentumResult struct {
	Score              float64
	Deterministic      float64
	Probabilistic      float64
	Uncertainty        float64
	ConfidenceInterval [2]float64
	LearningVelocity   float64
}

// ForecastRequest carries the history needed for a trajectory forecast.
type ForecastRequest struct {
	StudentID            string
	MomentumHistory      []float64
	AcademicHistory      []float64
	PsychologicalHistory []float64
	SupportLevel         float64
	ForecastDays         int
}

// Recommendation is a strategy suggestion with the policy's certainty.
type Recommendation struct {
	Action     strategy.Action
	Confidence float64
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithForecastDays sets the default projection horizon.
func WithForecastDays(days int) Option {
	return func(e *Engine) {
		if days > 0 {
			e.forecastDays = days
		}
	}
}

// WithSimulations sets the Monte-Carlo run count per forecast.
func WithSimulations(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.simulations = n
		}
	}
}

// WithDynamics sets a custom trajectory solver.
func WithDynamics(s *dynamics.System) Option {
	return func(e *Engine) {
		if s != nil {
			e.dynamics = s
		}
	}
}

// WithSimulator sets a custom Monte-Carlo simulator.
func WithSimulator(s *stochastic.Simulator) Option {
	return func(e *Engine) {
		if s != nil {
			e.simulator = s
		}
	}
}

// WithPosterior sets a custom posterior estimator.
func WithPosterior(p *posterior.Estimator) Option {
	return func(e *Engine) {
		if p != nil {
			e.posterior = p
		}
	}
}

// WithRecommender sets a custom strategy policy.
func WithRecommender(r *strategy.Recommender) Option {
	return func(e *Engine) {
		if r != nil {
			e.recommender = r
		}
	}
}

// WithCatastrophe sets a custom catastrophe analyzer.
func WithCatastrophe(a *catastrophe.Analyzer) Option {
	return func(e *Engine) {
		if a != nil {
			e.catastrophe = a
		}
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// Engine composes the sub-models behind the public momentum operations.
type Engine struct {
	mu sync.RWMutex

	// Core components
	dynamics    *dynamics.System
	optimizer   *trajectory.Optimizer
	posterior   *posterior.Estimator
	catastrophe *catastrophe.Analyzer
	stability   *stability.Analyzer
	pattern     *pattern.Predictor
	simulator   *stochastic.Simulator
	forecaster  *forecast.Forecaster
	recommender *strategy.Recommender

	// Configuration
	forecastDays int
	simulations  int

	// State
	started bool

	// Logging
	logger logger.Logger
}

// New creates an Engine with default sub-models.
func New(opts ...Option) *Engine {
	e := &Engine{
		dynamics:     dynamics.New(),
		optimizer:    trajectory.New(),
		posterior:    posterior.New(),
		catastrophe:  catastrophe.New(),
		stability:    stability.New(),
		pattern:      pattern.New(),
		simulator:    stochastic.New(),
		forecaster:   forecast.NewForecaster(),
		recommender:  strategy.New(),
		forecastDays: defaultForecastDays,
		simulations:  defaultSimulations,
		logger:       logger.Get().Named("engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start marks the engine ready. Idempotent.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return nil
	}
	e.started = true
	e.logger.Info(ctx, "momentum engine started",
		logger.Int("forecastDays", e.forecastDays),
		logger.Int("simulations", e.simulations),
	)
	return nil
}

// Stop marks the engine stopped. Idempotent.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return nil
	}
	e.started = false
	e.logger.Info(ctx, "momentum engine stopped")
	return nil
}

func (e *Engine) checkStarted() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.started {
		return ErrNotStarted
	}
	return nil
}

// ComputeMomentum evolves the state one day forward, blends the deterministic
// outcome with the posterior estimate, and feeds the blended score back as
// evidence for future predictions.
func (e *Engine) ComputeMomentum(ctx context.Context, current state.Vector, teacherFeedback float64) (MomentumResult, error) {
	if err := e.checkStarted(); err != nil {
		return MomentumResult{}, err
	}
	started := time.Now()

	stress := 0.0
	if len(current.Psychological) > 0 {
		stress = current.Psychological[0] / stressScale
	}
	evolved, err := e.dynamics.Solve(ctx, current.Clamped(), momentumSolveDays, dynamics.Params{
		TeacherIntervention: teacherFeedback,
		ExternalStress:      stress,
	})
	if err != nil {
		return MomentumResult{}, fmt.Errorf("compute momentum: %w", err)
	}
	metrics.RecordSolveDuration(float64(time.Since(started).Milliseconds()))

	features := current.Features(teacherFeedback)
	probMean, probStd := e.posterior.Predict(features)
	lower, upper := e.posterior.ConfidenceInterval(features, scoreConfidence)

	score := state.Clamp(deterministicWeight*evolved.Momentum + probabilisticWeight*probMean)
	e.posterior.Update(features, score)
	metrics.RecordMomentumScore(score)

	return MomentumResult{
		Score:              score,
		Deterministic:      evolved.Momentum,
		Probabilistic:      probMean,
		Uncertainty:        probStd,
		ConfidenceInterval: [2]float64{state.Clamp(lower), state.Clamp(upper)},
		LearningVelocity:   evolved.LearningVelocity,
	}, nil
}

// ObserveMomentum feeds an externally measured momentum into the posterior
// without evolving the state, for callers that score outside the engine.
func (e *Engine) ObserveMomentum(features []float64, observed float64) error {
	if err := e.checkStarted(); err != nil {
		return err
	}
	e.posterior.Update(features, state.Clamp(observed))
	return nil
}

// ComputeForecast runs the full ensemble over a student's history: the cusp
// analysis, the Monte-Carlo simulation, the time-series fit, the stability
// assessment, and the pattern heuristic, combined into one risk assessment.
func (e *Engine) ComputeForecast(ctx context.Context, req ForecastRequest) (forecast.Result, error) {
	if err := e.checkStarted(); err != nil {
		return forecast.Result{}, err
	}
	if len(req.MomentumHistory) == 0 {
		return forecast.Result{}, fmt.Errorf("forecast for %q: %w", req.StudentID, ErrNoHistory)
	}
	started := time.Now()

	horizon := req.ForecastDays
	if horizon < 1 {
		horizon = e.forecastDays
	}

	momentum := state.Series(req.MomentumHistory).Last(state.NeutralValue)
	academicMean := state.Series(req.AcademicHistory).Mean(state.NeutralValue)
	stressMean := state.Series(req.PsychologicalHistory).Mean(state.NeutralValue)

	cat := e.catastrophe.Analyze(momentum, stressMean, req.SupportLevel)

	simStarted := time.Now()
	sim, err := e.simulator.Simulate(ctx, momentum, academicMean, stressMean, nil, horizon, e.simulations)
	if err != nil {
		return forecast.Result{}, fmt.Errorf("forecast for %q: %w", req.StudentID, err)
	}
	metrics.RecordSimulationRuns(e.simulations)
	metrics.RecordSimulationDuration(float64(time.Since(simStarted).Milliseconds()))

	trend := e.forecaster.Forecast(req.MomentumHistory, horizon)
	assess := e.stability.Assess(momentum, req.AcademicHistory, req.PsychologicalHistory)
	lyapunov := e.stability.LyapunovEstimate(req.MomentumHistory)
	patternRisk := e.pattern.CollapseProbability(
		e.pattern.ExtractFeatures(req.MomentumHistory, req.AcademicHistory, req.PsychologicalHistory),
	)

	components := []forecast.WeightedRisk{
		{Name: "catastrophe", Weight: forecast.WeightCatastrophe, Score: cat.CollapseRisk},
		{Name: "stochastic", Weight: forecast.WeightStochastic, Score: sim.CollapseProbability},
		{Name: "pattern", Weight: forecast.WeightPattern, Score: patternRisk},
		{Name: "stability", Weight: forecast.WeightStability, Score: 1 - assess.Score},
	}
	combined := forecast.Combine(components)
	level, priority := forecast.ClassifyRisk(combined)

	out := forecast.NewResult(req.StudentID, horizon, forecastConfidence)
	out.Momentum = sim.Momentum
	out.Academic = sim.Academic
	out.Psychological = sim.Psychological
	out.TrendForecast = trend
	out.CollapseRisk = combined
	out.RiskLevel = level
	out.Priority = priority
	out.Components = components
	out.Stability = assess.Stability
	out.StabilityScore = assess.Score
	out.LyapunovExponent = lyapunov
	out.NearBifurcation = cat.NearBifurcation
	out.BifurcationDistance = cat.BifurcationDistance
	out.DaysUntilCollapse = forecast.DaysUntilCollapse(sim.Momentum.Mean)
	out.OptimalInterventionDay = forecast.OptimalInterventionDay(sim.Momentum.Mean)
	out.RiskFactors = forecast.RiskFactors(momentum, academicMean, stressMean,
		cat.NearBifurcation, assess.Stability == stability.Unstable)
	out.Interventions = forecast.Interventions(combined, momentum, stressMean, cat.NearBifurcation)

	metrics.RecordForecast(level)
	metrics.RecordCollapseRisk(combined)
	metrics.RecordForecastDuration(float64(time.Since(started).Milliseconds()))

	e.logger.Info(ctx, "forecast generated",
		logger.String("studentID", req.StudentID),
		logger.String("riskLevel", level),
		logger.Float64("collapseRisk", combined),
		logger.Int("horizonDays", horizon),
	)
	return out, nil
}

// RecommendStrategy picks a learning strategy for the state and subject via
// the Q-learning policy. Confidence reflects how far exploration has decayed.
func (e *Engine) RecommendStrategy(ctx context.Context, current state.Vector, subject string) (Recommendation, error) {
	if err := e.checkStarted(); err != nil {
		return Recommendation{}, err
	}

	action := e.recommender.SelectAction(policyFeatures(current, subject), true)
	metrics.RecordRecommendation(action.Name)
	e.logger.Debug(ctx, "strategy recommended",
		logger.String("studentID", current.StudentID),
		logger.String("subject", subject),
		logger.String("action", action.Name),
	)
	return Recommendation{
		Action:     action,
		Confidence: 1 - e.recommender.Epsilon(),
	}, nil
}

// ReinforceStrategy rewards a previously recommended action with the observed
// momentum change. Terminal marks the end of a learning episode.
func (e *Engine) ReinforceStrategy(before state.Vector, action strategy.Action, reward float64, after state.Vector, subject string, terminal bool) error {
	if err := e.checkStarted(); err != nil {
		return err
	}
	e.recommender.Update(policyFeatures(before, subject), action, reward, policyFeatures(after, subject), terminal)
	return nil
}

// OptimalPath computes a momentum path from the current state toward the
// target over nSteps points.
func (e *Engine) OptimalPath(ctx context.Context, current state.Vector, targetMomentum float64, nSteps int) ([]float64, error) {
	if err := e.checkStarted(); err != nil {
		return nil, err
	}
	return e.optimizer.Optimize(ctx, current.Clamped(), targetMomentum, nSteps), nil
}

// policyFeatures is the 8-dimensional state the recommender discretizes:
// momentum, the first three academic components, the first three
// psychological components, and the subject score.
func policyFeatures(v state.Vector, subject string) []float64 {
	out := make([]float64, 0, 8)
	out = append(out, v.Momentum)
	out = append(out, headOrNeutral(v.Academic, 3)...)
	out = append(out, headOrNeutral(v.Psychological, 3)...)

	score := state.NeutralValue
	if s, ok := v.SubjectPerformance[subject]; ok {
		score = s
	}
	return append(out, score)
}

// headOrNeutral returns the first n values, padding short slices with the
// neutral midpoint.
func headOrNeutral(values []float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = state.NeutralValue
		if i < len(values) {
			out[i] = values[i]
		}
	}
	return out
}
