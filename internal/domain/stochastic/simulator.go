// Package stochastic propagates uncertainty by Monte-Carlo simulation of the
// coupled momentum/academic/psychological SDE system.
package stochastic

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"sync"

	"github.com/okian/momentum/internal/domain/state"
)

// Simulation defaults.
const (
	defaultStep       = 0.1 // days per Euler-Maruyama step
	defaultNoiseLevel = 0.5
	defaultCollapse   = 20.0
	defaultSeed       = 42

	// Per-channel noise scaling relative to the base noise level.
	academicNoiseScale = 0.5
	psychNoiseScale    = 0.3

	// Drift coefficients: momentum channel.
	momentumReversion    = 0.05
	momentumAcademicGain = 0.3
	momentumPsychGain    = 0.2
	momentumPsychOffset  = 10.0
	interventionGain     = 0.15

	// Drift coefficients: academic channel.
	academicMomentumGain = 0.2
	academicStressDrag   = 0.15
	academicReversion    = 0.03

	// Drift coefficients: psychological channel.
	psychMomentumRelief = 0.15
	psychAcademicDrag   = 0.1
	psychRecovery       = 0.05
	psychRestingLoad    = 40.0

	lowerPercentile = 0.05
	upperPercentile = 0.95
)

// ChannelStats holds per-day distribution summaries for one channel.
type ChannelStats struct {
	Mean  []float64 `json:"mean"`
	Std   []float64 `json:"std"`
	Lower []float64 `json:"lower"` // 5th percentile
	Upper []float64 `json:"upper"` // 95th percentile
}

// Summary is the aggregate of all simulated trajectories.
type Summary struct {
	Momentum            ChannelStats
	Academic            ChannelStats
	Psychological       ChannelStats
	CollapseProbability float64
}

// Option applies a configuration option to the Simulator.
type Option func(*Simulator)

// WithStep sets the sub-day integration step.
func WithStep(step float64) Option {
	return func(s *Simulator) {
		if step > 0 && step <= 1 {
			s.step = step
		}
	}
}

// WithNoiseLevel sets the base diffusion magnitude.
func WithNoiseLevel(noise float64) Option {
	return func(s *Simulator) {
		if noise >= 0 {
			s.noise = noise
		}
	}
}

// WithCollapseThreshold sets the momentum level counted as collapse.
func WithCollapseThreshold(threshold float64) Option {
	return func(s *Simulator) {
		if threshold > 0 {
			s.collapseThreshold = threshold
		}
	}
}

// WithWorkers bounds the fan-out across simulation runs.
func WithWorkers(n int) Option {
	return func(s *Simulator) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithSeed sets the base seed; run i derives its private source from seed+i
// so results are reproducible regardless of scheduling.
func WithSeed(seed int64) Option {
	return func(s *Simulator) {
		s.seed = seed
	}
}

// Simulator runs independent Euler-Maruyama trajectories and summarizes
// their distribution. Runs own private state, so they are fanned out across
// a bounded set of workers.
type Simulator struct {
	step              float64
	noise             float64
	collapseThreshold float64
	workers           int
	seed              int64
}

// New constructs a Simulator with default settings.
func New(opts ...Option) *Simulator {
	s := &Simulator{
		step:              defaultStep,
		noise:             defaultNoiseLevel,
		collapseThreshold: defaultCollapse,
		workers:           runtime.NumCPU(),
		seed:              defaultSeed,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// run holds one trajectory's daily samples.
type run struct {
	momentum      []float64
	academic      []float64
	psychological []float64
}

// Simulate propagates nSims noisy trajectories over nDays and returns
// per-day statistics plus the collapse probability (fraction of end states
// with momentum below the threshold).
func (s *Simulator) Simulate(ctx context.Context, m0, a0, p0 float64, interventions []float64, nDays, nSims int) (Summary, error) {
	if nDays < 1 {
		nDays = 1
	}
	if nSims < 1 {
		nSims = 1
	}
	if err := ctx.Err(); err != nil {
		return Summary{}, fmt.Errorf("simulation cancelled: %w", err)
	}

	runs := make([]run, nSims)
	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := s.workers
	if workers > nSims {
		workers = nSims
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				rng := rand.New(rand.NewSource(s.seed + int64(idx))) //nolint:gosec // reproducible simulation stream
				runs[idx] = s.simulateOne(rng, m0, a0, p0, interventions, nDays)
			}
		}()
	}

	for i := 0; i < nSims; i++ {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return Summary{}, fmt.Errorf("simulation cancelled: %w", ctx.Err())
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	return s.summarize(runs, nDays), nil
}

// simulateOne advances a single trajectory with the Euler-Maruyama scheme,
// clamping every channel to [0,100] at each step and recording one sample
// per calendar day.
func (s *Simulator) simulateOne(rng *rand.Rand, m, a, p float64, interventions []float64, nDays int) run {
	stepsPerDay := int(math.Round(1 / s.step))
	if stepsPerDay < 1 {
		stepsPerDay = 1
	}
	sqrtDt := math.Sqrt(s.step)

	out := run{
		momentum:      make([]float64, nDays),
		academic:      make([]float64, nDays),
		psychological: make([]float64, nDays),
	}

	for day := 0; day < nDays; day++ {
		intervention := 0.0
		if len(interventions) > 0 {
			intervention = interventions[min(day, len(interventions)-1)]
		}
		for step := 0; step < stepsPerDay; step++ {
			dm := driftMomentum(m, a, p, intervention)*s.step + s.noise*rng.NormFloat64()*sqrtDt
			da := driftAcademic(m, a, p)*s.step + s.noise*academicNoiseScale*rng.NormFloat64()*sqrtDt
			dp := driftPsychological(m, a, p)*s.step + s.noise*psychNoiseScale*rng.NormFloat64()*sqrtDt

			m = state.Clamp(m + dm)
			a = state.Clamp(a + da)
			p = state.Clamp(p + dp)
		}
		out.momentum[day] = m
		out.academic[day] = a
		out.psychological[day] = p
	}
	return out
}

// driftMomentum combines mean reversion, academic coupling, inverted-stress
// psychological coupling, and the intervention effect.
func driftMomentum(m, a, p, intervention float64) float64 {
	return -momentumReversion*(m-state.NeutralValue) +
		momentumAcademicGain*(a-state.NeutralValue) +
		momentumPsychGain*(state.ScaleMax-p) - momentumPsychOffset +
		interventionGain*intervention
}

func driftAcademic(m, a, p float64) float64 {
	return academicMomentumGain*(m-state.NeutralValue) -
		academicStressDrag*(p-state.NeutralValue) -
		academicReversion*(a-state.NeutralValue)
}

func driftPsychological(m, a, p float64) float64 {
	return -psychMomentumRelief*(m-state.NeutralValue) +
		psychAcademicDrag*(state.NeutralValue-a) -
		psychRecovery*(p-psychRestingLoad)
}

func (s *Simulator) summarize(runs []run, nDays int) Summary {
	out := Summary{
		Momentum:      newChannelStats(nDays),
		Academic:      newChannelStats(nDays),
		Psychological: newChannelStats(nDays),
	}

	values := make([]float64, len(runs))
	for day := 0; day < nDays; day++ {
		for i, r := range runs {
			values[i] = r.momentum[day]
		}
		fillDay(&out.Momentum, day, values)

		for i, r := range runs {
			values[i] = r.academic[day]
		}
		fillDay(&out.Academic, day, values)

		for i, r := range runs {
			values[i] = r.psychological[day]
		}
		fillDay(&out.Psychological, day, values)
	}

	collapsed := 0
	for _, r := range runs {
		if r.momentum[nDays-1] < s.collapseThreshold {
			collapsed++
		}
	}
	out.CollapseProbability = float64(collapsed) / float64(len(runs))
	return out
}

func newChannelStats(nDays int) ChannelStats {
	return ChannelStats{
		Mean:  make([]float64, nDays),
		Std:   make([]float64, nDays),
		Lower: make([]float64, nDays),
		Upper: make([]float64, nDays),
	}
}

func fillDay(cs *ChannelStats, day int, values []float64) {
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	cs.Mean[day] = mean
	cs.Std[day] = math.Sqrt(variance)
	cs.Lower[day] = percentile(sorted, lowerPercentile)
	cs.Upper[day] = percentile(sorted, upperPercentile)
}

// percentile interpolates linearly between order statistics.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
