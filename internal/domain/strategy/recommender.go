// Package strategy recommends learning interventions with a tabular
// Q-learning policy over discretized state vectors.
package strategy

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/okian/momentum/pkg/metrics"
)

// Learning hyperparameters.
const (
	defaultLearningRate   = 0.1
	defaultDiscountFactor = 0.95
	defaultEpsilon        = 0.2
	epsilonDecay          = 0.995
	epsilonFloor          = 0.01

	defaultBuckets = 10
	defaultSeed    = 42
)

// Effectiveness labels for actions in the catalog.
const (
	EffectivenessHigh   = "high"
	EffectivenessMedium = "medium"
)

// Action describes one intervention from the catalog.
type Action struct {
	Name          string
	DurationMin   int
	Effectiveness string
}

// catalog is the fixed action set. Order is the action index used by the
// Q-table.
var catalog = []Action{
	{Name: "active_recall", DurationMin: 25, Effectiveness: EffectivenessHigh},
	{Name: "spaced_repetition", DurationMin: 30, Effectiveness: EffectivenessMedium},
	{Name: "interleaved_practice", DurationMin: 45, Effectiveness: EffectivenessMedium},
	{Name: "practice_testing", DurationMin: 50, Effectiveness: EffectivenessHigh},
	{Name: "pomodoro", DurationMin: 25, Effectiveness: EffectivenessMedium},
	{Name: "elaborative_interrogation", DurationMin: 20, Effectiveness: EffectivenessHigh},
}

// Actions returns a copy of the action catalog.
func Actions() []Action {
	return append([]Action(nil), catalog...)
}

// ActionByName looks an action up in the catalog.
func ActionByName(name string) (Action, bool) {
	if idx := actionIndex(name); idx >= 0 {
		return catalog[idx], true
	}
	return Action{}, false
}

// Option applies a configuration option to the Recommender.
type Option func(*Recommender)

// WithLearningRate sets the Q-update step size.
func WithLearningRate(alpha float64) Option {
	return func(r *Recommender) {
		if alpha > 0 && alpha <= 1 {
			r.learningRate = alpha
		}
	}
}

// WithDiscountFactor sets the future-reward discount.
func WithDiscountFactor(gamma float64) Option {
	return func(r *Recommender) {
		if gamma >= 0 && gamma < 1 {
			r.discountFactor = gamma
		}
	}
}

// WithEpsilon sets the initial exploration rate.
func WithEpsilon(epsilon float64) Option {
	return func(r *Recommender) {
		if epsilon >= 0 && epsilon <= 1 {
			r.epsilon = epsilon
		}
	}
}

// WithBuckets sets the per-dimension discretization resolution.
func WithBuckets(n int) Option {
	return func(r *Recommender) {
		if n > 1 {
			r.buckets = n
		}
	}
}

// WithRand sets the random source for exploration and Q-value initialization.
func WithRand(rng *rand.Rand) Option {
	return func(r *Recommender) {
		if rng != nil {
			r.rng = rng
		}
	}
}

// Recommender is an epsilon-greedy tabular Q-learner. States are feature
// vectors discretized into per-dimension buckets; unseen states start with
// small random Q-values so ties break arbitrarily rather than always on the
// first action.
type Recommender struct {
	mu sync.Mutex

	table          map[string][]float64
	learningRate   float64
	discountFactor float64
	epsilon        float64
	buckets        int
	rng            *rand.Rand
}

// New constructs a Recommender with default hyperparameters.
func New(opts ...Option) *Recommender {
	r := &Recommender{
		table:          make(map[string][]float64),
		learningRate:   defaultLearningRate,
		discountFactor: defaultDiscountFactor,
		epsilon:        defaultEpsilon,
		buckets:        defaultBuckets,
		rng:            rand.New(rand.NewSource(defaultSeed)), //nolint:gosec // reproducible policy
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SelectAction picks an action for the state. With explore set, probability
// epsilon yields a uniformly random action; otherwise the highest-valued one.
func (r *Recommender) SelectAction(features []float64, explore bool) Action {
	r.mu.Lock()
	defer r.mu.Unlock()

	values := r.values(r.key(features))
	if explore && r.rng.Float64() < r.epsilon {
		return catalog[r.rng.Intn(len(catalog))]
	}
	return catalog[argmax(values)]
}

// Update applies one Q-learning step for the observed transition and decays
// the exploration rate. Terminal transitions do not bootstrap from the next
// state.
func (r *Recommender) Update(features []float64, action Action, reward float64, nextFeatures []float64, terminal bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := actionIndex(action.Name)
	if idx < 0 {
		return
	}

	values := r.values(r.key(features))

	best := 0.0
	if !terminal {
		nextValues := r.values(r.key(nextFeatures))
		best = nextValues[argmax(nextValues)]
	}
	values[idx] += r.learningRate * (reward + r.discountFactor*best - values[idx])

	r.epsilon *= epsilonDecay
	if r.epsilon < epsilonFloor {
		r.epsilon = epsilonFloor
	}

	metrics.UpdateQTableStates(len(r.table))
	metrics.UpdateExplorationRate(r.epsilon)
}

// Epsilon reports the current exploration rate.
func (r *Recommender) Epsilon() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.epsilon
}

// StateCount reports the number of discretized states seen so far.
func (r *Recommender) StateCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.table)
}

// Snapshot returns a deep copy of the Q-table keyed by discretized state.
func (r *Recommender) Snapshot() map[string][]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string][]float64, len(r.table))
	for k, v := range r.table {
		out[k] = append([]float64(nil), v...)
	}
	return out
}

// QValues returns a copy of the action values for a state, initializing the
// state if unseen.
func (r *Recommender) QValues(features []float64) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.values(r.key(features))...)
}

// values returns the mutable action-value row for a state key, creating it
// with small random entries on first sight.
func (r *Recommender) values(key string) []float64 {
	if row, ok := r.table[key]; ok {
		return row
	}
	row := make([]float64, len(catalog))
	for i := range row {
		row[i] = r.rng.Float64()
	}
	r.table[key] = row
	return row
}

// key discretizes each feature dimension into its bucket index. Values are
// assumed to live on the [0,100] scale.
func (r *Recommender) key(features []float64) string {
	var sb strings.Builder
	for i, v := range features {
		bucket := int(v / (100.0 / float64(r.buckets)))
		if bucket >= r.buckets {
			bucket = r.buckets - 1
		}
		if bucket < 0 {
			bucket = 0
		}
		if i > 0 {
			sb.WriteByte(':')
		}
		fmt.Fprintf(&sb, "%d", bucket)
	}
	return sb.String()
}

func actionIndex(name string) int {
	for i, a := range catalog {
		if a.Name == name {
			return i
		}
	}
	return -1
}

func argmax(values []float64) int {
	best := 0
	for i := range values {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}
