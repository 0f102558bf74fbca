// Package posterior maintains an online probabilistic momentum estimator: a
// kernel regression over an accumulating evidence set with uncertainty
// quantification.
package posterior

import (
	"math"
	"sync"

	"github.com/okian/momentum/pkg/metrics"
)

// Estimator defaults. Below the evidence threshold every prediction is the
// wide uninformative default.
const (
	DefaultMean = 50.0
	DefaultStd  = 20.0

	defaultMinEvidence = 10
	defaultNoise       = 1e-2
	jitter             = 1e-9
)

// lengthScaleGrid is swept on each refit; the scale maximizing the log
// marginal likelihood wins.
var lengthScaleGrid = []float64{1, 2, 5, 10, 20, 50, 100}

// Option applies a configuration option to the Estimator.
type Option func(*Estimator)

// WithMinEvidence sets the sample count gating fitted predictions.
func WithMinEvidence(n int) Option {
	return func(e *Estimator) {
		if n > 0 {
			e.minEvidence = n
		}
	}
}

// WithNoise sets the observation noise added to the kernel diagonal.
func WithNoise(noise float64) Option {
	return func(e *Estimator) {
		if noise > 0 {
			e.noise = noise
		}
	}
}

// Estimator accumulates (feature vector, observed momentum) evidence and
// produces posterior mean/std estimates through an RBF-kernel regression.
// Mutation is single-writer; readers see either the previous fitted model or
// the new one, never a torn state.
type Estimator struct {
	mu sync.RWMutex

	features [][]float64
	labels   []float64

	minEvidence int
	noise       float64
	model       *fitted
}

// fitted is an immutable snapshot of one kernel regression fit.
type fitted struct {
	x           [][]float64
	chol        [][]float64 // lower-triangular factor of K + noise*I
	alpha       []float64   // (K + noise*I)^-1 (y - mean)
	yMean       float64
	signalVar   float64
	lengthScale float64
}

// New constructs an empty Estimator.
func New(opts ...Option) *Estimator {
	e := &Estimator{
		minEvidence: defaultMinEvidence,
		noise:       defaultNoise,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Update appends one observation and, once enough evidence exists, refits
// the regression with re-optimized hyperparameters.
func (e *Estimator) Update(features []float64, observed float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.features = append(e.features, append([]float64(nil), features...))
	e.labels = append(e.labels, observed)
	metrics.UpdatePosteriorEvidence(len(e.labels))

	if len(e.labels) >= e.minEvidence {
		if m := fit(e.features, e.labels, e.noise); m != nil {
			e.model = m
			metrics.RecordPosteriorRefit()
		}
	}
}

// EvidenceCount reports the size of the evidence set.
func (e *Estimator) EvidenceCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.labels)
}

// Predict returns the posterior mean and standard deviation for a feature
// vector. Below the evidence threshold it returns the wide default
// (50.0, 20.0).
func (e *Estimator) Predict(features []float64) (mean, std float64) {
	e.mu.RLock()
	model := e.model
	count := len(e.labels)
	e.mu.RUnlock()

	if model == nil || count < e.minEvidence {
		return DefaultMean, DefaultStd
	}
	return model.predict(features)
}

// ConfidenceInterval returns the symmetric interval at the given confidence
// level via the normal quantile transform.
func (e *Estimator) ConfidenceInterval(features []float64, confidence float64) (lower, upper float64) {
	mean, std := e.Predict(features)
	z := normalQuantile((1 + confidence) / 2)
	return mean - z*std, mean + z*std
}

// fit builds the kernel system for each candidate length scale and keeps the
// one with the highest log marginal likelihood. Returns nil when every
// candidate produces a numerically unusable system.
func fit(x [][]float64, y []float64, noise float64) *fitted {
	n := len(y)
	yMean, signalVar := 0.0, 0.0
	for _, v := range y {
		yMean += v
	}
	yMean /= float64(n)
	for _, v := range y {
		signalVar += (v - yMean) * (v - yMean)
	}
	signalVar /= float64(n)
	if signalVar < jitter {
		signalVar = jitter
	}

	centered := make([]float64, n)
	for i, v := range y {
		centered[i] = v - yMean
	}

	var best *fitted
	bestLML := math.Inf(-1)
	for _, scale := range lengthScaleGrid {
		k := kernelMatrix(x, signalVar, scale, noise)
		chol, ok := cholesky(k)
		if !ok {
			continue
		}
		alpha := cholSolve(chol, centered)

		// log marginal likelihood: -0.5 y^T alpha - sum(log L_ii) - n/2 log(2pi)
		lml := 0.0
		for i := 0; i < n; i++ {
			lml -= 0.5 * centered[i] * alpha[i]
			lml -= math.Log(chol[i][i])
		}
		lml -= 0.5 * float64(n) * math.Log(2*math.Pi)

		if lml > bestLML {
			bestLML = lml
			best = &fitted{
				x:           x,
				chol:        chol,
				alpha:       alpha,
				yMean:       yMean,
				signalVar:   signalVar,
				lengthScale: scale,
			}
		}
	}
	return best
}

func (m *fitted) predict(features []float64) (mean, std float64) {
	n := len(m.x)
	kstar := make([]float64, n)
	for i, xi := range m.x {
		kstar[i] = rbf(features, xi, m.signalVar, m.lengthScale)
	}

	mean = m.yMean
	for i := range kstar {
		mean += kstar[i] * m.alpha[i]
	}

	// Predictive variance: k(x,x) - v^T v with v = L^-1 k*.
	v := forwardSolve(m.chol, kstar)
	variance := m.signalVar
	for _, vi := range v {
		variance -= vi * vi
	}
	if variance < jitter {
		variance = jitter
	}
	return mean, math.Sqrt(variance)
}

func rbf(a, b []float64, signalVar, scale float64) float64 {
	dist := 0.0
	for i := range a {
		bv := 0.0
		if i < len(b) {
			bv = b[i]
		}
		d := a[i] - bv
		dist += d * d
	}
	return signalVar * math.Exp(-dist/(2*scale*scale))
}

func kernelMatrix(x [][]float64, signalVar, scale, noise float64) [][]float64 {
	n := len(x)
	k := make([][]float64, n)
	for i := range k {
		k[i] = make([]float64, n)
		for j := 0; j <= i; j++ {
			v := rbf(x[i], x[j], signalVar, scale)
			k[i][j] = v
			k[j][i] = v
		}
		k[i][i] += noise
	}
	return k
}

// cholesky returns the lower-triangular factor, or false when the matrix is
// not positive definite.
func cholesky(a [][]float64) ([][]float64, bool) {
	n := len(a)
	l := make([][]float64, n)
	for i := range l {
		l[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			sum := a[i][j]
			for k := 0; k < j; k++ {
				sum -= l[i][k] * l[j][k]
			}
			if i == j {
				if sum <= 0 {
					return nil, false
				}
				l[i][i] = math.Sqrt(sum)
			} else {
				l[i][j] = sum / l[j][j]
			}
		}
	}
	return l, true
}

// forwardSolve solves L v = b for lower-triangular L.
func forwardSolve(l [][]float64, b []float64) []float64 {
	n := len(b)
	v := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := b[i]
		for j := 0; j < i; j++ {
			sum -= l[i][j] * v[j]
		}
		v[i] = sum / l[i][i]
	}
	return v
}

// cholSolve solves (L L^T) x = b.
func cholSolve(l [][]float64, b []float64) []float64 {
	n := len(b)
	v := forwardSolve(l, b)
	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := v[i]
		for j := i + 1; j < n; j++ {
			sum -= l[j][i] * x[j]
		}
		x[i] = sum / l[i][i]
	}
	return x
}

// normalQuantile is the inverse standard normal CDF.
func normalQuantile(p float64) float64 {
	return math.Sqrt2 * math.Erfinv(2*p-1)
}
