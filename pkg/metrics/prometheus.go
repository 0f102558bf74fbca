// Package metrics provides Prometheus metrics for the momentum engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the momentum engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Core Business Metrics - Scores and forecasts produced
	momentumScores   prometheus.Histogram
	forecasts        *prometheus.CounterVec
	collapseRisk     prometheus.Histogram
	recommendations  *prometheus.CounterVec
	solveDuration    prometheus.Histogram
	forecastDuration prometheus.Histogram

	// Model Health Metrics - Degraded paths and fallbacks
	integrationFailures prometheus.Counter
	optimizerFallbacks  prometheus.Counter
	forecastFallbacks   *prometheus.CounterVec

	// Posterior Metrics - Evidence accumulation and refits
	posteriorEvidence prometheus.Gauge
	posteriorRefits   prometheus.Counter

	// Policy Metrics - Q-learning progress
	qTableStates    prometheus.Gauge
	explorationRate prometheus.Gauge

	// Simulation Metrics - Monte-Carlo throughput
	simulationRuns     prometheus.Counter
	simulationDuration prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "momentum",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	// Initialize metrics
	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	// Core Business Metrics - Scores and forecasts produced
	m.momentumScores = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "momentum_score",
		Help:      "Distribution of computed momentum scores on the 0-100 scale",
		Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	})

	m.forecasts = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "forecasts_total",
			Help:      "Total number of forecasts generated by risk level",
		},
		[]string{"risk_level"},
	)

	m.collapseRisk = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "collapse_risk",
		Help:      "Distribution of combined collapse-risk scores",
		Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
	})

	m.recommendations = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "recommendations_total",
			Help:      "Total number of strategy recommendations by action",
		},
		[]string{"action"},
	)

	m.solveDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "solve_duration_milliseconds",
		Help:      "Trajectory solve duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.forecastDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "forecast_duration_milliseconds",
		Help:      "End-to-end forecast generation duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	// Model Health Metrics - Degraded paths and fallbacks
	m.integrationFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "integration_failures_total",
		Help:      "Total number of trajectory solves that could not converge",
	})

	m.optimizerFallbacks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "optimizer_fallbacks_total",
		Help:      "Total number of path optimizations returning the seed path",
	})

	m.forecastFallbacks = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "forecast_fallbacks_total",
			Help:      "Total number of forecasts degraded to a simpler model",
		},
		[]string{"model"},
	)

	// Posterior Metrics - Evidence accumulation and refits
	m.posteriorEvidence = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "posterior_evidence_count",
		Help:      "Current size of the posterior evidence set",
	})

	m.posteriorRefits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "posterior_refits_total",
		Help:      "Total number of posterior model refits",
	})

	// Policy Metrics - Q-learning progress
	m.qTableStates = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "qtable_states",
		Help:      "Number of discretized states in the Q-table",
	})

	m.explorationRate = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "exploration_rate",
		Help:      "Current epsilon of the strategy policy",
	})

	// Simulation Metrics - Monte-Carlo throughput
	m.simulationRuns = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "simulation_runs_total",
		Help:      "Total number of Monte-Carlo trajectories simulated",
	})

	m.simulationDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "simulation_duration_milliseconds",
		Help:      "Monte-Carlo batch duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})
}

// RecordMomentumScore observes one computed momentum score.
func RecordMomentumScore(score float64) {
	globalManager.momentumScores.Observe(score)
}

// RecordForecast increments the forecast counter for a risk level.
func RecordForecast(riskLevel string) {
	globalManager.forecasts.WithLabelValues(riskLevel).Inc()
}

// RecordCollapseRisk observes one combined collapse-risk score.
func RecordCollapseRisk(risk float64) {
	globalManager.collapseRisk.Observe(risk)
}

// RecordRecommendation increments the recommendation counter for an action.
func RecordRecommendation(action string) {
	globalManager.recommendations.WithLabelValues(action).Inc()
}

// RecordSolveDuration records trajectory solve duration in milliseconds.
func RecordSolveDuration(latencyMs float64) {
	globalManager.solveDuration.Observe(latencyMs)
}

// RecordForecastDuration records forecast generation duration in milliseconds.
func RecordForecastDuration(latencyMs float64) {
	globalManager.forecastDuration.Observe(latencyMs)
}

// RecordIntegrationFailure increments the failed-solve counter.
func RecordIntegrationFailure() {
	globalManager.integrationFailures.Inc()
}

// RecordOptimizerFallback increments the optimizer fallback counter.
func RecordOptimizerFallback() {
	globalManager.optimizerFallbacks.Inc()
}

// RecordForecastFallback increments the fallback counter for a model.
func RecordForecastFallback(model string) {
	globalManager.forecastFallbacks.WithLabelValues(model).Inc()
}

// UpdatePosteriorEvidence sets the posterior evidence set size.
func UpdatePosteriorEvidence(count int) {
	globalManager.posteriorEvidence.Set(float64(count))
}

// RecordPosteriorRefit increments the posterior refit counter.
func RecordPosteriorRefit() {
	globalManager.posteriorRefits.Inc()
}

// UpdateQTableStates sets the Q-table state count.
func UpdateQTableStates(count int) {
	globalManager.qTableStates.Set(float64(count))
}

// UpdateExplorationRate sets the current policy epsilon.
func UpdateExplorationRate(epsilon float64) {
	globalManager.explorationRate.Set(epsilon)
}

// RecordSimulationRuns adds to the simulated trajectory counter.
func RecordSimulationRuns(count int) {
	globalManager.simulationRuns.Add(float64(count))
}

// RecordSimulationDuration records Monte-Carlo batch duration in milliseconds.
func RecordSimulationDuration(latencyMs float64) {
	globalManager.simulationDuration.Observe(latencyMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
