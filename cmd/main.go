package main

import (
	"context"
	"flag"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	engine "github.com/okian/momentum/internal/app"
	"github.com/okian/momentum/internal/config"
	"github.com/okian/momentum/internal/domain/dynamics"
	"github.com/okian/momentum/internal/domain/posterior"
	"github.com/okian/momentum/internal/domain/stochastic"
	"github.com/okian/momentum/internal/domain/strategy"
	"github.com/okian/momentum/internal/scenario"
	"github.com/okian/momentum/pkg/logger"
	"github.com/okian/momentum/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	var (
		students     = flag.Int("students", 0, "Cohort size for the scenario run (0 uses the default)")
		historyDays  = flag.Int("history", 0, "Days of generated history per student (0 uses the default)")
		forecastDays = flag.Int("horizon", 0, "Forecast horizon in days (0 uses the configured default)")
		serve        = flag.Bool("serve", false, "Keep serving metrics after the scenario completes")
		out          = flag.String("out", "", "Write forecast results as JSON lines (\"-\" for stdout)")
	)
	flag.Parse()

	// Initialize logging
	if err := logger.Init(); err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Build the engine from configuration.
	eng := engine.New(
		engine.WithLogger(loggerInstance),
		engine.WithForecastDays(cfg.ForecastDays),
		engine.WithSimulations(cfg.Simulations),
		engine.WithDynamics(dynamics.New(
			dynamics.WithLogger(loggerInstance),
			dynamics.WithRand(rand.New(rand.NewSource(cfg.Seed))), //nolint:gosec // reproducible runs
		)),
		engine.WithSimulator(stochastic.New(
			stochastic.WithStep(cfg.SimulationStep),
			stochastic.WithNoiseLevel(cfg.NoiseLevel),
			stochastic.WithCollapseThreshold(cfg.CollapseThreshold),
			stochastic.WithWorkers(cfg.SimulationWorkers),
			stochastic.WithSeed(cfg.Seed),
		)),
		engine.WithPosterior(posterior.New(
			posterior.WithMinEvidence(cfg.MinEvidence),
		)),
		engine.WithRecommender(strategy.New(
			strategy.WithLearningRate(cfg.LearningRate),
			strategy.WithDiscountFactor(cfg.DiscountFactor),
			strategy.WithEpsilon(cfg.Epsilon),
			strategy.WithBuckets(cfg.StateBuckets),
			strategy.WithRand(rand.New(rand.NewSource(cfg.Seed))), //nolint:gosec // reproducible policy
		)),
	)
	if err := eng.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start engine: " + err.Error() + "\n")
		return
	}
	defer func() { _ = eng.Stop(context.Background()) }()

	// Serve Prometheus metrics from the custom registry.
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	go func() {
		loggerInstance.Info(ctx, "starting metrics server", logger.String("addr", cfg.MetricsAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("metrics server failed: " + err.Error() + "\n")
		}
	}()

	// Run the cohort scenario.
	scfg := scenario.NewConfig()
	scfg.Seed = cfg.Seed
	if *students > 0 {
		scfg.Students = *students
	}
	if *historyDays > 0 {
		scfg.HistoryDays = *historyDays
	}
	scfg.ForecastDays = cfg.ForecastDays
	if *forecastDays > 0 {
		scfg.ForecastDays = *forecastDays
	}
	switch *out {
	case "":
	case "-":
		scfg.Output = os.Stdout
	default:
		f, err := os.Create(*out)
		if err != nil {
			loggerInstance.Error(ctx, "failed to open output file", logger.String("path", *out), logger.Error(err))
			return
		}
		defer func() { _ = f.Close() }()
		scfg.Output = f
	}

	if err := scenario.Run(ctx, eng, scfg); err != nil {
		loggerInstance.Error(ctx, "scenario run failed", logger.Error(err))
	} else if *serve {
		loggerInstance.Info(ctx, "scenario complete; serving metrics until interrupted")
		<-ctx.Done()
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "metrics server shutdown failed", logger.Error(err))
	}
	loggerInstance.Info(ctx, "engine stopped")
}
