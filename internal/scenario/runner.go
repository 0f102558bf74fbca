package scenario

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"time"

	engine "github.com/okian/momentum/internal/app"
	"github.com/okian/momentum/internal/domain/forecast"
	"github.com/okian/momentum/pkg/logger"
)

// Runner defaults.
const (
	defaultStudents     = 50
	defaultHistoryDays  = 30
	defaultForecastDays = 30
	defaultSeed         = 42

	teacherFeedbackBase  = 40.0
	teacherFeedbackRange = 40.0
)

// Config controls one scenario run. Output, when set, receives one JSON
// forecast result per line.
type Config struct {
	Students     int
	HistoryDays  int
	ForecastDays int
	Seed         int64
	Output       io.Writer
}

// NewConfig returns a Config with defaults.
func NewConfig() *Config {
	return &Config{
		Students:     defaultStudents,
		HistoryDays:  defaultHistoryDays,
		ForecastDays: defaultForecastDays,
		Seed:         defaultSeed,
	}
}

// Stats accumulates outcomes across the cohort.
type Stats struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	StudentsProcessed int
	ScoresComputed    int
	ForecastsRun      int
	CriticalStudents  int
	HighRiskStudents  int
	Collapses         int
	Recommendations   map[string]int
}

// Run generates a cohort and drives every student through the full engine
// surface: momentum scoring, forecasting, and a recommend/reinforce cycle.
func Run(ctx context.Context, eng *engine.Engine, cfg *Config) error {
	stats := &Stats{
		StartTime:       time.Now(),
		Recommendations: make(map[string]int),
	}

	logger.Get().Info(ctx, "starting momentum scenario run",
		logger.Int("students", cfg.Students),
		logger.Int("historyDays", cfg.HistoryDays),
		logger.Int("forecastDays", cfg.ForecastDays),
		logger.Any("seed", cfg.Seed),
	)

	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // reproducible cohort
	students := Generate(ctx, rng, cfg.Students, cfg.HistoryDays)

	var enc *json.Encoder
	if cfg.Output != nil {
		enc = json.NewEncoder(cfg.Output)
	}

	for _, s := range students {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("scenario cancelled: %w", err)
		}
		if err := runStudent(ctx, eng, rng, s, cfg.ForecastDays, enc, stats); err != nil {
			return fmt.Errorf("student %s (%s): %w", s.ID, s.Archetype, err)
		}
		stats.StudentsProcessed++
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	logger.Get().Info(ctx, "scenario run completed successfully")
	return nil
}

func runStudent(ctx context.Context, eng *engine.Engine, rng *rand.Rand, s Student, forecastDays int, enc *json.Encoder, stats *Stats) error {
	feedback := teacherFeedbackBase + rng.Float64()*teacherFeedbackRange

	score, err := eng.ComputeMomentum(ctx, s.Vector, feedback)
	if err != nil {
		return fmt.Errorf("compute momentum: %w", err)
	}
	stats.ScoresComputed++

	result, err := eng.ComputeForecast(ctx, engine.ForecastRequest{
		StudentID:            s.ID,
		MomentumHistory:      s.MomentumHistory,
		AcademicHistory:      s.AcademicHistory,
		PsychologicalHistory: s.PsychologicalHistory,
		SupportLevel:         feedback,
		ForecastDays:         forecastDays,
	})
	if err != nil {
		return fmt.Errorf("compute forecast: %w", err)
	}
	stats.ForecastsRun++

	switch result.RiskLevel {
	case forecast.RiskCritical:
		stats.CriticalStudents++
	case forecast.RiskHigh:
		stats.HighRiskStudents++
	}
	if result.DaysUntilCollapse != nil {
		stats.Collapses++
	}
	if enc != nil {
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("write forecast result: %w", err)
		}
	}

	subject := subjects[rng.Intn(len(subjects))]
	rec, err := eng.RecommendStrategy(ctx, s.Vector, subject)
	if err != nil {
		return fmt.Errorf("recommend strategy: %w", err)
	}
	stats.Recommendations[rec.Action.Name]++

	// Reinforce with the score delta as reward, closing the learning loop.
	after := s.Vector.Clone()
	after.Momentum = score.Score
	if err := eng.ReinforceStrategy(s.Vector, rec.Action, score.Score-s.Vector.Momentum, after, subject, false); err != nil {
		return fmt.Errorf("reinforce strategy: %w", err)
	}

	logger.Get().Debug(ctx, "student processed",
		logger.String("studentID", s.ID),
		logger.String("archetype", s.Archetype),
		logger.Float64("score", score.Score),
		logger.String("riskLevel", result.RiskLevel),
		logger.Float64("collapseRisk", result.CollapseRisk),
		logger.String("action", rec.Action.Name),
	)
	return nil
}

// displayFinalStats prints the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.StudentsProcessed) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("studentsProcessed", stats.StudentsProcessed),
		logger.Int("scoresComputed", stats.ScoresComputed),
		logger.Int("forecastsRun", stats.ForecastsRun),
		logger.Int("criticalStudents", stats.CriticalStudents),
		logger.Int("highRiskStudents", stats.HighRiskStudents),
		logger.Int("collapsesForecast", stats.Collapses),
		logger.Any("recommendations", stats.Recommendations),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("studentsPerSecond", perSecond),
	)
}
