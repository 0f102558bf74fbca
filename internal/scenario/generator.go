// Package scenario generates synthetic student cohorts and drives them
// through the engine, for demos and soak runs against realistic inputs.
package scenario

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/okian/momentum/internal/domain/state"
	"github.com/okian/momentum/pkg/logger"
)

// Archetype indices. The mix below skews toward steady students with a
// meaningful minority in decline, mirroring a real cohort.
const (
	caseSteady = iota
	caseThriving
	caseDeclining
	caseVolatile
	caseCollapsing
	caseRecovering
	archetypeCount
)

// Generation ranges per archetype.
const (
	steadyBase     = 55.0
	steadyRange    = 15.0
	thrivingBase   = 70.0
	thrivingRange  = 20.0
	thrivingDrift  = 0.4
	decliningBase  = 45.0
	decliningRange = 15.0
	decliningDrift = -0.8
	volatileBase   = 30.0
	volatileRange  = 40.0
	volatileJitter = 12.0
	collapseBase   = 35.0
	collapseRange  = 10.0
	collapseDrift  = -1.5
	recoverBase    = 25.0
	recoverRange   = 10.0
	recoverDrift   = 1.2

	historyJitter = 3.0
	stressOffset  = 20.0

	subjectJitter = 8.0
)

// Subjects carried by every generated student, used when exercising the
// strategy recommender.
var subjects = []string{"mathematics", "science", "literature"}

// Student is one synthetic cohort member with generated histories.
type Student struct {
	ID        string
	Archetype string
	Vector    state.Vector

	MomentumHistory      []float64
	AcademicHistory      []float64
	PsychologicalHistory []float64
}

// Generate builds a cohort of n students across the archetype mix, each with
// historyDays of daily readings. The rng makes cohorts reproducible.
func Generate(ctx context.Context, rng *rand.Rand, n, historyDays int) []Student {
	logger.Get().Info(ctx, "generating synthetic cohort",
		logger.Int("students", n),
		logger.Int("historyDays", historyDays),
	)

	students := make([]Student, n)
	for i := range students {
		students[i] = generateStudent(rng, rng.Intn(archetypeCount), historyDays)
	}
	return students
}

func generateStudent(rng *rand.Rand, archetype, historyDays int) Student {
	var name string
	var base, spread, drift, jitter float64
	switch archetype {
	case caseThriving:
		name, base, spread, drift, jitter = "thriving", thrivingBase, thrivingRange, thrivingDrift, historyJitter
	case caseDeclining:
		name, base, spread, drift, jitter = "declining", decliningBase, decliningRange, decliningDrift, historyJitter
	case caseVolatile:
		name, base, spread, drift, jitter = "volatile", volatileBase, volatileRange, 0, volatileJitter
	case caseCollapsing:
		name, base, spread, drift, jitter = "collapsing", collapseBase, collapseRange, collapseDrift, historyJitter
	case caseRecovering:
		name, base, spread, drift, jitter = "recovering", recoverBase, recoverRange, recoverDrift, historyJitter
	default:
		name, base, spread, drift, jitter = "steady", steadyBase, steadyRange, 0, historyJitter
	}

	start := base + rng.Float64()*spread
	momentum := make([]float64, historyDays)
	academic := make([]float64, historyDays)
	psychological := make([]float64, historyDays)
	level := start
	for d := 0; d < historyDays; d++ {
		level += drift + rng.NormFloat64()*jitter/3
		momentum[d] = state.Clamp(level + rng.NormFloat64()*jitter)
		academic[d] = state.Clamp(level + rng.NormFloat64()*jitter)
		// Stress runs inverse to momentum with an offset floor.
		psychological[d] = state.Clamp(state.ScaleMax - level + stressOffset*rng.Float64())
	}

	last := momentum[historyDays-1]
	vec := state.NewVector(
		fmt.Sprintf("student_%s", uuid.NewString()),
		last,
		[]float64{
			academic[historyDays-1],
			state.Clamp(last + rng.NormFloat64()*historyJitter),
			state.Clamp(last + rng.NormFloat64()*historyJitter),
			state.Clamp(last + rng.NormFloat64()*historyJitter),
		},
		[]float64{
			psychological[historyDays-1],
			state.Clamp(last + rng.NormFloat64()*historyJitter),
			state.Clamp(last + rng.NormFloat64()*historyJitter),
			state.Clamp(last + rng.NormFloat64()*historyJitter),
			state.Clamp(last + rng.NormFloat64()*historyJitter),
		},
	)
	for _, subject := range subjects {
		vec.SubjectPerformance[subject] = state.Clamp(academic[historyDays-1] + rng.NormFloat64()*subjectJitter)
	}

	return Student{
		ID:                   vec.StudentID,
		Archetype:            name,
		Vector:               vec,
		MomentumHistory:      momentum,
		AcademicHistory:      academic,
		PsychologicalHistory: psychological,
	}
}
