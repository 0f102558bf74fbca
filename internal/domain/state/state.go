// Package state defines the entities passed between the engine's models.
package state

import (
	"math"
	"time"
)

// Bounds and dimensions of the state space.
const (
	ScaleMin = 0.0
	ScaleMax = 100.0

	// AcademicDim covers gpa, engagement, completion, attendance.
	AcademicDim = 4
	// PsychologicalDim covers stress, motivation, confidence, resilience, wellbeing.
	PsychologicalDim = 5

	// NeutralValue is the midpoint used when a reading is missing.
	NeutralValue = 50.0
)

// Vector is a student's instantaneous condition. Momentum and every vector
// component live on the [0,100] scale; LearningVelocity is the signed rate of
// momentum change per day.
type Vector struct {
	StudentID          string
	Timestamp          time.Time
	Momentum           float64
	Academic           []float64
	Psychological      []float64
	SubjectPerformance map[string]float64
	LearningVelocity   float64
	InterventionLevel  float64
}

// NewVector builds a Vector with correctly sized component slices, filling
// missing readings with the neutral midpoint.
func NewVector(studentID string, momentum float64, academic, psychological []float64) Vector {
	v := Vector{
		StudentID:          studentID,
		Timestamp:          time.Now(),
		Momentum:           Clamp(momentum),
		Academic:           make([]float64, AcademicDim),
		Psychological:      make([]float64, PsychologicalDim),
		SubjectPerformance: make(map[string]float64),
	}
	for i := range v.Academic {
		v.Academic[i] = NeutralValue
		if i < len(academic) {
			v.Academic[i] = Clamp(academic[i])
		}
	}
	for i := range v.Psychological {
		v.Psychological[i] = NeutralValue
		if i < len(psychological) {
			v.Psychological[i] = Clamp(psychological[i])
		}
	}
	return v
}

// Clamp bounds a reading to the [0,100] scale. NaN collapses to the lower
// bound so a bad reading can never poison a trajectory.
func Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return ScaleMin
	}
	return math.Max(ScaleMin, math.Min(ScaleMax, v))
}

// Clamped returns a copy of the vector with every component bounded.
func (v Vector) Clamped() Vector {
	out := v.Clone()
	out.Momentum = Clamp(out.Momentum)
	for i := range out.Academic {
		out.Academic[i] = Clamp(out.Academic[i])
	}
	for i := range out.Psychological {
		out.Psychological[i] = Clamp(out.Psychological[i])
	}
	return out
}

// Clone deep-copies the vector so models can mutate freely.
func (v Vector) Clone() Vector {
	out := v
	out.Academic = append([]float64(nil), v.Academic...)
	out.Psychological = append([]float64(nil), v.Psychological...)
	out.SubjectPerformance = make(map[string]float64, len(v.SubjectPerformance))
	for k, val := range v.SubjectPerformance {
		out.SubjectPerformance[k] = val
	}
	return out
}

// Features flattens the vector into the feature layout consumed by the
// posterior estimator: academic components, psychological components, then
// the teacher feedback reading.
func (v Vector) Features(teacherFeedback float64) []float64 {
	out := make([]float64, 0, len(v.Academic)+len(v.Psychological)+1)
	out = append(out, v.Academic...)
	out = append(out, v.Psychological...)
	out = append(out, teacherFeedback)
	return out
}

// Series is a chronologically ascending scalar history.
type Series []float64

// Last returns the most recent value, or fallback for an empty series.
func (s Series) Last(fallback float64) float64 {
	if len(s) == 0 {
		return fallback
	}
	return s[len(s)-1]
}

// Mean returns the arithmetic mean, or fallback for an empty series.
func (s Series) Mean(fallback float64) float64 {
	if len(s) == 0 {
		return fallback
	}
	sum := 0.0
	for _, v := range s {
		sum += v
	}
	return sum / float64(len(s))
}
