package forecast

import (
	"time"

	"github.com/google/uuid"

	"github.com/okian/momentum/internal/domain/stochastic"
)

// Risk levels in ascending severity.
const (
	RiskLow      = "low"
	RiskMedium   = "medium"
	RiskHigh     = "high"
	RiskCritical = "critical"
)

// Ensemble weights for the sub-model collapse scores. They sum to one; the
// stochastic simulation carries the largest share because it integrates the
// full coupled dynamics.
const (
	WeightCatastrophe = 0.25
	WeightStochastic  = 0.30
	WeightPattern     = 0.25
	WeightStability   = 0.20
)

// Risk classification thresholds on the combined score and the priority
// attached to each level.
const (
	criticalThreshold = 0.7
	highThreshold     = 0.5
	mediumThreshold   = 0.3

	priorityCritical = 95
	priorityHigh     = 75
	priorityMedium   = 50
	priorityLow      = 20
)

// Thresholds used by risk-factor and intervention selection.
const (
	collapseMomentum     = 20.0
	lowMomentum          = 30.0
	lowAcademic          = 40.0
	highStress           = 70.0
	urgentCollapseRisk   = 0.6
	interventionLeadDays = 2
)

// WeightedRisk is one sub-model's contribution to the combined score.
type WeightedRisk struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	Score  float64 `json:"score"`
}

// Intervention is one recommended action with scheduling priority.
type Intervention struct {
	Type        string `json:"type"`
	Priority    int    `json:"priority"`
	Description string `json:"description"`
}

// Result is a complete forecast assessment for one student.
type Result struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"student_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Confidence  float64   `json:"confidence"`

	HorizonDays int `json:"horizon_days"`

	Momentum      stochastic.ChannelStats `json:"momentum"`
	Academic      stochastic.ChannelStats `json:"academic"`
	Psychological stochastic.ChannelStats `json:"psychological"`

	TrendForecast Projection `json:"trend_forecast"`

	CollapseRisk float64        `json:"collapse_risk"`
	RiskLevel    string         `json:"risk_level"`
	Priority     int            `json:"priority"`
	Components   []WeightedRisk `json:"components"`

	Stability        string  `json:"stability"`
	StabilityScore   float64 `json:"stability_score"`
	LyapunovExponent float64 `json:"lyapunov_exponent"`

	NearBifurcation        bool    `json:"near_bifurcation"`
	BifurcationDistance    float64 `json:"bifurcation_distance"`
	DaysUntilCollapse      *int    `json:"days_until_collapse,omitempty"`
	OptimalInterventionDay int     `json:"optimal_intervention_day"`

	RiskFactors   []string       `json:"risk_factors"`
	Interventions []Intervention `json:"interventions"`
}

// NewResult allocates a Result with identity and provenance fields set.
func NewResult(studentID string, horizonDays int, confidence float64) Result {
	return Result{
		ID:          uuid.NewString(),
		StudentID:   studentID,
		GeneratedAt: time.Now().UTC(),
		Confidence:  confidence,
		HorizonDays: horizonDays,
	}
}

// Combine reduces weighted sub-model scores to one collapse risk in [0,1].
func Combine(components []WeightedRisk) float64 {
	total := 0.0
	for _, c := range components {
		total += c.Weight * c.Score
	}
	if total < 0 {
		return 0
	}
	if total > 1 {
		return 1
	}
	return total
}

// ClassifyRisk maps a combined score to a level and priority.
func ClassifyRisk(score float64) (level string, priority int) {
	switch {
	case score > criticalThreshold:
		return RiskCritical, priorityCritical
	case score > highThreshold:
		return RiskHigh, priorityHigh
	case score > mediumThreshold:
		return RiskMedium, priorityMedium
	default:
		return RiskLow, priorityLow
	}
}

// DaysUntilCollapse returns the index of the first forecast day whose mean
// momentum drops below the collapse threshold, or nil when the trajectory
// never does.
func DaysUntilCollapse(momentumMean []float64) *int {
	for i, v := range momentumMean {
		if v < collapseMomentum {
			day := i
			return &day
		}
	}
	return nil
}

// RiskFactors names the conditions contributing to the assessment.
func RiskFactors(momentum float64, academicMean, psychMean float64, nearBifurcation, unstable bool) []string {
	var factors []string
	if momentum < lowMomentum {
		factors = append(factors, "Critically low momentum")
	}
	if academicMean < lowAcademic {
		factors = append(factors, "Poor academic performance")
	}
	if psychMean > highStress {
		factors = append(factors, "High psychological stress")
	}
	if nearBifurcation {
		factors = append(factors, "Near critical transition point")
	}
	if unstable {
		factors = append(factors, "Unstable trajectory")
	}
	if len(factors) == 0 {
		factors = append(factors, "No major risk factors identified")
	}
	return factors
}

// Interventions recommends actions for the assessed risks. Ongoing
// monitoring is always appended last.
func Interventions(collapseRisk, momentum, psychMean float64, nearBifurcation bool) []Intervention {
	var out []Intervention
	if collapseRisk > urgentCollapseRisk {
		out = append(out, Intervention{
			Type:        "immediate_counseling",
			Priority:    priorityCritical,
			Description: "Schedule counseling session within 24 hours",
		})
	}
	if psychMean > highStress {
		out = append(out, Intervention{
			Type:        "stress_management",
			Priority:    priorityHigh,
			Description: "Introduce stress reduction techniques and reduce workload",
		})
	}
	if momentum < lowMomentum {
		out = append(out, Intervention{
			Type:        "academic_recovery_plan",
			Priority:    priorityHigh,
			Description: "Create structured recovery plan with achievable milestones",
		})
	}
	if nearBifurcation {
		out = append(out, Intervention{
			Type:        "preventive_intervention",
			Priority:    priorityMedium,
			Description: "Apply preventive support before the critical transition",
		})
	}
	out = append(out, Intervention{
		Type:        "ongoing_monitoring",
		Priority:    priorityLow,
		Description: "Continue monitoring momentum indicators",
	})
	return out
}

// OptimalInterventionDay places the intervention two days before the
// steepest forecast decline, or mid-horizon when the trajectory never
// declines.
func OptimalInterventionDay(momentumMean []float64) int {
	steepestDay, steepestDrop := -1, 0.0
	for i := 1; i < len(momentumMean); i++ {
		drop := momentumMean[i] - momentumMean[i-1]
		if drop < steepestDrop {
			steepestDrop = drop
			steepestDay = i
		}
	}
	if steepestDay < 0 {
		return len(momentumMean) / 2
	}
	day := steepestDay - interventionLeadDays
	if day < 0 {
		day = 0
	}
	return day
}
