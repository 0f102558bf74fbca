package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	metrics "github.com/okian/momentum/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGlobalHelpers(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("Then every helper records without panicking", func() {
			So(func() {
				metrics.RecordMomentumScore(62.5)
				metrics.RecordForecast("high")
				metrics.RecordCollapseRisk(0.4)
				metrics.RecordRecommendation("active_recall")
				metrics.RecordSolveDuration(12)
				metrics.RecordForecastDuration(150)
				metrics.RecordIntegrationFailure()
				metrics.RecordOptimizerFallback()
				metrics.RecordForecastFallback("baseline")
				metrics.UpdatePosteriorEvidence(11)
				metrics.RecordPosteriorRefit()
				metrics.UpdateQTableStates(3)
				metrics.UpdateExplorationRate(0.08)
				metrics.RecordSimulationRuns(500)
				metrics.RecordSimulationDuration(40)
			}, ShouldNotPanic)
		})

		Convey("Then the custom registry gathers the engine metrics", func() {
			families, err := metrics.GetRegistry().Gather()
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)

			names := make(map[string]bool, len(families))
			for _, f := range families {
				names[f.GetName()] = true
			}
			So(names["momentum_engine_momentum_score"], ShouldBeTrue)
			So(names["momentum_engine_forecasts_total"], ShouldBeTrue)
			So(names["momentum_engine_integration_failures_total"], ShouldBeTrue)
		})
	})
}

func TestNewManager(t *testing.T) {
	Convey("Given a manager on a private registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("Then construction with options succeeds", func() {
			So(func() {
				metrics.NewManager(
					metrics.WithNamespace("momentum"),
					metrics.WithSubsystem("test"),
					metrics.WithPrometheusRegistry(registry),
					metrics.WithHistogramBuckets([]float64{1, 5, 10}),
				)
			}, ShouldNotPanic)
		})
	})
}
