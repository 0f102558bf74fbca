package stability_test

import (
	"testing"

	stability "github.com/okian/momentum/internal/domain/stability"
	. "github.com/smartystreets/goconvey/convey"
)

func TestAssess(t *testing.T) {
	Convey("Given a stability analyzer", t, func() {
		analyzer := stability.New()

		Convey("When the state sits on the healthy equilibrium", func() {
			a := analyzer.Assess(70, []float64{70}, []float64{40})

			Convey("Then it is stable with the top score", func() {
				So(a.Stability, ShouldEqual, stability.Stable)
				So(a.Score, ShouldEqual, 0.9)
				So(a.TotalDeviation, ShouldAlmostEqual, 0, 1e-9)
			})
		})

		Convey("When the state drifts moderately", func() {
			a := analyzer.Assess(50, []float64{50}, []float64{50})

			Convey("Then it is marginally stable", func() {
				So(a.Stability, ShouldEqual, stability.MarginallyStable)
				So(a.Score, ShouldEqual, 0.5)
			})
		})

		Convey("When the state is far from equilibrium", func() {
			a := analyzer.Assess(10, []float64{20}, []float64{90})

			Convey("Then it is unstable", func() {
				So(a.Stability, ShouldEqual, stability.Unstable)
				So(a.Score, ShouldEqual, 0.1)
			})
		})

		Convey("When component histories are empty", func() {
			a := analyzer.Assess(70, nil, nil)

			Convey("Then the neutral fallback drives the deviation", func() {
				// academic 50 vs 70 and psychological 50 vs 40 average to 10.
				So(a.TotalDeviation, ShouldAlmostEqual, 10, 1e-9)
				So(a.Stability, ShouldEqual, stability.Stable)
			})
		})
	})
}

func TestLyapunovEstimate(t *testing.T) {
	Convey("Given a stability analyzer", t, func() {
		analyzer := stability.New()

		Convey("When the series is too short", func() {
			So(analyzer.LyapunovEstimate([]float64{50, 51, 52}), ShouldEqual, 0)
		})

		Convey("When the series is long and varying", func() {
			series := make([]float64, 30)
			for i := range series {
				series[i] = 50 + float64(i%7)*3
			}

			Convey("Then divergence against the reference delta is positive", func() {
				So(analyzer.LyapunovEstimate(series), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When the series is perfectly flat", func() {
			series := make([]float64, 30)
			for i := range series {
				series[i] = 42
			}
			So(analyzer.LyapunovEstimate(series), ShouldEqual, 0)
		})
	})
}
