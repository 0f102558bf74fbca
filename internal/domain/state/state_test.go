package state_test

import (
	"math"
	"testing"

	state "github.com/okian/momentum/internal/domain/state"
	. "github.com/smartystreets/goconvey/convey"
)

func TestClamp(t *testing.T) {
	Convey("Given readings across the scale", t, func() {
		Convey("Then in-range values pass through unchanged", func() {
			for _, v := range []float64{0, 25, 50, 75, 100} {
				So(state.Clamp(v), ShouldEqual, v)
			}
		})

		Convey("Then out-of-range values are bounded", func() {
			So(state.Clamp(-12.5), ShouldEqual, 0)
			So(state.Clamp(140), ShouldEqual, 100)
		})

		Convey("Then NaN collapses to the lower bound", func() {
			So(state.Clamp(math.NaN()), ShouldEqual, 0)
		})
	})
}

func TestNewVector(t *testing.T) {
	Convey("Given partial component readings", t, func() {
		v := state.NewVector("s-1", 62, []float64{80, 70}, []float64{30})

		Convey("Then missing readings are filled with the neutral midpoint", func() {
			So(v.Academic, ShouldHaveLength, state.AcademicDim)
			So(v.Academic[0], ShouldEqual, 80)
			So(v.Academic[1], ShouldEqual, 70)
			So(v.Academic[2], ShouldEqual, state.NeutralValue)
			So(v.Psychological, ShouldHaveLength, state.PsychologicalDim)
			So(v.Psychological[0], ShouldEqual, 30)
			So(v.Psychological[4], ShouldEqual, state.NeutralValue)
		})

		Convey("Then out-of-range readings are clamped on entry", func() {
			w := state.NewVector("s-2", 150, []float64{-10}, nil)
			So(w.Momentum, ShouldEqual, 100)
			So(w.Academic[0], ShouldEqual, 0)
		})
	})
}

func TestVectorClone(t *testing.T) {
	Convey("Given a vector with subject performance", t, func() {
		v := state.NewVector("s-3", 55, nil, nil)
		v.SubjectPerformance["math"] = 81

		Convey("When cloned and mutated", func() {
			c := v.Clone()
			c.Academic[0] = 1
			c.SubjectPerformance["math"] = 2

			Convey("Then the original is untouched", func() {
				So(v.Academic[0], ShouldEqual, state.NeutralValue)
				So(v.SubjectPerformance["math"], ShouldEqual, 81)
			})
		})
	})
}

func TestVectorFeatures(t *testing.T) {
	Convey("Given a vector", t, func() {
		v := state.NewVector("s-4", 50, []float64{1, 2, 3, 4}, []float64{5, 6, 7, 8, 9})

		Convey("Then features lay out academic, psychological, feedback", func() {
			f := v.Features(42)
			So(f, ShouldHaveLength, state.AcademicDim+state.PsychologicalDim+1)
			So(f[0], ShouldEqual, 1)
			So(f[state.AcademicDim], ShouldEqual, 5)
			So(f[len(f)-1], ShouldEqual, 42)
		})
	})
}

func TestSeries(t *testing.T) {
	Convey("Given scalar histories", t, func() {
		Convey("Then empty series return the fallback", func() {
			So(state.Series(nil).Last(50), ShouldEqual, 50)
			So(state.Series(nil).Mean(50), ShouldEqual, 50)
		})

		Convey("Then populated series report last and mean", func() {
			s := state.Series{10, 20, 30}
			So(s.Last(0), ShouldEqual, 30)
			So(s.Mean(0), ShouldEqual, 20)
		})
	})
}
