package strategy_test

import (
	"math/rand"
	"testing"

	strategy "github.com/okian/momentum/internal/domain/strategy"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSelectAction(t *testing.T) {
	Convey("Given a recommender", t, func() {
		r := strategy.New(strategy.WithRand(rand.New(rand.NewSource(1))))
		features := []float64{55, 60, 65, 50, 45, 30, 70, 80}

		Convey("When selecting actions", func() {
			names := make(map[string]bool)
			for _, a := range strategy.Actions() {
				names[a.Name] = true
			}

			Convey("Then every pick comes from the catalog", func() {
				for i := 0; i < 20; i++ {
					a := r.SelectAction(features, true)
					So(names[a.Name], ShouldBeTrue)
					So(a.DurationMin, ShouldBeGreaterThan, 0)
				}
			})
		})

		Convey("When a state is first seen", func() {
			r.SelectAction(features, true)

			Convey("Then it is tracked in the table", func() {
				So(r.StateCount(), ShouldEqual, 1)
			})
		})

		Convey("When exploration is disabled", func() {
			r2 := strategy.New(
				strategy.WithEpsilon(1),
				strategy.WithRand(rand.New(rand.NewSource(9))),
			)

			Convey("Then selection is greedy and deterministic", func() {
				first := r2.SelectAction(features, false)
				for i := 0; i < 10; i++ {
					So(r2.SelectAction(features, false).Name, ShouldEqual, first.Name)
				}
			})
		})
	})
}

func TestActionByName(t *testing.T) {
	Convey("Given the action catalog", t, func() {
		Convey("When looking up a known action", func() {
			a, ok := strategy.ActionByName("practice_testing")

			Convey("Then its details are returned", func() {
				So(ok, ShouldBeTrue)
				So(a.DurationMin, ShouldEqual, 50)
				So(a.Effectiveness, ShouldEqual, strategy.EffectivenessHigh)
			})
		})

		Convey("When looking up an unknown action", func() {
			_, ok := strategy.ActionByName("cramming")

			Convey("Then the lookup reports failure", func() {
				So(ok, ShouldBeFalse)
			})
		})
	})
}

func TestUpdate(t *testing.T) {
	Convey("Given a recommender with no exploration", t, func() {
		r := strategy.New(
			strategy.WithEpsilon(0),
			strategy.WithRand(rand.New(rand.NewSource(2))),
		)
		features := []float64{25, 30, 35, 40, 45, 85, 20, 30}
		action := strategy.Actions()[0]

		Convey("When the action is repeatedly rewarded", func() {
			values := []float64{r.QValues(features)[0]}
			for i := 0; i < 5; i++ {
				r.Update(features, action, 10, features, false)
				values = append(values, r.QValues(features)[0])
			}

			Convey("Then its value strictly increases", func() {
				for i := 1; i < len(values); i++ {
					So(values[i], ShouldBeGreaterThan, values[i-1])
				}
			})
		})

		Convey("When many updates run", func() {
			before := r.Epsilon()
			for i := 0; i < 100; i++ {
				r.Update(features, action, 1, features, false)
			}

			Convey("Then epsilon decays but never below the floor", func() {
				So(r.Epsilon(), ShouldBeLessThanOrEqualTo, before)
				So(r.Epsilon(), ShouldBeGreaterThanOrEqualTo, 0.01)
			})
		})

		Convey("When the rewarded action dominates", func() {
			for i := 0; i < 200; i++ {
				r.Update(features, action, 10, features, false)
			}

			Convey("Then greedy selection picks it", func() {
				So(r.SelectAction(features, true).Name, ShouldEqual, action.Name)
			})
		})

		Convey("When a terminal transition is applied", func() {
			next := []float64{95, 95, 95, 95, 95, 95, 95, 95}
			r.Update(features, action, 1, next, true)

			Convey("Then the next state is never initialized", func() {
				So(r.StateCount(), ShouldEqual, 1)
			})
		})
	})

	Convey("Given distinct discretized states", t, func() {
		r := strategy.New(strategy.WithRand(rand.New(rand.NewSource(3))))

		Convey("When updates touch several states", func() {
			r.Update([]float64{5, 5, 5, 5, 5, 5, 5, 5}, strategy.Actions()[1], 1, []float64{15, 15, 15, 15, 15, 15, 15, 15}, false)
			r.Update([]float64{95, 95, 95, 95, 95, 95, 95, 95}, strategy.Actions()[2], 1, []float64{95, 95, 95, 95, 95, 95, 95, 95}, false)

			Convey("Then the table grows per unique state", func() {
				So(r.StateCount(), ShouldEqual, 3)
				So(r.Snapshot(), ShouldHaveLength, 3)
			})
		})
	})
}

func TestEpsilonGreedy(t *testing.T) {
	Convey("Given a recommender that always explores", t, func() {
		r := strategy.New(
			strategy.WithEpsilon(1),
			strategy.WithRand(rand.New(rand.NewSource(4))),
		)
		features := []float64{50, 50, 50, 50, 50, 50, 50, 50}

		Convey("When selecting many times", func() {
			seen := make(map[string]bool)
			for i := 0; i < 300; i++ {
				seen[r.SelectAction(features, true).Name] = true
			}

			Convey("Then exploration reaches the whole catalog", func() {
				So(len(seen), ShouldEqual, len(strategy.Actions()))
			})
		})
	})
}
