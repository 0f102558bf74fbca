package scenario_test

import (
	"context"
	"math/rand"
	"testing"

	scenario "github.com/okian/momentum/internal/scenario"
	"github.com/okian/momentum/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func TestGenerate(t *testing.T) {
	Convey("Given a cohort generator", t, func() {
		rng := rand.New(rand.NewSource(42))

		Convey("When generating a cohort", func() {
			students := scenario.Generate(context.Background(), rng, 25, 30)

			Convey("Then every student has complete bounded histories", func() {
				So(students, ShouldHaveLength, 25)
				for _, s := range students {
					So(s.ID, ShouldNotBeEmpty)
					So(s.Archetype, ShouldNotBeEmpty)
					So(s.MomentumHistory, ShouldHaveLength, 30)
					So(s.AcademicHistory, ShouldHaveLength, 30)
					So(s.PsychologicalHistory, ShouldHaveLength, 30)
					for _, v := range s.MomentumHistory {
						So(v, ShouldBeBetweenOrEqual, 0, 100)
					}
				}
			})

			Convey("Then the state vector matches the latest readings", func() {
				for _, s := range students {
					So(s.Vector.Momentum, ShouldEqual, s.MomentumHistory[len(s.MomentumHistory)-1])
					So(s.Vector.Academic[0], ShouldEqual, s.AcademicHistory[len(s.AcademicHistory)-1])
				}
			})
		})

		Convey("When the same seed generates two cohorts", func() {
			a := scenario.Generate(context.Background(), rand.New(rand.NewSource(7)), 10, 15)
			b := scenario.Generate(context.Background(), rand.New(rand.NewSource(7)), 10, 15)

			Convey("Then the histories match", func() {
				for i := range a {
					So(a[i].Archetype, ShouldEqual, b[i].Archetype)
					So(a[i].MomentumHistory, ShouldResemble, b[i].MomentumHistory)
				}
			})
		})
	})
}
