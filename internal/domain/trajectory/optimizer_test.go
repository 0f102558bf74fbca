package trajectory_test

import (
	"context"
	"testing"

	state "github.com/okian/momentum/internal/domain/state"
	trajectory "github.com/okian/momentum/internal/domain/trajectory"
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

func TestOptimize(t *testing.T) {
	Convey("Given a trajectory optimizer", t, func() {
		opt := trajectory.New()
		current := state.NewVector("s-1", 40, []float64{60, 60, 60, 60}, []float64{30, 50, 50, 50, 50})

		Convey("When optimizing toward a higher target", func() {
			path := opt.Optimize(context.Background(), current, 80, 10)

			Convey("Then the path has the requested resolution and stays bounded", func() {
				So(path, ShouldHaveLength, 10)
				for _, v := range path {
					So(v, ShouldBeBetweenOrEqual, 0, 100)
				}
			})
		})

		Convey("When fewer than two steps are requested", func() {
			path := opt.Optimize(context.Background(), current, 80, 1)

			Convey("Then the minimum of two points is produced", func() {
				So(path, ShouldHaveLength, 2)
			})
		})

		Convey("When the target exceeds the scale", func() {
			path := opt.Optimize(context.Background(), current, 250, 5)

			Convey("Then every point still respects the bounds", func() {
				for _, v := range path {
					So(v, ShouldBeBetweenOrEqual, 0, 100)
				}
			})
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			path := opt.Optimize(ctx, current, 80, 10)

			Convey("Then the linear seed path is returned", func() {
				So(path, ShouldHaveLength, 10)
				So(path[0], ShouldAlmostEqual, 40, 1e-9)
				So(path[len(path)-1], ShouldAlmostEqual, 80, 1e-9)
			})
		})
	})
}
