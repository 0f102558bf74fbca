package logger_test

import (
	"context"
	"errors"
	"testing"

	logger "github.com/okian/momentum/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLogger(t *testing.T) {
	Convey("Given an initialized logger", t, func() {
		So(logger.Init(), ShouldBeNil)

		Convey("When logging with fields", func() {
			l := logger.Get()

			Convey("Then logging does not panic", func() {
				So(func() {
					l.Info(context.Background(), "forecast generated",
						logger.String("studentID", "s-1"),
						logger.Int("horizonDays", 30),
						logger.Float64("collapseRisk", 0.25),
						logger.Any("components", []string{"catastrophe"}),
						logger.Error(errors.New("boom")),
					)
				}, ShouldNotPanic)
			})
		})

		Convey("When creating a named logger", func() {
			named := logger.Named("dynamics")

			Convey("Then it is usable", func() {
				So(named, ShouldNotBeNil)
				So(func() {
					named.Debug(context.Background(), "step accepted")
				}, ShouldNotPanic)
			})
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given an initialized logger", t, func() {
		So(logger.Init(), ShouldBeNil)

		Convey("Then known levels parse", func() {
			for _, level := range []string{"debug", "info", "warn", "warning", "error", ""} {
				So(logger.SetLevelString(level), ShouldBeNil)
			}
		})

		Convey("Then unknown levels are rejected", func() {
			So(logger.SetLevelString("verbose"), ShouldNotBeNil)
		})
	})
}
