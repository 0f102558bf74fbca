package config_test

import (
	"errors"
	"testing"

	config "github.com/okian/momentum/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNew(t *testing.T) {
	Convey("Given a default config", t, func() {
		cfg := config.New()

		Convey("Then sensible defaults are set", func() {
			So(cfg.LogLevel, ShouldEqual, "info")
			So(cfg.ForecastDays, ShouldEqual, 30)
			So(cfg.Simulations, ShouldEqual, 100)
			So(cfg.SimulationStep, ShouldEqual, 0.1)
			So(cfg.CollapseThreshold, ShouldEqual, 20.0)
			So(cfg.Seed, ShouldEqual, 42)
			So(cfg.MinEvidence, ShouldEqual, 10)
			So(cfg.StateBuckets, ShouldEqual, 10)
			So(cfg.LearningRate, ShouldEqual, 0.1)
			So(cfg.DiscountFactor, ShouldEqual, 0.95)
		})
	})
}

func TestLoad(t *testing.T) {
	Convey("Given no overrides", t, func() {
		cfg, err := config.Load()

		Convey("Then defaults survive loading", func() {
			So(err, ShouldBeNil)
			So(cfg.ForecastDays, ShouldEqual, 30)
			So(cfg.MetricsAddr, ShouldEqual, ":9090")
		})
	})

	Convey("Given environment overrides", t, func() {
		t.Setenv("MOMENTUM_FORECAST_DAYS", "60")
		t.Setenv("MOMENTUM_LOG_LEVEL", "debug")
		cfg, err := config.Load()

		Convey("Then the environment wins over defaults", func() {
			So(err, ShouldBeNil)
			So(cfg.ForecastDays, ShouldEqual, 60)
			So(cfg.LogLevel, ShouldEqual, "debug")
		})
	})

	Convey("Given an invalid override", t, func() {
		t.Setenv("MOMENTUM_SIMULATION_STEP", "5")
		_, err := config.Load()

		Convey("Then validation rejects it with the sentinel", func() {
			So(err, ShouldNotBeNil)
			So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
		})
	})

	Convey("Given a nonexistent config file", t, func() {
		t.Setenv("MOMENTUM_CONFIG", "/nonexistent/momentum.yaml")
		_, err := config.Load()

		Convey("Then loading fails with the load sentinel", func() {
			So(err, ShouldNotBeNil)
			So(errors.Is(err, config.ErrLoadConfig), ShouldBeTrue)
		})
	})
}
