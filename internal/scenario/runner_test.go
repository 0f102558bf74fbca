package scenario_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"testing"

	engine "github.com/okian/momentum/internal/app"
	"github.com/okian/momentum/internal/domain/forecast"
	"github.com/okian/momentum/internal/domain/stochastic"
	scenario "github.com/okian/momentum/internal/scenario"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRun(t *testing.T) {
	Convey("Given a started engine and a small cohort", t, func() {
		eng := engine.New(
			engine.WithSimulations(20),
			engine.WithSimulator(stochastic.New(stochastic.WithWorkers(2))),
		)
		So(eng.Start(context.Background()), ShouldBeNil)

		cfg := scenario.NewConfig()
		cfg.Students = 5
		cfg.HistoryDays = 15
		cfg.ForecastDays = 7

		Convey("When the scenario runs", func() {
			err := scenario.Run(context.Background(), eng, cfg)

			Convey("Then every student is processed without error", func() {
				So(err, ShouldBeNil)
			})
		})

		Convey("When an output writer is configured", func() {
			var buf bytes.Buffer
			cfg.Output = &buf
			err := scenario.Run(context.Background(), eng, cfg)

			Convey("Then one JSON result per student is written", func() {
				So(err, ShouldBeNil)

				lines := 0
				scanner := bufio.NewScanner(&buf)
				scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
				for scanner.Scan() {
					var result forecast.Result
					So(json.Unmarshal(scanner.Bytes(), &result), ShouldBeNil)
					So(result.StudentID, ShouldNotBeEmpty)
					So(result.RiskLevel, ShouldNotBeEmpty)
					lines++
				}
				So(lines, ShouldEqual, cfg.Students)
			})
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			err := scenario.Run(ctx, eng, cfg)

			Convey("Then the cancellation surfaces", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
