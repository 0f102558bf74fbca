package forecast_test

import (
	"math"
	"testing"

	forecast "github.com/okian/momentum/internal/domain/forecast"
	. "github.com/smartystreets/goconvey/convey"
)

func TestForecast(t *testing.T) {
	Convey("Given a time-series forecaster", t, func() {
		f := forecast.NewForecaster()

		Convey("When the history is too short to fit", func() {
			series := []float64{60, 58, 56, 54, 52, 50}
			p := f.Forecast(series, 7)

			Convey("Then the baseline decays geometrically from the last value", func() {
				So(p.Model, ShouldEqual, forecast.ModelBaseline)
				So(p.Forecast, ShouldHaveLength, 7)
				So(p.Forecast[0], ShouldAlmostEqual, 50*0.98, 1e-9)
				So(p.Forecast[1], ShouldAlmostEqual, 50*0.98*0.98, 1e-9)
			})

			Convey("Then the flat bands bracket the forecast", func() {
				for i := range p.Forecast {
					So(p.Lower[i], ShouldAlmostEqual, p.Forecast[i]-10, 1e-9)
					So(p.Upper[i], ShouldAlmostEqual, p.Forecast[i]+10, 1e-9)
				}
			})
		})

		Convey("When the history is empty", func() {
			p := f.Forecast(nil, 3)

			Convey("Then decay starts from the neutral midpoint", func() {
				So(p.Model, ShouldEqual, forecast.ModelBaseline)
				So(p.Forecast[0], ShouldAlmostEqual, 50*0.98, 1e-9)
			})
		})

		Convey("When a long oscillating history is fitted", func() {
			series := make([]float64, 40)
			for i := range series {
				series[i] = 55 + 8*math.Sin(float64(i)/3) + 0.5*float64(i%3)
			}
			p := f.Forecast(series, 14)

			Convey("Then the projection is complete and bands are ordered", func() {
				So(p.Forecast, ShouldHaveLength, 14)
				So(p.Model, ShouldBeIn, forecast.ModelARIMA, forecast.ModelBaseline)
				for i := range p.Forecast {
					So(p.Lower[i], ShouldBeLessThanOrEqualTo, p.Forecast[i])
					So(p.Upper[i], ShouldBeGreaterThanOrEqualTo, p.Forecast[i])
				}
			})

			Convey("Then uncertainty grows with the horizon", func() {
				So(p.Upper[13]-p.Lower[13], ShouldBeGreaterThanOrEqualTo, p.Upper[0]-p.Lower[0])
			})
		})

		Convey("When the horizon is not positive", func() {
			p := f.Forecast([]float64{50}, 0)
			So(p.Forecast, ShouldHaveLength, 1)
		})
	})
}

func TestForecastSmoothed(t *testing.T) {
	Convey("Given a time-series forecaster", t, func() {
		f := forecast.NewForecaster()

		Convey("When smoothing an exactly linear history", func() {
			series := []float64{10, 12, 14, 16, 18}
			p := f.ForecastSmoothed(series, 3)

			Convey("Then the trend continues exactly", func() {
				So(p.Model, ShouldEqual, forecast.ModelHolt)
				So(p.Forecast[0], ShouldAlmostEqual, 20, 1e-9)
				So(p.Forecast[1], ShouldAlmostEqual, 22, 1e-9)
				So(p.Forecast[2], ShouldAlmostEqual, 24, 1e-9)
			})
		})

		Convey("When the history has a single point", func() {
			p := f.ForecastSmoothed([]float64{42}, 2)

			Convey("Then the baseline fallback applies", func() {
				So(p.Model, ShouldEqual, forecast.ModelBaseline)
				So(p.Forecast[0], ShouldAlmostEqual, 42*0.98, 1e-9)
			})
		})
	})
}
