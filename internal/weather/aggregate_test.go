package weather

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeHourly(start time.Time, mains ...string) []ForecastPoint {
	points := make([]ForecastPoint, 0, len(mains))
	for i, m := range mains {
		points = append(points, ForecastPoint{
			Timestamp:    start.Add(time.Duration(i) * 3 * time.Hour),
			Main:         m,
			Description:  "desc " + m,
			TemperatureC: float64(10 + i),
			HumidityPct:  50,
			WindSpeed:    2,
		})
	}
	return points
}

func TestAggregateDaily(t *testing.T) {
	start := time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)
	// 18:00, 21:00 on day one; 00:00..09:00 on day two.
	points := threeHourly(start, "Clouds", "Rain", "Rain", "Rain", "Clear", "Clear")

	days := AggregateDaily(points)
	require.Len(t, days, 2)

	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), days[0].Date)
	assert.Equal(t, "Clouds", days[0].Main, "tie resolves to the earliest condition")
	assert.Equal(t, 10.5, days[0].TemperatureC)
	assert.Equal(t, 10.0, days[0].MinTempC)
	assert.Equal(t, 11.0, days[0].MaxTempC)

	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), days[1].Date)
	assert.Equal(t, "Rain", days[1].Main)
	assert.Equal(t, "desc Rain", days[1].Description)
	assert.Equal(t, 13.5, days[1].TemperatureC)
	assert.Equal(t, 50.0, days[1].HumidityPct)
}

func TestAggregateDaily_Empty(t *testing.T) {
	assert.Empty(t, AggregateDaily(nil))
}

func TestBuildView(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	points := threeHourly(start, "Clear", "Clear", "Clouds", "Clouds", "Rain", "Rain", "Rain", "Rain", "Snow", "Snow")
	series := ForecastSeries{City: "Nakuru", Points: points}

	t.Run("first point stands in for current", func(t *testing.T) {
		view := BuildView(series, nil)

		assert.Equal(t, "Nakuru", view.City)
		require.NotNil(t, view.Current)
		assert.Equal(t, "Clear", view.Current.Main)
		assert.Equal(t, points[0].Timestamp, view.Current.Timestamp)
		assert.Equal(t, points[1:7], view.Hourly)
		require.Len(t, view.Daily, 2)
	})

	t.Run("explicit current wins", func(t *testing.T) {
		cw := &CurrentWeather{City: "Nakuru", Main: "Haze"}
		view := BuildView(series, cw)
		assert.Same(t, cw, view.Current)
	})

	t.Run("empty series", func(t *testing.T) {
		view := BuildView(ForecastSeries{}, nil)
		assert.Nil(t, view.Current)
		assert.Empty(t, view.Hourly)
		assert.Empty(t, view.Daily)
	})

	t.Run("city falls back to current", func(t *testing.T) {
		view := BuildView(ForecastSeries{Points: points[:2]}, &CurrentWeather{City: "Eldoret"})
		assert.Equal(t, "Eldoret", view.City)
		assert.Len(t, view.Hourly, 1)
	})
}
