package weather

import (
	"fmt"
	"strings"
	"time"

	"github.com/i474232898/weather-alerts/internal/common"
)

// Condition is a coarse forecast category as reported in OpenWeather's
// weather[].main field.
type Condition string

const (
	ConditionThunderstorm Condition = "Thunderstorm"
	ConditionDrizzle      Condition = "Drizzle"
	ConditionRain         Condition = "Rain"
	ConditionSnow         Condition = "Snow"
	ConditionClear        Condition = "Clear"
	ConditionClouds       Condition = "Clouds"
	ConditionMist         Condition = "Mist"
	ConditionSmoke        Condition = "Smoke"
	ConditionHaze         Condition = "Haze"
	ConditionDust         Condition = "Dust"
	ConditionFog          Condition = "Fog"
	ConditionSand         Condition = "Sand"
	ConditionAsh          Condition = "Ash"
	ConditionSquall       Condition = "Squall"
	ConditionTornado      Condition = "Tornado"
)

// Conditions lists every category a subscriber can ask to be alerted about.
var Conditions = []Condition{
	ConditionThunderstorm,
	ConditionDrizzle,
	ConditionRain,
	ConditionSnow,
	ConditionClear,
	ConditionClouds,
	ConditionMist,
	ConditionSmoke,
	ConditionHaze,
	ConditionDust,
	ConditionFog,
	ConditionSand,
	ConditionAsh,
	ConditionSquall,
	ConditionTornado,
}

// ParseCondition resolves s to its canonical Condition, ignoring case and
// surrounding whitespace.
func ParseCondition(s string) (Condition, bool) {
	s = strings.TrimSpace(s)
	for _, c := range Conditions {
		if common.EqualFoldAny(s, string(c)) {
			return c, true
		}
	}
	return "", false
}

// Coordinates is a geographic point in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Key returns a canonical string key for caching by location.
func (c Coordinates) Key() string {
	return fmt.Sprintf("%.4f:%.4f", c.Lat, c.Lon)
}

// ForecastPoint is one timestamped entry of a provider's forecast series.
type ForecastPoint struct {
	Timestamp    time.Time `json:"timestamp"` // always UTC
	Main         string    `json:"main"`
	Description  string    `json:"description"`
	Icon         string    `json:"icon,omitempty"`
	TemperatureC float64   `json:"temperatureC"`
	FeelsLikeC   float64   `json:"feelsLikeC"`
	HumidityPct  float64   `json:"humidityPercent"`
	WindSpeed    float64   `json:"windSpeed"`
}

// ForecastSeries is a provider's forecast for one location.
// Points are ordered by Timestamp ascending.
type ForecastSeries struct {
	City   string          `json:"city,omitempty"`
	Points []ForecastPoint `json:"points"`
}

// CurrentWeather is the provider's view of conditions right now.
type CurrentWeather struct {
	City         string    `json:"city,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	Main         string    `json:"main"`
	Description  string    `json:"description"`
	Icon         string    `json:"icon,omitempty"`
	TemperatureC float64   `json:"temperatureC"`
	FeelsLikeC   float64   `json:"feelsLikeC"`
	HumidityPct  float64   `json:"humidityPercent"`
	WindSpeed    float64   `json:"windSpeed"`
}
