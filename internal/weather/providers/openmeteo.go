package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-alerts/internal/weather"
)

const defaultOpenMeteoURL = "https://api.open-meteo.com/v1/forecast"

// OpenMeteoProvider implements weather.CurrentProvider for Open-Meteo. It needs
// no API key and backs up the current-conditions lookup.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewOpenMeteoProvider creates the provider. An empty baseURL means the public API.
func NewOpenMeteoProvider(client *http.Client, baseURL string) *OpenMeteoProvider {
	if baseURL == "" {
		baseURL = defaultOpenMeteoURL
	}
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: baseURL,
		httpCfg: HTTPClientConfig{Client: client},
		circuit: newCircuitBreaker("openmeteo"),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

// FetchCurrent returns current conditions, with the WMO weather code mapped
// onto the OpenWeather categories.
func (p *OpenMeteoProvider) FetchCurrent(ctx context.Context, coords weather.Coordinates) (weather.CurrentWeather, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", strconv.FormatFloat(coords.Lat, 'f', -1, 64))
		values.Set("longitude", strconv.FormatFloat(coords.Lon, 'f', -1, 64))
		values.Set("current_weather", "true")
		values.Set("timezone", "UTC")

		return newGetRequest(p.baseURL, values)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.CurrentWeather{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		CurrentWeather *struct {
			Temperature float64 `json:"temperature"`
			WindSpeed   float64 `json:"windspeed"` // km/h
			Time        string  `json:"time"`
			WeatherCode int     `json:"weathercode"`
		} `json:"current_weather"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.CurrentWeather{}, fmt.Errorf("%w: decoding openmeteo response: %w", weather.ErrUpstreamFetch, err)
	}
	if payload.CurrentWeather == nil {
		return weather.CurrentWeather{}, fmt.Errorf("%w: openmeteo: %w", weather.ErrUpstreamFetch, errMalformedPayload)
	}

	cw := payload.CurrentWeather
	ts, err := time.Parse("2006-01-02T15:04", cw.Time)
	if err != nil {
		ts = time.Now().UTC()
	}

	cond, description := mapWMOCode(cw.WeatherCode)
	return weather.CurrentWeather{
		Timestamp:    ts.UTC(),
		Main:         string(cond),
		Description:  description,
		TemperatureC: cw.Temperature,
		FeelsLikeC:   cw.Temperature,
		WindSpeed:    cw.WindSpeed / 3.6,
	}, nil
}

// mapWMOCode maps a WMO weather interpretation code to a category and description.
func mapWMOCode(code int) (weather.Condition, string) {
	switch {
	case code == 0:
		return weather.ConditionClear, "clear sky"
	case code == 1 || code == 2:
		return weather.ConditionClouds, "partly cloudy"
	case code == 3:
		return weather.ConditionClouds, "overcast clouds"
	case code == 45 || code == 48:
		return weather.ConditionFog, "fog"
	case code >= 51 && code <= 57:
		return weather.ConditionDrizzle, "drizzle"
	case code >= 61 && code <= 67:
		return weather.ConditionRain, "rain"
	case code >= 80 && code <= 82:
		return weather.ConditionRain, "shower rain"
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return weather.ConditionSnow, "snow"
	case code >= 95 && code <= 99:
		return weather.ConditionThunderstorm, "thunderstorm"
	default:
		return "", ""
	}
}
