package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-alerts/internal/weather"
)

const defaultWeatherAPIURL = "https://api.weatherapi.com/v1/current.json"

// WeatherAPIProvider implements weather.CurrentProvider for WeatherAPI.com.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewWeatherAPIProvider creates the provider. An empty baseURL means the public API.
func NewWeatherAPIProvider(client *http.Client, apiKey, baseURL string) *WeatherAPIProvider {
	if baseURL == "" {
		baseURL = defaultWeatherAPIURL
	}
	return &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: baseURL,
		httpCfg: HTTPClientConfig{Client: client},
		circuit: newCircuitBreaker("weatherapi"),
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

// FetchCurrent returns current conditions, with the condition text mapped
// onto the OpenWeather categories.
func (p *WeatherAPIProvider) FetchCurrent(ctx context.Context, coords weather.Coordinates) (weather.CurrentWeather, error) {
	if p.apiKey == "" {
		return weather.CurrentWeather{}, fmt.Errorf("%w: weatherapi api key is not configured", weather.ErrUpstreamFetch)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("key", p.apiKey)
		// "q" accepts "lat,lon".
		values.Set("q", fmt.Sprintf("%f,%f", coords.Lat, coords.Lon))

		return newGetRequest(p.baseURL, values)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.CurrentWeather{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Location struct {
			Name string `json:"name"`
		} `json:"location"`
		Current *struct {
			LastUpdatedEpoch int64   `json:"last_updated_epoch"`
			TempC            float64 `json:"temp_c"`
			FeelsLikeC       float64 `json:"feelslike_c"`
			Humidity         float64 `json:"humidity"`
			WindKph          float64 `json:"wind_kph"`
			Condition        struct {
				Text string `json:"text"`
				Icon string `json:"icon"`
			} `json:"condition"`
		} `json:"current"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.CurrentWeather{}, fmt.Errorf("%w: decoding weatherapi response: %w", weather.ErrUpstreamFetch, err)
	}
	if payload.Current == nil {
		return weather.CurrentWeather{}, fmt.Errorf("%w: weatherapi: %w", weather.ErrUpstreamFetch, errMalformedPayload)
	}

	cur := payload.Current
	ts := time.Now().UTC()
	if cur.LastUpdatedEpoch > 0 {
		ts = time.Unix(cur.LastUpdatedEpoch, 0).UTC()
	}

	return weather.CurrentWeather{
		City:         payload.Location.Name,
		Timestamp:    ts,
		Main:         string(mapWeatherAPICondition(cur.Condition.Text)),
		Description:  strings.ToLower(strings.TrimSpace(cur.Condition.Text)),
		Icon:         cur.Condition.Icon,
		TemperatureC: cur.TempC,
		FeelsLikeC:   cur.FeelsLikeC,
		HumidityPct:  cur.Humidity,
		// kph to m/s
		WindSpeed: cur.WindKph / 3.6,
	}, nil
}

func mapWeatherAPICondition(text string) weather.Condition {
	switch {
	case text == "":
		return ""
	case contains(text, "thunder"):
		return weather.ConditionThunderstorm
	case contains(text, "drizzle"):
		return weather.ConditionDrizzle
	case contains(text, "rain") || contains(text, "shower"):
		return weather.ConditionRain
	case contains(text, "snow") || contains(text, "sleet") || contains(text, "blizzard") || contains(text, "ice pellets"):
		return weather.ConditionSnow
	case contains(text, "fog"):
		return weather.ConditionFog
	case contains(text, "mist"):
		return weather.ConditionMist
	case contains(text, "cloud") || contains(text, "overcast"):
		return weather.ConditionClouds
	case contains(text, "sunny") || contains(text, "clear"):
		return weather.ConditionClear
	default:
		return ""
	}
}

func contains(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
