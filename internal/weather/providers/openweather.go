package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-alerts/internal/weather"
)

const (
	defaultForecastURL = "https://api.openweathermap.org/data/2.5/forecast"
	defaultCurrentURL  = "https://api.openweathermap.org/data/2.5/weather"

	// dtTxtLayout is the UTC layout of the forecast list's dt_txt field.
	dtTxtLayout = "2006-01-02 15:04:05"
)

var errMalformedPayload = errors.New("malformed payload")

// OpenWeatherConfig configures the OpenWeatherMap provider.
// Empty URLs fall back to the public API endpoints.
type OpenWeatherConfig struct {
	APIKey      string
	ForecastURL string
	CurrentURL  string
	Units       string
	MaxRetries  int
}

// OpenWeatherProvider implements weather.ForecastProvider and weather.CurrentProvider
// for OpenWeatherMap.
type OpenWeatherProvider struct {
	name        string
	apiKey      string
	forecastURL string
	currentURL  string
	units       string
	httpCfg     HTTPClientConfig
	circuit     *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(client *http.Client, cfg OpenWeatherConfig) *OpenWeatherProvider {
	p := &OpenWeatherProvider{
		name:        "openweathermap",
		apiKey:      cfg.APIKey,
		forecastURL: cfg.ForecastURL,
		currentURL:  cfg.CurrentURL,
		units:       cfg.Units,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      cfg.MaxRetries,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: newCircuitBreaker("openweather"),
	}
	if p.forecastURL == "" {
		p.forecastURL = defaultForecastURL
	}
	if p.currentURL == "" {
		p.currentURL = defaultCurrentURL
	}
	return p
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

type owmCondition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type owmMain struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	Humidity  float64 `json:"humidity"`
}

type owmWind struct {
	Speed float64 `json:"speed"`
}

type owmForecastItem struct {
	Dt      int64          `json:"dt"`
	DtTxt   string         `json:"dt_txt"`
	Weather []owmCondition `json:"weather"`
	Main    owmMain        `json:"main"`
	Wind    owmWind        `json:"wind"`
}

type owmForecastResponse struct {
	List *[]owmForecastItem `json:"list"`
	City *struct {
		Name string `json:"name"`
	} `json:"city"`
}

type owmCurrentResponse struct {
	Dt      int64          `json:"dt"`
	Name    string         `json:"name"`
	Weather []owmCondition `json:"weather"`
	Main    owmMain        `json:"main"`
	Wind    owmWind        `json:"wind"`
}

// FetchForecast retrieves the 5 day / 3 hour forecast for coords.
func (p *OpenWeatherProvider) FetchForecast(ctx context.Context, coords weather.Coordinates) (weather.ForecastSeries, error) {
	if p.apiKey == "" {
		return weather.ForecastSeries{}, fmt.Errorf("%w: openweather api key is not configured", weather.ErrUpstreamFetch)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, p.requestBuilder(p.forecastURL, coords))
	if err != nil {
		return weather.ForecastSeries{}, err
	}
	defer resp.Body.Close()

	var payload owmForecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.ForecastSeries{}, fmt.Errorf("%w: %w: %v", weather.ErrUpstreamFetch, errMalformedPayload, err)
	}
	if payload.List == nil {
		return weather.ForecastSeries{}, fmt.Errorf("%w: %w: missing list", weather.ErrUpstreamFetch, errMalformedPayload)
	}

	series := weather.ForecastSeries{
		Points: make([]weather.ForecastPoint, 0, len(*payload.List)),
	}
	if payload.City != nil {
		series.City = payload.City.Name
	}

	for _, item := range *payload.List {
		ts, err := forecastTimestamp(item)
		if err != nil {
			return weather.ForecastSeries{}, fmt.Errorf("%w: %w: %v", weather.ErrUpstreamFetch, errMalformedPayload, err)
		}
		cond := firstCondition(item.Weather)
		series.Points = append(series.Points, weather.ForecastPoint{
			Timestamp:    ts,
			Main:         cond.Main,
			Description:  cond.Description,
			Icon:         cond.Icon,
			TemperatureC: item.Main.Temp,
			FeelsLikeC:   item.Main.FeelsLike,
			HumidityPct:  item.Main.Humidity,
			WindSpeed:    item.Wind.Speed,
		})
	}

	return series, nil
}

// FetchCurrent retrieves current conditions for coords.
func (p *OpenWeatherProvider) FetchCurrent(ctx context.Context, coords weather.Coordinates) (weather.CurrentWeather, error) {
	if p.apiKey == "" {
		return weather.CurrentWeather{}, fmt.Errorf("%w: openweather api key is not configured", weather.ErrUpstreamFetch)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, p.requestBuilder(p.currentURL, coords))
	if err != nil {
		return weather.CurrentWeather{}, err
	}
	defer resp.Body.Close()

	var payload owmCurrentResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.CurrentWeather{}, fmt.Errorf("%w: %w: %v", weather.ErrUpstreamFetch, errMalformedPayload, err)
	}

	ts := time.Unix(payload.Dt, 0).UTC()
	if payload.Dt == 0 {
		ts = time.Now().UTC()
	}

	cond := firstCondition(payload.Weather)
	return weather.CurrentWeather{
		City:         payload.Name,
		Timestamp:    ts,
		Main:         cond.Main,
		Description:  cond.Description,
		Icon:         cond.Icon,
		TemperatureC: payload.Main.Temp,
		FeelsLikeC:   payload.Main.FeelsLike,
		HumidityPct:  payload.Main.Humidity,
		WindSpeed:    payload.Wind.Speed,
	}, nil
}

func (p *OpenWeatherProvider) requestBuilder(base string, coords weather.Coordinates) func() (*http.Request, error) {
	return func() (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", strconv.FormatFloat(coords.Lat, 'f', -1, 64))
		values.Set("lon", strconv.FormatFloat(coords.Lon, 'f', -1, 64))
		values.Set("appid", p.apiKey)
		if p.units != "" {
			values.Set("units", p.units)
		}

		return newGetRequest(base, values)
	}
}

// forecastTimestamp prefers the epoch dt and falls back to the UTC dt_txt string.
func forecastTimestamp(item owmForecastItem) (time.Time, error) {
	if item.Dt > 0 {
		return time.Unix(item.Dt, 0).UTC(), nil
	}
	if item.DtTxt == "" {
		return time.Time{}, errors.New("forecast entry has neither dt nor dt_txt")
	}
	return time.ParseInLocation(dtTxtLayout, item.DtTxt, time.UTC)
}

// firstCondition returns the primary condition; OpenWeather lists it first.
func firstCondition(items []owmCondition) owmCondition {
	if len(items) == 0 {
		return owmCondition{}
	}
	return items[0]
}
