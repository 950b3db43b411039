package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-alerts/internal/weather"
)

const forecastBody = `{
  "cod": "200",
  "list": [
    {"dt_txt": "2024-05-01 09:00:00", "weather": [{"main": "Clear", "description": "clear sky", "icon": "01d"}], "main": {"temp": 21.5, "feels_like": 21, "humidity": 60}, "wind": {"speed": 3.1}},
    {"dt_txt": "2024-05-01 12:00:00", "weather": [{"main": "Clouds", "description": "few clouds", "icon": "02d"}], "main": {"temp": 24, "humidity": 55}, "wind": {"speed": 4}},
    {"dt": 1714575600, "dt_txt": "2024-05-01 15:00:00", "weather": [{"main": "Thunderstorm", "description": "heavy thunderstorm", "icon": "11d"}], "main": {"temp": 19, "humidity": 90}, "wind": {"speed": 7.5}}
  ],
  "city": {"name": "Nairobi"}
}`

func newTestProvider(t *testing.T, handler http.HandlerFunc) *OpenWeatherProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewOpenWeatherProvider(srv.Client(), OpenWeatherConfig{
		APIKey:      "test-key",
		ForecastURL: srv.URL + "/forecast",
		CurrentURL:  srv.URL + "/weather",
		Units:       "metric",
	})
}

func TestFetchForecast_ParsesSeries(t *testing.T) {
	var gotQuery map[string]string
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forecast", r.URL.Path)
		q := r.URL.Query()
		gotQuery = map[string]string{
			"lat":   q.Get("lat"),
			"lon":   q.Get("lon"),
			"appid": q.Get("appid"),
			"units": q.Get("units"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(forecastBody))
	})

	series, err := p.FetchForecast(context.Background(), weather.Coordinates{Lat: -1.28, Lon: 36.82})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"lat": "-1.28", "lon": "36.82", "appid": "test-key", "units": "metric"}, gotQuery)
	assert.Equal(t, "Nairobi", series.City)
	require.Len(t, series.Points, 3)

	assert.Equal(t, "Clear", series.Points[0].Main)
	assert.Equal(t, time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), series.Points[0].Timestamp)
	assert.Equal(t, 21.5, series.Points[0].TemperatureC)

	third := series.Points[2]
	assert.Equal(t, "Thunderstorm", third.Main)
	assert.Equal(t, "heavy thunderstorm", third.Description)
	assert.Equal(t, time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC), third.Timestamp)
	assert.Equal(t, 7.5, third.WindSpeed)
}

func TestFetchForecast_EntryWithoutWeatherHasEmptyMain(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"list": [{"dt": 1714550400, "weather": [], "main": {"temp": 10}}]}`))
	})

	series, err := p.FetchForecast(context.Background(), weather.Coordinates{Lat: 1, Lon: 2})
	require.NoError(t, err)
	require.Len(t, series.Points, 1)
	assert.Empty(t, series.Points[0].Main)
	assert.Empty(t, series.City)
}

func TestFetchForecast_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non-2xx status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"cod":401,"message":"Invalid API key"}`, http.StatusUnauthorized)
			},
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"list": [`))
			},
		},
		{
			name: "missing list",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"cod": "200", "city": {"name": "Nowhere"}}`))
			},
		},
		{
			name: "unparseable timestamp",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"list": [{"dt_txt": "tomorrow", "weather": [{"main": "Rain"}]}]}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, tt.handler)

			_, err := p.FetchForecast(context.Background(), weather.Coordinates{Lat: 1, Lon: 2})
			require.Error(t, err)
			assert.ErrorIs(t, err, weather.ErrUpstreamFetch)
		})
	}
}

func TestFetchForecast_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	p := NewOpenWeatherProvider(&http.Client{Timeout: time.Second}, OpenWeatherConfig{APIKey: "k", ForecastURL: url})

	_, err := p.FetchForecast(context.Background(), weather.Coordinates{})
	require.Error(t, err)
	assert.ErrorIs(t, err, weather.ErrUpstreamFetch)
}

func TestFetchForecast_MissingAPIKey(t *testing.T) {
	p := NewOpenWeatherProvider(http.DefaultClient, OpenWeatherConfig{})

	_, err := p.FetchForecast(context.Background(), weather.Coordinates{})
	require.Error(t, err)
	assert.ErrorIs(t, err, weather.ErrUpstreamFetch)
}

func TestFetchForecast_NoRetriesByDefault(t *testing.T) {
	var calls atomic.Int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := p.FetchForecast(context.Background(), weather.Coordinates{})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchCurrent(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/weather", r.URL.Path)
		_, _ = w.Write([]byte(`{"dt": 1714550400, "name": "Mombasa", "weather": [{"main": "Rain", "description": "light rain", "icon": "10d"}], "main": {"temp": 27.2, "feels_like": 30.1, "humidity": 80}, "wind": {"speed": 5.2}}`))
	})

	cw, err := p.FetchCurrent(context.Background(), weather.Coordinates{Lat: -4.05, Lon: 39.66})
	require.NoError(t, err)

	assert.Equal(t, "Mombasa", cw.City)
	assert.Equal(t, "Rain", cw.Main)
	assert.Equal(t, "light rain", cw.Description)
	assert.Equal(t, 30.1, cw.FeelsLikeC)
	assert.Equal(t, time.Unix(1714550400, 0).UTC(), cw.Timestamp)
}

func TestFetchForecast_KeepsConfiguredQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/forecast", r.URL.Path)
		assert.Equal(t, "en", q.Get("lang"))
		assert.Equal(t, "-1.28", q.Get("lat"))
		assert.Equal(t, "test-key", q.Get("appid"))
		_, _ = w.Write([]byte(forecastBody))
	}))
	t.Cleanup(srv.Close)

	p := NewOpenWeatherProvider(srv.Client(), OpenWeatherConfig{
		APIKey:      "test-key",
		ForecastURL: srv.URL + "/forecast?lang=en",
	})

	series, err := p.FetchForecast(context.Background(), weather.Coordinates{Lat: -1.28, Lon: 36.82})
	require.NoError(t, err)
	assert.Len(t, series.Points, 3)
}
