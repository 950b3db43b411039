package weather

import (
	"context"
	"errors"
)

// ErrUpstreamFetch marks a failure to obtain usable data from a forecast provider:
// network errors, non-2xx responses and malformed payloads all wrap it.
var ErrUpstreamFetch = errors.New("upstream fetch failed")

// ForecastProvider abstracts a multi-point forecast source (e.g. OpenWeatherMap 5 day / 3 hour).
type ForecastProvider interface {
	Name() string
	FetchForecast(ctx context.Context, coords Coordinates) (ForecastSeries, error)
}

// CurrentProvider abstracts a source of current conditions.
type CurrentProvider interface {
	FetchCurrent(ctx context.Context, coords Coordinates) (CurrentWeather, error)
}

// ForecastCache is the contract the forecast cache must satisfy.
// Get returns (nil, nil) on a miss.
type ForecastCache interface {
	Get(ctx context.Context, coords Coordinates) (*ForecastSeries, error)
	Set(ctx context.Context, coords Coordinates, series *ForecastSeries) error
}
