package weather

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Service serves forecast lookups for the weather page, consulting an optional
// cache before the provider.
type Service struct {
	forecasts ForecastProvider
	current   CurrentProvider
	cache     ForecastCache
	logger    *slog.Logger
}

// NewService creates a new Service. current and cache may be nil.
func NewService(forecasts ForecastProvider, current CurrentProvider, cache ForecastCache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		forecasts: forecasts,
		current:   current,
		cache:     cache,
		logger:    logger,
	}
}

// GetForecast returns the forecast series for coords, from cache when available.
// Cache failures are logged and never fail the lookup.
func (s *Service) GetForecast(ctx context.Context, coords Coordinates) (ForecastSeries, error) {
	if s.forecasts == nil {
		return ForecastSeries{}, fmt.Errorf("no forecast provider configured")
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, coords)
		if err != nil {
			s.logger.Warn("forecast cache read failed", "location", coords.Key(), "error", err)
		} else if cached != nil {
			return *cached, nil
		}
	}

	series, err := s.forecasts.FetchForecast(ctx, coords)
	if err != nil {
		return ForecastSeries{}, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, coords, &series); err != nil {
			s.logger.Warn("forecast cache write failed", "location", coords.Key(), "error", err)
		}
	}
	return series, nil
}

// GetView fetches the forecast and current conditions concurrently and builds
// the page view. A failed current-conditions lookup is not fatal; the first
// forecast point is used instead.
func (s *Service) GetView(ctx context.Context, coords Coordinates) (ForecastView, error) {
	g, gCtx := errgroup.WithContext(ctx)

	var (
		series  ForecastSeries
		current *CurrentWeather
	)

	g.Go(func() error {
		fs, err := s.GetForecast(gCtx, coords)
		if err != nil {
			return err
		}
		series = fs
		return nil
	})

	if s.current != nil {
		g.Go(func() error {
			cw, err := s.current.FetchCurrent(gCtx, coords)
			if err != nil {
				s.logger.Warn("current weather fetch failed", "location", coords.Key(), "error", err)
				return nil
			}
			current = &cw
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return ForecastView{}, fmt.Errorf("building forecast view for %s: %w", coords.Key(), err)
	}

	return BuildView(series, current), nil
}
