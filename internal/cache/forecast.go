// Package cache provides a Redis-backed forecast cache keyed by coordinates.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/i474232898/weather-alerts/internal/observability"
	"github.com/i474232898/weather-alerts/internal/weather"
)

const defaultTTL = 30 * time.Minute

// ForecastCache stores forecast series as JSON with a TTL.
type ForecastCache struct {
	client  *redis.Client
	ttl     time.Duration
	metrics *observability.Metrics
}

// NewForecastCache constructs a ForecastCache. A non-positive ttl means 30 minutes.
func NewForecastCache(client *redis.Client, ttl time.Duration, metrics *observability.Metrics) *ForecastCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &ForecastCache{client: client, ttl: ttl, metrics: metrics}
}

func key(coords weather.Coordinates) string {
	return "forecast:" + coords.Key()
}

// Get retrieves a cached series.
// Returns nil, nil on a cache miss (not an error).
func (c *ForecastCache) Get(ctx context.Context, coords weather.Coordinates) (*weather.ForecastSeries, error) {
	val, err := c.client.Get(ctx, key(coords)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.observe("miss")
			return nil, nil
		}
		c.observe("error")
		return nil, fmt.Errorf("cache get for %s: %w", coords.Key(), err)
	}

	var series weather.ForecastSeries
	if err := json.Unmarshal([]byte(val), &series); err != nil {
		c.observe("error")
		return nil, fmt.Errorf("unmarshaling cached forecast for %s: %w", coords.Key(), err)
	}

	c.observe("hit")
	return &series, nil
}

// Set stores series with the configured TTL.
func (c *ForecastCache) Set(ctx context.Context, coords weather.Coordinates, series *weather.ForecastSeries) error {
	if series == nil {
		return nil
	}

	b, err := json.Marshal(series)
	if err != nil {
		return fmt.Errorf("marshaling forecast for %s: %w", coords.Key(), err)
	}

	if err := c.client.Set(ctx, key(coords), b, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set for %s: %w", coords.Key(), err)
	}
	return nil
}

func (c *ForecastCache) observe(result string) {
	if c.metrics != nil {
		c.metrics.ForecastCacheLookup.WithLabelValues(result).Inc()
	}
}
