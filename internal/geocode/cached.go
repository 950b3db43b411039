package geocode

import (
	"context"
	"strings"
	"sync"

	"github.com/i474232898/weather-alerts/internal/subscription"
	"github.com/i474232898/weather-alerts/internal/weather"
)

// CachedGeocoder wraps a Geocoder with an in-memory cache of successful lookups.
type CachedGeocoder struct {
	inner subscription.Geocoder

	mu      sync.Mutex
	entries map[string]weather.Coordinates
}

// NewCachedGeocoder creates a cache decorator around a geocoder.
func NewCachedGeocoder(inner subscription.Geocoder) *CachedGeocoder {
	return &CachedGeocoder{
		inner:   inner,
		entries: make(map[string]weather.Coordinates),
	}
}

func (c *CachedGeocoder) Resolve(ctx context.Context, city, country string) (weather.Coordinates, error) {
	key := strings.ToLower(strings.TrimSpace(city)) + "|" + strings.ToLower(strings.TrimSpace(country))

	c.mu.Lock()
	coords, ok := c.entries[key]
	c.mu.Unlock()
	if ok {
		return coords, nil
	}

	coords, err := c.inner.Resolve(ctx, city, country)
	if err != nil {
		return coords, err
	}

	// Failures are not cached so they can be retried.
	c.mu.Lock()
	c.entries[key] = coords
	c.mu.Unlock()
	return coords, nil
}
