// Package geocode resolves city names to coordinates for subscribers who do
// not supply them.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-alerts/internal/weather"
)

var (
	// ErrNoAPIKey is returned when the geocoder has no key configured.
	ErrNoAPIKey = errors.New("geocoder api key is not configured")
	// ErrNoResult is returned when the place could not be resolved.
	ErrNoResult = errors.New("no geocoding result")
)

// apiKeySlot admits one lookup at a time: the geocoder library reads its key
// from a package variable.
var apiKeySlot = make(chan struct{}, 1)

// GoogleGeocoder resolves places through the Google Maps geocoding API.
//
// The library issues its request without a deadline. A lookup that hangs keeps
// the slot until it returns; other callers wait only as long as their context
// allows and never start a lookup of their own meanwhile.
type GoogleGeocoder struct {
	apiKey string
	lookup func(geocoder.Address) (geocoder.Location, error)
	slot   chan struct{}
}

// NewGoogleGeocoder creates a GoogleGeocoder using apiKey.
func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	return &GoogleGeocoder{apiKey: apiKey, lookup: geocoder.Geocoding, slot: apiKeySlot}
}

// Resolve returns the coordinates for city (and optionally country).
func (g *GoogleGeocoder) Resolve(ctx context.Context, city, country string) (weather.Coordinates, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return weather.Coordinates{}, errors.New("city is required")
	}
	if g.apiKey == "" {
		return weather.Coordinates{}, ErrNoAPIKey
	}

	type result struct {
		loc geocoder.Location
		err error
	}
	select {
	case g.slot <- struct{}{}:
	case <-ctx.Done():
		return weather.Coordinates{}, ctx.Err()
	}

	done := make(chan result, 1)
	go func() {
		defer func() { <-g.slot }()
		geocoder.ApiKey = g.apiKey
		loc, err := g.lookup(geocoder.Address{City: city, Country: strings.TrimSpace(country)})
		done <- result{loc: loc, err: err}
	}()

	select {
	case <-ctx.Done():
		return weather.Coordinates{}, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return weather.Coordinates{}, fmt.Errorf("geocoding %q: %w", city, r.err)
		}
		if r.loc.Latitude == 0 && r.loc.Longitude == 0 {
			return weather.Coordinates{}, fmt.Errorf("geocoding %q: %w", city, ErrNoResult)
		}
		return weather.Coordinates{Lat: r.loc.Latitude, Lon: r.loc.Longitude}, nil
	}
}
