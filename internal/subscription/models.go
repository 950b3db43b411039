// Package subscription manages weather alert subscriptions: who wants to be
// told about which condition, and where.
package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/i474232898/weather-alerts/internal/weather"
)

var (
	// ErrNotFound is returned when no subscription exists for an email.
	ErrNotFound = errors.New("subscription not found")
	// ErrDuplicateEmail is returned when creating a subscription for an email that already has one.
	ErrDuplicateEmail = errors.New("email already subscribed")
	// ErrUnavailable wraps failures of the persistence layer itself.
	ErrUnavailable = errors.New("subscriber store unavailable")
)

// Subscriber is a persisted subscription. Email is unique; records are
// created and deleted but never updated in place.
type Subscriber struct {
	Email            string    `json:"email"`
	WeatherCondition string    `json:"weather"`
	Latitude         *float64  `json:"lat,omitempty"`
	Longitude        *float64  `json:"lon,omitempty"`
	City             string    `json:"city,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Coordinates returns the subscriber's location, or false when either
// coordinate is missing.
func (s Subscriber) Coordinates() (weather.Coordinates, bool) {
	if s.Latitude == nil || s.Longitude == nil {
		return weather.Coordinates{}, false
	}
	return weather.Coordinates{Lat: *s.Latitude, Lon: *s.Longitude}, true
}

// Store is the contract every subscriber store must satisfy.
//
// ListAll returns subscribers in the store's natural listing order.
// FindByEmail and DeleteByEmail return ErrNotFound for unknown emails.
// Create returns ErrDuplicateEmail without touching the existing record.
// Any other error wraps ErrUnavailable.
type Store interface {
	ListAll(ctx context.Context) ([]Subscriber, error)
	FindByEmail(ctx context.Context, email string) (Subscriber, error)
	Create(ctx context.Context, sub Subscriber) error
	DeleteByEmail(ctx context.Context, email string) (Subscriber, error)
}

// Geocoder resolves a place name to coordinates.
type Geocoder interface {
	Resolve(ctx context.Context, city, country string) (weather.Coordinates, error)
}
