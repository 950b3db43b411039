package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jonboulle/clockwork"

	"github.com/i474232898/weather-alerts/internal/weather"
)

// ValidationError reports invalid subscribe or unsubscribe input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var validate = validator.New()

// SubscribeInput is the data a user submits to subscribe.
type SubscribeInput struct {
	Email   string   `validate:"required,email"`
	Weather string   `validate:"required"`
	Lat     *float64 `validate:"omitempty,gte=-90,lte=90"`
	Lon     *float64 `validate:"omitempty,gte=-180,lte=180"`
	City    string
	Country string
}

// Service implements subscribe and unsubscribe on top of a Store.
type Service struct {
	store    Store
	geocoder Geocoder
	clock    clockwork.Clock
	logger   *slog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithGeocoder enables resolving coordinates from a city name when a
// subscriber does not provide them.
func WithGeocoder(g Geocoder) Option {
	return func(s *Service) { s.geocoder = g }
}

// WithClock overrides the time source used for CreatedAt.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a new Service.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		clock:  clockwork.NewRealClock(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NormalizeEmail trims and lowercases an email so lookups are stable.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Subscribe validates the input and persists a new subscription. An email that
// is already subscribed yields ErrDuplicateEmail and the existing record is left
// as it was.
func (s *Service) Subscribe(ctx context.Context, in SubscribeInput) (Subscriber, error) {
	in.Email = NormalizeEmail(in.Email)
	in.Weather = strings.TrimSpace(in.Weather)
	in.City = strings.TrimSpace(in.City)
	in.Country = strings.TrimSpace(in.Country)

	if err := validate.Struct(in); err != nil {
		return Subscriber{}, toValidationError(err)
	}

	cond, ok := weather.ParseCondition(in.Weather)
	if !ok {
		return Subscriber{}, &ValidationError{
			Field:   "weather",
			Message: fmt.Sprintf("Unsupported weather condition %q", in.Weather),
		}
	}

	if (in.Lat == nil) != (in.Lon == nil) {
		return Subscriber{}, &ValidationError{
			Field:   "lat",
			Message: "Latitude and longitude must be provided together",
		}
	}

	_, err := s.store.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return Subscriber{}, ErrDuplicateEmail
	case !errors.Is(err, ErrNotFound):
		return Subscriber{}, fmt.Errorf("checking existing subscription: %w", err)
	}

	sub := Subscriber{
		Email:            in.Email,
		WeatherCondition: string(cond),
		Latitude:         in.Lat,
		Longitude:        in.Lon,
		City:             in.City,
		CreatedAt:        s.clock.Now().UTC(),
	}

	if in.Lat == nil && in.City != "" && s.geocoder != nil {
		coords, err := s.geocoder.Resolve(ctx, in.City, in.Country)
		if err != nil {
			// Without coordinates the subscriber is skipped at notify time, not rejected.
			s.logger.Warn("geocoding failed", "city", in.City, "country", in.Country, "error", err)
		} else {
			sub.Latitude = &coords.Lat
			sub.Longitude = &coords.Lon
		}
	}

	if err := s.store.Create(ctx, sub); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return Subscriber{}, ErrDuplicateEmail
		}
		return Subscriber{}, fmt.Errorf("creating subscription: %w", err)
	}

	s.logger.Info("subscription created", "email", sub.Email, "weather", sub.WeatherCondition)
	return sub, nil
}

// Unsubscribe removes the subscription for email. Unknown emails yield
// ErrNotFound and leave the store unchanged.
func (s *Service) Unsubscribe(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return &ValidationError{Field: "email", Message: "Email is required"}
	}

	if _, err := s.store.DeleteByEmail(ctx, email); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("deleting subscription: %w", err)
	}

	s.logger.Info("subscription removed", "email", email)
	return nil
}

// Get returns the subscription for email.
func (s *Service) Get(ctx context.Context, email string) (Subscriber, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return Subscriber{}, &ValidationError{Field: "email", Message: "Email is required"}
	}
	return s.store.FindByEmail(ctx, email)
}

// toValidationError maps the first validator failure to a user-facing message.
func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Message: err.Error()}
	}

	fe := verrs[0]
	switch fe.Field() {
	case "Email":
		if fe.Tag() == "required" {
			return &ValidationError{Field: "email", Message: "Email is required"}
		}
		return &ValidationError{Field: "email", Message: "Invalid email address"}
	case "Weather":
		return &ValidationError{Field: "weather", Message: "Weather is required"}
	case "Lat":
		return &ValidationError{Field: "lat", Message: "Latitude must be between -90 and 90"}
	case "Lon":
		return &ValidationError{Field: "lon", Message: "Longitude must be between -180 and 180"}
	default:
		return &ValidationError{Field: strings.ToLower(fe.Field()), Message: fe.Error()}
	}
}
