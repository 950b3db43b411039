// Package config loads service settings from the environment.
//
// Loading order: a .env file in the working directory (optional, never
// overrides variables already set), then envconfig struct tags with their
// defaults, then validator rules.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ErrorType classifies configuration failures.
type ErrorType string

const (
	ErrParsing    ErrorType = "parsing"
	ErrValidation ErrorType = "validation"
)

// Error is returned by Load.
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type AppConfig struct {
	Port            string        `envconfig:"PORT" default:"8080" validate:"required"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"json" validate:"oneof=json text"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	// Forecast provider.
	OpenWeatherAPIKey    string        `envconfig:"OPENWEATHER_API_KEY"`
	ForecastAPIURL       string        `envconfig:"FORECAST_API_URL" default:"https://api.openweathermap.org/data/2.5/forecast" validate:"required,url"`
	CurrentWeatherAPIURL string        `envconfig:"CURRENT_WEATHER_API_URL" default:"https://api.openweathermap.org/data/2.5/weather" validate:"required,url"`
	WeatherUnits         string        `envconfig:"WEATHER_UNITS" default:"metric" validate:"oneof=standard metric imperial"`
	HTTPTimeout          time.Duration `envconfig:"HTTP_TIMEOUT" default:"10s" validate:"gt=0"`
	FetchMaxRetries      int           `envconfig:"FETCH_MAX_RETRIES" default:"0" validate:"gte=0,lte=5"`

	// Fallback current-conditions providers. An empty value disables one.
	OpenMeteoAPIURL  string `envconfig:"OPENMETEO_API_URL" default:"https://api.open-meteo.com/v1/forecast" validate:"omitempty,url"`
	WeatherAPIKey    string `envconfig:"WEATHERAPI_API_KEY"`
	WeatherAPIAPIURL string `envconfig:"WEATHERAPI_API_URL" default:"https://api.weatherapi.com/v1/current.json" validate:"omitempty,url"`

	// Subscriber store.
	StoreDriver     string `envconfig:"STORE_DRIVER" default:"memory" validate:"oneof=memory mongo redis postgres"`
	MongoURI        string `envconfig:"MONGO_URI" validate:"required_if=StoreDriver mongo"`
	MongoDatabase   string `envconfig:"MONGO_DATABASE" default:"weather_app"`
	MongoCollection string `envconfig:"MONGO_COLLECTION" default:"users"`
	RedisURL        string `envconfig:"REDIS_URL" validate:"required_if=StoreDriver redis"`
	DatabaseURL     string `envconfig:"DATABASE_URL" validate:"required_if=StoreDriver postgres"`

	// Forecast cache; only used when REDIS_URL is set.
	ForecastCacheTTL time.Duration `envconfig:"FORECAST_CACHE_TTL" default:"30m"`

	// Outbound mail.
	SMTPEnabled  bool   `envconfig:"SMTP_ENABLED" default:"false"`
	SMTPHost     string `envconfig:"SMTP_HOST" validate:"required_if=SMTPEnabled true"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587" validate:"gt=0,lte=65535"`
	SMTPUser     string `envconfig:"SMTP_USER"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom     string `envconfig:"SMTP_FROM" validate:"required_if=SMTPEnabled true"`

	// Notification schedule. NOTIFY_CRON wins over NOTIFY_INTERVAL; with
	// neither set runs only happen through the HTTP trigger.
	NotifyCron     string        `envconfig:"NOTIFY_CRON"`
	NotifyInterval time.Duration `envconfig:"NOTIFY_INTERVAL" default:"3h" validate:"gte=0"`
	NotifyTimezone string        `envconfig:"NOTIFY_TIMEZONE"`

	GeocoderAPIKey     string `envconfig:"GEOCODER_API_KEY"`
	RateLimitPerMinute int    `envconfig:"RATE_LIMIT_PER_MINUTE" default:"60" validate:"gte=0"`

	location *time.Location
}

// Load reads configuration from the environment.
func Load() (*AppConfig, error) {
	_ = godotenv.Load()

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &Error{Type: ErrParsing, Message: "failed to process environment configuration", Err: err}
	}

	// Older deployments used WEATHER_API_KEY.
	if cfg.OpenWeatherAPIKey == "" {
		cfg.OpenWeatherAPIKey = os.Getenv("WEATHER_API_KEY")
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, &Error{Type: ErrValidation, Message: "configuration validation failed", Err: err}
	}

	cfg.location = time.Local
	if cfg.NotifyTimezone != "" {
		loc, err := time.LoadLocation(cfg.NotifyTimezone)
		if err != nil {
			return nil, &Error{Type: ErrValidation, Message: "invalid NOTIFY_TIMEZONE", Err: err}
		}
		cfg.location = loc
	}

	return &cfg, nil
}

// Location is the zone forecast times are rendered in: NOTIFY_TIMEZONE when
// set, otherwise the process's local zone.
func (c *AppConfig) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}
