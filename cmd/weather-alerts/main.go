package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	httpapi "github.com/i474232898/weather-alerts/internal/api/http"
	"github.com/i474232898/weather-alerts/internal/cache"
	"github.com/i474232898/weather-alerts/internal/config"
	"github.com/i474232898/weather-alerts/internal/geocode"
	"github.com/i474232898/weather-alerts/internal/mail"
	"github.com/i474232898/weather-alerts/internal/notify"
	"github.com/i474232898/weather-alerts/internal/observability"
	"github.com/i474232898/weather-alerts/internal/scheduler"
	"github.com/i474232898/weather-alerts/internal/store"
	"github.com/i474232898/weather-alerts/internal/subscription"
	"github.com/i474232898/weather-alerts/internal/weather"
	"github.com/i474232898/weather-alerts/internal/weather/providers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("service stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		client, err := store.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
		redisClient = client
	}

	subscribers, closeStore, err := openStore(ctx, cfg, redisClient, log)
	if err != nil {
		return err
	}
	defer closeStore()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	owm := providers.NewOpenWeatherProvider(httpClient, providers.OpenWeatherConfig{
		APIKey:      cfg.OpenWeatherAPIKey,
		ForecastURL: cfg.ForecastAPIURL,
		CurrentURL:  cfg.CurrentWeatherAPIURL,
		Units:       cfg.WeatherUnits,
		MaxRetries:  cfg.FetchMaxRetries,
	})
	if cfg.OpenWeatherAPIKey == "" {
		log.Warn("OPENWEATHER_API_KEY is not set; every forecast fetch will fail")
	}

	var forecastCache weather.ForecastCache
	if redisClient != nil {
		forecastCache = cache.NewForecastCache(redisClient, cfg.ForecastCacheTTL, metrics)
	}
	current := weather.CurrentChain{owm}
	if cfg.WeatherAPIKey != "" {
		current = append(current, providers.NewWeatherAPIProvider(httpClient, cfg.WeatherAPIKey, cfg.WeatherAPIAPIURL))
	}
	if cfg.OpenMeteoAPIURL != "" {
		current = append(current, providers.NewOpenMeteoProvider(httpClient, cfg.OpenMeteoAPIURL))
	}
	weatherSvc := weather.NewService(owm, current, forecastCache, log)

	subOpts := []subscription.Option{subscription.WithLogger(log)}
	if cfg.GeocoderAPIKey != "" {
		subOpts = append(subOpts, subscription.WithGeocoder(geocode.NewCachedGeocoder(geocode.NewGoogleGeocoder(cfg.GeocoderAPIKey))))
	}
	subSvc := subscription.NewService(subscribers, subOpts...)

	sender, err := mail.NewSMTPSender(mail.Config{
		Enabled:      cfg.SMTPEnabled,
		SMTPHost:     cfg.SMTPHost,
		SMTPPort:     cfg.SMTPPort,
		SMTPUser:     cfg.SMTPUser,
		SMTPPassword: cfg.SMTPPassword,
		FromAddress:  cfg.SMTPFrom,
	}, log)
	if err != nil {
		return err
	}

	notifier := notify.NewNotifier(subscribers, owm, sender,
		notify.WithLocation(cfg.Location()),
		notify.WithMetrics(metrics),
		notify.WithLogger(log),
	)

	sched := scheduler.New(notifier, scheduler.Config{
		Cron:     cfg.NotifyCron,
		Interval: cfg.NotifyInterval,
		Location: cfg.Location(),
	}, log)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weather-alerts",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// Notify runs synchronously and may take a while.
		WriteTimeout: 5 * time.Minute,
		ErrorHandler: httpapi.ErrorHandler,
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-alerts",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	if cfg.RateLimitPerMinute > 0 {
		app.Use("/api", limiter.New(limiter.Config{
			Max:        cfg.RateLimitPerMinute,
			Expiration: time.Minute,
		}))
	}

	httpapi.RegisterRoutes(app, httpapi.Deps{
		Subscriptions: subSvc,
		Notifier:      notifier,
		Weather:       weatherSvc,
		Metrics:       metrics,
		Logger:        log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "port", cfg.Port, "store", cfg.StoreDriver)
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("fiber server stopped: %w", err)
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
	return nil
}

// openStore builds the subscriber store selected by STORE_DRIVER. The returned
// func releases its resources.
func openStore(ctx context.Context, cfg *config.AppConfig, redisClient *redis.Client, log *slog.Logger) (subscription.Store, func(), error) {
	switch cfg.StoreDriver {
	case "mongo":
		s := store.NewMongoStore(store.MongoConfig{
			URI:        cfg.MongoURI,
			Database:   cfg.MongoDatabase,
			Collection: cfg.MongoCollection,
		})
		// The connection is made on first use; a failed ping here is not fatal.
		if err := s.Ping(ctx); err != nil {
			log.Warn("mongo not reachable yet", "error", err)
		}
		return s, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.Close(closeCtx); err != nil {
				log.Error("closing mongo", "error", err)
			}
		}, nil

	case "redis":
		if redisClient == nil {
			return nil, nil, fmt.Errorf("redis store selected without REDIS_URL")
		}
		return store.NewRedisStore(redisClient), func() {}, nil

	case "postgres":
		pool, err := store.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		s := store.NewPostgresStore(pool)
		if err := s.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return s, pool.Close, nil

	default:
		log.Warn("using in-memory subscriber store; subscriptions are lost on restart")
		return store.NewMemoryStore(), func() {}, nil
	}
}
