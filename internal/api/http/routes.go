package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-alerts/internal/notify"
	"github.com/i474232898/weather-alerts/internal/observability"
	"github.com/i474232898/weather-alerts/internal/subscription"
	"github.com/i474232898/weather-alerts/internal/weather"
)

// User-facing messages.
const (
	msgDuplicate     = "You have already subscribed to get notifications"
	msgNotFound      = "Email not found in our subscription list."
	msgUnsubscribed  = "You have successfully unsubscribed from getting weather notifications"
	msgSubscribedFmt = "You have successfully subscribed to get weather notification during %s forecast"
	msgUpstream      = "Weather provider is unavailable, please try again later"
	msgInternal      = "Internal server error"
)

// NotifyRunner triggers a notification batch.
type NotifyRunner interface {
	Run(ctx context.Context) notify.Result
}

// ViewService builds the forecast page for a location.
type ViewService interface {
	GetView(ctx context.Context, coords weather.Coordinates) (weather.ForecastView, error)
}

// Deps are the collaborators the HTTP handlers call into.
type Deps struct {
	Subscriptions *subscription.Service
	Notifier      NotifyRunner
	Weather       ViewService
	Metrics       *observability.Metrics
	Logger        *slog.Logger
}

type handlers struct {
	Deps
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	h := &handlers{Deps: deps}

	v1 := app.Group("/api/v1")

	v1.Post("/subscribe", h.subscribe)
	v1.Delete("/unsubscribe/:email", h.unsubscribe)
	v1.Get("/subscriptions/:email", h.getSubscription)
	v1.Get("/notify", h.notify)
	v1.Get("/weather", h.weather)
}

// ErrorHandler renders every error as {success:false, message}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := msgInternal

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}

	return c.Status(code).JSON(response{Success: false, Message: msg})
}

type response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// toHTTPError maps domain errors onto status codes and messages.
func (h *handlers) toHTTPError(err error) error {
	var verr *subscription.ValidationError
	switch {
	case errors.As(err, &verr):
		return fiber.NewError(fiber.StatusBadRequest, verr.Message)
	case errors.Is(err, subscription.ErrDuplicateEmail):
		return fiber.NewError(fiber.StatusConflict, msgDuplicate)
	case errors.Is(err, subscription.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, msgNotFound)
	case errors.Is(err, weather.ErrUpstreamFetch):
		return fiber.NewError(fiber.StatusBadGateway, msgUpstream)
	default:
		h.Logger.Error("request failed", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, msgInternal)
	}
}

func (h *handlers) countSubscription(action string, err error) {
	if h.Metrics == nil {
		return
	}
	outcome := "success"
	var verr *subscription.ValidationError
	switch {
	case err == nil:
	case errors.As(err, &verr):
		outcome = "invalid"
	case errors.Is(err, subscription.ErrDuplicateEmail):
		outcome = "duplicate"
	case errors.Is(err, subscription.ErrNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
	}
	h.Metrics.Subscriptions.WithLabelValues(action, outcome).Inc()
}

func subscribedMessage(cond string) string {
	return fmt.Sprintf(msgSubscribedFmt, cond)
}
