package httpapi

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-alerts/internal/notify"
	"github.com/i474232898/weather-alerts/internal/subscription"
	"github.com/i474232898/weather-alerts/internal/weather"
)

type subscribeResponse struct {
	response
	Subscription subscription.Subscriber `json:"subscription"`
}

func (h *handlers) subscribe(c *fiber.Ctx) error {
	var req subscribeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	sub, err := h.Subscriptions.Subscribe(c.UserContext(), req.toInput())
	h.countSubscription("subscribe", err)
	if err != nil {
		return h.toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(subscribeResponse{
		response:     response{Success: true, Message: subscribedMessage(sub.WeatherCondition)},
		Subscription: sub,
	})
}

func (h *handlers) unsubscribe(c *fiber.Ctx) error {
	email, err := emailParam(c)
	if err != nil {
		return err
	}

	err = h.Subscriptions.Unsubscribe(c.UserContext(), email)
	h.countSubscription("unsubscribe", err)
	if err != nil {
		return h.toHTTPError(err)
	}

	return c.JSON(response{Success: true, Message: msgUnsubscribed})
}

func (h *handlers) getSubscription(c *fiber.Ctx) error {
	email, err := emailParam(c)
	if err != nil {
		return err
	}

	sub, err := h.Subscriptions.Get(c.UserContext(), email)
	if err != nil {
		return h.toHTTPError(err)
	}

	return c.JSON(subscribeResponse{
		response:     response{Success: true, Message: "Subscription found"},
		Subscription: sub,
	})
}

func (h *handlers) notify(c *fiber.Ctx) error {
	res := h.Notifier.Run(c.UserContext())

	status := fiber.StatusOK
	switch res.Message {
	case notify.MsgStoreFailure:
		status = fiber.StatusInternalServerError
	case notify.MsgRunInProgress:
		status = fiber.StatusConflict
	}
	return c.Status(status).JSON(res)
}

func (h *handlers) weather(c *fiber.Ctx) error {
	coords, err := parseCoordinatesQuery(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	view, err := h.Weather.GetView(c.UserContext(), coords)
	if err != nil {
		return h.toHTTPError(err)
	}
	return c.JSON(view)
}

func emailParam(c *fiber.Ctx) (string, error) {
	raw := c.Params("email")
	email, err := url.PathUnescape(raw)
	if err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, "Invalid email address")
	}
	return email, nil
}

func parseCoordinatesQuery(c *fiber.Ctx) (weather.Coordinates, error) {
	latStr := strings.TrimSpace(c.Query("lat"))
	lonStr := strings.TrimSpace(c.Query("lon"))
	if latStr == "" || lonStr == "" {
		return weather.Coordinates{}, errors.New("lat and lon query parameters are required")
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil || lat < -90 || lat > 90 {
		return weather.Coordinates{}, errors.New("lat must be a number between -90 and 90")
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil || lon < -180 || lon > 180 {
		return weather.Coordinates{}, errors.New("lon must be a number between -180 and 180")
	}
	return weather.Coordinates{Lat: lat, Lon: lon}, nil
}
