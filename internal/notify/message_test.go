package notify_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/i474232898/weather-alerts/internal/notify"
	"github.com/i474232898/weather-alerts/internal/subscription"
	"github.com/i474232898/weather-alerts/internal/weather"
)

func TestBuildMessage(t *testing.T) {
	sub := subscription.Subscriber{Email: "a@x.com", WeatherCondition: "Rain"}
	match := weather.ForecastPoint{
		Timestamp:   time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC),
		Main:        "Rain",
		Description: "moderate rain",
	}

	msg := notify.BuildMessage(sub, match, "", time.UTC)

	assert.Equal(t, "a@x.com", msg.To)
	assert.Equal(t, "Weather Notification Alert", msg.Subject)
	assert.Equal(t,
		"Hello, \n\nThis is to inform you that the weather forecast predicts moderate rain (Rain) on "+
			"Wednesday, May 1, 2024 3:00 PM UTC at your location.\n\nStay prepared! \n\n"+
			"Best Regards,\nYour Weather Alert Team",
		msg.Body,
	)
}
