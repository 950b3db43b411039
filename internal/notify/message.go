package notify

import (
	"fmt"
	"time"

	"github.com/i474232898/weather-alerts/internal/mail"
	"github.com/i474232898/weather-alerts/internal/subscription"
	"github.com/i474232898/weather-alerts/internal/weather"
)

// Subject is the subject line of every alert email.
const Subject = "Weather Notification Alert"

const bodyTemplate = "Hello, \n\n" +
	"This is to inform you that the weather forecast predicts %s (%s) on %s %s.\n\n" +
	"Stay prepared! \n\n" +
	"Best Regards,\nYour Weather Alert Team"

// BuildMessage renders the alert for sub about the matched forecast point.
// The forecast time is shown in loc.
func BuildMessage(sub subscription.Subscriber, match weather.ForecastPoint, city string, loc *time.Location) mail.Message {
	where := "at your location"
	if city != "" {
		where = "in " + city
	}

	return mail.Message{
		To:      sub.Email,
		Subject: Subject,
		Body: fmt.Sprintf(bodyTemplate,
			match.Description,
			sub.WeatherCondition,
			weather.FormatLocal(match.Timestamp, loc),
			where,
		),
	}
}
