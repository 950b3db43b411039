package httpapi

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/i474232898/weather-alerts/internal/subscription"
)

// subscribeRequest is the subscribe body. lat and lon may arrive as numbers
// or numeric strings.
type subscribeRequest struct {
	Email   string        `json:"email"`
	Weather string        `json:"weather"`
	Lat     optionalFloat `json:"lat"`
	Lon     optionalFloat `json:"lon"`
	City    string        `json:"city"`
	Country string        `json:"country"`
}

func (r subscribeRequest) toInput() subscription.SubscribeInput {
	return subscription.SubscribeInput{
		Email:   r.Email,
		Weather: r.Weather,
		Lat:     r.Lat.ptr(),
		Lon:     r.Lon.ptr(),
		City:    r.City,
		Country: r.Country,
	}
}

// optionalFloat accepts a JSON number, a numeric string, "" or null.
type optionalFloat struct {
	value float64
	valid bool
}

func (f *optionalFloat) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = optionalFloat{}
		return nil
	}
	s = strings.TrimSpace(strings.Trim(s, `"`))
	if s == "" {
		*f = optionalFloat{}
		return nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid coordinate %s", string(b))
	}
	*f = optionalFloat{value: v, valid: true}
	return nil
}

func (f optionalFloat) ptr() *float64 {
	if !f.valid {
		return nil
	}
	v := f.value
	return &v
}
