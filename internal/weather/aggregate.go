package weather

import "time"

// hourlyPoints is how many upcoming forecast steps the view shows after the current one.
const hourlyPoints = 6

// DailySummary condenses one calendar day (UTC) of forecast points.
type DailySummary struct {
	Date         time.Time `json:"date"` // midnight UTC
	Main         string    `json:"main"`
	Description  string    `json:"description"`
	Icon         string    `json:"icon,omitempty"`
	TemperatureC float64   `json:"temperatureC"`
	MinTempC     float64   `json:"minTemperatureC"`
	MaxTempC     float64   `json:"maxTemperatureC"`
	HumidityPct  float64   `json:"humidityPercent"`
	WindSpeed    float64   `json:"windSpeed"`
}

// ForecastView is what the weather page renders for a location.
type ForecastView struct {
	City    string          `json:"city,omitempty"`
	Current *CurrentWeather `json:"current,omitempty"`
	Hourly  []ForecastPoint `json:"hourly"`
	Daily   []DailySummary  `json:"daily"`
}

// BuildView assembles the page view from a forecast series. When current is nil,
// the first forecast point stands in for current conditions.
func BuildView(series ForecastSeries, current *CurrentWeather) ForecastView {
	view := ForecastView{
		City:    series.City,
		Current: current,
		Hourly:  []ForecastPoint{},
		Daily:   AggregateDaily(series.Points),
	}

	if view.Current == nil && len(series.Points) > 0 {
		first := series.Points[0]
		view.Current = &CurrentWeather{
			City:         series.City,
			Timestamp:    first.Timestamp,
			Main:         first.Main,
			Description:  first.Description,
			Icon:         first.Icon,
			TemperatureC: first.TemperatureC,
			FeelsLikeC:   first.FeelsLikeC,
			HumidityPct:  first.HumidityPct,
			WindSpeed:    first.WindSpeed,
		}
	}
	if view.City == "" && view.Current != nil {
		view.City = view.Current.City
	}

	if len(series.Points) > 1 {
		end := min(1+hourlyPoints, len(series.Points))
		view.Hourly = append(view.Hourly, series.Points[1:end]...)
	}

	return view
}

// AggregateDaily combines forecast points into one summary per UTC day.
// Numeric fields are averaged; the condition is chosen by majority, the
// earliest-seen condition winning ties.
func AggregateDaily(points []ForecastPoint) []DailySummary {
	type bucket struct {
		date       time.Time
		points     []ForecastPoint
		counts     map[string]int
		firstOrder []string
	}

	var (
		buckets []*bucket
		byDay   = make(map[string]*bucket)
	)

	for _, p := range points {
		ts := p.Timestamp.UTC()
		k := ts.Format("2006-01-02")
		b, ok := byDay[k]
		if !ok {
			b = &bucket{
				date:   time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC),
				counts: make(map[string]int),
			}
			byDay[k] = b
			buckets = append(buckets, b)
		}
		b.points = append(b.points, p)
		if _, seen := b.counts[p.Main]; !seen {
			b.firstOrder = append(b.firstOrder, p.Main)
		}
		b.counts[p.Main]++
	}

	summaries := make([]DailySummary, 0, len(buckets))
	for _, b := range buckets {
		var (
			sumTemp     float64
			sumHumidity float64
			sumWind     float64
			minTemp     = b.points[0].TemperatureC
			maxTemp     = b.points[0].TemperatureC
		)
		for _, p := range b.points {
			sumTemp += p.TemperatureC
			sumHumidity += p.HumidityPct
			sumWind += p.WindSpeed
			minTemp = min(minTemp, p.TemperatureC)
			maxTemp = max(maxTemp, p.TemperatureC)
		}

		bestMain := ""
		bestCount := 0
		for _, m := range b.firstOrder {
			if b.counts[m] > bestCount {
				bestCount = b.counts[m]
				bestMain = m
			}
		}

		// Description and icon come from the first point carrying the winning condition.
		var rep ForecastPoint
		for _, p := range b.points {
			if p.Main == bestMain {
				rep = p
				break
			}
		}

		n := float64(len(b.points))
		summaries = append(summaries, DailySummary{
			Date:         b.date,
			Main:         bestMain,
			Description:  rep.Description,
			Icon:         rep.Icon,
			TemperatureC: sumTemp / n,
			MinTempC:     minTemp,
			MaxTempC:     maxTemp,
			HumidityPct:  sumHumidity / n,
			WindSpeed:    sumWind / n,
		})
	}

	return summaries
}
