package weather

import (
	"strings"
	"time"
)

// FirstMatch scans points in order and returns the first one whose Main
// category equals target, ignoring case. Later matches are never considered.
func FirstMatch(points []ForecastPoint, target string) (ForecastPoint, bool) {
	target = strings.TrimSpace(target)
	if target == "" {
		return ForecastPoint{}, false
	}
	for _, p := range points {
		if strings.EqualFold(p.Main, target) {
			return p, true
		}
	}
	return ForecastPoint{}, false
}

// LocalLayout is the layout used to render forecast times in notifications.
const LocalLayout = "Monday, January 2, 2006 3:04 PM MST"

// FormatLocal renders a UTC forecast timestamp in loc. A nil loc means the
// process's local zone, not the recipient's.
func FormatLocal(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(LocalLayout)
}
