package domain

import (
	"fmt"
	"time"
)

// DayLayout is the calendar-day key used to scope document list queries.
const DayLayout = "2006-01-02"

// DayOf returns the calendar-day key of t in t's own location.
// Callers pass local time so the key matches the user's day.
func DayOf(t time.Time) string {
	return t.Format(DayLayout)
}

// ParseDay validates a calendar-day key and returns midnight of that day in loc.
// Parameters:
//   - key: day in YYYY-MM-DD form.
//   - loc: location of the returned time; nil means time.Local.
// Returns:
//   - time.Time: start of the day.
//   - error: non-nil if key is not a valid day.
func ParseDay(key string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DayLayout, key, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q: %w", key, err)
	}
	return t, nil
}
