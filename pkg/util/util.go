package util

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the YYYY-MM-DD layout used for range input.
const DateLayout = "2006-01-02"

// ErrEmptyTimestamp is returned by ParseTimestamp for blank input.
var ErrEmptyTimestamp = errors.New("empty timestamp")

// timestampLayouts are tried in order. Google returns full RFC 3339, but
// hand-written exports often drop the seconds ("2020-03-13T09:00-07:00").
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
}

// ParseTimestamp parses a timestamp-with-timezone as produced by calendar
// providers. Values without a zone offset are rejected.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrEmptyTimestamp
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// ParseDate parses a YYYY-MM-DD date as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

// Days converts a whole number of days into a duration.
func Days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

// DaySpan is the number of calendar days from the date of from to the date
// of to, as a duration. Each date is read in its own location, so a range
// across a DST change still spans whole days.
func DaySpan(from, to time.Time) time.Duration {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return b.Sub(a)
}

// FormatHours renders a duration as fractional hours with two decimals.
func FormatHours(d time.Duration) string {
	return fmt.Sprintf("%.2f", d.Hours())
}

// FormatDuration renders a duration rounded to the minute, e.g. "1h30m".
func FormatDuration(d time.Duration) string {
	neg := d < 0
	if neg {
		d = -d
	}
	d = d.Round(time.Minute)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute

	var out string
	switch {
	case h > 0 && m > 0:
		out = fmt.Sprintf("%dh%02dm", h, m)
	case h > 0:
		out = fmt.Sprintf("%dh", h)
	default:
		out = fmt.Sprintf("%dm", m)
	}
	if neg {
		return "-" + out
	}
	return out
}
