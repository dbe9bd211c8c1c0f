package timetrack

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Hours returns the elapsed hours between start and end. The second return
// value is false when either bound is missing or the span is not strictly
// positive; such events must not be counted at all.
func Hours(start, end time.Time) (float64, bool) {
	if start.IsZero() || end.IsZero() {
		return 0, false
	}
	if !end.After(start) {
		return 0, false
	}
	return end.Sub(start).Hours(), true
}

// ParseTimestamp parses an RFC 3339 timestamp (fractional seconds optional).
// Anything else is treated as absent.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseHours is Hours over two raw timestamps.
func ParseHours(start, end string) (float64, bool) {
	s, ok := ParseTimestamp(start)
	if !ok {
		return 0, false
	}
	e, ok := ParseTimestamp(end)
	if !ok {
		return 0, false
	}
	return Hours(s, e)
}

// FormatHours renders hours for display, e.g. "1h 30m", "45m", "2h".
func FormatHours(h float64) string {
	if h <= 0 || math.IsNaN(h) {
		return "0m"
	}
	total := int(math.Round(h * 60))
	hours, minutes := total/60, total%60
	switch {
	case hours == 0:
		return fmt.Sprintf("%dm", minutes)
	case minutes == 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
}
