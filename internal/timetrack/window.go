package timetrack

import (
	"fmt"
	"strings"
	"time"
)

// Range is a named reporting period relative to "now".
type Range int

const (
	RangeDay Range = iota
	RangeWeek
	RangeMonth
	RangeYear
	RangeAll
)

func (r Range) String() string {
	switch r {
	case RangeDay:
		return "day"
	case RangeWeek:
		return "week"
	case RangeMonth:
		return "month"
	case RangeYear:
		return "year"
	case RangeAll:
		return "all"
	default:
		return "unknown"
	}
}

// ParseRange accepts day|today, week, month, year, all.
func ParseRange(s string) (Range, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "day", "today":
		return RangeDay, nil
	case "week":
		return RangeWeek, nil
	case "month":
		return RangeMonth, nil
	case "year":
		return RangeYear, nil
	case "all", "":
		return RangeAll, nil
	default:
		return RangeAll, fmt.Errorf("unknown range %q", s)
	}
}

// ResolveWindow turns a Range into concrete inclusive bounds in now's
// location. Weeks begin on weekStart and span seven days. RangeAll resolves
// to the zero Window.
func ResolveWindow(r Range, now time.Time, weekStart time.Weekday) Window {
	day := startOfDay(now)
	switch r {
	case RangeDay:
		return Window{Start: day, End: endOf(day.AddDate(0, 0, 1))}
	case RangeWeek:
		offset := (int(day.Weekday()) - int(weekStart) + 7) % 7
		start := day.AddDate(0, 0, -offset)
		return Window{Start: start, End: endOf(start.AddDate(0, 0, 7))}
	case RangeMonth:
		start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
		return Window{Start: start, End: endOf(start.AddDate(0, 1, 0))}
	case RangeYear:
		start := time.Date(day.Year(), time.January, 1, 0, 0, 0, 0, day.Location())
		return Window{Start: start, End: endOf(start.AddDate(1, 0, 0))}
	default:
		return Window{}
	}
}

// ParseWeekday accepts "monday" or "sunday" (the two supported week starts);
// anything else yields Monday.
func ParseWeekday(s string) time.Weekday {
	if strings.EqualFold(strings.TrimSpace(s), "sunday") {
		return time.Sunday
	}
	return time.Monday
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// endOf returns the last representable instant before next.
func endOf(next time.Time) time.Time {
	return next.Add(-time.Nanosecond)
}
