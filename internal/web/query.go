package web

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"hourcal/internal/config"
	"hourcal/internal/timetrack"
)

// query is a parsed dashboard request.
//
//	q           free-text search over title and notes
//	range       day | week | month | year | all (config default when absent)
//	from, to    YYYY-MM-DD or RFC 3339; either one overrides range
//	project     single project label, "All" disables
//	activity    single activity label, "All" disables
//	projects    comma-separated multi-select, wins over project
//	activities  comma-separated multi-select, wins over activity
type query struct {
	Range  timetrack.Range
	Filter timetrack.Filter
}

func parseQuery(v url.Values, cfg *config.Config, now time.Time) (query, error) {
	loc := cfg.Location()
	q := query{Range: cfg.Range()}

	if raw := v.Get("range"); raw != "" {
		r, err := timetrack.ParseRange(raw)
		if err != nil {
			return query{}, err
		}
		q.Range = r
	}

	f := timetrack.Filter{
		Search:     strings.TrimSpace(v.Get("q")),
		Project:    strings.TrimSpace(v.Get("project")),
		Activity:   strings.TrimSpace(v.Get("activity")),
		Projects:   splitList(v.Get("projects")),
		Activities: splitList(v.Get("activities")),
	}

	from, err := parseBound(v.Get("from"), loc, false)
	if err != nil {
		return query{}, fmt.Errorf("invalid from: %w", err)
	}
	to, err := parseBound(v.Get("to"), loc, true)
	if err != nil {
		return query{}, fmt.Errorf("invalid to: %w", err)
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return query{}, fmt.Errorf("to is before from")
	}

	if from.IsZero() && to.IsZero() {
		f.Window = timetrack.ResolveWindow(q.Range, now.In(loc), cfg.Weekday())
	} else {
		f.Window = timetrack.Window{Start: from, End: to}
	}
	q.Filter = f
	return q, nil
}

// cacheKey identifies the request independent of parameter order. The
// resolved window is part of the key so day boundaries invalidate entries.
func (q query) cacheKey() string {
	f := q.Filter
	return strings.Join([]string{
		q.Range.String(),
		f.Search,
		f.Project,
		f.Activity,
		strings.Join(f.Projects, ","),
		strings.Join(f.Activities, ","),
		f.Window.Start.Format(time.RFC3339Nano),
		f.Window.End.Format(time.RFC3339Nano),
	}, "\x1f")
}

// parseBound accepts a date or an RFC 3339 timestamp. A date used as an
// upper bound covers the whole day.
func parseBound(raw string, loc *time.Location, upper bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, raw, loc); err == nil {
		if upper {
			return t.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
		}
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
