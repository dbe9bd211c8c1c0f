package timetrack

import (
	"sort"
	"time"

	"hourcal/internal/model"
)

// ActivityHours is one activity line inside a project.
type ActivityHours struct {
	Label string  `json:"label"`
	Hours float64 `json:"hours"`
}

// Totals is the result of one aggregation pass over an event set.
//
// Projects and Activities are keyed by the normalized project label. Labels
// holds the display casing of each project key and Order the keys in the
// order they were first seen. For both projects and activities the first
// casing encountered in input order is the one kept for display.
type Totals struct {
	Projects   map[string]float64         `json:"projects"`
	Activities map[string][]ActivityHours `json:"activities"`
	Labels     map[string]string          `json:"labels"`
	Order      []string                   `json:"order"`

	Hours   float64 `json:"hours"`
	Counted int     `json:"counted"`
	Skipped int     `json:"skipped"`
}

// NewTotals returns an empty, ready-to-fill Totals.
func NewTotals() Totals {
	return Totals{
		Projects:   make(map[string]float64),
		Activities: make(map[string][]ActivityHours),
		Labels:     make(map[string]string),
		Order:      []string{},
	}
}

// Aggregate folds events into per-project and per-activity hours. Events
// without a strictly positive duration are skipped entirely.
func Aggregate(events []model.CalendarEvent) Totals {
	t := NewTotals()
	for _, ev := range events {
		h, ok := Hours(ev.Start, ev.End)
		if !ok {
			t.Skipped++
			continue
		}
		t.Add(ParseTitle(ev.Title), h)
	}
	return t
}

// Add accumulates h hours for a parsed title.
func (t *Totals) Add(p ParsedTitle, h float64) {
	key := Key(p.Project)
	if _, seen := t.Labels[key]; !seen {
		t.Labels[key] = p.Project
		t.Order = append(t.Order, key)
	}
	t.Projects[key] += h
	t.Hours += h
	t.Counted++

	list := t.Activities[key]
	for i := range list {
		if SameLabel(list[i].Label, p.Activity) {
			list[i].Hours += h
			return
		}
	}
	t.Activities[key] = append(list, ActivityHours{Label: p.Activity, Hours: h})
}

// ProjectSummary is a display-ready row for a project.
type ProjectSummary struct {
	Key        string          `json:"key"`
	Label      string          `json:"label"`
	Hours      float64         `json:"hours"`
	Activities []ActivityHours `json:"activities"`
}

// Summaries returns projects sorted by hours (descending, then label), each
// with its activities sorted the same way.
func (t Totals) Summaries() []ProjectSummary {
	out := make([]ProjectSummary, 0, len(t.Order))
	for _, key := range t.Order {
		out = append(out, ProjectSummary{
			Key:        key,
			Label:      t.Labels[key],
			Hours:      t.Projects[key],
			Activities: t.SortedActivities(key),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Hours != out[j].Hours {
			return out[i].Hours > out[j].Hours
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// SortedActivities returns a copy of the activity list for a project key,
// sorted by hours descending.
func (t Totals) SortedActivities(key string) []ActivityHours {
	src := t.Activities[Key(key)]
	out := make([]ActivityHours, len(src))
	copy(out, src)
	sortActivities(out)
	return out
}

// ActivityTotals sums hours per activity across every project, sorted by
// hours descending.
func ActivityTotals(events []model.CalendarEvent) []ActivityHours {
	out := []ActivityHours{}
	index := make(map[string]int)
	for _, ev := range events {
		h, ok := Hours(ev.Start, ev.End)
		if !ok {
			continue
		}
		label := ParseTitle(ev.Title).Activity
		if i, found := index[Key(label)]; found {
			out[i].Hours += h
			continue
		}
		index[Key(label)] = len(out)
		out = append(out, ActivityHours{Label: label, Hours: h})
	}
	sortActivities(out)
	return out
}

// DayHours is the number of tracked hours starting on a calendar day.
type DayHours struct {
	Date  string  `json:"date"`
	Hours float64 `json:"hours"`
}

// DailyHours buckets counted hours by the local start day in loc, emitting
// one entry per day in [from, to] including empty days.
func DailyHours(events []model.CalendarEvent, from, to time.Time, loc *time.Location) []DayHours {
	if loc == nil {
		loc = time.Local
	}
	if to.Before(from) {
		return nil
	}

	buckets := make(map[string]float64)
	for _, ev := range events {
		h, ok := Hours(ev.Start, ev.End)
		if !ok {
			continue
		}
		buckets[ev.Start.In(loc).Format(time.DateOnly)] += h
	}

	start := startOfDay(from.In(loc))
	end := startOfDay(to.In(loc))
	out := make([]DayHours, 0)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := d.Format(time.DateOnly)
		out = append(out, DayHours{Date: key, Hours: buckets[key]})
	}
	return out
}

func sortActivities(list []ActivityHours) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Hours > list[j].Hours
	})
}
