package timetrack

import (
	"strings"
	"time"

	"hourcal/internal/model"
)

// All is the sentinel single-value project/activity filter meaning "no
// filtering". An empty value behaves the same way.
const All = "All"

// Window is an inclusive [Start, End] range applied to event start times.
// The zero Window disables date filtering.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// IsZero reports whether the window is disabled.
func (w Window) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// Contains reports whether t falls inside the window. An open side (zero
// bound) does not constrain.
func (w Window) Contains(t time.Time) bool {
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && t.After(w.End) {
		return false
	}
	return true
}

// Filter narrows an event collection. All active dimensions must match.
type Filter struct {
	Search string `json:"search,omitempty"`
	Window Window `json:"window"`

	Project  string `json:"project,omitempty"`
	Activity string `json:"activity,omitempty"`

	// Projects / Activities take precedence over the single-value fields
	// when non-empty.
	Projects   []string `json:"projects,omitempty"`
	Activities []string `json:"activities,omitempty"`
}

// Apply returns the events matching f, in input order. The input slice is
// not modified.
func Apply(events []model.CalendarEvent, f Filter) []model.CalendarEvent {
	out := make([]model.CalendarEvent, 0, len(events))
	term := strings.ToLower(f.Search)
	for _, ev := range events {
		if f.match(ev, term) {
			out = append(out, ev)
		}
	}
	return out
}

// Match reports whether a single event passes f.
func (f Filter) Match(ev model.CalendarEvent) bool {
	return f.match(ev, strings.ToLower(f.Search))
}

func (f Filter) match(ev model.CalendarEvent, term string) bool {
	if term != "" &&
		!strings.Contains(strings.ToLower(ev.Title), term) &&
		!strings.Contains(strings.ToLower(ev.Notes), term) {
		return false
	}

	if !f.Window.IsZero() {
		if ev.Start.IsZero() || !f.Window.Contains(ev.Start) {
			return false
		}
	}

	if !f.projectActive() && !f.activityActive() {
		return true
	}

	parsed := ParseTitle(ev.Title)
	if f.projectActive() && !labelAllowed(parsed.Project, f.Project, f.Projects) {
		return false
	}
	if f.activityActive() && !labelAllowed(parsed.Activity, f.Activity, f.Activities) {
		return false
	}
	return true
}

func (f Filter) projectActive() bool {
	return len(f.Projects) > 0 || !isAll(f.Project)
}

func (f Filter) activityActive() bool {
	return len(f.Activities) > 0 || !isAll(f.Activity)
}

func labelAllowed(label, single string, multi []string) bool {
	if len(multi) > 0 {
		for _, m := range multi {
			if SameLabel(label, m) {
				return true
			}
		}
		return false
	}
	return SameLabel(label, single)
}

func isAll(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, All)
}
