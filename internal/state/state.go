// Package state holds the dashboard's application state: the synced events,
// the active filter and sync status. State values are never mutated in place;
// every update returns a new State, and Store swaps the current value under a
// lock so readers always see a consistent snapshot.
package state

import (
	"sync"
	"time"

	"hourcal/internal/model"
	"hourcal/internal/timetrack"
)

// State is an immutable snapshot of the application state.
type State struct {
	Events []model.CalendarEvent
	Filter timetrack.Filter
	Range  timetrack.Range

	LastSynced time.Time
	SyncError  string

	// Version increases whenever Events change; caches key on it.
	Version uint64
}

// Initial returns the starting state: no events, current month, no filters.
func Initial() State {
	return State{
		Events: []model.CalendarEvent{},
		Filter: timetrack.Filter{Project: timetrack.All, Activity: timetrack.All},
		Range:  timetrack.RangeMonth,
	}
}

// WithEvents replaces the event set and clears any previous sync error.
func (s State) WithEvents(events []model.CalendarEvent, syncedAt time.Time) State {
	cp := make([]model.CalendarEvent, len(events))
	copy(cp, events)
	s.Events = cp
	s.LastSynced = syncedAt
	s.SyncError = ""
	s.Version++
	return s
}

// WithSyncError records a failed sync while keeping the previous events.
func (s State) WithSyncError(err error) State {
	if err == nil {
		s.SyncError = ""
		return s
	}
	s.SyncError = err.Error()
	return s
}

// WithFilter replaces the active filter.
func (s State) WithFilter(f timetrack.Filter) State {
	f.Projects = append([]string(nil), f.Projects...)
	f.Activities = append([]string(nil), f.Activities...)
	s.Filter = f
	return s
}

// WithRange replaces the reporting period.
func (s State) WithRange(r timetrack.Range) State {
	s.Range = r
	return s
}

// View is the filtered event set and its totals for one point in time.
type View struct {
	Window timetrack.Window
	Events []model.CalendarEvent
	Totals timetrack.Totals
}

// View resolves the state's Range at now (unless the filter already carries
// an explicit window) and runs the filter and aggregation over it.
func (s State) View(now time.Time, weekStart time.Weekday) View {
	f := s.Filter
	if f.Window.IsZero() {
		f.Window = timetrack.ResolveWindow(s.Range, now, weekStart)
	}
	events := timetrack.Apply(s.Events, f)
	return View{
		Window: f.Window,
		Events: events,
		Totals: timetrack.Aggregate(events),
	}
}

// Store holds the current State. It is shared by reference between the
// syncer, the HTTP server and the CLI.
type Store struct {
	mu   sync.RWMutex
	cur  State
	subs []func(State)
}

// NewStore creates a store seeded with initial.
func NewStore(initial State) *Store {
	return &Store{cur: initial}
}

// Snapshot returns the current state.
func (st *Store) Snapshot() State {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.cur
}

// Update applies fn to the current state, stores the result and notifies
// subscribers outside the lock.
func (st *Store) Update(fn func(State) State) State {
	st.mu.Lock()
	next := fn(st.cur)
	st.cur = next
	subs := append([]func(State){}, st.subs...)
	st.mu.Unlock()

	for _, sub := range subs {
		sub(next)
	}
	return next
}

// Subscribe registers fn to be called after every Update.
func (st *Store) Subscribe(fn func(State)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.subs = append(st.subs, fn)
}
