package model

import "time"

// CalendarEvent is a single timed calendar entry as delivered by a calendar
// source, after recurrence expansion. It is read-only input for the
// time-tracking pipeline.
type CalendarEvent struct {
	SourceID string // calendar source ID (config ICS ID or Google calendar ID)
	ID       string // source-local event identifier (instance-unique)

	Title    string
	Notes    string
	Location string

	// AllDay events carry date-only boundaries and are never counted.
	AllDay bool

	// Start / End are zero when the source did not provide a parseable
	// timestamp.
	Start time.Time
	End   time.Time
}

// Key identifies the event across all sources.
func (e CalendarEvent) Key() string {
	if e.SourceID == "" {
		return e.ID
	}
	return e.SourceID + "/" + e.ID
}

// HasTimes reports whether both boundaries are present.
func (e CalendarEvent) HasTimes() bool {
	return !e.Start.IsZero() && !e.End.IsZero()
}
