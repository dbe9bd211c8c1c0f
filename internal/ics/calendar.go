package ics

import (
	"context"
	"fmt"
	"time"

	"hourcal/internal/model"
)

// Calendar is one ICS subscription exposed as an event source.
type Calendar struct {
	fetcher  *Fetcher
	src      Source
	location *time.Location
}

// NewCalendar binds a subscription to a fetcher. Events are returned in loc
// (time.Local when nil).
func NewCalendar(fetcher *Fetcher, src Source, loc *time.Location) *Calendar {
	if loc == nil {
		loc = time.Local
	}
	return &Calendar{fetcher: fetcher, src: src, location: loc}
}

// ID returns the source identifier.
func (c *Calendar) ID() string {
	return c.src.ID
}

// Events fetches, parses and expands the feed for [from, to].
func (c *Calendar) Events(ctx context.Context, from, to time.Time) ([]model.CalendarEvent, error) {
	res, err := c.fetcher.FetchOne(ctx, c.src)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", c.src.ID, err)
	}

	parsed, err := ParseICS(c.src, res.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", c.src.ID, err)
	}

	expanded, err := ExpandOccurrences(parsed, ExpandConfig{
		Location:   c.location,
		RangeStart: from,
		RangeEnd:   to,
	})
	if err != nil {
		return nil, fmt.Errorf("expand %s: %w", c.src.ID, err)
	}
	return expanded.Events, nil
}
