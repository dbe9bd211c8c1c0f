// Package syncer pulls events from every configured calendar source,
// discards what cannot be tracked, and publishes the result to the state
// store and the database.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	appLog "hourcal/internal/log"
	"hourcal/internal/metrics"
	"hourcal/internal/model"
	"hourcal/internal/state"
	"hourcal/internal/timetrack"
)

// Drop reasons reported in Result.Dropped and the metrics.
const (
	DropAllDay      = "all_day"
	DropMissingTime = "missing_time"
	DropNonPositive = "non_positive"
	DropDuplicate   = "duplicate"
)

// ErrAllSourcesFailed wraps the per-source errors when nothing could be
// fetched.
var ErrAllSourcesFailed = errors.New("all calendar sources failed")

// Source is a calendar that can list events in a time range.
type Source interface {
	ID() string
	Events(ctx context.Context, from, to time.Time) ([]model.CalendarEvent, error)
}

// EventStore persists synced events and totals snapshots.
type EventStore interface {
	UpsertEvents(ctx context.Context, events []model.CalendarEvent, syncedAt time.Time) (int, error)
	SaveTotals(ctx context.Context, t timetrack.Totals, w timetrack.Window, computedAt time.Time) (string, error)
}

// Options configures a Syncer. Zero values are usable.
type Options struct {
	Lookback  time.Duration
	Lookahead time.Duration

	Store    EventStore
	Metrics  *metrics.Metrics
	Notifier Notifier

	// Now defaults to time.Now.
	Now func() time.Time
}

// Result summarizes one run.
type Result struct {
	Events  []model.CalendarEvent
	Totals  timetrack.Totals
	Window  timetrack.Window
	Dropped map[string]int
	Failed  []string
}

// Syncer runs sync passes. Runs are serialized.
type Syncer struct {
	mu      sync.Mutex
	sources []Source
	st      *state.Store
	opts    Options
}

// New creates a Syncer publishing into st.
func New(st *state.Store, sources []Source, opts Options) *Syncer {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Syncer{sources: sources, st: st, opts: opts}
}

// Run performs one sync pass. A failing source only shortens the event
// list; when every source fails the previous events stay in place and the
// error is recorded in the state. Persistence errors are returned but do
// not prevent the state update.
func (s *Syncer) Run(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	began := time.Now()
	now := s.opts.Now()
	res := Result{
		Window:  timetrack.Window{Start: now.Add(-s.opts.Lookback), End: now.Add(s.opts.Lookahead)},
		Dropped: make(map[string]int),
	}

	var (
		fetched   []model.CalendarEvent
		sourceErr []error
	)
	for _, src := range s.sources {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		evs, err := src.Events(ctx, res.Window.Start, res.Window.End)
		if err != nil {
			appLog.Error("sync source failed", err, "source", src.ID())
			s.opts.Metrics.IncSourceError(src.ID())
			res.Failed = append(res.Failed, src.ID())
			sourceErr = append(sourceErr, fmt.Errorf("%s: %w", src.ID(), err))
			continue
		}
		appLog.Debug("sync source fetched", "source", src.ID(), "count", len(evs))
		fetched = append(fetched, evs...)
	}

	if len(s.sources) > 0 && len(sourceErr) == len(s.sources) {
		err := fmt.Errorf("%w: %w", ErrAllSourcesFailed, errors.Join(sourceErr...))
		s.st.Update(func(cur state.State) state.State { return cur.WithSyncError(err) })
		s.opts.Metrics.ObserveSync("failed", time.Since(began))
		s.notify("Calendar sync failed", err.Error())
		return res, err
	}

	res.Events = clean(fetched, res.Dropped)
	res.Totals = timetrack.Aggregate(res.Events)

	var errs []error
	errs = append(errs, sourceErr...)
	if s.opts.Store != nil {
		if _, err := s.opts.Store.UpsertEvents(ctx, res.Events, now); err != nil {
			errs = append(errs, fmt.Errorf("persist events: %w", err))
		} else if _, err := s.opts.Store.SaveTotals(ctx, res.Totals, res.Window, now); err != nil {
			errs = append(errs, fmt.Errorf("persist totals: %w", err))
		}
	}
	runErr := errors.Join(errs...)

	s.st.Update(func(cur state.State) state.State {
		return cur.WithEvents(res.Events, now).WithSyncError(runErr)
	})

	for reason, n := range res.Dropped {
		s.opts.Metrics.AddDropped(reason, n)
	}
	s.opts.Metrics.SetSynced(len(res.Events), res.Totals.Hours)

	status := "ok"
	if runErr != nil {
		status = "partial"
		appLog.Warn("sync completed with errors", "reason", runErr)
	}
	s.opts.Metrics.ObserveSync(status, time.Since(began))

	appLog.Info("sync completed",
		"events", len(res.Events),
		"hours", fmt.Sprintf("%.2f", res.Totals.Hours),
		"failed_sources", len(res.Failed),
		"dropped", countDropped(res.Dropped),
		"elapsed", time.Since(began).Round(time.Millisecond),
	)
	return res, runErr
}

func (s *Syncer) notify(title, msg string) {
	if s.opts.Notifier == nil {
		return
	}
	if err := s.opts.Notifier.Notify(title, msg); err != nil {
		appLog.Warn("desktop notification failed", "reason", err)
	}
}

// clean drops events the time-tracking pipeline cannot count and removes
// duplicates by source-qualified key, keeping the first occurrence.
func clean(events []model.CalendarEvent, dropped map[string]int) []model.CalendarEvent {
	seen := make(map[string]struct{}, len(events))
	out := make([]model.CalendarEvent, 0, len(events))
	for _, ev := range events {
		switch {
		case ev.AllDay:
			dropped[DropAllDay]++
			continue
		case !ev.HasTimes():
			dropped[DropMissingTime]++
			continue
		}
		if _, ok := timetrack.Hours(ev.Start, ev.End); !ok {
			dropped[DropNonPositive]++
			continue
		}
		if _, dup := seen[ev.Key()]; dup {
			dropped[DropDuplicate]++
			continue
		}
		seen[ev.Key()] = struct{}{}
		out = append(out, ev)
	}
	return out
}

func countDropped(m map[string]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}
