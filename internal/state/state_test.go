package state

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hourcal/internal/model"
	"hourcal/internal/timetrack"
)

var now = time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

func events() []model.CalendarEvent {
	at := func(d time.Duration) time.Time { return now.Add(d) }
	return []model.CalendarEvent{
		{ID: "1", Title: "Marvel#dev", Start: at(-2 * time.Hour), End: at(-time.Hour)},
		{ID: "2", Title: "Acme#design", Start: at(-48 * time.Hour), End: at(-46 * time.Hour)},
		{ID: "3", Title: "Marvel#dev old", Start: at(-60 * 24 * time.Hour), End: at(-60*24*time.Hour + time.Hour)},
	}
}

func TestState_UpdatesReturnNewValues(t *testing.T) {
	base := Initial()
	evs := events()

	next := base.WithEvents(evs, now)
	assert.Empty(t, base.Events, "original untouched")
	assert.Len(t, next.Events, 3)
	assert.Equal(t, uint64(1), next.Version)

	evs[0].Title = "mutated"
	assert.Equal(t, "Marvel#dev", next.Events[0].Title, "events are copied")

	failed := next.WithSyncError(errors.New("fetch failed"))
	assert.Equal(t, "fetch failed", failed.SyncError)
	assert.Len(t, failed.Events, 3, "events kept on failure")
	assert.Empty(t, next.SyncError)

	assert.Empty(t, failed.WithEvents(evs, now).SyncError)
}

func TestState_View(t *testing.T) {
	s := Initial().WithEvents(events(), now)

	v := s.View(now, time.Monday)
	assert.InDelta(t, 3.0, v.Totals.Hours, 1e-9, "month range excludes the old event")
	assert.Len(t, v.Events, 2)

	v = s.WithRange(timetrack.RangeAll).View(now, time.Monday)
	assert.InDelta(t, 4.0, v.Totals.Hours, 1e-9)

	v = s.WithRange(timetrack.RangeAll).WithFilter(timetrack.Filter{Project: "acme"}).View(now, time.Monday)
	assert.InDelta(t, 2.0, v.Totals.Hours, 1e-9)
	assert.Equal(t, []string{"acme"}, v.Totals.Order)

	explicit := timetrack.Filter{Window: timetrack.Window{Start: now.Add(-3 * time.Hour), End: now}}
	v = s.WithFilter(explicit).View(now, time.Monday)
	assert.InDelta(t, 1.0, v.Totals.Hours, 1e-9, "explicit window wins over range")
}

func TestStore_UpdateAndSubscribe(t *testing.T) {
	st := NewStore(Initial())

	var seen []uint64
	st.Subscribe(func(s State) { seen = append(seen, s.Version) })

	st.Update(func(s State) State { return s.WithEvents(events(), now) })
	st.Update(func(s State) State { return s.WithRange(timetrack.RangeWeek) })

	snap := st.Snapshot()
	assert.Equal(t, timetrack.RangeWeek, snap.Range)
	require.Len(t, seen, 2)
	assert.Equal(t, []uint64{1, 1}, seen)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	st := NewStore(Initial())
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			st.Update(func(s State) State { return s.WithEvents(events(), now) })
		}()
		go func() {
			defer wg.Done()
			_ = st.Snapshot().View(now, time.Monday)
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(20), st.Snapshot().Version)
}
