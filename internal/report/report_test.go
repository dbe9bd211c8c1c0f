package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hourcal/internal/model"
	"hourcal/internal/timetrack"
)

func ev(day, hour int, length time.Duration, title string) model.CalendarEvent {
	start := time.Date(2024, 3, day, hour, 0, 0, 0, time.UTC)
	return model.CalendarEvent{ID: title, Title: title, Start: start, End: start.Add(length)}
}

func TestRender(t *testing.T) {
	events := []model.CalendarEvent{
		ev(11, 9, 2*time.Hour, "Marvel#design homepage"),
		ev(12, 9, 30*time.Minute, "Marvel#design review"),
		ev(13, 9, time.Hour, "Acme#dev api"),
		{ID: "broken", Title: "Acme#dev broken"},
	}
	opts := Options{
		Title:    "This week",
		Window:   timetrack.Window{Start: time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 3, 17, 23, 59, 0, 0, time.UTC)},
		Location: time.UTC,
		Projects: []timetrack.ProjectInfo{{Name: "Marvel", BudgetHours: 2, HourlyRate: 50}},
	}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, events, opts))
	out := buf.String()

	assert.Contains(t, out, "This week")
	assert.Contains(t, out, "(2024-03-11 to 2024-03-17)")
	assert.Contains(t, out, "Marvel")
	assert.Contains(t, out, "design")
	assert.Contains(t, out, "2h 30m")
	assert.Contains(t, out, "Total: 3h 30m across 3 events (1 skipped)")
	assert.Contains(t, out, "MAR Marvel")
	assert.Contains(t, out, "over 30m (125%)")
	assert.Contains(t, out, "125.00")
	assert.Contains(t, out, "hours per day, 2024-03-11 to 2024-03-17")
}

func TestRender_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, nil, Options{}))
	assert.Contains(t, buf.String(), "No tracked events")
	assert.Contains(t, buf.String(), "(all time)")
}

func TestDailyChart_SingleDaySkipped(t *testing.T) {
	events := []model.CalendarEvent{ev(11, 9, time.Hour, "A#dev")}
	assert.Empty(t, dailyChart(events, Options{Location: time.UTC}))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "-", percent(1, 0))
	assert.Equal(t, "50%", percent(1, 2))
}

func TestRenderTotals(t *testing.T) {
	totals := timetrack.Aggregate([]model.CalendarEvent{
		ev(11, 9, 90*time.Minute, "Marvel#design homepage"),
	})
	var buf bytes.Buffer
	require.NoError(t, RenderTotals(&buf, totals, Options{Title: "Last snapshot", Location: time.UTC}))
	assert.Contains(t, buf.String(), "Last snapshot")
	assert.Contains(t, buf.String(), "Total: 1h 30m across 1 events")
	assert.NotContains(t, buf.String(), "hours per day")
}
