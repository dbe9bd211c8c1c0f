package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := New()
	m.ObserveSync("ok", 2*time.Second)
	m.ObserveSync("failed", time.Second)
	m.IncSourceError("work")
	m.AddDropped("all_day", 3)
	m.AddDropped("missing_time", 0)
	m.SetSynced(12, 7.5)
	m.IncRequest("/api/summary", 200)

	assert.InDelta(t, 1, testutil.ToFloat64(m.syncRuns.WithLabelValues("ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.sourceErrors.WithLabelValues("work")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.eventsDropped.WithLabelValues("all_day")), 0)
	assert.InDelta(t, 12, testutil.ToFloat64(m.eventsSynced), 0)
	assert.InDelta(t, 7.5, testutil.ToFloat64(m.trackedHours), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.syncDuration))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `hourcal_http_requests_total{code="200",route="/api/summary"} 1`)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveSync("ok", time.Second)
		m.IncSourceError("x")
		m.AddDropped("all_day", 1)
		m.SetSynced(1, 1)
		m.IncRequest("/", 200)
	})
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}
