package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hourcal/internal/config"
	"hourcal/internal/metrics"
	"hourcal/internal/model"
	"hourcal/internal/state"
	"hourcal/internal/syncer"
	"hourcal/internal/timetrack"
)

var now = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func at(day, hour int, length time.Duration, id, title string) model.CalendarEvent {
	start := time.Date(2024, 3, day, hour, 0, 0, 0, time.UTC)
	return model.CalendarEvent{SourceID: "work", ID: id, Title: title, Start: start, End: start.Add(length)}
}

func sampleState() *state.Store {
	events := []model.CalendarEvent{
		at(11, 9, 2*time.Hour, "1", "Marvel#design homepage"),
		at(12, 9, time.Hour, "2", "Acme#dev api"),
		at(13, 14, 30*time.Minute, "3", "marvel#Design review"),
		at(14, 10, time.Hour, "4", "Marvel#meeting kickoff"),
		at(2, 10, 3*time.Hour, "5", "Acme#dev old sprint"),
		{SourceID: "2023", ID: "6", Title: "Old#dev", Start: time.Date(2023, 12, 1, 9, 0, 0, 0, time.UTC), End: time.Date(2023, 12, 1, 10, 0, 0, 0, time.UTC)},
	}
	return state.NewStore(state.Initial().WithEvents(events, now))
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Projects = []config.ProjectConfig{
		{Name: "Marvel", BudgetHours: 10, HourlyRate: 100, Color: "#123456"},
		{Name: "Internal", FilterTerm: "api"},
		{Name: "Secret", Hidden: true},
	}
	return cfg
}

type fakeRefresher struct {
	res syncer.Result
	err error
	n   int
}

func (f *fakeRefresher) Run(context.Context) (syncer.Result, error) {
	f.n++
	return f.res, f.err
}

func newTestServer(t *testing.T, cfg *config.Config, st *state.Store, r Refresher) *httptest.Server {
	t.Helper()
	s := NewServer(Options{
		Config:    cfg,
		State:     st,
		Refresher: r,
		Metrics:   metrics.New(),
		Now:       func() time.Time { return now },
	})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestHealthAndBasicAuth(t *testing.T) {
	cfg := testConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "me", Password: "pw"}
	srv := newTestServer(t, cfg, sampleState(), nil)

	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/health", nil))
	assert.Equal(t, http.StatusUnauthorized, getJSON(t, srv.URL+"/api/summary", nil))

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/summary", nil)
	req.SetBasicAuth("me", "wrong")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req.SetBasicAuth("me", "pw")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSummary(t *testing.T) {
	srv := newTestServer(t, testConfig(), sampleState(), nil)

	var s summaryResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/summary", &s))

	assert.Equal(t, "month", s.Range)
	assert.InDelta(t, 7.5, s.TotalHours, 1e-9)
	assert.Equal(t, "7h 30m", s.TotalFormatted)
	require.Len(t, s.Projects, 2)

	acme := s.Projects[0]
	assert.Equal(t, "Acme", acme.Label)
	assert.InDelta(t, 4, acme.Hours, 1e-9)

	marvel := s.Projects[1]
	assert.Equal(t, "Marvel", marvel.Label)
	assert.Equal(t, "MAR", marvel.Tag)
	assert.Equal(t, "#123456", marvel.Color)
	assert.InDelta(t, 3.5, marvel.Hours, 1e-9)
	require.Len(t, marvel.Activities, 2)
	assert.Equal(t, "design", marvel.Activities[0].Label)
	assert.InDelta(t, 2.5, marvel.Activities[0].Hours, 1e-9)
	assert.Equal(t, "#22C55F", marvel.Activities[0].Color)

	assert.Equal(t, uint64(1), s.Version)
	require.NotNil(t, s.LastSynced)
}

func TestSummary_FiltersAndRanges(t *testing.T) {
	srv := newTestServer(t, testConfig(), sampleState(), nil)

	cases := []struct {
		query string
		hours float64
	}{
		{"range=all", 8.5},
		{"range=week", 4.5},
		{"range=day", 0},
		{"range=all&project=acme", 4},
		{"range=all&projects=Marvel,Old", 4.5},
		{"range=all&activity=DESIGN", 2.5},
		{"range=all&activities=dev&project=All", 5},
		{"range=all&q=review", 0.5},
		{"from=2024-03-11&to=2024-03-12", 3},
		{"from=2024-03-13", 1.5},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			var s summaryResponse
			require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/summary?"+tc.query, &s))
			assert.InDelta(t, tc.hours, s.TotalHours, 1e-9)
		})
	}

	for _, bad := range []string{"range=fortnight", "from=yesterday", "from=2024-03-12&to=2024-03-01"} {
		assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/summary?"+bad, nil), bad)
	}
}

func TestSummary_CacheFollowsStateVersion(t *testing.T) {
	st := sampleState()
	srv := newTestServer(t, testConfig(), st, nil)

	var first summaryResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/summary", &first))

	st.Update(func(cur state.State) state.State {
		return cur.WithEvents([]model.CalendarEvent{at(12, 9, time.Hour, "x", "Solo#dev")}, now)
	})

	var second summaryResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/summary", &second))
	assert.Equal(t, uint64(2), second.Version)
	assert.InDelta(t, 1, second.TotalHours, 1e-9)
}

func TestSummary_CacheDroppedOnStateChange(t *testing.T) {
	st := sampleState()
	s := NewServer(Options{Config: testConfig(), State: st, Now: func() time.Time { return now }})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/summary?range=all", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, s.summaryCache, 1)

	st.Update(func(cur state.State) state.State { return cur.WithRange(timetrack.RangeYear) })
	assert.Len(t, s.summaryCache, 1, "same events keep the cache")

	st.Update(func(cur state.State) state.State {
		return cur.WithEvents([]model.CalendarEvent{at(12, 9, time.Hour, "x", "Solo#dev")}, now)
	})
	assert.Empty(t, s.summaryCache)
}

func TestEvents(t *testing.T) {
	srv := newTestServer(t, testConfig(), sampleState(), nil)

	var resp eventsResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/events?project=Marvel", &resp))
	require.Equal(t, 3, resp.Count)
	assert.Equal(t, "1", resp.Events[0].ID)
	assert.Equal(t, "design", resp.Events[0].Activity)
	assert.Equal(t, "homepage", resp.Events[0].Description)
	assert.InDelta(t, 2, resp.Events[0].Hours, 1e-9)
}

func TestActivitiesAndProjects(t *testing.T) {
	srv := newTestServer(t, testConfig(), sampleState(), nil)

	var acts []activityDTO
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/activities", &acts))
	require.Len(t, acts, 3)
	assert.Equal(t, "dev", acts[0].Label)
	assert.InDelta(t, 4, acts[0].Hours, 1e-9)

	var projects projectsResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/projects", &projects))
	require.Len(t, projects.Projects, 2, "hidden projects are omitted")

	marvel := projects.Projects[0]
	assert.Equal(t, "Marvel", marvel.Name)
	assert.InDelta(t, 3.5, marvel.Status.Hours, 1e-9)
	assert.InDelta(t, 6.5, marvel.Status.Remaining, 1e-9)
	assert.InDelta(t, 350, marvel.Status.Value, 1e-9)

	internal := projects.Projects[1]
	assert.InDelta(t, 1, internal.Status.Hours, 1e-9, "matched through filter term")
	assert.InDelta(t, 3, projects.UnassignedHours, 1e-9)
}

func TestDays(t *testing.T) {
	srv := newTestServer(t, testConfig(), sampleState(), nil)

	var resp daysResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/days?range=week", &resp))
	require.Len(t, resp.Days, 7)
	assert.Equal(t, "2024-03-11", resp.Days[0].Date)
	assert.InDelta(t, 2, resp.Days[0].Hours, 1e-9)
	assert.InDelta(t, 0, resp.Days[6].Hours, 1e-9)

	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/days?range=all&project=Old", &resp))
	require.Len(t, resp.Days, 1)
	assert.Equal(t, "2023-12-01", resp.Days[0].Date)
}

func TestRefresh(t *testing.T) {
	srv := newTestServer(t, testConfig(), sampleState(), nil)
	resp, err := http.Post(srv.URL+"/api/refresh", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	ok := &fakeRefresher{res: syncer.Result{
		Events:  []model.CalendarEvent{{ID: "a"}},
		Dropped: map[string]int{"all_day": 2},
	}}
	srv = newTestServer(t, testConfig(), sampleState(), ok)
	resp, err = http.Post(srv.URL+"/api/refresh", "application/json", nil)
	require.NoError(t, err)
	var body refreshResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, body.Events)
	assert.Equal(t, 2, body.Dropped["all_day"])
	assert.Equal(t, 1, ok.n)

	failing := &fakeRefresher{err: fmt.Errorf("%w: offline", syncer.ErrAllSourcesFailed)}
	srv = newTestServer(t, testConfig(), sampleState(), failing)
	resp, err = http.Post(srv.URL+"/api/refresh", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	partial := &fakeRefresher{err: errors.New("bad: timeout")}
	srv = newTestServer(t, testConfig(), sampleState(), partial)
	resp, err = http.Post(srv.URL+"/api/refresh", "application/json", nil)
	require.NoError(t, err)
	body = refreshResponse{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	assert.Equal(t, "bad: timeout", body.Warning)
}

func TestStaticAndMetrics(t *testing.T) {
	srv := newTestServer(t, testConfig(), sampleState(), nil)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/nope", nil))

	_ = getJSON(t, srv.URL+"/api/status", nil)
	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSetConfigAppliesAuth(t *testing.T) {
	s := NewServer(Options{State: sampleState(), Now: func() time.Time { return now }})
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	cfg := testConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "a", Password: "b"}
	s.SetConfig(cfg)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestParseQuery(t *testing.T) {
	cfg := config.DefaultConfig()
	q, err := parseQuery(map[string][]string{
		"projects": {" Marvel, ,Acme "},
		"to":       {"2024-03-12"},
	}, cfg, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"Marvel", "Acme"}, q.Filter.Projects)
	assert.True(t, q.Filter.Window.Start.IsZero())
	assert.Equal(t, time.Date(2024, 3, 12, 23, 59, 59, 999999999, time.UTC), q.Filter.Window.End)
	assert.Equal(t, timetrack.RangeMonth, q.Range)

	other, err := parseQuery(map[string][]string{"to": {"2024-03-12"}, "projects": {"Marvel,Acme"}}, cfg, now)
	require.NoError(t, err)
	assert.Equal(t, q.cacheKey(), other.cacheKey())
}
