package web

import (
	"errors"
	"net/http"
	"time"

	"hourcal/internal/config"
	appLog "hourcal/internal/log"
	"hourcal/internal/model"
	"hourcal/internal/state"
	"hourcal/internal/syncer"
	"hourcal/internal/timetrack"
)

const summaryCacheTTL = 30 * time.Second

// summaryCacheEntry holds a cached /api/summary response.
type summaryCacheEntry struct {
	resp      summaryResponse
	version   uint64
	updatedAt time.Time
}

type eventDTO struct {
	SourceID    string    `json:"source_id"`
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Project     string    `json:"project"`
	Activity    string    `json:"activity"`
	Description string    `json:"description"`
	Notes       string    `json:"notes,omitempty"`
	Location    string    `json:"location,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Hours       float64   `json:"hours"`
	Color       string    `json:"color"`
}

type eventsResponse struct {
	Window timetrack.Window `json:"window"`
	Count  int              `json:"count"`
	Events []eventDTO       `json:"events"`
}

type activityDTO struct {
	Label     string  `json:"label"`
	Hours     float64 `json:"hours"`
	Formatted string  `json:"formatted"`
	Color     string  `json:"color"`
}

type projectDTO struct {
	Key        string        `json:"key"`
	Label      string        `json:"label"`
	Tag        string        `json:"tag"`
	Color      string        `json:"color"`
	Hours      float64       `json:"hours"`
	Formatted  string        `json:"formatted"`
	Activities []activityDTO `json:"activities"`
}

type summaryResponse struct {
	Range          string           `json:"range"`
	Window         timetrack.Window `json:"window"`
	TotalHours     float64          `json:"total_hours"`
	TotalFormatted string           `json:"total_formatted"`
	Counted        int              `json:"counted"`
	Skipped        int              `json:"skipped"`
	Projects       []projectDTO     `json:"projects"`
	Activities     []activityDTO    `json:"activities"`
	LastSynced     *time.Time       `json:"last_synced,omitempty"`
	SyncError      string           `json:"sync_error,omitempty"`
	Version        uint64           `json:"version"`
}

type budgetDTO struct {
	Name   string                 `json:"name"`
	Tag    string                 `json:"tag"`
	Color  string                 `json:"color"`
	Status timetrack.BudgetStatus `json:"status"`
}

type projectsResponse struct {
	Window          timetrack.Window `json:"window"`
	Projects        []budgetDTO      `json:"projects"`
	UnassignedHours float64          `json:"unassigned_hours"`
}

type daysResponse struct {
	Window timetrack.Window     `json:"window"`
	Days   []timetrack.DayHours `json:"days"`
}

type statusResponse struct {
	LastSynced *time.Time `json:"last_synced,omitempty"`
	SyncError  string     `json:"sync_error,omitempty"`
	Version    uint64     `json:"version"`
	Events     int        `json:"events"`
	Sources    int        `json:"sources"`
}

type refreshResponse struct {
	Events  int            `json:"events"`
	Hours   float64        `json:"hours"`
	Dropped map[string]int `json:"dropped"`
	Failed  []string       `json:"failed,omitempty"`
	Warning string         `json:"warning,omitempty"`
}

// view parses the request and evaluates it against the current state.
func (s *Server) view(w http.ResponseWriter, r *http.Request) (query, state.View, state.State, bool) {
	cfg := s.Config()
	now := s.now()
	q, err := parseQuery(r.URL.Query(), cfg, now)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return query{}, state.View{}, state.State{}, false
	}
	snap := s.state.Snapshot()
	v := snap.WithRange(q.Range).WithFilter(q.Filter).View(now, cfg.Weekday())
	return q, v, snap, true
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	_, v, _, ok := s.view(w, r)
	if !ok {
		return
	}
	cfg := s.Config()

	dtos := make([]eventDTO, 0, len(v.Events))
	for _, ev := range v.Events {
		p := timetrack.ParseTitle(ev.Title)
		h, _ := timetrack.Hours(ev.Start, ev.End)
		dtos = append(dtos, eventDTO{
			SourceID:    ev.SourceID,
			ID:          ev.ID,
			Title:       ev.Title,
			Project:     p.Project,
			Activity:    p.Activity,
			Description: p.Description,
			Notes:       ev.Notes,
			Location:    ev.Location,
			Start:       ev.Start,
			End:         ev.End,
			Hours:       h,
			Color:       timetrack.ActivityColor(p.Activity, cfg.ActivityColors),
		})
	}
	writeJSON(w, http.StatusOK, eventsResponse{Window: v.Window, Count: len(dtos), Events: dtos})
}

// handleSummary returns per-project and per-activity totals. Responses are
// cached per query until the state version changes or the TTL expires.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	q, v, snap, ok := s.view(w, r)
	if !ok {
		return
	}
	key := q.cacheKey()
	now := time.Now()

	s.summaryMu.RLock()
	ce, hit := s.summaryCache[key]
	s.summaryMu.RUnlock()
	// An entry built from an older snapshot can be stored after the purge in
	// onStateChange, so the version is still checked on every hit.
	if hit && ce.version == snap.Version && now.Sub(ce.updatedAt) < summaryCacheTTL {
		writeJSON(w, http.StatusOK, ce.resp)
		return
	}

	resp := buildSummary(s.Config(), q, v, snap)

	s.summaryMu.Lock()
	if len(s.summaryCache) >= 256 {
		s.summaryCache = make(map[string]summaryCacheEntry)
	}
	s.summaryCache[key] = summaryCacheEntry{resp: resp, version: snap.Version, updatedAt: now}
	s.summaryMu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func buildSummary(cfg *config.Config, q query, v state.View, snap state.State) summaryResponse {
	totals := v.Totals
	projects := cfg.ProjectInfos()

	resp := summaryResponse{
		Range:          q.Range.String(),
		Window:         v.Window,
		TotalHours:     totals.Hours,
		TotalFormatted: timetrack.FormatHours(totals.Hours),
		Counted:        totals.Counted,
		Skipped:        totals.Skipped,
		Projects:       []projectDTO{},
		Activities:     activityDTOs(timetrack.ActivityTotals(v.Events), cfg),
		SyncError:      snap.SyncError,
		Version:        snap.Version,
	}
	if !snap.LastSynced.IsZero() {
		t := snap.LastSynced
		resp.LastSynced = &t
	}
	for _, ps := range totals.Summaries() {
		resp.Projects = append(resp.Projects, projectDTO{
			Key:        ps.Key,
			Label:      ps.Label,
			Tag:        timetrack.ProjectTag(ps.Label),
			Color:      projectColor(ps.Label, projects),
			Hours:      ps.Hours,
			Formatted:  timetrack.FormatHours(ps.Hours),
			Activities: activityDTOs(ps.Activities, cfg),
		})
	}
	return resp
}

func (s *Server) handleActivities(w http.ResponseWriter, r *http.Request) {
	_, v, _, ok := s.view(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, activityDTOs(timetrack.ActivityTotals(v.Events), s.Config()))
}

// handleProjects reports configured projects with their tracked hours and
// budget status. Hidden projects are omitted.
func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	_, v, _, ok := s.view(w, r)
	if !ok {
		return
	}
	projects := s.Config().ProjectInfos()

	hours := make(map[string]float64, len(projects))
	unassigned := 0.0
	for _, ev := range v.Events {
		h, ok := timetrack.Hours(ev.Start, ev.End)
		if !ok {
			continue
		}
		p, found := timetrack.MatchProject(ev.Title, timetrack.ParseTitle(ev.Title), projects)
		if !found {
			unassigned += h
			continue
		}
		hours[timetrack.Key(p.Name)] += h
	}

	resp := projectsResponse{Window: v.Window, Projects: []budgetDTO{}, UnassignedHours: unassigned}
	for _, p := range projects {
		if p.Hidden {
			continue
		}
		resp.Projects = append(resp.Projects, budgetDTO{
			Name:   p.Name,
			Tag:    timetrack.ProjectTag(p.Name),
			Color:  projectColor(p.Name, projects),
			Status: timetrack.Budget(p, hours[timetrack.Key(p.Name)]),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDays returns hours per day. For the open "all" range the span of the
// matching events is used.
func (s *Server) handleDays(w http.ResponseWriter, r *http.Request) {
	_, v, _, ok := s.view(w, r)
	if !ok {
		return
	}
	win := v.Window
	if win.Start.IsZero() || win.End.IsZero() {
		first, last := eventSpan(v.Events)
		if win.Start.IsZero() {
			win.Start = first
		}
		if win.End.IsZero() {
			win.End = last
		}
	}

	days := []timetrack.DayHours{}
	if !win.Start.IsZero() && !win.End.IsZero() {
		days = timetrack.DailyHours(v.Events, win.Start, win.End, s.Config().Location())
	}
	writeJSON(w, http.StatusOK, daysResponse{Window: win, Days: days})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	snap := s.state.Snapshot()
	cfg := s.Config()
	resp := statusResponse{
		SyncError: snap.SyncError,
		Version:   snap.Version,
		Events:    len(snap.Events),
		Sources:   len(cfg.ICS),
	}
	if cfg.Google != nil {
		resp.Sources++
	}
	if !snap.LastSynced.IsZero() {
		t := snap.LastSynced
		resp.LastSynced = &t
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.refresher == nil {
		writeError(w, http.StatusServiceUnavailable, "sync is not configured")
		return
	}

	res, err := s.refresher.Run(r.Context())
	if errors.Is(err, syncer.ErrAllSourcesFailed) {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	resp := refreshResponse{
		Events:  len(res.Events),
		Hours:   res.Totals.Hours,
		Dropped: res.Dropped,
		Failed:  res.Failed,
	}
	if err != nil {
		appLog.Warn("manual refresh completed with errors", "reason", err)
		resp.Warning = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func activityDTOs(list []timetrack.ActivityHours, cfg *config.Config) []activityDTO {
	out := make([]activityDTO, 0, len(list))
	for _, a := range list {
		out = append(out, activityDTO{
			Label:     a.Label,
			Hours:     a.Hours,
			Formatted: timetrack.FormatHours(a.Hours),
			Color:     timetrack.ActivityColor(a.Label, cfg.ActivityColors),
		})
	}
	return out
}

// projectColor prefers the configured colour of a project with the same
// name.
func projectColor(label string, projects []timetrack.ProjectInfo) string {
	for _, p := range projects {
		if p.Color != "" && timetrack.SameLabel(p.Name, label) {
			return p.Color
		}
	}
	return timetrack.ProjectColor(label)
}

func eventSpan(events []model.CalendarEvent) (time.Time, time.Time) {
	var first, last time.Time
	for _, ev := range events {
		if ev.Start.IsZero() {
			continue
		}
		if first.IsZero() || ev.Start.Before(first) {
			first = ev.Start
		}
		if last.IsZero() || ev.Start.After(last) {
			last = ev.Start
		}
	}
	return first, last
}
