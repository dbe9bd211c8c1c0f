// Package gcal reads timed events from the Google Calendar REST API.
package gcal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	appLog "hourcal/internal/log"
	"hourcal/internal/model"
)

const (
	DefaultBaseURL = "https://www.googleapis.com/calendar/v3"
	maxResults     = 2500
	// maxPages bounds pagination in case the API keeps returning tokens.
	maxPages = 50
)

var (
	ErrUnauthorized = errors.New("gcal: authentication expired, sign in again")
	ErrForbidden    = errors.New("gcal: access to the calendar was denied")
)

// Client lists events of one calendar.
type Client struct {
	http       *http.Client
	auth       Authenticator
	baseURL    string
	calendarID string
}

// NewClient returns a client for calendarID ("primary" when empty). baseURL
// may be empty to use the public endpoint.
func NewClient(auth Authenticator, calendarID, baseURL string) *Client {
	if calendarID == "" {
		calendarID = "primary"
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:       &http.Client{Timeout: 20 * time.Second},
		auth:       auth,
		baseURL:    baseURL,
		calendarID: calendarID,
	}
}

// WithHTTPClient replaces the HTTP client.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

// ID is the source identifier used for event keys.
func (c *Client) ID() string {
	return "google:" + c.calendarID
}

type eventTime struct {
	DateTime string `json:"dateTime"`
	Date     string `json:"date"`
}

type apiEvent struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Start       eventTime `json:"start"`
	End         eventTime `json:"end"`
}

type eventsPage struct {
	Items         []apiEvent `json:"items"`
	NextPageToken string     `json:"nextPageToken"`
}

// Events lists single (expanded) events between from and to.
func (c *Client) Events(ctx context.Context, from, to time.Time) ([]model.CalendarEvent, error) {
	token, err := c.auth.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	var out []model.CalendarEvent
	pageToken := ""
	for page := 0; page < maxPages; page++ {
		p, err := c.fetchPage(ctx, token, from, to, pageToken)
		if err != nil {
			return nil, err
		}
		for _, item := range p.Items {
			if item.Status == "cancelled" {
				continue
			}
			out = append(out, c.toEvent(item))
		}
		if p.NextPageToken == "" {
			appLog.Debug("gcal events fetched", "calendar", c.calendarID, "count", len(out), "pages", page+1)
			return out, nil
		}
		pageToken = p.NextPageToken
	}
	appLog.Warn("gcal pagination stopped at page cap", "calendar", c.calendarID, "pages", maxPages)
	return out, nil
}

func (c *Client) fetchPage(ctx context.Context, token string, from, to time.Time, pageToken string) (eventsPage, error) {
	q := url.Values{}
	q.Set("timeMin", from.UTC().Format(time.RFC3339))
	q.Set("timeMax", to.UTC().Format(time.RFC3339))
	q.Set("singleEvents", "true")
	q.Set("orderBy", "startTime")
	q.Set("maxResults", fmt.Sprint(maxResults))
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}
	endpoint := fmt.Sprintf("%s/calendars/%s/events?%s", c.baseURL, url.PathEscape(c.calendarID), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return eventsPage{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eventsPage{}, fmt.Errorf("gcal request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return eventsPage{}, ErrUnauthorized
	case http.StatusForbidden:
		return eventsPage{}, ErrForbidden
	default:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return eventsPage{}, fmt.Errorf("gcal: unexpected status %s: %s", resp.Status, snippet)
	}

	var p eventsPage
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return eventsPage{}, fmt.Errorf("gcal decode: %w", err)
	}
	return p, nil
}

// toEvent keeps date-only and malformed boundaries as zero times; the
// time-tracking pipeline drops them.
func (c *Client) toEvent(item apiEvent) model.CalendarEvent {
	ev := model.CalendarEvent{
		SourceID: c.ID(),
		ID:       item.ID,
		Title:    item.Summary,
		Notes:    item.Description,
		Location: item.Location,
		AllDay:   item.Start.DateTime == "" && item.Start.Date != "",
	}
	if t, err := time.Parse(time.RFC3339, item.Start.DateTime); err == nil {
		ev.Start = t
	}
	if t, err := time.Parse(time.RFC3339, item.End.DateTime); err == nil {
		ev.End = t
	}
	return ev
}
