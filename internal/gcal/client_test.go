package gcal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	from = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to   = time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
)

func TestClient_EventsPaginates(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/calendars/primary/events", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		q := r.URL.Query()
		assert.Equal(t, "true", q.Get("singleEvents"))
		assert.Equal(t, "startTime", q.Get("orderBy"))
		assert.Equal(t, "2500", q.Get("maxResults"))
		assert.Equal(t, "2024-01-01T00:00:00Z", q.Get("timeMin"))
		seen = append(seen, q.Get("pageToken"))

		w.Header().Set("Content-Type", "application/json")
		if q.Get("pageToken") == "" {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"nextPageToken": "p2",
				"items": []map[string]any{
					{
						"id":      "a",
						"summary": "Marvel#design homepage",
						"start":   map[string]string{"dateTime": "2024-01-02T09:00:00+01:00"},
						"end":     map[string]string{"dateTime": "2024-01-02T10:30:00+01:00"},
					},
					{
						"id":      "b",
						"summary": "Holiday",
						"start":   map[string]string{"date": "2024-01-03"},
						"end":     map[string]string{"date": "2024-01-04"},
					},
				},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"id": "c", "status": "cancelled", "summary": "gone"},
				{
					"id":      "d",
					"summary": "Acme#dev api",
					"start":   map[string]string{"dateTime": "2024-01-05T14:00:00Z"},
					"end":     map[string]string{"dateTime": "2024-01-05T15:00:00Z"},
				},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(NewStaticToken("tok"), "", srv.URL)
	assert.Equal(t, "google:primary", c.ID())

	events, err := c.Events(context.Background(), from, to)
	require.NoError(t, err)
	assert.Equal(t, []string{"", "p2"}, seen)
	require.Len(t, events, 3)

	assert.Equal(t, "a", events[0].ID)
	assert.Equal(t, "google:primary", events[0].SourceID)
	assert.InDelta(t, 1.5, events[0].End.Sub(events[0].Start).Hours(), 1e-9)

	assert.True(t, events[1].AllDay)
	assert.True(t, events[1].Start.IsZero())
	assert.Equal(t, "d", events[2].ID)
}

func TestClient_StatusErrors(t *testing.T) {
	cases := map[int]error{
		http.StatusUnauthorized: ErrUnauthorized,
		http.StatusForbidden:    ErrForbidden,
	}
	for status, want := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		_, err := NewClient(NewStaticToken("tok"), "work", srv.URL).Events(context.Background(), from, to)
		srv.Close()
		assert.ErrorIs(t, err, want)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()
	_, err := NewClient(NewStaticToken("tok"), "work", srv.URL).Events(context.Background(), from, to)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestStaticToken_Session(t *testing.T) {
	ctx := context.Background()
	auth := NewStaticToken(" tok ")

	tok, err := auth.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)

	require.NoError(t, auth.SignOut(ctx))
	_, err = auth.AccessToken(ctx)
	assert.ErrorIs(t, err, ErrSignedOut)

	c := NewClient(auth, "", "http://127.0.0.1:0")
	_, err = c.Events(ctx, from, to)
	assert.ErrorIs(t, err, ErrSignedOut, "no request without a session")

	require.NoError(t, auth.SignIn(ctx))
	_, err = auth.AccessToken(ctx)
	assert.NoError(t, err)

	assert.Error(t, NewStaticToken("").SignIn(ctx))

	blank := NewStaticToken("   ")
	_, err = blank.AccessToken(ctx)
	assert.ErrorIs(t, err, ErrSignedOut, "whitespace is not a token")
}
