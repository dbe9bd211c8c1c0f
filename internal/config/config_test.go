package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appLog "hourcal/internal/log"
	"hourcal/internal/timetrack"
)

func TestLoad_FirstRunWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, defaultListen, cfg.Listen)
	assert.Equal(t, "monday", cfg.WeekStart)
	assert.Equal(t, "month", cfg.DefaultRange)
	assert.Equal(t, defaultLookahead, cfg.LookaheadDays)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoad_ExistingFileIsNormalized(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
listen: ":9000"
week_start: Sunday
default_range: fortnight
lookback_days: 7
ics:
  - url: https://example.com/work.ics
    name: Work
projects:
  - name: Marvel
    budget_hours: 40
    hourly_rate: 90
activity_colors:
  Design: "#000000"
google: {}
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, "sunday", cfg.WeekStart)
	assert.Equal(t, "month", cfg.DefaultRange)
	assert.Equal(t, 7, cfg.LookbackDays)
	assert.Equal(t, defaultLookahead, cfg.LookaheadDays)
	assert.Equal(t, "Work", cfg.ICS[0].SourceID())
	assert.Equal(t, "#000000", cfg.ActivityColors["design"])
	require.NotNil(t, cfg.Google)
	assert.Equal(t, "primary", cfg.Google.CalendarID)

	infos := cfg.ProjectInfos()
	require.Len(t, infos, 1)
	assert.InDelta(t, 90, infos[0].HourlyRate, 1e-9)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unterminated"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)

	_, err = Load("")
	assert.Error(t, err)
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Projects = append(cfg.Projects, ProjectConfig{Name: "Acme", FilterTerm: "acme"})

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Projects, loaded.Projects)
}

func TestApplyEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("HOURCAL_GOOGLE_TOKEN=from-dotenv\n"), 0o600))
	t.Setenv(EnvListen, ":7000")
	t.Setenv(EnvAuthUser, "me")
	t.Setenv(EnvAuthPass, "secret")
	t.Setenv(EnvLookback, "90")
	// Registered for restore, then unset so the .env value is applied.
	t.Setenv(EnvGoogleToken, "")
	require.NoError(t, os.Unsetenv(EnvGoogleToken))

	cfg := DefaultConfig()
	ApplyEnv(cfg, dir)

	assert.Equal(t, ":7000", cfg.Listen)
	assert.Equal(t, 90, cfg.LookbackDays)
	require.NotNil(t, cfg.BasicAuth)
	assert.Equal(t, "me", cfg.BasicAuth.Username)
	require.NotNil(t, cfg.Google)
	assert.Equal(t, "from-dotenv", cfg.Google.AccessToken)
	assert.Equal(t, "primary", cfg.Google.CalendarID)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.ICS = []ICSConfig{
		{URL: "https://a.example/cal.ics", ID: "a"},
		{URL: "https://b.example/cal.ics", ID: "a"},
		{Name: "missing url"},
	}
	cfg.Projects = []ProjectConfig{{Name: " "}, {Name: "x", BudgetHours: -1}}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate id")
	assert.Contains(t, err.Error(), "url is required")
	assert.Contains(t, err.Error(), "name is required")
	assert.Contains(t, err.Error(), "must not be negative")
}

func TestReportingHelpers(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, time.UTC.String(), cfg.Location().String())
	assert.Equal(t, time.Monday, cfg.Weekday())
	assert.Equal(t, timetrack.RangeMonth, cfg.Range())

	cfg.Timezone = "Europe/Paris"
	cfg.WeekStart = "Sunday"
	cfg.DefaultRange = "week"
	assert.Equal(t, "Europe/Paris", cfg.Location().String())
	assert.Equal(t, time.Sunday, cfg.Weekday())
	assert.Equal(t, timetrack.RangeWeek, cfg.Range())

	cfg.Timezone = "Not/AZone"
	cfg.DefaultRange = "fortnight"
	assert.Equal(t, time.Local, cfg.Location())
	assert.Equal(t, timetrack.RangeMonth, cfg.Range())
}

func TestWatch_ReloadsOnSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := Load(path)
	require.NoError(t, err)

	var logs bytes.Buffer
	appLog.SetOutput(&logs)
	t.Cleanup(func() { appLog.SetOutput(os.Stderr) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c *Config) { changed <- c })
	}()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)

	cfg.Listen = ":6123"
	require.NoError(t, cfg.Save(path))

	select {
	case c := <-changed:
		assert.Equal(t, ":6123", c.Listen)
	case <-time.After(5 * time.Second):
		t.Fatal("config change not observed")
	}

	cancel()
	assert.NoError(t, <-done)
	assert.Contains(t, logs.String(), "config reloaded", "the watcher logs each applied reload")
}
