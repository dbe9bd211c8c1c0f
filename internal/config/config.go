package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"hourcal/internal/timetrack"
)

// ICSConfig describes a single ICS subscription source.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label shown in the UI.
	Name string `yaml:"name" json:"name"`
}

// SourceID returns the identifier used for events of this source.
func (c ICSConfig) SourceID() string {
	switch {
	case c.ID != "":
		return c.ID
	case c.Name != "":
		return c.Name
	default:
		return c.URL
	}
}

// GoogleConfig enables the Google Calendar REST source.
type GoogleConfig struct {
	// CalendarID defaults to "primary".
	CalendarID string `yaml:"calendar_id" json:"calendar_id"`
	// AccessToken is a bearer token for the Calendar API. Prefer setting
	// HOURCAL_GOOGLE_TOKEN in the environment or .env over storing it here.
	AccessToken string `yaml:"access_token,omitempty" json:"-"`
	// BaseURL overrides the API endpoint (tests, proxies).
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// ProjectConfig carries per-project metadata that calendar titles cannot.
type ProjectConfig struct {
	Name        string  `yaml:"name" json:"name"`
	FilterTerm  string  `yaml:"filter_term,omitempty" json:"filter_term,omitempty"`
	BudgetHours float64 `yaml:"budget_hours,omitempty" json:"budget_hours,omitempty"`
	HourlyRate  float64 `yaml:"hourly_rate,omitempty" json:"hourly_rate,omitempty"`
	Color       string  `yaml:"color,omitempty" json:"color,omitempty"`
	Hidden      bool    `yaml:"hidden,omitempty" json:"hidden,omitempty"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used for day/week/month boundaries.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is "monday" (default) or "sunday".
	WeekStart string `yaml:"week_start" json:"week_start"`

	// DefaultRange is the reporting period used when a request names none:
	// day, week, month (default), year or all.
	DefaultRange string `yaml:"default_range" json:"default_range"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// driving periodic sync in serve mode.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// LookbackDays / LookaheadDays bound the window requested from sources.
	LookbackDays  int `yaml:"lookback_days" json:"lookback_days"`
	LookaheadDays int `yaml:"lookahead_days" json:"lookahead_days"`

	// DatabasePath is the SQLite file holding synced events and snapshots.
	DatabasePath string `yaml:"database" json:"database"`

	// CacheDir holds the ICS HTTP cache.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// Notify raises a desktop notification when a sync fails.
	Notify bool `yaml:"notify" json:"notify"`

	// ICS is the list of subscribed ICS sources.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// Google, if non-nil, enables the Google Calendar source.
	Google *GoogleConfig `yaml:"google,omitempty" json:"google,omitempty"`

	// Projects holds optional budgets, rates and colours.
	Projects []ProjectConfig `yaml:"projects" json:"projects"`

	// ActivityColors overrides colours per activity label.
	ActivityColors map[string]string `yaml:"activity_colors" json:"activity_colors"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen       = "127.0.0.1:8080"
	defaultTimezone     = "UTC"
	defaultRefreshCron  = "*/15 * * * *"
	defaultLookback     = 30
	defaultLookahead    = 30
	defaultDatabasePath = "./var/hourcal.db"
	defaultCacheDir     = "./var/ics-cache"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{LookaheadDays: defaultLookahead}
	c.Normalize()
	return c
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs (e.g., older versions) still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	switch strings.ToLower(c.WeekStart) {
	case "monday", "sunday":
		c.WeekStart = strings.ToLower(c.WeekStart)
	default:
		// Unknown value; fall back to monday to avoid surprising layouts.
		c.WeekStart = "monday"
	}
	if _, err := timetrack.ParseRange(c.DefaultRange); err != nil || c.DefaultRange == "" {
		c.DefaultRange = timetrack.RangeMonth.String()
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.LookbackDays <= 0 {
		c.LookbackDays = defaultLookback
	}
	if c.LookaheadDays < 0 {
		c.LookaheadDays = 0
	}
	if c.DatabasePath == "" {
		c.DatabasePath = defaultDatabasePath
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	if c.Projects == nil {
		c.Projects = []ProjectConfig{}
	}
	if c.ActivityColors == nil {
		c.ActivityColors = map[string]string{}
	}
	normalized := make(map[string]string, len(c.ActivityColors))
	for k, v := range c.ActivityColors {
		normalized[timetrack.Key(k)] = v
	}
	c.ActivityColors = normalized
	if c.Google != nil && c.Google.CalendarID == "" {
		c.Google.CalendarID = "primary"
	}
}

// Validate reports configuration errors that Normalize cannot repair.
func (c *Config) Validate() error {
	var errs []error
	seen := make(map[string]bool)
	for i, src := range c.ICS {
		if src.URL == "" {
			errs = append(errs, fmt.Errorf("ics[%d]: url is required", i))
			continue
		}
		id := src.SourceID()
		if seen[id] {
			errs = append(errs, fmt.Errorf("ics[%d]: duplicate id %q", i, id))
		}
		seen[id] = true
	}
	for i, p := range c.Projects {
		if strings.TrimSpace(p.Name) == "" {
			errs = append(errs, fmt.Errorf("projects[%d]: name is required", i))
		}
		if p.BudgetHours < 0 || p.HourlyRate < 0 {
			errs = append(errs, fmt.Errorf("projects[%d]: budget and rate must not be negative", i))
		}
	}
	return errors.Join(errs...)
}

// ProjectInfos converts configured projects for the timetrack helpers.
func (c *Config) ProjectInfos() []timetrack.ProjectInfo {
	out := make([]timetrack.ProjectInfo, 0, len(c.Projects))
	for _, p := range c.Projects {
		out = append(out, timetrack.ProjectInfo{
			Name:        p.Name,
			FilterTerm:  p.FilterTerm,
			BudgetHours: p.BudgetHours,
			HourlyRate:  p.HourlyRate,
			Color:       p.Color,
			Hidden:      p.Hidden,
		})
	}
	return out
}

// Location resolves Timezone, falling back to time.Local when the name is
// unknown.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Weekday returns the configured first day of the week.
func (c *Config) Weekday() time.Weekday {
	return timetrack.ParseWeekday(c.WeekStart)
}

// Range returns the configured default reporting period.
func (c *Config) Range() timetrack.Range {
	r, err := timetrack.ParseRange(c.DefaultRange)
	if err != nil {
		return timetrack.RangeMonth
	}
	return r
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - If the file exists, it is unmarshaled and normalized.
//   - In both cases environment overrides (see ApplyEnv) are applied last.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			ApplyEnv(cfg, filepath.Dir(path))
			return cfg, nil
		}
		return nil, err
	}

	// Absent keys keep their defaults; an explicit 0 lookahead is honored.
	cfg := Config{LookaheadDays: defaultLookahead}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()
	ApplyEnv(&cfg, filepath.Dir(path))

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".hourcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
