package cli

import (
	"context"
	"fmt"
	"time"

	"hourcal/internal/config"
	"hourcal/internal/gcal"
	"hourcal/internal/ics"
	appLog "hourcal/internal/log"
	"hourcal/internal/metrics"
	"hourcal/internal/state"
	"hourcal/internal/store"
	"hourcal/internal/syncer"
)

// app holds the dependencies shared by commands.
type app struct {
	cfg     *config.Config
	db      *store.DB
	state   *state.Store
	metrics *metrics.Metrics
	syncer  *syncer.Syncer
}

// loadConfig reads the config file and applies the log level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	appLog.SetLevel(appLog.ParseLevel(level))
	return cfg, nil
}

// newApp opens the database and builds the syncer over the configured
// sources.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	db, err := store.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	a := &app{
		cfg:     cfg,
		db:      db,
		state:   state.NewStore(initialState(cfg)),
		metrics: metrics.New(),
	}

	var notifier syncer.Notifier
	if cfg.Notify {
		notifier = syncer.DesktopNotifier{}
	}
	a.syncer = syncer.New(a.state, buildSources(cfg), syncer.Options{
		Lookback:  time.Duration(cfg.LookbackDays) * 24 * time.Hour,
		Lookahead: time.Duration(cfg.LookaheadDays) * 24 * time.Hour,
		Store:     db,
		Metrics:   a.metrics,
		Notifier:  notifier,
	})
	return a, nil
}

func (a *app) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

// restore seeds the state with the events persisted by earlier syncs so the
// dashboard has data before the first sync of this process completes.
func (a *app) restore(ctx context.Context) error {
	now := time.Now()
	from := now.AddDate(0, 0, -a.cfg.LookbackDays)
	to := now.AddDate(0, 0, a.cfg.LookaheadDays)
	events, err := a.db.Events(ctx, from, to)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}
	a.state.Update(func(cur state.State) state.State {
		return cur.WithEvents(events, time.Time{})
	})
	appLog.Info("restored events from database", "count", len(events))
	return nil
}

func initialState(cfg *config.Config) state.State {
	return state.Initial().WithRange(cfg.Range())
}

func buildSources(cfg *config.Config) []syncer.Source {
	var sources []syncer.Source

	fetcher := ics.NewFetcher(cfg.CacheDir)
	loc := cfg.Location()
	for _, c := range cfg.ICS {
		if c.URL == "" {
			continue
		}
		sources = append(sources, ics.NewCalendar(fetcher, ics.Source{ID: c.SourceID(), URL: c.URL}, loc))
	}

	if g := cfg.Google; g != nil {
		if g.AccessToken == "" {
			appLog.Warn("google calendar configured without access token; skipping",
				"env", config.EnvGoogleToken)
		} else {
			sources = append(sources, gcal.NewClient(gcal.NewStaticToken(g.AccessToken), g.CalendarID, g.BaseURL))
		}
	}

	if len(sources) == 0 {
		appLog.Warn("no calendar sources configured", "config", configPath)
	}
	return sources
}
