package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"hourcal/internal/config"
	appLog "hourcal/internal/log"
	"hourcal/internal/syncer"
	"hourcal/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard and sync on a schedule",
	Long: `Start the HTTP dashboard and JSON API, sync once immediately and then on
the configured refresh schedule. Edits to the config file are picked up
without a restart (calendar sources excepted).

Examples:
  hourcal serve
  hourcal serve --listen 0.0.0.0:8080`,
	RunE: runServe,
}

var serveListen string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "HTTP listen address (overrides config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if serveListen != "" {
		a.cfg.Listen = serveListen
	}
	if err := syncer.ValidateSchedule(a.cfg.RefreshCron); err != nil {
		return err
	}

	appLog.Info("hourcal starting",
		"version", Version,
		"listen", a.cfg.Listen,
		"timezone", a.cfg.Timezone,
		"refresh", a.cfg.RefreshCron,
		"ics_count", len(a.cfg.ICS),
		"google", a.cfg.Google != nil,
		"database", a.cfg.DatabasePath,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			appLog.Info("signal received, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := a.restore(ctx); err != nil {
		appLog.Error("failed to restore events", err)
	}

	server := web.NewServer(web.Options{
		Config:    a.cfg,
		State:     a.state,
		Refresher: a.syncer,
		Metrics:   a.metrics,
	})

	go func() {
		if _, err := a.syncer.Run(ctx); err != nil {
			appLog.Error("initial sync failed", err)
		}
	}()

	go func() {
		if err := a.syncer.Schedule(ctx, a.cfg.RefreshCron, a.cfg.Location()); err != nil {
			appLog.Error("sync schedule stopped", err)
		}
	}()

	go func() {
		listen := a.cfg.Listen
		err := config.Watch(ctx, configPath, func(next *config.Config) {
			next.Listen = listen
			if logLevel == "" {
				appLog.SetLevel(appLog.ParseLevel(next.LogLevel))
			}
			server.SetConfig(next)
		})
		if err != nil {
			appLog.Error("config watch stopped", err, "path", configPath)
		}
	}()

	err = server.ListenAndServe(ctx)
	cancel()
	appLog.Info("hourcal exiting")
	return err
}
