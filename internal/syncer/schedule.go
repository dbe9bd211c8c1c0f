package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appLog "hourcal/internal/log"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSchedule reports whether spec is a usable refresh schedule.
func ValidateSchedule(spec string) error {
	if _, err := cronParser.Parse(spec); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	return nil
}

// Schedule runs Run on spec (five-field cron or @every/@hourly style) in loc
// until ctx is cancelled. Overlapping runs are skipped.
func (s *Syncer) Schedule(ctx context.Context, spec string, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}
	logger := cronLogger{}
	c := cron.New(
		cron.WithParser(cronParser),
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(spec, func() {
		if _, err := s.Run(ctx); err != nil {
			appLog.Error("scheduled sync failed", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}

	appLog.Info("sync schedule started", "spec", spec, "tz", loc.String())
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	appLog.Info("sync schedule stopped")
	return nil
}

// cronLogger routes cron's logging through the application logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...interface{}) {
	appLog.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...interface{}) {
	appLog.Error("cron: "+msg, err, kv...)
}
