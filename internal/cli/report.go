package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"hourcal/internal/report"
	"hourcal/internal/store"
	"hourcal/internal/timetrack"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print tracked hours in the terminal",
	Long: `Print per-project and per-activity totals for stored events, with budgets
and a chart of hours per day.

Examples:
  hourcal report                         # configured default range
  hourcal report --range week
  hourcal report --from 2024-03-01 --to 2024-03-31 --project Marvel
  hourcal report --sync                  # sync first
  hourcal report --last                  # last saved totals snapshot`,
	RunE: runReport,
}

var (
	reportRange    string
	reportFrom     string
	reportTo       string
	reportProject  string
	reportActivity string
	reportSearch   string
	reportSync     bool
	reportLast     bool
)

func init() {
	rootCmd.AddCommand(reportCmd)
	f := reportCmd.Flags()
	f.StringVarP(&reportRange, "range", "r", "", "Period: day, week, month, year, all")
	f.StringVar(&reportFrom, "from", "", "Start date (YYYY-MM-DD), overrides --range")
	f.StringVar(&reportTo, "to", "", "End date (YYYY-MM-DD, inclusive), overrides --range")
	f.StringVarP(&reportProject, "project", "p", "", "Only this project")
	f.StringVarP(&reportActivity, "activity", "a", "", "Only this activity")
	f.StringVarP(&reportSearch, "search", "q", "", "Free-text search")
	f.BoolVar(&reportSync, "sync", false, "Sync calendars before reporting")
	f.BoolVar(&reportLast, "last", false, "Show the last saved totals snapshot")
}

func runReport(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	loc := a.cfg.Location()

	if reportLast {
		snap, err := a.db.LatestTotals(ctx)
		if errors.Is(err, store.ErrNoSnapshot) {
			fmt.Fprintln(out, "No snapshot saved yet; run `hourcal sync` first.")
			return nil
		}
		if err != nil {
			return err
		}
		return report.RenderTotals(out, snap.Totals, report.Options{
			Title:          "Snapshot " + snap.ComputedAt.In(loc).Format(time.DateTime),
			Window:         snap.Window,
			Location:       loc,
			ActivityColors: a.cfg.ActivityColors,
		})
	}

	if reportSync {
		if _, err := a.syncer.Run(ctx); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "sync: %v\n", err)
		}
	}

	rng := a.cfg.Range()
	if reportRange != "" {
		if rng, err = timetrack.ParseRange(reportRange); err != nil {
			return err
		}
	}
	window := timetrack.ResolveWindow(rng, time.Now().In(loc), a.cfg.Weekday())
	title := "Tracked hours, " + rng.String()
	if reportFrom != "" || reportTo != "" {
		if window, err = dateWindow(reportFrom, reportTo, loc); err != nil {
			return err
		}
		title = "Tracked hours"
	}

	events, err := a.db.Events(ctx, window.Start, window.End)
	if err != nil {
		return err
	}
	events = timetrack.Apply(events, timetrack.Filter{
		Search:   reportSearch,
		Project:  reportProject,
		Activity: reportActivity,
	})

	return report.Render(out, events, report.Options{
		Title:          title,
		Window:         window,
		Location:       loc,
		ActivityColors: a.cfg.ActivityColors,
		Projects:       a.cfg.ProjectInfos(),
	})
}

// dateWindow builds an inclusive window from YYYY-MM-DD bounds; either may
// be empty.
func dateWindow(from, to string, loc *time.Location) (timetrack.Window, error) {
	var w timetrack.Window
	if from != "" {
		t, err := time.ParseInLocation(time.DateOnly, from, loc)
		if err != nil {
			return w, fmt.Errorf("invalid --from: %w", err)
		}
		w.Start = t
	}
	if to != "" {
		t, err := time.ParseInLocation(time.DateOnly, to, loc)
		if err != nil {
			return w, fmt.Errorf("invalid --to: %w", err)
		}
		w.End = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	if !w.Start.IsZero() && !w.End.IsZero() && w.End.Before(w.Start) {
		return w, errors.New("--to is before --from")
	}
	return w, nil
}
