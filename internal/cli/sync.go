package cli

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"hourcal/internal/syncer"
	"hourcal/internal/timetrack"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync calendars once and exit",
	Long: `Fetch all configured calendars, store the usable events and a totals
snapshot in the database, and print what was synced.

Examples:
  hourcal sync
  hourcal sync --retain-days 365   # also delete events older than a year`,
	RunE: runSync,
}

var syncRetainDays int

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().IntVar(&syncRetainDays, "retain-days", 0, "Delete stored events that ended more than N days ago (0 keeps everything)")
}

func runSync(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	res, runErr := a.syncer.Run(ctx)
	out := cmd.OutOrStdout()

	if !errors.Is(runErr, syncer.ErrAllSourcesFailed) {
		fmt.Fprintf(out, "Synced %d events, %s tracked\n", len(res.Events), timetrack.FormatHours(res.Totals.Hours))
		reasons := make([]string, 0, len(res.Dropped))
		for r := range res.Dropped {
			reasons = append(reasons, r)
		}
		sort.Strings(reasons)
		for _, r := range reasons {
			fmt.Fprintf(out, "  dropped %-12s %d\n", r, res.Dropped[r])
		}
		for _, id := range res.Failed {
			fmt.Fprintf(out, "  failed source %s\n", id)
		}
	}

	if syncRetainDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -syncRetainDays)
		n, err := a.db.DeleteEventsBefore(ctx, cutoff)
		if err != nil {
			return errors.Join(runErr, err)
		}
		fmt.Fprintf(out, "Pruned %d events older than %s\n", n, cutoff.Format(time.DateOnly))
	}
	return runErr
}
