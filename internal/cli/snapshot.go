package cli

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"hourcal/internal/capture"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Save a PNG of the running dashboard",
	Long: `Open the dashboard of a running "hourcal serve" in headless Chromium and
save a full-page PNG once the page reports it is ready.

Examples:
  hourcal snapshot --out week.png --range week`,
	RunE: runSnapshot,
}

var (
	snapshotURL     string
	snapshotOut     string
	snapshotRange   string
	snapshotWidth   int
	snapshotHeight  int
	snapshotTimeout time.Duration
)

func init() {
	rootCmd.AddCommand(snapshotCmd)
	f := snapshotCmd.Flags()
	f.StringVar(&snapshotURL, "url", "", "Dashboard URL (default http://<listen>/)")
	f.StringVarP(&snapshotOut, "out", "o", "hourcal.png", "Output PNG path")
	f.StringVarP(&snapshotRange, "range", "r", "", "Period to show: day, week, month, year, all")
	f.IntVar(&snapshotWidth, "width", capture.DefaultWidth, "Viewport width in pixels")
	f.IntVar(&snapshotHeight, "height", capture.DefaultHeight, "Viewport height in pixels")
	f.DurationVar(&snapshotTimeout, "timeout", capture.DefaultTimeoutSec*time.Second, "Capture timeout")
}

func runSnapshot(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	target, err := snapshotTarget(snapshotURL, cfg.Listen, snapshotRange)
	if err != nil {
		return err
	}

	opts := capture.CaptureOptions{
		URL:        target,
		OutputPath: snapshotOut,
		Width:      snapshotWidth,
		Height:     snapshotHeight,
		Timeout:    snapshotTimeout,
	}
	if cfg.BasicAuth != nil {
		opts.Username = cfg.BasicAuth.Username
		opts.Password = cfg.BasicAuth.Password
	}
	if err := capture.CaptureDashboardPNG(cmd.Context(), opts); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", snapshotOut)
	return nil
}

func snapshotTarget(raw, listen, rng string) (string, error) {
	if raw == "" {
		raw = "http://" + listen + "/"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid --url: %w", err)
	}
	if rng != "" {
		q := u.Query()
		q.Set("range", rng)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
