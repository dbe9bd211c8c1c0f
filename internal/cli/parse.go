package cli

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"hourcal/internal/timetrack"
)

var parseCmd = &cobra.Command{
	Use:   "parse <title>",
	Short: "Show how an event title is split into project and activity",
	Long: `Parse a calendar event title of the form "Project#activity description"
and print the result as JSON. Useful to check naming before creating events.

Examples:
  hourcal parse "Marvel#design Making homepage"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	parsed := timetrack.ParseTitle(strings.Join(args, " "))
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		timetrack.ParsedTitle
		Tag   string `json:"tag"`
		Color string `json:"color"`
	}{
		ParsedTitle: parsed,
		Tag:         timetrack.ProjectTag(parsed.Project),
		Color:       timetrack.ActivityColor(parsed.Activity, nil),
	})
}
