// Package report renders tracked hours for the terminal.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/guptarohit/asciigraph"

	"hourcal/internal/model"
	"hourcal/internal/timetrack"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	overStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Padding(0, 1)
)

// Options controls what the report shows.
type Options struct {
	Title    string
	Window   timetrack.Window
	Location *time.Location

	// ActivityColors overrides activity colours (keys normalized).
	ActivityColors map[string]string
	// Projects adds a budget section for configured projects.
	Projects []timetrack.ProjectInfo

	ChartWidth  int
	ChartHeight int
}

// Render writes the project table, optional budgets and a daily hours chart
// for events. Events are expected to be filtered already.
func Render(w io.Writer, events []model.CalendarEvent, opts Options) error {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Title == "" {
		opts.Title = "Tracked hours"
	}

	totals := timetrack.Aggregate(events)

	var b strings.Builder
	if !writeSummary(&b, totals, opts) {
		_, err := io.WriteString(w, b.String())
		return err
	}

	if bt := budgetTable(events, opts.Projects); bt != nil {
		b.WriteString("\n")
		b.WriteString(bt.String())
		b.WriteString("\n")
	}

	if chart := dailyChart(events, opts); chart != "" {
		b.WriteString("\n")
		b.WriteString(chart)
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderTotals writes the header and project table for precomputed totals,
// e.g. a stored snapshot.
func RenderTotals(w io.Writer, totals timetrack.Totals, opts Options) error {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Title == "" {
		opts.Title = "Tracked hours"
	}
	var b strings.Builder
	writeSummary(&b, totals, opts)
	_, err := io.WriteString(w, b.String())
	return err
}

// writeSummary reports whether there was anything to summarize.
func writeSummary(b *strings.Builder, totals timetrack.Totals, opts Options) bool {
	b.WriteString(titleStyle.Render(opts.Title))
	if span := describeWindow(opts.Window, opts.Location); span != "" {
		b.WriteString(" " + mutedStyle.Render(span))
	}
	b.WriteString("\n\n")

	if totals.Counted == 0 {
		b.WriteString(mutedStyle.Render("No tracked events in this period."))
		b.WriteString("\n")
		return false
	}

	b.WriteString(projectTable(totals, opts).String())
	b.WriteString("\n")
	fmt.Fprintf(b, "Total: %s across %d events", timetrack.FormatHours(totals.Hours), totals.Counted)
	if totals.Skipped > 0 {
		fmt.Fprintf(b, " (%d skipped)", totals.Skipped)
	}
	b.WriteString("\n")
	return true
}

func projectTable(totals timetrack.Totals, opts Options) *table.Table {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("Project", "Activity", "Hours", "Share")

	type rowKind struct {
		activity string
		project  bool
	}
	var kinds []rowKind
	for _, ps := range totals.Summaries() {
		t.Row(ps.Label, "", timetrack.FormatHours(ps.Hours), percent(ps.Hours, totals.Hours))
		kinds = append(kinds, rowKind{project: true})
		for _, a := range ps.Activities {
			t.Row("", a.Label, timetrack.FormatHours(a.Hours), percent(a.Hours, ps.Hours))
			kinds = append(kinds, rowKind{activity: a.Label})
		}
	}

	return t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		if row < 0 || row >= len(kinds) {
			return cellStyle
		}
		k := kinds[row]
		switch {
		case k.project:
			return cellStyle.Bold(true)
		case col == 1:
			return cellStyle.Foreground(lipgloss.Color(timetrack.ActivityColor(k.activity, opts.ActivityColors)))
		default:
			return cellStyle
		}
	})
}

// budgetTable lists configured projects with a budget or rate; nil when
// none qualifies.
func budgetTable(events []model.CalendarEvent, projects []timetrack.ProjectInfo) *table.Table {
	var tracked []timetrack.ProjectInfo
	for _, p := range projects {
		if !p.Hidden && (p.BudgetHours > 0 || p.HourlyRate > 0) {
			tracked = append(tracked, p)
		}
	}
	if len(tracked) == 0 {
		return nil
	}

	hours := make(map[string]float64)
	for _, ev := range events {
		h, ok := timetrack.Hours(ev.Start, ev.End)
		if !ok {
			continue
		}
		if p, found := timetrack.MatchProject(ev.Title, timetrack.ParseTitle(ev.Title), projects); found {
			hours[timetrack.Key(p.Name)] += h
		}
	}

	var over []bool
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("Budget", "Used", "Remaining", "Value")
	for _, p := range tracked {
		st := timetrack.Budget(p, hours[timetrack.Key(p.Name)])
		remaining, value := "-", "-"
		switch {
		case st.Budget > 0 && st.Remaining < 0:
			remaining = fmt.Sprintf("over %s (%.0f%%)", timetrack.FormatHours(-st.Remaining), st.Percent)
		case st.Budget > 0:
			remaining = fmt.Sprintf("%s (%.0f%%)", timetrack.FormatHours(st.Remaining), st.Percent)
		}
		if st.Value > 0 {
			value = fmt.Sprintf("%.2f", st.Value)
		}
		t.Row(timetrack.ProjectTag(p.Name)+" "+p.Name, timetrack.FormatHours(st.Hours), remaining, value)
		over = append(over, st.Budget > 0 && st.Remaining < 0)
	}
	return t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		if row >= 0 && row < len(over) && over[row] && col == 2 {
			return overStyle
		}
		return cellStyle
	})
}

// dailyChart plots hours per day over the window, or over the span of the
// events when the window is open. Fewer than two days are not plotted.
func dailyChart(events []model.CalendarEvent, opts Options) string {
	from, to := opts.Window.Start, opts.Window.End
	if from.IsZero() || to.IsZero() {
		first, last := span(events)
		if from.IsZero() {
			from = first
		}
		if to.IsZero() {
			to = last
		}
	}
	if from.IsZero() || to.IsZero() {
		return ""
	}

	days := timetrack.DailyHours(events, from, to, opts.Location)
	if len(days) < 2 {
		return ""
	}
	data := make([]float64, len(days))
	for i, d := range days {
		data[i] = d.Hours
	}

	width := opts.ChartWidth
	if width < 20 {
		width = max(20, len(data))
	}
	height := opts.ChartHeight
	if height < 3 {
		height = 8
	}
	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(1),
		asciigraph.Caption(fmt.Sprintf("hours per day, %s to %s", days[0].Date, days[len(days)-1].Date)),
	)
}

func describeWindow(w timetrack.Window, loc *time.Location) string {
	switch {
	case w.IsZero():
		return "(all time)"
	case w.Start.IsZero():
		return "(until " + w.End.In(loc).Format(time.DateOnly) + ")"
	case w.End.IsZero():
		return "(since " + w.Start.In(loc).Format(time.DateOnly) + ")"
	}
	return "(" + w.Start.In(loc).Format(time.DateOnly) + " to " + w.End.In(loc).Format(time.DateOnly) + ")"
}

func percent(part, whole float64) string {
	if whole <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.0f%%", part/whole*100)
}

func span(events []model.CalendarEvent) (time.Time, time.Time) {
	var first, last time.Time
	for _, ev := range events {
		if ev.Start.IsZero() {
			continue
		}
		if first.IsZero() || ev.Start.Before(first) {
			first = ev.Start
		}
		if last.IsZero() || ev.Start.After(last) {
			last = ev.Start
		}
	}
	return first, last
}
