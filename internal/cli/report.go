package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Veraticus/ga4sync/internal/history"
)

// RenderRunSummary renders the outcome of one sync run as a boxed summary.
func RenderRunSummary(run history.Run) string {
	var title string
	switch run.Status {
	case history.StatusSucceeded:
		title = FormatSuccess("Sync complete")
	case history.StatusSkipped:
		title = FormatWarning("No new data, sheet left untouched")
	default:
		title = FormatError("Sync failed")
	}

	lines := []string{
		summaryLine("Run", run.ID),
		summaryLine("Dates", run.StartDate+" to "+run.EndDate),
		summaryLine("Fetched", fmt.Sprintf("%d rows", run.Fetched)),
	}
	if run.Status != history.StatusSkipped {
		lines = append(lines,
			summaryLine("Worksheet", run.Worksheet),
			summaryLine("Existing", fmt.Sprintf("%d rows", run.Existing)),
			summaryLine("Replaced", fmt.Sprintf("%d rows", run.Superseded)),
			summaryLine("Written", fmt.Sprintf("%d rows", run.Written)),
		)
	}
	if len(run.DuplicateDates) > 0 {
		lines = append(lines, summaryLine("Refreshed", strings.Join(run.DuplicateDates, ", ")))
	}
	lines = append(lines, summaryLine("Took", run.Duration().Round(time.Millisecond).String()))
	if run.Error != "" {
		lines = append(lines, ErrorStyle.Render(run.Error))
	}

	return RenderBox(title, strings.Join(lines, "\n"))
}

func summaryLine(label, value string) string {
	return SubtleStyle.Render(fmt.Sprintf("%-10s", label)) + " " + value
}

// RenderHistory writes recent runs as an aligned table.
func RenderHistory(w io.Writer, runs []history.Run, now time.Time) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, FormatInfo("No sync runs recorded yet"))
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	header := []string{"STARTED", "STATUS", "DATES", "FETCHED", "REPLACED", "WRITTEN", "ERROR"}
	for i, name := range header {
		header[i] = TableHeaderStyle.Render(name)
	}
	if _, err := fmt.Fprintln(tw, strings.Join(header, "\t")); err != nil {
		return err
	}

	for _, run := range runs {
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			FormatRelativeTime(run.StartedAt, now),
			statusLabel(run.Status),
			run.StartDate+".."+run.EndDate,
			run.Fetched,
			run.Superseded,
			run.Written,
			truncate(run.Error, 60),
		); err != nil {
			return err
		}
	}

	return tw.Flush()
}

func statusLabel(s history.Status) string {
	switch s {
	case history.StatusSucceeded:
		return SuccessStyle.Render(string(s))
	case history.StatusSkipped:
		return SubtleStyle.Render(string(s))
	default:
		return ErrorStyle.Render(string(s))
	}
}

// FormatRelativeTime renders t relative to now, falling back to a date after a week.
func FormatRelativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("2006-01-02 15:04")
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
