package framework

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// PrintResults renders one row per test followed by totals.
func PrintResults(w io.Writer, results Results) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Test Results")
	t.AppendHeader(table.Row{"Test", "Cases", "Result", "Duration"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Result", Align: text.AlignCenter},
		{Name: "Duration", Align: text.AlignRight},
	})

	var elapsed time.Duration
	for _, r := range results.Tests {
		elapsed += r.Elapsed
		t.AppendRow(table.Row{
			r.TestID.String(),
			strings.Join(r.CaseIDs, ", "),
			strings.ToUpper(r.Outcome),
			formatDuration(r.Elapsed),
		})
	}

	t.AppendFooter(table.Row{
		fmt.Sprintf("%d tests", len(results.Tests)),
		fmt.Sprintf("%d passed, %d failed, %d skipped",
			results.Count(OutcomePassed), results.Count(OutcomeFailed), results.Count(OutcomeSkipped)),
		statusText(results),
		formatDuration(elapsed),
	})

	if results.OK() {
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	} else {
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}
	t.Style().Format.Footer = text.FormatDefault
	t.Render()
}

func statusText(results Results) string {
	if results.OK() {
		return "PASS"
	}
	return "FAIL"
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Truncate(time.Millisecond).String()
}
