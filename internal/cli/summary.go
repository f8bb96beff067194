package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"mert-convert/internal/model"
)

var (
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
)

// printSummary writes warnings, failures and the totals table.
func printSummary(w io.Writer, r model.BatchResult, interrupted bool) {
	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("Warnings (%d):", len(r.Warnings))))
		for _, msg := range r.Warnings {
			fmt.Fprintln(w, warnStyle.Render("  - "+msg))
		}
		fmt.Fprintln(w)
	}
	if len(r.Failures) > 0 {
		fmt.Fprintln(w, failStyle.Render(fmt.Sprintf("Failed (%d):", len(r.Failures))))
		for _, msg := range r.Failures {
			fmt.Fprintln(w, "  - "+msg)
		}
		fmt.Fprintln(w)
	}
	if interrupted {
		fmt.Fprintln(w, warnStyle.Render("Interrupted: remaining files were skipped."))
	}
	fmt.Fprintln(w, renderTable([]string{"Result", "Value"}, summaryRows(r), []columnAlignment{alignLeft, alignRight}))
}

func summaryRows(r model.BatchResult) [][]string {
	rows := [][]string{
		{"Converted", strconv.Itoa(r.Converted)},
		{"Failed", strconv.Itoa(r.Failed)},
		{"Skipped", strconv.Itoa(r.Skipped)},
		{"Input size", humanize.IBytes(uint64(max(r.InputBytes, 0)))},
		{"Output size", humanize.IBytes(uint64(max(r.OutputBytes, 0)))},
	}
	if r.InputBytes > 0 && r.OutputBytes > 0 {
		saved := 100 - float64(r.OutputBytes)*100/float64(r.InputBytes)
		rows = append(rows, []string{"Saved", fmt.Sprintf("%.1f%%", saved)})
	}
	rows = append(rows,
		[]string{"Workers", strconv.Itoa(r.Workers)},
		[]string{"Elapsed", r.Elapsed().Round(100 * time.Millisecond).String()},
	)
	return rows
}
