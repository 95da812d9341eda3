package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

const nameColumnWidth = 40

var (
	summaryTitle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	summaryHeader = lipgloss.NewStyle().Bold(true)
	summaryDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// FitName truncates name to the 40-cell name column with a trailing "..." or
// pads it with spaces.
func FitName(name string) string {
	return runewidth.FillRight(runewidth.Truncate(name, nameColumnWidth, "..."), nameColumnWidth)
}

// WriteSummary prints the fixed-width per-function table followed by the path
// of the JSON report.
func WriteSummary(w io.Writer, doc *Document, jsonPath string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, summaryTitle.Render("=== Profile Summary ==="))
	fmt.Fprintln(w, summaryHeader.Render(fmt.Sprintf("%-40s %12s %12s %8s", "Function", "Calls", "Time (ms)", "%")))
	fmt.Fprintln(w, summaryDim.Render(fmt.Sprintf("%-40s %12s %12s %8s",
		strings.Repeat("-", 40), strings.Repeat("-", 12), strings.Repeat("-", 12), strings.Repeat("-", 8))))

	for _, f := range doc.Functions {
		fmt.Fprintf(w, "%s %12d %12.3f %7.2f%%\n",
			FitName(f.Name), f.Calls, float64(f.TimeMS), float64(f.Percent))
	}

	fmt.Fprintf(w, "\nProfile data written to: %s\n", jsonPath)
}

// WriteFlameGraphHint names the folded-stack file and how to render it.
func WriteFlameGraphHint(w io.Writer, foldedPath string) {
	fmt.Fprintf(w, "Flame graph data written to: %s\n", foldedPath)
	fmt.Fprintf(w, "  Generate SVG with: flamegraph.pl %s > profile.svg\n", foldedPath)
}
