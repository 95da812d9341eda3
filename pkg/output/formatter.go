// Package output provides formatters for displaying profile reports.
package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/danpilch/fnprof/pkg/report"
)

// Format represents the output format type.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatTSV   Format = "tsv"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTable, FormatJSON, FormatTSV:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want table, json or tsv)", s)
}

// Formatter handles output formatting.
type Formatter struct {
	format   Format
	writer   io.Writer
	top      int
	showBars bool
}

// NewFormatter creates a new formatter.
func NewFormatter(format Format, writer io.Writer) *Formatter {
	return &Formatter{
		format:   format,
		writer:   writer,
		showBars: true,
	}
}

// SetTop limits table and TSV output to the n most expensive functions.
// Zero means no limit.
func (f *Formatter) SetTop(n int) {
	f.top = n
}

// SetShowBars toggles the percentage bar column of the table format.
func (f *Formatter) SetShowBars(show bool) {
	f.showBars = show
}

// Render outputs the report in the configured format.
func (f *Formatter) Render(doc *report.Document) error {
	switch f.format {
	case FormatJSON:
		return report.WriteJSON(f.writer, doc)
	case FormatTSV:
		return f.renderTSV(doc)
	default:
		return f.renderTable(doc)
	}
}

// ranked returns functions by descending time, cut to the top limit.
func (f *Formatter) ranked(doc *report.Document) []report.FunctionEntry {
	fns := make([]report.FunctionEntry, len(doc.Functions))
	copy(fns, doc.Functions)
	sort.SliceStable(fns, func(i, j int) bool {
		return fns[i].TimeMS > fns[j].TimeMS
	})
	if f.top > 0 && len(fns) > f.top {
		fns = fns[:f.top]
	}
	return fns
}

// renderTable outputs the report as a styled table.
func (f *Formatter) renderTable(doc *report.Document) error {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("15")).
		Background(lipgloss.Color("62")).
		Padding(0, 1)

	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	numStyle := cellStyle.Align(lipgloss.Right)
	hotStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warmStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11"))

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		MarginBottom(1)

	fmt.Fprintln(f.writer, titleStyle.Render("Function Profile"))
	fmt.Fprintln(f.writer, strings.Repeat("═", 60))
	fmt.Fprintln(f.writer)

	fns := f.ranked(doc)
	rows := make([][]string, len(fns))
	for i, fn := range fns {
		pct := fmt.Sprintf("%.2f%%", float64(fn.Percent))
		switch {
		case fn.Percent >= 50:
			pct = hotStyle.Render(pct)
		case fn.Percent >= 20:
			pct = warmStyle.Render(pct)
		}
		row := []string{
			fn.Name,
			fmt.Sprintf("%d", fn.Calls),
			fmt.Sprintf("%.3f", float64(fn.TimeMS)),
			pct,
		}
		if f.showBars {
			row = append(row, PercentBar(float64(fn.Percent), 20))
		}
		rows[i] = row
	}

	headers := []string{"FUNCTION", "CALLS", "TIME (MS)", "%"}
	if f.showBars {
		headers = append(headers, "SHARE")
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col >= 1 && col <= 3 {
				return numStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)

	fmt.Fprintln(f.writer, t)
	fmt.Fprintln(f.writer)
	fmt.Fprintf(f.writer, "Total: %s across %d functions\n",
		lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%.3f ms", float64(doc.TotalTimeMS))),
		len(doc.Functions))
	return nil
}

// renderTSV outputs the report as tab-separated values.
func (f *Formatter) renderTSV(doc *report.Document) error {
	fmt.Fprintln(f.writer, "FUNCTION\tCALLS\tTIME_MS\tPERCENT")
	for _, fn := range f.ranked(doc) {
		fmt.Fprintf(f.writer, "%s\t%d\t%.3f\t%.2f\n",
			fn.Name, fn.Calls, float64(fn.TimeMS), float64(fn.Percent))
	}
	return nil
}
