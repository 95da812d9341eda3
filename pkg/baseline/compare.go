package baseline

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/danpilch/fnprof/pkg/report"
)

// Severity indicates the magnitude of a timing drift.
type Severity string

const (
	SeverityNone        Severity = "none"
	SeverityMinor       Severity = "minor"
	SeverityModerate    Severity = "moderate"
	SeverityImprovement Severity = "improvement"
	SeverityRegress     Severity = "regression"
	SeverityAdded       Severity = "added"
	SeverityRemoved     Severity = "removed"
)

// Comparison holds the drift analysis for a single function.
type Comparison struct {
	Function      string
	BaselineMS    float64
	CurrentMS     float64
	BaselineCalls uint64
	CurrentCalls  uint64
	DeltaPct      float64
	Severity      Severity
}

var (
	blTitle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	blHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	blDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	blOK     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	blWarn   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	blErr    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	blMinor  = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
)

// Compare matches functions by name and calculates time drift. Functions
// present only in the current report are "added", functions that disappeared
// are "removed". Output follows the current report order, removed ones last.
func Compare(base, current *report.Document) []Comparison {
	baseByName := make(map[string]report.FunctionEntry, len(base.Functions))
	for _, f := range base.Functions {
		baseByName[f.Name] = f
	}

	var comparisons []Comparison
	seen := make(map[string]bool, len(current.Functions))
	for _, cur := range current.Functions {
		seen[cur.Name] = true
		c := Comparison{
			Function:     cur.Name,
			CurrentMS:    float64(cur.TimeMS),
			CurrentCalls: cur.Calls,
		}
		b, ok := baseByName[cur.Name]
		if !ok {
			c.Severity = SeverityAdded
			comparisons = append(comparisons, c)
			continue
		}
		c.BaselineMS = float64(b.TimeMS)
		c.BaselineCalls = b.Calls
		c.DeltaPct = drift(c.BaselineMS, c.CurrentMS)
		c.Severity = classifySeverity(c.DeltaPct)
		comparisons = append(comparisons, c)
	}

	for _, b := range base.Functions {
		if seen[b.Name] {
			continue
		}
		comparisons = append(comparisons, Comparison{
			Function:      b.Name,
			BaselineMS:    float64(b.TimeMS),
			BaselineCalls: b.Calls,
			DeltaPct:      -100,
			Severity:      SeverityRemoved,
		})
	}
	return comparisons
}

// drift is the change from base to cur in percent of base; growth from zero
// counts as 100%.
func drift(base, cur float64) float64 {
	if base != 0 {
		return (cur - base) / math.Abs(base) * 100
	}
	if cur != 0 {
		return 100
	}
	return 0
}

func classifySeverity(deltaPct float64) Severity {
	absDelta := math.Abs(deltaPct)
	if absDelta < 5 {
		return SeverityNone
	}
	if absDelta < 15 {
		return SeverityMinor
	}
	if absDelta < 30 {
		return SeverityModerate
	}
	if deltaPct > 0 {
		return SeverityRegress
	}
	return SeverityImprovement
}

// Regressions counts comparisons classified as regressions.
func Regressions(comparisons []Comparison) int {
	n := 0
	for _, c := range comparisons {
		if c.Severity == SeverityRegress {
			n++
		}
	}
	return n
}

// RenderComparison outputs a styled comparison table. label names the baseline.
func RenderComparison(w io.Writer, label string, comparisons []Comparison) {
	fmt.Fprintln(w, blTitle.Render("Baseline Comparison"))
	fmt.Fprintln(w, blDim.Render(strings.Repeat("═", 96)))
	fmt.Fprintf(w, "Comparing against %s\n\n",
		lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%q", label)))

	fmt.Fprintf(w, "  %s %s %s %s %s %s\n",
		blHeader.Render("FUNCTION                              "),
		blHeader.Render("BASE (MS)   "),
		blHeader.Render("CUR (MS)    "),
		blHeader.Render("CALLS     "),
		blHeader.Render("DELTA    "),
		blHeader.Render("SEVERITY   "))
	fmt.Fprintln(w, "  "+blDim.Render(strings.Repeat("─", 96)))

	for _, c := range comparisons {
		deltaStr := fmt.Sprintf("%+.1f%%", c.DeltaPct)
		if c.Severity == SeverityAdded || c.Severity == SeverityRemoved {
			deltaStr = "-"
		}

		calls := fmt.Sprintf("%d→%d", c.BaselineCalls, c.CurrentCalls)
		fmt.Fprintf(w, "  %s %-14.3f %-14.3f %-12s %-10s %s\n",
			report.FitName(c.Function), c.BaselineMS, c.CurrentMS, calls, deltaStr, severityLabel(c.Severity))
	}

	fmt.Fprintln(w)
	if n := Regressions(comparisons); n > 0 {
		fmt.Fprintf(w, "  %s\n", blErr.Render(fmt.Sprintf("%d potential regressions detected.", n)))
	} else {
		fmt.Fprintf(w, "  %s\n", blOK.Render("No significant regressions detected."))
	}
}

func severityLabel(s Severity) string {
	switch s {
	case SeverityRegress:
		return blErr.Render("REGRESSION")
	case SeverityImprovement:
		return blOK.Render("improved")
	case SeverityModerate:
		return blWarn.Render("moderate")
	case SeverityMinor:
		return blMinor.Render("minor")
	case SeverityAdded, SeverityRemoved:
		return blDim.Render(string(s))
	default:
		return blOK.Render("none")
	}
}
