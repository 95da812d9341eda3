package baseline

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/danpilch/fnprof/pkg/flamegraph"
	"github.com/danpilch/fnprof/pkg/report"
)

// StackComparison is the drift of one folded call stack.
type StackComparison struct {
	Stack      string
	BaselineUS int64
	CurrentUS  int64
	DeltaPct   float64
	Severity   Severity
}

// ShiftUS is the absolute change in microseconds.
func (c StackComparison) ShiftUS() int64 {
	d := c.CurrentUS - c.BaselineUS
	if d < 0 {
		return -d
	}
	return d
}

// CompareStacks matches folded stacks by their full frame path. The result is
// ordered by absolute time shift, largest first, so the stacks that moved the
// profile most lead; ties sort by stack.
func CompareStacks(base, current flamegraph.Stacks) []StackComparison {
	out := make([]StackComparison, 0, max(len(base), len(current)))
	for stack, cur := range current {
		c := StackComparison{Stack: stack, CurrentUS: cur}
		b, ok := base[stack]
		if !ok {
			c.Severity = SeverityAdded
		} else {
			c.BaselineUS = b
			c.DeltaPct = drift(float64(b), float64(cur))
			c.Severity = classifySeverity(c.DeltaPct)
		}
		out = append(out, c)
	}
	for stack, b := range base {
		if _, ok := current[stack]; ok {
			continue
		}
		out = append(out, StackComparison{Stack: stack, BaselineUS: b, DeltaPct: -100, Severity: SeverityRemoved})
	}

	slices.SortFunc(out, func(a, b StackComparison) int {
		if c := cmp.Compare(b.ShiftUS(), a.ShiftUS()); c != 0 {
			return c
		}
		return strings.Compare(a.Stack, b.Stack)
	})
	return out
}

// RenderStackComparison prints the top stacks by time shift; top <= 0 prints
// all. Stacks are shown leaf first, truncated to the name column.
func RenderStackComparison(w io.Writer, comparisons []StackComparison, top int) {
	fmt.Fprintln(w, blTitle.Render("Call Stack Drift"))
	fmt.Fprintln(w, blDim.Render(strings.Repeat("═", 96)))

	shown := comparisons
	if top > 0 && len(shown) > top {
		shown = shown[:top]
	}
	fmt.Fprintf(w, "  %s %s %s %s %s\n",
		blHeader.Render("STACK (LEAF FIRST)                    "),
		blHeader.Render("BASE (MS)   "),
		blHeader.Render("CUR (MS)    "),
		blHeader.Render("DELTA    "),
		blHeader.Render("SEVERITY   "))
	fmt.Fprintln(w, "  "+blDim.Render(strings.Repeat("─", 96)))

	for _, c := range shown {
		deltaStr := fmt.Sprintf("%+.1f%%", c.DeltaPct)
		if c.Severity == SeverityAdded || c.Severity == SeverityRemoved {
			deltaStr = "-"
		}
		fmt.Fprintf(w, "  %s %-14.3f %-14.3f %-10s %s\n",
			report.FitName(leafFirst(c.Stack)),
			float64(c.BaselineUS)/1000, float64(c.CurrentUS)/1000,
			deltaStr, severityLabel(c.Severity))
	}
	if hidden := len(comparisons) - len(shown); hidden > 0 {
		fmt.Fprintln(w, blDim.Render(fmt.Sprintf("  ... %d more stacks", hidden)))
	}
}

// leafFirst reverses a folded stack so truncation keeps the innermost frames.
func leafFirst(stack string) string {
	frames := strings.Split(stack, ";")
	slices.Reverse(frames)
	return strings.Join(frames, " < ")
}

// StackRegressions counts regressed stacks.
func StackRegressions(comparisons []StackComparison) int {
	n := 0
	for _, c := range comparisons {
		if c.Severity == SeverityRegress {
			n++
		}
	}
	return n
}
