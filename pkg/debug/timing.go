package debug

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	debugTitle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	debugHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	debugDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	debugErr    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// PhaseTiming records the duration and outcome of one report phase.
type PhaseTiming struct {
	Name     string
	Duration time.Duration
	Err      error
}

// PhaseTimer collects phase timings in execution order.
type PhaseTimer struct {
	timings []PhaseTiming
}

// NewPhaseTimer creates an empty timer.
func NewPhaseTimer() *PhaseTimer {
	return &PhaseTimer{}
}

// Time runs fn, records how long it took and returns its error.
func (t *PhaseTimer) Time(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	t.timings = append(t.timings, PhaseTiming{
		Name:     name,
		Duration: time.Since(start),
		Err:      err,
	})
	return err
}

// Timings returns the recorded phases.
func (t *PhaseTimer) Timings() []PhaseTiming {
	return t.timings
}

// TimingReport prints a styled summary of the finalize phases.
func TimingReport(w io.Writer, timings []PhaseTiming) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, debugTitle.Render("Finalize Timing Report"))
	fmt.Fprintln(w, debugDim.Render(strings.Repeat("═", 40)))
	fmt.Fprintf(w, "  %s  %s\n",
		debugHeader.Render("PHASE              "),
		debugHeader.Render("DURATION    "))
	fmt.Fprintln(w, "  "+debugDim.Render(strings.Repeat("─", 40)))

	var total time.Duration
	for _, t := range timings {
		line := fmt.Sprintf("  %-20s %v", t.Name, t.Duration)
		if t.Err != nil {
			line += "  " + debugErr.Render("failed: "+t.Err.Error())
		}
		fmt.Fprintln(w, line)
		total += t.Duration
	}
	fmt.Fprintln(w, "  "+debugDim.Render(strings.Repeat("─", 40)))
	fmt.Fprintf(w, "  %-20s %v\n",
		lipgloss.NewStyle().Bold(true).Render("TOTAL"), total)
}
