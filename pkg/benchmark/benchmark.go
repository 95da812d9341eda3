// Package benchmark measures the overhead of the profiling hooks.
package benchmark

import (
	"fmt"
	"io"
	"math"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/danpilch/fnprof/pkg/profiler"
)

// Options configures a benchmark run.
type Options struct {
	Iterations int
	Warmup     int
	// Depth is the number of frames already on the stack when the measured
	// enter/exit pair runs.
	Depth int
	// Config sizes the profiler under test; nil uses the defaults. Signal
	// handling and the console summary are always off.
	Config *profiler.Config
}

// DefaultOptions returns sensible benchmark defaults.
func DefaultOptions() Options {
	return Options{
		Iterations: 10000,
		Warmup:     100,
		Depth:      8,
	}
}

// Result holds latency statistics for one hook scenario.
type Result struct {
	Scenario  string
	Latencies []time.Duration
	P50       time.Duration
	P95       time.Duration
	P99       time.Duration
	StdDevNS  float64
}

// Overhead holds the tool's own resource usage.
type Overhead struct {
	AllocBytes uint64
	AllocCount uint64
	GCPauses   uint32
}

type scenario struct {
	name string
	run  func(th *profiler.Thread, id int)
}

var (
	bmTitle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	bmHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	bmDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Run measures hook latency on a private profiler that writes no artifacts.
func Run(opts Options) []Result {
	if opts.Iterations <= 0 {
		opts.Iterations = 1
	}
	if opts.Depth < 0 {
		opts.Depth = 0
	}

	cfg := profiler.DefaultConfig()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	cfg.HandleSignals = false
	cfg.Summary = false
	p := profiler.New(cfg)

	// ids 0..Depth-1 hold the outer frames, Depth is the measured function
	leaf := opts.Depth
	scenarios := []scenario{
		{"enter+exit", func(th *profiler.Thread, id int) {
			th.Enter(id, "leaf")
			th.Exit(id)
		}},
		{"enter+exit (nested)", func(th *profiler.Thread, id int) {
			th.Enter(id, "leaf")
			th.Enter(id+1, "inner")
			th.Exit(id + 1)
			th.Exit(id)
		}},
	}

	var results []Result
	for _, sc := range scenarios {
		th := p.NewThread()
		for i := 0; i < opts.Depth; i++ {
			th.Enter(i, fmt.Sprintf("outer_%d", i))
		}

		for i := 0; i < opts.Warmup; i++ {
			sc.run(th, leaf)
		}

		latencies := make([]time.Duration, opts.Iterations)
		for i := range latencies {
			start := time.Now()
			sc.run(th, leaf)
			latencies[i] = time.Since(start)
		}

		for i := opts.Depth - 1; i >= 0; i-- {
			th.Exit(i)
		}

		slices.Sort(latencies)
		values := make([]float64, len(latencies))
		for i, l := range latencies {
			values[i] = float64(l.Nanoseconds())
		}

		results = append(results, Result{
			Scenario:  fmt.Sprintf("%s @ depth %d", sc.name, opts.Depth),
			Latencies: latencies,
			P50:       percentile(latencies, 0.50),
			P95:       percentile(latencies, 0.95),
			P99:       percentile(latencies, 0.99),
			StdDevNS:  stddev(values),
		})
	}

	return results
}

// MeasureOverhead returns the tool's memory overhead.
func MeasureOverhead() Overhead {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return Overhead{
		AllocBytes: m.TotalAlloc,
		AllocCount: m.Mallocs,
		GCPauses:   m.NumGC,
	}
}

// RenderResults outputs styled benchmark results.
func RenderResults(w io.Writer, results []Result, overhead Overhead) {
	fmt.Fprintln(w, bmTitle.Render("Hook Benchmark Results"))
	fmt.Fprintln(w, bmDim.Render(strings.Repeat("═", 78)))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s %s %s %s %s\n",
		bmHeader.Render("SCENARIO                    "),
		bmHeader.Render("P50        "),
		bmHeader.Render("P95        "),
		bmHeader.Render("P99        "),
		bmHeader.Render("STDDEV (NS)"))
	fmt.Fprintln(w, "  "+bmDim.Render(strings.Repeat("─", 78)))

	for _, r := range results {
		fmt.Fprintf(w, "  %-29s %-12v %-12v %-12v %.1f\n",
			r.Scenario, r.P50, r.P95, r.P99, r.StdDevNS)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, bmTitle.Render("Tool Overhead"))
	fmt.Fprintln(w, bmDim.Render(strings.Repeat("─", 40)))
	fmt.Fprintf(w, "  Memory allocated: %s\n", lipgloss.NewStyle().Bold(true).Render(formatBytes(overhead.AllocBytes)))
	fmt.Fprintf(w, "  Allocations:      %s\n", lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%d", overhead.AllocCount)))
	fmt.Fprintf(w, "  GC pauses:        %s\n", lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%d", overhead.GCPauses)))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sum, sumSq float64
	for _, v := range values {
		sum += v
		sumSq += v * v
	}
	n := float64(len(values))
	mean := sum / n
	variance := (sumSq / n) - (mean * mean)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

func formatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
