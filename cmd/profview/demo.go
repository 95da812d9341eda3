package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/danpilch/fnprof/pkg/debug"
	"github.com/danpilch/fnprof/pkg/profiler"
)

// Function ids used by the demo workload.
const (
	demoWorker = iota
	demoFib
	demoSleep
	demoParse
)

func newDemoCmd(logger *logrus.Logger) *cobra.Command {
	var (
		config  string
		out     string
		pprof   string
		workers int
		timings bool
		trace   bool
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Profile a small instrumented workload and write its reports",
		Long: `Run a small workload instrumented with the enter/exit hooks on several
goroutines, then finalize the profiler. The folded stacks, the JSON report
and the console summary are written exactly as an instrumented program
would write them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if workers < 1 {
				return fmt.Errorf("--workers must be at least 1")
			}

			cfg := profiler.DefaultConfig()
			if config != "" {
				loaded, err := profiler.LoadConfig(config)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if cmd.Flags().Changed("output") || cfg.Output == "" {
				cfg.Output = out
			}
			if pprof != "" {
				cfg.PprofOutput = pprof
			}
			cfg.HandleSignals = false

			opts := []profiler.Option{
				profiler.WithLogger(logger),
				profiler.WithSummaryWriter(cmd.OutOrStdout()),
			}
			if trace {
				opts = append(opts, profiler.WithTracer(debug.NewTraceLogger(logger)))
			}
			p := profiler.New(cfg, opts...)

			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					runDemoWorker(p.NewThread())
				}()
			}
			wg.Wait()

			err := p.Finalize()
			if timings {
				fmt.Fprintln(cmd.OutOrStdout())
				debug.TimingReport(cmd.OutOrStdout(), p.FinalizeTimings())
			}
			return err
		},
	}

	cmd.Flags().StringVar(&config, "config", "", "profiler YAML config; flags given explicitly win")
	cmd.Flags().StringVarP(&out, "output", "o", profiler.DefaultOutput, "JSON report path")
	cmd.Flags().StringVar(&pprof, "pprof", "", "also write a pprof profile to this path")
	cmd.Flags().IntVarP(&workers, "workers", "w", 4, "number of instrumented goroutines")
	cmd.Flags().BoolVar(&timings, "timings", false, "print how long each finalize phase took")
	cmd.Flags().BoolVar(&trace, "trace", false, "log every hook event (use with --log-level trace)")
	return cmd
}

func runDemoWorker(th *profiler.Thread) {
	th.Enter(demoWorker, "worker")
	defer th.Exit(demoWorker)

	for i := 0; i < 3; i++ {
		demoParseInput(th)
		demoFibonacci(th, 12)
		demoWait(th, time.Millisecond)
	}
}

func demoFibonacci(th *profiler.Thread, n int) int {
	th.Enter(demoFib, "fibonacci")
	defer th.Exit(demoFib)

	if n < 2 {
		return n
	}
	return demoFibonacci(th, n-1) + demoFibonacci(th, n-2)
}

func demoWait(th *profiler.Thread, d time.Duration) {
	th.Enter(demoSleep, "wait")
	defer th.Exit(demoSleep)
	time.Sleep(d)
}

func demoParseInput(th *profiler.Thread) int {
	th.Enter(demoParse, "parse_input")
	defer th.Exit(demoParse)

	sum := 0
	for i := 0; i < 10000; i++ {
		sum += i % 7
	}
	return sum
}
