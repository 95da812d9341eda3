package main

import (
	"github.com/spf13/cobra"

	"github.com/danpilch/fnprof/pkg/benchmark"
	"github.com/danpilch/fnprof/pkg/profiler"
)

func newBenchCmd() *cobra.Command {
	opts := benchmark.DefaultOptions()
	var configPath string

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure the latency of the enter/exit hooks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				cfg, err := profiler.LoadConfig(configPath)
				if err != nil {
					return err
				}
				opts.Config = &cfg
			}
			results := benchmark.Run(opts)
			benchmark.RenderResults(cmd.OutOrStdout(), results, benchmark.MeasureOverhead())
			return nil
		},
	}

	cmd.Flags().IntVarP(&opts.Iterations, "iterations", "n", opts.Iterations, "measured enter/exit pairs per scenario")
	cmd.Flags().IntVar(&opts.Warmup, "warmup", opts.Warmup, "unmeasured warmup pairs")
	cmd.Flags().StringVar(&configPath, "config", "", "profiler YAML config sizing the tables under test")
	cmd.Flags().IntVar(&opts.Depth, "depth", opts.Depth, "frames on the stack while measuring")
	return cmd
}
