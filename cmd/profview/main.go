// Command profview inspects the reports written by the fnprof runtime.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/danpilch/fnprof/pkg/debug"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		logLevel  string
		pprofAddr string
		pprofSrv  *debug.PprofServer
	)
	logger := logrus.New()

	rootCmd := &cobra.Command{
		Use:           "profview",
		Short:         "Inspect, convert and compare fnprof profiles",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("invalid --log-level: %w", err)
			}
			logger.SetLevel(lvl)
			logger.SetOutput(cmd.ErrOrStderr())

			if pprofAddr != "" {
				pprofSrv, err = debug.StartPprofServer(pprofAddr, logger)
				if err != nil {
					return err
				}
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if pprofSrv != nil {
				pprofSrv.Stop()
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&pprofAddr, "pprof-addr", "", "serve Go runtime profiles of profview itself on this address")

	// Reports
	rootCmd.AddCommand(newSummaryCmd())
	rootCmd.AddCommand(newDiffCmd())
	rootCmd.AddCommand(newBaselineCmd())

	// Folded stacks
	rootCmd.AddCommand(newFlamegraphCmd(logger))
	rootCmd.AddCommand(newMergeCmd())
	rootCmd.AddCommand(newPprofCmd(logger))

	// Runtime
	rootCmd.AddCommand(newBenchCmd())
	rootCmd.AddCommand(newDemoCmd(logger))

	return rootCmd
}
