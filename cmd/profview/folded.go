package main

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/danpilch/fnprof/pkg/flamegraph"
	"github.com/danpilch/fnprof/pkg/report"
)

func newFlamegraphCmd(logger *logrus.Logger) *cobra.Command {
	opts := flamegraph.DefaultSVGOptions()
	var out string

	cmd := &cobra.Command{
		Use:   "flamegraph <file.folded>...",
		Short: "Render folded stacks as an SVG flame graph",
		Long: `Render one or more folded-stack files as an SVG flame graph.

Inputs are merged before rendering, so reports from several runs or
processes can be combined into one graph.

Examples:
  profview flamegraph fnprof_profile.folded -o profile.svg
  profview flamegraph run1.folded run2.folded --colors cold -o merged.svg`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stacks, err := readFolded(args)
			if err != nil {
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("cannot create SVG: %w", err)
			}
			if err := flamegraph.GenerateSVG(stacks, f, opts); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			logger.WithFields(logrus.Fields{
				"path":   out,
				"stacks": len(stacks),
			}).Info("Flame graph written")
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", "profile.svg", "SVG output path")
	cmd.Flags().StringVar(&opts.Title, "title", opts.Title, "graph title")
	cmd.Flags().IntVar(&opts.Width, "width", opts.Width, "image width in pixels")
	cmd.Flags().StringVar(&opts.ColorScheme, "colors", opts.ColorScheme, "color scheme (hot, cold, mem)")
	return cmd
}

func newMergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge <file.folded>...",
		Short: "Merge folded-stack files and print the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stacks, err := readFolded(args)
			if err != nil {
				return err
			}
			return flamegraph.WriteFolded(cmd.OutOrStdout(), stacks)
		},
	}
}

func newPprofCmd(logger *logrus.Logger) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "pprof <file.folded>...",
		Short: "Convert folded stacks to a pprof profile",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stacks, err := readFolded(args)
			if err != nil {
				return err
			}

			prof, err := report.BuildPprof(namedStacks(stacks))
			if err != nil {
				return err
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("cannot create pprof profile: %w", err)
			}
			if err := prof.Write(f); err != nil {
				f.Close()
				return fmt.Errorf("cannot write pprof profile: %w", err)
			}
			if err := f.Close(); err != nil {
				return err
			}
			logger.WithField("path", out).Info("pprof profile written")
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", "profile.pb.gz", "pprof output path")
	return cmd
}

// namedStacks converts microsecond folded weights back to nanoseconds, in
// sorted stack order.
func namedStacks(stacks flamegraph.Stacks) []report.NamedStack {
	keys := make([]string, 0, len(stacks))
	for k := range stacks {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	named := make([]report.NamedStack, 0, len(keys))
	for _, k := range keys {
		if stacks[k] <= 0 {
			continue
		}
		named = append(named, report.NamedStack{
			Frames: strings.Split(k, ";"),
			TimeNS: uint64(stacks[k]) * 1000,
		})
	}
	return named
}
