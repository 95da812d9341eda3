package main

import (
	"github.com/spf13/cobra"

	"github.com/danpilch/fnprof/pkg/baseline"
	"github.com/danpilch/fnprof/pkg/output"
)

func newSummaryCmd() *cobra.Command {
	var (
		format string
		top    int
		bars   bool
	)

	cmd := &cobra.Command{
		Use:   "summary <report.json>",
		Short: "Show the per-function report ranked by time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := output.ParseFormat(format)
			if err != nil {
				return err
			}
			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}

			formatter := output.NewFormatter(f, cmd.OutOrStdout())
			formatter.SetTop(top)
			formatter.SetShowBars(bars)
			return formatter.Render(doc)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format (table, json, tsv)")
	cmd.Flags().IntVar(&top, "top", 0, "show only the N most expensive functions (0 = all)")
	cmd.Flags().BoolVar(&bars, "bars", true, "draw percentage bars in table output")
	return cmd
}

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <base.json> <current.json>",
		Short: "Compare per-function time between two reports",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := readDocument(args[0])
			if err != nil {
				return err
			}
			cur, err := readDocument(args[1])
			if err != nil {
				return err
			}
			baseline.RenderComparison(cmd.OutOrStdout(), args[0], baseline.Compare(base, cur))
			return nil
		},
	}
}
