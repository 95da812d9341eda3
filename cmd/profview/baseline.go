package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danpilch/fnprof/pkg/baseline"
)

func newBaselineCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Save and compare against named baseline reports",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "baseline directory (default ~/.fnprof/baselines)")

	var savedFolded string
	save := &cobra.Command{
		Use:   "save <name> <report.json>",
		Short: "Save a report and its folded stacks as a named baseline",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(args[1])
			if err != nil {
				return err
			}
			stacks, err := companionStacks(args[1], savedFolded)
			if err != nil {
				return err
			}
			if err := baseline.NewStore(dir).Save(baseline.Capture(args[0], doc, stacks)); err != nil {
				return err
			}
			cmd.Printf("Baseline %q saved (%d functions, %d stacks)\n", args[0], len(doc.Functions), len(stacks))
			return nil
		},
	}
	save.Flags().StringVar(&savedFolded, "folded", "", "folded stacks file (default: the report's .folded sibling)")
	cmd.AddCommand(save)

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved baselines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := baseline.NewStore(dir).List()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				cmd.Println("No baselines saved.")
				return nil
			}
			for _, n := range names {
				cmd.Println(n)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved baseline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := baseline.NewStore(dir).Delete(args[0]); err != nil {
				return err
			}
			cmd.Printf("Baseline %q deleted\n", args[0])
			return nil
		},
	})

	var (
		failOnRegression bool
		currentFolded    string
		top              int
	)
	compare := &cobra.Command{
		Use:   "compare <name> <report.json>",
		Short: "Compare a report against a saved baseline",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := baseline.NewStore(dir).Load(args[0])
			if err != nil {
				return err
			}
			cur, err := readDocument(args[1])
			if err != nil {
				return err
			}
			comparisons := baseline.Compare(b.Report, cur)
			baseline.RenderComparison(cmd.OutOrStdout(), b.Name, comparisons)

			stackRegressions := 0
			if len(b.Stacks) > 0 {
				stacks, err := companionStacks(args[1], currentFolded)
				if err != nil {
					return err
				}
				if len(stacks) > 0 {
					drift := baseline.CompareStacks(b.Stacks, stacks)
					fmt.Fprintln(cmd.OutOrStdout())
					baseline.RenderStackComparison(cmd.OutOrStdout(), drift, top)
					stackRegressions = baseline.StackRegressions(drift)
				}
			}

			if n := baseline.Regressions(comparisons); failOnRegression && n > 0 {
				return fmt.Errorf("%d regressions against baseline %q", n, b.Name)
			}
			if failOnRegression && stackRegressions > 0 {
				return fmt.Errorf("%d stack regressions against baseline %q", stackRegressions, b.Name)
			}
			return nil
		},
	}
	compare.Flags().BoolVar(&failOnRegression, "fail-on-regression", false, "exit non-zero when a regression is found")
	compare.Flags().StringVar(&currentFolded, "folded", "", "folded stacks of the current run (default: the report's .folded sibling)")
	compare.Flags().IntVar(&top, "top", 10, "stacks to show in the drift table (0 for all)")
	cmd.AddCommand(compare)

	return cmd
}
