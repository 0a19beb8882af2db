package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/therealutkarshpriyadarshi/autotag/internal/output"
)

func newShowCommand() *cobra.Command {
	var rows int

	cmd := &cobra.Command{
		Use:   "show RESULTS_CSV",
		Short: "Summarise a results file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := output.ReadResults(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, output.RenderSummary(results))
			if rows != 0 {
				fmt.Fprintln(out, output.RenderResults(results, rows))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&rows, "rows", "n", 0, "Also list result rows; negative lists all of them")

	return cmd
}
