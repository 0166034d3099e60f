package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"PageviewLabeler/internal/app"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit uint64

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs recorded in the description cache database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			runs, err := app.History(cmd.Context(), cfg, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet.")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				rows = append(rows, []string{
					r.FinishedAt.Local().Format(time.DateTime),
					r.RunID,
					shortHash(r.ModelVersion),
					shortHash(r.OutputSHA256),
					strconv.Itoa(r.Counts.RawRows),
					strconv.Itoa(r.Counts.UniqueQIDs),
					strconv.Itoa(r.Counts.DescriptionMissing + r.Counts.FetchExhausted),
				})
			}
			fmt.Fprintln(out, renderTable(out,
				[]string{"Finished", "Run ID", "Model", "Output", "Rows", "QIDs", "Fallbacks"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight}))
			return nil
		},
	}

	cmd.Flags().Uint64VarP(&limit, "limit", "n", 10, "Number of runs to show")
	return cmd
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
