package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"PageviewLabeler/internal/infrastructure/pageviews"
	"PageviewLabeler/internal/summary"
)

func newSummarizeCommand(ctx *commandContext) *cobra.Command {
	var (
		input       string
		from        string
		to          string
		granularity string
	)

	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Summarize a daily aggregate CSV the way the dashboard does",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if input == "" {
				input = cfg.Pipeline.Output
			}
			dateRange, err := summary.ParseDateRange(from, to)
			if err != nil {
				return err
			}

			f, err := os.Open(input)
			if err != nil {
				return fmt.Errorf("open aggregate: %w", err)
			}
			defer f.Close()

			rows, err := pageviews.ReadAggregate(f)
			if err != nil {
				return fmt.Errorf("read %s: %w", input, err)
			}
			rows = summary.Filter(rows, dateRange)

			series, err := summary.PoliticalSeries(rows, summary.Granularity(granularity))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			bounds := summary.Bounds(rows)
			fmt.Fprintf(out, "%d rows from %s to %s\n", len(rows), bounds.From, bounds.To)
			fmt.Fprintln(out, renderShares(out, summary.Shares(rows)))

			points := make([][]string, 0, len(series))
			for _, p := range series {
				points = append(points, []string{p.Period, p.CountryCode, strconv.FormatInt(p.Views, 10)})
			}
			fmt.Fprintln(out, renderTable(out, []string{"Period", "Country", "Political views"}, points,
				[]columnAlignment{alignLeft, alignLeft, alignRight}))
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Aggregate CSV (defaults to pipeline.output)")
	cmd.Flags().StringVar(&from, "from", "", "First date to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Last date to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&granularity, "granularity", string(summary.Monthly), "Political series bucket: daily or monthly")
	return cmd
}
