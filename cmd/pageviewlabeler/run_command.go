package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"PageviewLabeler/internal/app"
	"PageviewLabeler/internal/domain"
	"PageviewLabeler/internal/infrastructure/scheduler"
	"PageviewLabeler/internal/ports"
	"PageviewLabeler/internal/summary"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		showShares bool
		every      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch, classify and aggregate the configured pageview files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.logger()

			application, err := app.New(cmd.Context(), cfg, logger, app.Options{})
			if err != nil {
				return err
			}
			defer application.Close()

			out := cmd.OutOrStdout()
			runOnce := func(runCtx context.Context, _ time.Time) error {
				res, err := application.Run(runCtx)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, renderReport(out, res.Report))
				if showShares {
					fmt.Fprintln(out, renderShares(out, summary.Shares(res.Aggregate)))
				}
				fmt.Fprintf(out, "Wrote %d rows to %s\n", res.Report.AggregateRows, cfg.Pipeline.Output)
				return nil
			}
			if every <= 0 {
				return runOnce(cmd.Context(), time.Now())
			}

			sched, err := scheduler.NewIntervalScheduler(every, logger)
			if err != nil {
				return err
			}
			return sched.Run(cmd.Context(), func(runCtx context.Context, at time.Time) error {
				err := runOnce(runCtx, at)
				if errors.Is(err, domain.ErrAggregationInvariant) {
					return &ports.FatalJobError{Err: err}
				}
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&showShares, "shares", true, "Print per-country label shares")
	cmd.Flags().DurationVar(&every, "every", 0, "Repeat the run on this interval until interrupted")
	return cmd
}

func renderReport(w io.Writer, r domain.RunReport) string {
	rows := [][]string{
		{"Run ID", r.RunID},
		{"Model version", r.ModelVersion},
		{"Countries", strconv.Itoa(r.Countries)},
		{"Raw rows", strconv.Itoa(r.RawRows)},
		{"Total views", strconv.FormatInt(r.TotalViews, 10)},
		{"Unique QIDs", strconv.Itoa(r.UniqueQIDs)},
		{"Classified", strconv.Itoa(r.Classified)},
		{"Cached", strconv.Itoa(r.Cached)},
		{"Missing QID rows", strconv.Itoa(r.MissingQIDRows)},
		{"Description missing", strconv.Itoa(r.DescriptionMissing)},
		{"Fetch exhausted", strconv.Itoa(r.FetchExhausted)},
		{"Fatal", strconv.Itoa(r.Fatal)},
		{"Aggregate rows", strconv.Itoa(r.AggregateRows)},
	}
	for _, label := range domain.Labels() {
		if n, ok := r.LabelCounts[label]; ok {
			rows = append(rows, []string{"QIDs labeled " + label.String(), strconv.Itoa(n)})
		}
	}
	return renderTable(w, []string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight})
}

func renderShares(w io.Writer, shares []summary.Share) string {
	rows := make([][]string, 0, len(shares))
	for _, s := range shares {
		rows = append(rows, []string{
			s.CountryCode,
			s.Label.String(),
			strconv.FormatInt(s.Views, 10),
			strconv.FormatFloat(s.Percent, 'f', 2, 64) + "%",
		})
	}
	return renderTable(w, []string{"Country", "Label", "Views", "Share"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight})
}
