package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"PageviewLabeler/internal/app"
)

func newCorpusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "corpus",
		Short: "Build the training corpus from Wikipedia lead paragraphs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			res, err := app.BuildCorpus(cmd.Context(), cfg, nil, ctx.logger())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote %d examples to %s\n", len(res.Examples), cfg.Training.Corpus)
			for _, skipped := range res.Skipped {
				fmt.Fprintf(out, "skipped %q (%s)\n", skipped.Title, skipped.Label)
			}
			return nil
		},
	}
}
