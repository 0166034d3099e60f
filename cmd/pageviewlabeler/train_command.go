package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"PageviewLabeler/internal/app"
	"PageviewLabeler/internal/classifier"
	"PageviewLabeler/internal/domain"
)

func newTrainCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "train",
		Short: "Evaluate and train the classifier from the labeled corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			res, err := app.Train(cfg, ctx.logger())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Held-out evaluation on %d of %d examples (seed %d)\n",
				res.Metrics.Samples, res.Examples, cfg.Training.Seed)
			fmt.Fprintln(out, renderMetrics(out, res.Metrics))
			fmt.Fprintln(out, renderConfusion(out, res.Metrics))
			fmt.Fprintf(out, "Model %s (%d terms) saved to %s\n", res.Model.Version(), res.Model.VocabularySize(), res.Path)
			return nil
		},
	}
}

func formatRatio(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func renderMetrics(w io.Writer, m classifier.Metrics) string {
	rows := make([][]string, 0, len(m.PerClass)+3)
	for _, label := range domain.ClassLabels() {
		c := m.PerClass[label]
		rows = append(rows, []string{
			label.String(),
			formatRatio(c.Precision),
			formatRatio(c.Recall),
			formatRatio(c.F1),
			strconv.Itoa(c.Support),
		})
	}
	rows = append(rows,
		[]string{"accuracy", "", "", formatRatio(m.Accuracy), strconv.Itoa(m.Samples)},
		[]string{"macro avg", "", "", formatRatio(m.MacroF1), strconv.Itoa(m.Samples)},
		[]string{"weighted avg", "", "", formatRatio(m.WeightedF1), strconv.Itoa(m.Samples)},
	)
	return renderTable(w, []string{"Class", "Precision", "Recall", "F1", "Support"}, rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight})
}

func renderConfusion(w io.Writer, m classifier.Metrics) string {
	classes := domain.ClassLabels()
	headers := []string{"actual \\ predicted"}
	aligns := []columnAlignment{alignLeft}
	for _, label := range classes {
		headers = append(headers, label.String())
		aligns = append(aligns, alignRight)
	}
	rows := make([][]string, 0, len(classes))
	for _, actual := range classes {
		row := []string{actual.String()}
		for _, predicted := range classes {
			row = append(row, strconv.Itoa(m.Confusion[actual][predicted]))
		}
		rows = append(rows, row)
	}
	return renderTable(w, headers, rows, aligns)
}
