package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"PageviewLabeler/internal/classifier"
	"PageviewLabeler/internal/domain"
)

func newClassifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "classify [text...]",
		Short: "Classify descriptions with the trained model (reads stdin lines when no text is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			model, err := classifier.Load(cfg.Model.Path)
			if err != nil {
				return err
			}

			texts := args
			if len(texts) == 0 {
				scanner := bufio.NewScanner(cmd.InOrStdin())
				for scanner.Scan() {
					if line := strings.TrimSpace(scanner.Text()); line != "" {
						texts = append(texts, line)
					}
				}
				if err := scanner.Err(); err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
			}

			out := cmd.OutOrStdout()
			headers := []string{"Text", "Label"}
			aligns := []columnAlignment{alignLeft, alignLeft}
			for _, label := range domain.ClassLabels() {
				headers = append(headers, "P("+label.String()+")")
				aligns = append(aligns, alignRight)
			}
			rows := make([][]string, 0, len(texts))
			for _, text := range texts {
				posteriors := model.Posteriors(text)
				row := []string{text, model.Classify(text).String()}
				for _, label := range domain.ClassLabels() {
					row = append(row, formatRatio(posteriors[label]))
				}
				rows = append(rows, row)
			}
			fmt.Fprintln(out, renderTable(out, headers, rows, aligns))
			fmt.Fprintf(out, "model %s\n", model.Version())
			return nil
		},
	}
}
