package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"PageviewLabeler/internal/classifier"
	"PageviewLabeler/internal/domain"
	"PageviewLabeler/internal/logging"
	"PageviewLabeler/internal/ports"
)

// ErrNoTitles is returned when the titles list is empty.
var ErrNoTitles = errors.New("no corpus titles")

// CorpusBuilder turns seed article titles into labeled training examples.
type CorpusBuilder struct {
	fetcher     ports.ParagraphFetcher
	concurrency int
	logger      *slog.Logger
}

// NewCorpusBuilder wires the paragraph source.
func NewCorpusBuilder(fetcher ports.ParagraphFetcher, concurrency int, logger *slog.Logger) *CorpusBuilder {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &CorpusBuilder{fetcher: fetcher, concurrency: concurrency, logger: logging.Component(logger, "corpus")}
}

// CorpusResult carries the examples and the titles that yielded nothing.
type CorpusResult struct {
	Examples []classifier.Example
	Skipped  []domain.CorpusTitle
}

// Build fetches every title's lead paragraph. Examples keep the order of
// titles; titles that fail are skipped and logged.
func (b *CorpusBuilder) Build(ctx context.Context, titles []domain.CorpusTitle) (CorpusResult, error) {
	if len(titles) == 0 {
		return CorpusResult{}, ErrNoTitles
	}
	texts := make([]string, len(titles))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, title := range titles {
		g.Go(func() error {
			text, err := b.fetcher.FirstParagraph(gctx, title.Title)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				b.logger.Warn("title skipped", "title", title.Title, "label", title.Label.String(), "error", err)
				return nil
			}
			texts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return CorpusResult{}, err
	}

	var res CorpusResult
	perClass := make(map[domain.Label]int)
	for i, title := range titles {
		if texts[i] == "" {
			res.Skipped = append(res.Skipped, title)
			continue
		}
		res.Examples = append(res.Examples, classifier.Example{Text: texts[i], Label: title.Label})
		perClass[title.Label]++
	}
	for _, label := range domain.ClassLabels() {
		if perClass[label] == 0 {
			return res, fmt.Errorf("%w: no %s examples could be fetched", classifier.ErrMissingClass, label)
		}
	}
	if len(res.Skipped) > 0 {
		b.logger.Info("corpus built with gaps", "examples", len(res.Examples), "skipped", len(res.Skipped))
	}
	return res, nil
}
