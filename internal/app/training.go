package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"PageviewLabeler/internal/classifier"
	"PageviewLabeler/internal/config"
	"PageviewLabeler/internal/fileutil"
	"PageviewLabeler/internal/infrastructure/parser"
	"PageviewLabeler/internal/usecase"
)

// TrainResult describes a freshly trained and saved model.
type TrainResult struct {
	Model    *classifier.Model
	Metrics  classifier.Metrics
	Examples int
	Path     string
}

// Train evaluates on a seeded split, fits the final model on the whole
// corpus and writes it to the configured model path.
func Train(cfg config.Config, logger *slog.Logger) (TrainResult, error) {
	examples, err := classifier.ReadCorpusFile(cfg.Training.Corpus)
	if err != nil {
		return TrainResult{}, err
	}
	opts := classifier.Options{
		Alpha:     cfg.Training.Alpha,
		Tokenizer: classifier.TokenizerOptions{StopWords: cfg.Training.StopWords},
	}
	model, metrics, err := classifier.TrainAndEvaluate(examples, opts, cfg.Training.TestFraction, cfg.Training.Seed)
	if err != nil {
		return TrainResult{}, err
	}
	if err := classifier.Save(cfg.Model.Path, model); err != nil {
		return TrainResult{}, fmt.Errorf("save model: %w", err)
	}
	if logger != nil {
		logger.Info("model trained",
			"examples", len(examples),
			"vocabulary", model.VocabularySize(),
			"version", model.Version(),
			"accuracy", metrics.Accuracy,
			"path", cfg.Model.Path,
		)
	}
	return TrainResult{Model: model, Metrics: metrics, Examples: len(examples), Path: cfg.Model.Path}, nil
}

// BuildCorpus scrapes the lead paragraph of every configured title and
// writes the labeled corpus CSV.
func BuildCorpus(ctx context.Context, cfg config.Config, client *http.Client, logger *slog.Logger) (usecase.CorpusResult, error) {
	titles, err := config.LoadTitles(cfg.Training.Titles)
	if err != nil {
		return usecase.CorpusResult{}, err
	}
	scanner := parser.NewWikipediaScanner(client, cfg.Training.WikipediaURL, cfg.KnowledgeBase.UserAgent)
	builder := usecase.NewCorpusBuilder(scanner, cfg.Pipeline.Concurrency, logger)

	res, err := builder.Build(ctx, titles.Entries())
	if err != nil {
		return res, err
	}
	if err := fileutil.WriteAtomic(cfg.Training.Corpus, func(w io.Writer) error {
		return classifier.WriteCorpus(w, res.Examples)
	}); err != nil {
		return res, fmt.Errorf("write corpus: %w", err)
	}
	return res, nil
}
