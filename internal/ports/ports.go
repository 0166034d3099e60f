package ports

import (
	"context"
	"io"
	"time"

	"PageviewLabeler/internal/domain"
)

// PageviewSource loads the raw per-country pageview files.
type PageviewSource interface {
	Load(ctx context.Context) ([]domain.CountryPageviews, error)
}

// DescriptionFetcher resolves a QID to its knowledge-base description.
// Implementations return an error wrapping domain.ErrNotFound when no
// description could be obtained.
type DescriptionFetcher interface {
	FetchDescription(ctx context.Context, qid string) (string, error)
}

// TextClassifier assigns one of the classifier labels to free text.
type TextClassifier interface {
	Classify(text string) domain.Label
	Version() string
}

// DescriptionCache persists resolved descriptions across runs.
type DescriptionCache interface {
	Get(ctx context.Context, qid string) (CachedDescription, bool, error)
	Put(ctx context.Context, entry CachedDescription) error
}

// CachedDescription is a stored fetch outcome. Missing marks a definitive
// "no description" answer from the knowledge base.
type CachedDescription struct {
	QID         string
	Description string
	Missing     bool
}

// AggregateSink receives the finalized daily aggregate.
type AggregateSink interface {
	Name() string
	WriteAggregate(ctx context.Context, rows []domain.AggregateRow) error
}

// RunRecorder keeps an audit trail of which model labeled which output.
type RunRecorder interface {
	RecordRun(ctx context.Context, manifest domain.RunManifest) error
}

// Publisher uploads finished artifacts to remote storage.
type Publisher interface {
	Publish(ctx context.Context, key string, body io.Reader) error
}

// Notifier streams run summaries to chat or other channels.
type Notifier interface {
	PublishReport(ctx context.Context, text string) error
}

// ParagraphFetcher returns the lead paragraph of an encyclopedia article.
type ParagraphFetcher interface {
	FirstParagraph(ctx context.Context, title string) (string, error)
}

// Job is one scheduled unit of work.
type Job func(ctx context.Context, at time.Time) error

// Scheduler repeats a job until its context is cancelled.
type Scheduler interface {
	Run(ctx context.Context, job Job) error
}

// FatalJobError stops a scheduler instead of waiting for the next tick.
type FatalJobError struct {
	Err error
}

func (e *FatalJobError) Error() string { return e.Err.Error() }

func (e *FatalJobError) Unwrap() error { return e.Err }
