package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"PageviewLabeler/internal/domain"
	"PageviewLabeler/internal/fileutil"
	"PageviewLabeler/internal/logging"
	"PageviewLabeler/internal/ports"
)

// ManifestSuffix is appended to the output path to name the run manifest.
const ManifestSuffix = ".manifest.json"

// ManifestPath returns the sidecar manifest location for an output file.
func ManifestPath(output string) string {
	return output + ManifestSuffix
}

// PipelineDeps wires all driven adapters into the enrichment pipeline.
type PipelineDeps struct {
	Source    ports.PageviewSource
	Resolver  *Resolver
	Sinks     []ports.AggregateSink
	Recorder  ports.RunRecorder
	Publisher ports.Publisher
	Notifier  ports.Notifier
	Logger    *slog.Logger
	Now       func() time.Time
}

// Pipeline implements the enrichment-and-aggregation workflow.
type Pipeline struct {
	source    ports.PageviewSource
	resolver  *Resolver
	sinks     []ports.AggregateSink
	recorder  ports.RunRecorder
	publisher ports.Publisher
	notifier  ports.Notifier
	logger    *slog.Logger
	now       func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		source:    deps.Source,
		resolver:  deps.Resolver,
		sinks:     deps.Sinks,
		recorder:  deps.Recorder,
		publisher: deps.Publisher,
		notifier:  deps.Notifier,
		logger:    logging.Component(deps.Logger, "pipeline"),
		now:       now,
	}
}

// RunOptions names the run and where its primary output lives.
type RunOptions struct {
	RunID  string
	Output string
}

// Result holds every stage of one enrichment run.
type Result struct {
	Inputs    []domain.CountryPageviews
	Entities  map[string]domain.Entity
	Labeled   []domain.LabeledRow
	Aggregate []domain.AggregateRow
	Report    domain.RunReport
	Manifest  *domain.RunManifest
}

// Enrich resolves each unique identifier once, broadcasts the labels back
// onto the rows, aggregates and reconciles. It does not write anything.
func (p *Pipeline) Enrich(ctx context.Context, inputs []domain.CountryPageviews) (Result, error) {
	if p.resolver == nil {
		return Result{}, errors.New("pipeline has no resolver")
	}

	res := Result{Inputs: inputs}
	report := &res.Report
	report.ModelVersion = p.resolver.classifier.Version()
	report.Countries = len(inputs)

	seen := make(map[string]struct{})
	var qids []string
	for _, in := range inputs {
		for _, row := range in.Rows {
			report.RawRows++
			total, err := addViews(report.TotalViews, row.Views)
			if err != nil {
				return res, fmt.Errorf("country %s: %w", in.CountryCode, err)
			}
			report.TotalViews = total
			if !row.HasQID() {
				report.MissingQIDRows++
				continue
			}
			if _, ok := seen[row.QID]; ok {
				continue
			}
			seen[row.QID] = struct{}{}
			qids = append(qids, row.QID)
		}
	}
	sort.Strings(qids)
	report.UniqueQIDs = len(qids)

	p.logger.Info("resolving identifiers", "countries", report.Countries, "rows", report.RawRows, "unique_qids", len(qids))
	entities, err := p.resolver.ResolveAll(ctx, qids)
	res.Entities = entities
	if err != nil {
		return res, fmt.Errorf("resolve identifiers: %w", err)
	}
	for _, qid := range qids {
		report.Record(entities[qid])
	}

	res.Labeled = Label(inputs, entities)
	if res.Aggregate, err = Aggregate(res.Labeled); err != nil {
		report.Fatal++
		return res, err
	}
	report.AggregateRows = len(res.Aggregate)

	if err := Reconcile(inputs, res.Aggregate); err != nil {
		report.Fatal++
		return res, err
	}
	return res, nil
}

// Run loads the raw inputs, enriches them and hands the aggregate to every
// sink, then records, publishes and announces the run.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (Result, error) {
	if p.source == nil {
		return Result{}, errors.New("pipeline has no pageview source")
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	started := p.now().UTC()

	inputs, err := p.source.Load(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load pageviews: %w", err)
	}

	res, err := p.Enrich(ctx, inputs)
	res.Report.RunID = runID
	res.Report.StartedAt = started
	if err != nil {
		res.Report.FinishedAt = p.now().UTC()
		p.logger.Error("run aborted", "run_id", runID, "error", err)
		return res, err
	}

	for _, sink := range p.sinks {
		if err := sink.WriteAggregate(ctx, res.Aggregate); err != nil {
			return res, fmt.Errorf("sink %s: %w", sink.Name(), err)
		}
		p.logger.Debug("aggregate written", "sink", sink.Name(), "rows", len(res.Aggregate))
	}
	res.Report.FinishedAt = p.now().UTC()

	if opts.Output != "" {
		manifest, err := p.writeManifest(res, opts.Output)
		if err != nil {
			return res, err
		}
		res.Manifest = &manifest
	}

	if p.recorder != nil && res.Manifest != nil {
		if err := p.recorder.RecordRun(ctx, *res.Manifest); err != nil {
			p.logger.Warn("record run failed", "run_id", runID, "error", err)
		}
	}

	if p.publisher != nil && opts.Output != "" {
		if err := p.publish(ctx, opts.Output); err != nil {
			return res, err
		}
	}

	p.logger.Info("run complete",
		"run_id", runID,
		"aggregate_rows", res.Report.AggregateRows,
		"classified", res.Report.Classified,
		"cached", res.Report.Cached,
		"fallbacks", res.Report.Fallbacks(),
	)

	if p.notifier != nil {
		if err := p.notifier.PublishReport(ctx, FormatReport(res.Report)); err != nil {
			p.logger.Warn("notify failed", "run_id", runID, "error", err)
		}
	}
	return res, nil
}

func (p *Pipeline) writeManifest(res Result, output string) (domain.RunManifest, error) {
	digest, err := fileutil.SHA256File(output)
	if err != nil {
		return domain.RunManifest{}, fmt.Errorf("hash output: %w", err)
	}

	inputs := make([]domain.InputDigest, 0, len(res.Inputs))
	for _, in := range res.Inputs {
		inputs = append(inputs, domain.InputDigest{
			CountryCode: in.CountryCode,
			Path:        in.Source,
			SHA256:      in.Digest,
			Rows:        len(in.Rows),
		})
	}

	manifest := domain.RunManifest{
		RunID:         res.Report.RunID,
		ModelVersion:  res.Report.ModelVersion,
		FallbackLabel: p.resolver.fallback.String(),
		Output:        output,
		OutputSHA256:  digest,
		StartedAt:     res.Report.StartedAt,
		FinishedAt:    res.Report.FinishedAt,
		Inputs:        inputs,
		Counts:        res.Report.ManifestCounts(),
	}
	if err := fileutil.WriteJSONAtomic(ManifestPath(output), manifest); err != nil {
		return domain.RunManifest{}, fmt.Errorf("write manifest: %w", err)
	}
	return manifest, nil
}

func (p *Pipeline) publish(ctx context.Context, output string) error {
	for _, path := range []string{output, ManifestPath(output)} {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("publish %s: %w", path, err)
		}
		err = p.publisher.Publish(ctx, filepath.Base(path), f)
		f.Close()
		if err != nil {
			return fmt.Errorf("publish %s: %w", path, err)
		}
	}
	return nil
}

// FormatReport renders the end-of-run summary as plain text.
func FormatReport(r domain.RunReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s (model %s)\n", r.RunID, r.ModelVersion)
	fmt.Fprintf(&b, "Countries: %d, rows: %d, views: %d\n", r.Countries, r.RawRows, r.TotalViews)
	fmt.Fprintf(&b, "Unique QIDs: %d, aggregate rows: %d\n", r.UniqueQIDs, r.AggregateRows)
	fmt.Fprintf(&b, "Classified: %d, cached: %d\n", r.Classified, r.Cached)
	fmt.Fprintf(&b, "Missing QID rows: %d\n", r.MissingQIDRows)
	fmt.Fprintf(&b, "Fallbacks: %d (description missing %d, fetch exhausted %d)\n",
		r.Fallbacks(), r.DescriptionMissing, r.FetchExhausted)
	fmt.Fprintf(&b, "Fatal: %d\n", r.Fatal)
	for _, label := range domain.Labels() {
		if n := r.LabelCounts[label]; n > 0 {
			fmt.Fprintf(&b, "%s: %d\n", label, n)
		}
	}
	if !r.FinishedAt.IsZero() && !r.StartedAt.IsZero() {
		fmt.Fprintf(&b, "Duration: %s\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	}
	return b.String()
}
