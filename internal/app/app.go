package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/gofrs/flock"

	"PageviewLabeler/internal/classifier"
	"PageviewLabeler/internal/config"
	"PageviewLabeler/internal/fileutil"
	"PageviewLabeler/internal/infrastructure/pageviews"
	"PageviewLabeler/internal/infrastructure/publish"
	"PageviewLabeler/internal/infrastructure/storage"
	"PageviewLabeler/internal/infrastructure/telegram"
	"PageviewLabeler/internal/infrastructure/wikidata"
	"PageviewLabeler/internal/logging"
	"PageviewLabeler/internal/ports"
	"PageviewLabeler/internal/usecase"
)

// ErrRunInProgress means another process holds the output lock.
var ErrRunInProgress = errors.New("another run holds the output lock")

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	model    *classifier.Model
	pipeline *usecase.Pipeline
	store    *storage.SQLiteStore
	closers  []func()
}

// Options lets callers replace adapters, mostly for tests.
type Options struct {
	HTTPClient *http.Client
	Fetcher    ports.DescriptionFetcher
}

// New loads the model and builds every adapter the configuration enables.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger, opts Options) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	a := &Application{cfg: cfg, logger: baseLogger}

	model, err := classifier.Load(cfg.Model.Path)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	a.model = model

	fallback, err := cfg.Pipeline.Fallback()
	if err != nil {
		return nil, err
	}

	cache, err := a.openCache(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = wikidata.NewClient(cfg.KnowledgeBase, opts.HTTPClient, baseLogger)
	}

	resolver, err := usecase.NewResolver(usecase.ResolverDeps{
		Fetcher:     fetcher,
		Classifier:  model,
		Cache:       cache,
		Fallback:    fallback,
		Concurrency: cfg.Pipeline.Concurrency,
		Logger:      baseLogger,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	sinks := []ports.AggregateSink{pageviews.NewCSVSink(cfg.Pipeline.Output)}
	if cfg.Database.DSN != "" {
		pg, err := storage.NewPostgresSink(ctx, cfg.Database.DSN, cfg.Database.Table)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, pg.Close)
		sinks = append(sinks, pg)
	}

	deps := usecase.PipelineDeps{
		Source:   pageviews.NewCSVSource(cfg.Countries, cfg.Pipeline.Columns, baseLogger),
		Resolver: resolver,
		Sinks:    sinks,
		Logger:   baseLogger,
	}
	if a.store != nil {
		deps.Recorder = a.store
	}
	if cfg.Publish.S3.Bucket != "" {
		publisher, err := publish.NewS3Publisher(publish.NewS3Client(cfg.Publish.S3), cfg.Publish.S3, baseLogger)
		if err != nil {
			a.Close()
			return nil, err
		}
		deps.Publisher = publisher
	}
	if notifier := telegram.NewNotifier(cfg.Notifications.Telegram); notifier.Configured() {
		deps.Notifier = notifier
	}

	a.pipeline = usecase.NewPipeline(deps)
	return a, nil
}

func (a *Application) openCache(ctx context.Context) (ports.DescriptionCache, error) {
	switch a.cfg.Cache.Driver {
	case config.CacheSQLite:
		store, err := storage.OpenSQLite(ctx, a.cfg.Cache.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.store = store
		a.closers = append(a.closers, func() { _ = store.Close() })
		return store, nil
	case config.CacheRedis:
		rc := storage.NewRedisCache(a.cfg.Cache.Redis)
		a.closers = append(a.closers, func() { _ = rc.Close() })
		if err := rc.Ping(ctx); err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return rc, nil
	default:
		return storage.NewMemoryCache(), nil
	}
}

// Model exposes the loaded classifier.
func (a *Application) Model() *classifier.Model {
	return a.model
}

// Run executes one enrichment run while holding an exclusive lock next to
// the output file.
func (a *Application) Run(ctx context.Context) (usecase.Result, error) {
	output := a.cfg.Pipeline.Output
	if err := fileutil.EnsureDir(filepath.Dir(output)); err != nil {
		return usecase.Result{}, err
	}
	lock := flock.New(output + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return usecase.Result{}, fmt.Errorf("lock output: %w", err)
	}
	if !locked {
		return usecase.Result{}, fmt.Errorf("%w: %s", ErrRunInProgress, output)
	}
	defer func() { _ = lock.Unlock() }()

	return a.pipeline.Run(ctx, usecase.RunOptions{Output: output})
}

// ErrNoHistory is returned when the cache driver keeps no run history.
var ErrNoHistory = errors.New("run history requires the sqlite cache driver")

// RecentRuns lists the run history; it needs the sqlite cache driver.
func (a *Application) RecentRuns(ctx context.Context, limit uint64) ([]storage.RunSummary, error) {
	if a.store == nil {
		return nil, ErrNoHistory
	}
	return a.store.RecentRuns(ctx, limit)
}

// History reads the run history without loading the model.
func History(ctx context.Context, cfg config.Config, limit uint64) ([]storage.RunSummary, error) {
	if cfg.Cache.Driver != config.CacheSQLite {
		return nil, ErrNoHistory
	}
	store, err := storage.OpenSQLite(ctx, cfg.Cache.SQLitePath)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.RecentRuns(ctx, limit)
}

// Close releases every opened resource.
func (a *Application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
