package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"PageviewLabeler/internal/domain"
	"PageviewLabeler/internal/logging"
	"PageviewLabeler/internal/ports"
)

// DefaultConcurrency bounds in-flight fetches when none is configured.
const DefaultConcurrency = 4

// labelCache maps identifiers to resolved entities for one run. The first
// stored entity for a key wins.
type labelCache struct {
	mu      sync.RWMutex
	entries map[string]domain.Entity
	flight  singleflight.Group
}

func newLabelCache() *labelCache {
	return &labelCache{entries: make(map[string]domain.Entity)}
}

func (c *labelCache) get(qid string) (domain.Entity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[qid]
	return e, ok
}

func (c *labelCache) storeOnce(e domain.Entity) domain.Entity {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[e.QID]; ok {
		return existing
	}
	c.entries[e.QID] = e
	return e
}

// resolve returns the cached entity or runs fn once per key, even under
// concurrent callers.
func (c *labelCache) resolve(qid string, fn func() (domain.Entity, error)) (domain.Entity, error) {
	if e, ok := c.get(qid); ok {
		return e, nil
	}
	v, err, _ := c.flight.Do(qid, func() (any, error) {
		if e, ok := c.get(qid); ok {
			return e, nil
		}
		e, err := fn()
		if err != nil {
			return domain.Entity{}, err
		}
		return c.storeOnce(e), nil
	})
	if err != nil {
		return domain.Entity{}, err
	}
	return v.(domain.Entity), nil
}

func (c *labelCache) snapshot() map[string]domain.Entity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]domain.Entity, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

// ResolverDeps wires the resolver's collaborators. Cache is optional.
type ResolverDeps struct {
	Fetcher     ports.DescriptionFetcher
	Classifier  ports.TextClassifier
	Cache       ports.DescriptionCache
	Fallback    domain.Label
	Concurrency int
	Logger      *slog.Logger
}

// Resolver turns identifiers into labeled entities: fetch, then classify,
// falling back to a fixed label when no description can be had.
type Resolver struct {
	fetcher     ports.DescriptionFetcher
	classifier  ports.TextClassifier
	cache       ports.DescriptionCache
	fallback    domain.Label
	concurrency int
	logger      *slog.Logger
}

// NewResolver validates and stores the dependencies.
func NewResolver(deps ResolverDeps) (*Resolver, error) {
	if deps.Fetcher == nil || deps.Classifier == nil {
		return nil, errors.New("resolver needs a fetcher and a classifier")
	}
	fallback := deps.Fallback
	if fallback == 0 {
		fallback = domain.LabelNoQID
	}
	if !fallback.Valid() {
		return nil, domain.ErrUnknownLabel
	}
	concurrency := deps.Concurrency
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Resolver{
		fetcher:     deps.Fetcher,
		classifier:  deps.Classifier,
		cache:       deps.Cache,
		fallback:    fallback,
		concurrency: concurrency,
		logger:      logging.Component(deps.Logger, "resolver"),
	}, nil
}

// ResolveAll resolves every identifier on a bounded pool. Per-identifier
// failures become fallback labels; only cancellation aborts the batch.
func (r *Resolver) ResolveAll(ctx context.Context, qids []string) (map[string]domain.Entity, error) {
	labels := newLabelCache()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, qid := range qids {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			_, err := labels.resolve(qid, func() (domain.Entity, error) {
				return r.resolveOne(gctx, qid)
			})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return labels.snapshot(), err
	}
	if err := ctx.Err(); err != nil {
		return labels.snapshot(), err
	}
	return labels.snapshot(), nil
}

func (r *Resolver) resolveOne(ctx context.Context, qid string) (domain.Entity, error) {
	if domain.IsMissingQID(qid) {
		return domain.Entity{QID: qid, Label: domain.LabelNoQID, Resolution: domain.ResolutionMissingQID}, nil
	}

	if r.cache != nil {
		entry, ok, err := r.cache.Get(ctx, qid)
		switch {
		case err != nil:
			r.logger.Warn("description cache read failed", "qid", qid, "error", err)
		case ok && entry.Missing:
			return r.fallbackEntity(qid, domain.ResolutionDescriptionMissing, 0, "cached miss"), nil
		case ok:
			desc := entry.Description
			return domain.Entity{
				QID:         qid,
				Description: &desc,
				Label:       r.classifier.Classify(desc),
				Resolution:  domain.ResolutionCached,
			}, nil
		}
	}

	desc, err := r.fetcher.FetchDescription(ctx, qid)
	if err != nil {
		if ctx.Err() != nil {
			return domain.Entity{}, ctx.Err()
		}
		attempts := attemptsOf(err)
		if errors.Is(err, domain.ErrFetchExhausted) || !errors.Is(err, domain.ErrNotFound) {
			return r.fallbackEntity(qid, domain.ResolutionFetchExhausted, attempts, err.Error()), nil
		}
		if !errors.Is(err, domain.ErrRequestRejected) {
			r.put(ctx, ports.CachedDescription{QID: qid, Missing: true})
		}
		return r.fallbackEntity(qid, domain.ResolutionDescriptionMissing, attempts, err.Error()), nil
	}

	r.put(ctx, ports.CachedDescription{QID: qid, Description: desc})
	return domain.Entity{
		QID:         qid,
		Description: &desc,
		Label:       r.classifier.Classify(desc),
		Resolution:  domain.ResolutionClassified,
	}, nil
}

func (r *Resolver) fallbackEntity(qid string, res domain.Resolution, attempts int, reason string) domain.Entity {
	r.logger.Warn("fallback label assigned",
		"qid", qid,
		"reason", string(res),
		"detail", reason,
		"attempts", attempts,
		"label", r.fallback.String(),
	)
	return domain.Entity{QID: qid, Label: r.fallback, Resolution: res, Attempts: attempts}
}

func (r *Resolver) put(ctx context.Context, entry ports.CachedDescription) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Put(ctx, entry); err != nil {
		r.logger.Warn("description cache write failed", "qid", entry.QID, "error", err)
	}
}

func attemptsOf(err error) int {
	var counter interface{ AttemptCount() int }
	if errors.As(err, &counter) {
		return counter.AttemptCount()
	}
	return 1
}
