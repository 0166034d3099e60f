package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"PageviewLabeler/internal/domain"
)

func newTestResolver(t *testing.T, fetcher *fakeFetcher, cache *memoryCache, concurrency int) *Resolver {
	t.Helper()
	deps := ResolverDeps{
		Fetcher:     fetcher,
		Classifier:  keywordClassifier{},
		Concurrency: concurrency,
	}
	if cache != nil {
		deps.Cache = cache
	}
	r, err := NewResolver(deps)
	require.NoError(t, err)
	return r
}

func TestResolveAllClassifiesAndFallsBack(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher(map[string]string{
		"Q7747": "President of Russia",
		"Q90":   "capital city of France",
	})
	fetcher.missing["Q404"] = true
	cache := newMemoryCache()
	r := newTestResolver(t, fetcher, cache, 4)

	entities, err := r.ResolveAll(context.Background(), []string{"Q7747", "Q90", "Q404", "Q999999"})
	require.NoError(t, err)
	require.Len(t, entities, 4)

	require.Equal(t, domain.LabelPolitical, entities["Q7747"].Label)
	require.Equal(t, domain.ResolutionClassified, entities["Q7747"].Resolution)
	require.NotNil(t, entities["Q7747"].Description)
	require.Equal(t, domain.LabelNonPolitical, entities["Q90"].Label)

	require.Equal(t, domain.LabelNoQID, entities["Q404"].Label)
	require.Equal(t, domain.ResolutionDescriptionMissing, entities["Q404"].Resolution)

	exhausted := entities["Q999999"]
	require.Equal(t, domain.LabelNoQID, exhausted.Label)
	require.Equal(t, domain.ResolutionFetchExhausted, exhausted.Resolution)
	require.Equal(t, 5, exhausted.Attempts)
	require.Nil(t, exhausted.Description)

	// Exhausted fetches are not cached; definitive misses are.
	_, ok, _ := cache.Get(context.Background(), "Q999999")
	require.False(t, ok)
	miss, ok, _ := cache.Get(context.Background(), "Q404")
	require.True(t, ok)
	require.True(t, miss.Missing)
	hit, ok, _ := cache.Get(context.Background(), "Q7747")
	require.True(t, ok)
	require.Equal(t, "President of Russia", hit.Description)
}

func TestResolveAllUsesPersistentCache(t *testing.T) {
	t.Parallel()

	cache := newMemoryCache()
	require.NoError(t, cache.Put(context.Background(), domainCached("Q7747", "President of Russia", false)))
	require.NoError(t, cache.Put(context.Background(), domainCached("Q404", "", true)))

	fetcher := newFakeFetcher(nil)
	r := newTestResolver(t, fetcher, cache, 2)

	entities, err := r.ResolveAll(context.Background(), []string{"Q7747", "Q404"})
	require.NoError(t, err)
	require.Equal(t, 0, fetcher.totalCalls())
	require.Equal(t, domain.ResolutionCached, entities["Q7747"].Resolution)
	require.Equal(t, domain.LabelPolitical, entities["Q7747"].Label)
	require.Equal(t, domain.ResolutionDescriptionMissing, entities["Q404"].Resolution)
	require.Equal(t, domain.LabelNoQID, entities["Q404"].Label)
}

func TestResolveAllDoesNotCacheRejectedRequests(t *testing.T) {
	t.Parallel()

	cache := newMemoryCache()
	fetcher := newFakeFetcher(map[string]string{"Q7747": "President of Russia"})
	fetcher.rejected["Q7747"] = true

	entities, err := newTestResolver(t, fetcher, cache, 1).ResolveAll(context.Background(), []string{"Q7747"})
	require.NoError(t, err)
	require.Equal(t, domain.ResolutionDescriptionMissing, entities["Q7747"].Resolution)
	require.Equal(t, domain.LabelNoQID, entities["Q7747"].Label)
	_, ok, _ := cache.Get(context.Background(), "Q7747")
	require.False(t, ok)

	// Once the endpoint accepts requests again the next run refetches.
	delete(fetcher.rejected, "Q7747")
	entities, err = newTestResolver(t, fetcher, cache, 1).ResolveAll(context.Background(), []string{"Q7747"})
	require.NoError(t, err)
	require.Equal(t, domain.ResolutionClassified, entities["Q7747"].Resolution)
	require.Equal(t, domain.LabelPolitical, entities["Q7747"].Label)
	require.Equal(t, 2, fetcher.callCount("Q7747"))
}

func TestResolveAllFetchesEachIdentifierOnce(t *testing.T) {
	t.Parallel()

	descriptions := map[string]string{}
	var qids []string
	for i := 0; i < 20; i++ {
		qid := fmt.Sprintf("Q%d", i+1)
		descriptions[qid] = "some topic"
		// Every identifier appears three times to exercise the per-key guard.
		qids = append(qids, qid, qid, qid)
	}
	fetcher := newFakeFetcher(descriptions)
	fetcher.delay = 2 * time.Millisecond
	r := newTestResolver(t, fetcher, nil, 8)

	entities, err := r.ResolveAll(context.Background(), qids)
	require.NoError(t, err)
	require.Len(t, entities, 20)
	for qid := range descriptions {
		require.Equal(t, 1, fetcher.callCount(qid), qid)
	}
}

func TestResolveAllHonoursFallbackLabel(t *testing.T) {
	t.Parallel()

	r, err := NewResolver(ResolverDeps{
		Fetcher:    newFakeFetcher(nil),
		Classifier: keywordClassifier{},
		Fallback:   domain.LabelNonPolitical,
	})
	require.NoError(t, err)

	entities, err := r.ResolveAll(context.Background(), []string{"Q999999"})
	require.NoError(t, err)
	require.Equal(t, domain.LabelNonPolitical, entities["Q999999"].Label)
	require.Equal(t, domain.ResolutionFetchExhausted, entities["Q999999"].Resolution)
}

func TestResolveAllCancelled(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher(map[string]string{"Q1": "x", "Q2": "y", "Q3": "z"})
	fetcher.delay = time.Second
	r := newTestResolver(t, fetcher, nil, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := r.ResolveAll(ctx, []string{"Q1", "Q2", "Q3"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewResolverRequiresCollaborators(t *testing.T) {
	t.Parallel()

	_, err := NewResolver(ResolverDeps{Classifier: keywordClassifier{}})
	require.Error(t, err)
}

func TestLabelCacheFirstWriteWins(t *testing.T) {
	t.Parallel()

	c := newLabelCache()
	first := c.storeOnce(domain.Entity{QID: "Q1", Label: domain.LabelPolitical})
	second := c.storeOnce(domain.Entity{QID: "Q1", Label: domain.LabelNonPolitical})
	require.Equal(t, domain.LabelPolitical, first.Label)
	require.Equal(t, domain.LabelPolitical, second.Label)

	calls := 0
	got, err := c.resolve("Q1", func() (domain.Entity, error) {
		calls++
		return domain.Entity{}, nil
	})
	require.NoError(t, err)
	require.Equal(t, 0, calls)
	require.Equal(t, domain.LabelPolitical, got.Label)
}
