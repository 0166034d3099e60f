package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"PageviewLabeler/internal/domain"
	"PageviewLabeler/internal/ports"
)

type fakeFetcher struct {
	mu           sync.Mutex
	descriptions map[string]string
	missing      map[string]bool
	rejected     map[string]bool
	calls        map[string]int
	delay        time.Duration
}

func newFakeFetcher(descriptions map[string]string) *fakeFetcher {
	return &fakeFetcher{descriptions: descriptions, missing: map[string]bool{}, rejected: map[string]bool{}, calls: map[string]int{}}
}

func (f *fakeFetcher) FetchDescription(ctx context.Context, qid string) (string, error) {
	f.mu.Lock()
	f.calls[qid]++
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.rejected[qid] {
		return "", fmt.Errorf("fetch %s: %w: %w", qid, domain.ErrDescriptionMissing, domain.ErrRequestRejected)
	}
	if f.missing[qid] {
		return "", fmt.Errorf("fetch %s: %w", qid, domain.ErrDescriptionMissing)
	}
	desc, ok := f.descriptions[qid]
	if !ok {
		return "", &attemptsError{attempts: 5, err: fmt.Errorf("fetch %s: %w", qid, domain.ErrFetchExhausted)}
	}
	return desc, nil
}

func (f *fakeFetcher) callCount(qid string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[qid]
}

func (f *fakeFetcher) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int
	for _, c := range f.calls {
		n += c
	}
	return n
}

type attemptsError struct {
	attempts int
	err      error
}

func (e *attemptsError) Error() string     { return e.err.Error() }
func (e *attemptsError) Unwrap() error     { return e.err }
func (e *attemptsError) AttemptCount() int { return e.attempts }

// keywordClassifier labels anything mentioning politics-adjacent words as political.
type keywordClassifier struct{}

func (keywordClassifier) Classify(text string) domain.Label {
	lower := strings.ToLower(text)
	for _, kw := range []string{"president", "politic", "election", "parliament"} {
		if strings.Contains(lower, kw) {
			return domain.LabelPolitical
		}
	}
	return domain.LabelNonPolitical
}

func (keywordClassifier) Version() string { return "keyword-test" }

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]ports.CachedDescription
	puts    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]ports.CachedDescription{}}
}

func (c *memoryCache) Get(_ context.Context, qid string) (ports.CachedDescription, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[qid]
	return e, ok, nil
}

func (c *memoryCache) Put(_ context.Context, entry ports.CachedDescription) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entry.QID] = entry
	c.puts++
	return nil
}

type staticSource struct {
	inputs []domain.CountryPageviews
}

func (s staticSource) Load(context.Context) ([]domain.CountryPageviews, error) {
	return s.inputs, nil
}

type recordingSink struct {
	rows [][]domain.AggregateRow
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) WriteAggregate(_ context.Context, rows []domain.AggregateRow) error {
	s.rows = append(s.rows, rows)
	return nil
}

type recordingPublisher struct {
	objects map[string][]byte
}

func (p *recordingPublisher) Publish(_ context.Context, key string, body io.Reader) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return err
	}
	if p.objects == nil {
		p.objects = map[string][]byte{}
	}
	p.objects[key] = buf.Bytes()
	return nil
}

type recordingNotifier struct {
	messages []string
}

func (n *recordingNotifier) PublishReport(_ context.Context, text string) error {
	n.messages = append(n.messages, text)
	return nil
}

type recordingRecorder struct {
	runs []domain.RunManifest
}

func (r *recordingRecorder) RecordRun(_ context.Context, m domain.RunManifest) error {
	r.runs = append(r.runs, m)
	return nil
}

func day(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func row(country, qid, date string, views int64) domain.PageviewRow {
	return domain.PageviewRow{CountryCode: country, QID: qid, Date: day(date), Views: views}
}

func domainCached(qid, desc string, missing bool) ports.CachedDescription {
	return ports.CachedDescription{QID: qid, Description: desc, Missing: missing}
}
