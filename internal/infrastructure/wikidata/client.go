package wikidata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"PageviewLabeler/internal/config"
	"PageviewLabeler/internal/domain"
	"PageviewLabeler/internal/logging"
	"PageviewLabeler/internal/ports"
)

const (
	maxErrorBody = 512
	// DefaultTimeout is used when the configuration leaves the timeout unset.
	DefaultTimeout = 15 * time.Second
)

// Client fetches entity descriptions from the Wikidata wbgetentities API.
type Client struct {
	endpoint  string
	userAgent string
	language  string
	policy    RetryPolicy
	http      *http.Client
	logger    *slog.Logger
}

var _ ports.DescriptionFetcher = (*Client)(nil)

// FetchError carries the audit details of a failed fetch. It unwraps to both
// the outcome sentinel (domain.ErrDescriptionMissing or
// domain.ErrFetchExhausted) and the last underlying cause.
type FetchError struct {
	QID      string
	Attempts int
	Outcome  error
	Cause    error
}

func (e *FetchError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("fetch %s: %v after %d attempt(s)", e.QID, e.Outcome, e.Attempts)
	}
	return fmt.Sprintf("fetch %s: %v after %d attempt(s): %v", e.QID, e.Outcome, e.Attempts, e.Cause)
}

// AttemptCount reports how many requests were issued.
func (e *FetchError) AttemptCount() int { return e.Attempts }

func (e *FetchError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Outcome}
	}
	return []error{e.Outcome, e.Cause}
}

// NewClient wires an HTTP client from configuration.
func NewClient(cfg config.KnowledgeBaseConfig, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	language := cfg.Language
	if language == "" {
		language = "en"
	}
	return &Client{
		endpoint:  cfg.Endpoint,
		userAgent: cfg.UserAgent,
		language:  language,
		policy:    PolicyFromConfig(cfg.Retry),
		http:      httpClient,
		logger:    logging.Component(logger, "wikidata"),
	}
}

// WithPolicy returns a copy of the client using policy.
func (c *Client) WithPolicy(policy RetryPolicy) *Client {
	clone := *c
	clone.policy = policy
	return &clone
}

// FetchDescription returns the description of qid in the configured
// language. Missing entities or descriptions yield domain.ErrDescriptionMissing
// without retrying. Other non-retryable answers do too, additionally wrapping
// domain.ErrRequestRejected. Transient failures are retried per the policy and
// yield domain.ErrFetchExhausted once it runs out.
func (c *Client) FetchDescription(ctx context.Context, qid string) (string, error) {
	qid = domain.NormalizeQID(qid)
	if domain.IsMissingQID(qid) {
		return "", &FetchError{QID: qid, Outcome: domain.ErrDescriptionMissing, Cause: errors.New("empty identifier")}
	}

	var (
		attempts    int
		description string
		missing     error
		lastErr     error
	)
	err := retry.Do(ctx, c.policy.backoff(), func(ctx context.Context) error {
		attempts++
		desc, status, err := c.fetchOnce(ctx, qid)
		switch {
		case err == nil:
			description = desc
			return nil
		case errors.Is(err, errEntityMissing):
			missing = err
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		case shouldRetry(status, errorIfTransport(status, err)):
			lastErr = err
			c.logger.Debug("transient fetch failure", "qid", qid, "attempt", attempts, "status", status, "error", err)
			return retry.RetryableError(err)
		default:
			missing = fmt.Errorf("%w: %w", domain.ErrRequestRejected, err)
			return nil
		}
	})

	switch {
	case err != nil && ctx.Err() != nil:
		return "", fmt.Errorf("fetch %s: %w", qid, ctx.Err())
	case err != nil:
		if lastErr == nil {
			lastErr = err
		}
		return "", &FetchError{QID: qid, Attempts: attempts, Outcome: domain.ErrFetchExhausted, Cause: lastErr}
	case missing != nil:
		return "", &FetchError{QID: qid, Attempts: attempts, Outcome: domain.ErrDescriptionMissing, Cause: missing}
	default:
		return description, nil
	}
}

var errEntityMissing = errors.New("entity has no description")

// statusError is a non-2xx HTTP answer.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("unexpected status %d", e.status)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.status, e.body)
}

// errorIfTransport hides HTTP status errors so shouldRetry decides on the
// status code alone, while transport errors stay visible.
func errorIfTransport(status int, err error) error {
	if status != 0 {
		return nil
	}
	return err
}

type entitiesResponse struct {
	Entities map[string]entity `json:"entities"`
	Error    *apiError         `json:"error"`
}

type entity struct {
	ID           string                         `json:"id"`
	Missing      bool                           `json:"missing"`
	Descriptions map[string]languageDescription `json:"descriptions"`
}

type languageDescription struct {
	Language string `json:"language"`
	Value    string `json:"value"`
}

type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

var transientAPICodes = map[string]struct{}{
	"maxlag":      {},
	"ratelimited": {},
	"readonly":    {},
}

func (c *Client) fetchOnce(ctx context.Context, qid string) (string, int, error) {
	u, err := c.buildURL(qid)
	if err != nil {
		return "", 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", 0, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", resp.StatusCode, &statusError{status: resp.StatusCode, body: strings.TrimSpace(string(payload))}
	}

	var body entitiesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		// A truncated or garbled body is treated like a transport failure.
		return "", 0, fmt.Errorf("decode response: %w", err)
	}

	if body.Error != nil {
		if _, transient := transientAPICodes[body.Error.Code]; transient {
			return "", http.StatusServiceUnavailable, fmt.Errorf("api error %s: %s", body.Error.Code, body.Error.Info)
		}
		return "", resp.StatusCode, fmt.Errorf("%w: api error %s: %s", errEntityMissing, body.Error.Code, body.Error.Info)
	}

	ent, ok := body.Entities[qid]
	if !ok && len(body.Entities) == 1 {
		// Redirected items are keyed by their target id.
		for _, only := range body.Entities {
			ent, ok = only, true
		}
	}
	if !ok || ent.Missing {
		return "", resp.StatusCode, fmt.Errorf("%w: %s is missing", errEntityMissing, qid)
	}
	desc, ok := ent.Descriptions[c.language]
	if !ok {
		return "", resp.StatusCode, fmt.Errorf("%w: no %s description for %s", errEntityMissing, c.language, qid)
	}
	return desc.Value, resp.StatusCode, nil
}

func (c *Client) buildURL(qid string) (string, error) {
	parsed, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid knowledge base url %s: %w", c.endpoint, err)
	}
	query := parsed.Query()
	query.Set("action", "wbgetentities")
	query.Set("ids", qid)
	query.Set("props", "descriptions")
	query.Set("languages", c.language)
	query.Set("format", "json")
	query.Set("formatversion", "2")
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
