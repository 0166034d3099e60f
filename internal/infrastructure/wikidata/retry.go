package wikidata

import (
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"PageviewLabeler/internal/config"
)

const minBackoff = time.Millisecond

// RetryPolicy bounds how often and how patiently a fetch is retried.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     string
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// PolicyFromConfig converts the configured retry settings.
func PolicyFromConfig(cfg config.RetryConfig) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		Backoff:     cfg.Backoff,
		BaseDelay:   cfg.BaseDelay,
		MaxDelay:    cfg.MaxDelay,
	}
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p RetryPolicy) backoff() retry.Backoff {
	base := p.BaseDelay
	if base < minBackoff {
		base = minBackoff
	}

	var b retry.Backoff
	switch p.Backoff {
	case config.BackoffConstant:
		b = retry.NewConstant(base)
	case config.BackoffFibonacci:
		b = retry.NewFibonacci(base)
	default:
		b = retry.NewExponential(base)
	}
	if p.MaxDelay > 0 {
		b = retry.WithCappedDuration(p.MaxDelay, b)
	}
	return retry.WithMaxRetries(uint64(p.attempts()-1), b)
}

// shouldRetry reports whether a failed attempt is worth repeating: transport
// errors, timeouts, 5xx and 429 are transient, everything else is final.
// Cancellation of the caller's context is checked separately.
func shouldRetry(status int, err error) bool {
	if err != nil {
		return true
	}
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}
