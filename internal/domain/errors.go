package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is the umbrella for every "no description available" outcome.
	ErrNotFound = errors.New("description not found")

	// ErrDescriptionMissing means the knowledge base answered and has no description.
	ErrDescriptionMissing = fmt.Errorf("%w: entity has no description", ErrNotFound)

	// ErrFetchExhausted means every retry attempt failed transiently.
	ErrFetchExhausted = fmt.Errorf("%w: retries exhausted", ErrNotFound)

	// ErrRequestRejected marks a description miss caused by the knowledge base
	// refusing the request (4xx) rather than answering about the entity. Such
	// misses are not definitive and must not be cached.
	ErrRequestRejected = errors.New("request rejected")

	// ErrViewsOverflow means a view total no longer fits in int64.
	ErrViewsOverflow = errors.New("view count overflows int64")

	// ErrAggregationInvariant means aggregated views do not reconcile with raw input.
	ErrAggregationInvariant = errors.New("aggregation invariant violated")
)
