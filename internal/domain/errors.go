package domain

import "errors"

var (
	// ErrNotInitialized signals that a backing store or index handle is absent or closed.
	ErrNotInitialized = errors.New("not initialized")
	// ErrQueryFailed signals a retrieval call that failed with no viable fallback.
	ErrQueryFailed = errors.New("query failed")
	// ErrRecordNotFound signals a hydration miss for one identifier.
	ErrRecordNotFound = errors.New("record not found")
	// ErrDecompressionFailed signals a corrupt or incompatible compressed payload.
	ErrDecompressionFailed = errors.New("decompression failed")
	// ErrEmbeddingUnavailable signals that the embedding collaborator exhausted its retries.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	// ErrEmptyText signals an embedding request with no text.
	ErrEmptyText = errors.New("empty text")
	// ErrInvalidRequest signals malformed search parameters.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)
