package pkgdex

import "github.com/kailas-cloud/pkgdex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotInitialized         = domain.ErrNotInitialized
	ErrQueryFailed            = domain.ErrQueryFailed
	ErrInvalidRequest         = domain.ErrInvalidRequest
	ErrEmbeddingUnavailable   = domain.ErrEmbeddingUnavailable
	ErrRateLimited            = domain.ErrRateLimited
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
)
