package embedding

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/kailas-cloud/pkgdex/internal/domain"
)

// RateLimitedEmbedder caps the request rate towards the embedding provider.
type RateLimitedEmbedder struct {
	inner   domain.Embedder
	limiter *rate.Limiter
}

// NewRateLimitedEmbedder allows rps requests per second with the given burst.
// A non-positive rps disables limiting.
func NewRateLimitedEmbedder(inner domain.Embedder, rps float64, burst int) *RateLimitedEmbedder {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitedEmbedder{inner: inner, limiter: rate.NewLimiter(limit, burst)}
}

// Embed waits for a token, then delegates.
func (r *RateLimitedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return domain.EmbeddingResult{}, err
		}
		// Wait fails fast when the deadline cannot accommodate the next token.
		return domain.EmbeddingResult{}, fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
	}
	return r.inner.Embed(ctx, text)
}

// HealthCheck bypasses the limiter.
func (r *RateLimitedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := r.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
