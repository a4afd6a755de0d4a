package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pkgdex/internal/domain"
	"github.com/kailas-cloud/pkgdex/internal/metrics"
)

// Retry defaults.
const (
	DefaultMaxAttempts    = 3
	DefaultInitialBackoff = 100 * time.Millisecond
)

// RetryConfig controls the retry schedule. Backoff doubles after every failed attempt.
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
}

// RetryingEmbedder retries failed embedding calls with exponential backoff.
// Exhaustion is reported as domain.ErrEmbeddingUnavailable.
type RetryingEmbedder struct {
	inner  domain.Embedder
	cfg    RetryConfig
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRetryingEmbedder wraps an embedder with retries.
func NewRetryingEmbedder(inner domain.Embedder, cfg RetryConfig, logger *zap.Logger) *RetryingEmbedder {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultInitialBackoff
	}
	return &RetryingEmbedder{inner: inner, cfg: cfg, logger: logger, sleep: sleepCtx}
}

// Embed rejects empty text before any call, then tries up to MaxAttempts times.
func (r *RetryingEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if text == "" {
		return domain.EmbeddingResult{}, domain.ErrEmptyText
	}

	delay := r.cfg.InitialBackoff
	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			metrics.EmbeddingRetriesTotal.Inc()
		}

		result, err := r.inner.Embed(ctx, text)
		if err == nil {
			if attempt > 1 {
				r.logger.Debug("embedding succeeded after retry", zap.Int("attempt", attempt))
			}
			return result, nil
		}
		if permanent(err) {
			return domain.EmbeddingResult{}, err
		}
		lastErr = err

		if attempt == r.cfg.MaxAttempts {
			break
		}
		r.logger.Debug("embedding failed, will retry",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", r.cfg.MaxAttempts),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		if err := r.sleep(ctx, delay); err != nil {
			return domain.EmbeddingResult{}, err
		}
		delay *= 2
	}

	return domain.EmbeddingResult{}, fmt.Errorf("%w after %d attempts: %w",
		domain.ErrEmbeddingUnavailable, r.cfg.MaxAttempts, lastErr)
}

// HealthCheck delegates to the inner embedder when it supports health checks.
func (r *RetryingEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := r.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func permanent(err error) bool {
	return errors.Is(err, domain.ErrEmptyText) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
