package pkgdex

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	dictPath     string
	dictRequired bool

	embedder         Embedder
	queryInstruction string
	hnswPath         string

	cacheSize    int
	workers      int
	fallbackStep float64

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithDictionary sets the decompression dictionary path.
// By default the artifact path with a .dict extension is tried and may be absent.
func WithDictionary(path string, required bool) Option {
	return optionFunc(func(c *clientConfig) {
		c.dictPath = path
		c.dictRequired = required
	})
}

// WithEmbedder sets the query embedding provider. Vector retrieval also needs WithHNSW.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithQueryInstruction prepends an instruction to every embedded query.
func WithQueryInstruction(instruction string) Option {
	return optionFunc(func(c *clientConfig) {
		c.queryInstruction = instruction
	})
}

// WithHNSW loads a prebuilt coder/hnsw graph (and its .meta sidecar) for vector retrieval.
func WithHNSW(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.hnswPath = path
	})
}

// WithRecordCache bounds the decoded record cache. Negative disables it.
// Default: 10000.
func WithRecordCache(size int) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheSize = size
	})
}

// WithWorkers bounds concurrent record lookups. Default: 32.
func WithWorkers(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.workers = n
	})
}

// WithFallbackStep sets the score decrement between substring fallback hits.
// Default: 0.001.
func WithFallbackStep(step float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.fallbackStep = step
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
