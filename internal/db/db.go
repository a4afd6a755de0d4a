package db

import (
	"context"
	"time"
)

// Pinger checks backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides point lookups of raw values.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// KVWriter provides value writes. Only caches write; package records are read-only.
type KVWriter interface {
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// TextSearcher provides lexical retrieval over a full-text index.
type TextSearcher interface {
	SearchBM25(ctx context.Context, q *TextQuery) (*SearchResult, error)
	SearchSubstring(ctx context.Context, q *SubstringQuery) (*SearchResult, error)
}

// VectorSearcher provides nearest-neighbour retrieval.
type VectorSearcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
}
