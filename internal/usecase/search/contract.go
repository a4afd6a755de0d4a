package search

import (
	"context"

	"github.com/kailas-cloud/pkgdex/internal/domain"
	"github.com/kailas-cloud/pkgdex/internal/domain/record"
	"github.com/kailas-cloud/pkgdex/internal/domain/search/result"
)

// LexicalSearcher ranks packages by text relevance.
type LexicalSearcher interface {
	Search(ctx context.Context, query string, limit int) (result.Ranking, error)
}

// VectorSearcher ranks packages by embedding similarity.
type VectorSearcher interface {
	Enabled() bool
	Search(ctx context.Context, embedding []float32, limit int) (result.Ranking, error)
}

// Hydrator loads full records for ranked identifiers.
type Hydrator interface {
	HydrateMany(ctx context.Context, hits []result.Hit) ([]record.Package, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
