package vector

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/kailas-cloud/pkgdex/internal/db"
	"github.com/kailas-cloud/pkgdex/internal/domain"
	"github.com/kailas-cloud/pkgdex/internal/domain/search/result"
)

// Config tunes nearest-neighbour retrieval.
type Config struct {
	Enabled   bool
	IndexName string
}

// Repo runs KNN queries and converts distances into similarity scores.
type Repo struct {
	store db.VectorSearcher
	cfg   Config
}

// New creates a vector repository. A nil store disables it.
func New(s db.VectorSearcher, cfg Config) *Repo {
	return &Repo{store: s, cfg: cfg}
}

// Enabled reports whether the repository can serve queries.
func (r *Repo) Enabled() bool {
	return r != nil && r.cfg.Enabled && r.store != nil
}

// Search returns up to limit nearest packages in engine order.
func (r *Repo) Search(ctx context.Context, embedding []float32, limit int) (result.Ranking, error) {
	if !r.Enabled() || len(embedding) == 0 || limit <= 0 {
		return result.Ranking{}, nil
	}

	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName: r.cfg.IndexName,
		Vector:    embedding,
		K:         limit,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return result.Ranking{}, err
		}
		return result.Ranking{}, fmt.Errorf("%w: knn: %w", domain.ErrQueryFailed, err)
	}
	if sr == nil {
		return result.Ranking{}, nil
	}

	hits := make([]result.Hit, 0, min(len(sr.Entries), limit))
	seen := make(map[string]struct{}, len(sr.Entries))
	for _, e := range sr.Entries {
		if len(hits) == limit {
			break
		}
		if e.Key == "" || math.IsNaN(e.Score) {
			continue
		}
		if _, dup := seen[e.Key]; dup {
			continue
		}
		seen[e.Key] = struct{}{}
		hits = append(hits, result.New(e.Key, Similarity(e.Score)))
	}
	return result.Ranking{Hits: hits}, nil
}

// Similarity maps a distance onto (0, 1]; non-positive distances score 1.
func Similarity(distance float64) float64 {
	if distance > 0 {
		return 1 / (1 + distance)
	}
	return 1
}
