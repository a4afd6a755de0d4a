package vector

import (
	"context"

	"github.com/kailas-cloud/pkgdex/internal/db"
)

// mockStore implements db.VectorSearcher for tests.
type mockStore struct {
	searchKNNFn func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	calls       int
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	m.calls++
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func testVector() []float32 {
	return []float32{0.1, 0.2, 0.3, 0.4}
}
