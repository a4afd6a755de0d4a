package fulltext

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pkgdex/internal/db"
)

// mockStore implements db.TextSearcher for tests.
type mockStore struct {
	searchBM25Fn      func(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	searchSubstringFn func(ctx context.Context, q *db.SubstringQuery) (*db.SearchResult, error)
	substringCalls    int
}

func (m *mockStore) SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if m.searchBM25Fn != nil {
		return m.searchBM25Fn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchSubstring(ctx context.Context, q *db.SubstringQuery) (*db.SearchResult, error) {
	m.substringCalls++
	if m.searchSubstringFn != nil {
		return m.searchSubstringFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func newTestRepo(t *testing.T, cfg Config) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, cfg, zap.NewNop()), ms
}

func entry(id string, score float64) db.SearchEntry {
	return db.SearchEntry{Key: id, Score: score}
}

func textEntry(id, name, description string) db.SearchEntry {
	return db.SearchEntry{
		Key: id,
		Fields: map[string]string{
			db.FieldName:        name,
			db.FieldDescription: description,
		},
	}
}
