package search

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pkgdex/internal/domain"
	"github.com/kailas-cloud/pkgdex/internal/domain/record"
	"github.com/kailas-cloud/pkgdex/internal/domain/search/filter"
	"github.com/kailas-cloud/pkgdex/internal/domain/search/mode"
	"github.com/kailas-cloud/pkgdex/internal/domain/search/request"
	"github.com/kailas-cloud/pkgdex/internal/domain/search/result"
)

type mockLexical struct {
	mu       sync.Mutex
	searchFn func(ctx context.Context, query string, limit int) (result.Ranking, error)
	limits   []int
}

func (m *mockLexical) Search(ctx context.Context, query string, limit int) (result.Ranking, error) {
	m.mu.Lock()
	m.limits = append(m.limits, limit)
	m.mu.Unlock()
	if m.searchFn != nil {
		return m.searchFn(ctx, query, limit)
	}
	return result.Ranking{}, nil
}

type mockVector struct {
	enabled  bool
	searchFn func(ctx context.Context, embedding []float32, limit int) (result.Ranking, error)
	calls    int
}

func (m *mockVector) Enabled() bool { return m.enabled }

func (m *mockVector) Search(ctx context.Context, embedding []float32, limit int) (result.Ranking, error) {
	m.calls++
	if m.searchFn != nil {
		return m.searchFn(ctx, embedding, limit)
	}
	return result.Ranking{}, nil
}

// mockHydrator resolves hits from an in-memory catalogue, dropping unknown ids.
type mockHydrator struct {
	pkgs map[string]record.Package
	err  error
}

func (m *mockHydrator) HydrateMany(_ context.Context, hits []result.Hit) ([]record.Package, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]record.Package, 0, len(hits))
	for _, h := range hits {
		if p, ok := m.pkgs[h.ID()]; ok {
			out = append(out, p.WithScore(h.Score()))
		}
	}
	return out, nil
}

type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) (domain.EmbeddingResult, error)
	calls   int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}, nil
}

type fixture struct {
	svc     *Service
	lexical *mockLexical
	vector  *mockVector
	records *mockHydrator
	embed   *mockEmbedder
}

func newFixture(t *testing.T, embeddings bool) *fixture {
	t.Helper()
	f := &fixture{
		lexical: &mockLexical{},
		vector:  &mockVector{enabled: embeddings},
		records: &mockHydrator{pkgs: catalogue()},
		embed:   &mockEmbedder{},
	}
	f.svc = New(f.lexical, f.vector, f.records, f.embed,
		Config{EmbeddingsEnabled: embeddings}, zap.NewNop())
	return f
}

func catalogue() map[string]record.Package {
	pkgs := []record.Package{
		{ID: "nodejs", Name: "nodejs", Version: "20.11.0", License: "MIT", Category: "development", Available: true},
		{ID: "nodejs_18", Name: "nodejs", Version: "18.19.0", License: "MIT", Category: "development", Available: true},
		{ID: "nodejs-slim", Name: "nodejs-slim", Version: "20.11.0", License: "MIT", Category: "development", Available: true},
		{ID: "deno", Name: "deno", Version: "1.40.0", License: "MIT", Category: "development", Available: true},
		{ID: "bun", Name: "bun", Version: "1.0.25", License: "MIT", Category: "development", Broken: true, Available: true},
		{ID: "vscode", Name: "vscode", Version: "1.86.0", License: "Microsoft Software License", Category: "editors", Unfree: true},
	}
	m := make(map[string]record.Package, len(pkgs))
	for _, p := range pkgs {
		m[p.ID] = p
	}
	return m
}

func ranking(fallback bool, ids ...string) result.Ranking {
	hits := make([]result.Hit, len(ids))
	for i, id := range ids {
		hits[i] = result.New(id, float64(len(ids)-i))
	}
	return result.Ranking{Hits: hits, Fallback: fallback}
}

func mustRequest(t *testing.T, query string, limit, offset int, f filter.Filter, m mode.Mode) request.Request {
	t.Helper()
	req, err := request.New(query, limit, offset, f, m)
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	return req
}

func ids(pkgs []record.Package) []string {
	out := make([]string, len(pkgs))
	for i, p := range pkgs {
		out[i] = p.ID
	}
	return out
}
