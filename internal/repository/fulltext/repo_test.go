package fulltext

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/kailas-cloud/pkgdex/internal/db"
	"github.com/kailas-cloud/pkgdex/internal/domain"
)

var errSyntax = errors.New(`fts5: syntax error near "-"`)

func TestSearch_EmptyQuery(t *testing.T) {
	repo, ms := newTestRepo(t, Config{})
	ms.searchBM25Fn = func(context.Context, *db.TextQuery) (*db.SearchResult, error) {
		t.Fatal("engine must not be called")
		return nil, nil
	}

	for _, q := range []string{"", "   ", "\t\n"} {
		r, err := repo.Search(context.Background(), q, 10)
		if err != nil || len(r.Hits) != 0 || r.Fallback {
			t.Errorf("Search(%q) = %+v, %v", q, r, err)
		}
	}
}

func TestSearch_PrimaryOrdersByScore(t *testing.T) {
	repo, ms := newTestRepo(t, Config{IndexName: "packages_fts"})
	ms.searchBM25Fn = func(_ context.Context, q *db.TextQuery) (*db.SearchResult, error) {
		if q.Query != "nodejs" || q.TopK != 20 || q.IndexName != "packages_fts" {
			t.Errorf("unexpected query %+v", q)
		}
		return &db.SearchResult{Total: 4, Entries: []db.SearchEntry{
			entry("nodejs_18", 4.2),
			entry("nodejs", 9.1),
			entry("", 100),
			entry("nodePackages.npm", 4.2),
		}}, nil
	}

	r, err := repo.Search(context.Background(), "  nodejs ", 20)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if r.Fallback {
		t.Error("primary result must not be flagged as fallback")
	}
	want := []string{"nodejs", "nodejs_18", "nodePackages.npm"}
	got := r.IDs()
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("ids = %v, want %v", got, want)
	}
}

func TestSearch_PrimaryTruncatesAndDedups(t *testing.T) {
	repo, ms := newTestRepo(t, Config{})
	ms.searchBM25Fn = func(context.Context, *db.TextQuery) (*db.SearchResult, error) {
		return &db.SearchResult{Entries: []db.SearchEntry{
			entry("a", 3), entry("a", 2.5), entry("b", 2), entry("c", 1),
		}}, nil
	}

	r, err := repo.Search(context.Background(), "x", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if fmt.Sprint(r.IDs()) != "[a b]" {
		t.Errorf("ids = %v", r.IDs())
	}
}

func TestSearch_PrimaryEmptyDoesNotFallBack(t *testing.T) {
	repo, ms := newTestRepo(t, Config{})

	r, err := repo.Search(context.Background(), "zzz", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(r.Hits) != 0 || r.Fallback || ms.substringCalls != 0 {
		t.Errorf("unexpected fallback: %+v calls=%d", r, ms.substringCalls)
	}
}

func TestSearch_SyntaxErrorFallsBack(t *testing.T) {
	repo, ms := newTestRepo(t, Config{})
	ms.searchBM25Fn = func(context.Context, *db.TextQuery) (*db.SearchResult, error) {
		return nil, &db.Error{Op: db.OpMatch, Err: errSyntax}
	}
	ms.searchSubstringFn = func(_ context.Context, q *db.SubstringQuery) (*db.SearchResult, error) {
		if q.Term != "node-" || q.Limit != DefaultScanLimit {
			t.Errorf("unexpected substring query %+v", q)
		}
		return &db.SearchResult{Entries: []db.SearchEntry{
			textEntry("yarn", "yarn", "Works with NODE-based projects"),
			textEntry("nodejs_20", "Node-20", "JavaScript runtime"),
			textEntry("nodejs_18", "node-18", "JavaScript runtime"),
			textEntry("python3", "python3", "unrelated over-approximation"),
		}}, nil
	}

	r, err := repo.Search(context.Background(), "node-", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !r.Fallback {
		t.Error("expected fallback flag")
	}
	want := "[nodejs_18 nodejs_20 yarn]"
	if fmt.Sprint(r.IDs()) != want {
		t.Errorf("ids = %v, want %s", r.IDs(), want)
	}
	for i := 1; i < len(r.Hits); i++ {
		if r.Hits[i].Score() >= r.Hits[i-1].Score() {
			t.Errorf("scores not strictly decreasing at %d: %v", i, r.Hits)
		}
	}
	if r.Hits[0].Score() != 1.0 {
		t.Errorf("first fallback score = %f, want 1.0", r.Hits[0].Score())
	}
}

func TestSearch_FallbackTieBreakByID(t *testing.T) {
	repo, ms := newTestRepo(t, Config{})
	ms.searchBM25Fn = func(context.Context, *db.TextQuery) (*db.SearchResult, error) {
		return nil, db.ErrIndexNotFound
	}
	ms.searchSubstringFn = func(context.Context, *db.SubstringQuery) (*db.SearchResult, error) {
		return &db.SearchResult{Entries: []db.SearchEntry{
			textEntry("b", "git", ""),
			textEntry("a", "GIT", ""),
			textEntry("a", "GIT", ""),
		}}, nil
	}

	r, err := repo.Search(context.Background(), "git", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if fmt.Sprint(r.IDs()) != "[a b]" {
		t.Errorf("ids = %v", r.IDs())
	}
}

func TestSearch_FallbackStepAndCap(t *testing.T) {
	repo, ms := newTestRepo(t, Config{FallbackStep: 0.25})
	ms.searchBM25Fn = func(context.Context, *db.TextQuery) (*db.SearchResult, error) {
		return nil, errSyntax
	}
	ms.searchSubstringFn = func(context.Context, *db.SubstringQuery) (*db.SearchResult, error) {
		entries := make([]db.SearchEntry, 10)
		for i := range entries {
			entries[i] = textEntry(fmt.Sprintf("pkg%02d", i), fmt.Sprintf("lib%02d", i), "")
		}
		return &db.SearchResult{Entries: entries}, nil
	}

	r, err := repo.Search(context.Background(), "lib", 100)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(r.Hits) != 4 {
		t.Fatalf("expected cap of 4 hits, got %d", len(r.Hits))
	}
	want := []float64{1.0, 0.75, 0.5, 0.25}
	for i, h := range r.Hits {
		if h.Score() != want[i] || h.Score() <= 0 {
			t.Errorf("hit %d score = %f, want %f", i, h.Score(), want[i])
		}
	}
}

func TestSearch_Exhausted(t *testing.T) {
	repo, ms := newTestRepo(t, Config{})
	substringErr := errors.New("disk I/O error")
	ms.searchBM25Fn = func(context.Context, *db.TextQuery) (*db.SearchResult, error) {
		return nil, errSyntax
	}
	ms.searchSubstringFn = func(context.Context, *db.SubstringQuery) (*db.SearchResult, error) {
		return nil, substringErr
	}

	_, err := repo.Search(context.Background(), "x", 10)
	if !errors.Is(err, domain.ErrQueryFailed) {
		t.Fatalf("expected ErrQueryFailed, got %v", err)
	}
	if !errors.Is(err, errSyntax) || !errors.Is(err, substringErr) {
		t.Errorf("both causes must be carried: %v", err)
	}
}

func TestSearch_ClosedDoesNotFallBack(t *testing.T) {
	repo, ms := newTestRepo(t, Config{})
	ms.searchBM25Fn = func(context.Context, *db.TextQuery) (*db.SearchResult, error) {
		return nil, db.ErrClosed
	}

	_, err := repo.Search(context.Background(), "x", 10)
	if !errors.Is(err, domain.ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
	if ms.substringCalls != 0 {
		t.Error("fallback must not run on a closed index")
	}
}

func TestSearch_CancelledDoesNotFallBack(t *testing.T) {
	repo, ms := newTestRepo(t, Config{})
	ms.searchBM25Fn = func(ctx context.Context, _ *db.TextQuery) (*db.SearchResult, error) {
		return nil, ctx.Err()
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := repo.Search(ctx, "x", 10)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if ms.substringCalls != 0 {
		t.Error("fallback must not run after cancellation")
	}
}

func TestSearch_NilStore(t *testing.T) {
	repo := New(nil, Config{}, nil)
	_, err := repo.Search(context.Background(), "x", 10)
	if !errors.Is(err, domain.ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
}

func TestState_String(t *testing.T) {
	tests := map[state]string{
		statePrimary:   "primary",
		stateFallback:  "fallback",
		stateExhausted: "exhausted",
	}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", s, s.String(), want)
		}
	}
}
