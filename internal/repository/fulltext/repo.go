package fulltext

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pkgdex/internal/db"
	"github.com/kailas-cloud/pkgdex/internal/domain"
	"github.com/kailas-cloud/pkgdex/internal/domain/search/result"
	"github.com/kailas-cloud/pkgdex/internal/metrics"
)

// Defaults for Config.
const (
	DefaultFallbackStep = 0.001
	DefaultScanLimit    = 5000
)

// Config tunes lexical retrieval.
type Config struct {
	// IndexName is passed through to the engine. Engines without named indexes ignore it.
	IndexName string
	// FallbackStep is the score decrement between consecutive fallback hits.
	FallbackStep float64
	// ScanLimit bounds the candidates requested from the substring strategy.
	ScanLimit int
}

// state tracks which lexical strategy answered a query.
type state int

const (
	statePrimary state = iota
	stateFallback
	stateExhausted
)

func (s state) String() string {
	switch s {
	case statePrimary:
		return "primary"
	case stateFallback:
		return "fallback"
	default:
		return "exhausted"
	}
}

// Repo runs BM25 queries and falls back to substring matching when the engine rejects them.
type Repo struct {
	store  db.TextSearcher
	cfg    Config
	logger *zap.Logger
}

// New creates a full-text repository.
func New(s db.TextSearcher, cfg Config, logger *zap.Logger) *Repo {
	if cfg.FallbackStep <= 0 {
		cfg.FallbackStep = DefaultFallbackStep
	}
	if cfg.ScanLimit <= 0 {
		cfg.ScanLimit = DefaultScanLimit
	}
	return &Repo{store: s, cfg: cfg, logger: logger}
}

// Search returns up to limit lexical hits for query.
func (r *Repo) Search(ctx context.Context, query string, limit int) (result.Ranking, error) {
	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 {
		return result.Ranking{}, nil
	}
	if r.store == nil {
		return result.Ranking{}, domain.ErrNotInitialized
	}

	sr, primaryErr := r.store.SearchBM25(ctx, &db.TextQuery{
		IndexName: r.cfg.IndexName,
		Query:     query,
		TopK:      limit,
	})
	if primaryErr == nil {
		return result.Ranking{Hits: primaryHits(sr, limit)}, nil
	}
	if err := fatal(primaryErr); err != nil {
		return result.Ranking{}, err
	}

	st := stateFallback
	r.logger.Info("lexical query rejected, using substring fallback",
		zap.String("query", query),
		zap.Stringer("state", st),
		zap.Error(primaryErr),
	)

	hits, fallbackErr := r.substring(ctx, query, limit)
	if fallbackErr != nil {
		if err := fatal(fallbackErr); err != nil {
			return result.Ranking{}, err
		}
		st = stateExhausted
		r.logger.Warn("lexical search exhausted",
			zap.String("query", query),
			zap.Stringer("state", st),
			zap.Error(fallbackErr),
		)
		return result.Ranking{}, fmt.Errorf("%w: bm25: %w; substring: %w",
			domain.ErrQueryFailed, primaryErr, fallbackErr)
	}

	metrics.LexicalFallbackTotal.Inc()
	return result.Ranking{Hits: hits, Fallback: true}, nil
}

// fatal returns the error to propagate when err must not trigger a fallback.
func fatal(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, db.ErrClosed), errors.Is(err, domain.ErrNotInitialized):
		return fmt.Errorf("full-text index: %w", domain.ErrNotInitialized)
	}
	return nil
}

func primaryHits(sr *db.SearchResult, limit int) []result.Hit {
	if sr == nil || len(sr.Entries) == 0 {
		return nil
	}
	entries := make([]db.SearchEntry, 0, len(sr.Entries))
	seen := make(map[string]struct{}, len(sr.Entries))
	for _, e := range sr.Entries {
		if e.Key == "" || math.IsNaN(e.Score) {
			continue
		}
		if _, dup := seen[e.Key]; dup {
			continue
		}
		seen[e.Key] = struct{}{}
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}

	hits := make([]result.Hit, len(entries))
	for i, e := range entries {
		hits[i] = result.New(e.Key, e.Score)
	}
	return hits
}

type candidate struct {
	id        string
	name      string
	lowerName string
	inName    bool
}

func (r *Repo) substring(ctx context.Context, query string, limit int) ([]result.Hit, error) {
	sr, err := r.store.SearchSubstring(ctx, &db.SubstringQuery{
		IndexName: r.cfg.IndexName,
		Term:      query,
		Limit:     r.cfg.ScanLimit,
	})
	if err != nil {
		return nil, err
	}
	if sr == nil {
		return nil, nil
	}

	needle := strings.ToLower(query)
	cands := make([]candidate, 0, len(sr.Entries))
	seen := make(map[string]struct{}, len(sr.Entries))
	for _, e := range sr.Entries {
		if e.Key == "" {
			continue
		}
		if _, dup := seen[e.Key]; dup {
			continue
		}
		name := e.Fields[db.FieldName]
		lowerName := strings.ToLower(name)
		inName := strings.Contains(lowerName, needle)
		if !inName && !strings.Contains(strings.ToLower(e.Fields[db.FieldDescription]), needle) {
			continue
		}
		seen[e.Key] = struct{}{}
		cands = append(cands, candidate{id: e.Key, name: name, lowerName: lowerName, inName: inName})
	}

	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.inName != b.inName {
			return a.inName
		}
		if a.lowerName != b.lowerName {
			return a.lowerName < b.lowerName
		}
		return a.id < b.id
	})

	n := min(len(cands), limit, maxFallbackHits(r.cfg.FallbackStep))
	hits := make([]result.Hit, n)
	for i := range n {
		hits[i] = result.New(cands[i].id, 1.0-float64(i)*r.cfg.FallbackStep)
	}
	return hits, nil
}

// maxFallbackHits keeps every synthetic score strictly positive.
func maxFallbackHits(step float64) int {
	return max(int(math.Floor(1/step)), 1)
}
