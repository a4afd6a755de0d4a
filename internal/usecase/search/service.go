package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/pkgdex/internal/domain"
	"github.com/kailas-cloud/pkgdex/internal/domain/search/mode"
	"github.com/kailas-cloud/pkgdex/internal/domain/search/request"
	"github.com/kailas-cloud/pkgdex/internal/domain/search/result"
	"github.com/kailas-cloud/pkgdex/internal/metrics"
)

// Defaults for Config.
const (
	DefaultCandidateMultiplier = 2
	DefaultMaxCandidates       = 1000
)

// Config tunes retrieval and fusion.
type Config struct {
	EmbeddingsEnabled bool
	// CandidateMultiplier scales the page limit into per-adapter candidate counts.
	CandidateMultiplier int
	// MaxCandidates caps candidates per adapter and is used when the limit is uncapped.
	MaxCandidates int
	RRFK          float64
}

// Service orchestrates mode selection, retrieval, fusion, hydration, filtering and pagination.
type Service struct {
	lexical LexicalSearcher
	vector  VectorSearcher
	records Hydrator
	embed   Embedder
	cfg     Config
	logger  *zap.Logger
}

// New creates a search service. vector and embed may be nil.
func New(
	lexical LexicalSearcher, vector VectorSearcher, records Hydrator, embed Embedder,
	cfg Config, logger *zap.Logger,
) *Service {
	if cfg.CandidateMultiplier <= 0 {
		cfg.CandidateMultiplier = DefaultCandidateMultiplier
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = DefaultMaxCandidates
	}
	if cfg.RRFK <= 0 {
		cfg.RRFK = DefaultRRFK
	}
	return &Service{
		lexical: lexical,
		vector:  vector,
		records: records,
		embed:   embed,
		cfg:     cfg,
		logger:  logger,
	}
}

// Search executes one query end to end.
func (s *Service) Search(ctx context.Context, req request.Request) (result.Results, error) {
	start := time.Now()
	if s.lexical == nil || s.records == nil {
		return result.Results{}, domain.ErrNotInitialized
	}

	candidates := s.candidates(req.Limit())

	embedding, err := s.queryEmbedding(ctx, req)
	if err != nil {
		return result.Results{}, err
	}
	m := selectMode(req.Mode(), embedding)

	hits, searchType, err := s.retrieve(ctx, req.Query(), embedding, m, candidates)
	if err != nil {
		return result.Results{}, err
	}

	pkgs, err := s.records.HydrateMany(ctx, hits)
	if err != nil {
		return result.Results{}, fmt.Errorf("hydrate: %w", err)
	}
	total := len(pkgs)
	pkgs = paginate(req.Filter().Apply(pkgs), req.Offset(), req.Limit())

	elapsed := time.Since(start)
	metrics.SearchRequestsTotal.WithLabelValues(string(searchType)).Inc()
	metrics.SearchDuration.WithLabelValues(string(searchType)).Observe(elapsed.Seconds())

	return result.Results{
		Query:      req.Query(),
		Packages:   pkgs,
		TotalCount: total,
		Elapsed:    elapsed,
		SearchType: searchType,
	}, nil
}

func (s *Service) candidates(limit int) int {
	if limit <= 0 {
		return s.cfg.MaxCandidates
	}
	if limit > s.cfg.MaxCandidates/s.cfg.CandidateMultiplier {
		return s.cfg.MaxCandidates
	}
	return limit * s.cfg.CandidateMultiplier
}

// queryEmbedding returns nil when the vector mode cannot run.
// Only cancellation of the request itself is reported as an error.
func (s *Service) queryEmbedding(ctx context.Context, req request.Request) ([]float32, error) {
	if req.Query() == "" || req.Mode() == mode.FTS || !s.vectorReady() {
		return nil, nil
	}

	res, err := s.embed.Embed(ctx, req.Query())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		metrics.SearchDegradedTotal.WithLabelValues("embedding").Inc()
		s.logger.Warn("query embedding unavailable, using full-text search",
			zap.Error(err),
			zap.Bool("unavailable", errors.Is(err, domain.ErrEmbeddingUnavailable)),
		)
		return nil, nil
	}
	return res.Embedding, nil
}

func (s *Service) vectorReady() bool {
	return s.cfg.EmbeddingsEnabled && s.embed != nil && s.vector != nil && s.vector.Enabled()
}

// selectMode honours a requested mode but never runs a vector mode without an embedding.
func selectMode(requested mode.Mode, embedding []float32) mode.Mode {
	if len(embedding) == 0 {
		return mode.FTS
	}
	switch requested {
	case mode.FTS, mode.Vector:
		return requested
	default:
		return mode.Hybrid
	}
}

func (s *Service) retrieve(
	ctx context.Context, query string, embedding []float32, m mode.Mode, candidates int,
) ([]result.Hit, mode.Mode, error) {
	switch m {
	case mode.Vector:
		vec, err := s.vector.Search(ctx, embedding, candidates)
		if err == nil {
			return vec.Hits, mode.Vector, nil
		}
		if err := s.degrade(ctx, err); err != nil {
			return nil, "", err
		}
		return s.lexicalOnly(ctx, query, candidates)

	case mode.Hybrid:
		var lex, vec result.Ranking
		var vecErr error

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			lex, err = s.lexical.Search(gctx, query, candidates)
			if err != nil {
				return fmt.Errorf("lexical search: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			vec, vecErr = s.vector.Search(gctx, embedding, candidates)
			return nil
		})
		if err := g.Wait(); err != nil {
			return nil, "", err
		}
		if vecErr != nil {
			if err := s.degrade(ctx, vecErr); err != nil {
				return nil, "", err
			}
			return lex.Hits, lexicalMode(lex), nil
		}

		fused := fuseRRF(vec.Hits, lex.Hits, s.cfg.RRFK)
		if len(fused) > s.cfg.MaxCandidates {
			fused = fused[:s.cfg.MaxCandidates]
		}
		if lex.Fallback {
			return fused, mode.Fallback, nil
		}
		return fused, mode.Hybrid, nil

	default:
		return s.lexicalOnly(ctx, query, candidates)
	}
}

func (s *Service) lexicalOnly(ctx context.Context, query string, candidates int) ([]result.Hit, mode.Mode, error) {
	lex, err := s.lexical.Search(ctx, query, candidates)
	if err != nil {
		return nil, "", fmt.Errorf("lexical search: %w", err)
	}
	return lex.Hits, lexicalMode(lex), nil
}

// degrade records a lost vector mode; it returns an error only when the request itself ended.
func (s *Service) degrade(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	metrics.SearchDegradedTotal.WithLabelValues("vector").Inc()
	s.logger.Warn("vector search failed, using full-text results", zap.Error(err))
	return nil
}

func lexicalMode(r result.Ranking) mode.Mode {
	if r.Fallback {
		return mode.Fallback
	}
	return mode.FTS
}
