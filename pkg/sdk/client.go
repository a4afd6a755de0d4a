package pkgdex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pkgdex/internal/db/hnswidx"
	"github.com/kailas-cloud/pkgdex/internal/db/sqlite"
	"github.com/kailas-cloud/pkgdex/internal/domain"
	"github.com/kailas-cloud/pkgdex/internal/domain/record"
	"github.com/kailas-cloud/pkgdex/internal/domain/search/filter"
	"github.com/kailas-cloud/pkgdex/internal/domain/search/mode"
	"github.com/kailas-cloud/pkgdex/internal/domain/search/request"
	"github.com/kailas-cloud/pkgdex/internal/domain/search/result"
	"github.com/kailas-cloud/pkgdex/internal/repository/fulltext"
	"github.com/kailas-cloud/pkgdex/internal/repository/records"
	"github.com/kailas-cloud/pkgdex/internal/repository/vector"
	healthuc "github.com/kailas-cloud/pkgdex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/pkgdex/internal/usecase/search"
)

// Internal interface for substitution in tests.
type searchUseCase interface {
	Search(ctx context.Context, req request.Request) (result.Results, error)
}

// Client is the pkgdex SDK entry point.
type Client struct {
	searchSvc searchUseCase
	healthSvc healthUseCase
	closers   []func()
	obs       *observer
}

// Open opens a SQLite search artifact read-only and wires an in-process search service.
func Open(ctx context.Context, path string, opts ...Option) (_ *Client, err error) {
	if path == "" {
		return nil, errors.New("pkgdex: artifact path required")
	}
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	c := &Client{obs: obs}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	store, err := sqlite.Open(ctx, sqlite.Config{Path: path})
	if err != nil {
		return nil, fmt.Errorf("pkgdex: open artifact: %w", err)
	}
	c.closers = append(c.closers, func() { _ = store.Close() })

	dictPath := cfg.dictPath
	if dictPath == "" {
		dictPath = records.DefaultDictionaryPath(path)
	}
	dict, err := records.LoadDictionary(dictPath, cfg.dictRequired)
	if err != nil {
		return nil, fmt.Errorf("pkgdex: %w", err)
	}
	codec, err := records.NewCodec(dict)
	if err != nil {
		return nil, fmt.Errorf("pkgdex: %w", err)
	}
	c.closers = append(c.closers, codec.Close)

	// Internals log through zap; SDK operations are observed via slog.
	nop := zap.NewNop()

	recordStore, err := records.New(store, codec, records.Config{
		CacheSize: cfg.cacheSize,
		Workers:   cfg.workers,
	}, nop)
	if err != nil {
		return nil, fmt.Errorf("pkgdex: %w", err)
	}
	c.closers = append(c.closers, recordStore.Close)

	lexical := fulltext.New(store, fulltext.Config{FallbackStep: cfg.fallbackStep}, nop)

	var (
		embedder domain.Embedder
		vecRepo  *vector.Repo
		comps    []healthuc.Component
	)
	add := func(comp healthuc.Component, ok bool) {
		if ok {
			comps = append(comps, comp)
		}
	}
	add(healthuc.PingComponent(healthuc.ComponentLexical, store, true))
	add(healthuc.PingComponent(healthuc.ComponentRecords, recordStore, true))

	if cfg.embedder != nil {
		embedder = &embedderAdapter{inner: cfg.embedder}
		if cfg.queryInstruction != "" {
			embedder = domain.NewInstructionEmbedder(embedder, cfg.queryInstruction)
		}
	}
	if cfg.hnswPath != "" {
		graph, err := hnswidx.Open(hnswidx.Config{Path: cfg.hnswPath})
		if err != nil {
			return nil, fmt.Errorf("pkgdex: open hnsw graph: %w", err)
		}
		c.closers = append(c.closers, func() { _ = graph.Close() })
		vecRepo = vector.New(graph, vector.Config{Enabled: embedder != nil})
		if vecRepo.Enabled() {
			add(healthuc.PingComponent(healthuc.ComponentVector, graph, false))
		}
	}

	var searchEmbedder searchuc.Embedder
	if embedder != nil {
		searchEmbedder = embedder
	}
	var vecSearcher searchuc.VectorSearcher
	if vecRepo != nil {
		vecSearcher = vecRepo
	}

	c.searchSvc = searchuc.New(lexical, vecSearcher, recordStore, searchEmbedder, searchuc.Config{
		EmbeddingsEnabled: embedder != nil,
	}, nop)
	c.healthSvc = healthuc.New(healthuc.DefaultTimeout, comps...)
	return c, nil
}

// Close releases all resources. Safe to call more than once.
func (c *Client) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// Search runs one query.
func (c *Client) Search(ctx context.Context, q Query) (out Results, err error) {
	start := time.Now()
	defer func() { c.obs.observeSearch(&q, &out, start, err) }()

	req, err := request.New(
		q.Text, q.Limit, q.Offset,
		filter.New(q.License, q.Category, q.IncludeBroken, q.IncludeUnfree),
		mode.Parse(string(q.Mode)),
	)
	if err != nil {
		return Results{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	res, err := c.searchSvc.Search(ctx, req)
	if err != nil {
		return Results{}, fmt.Errorf("search: %w", err)
	}
	return fromResults(&res), nil
}

func fromResults(r *result.Results) Results {
	out := Results{
		Query:      r.Query,
		TotalCount: r.TotalCount,
		Elapsed:    r.Elapsed,
		SearchType: SearchMode(r.SearchType),
		Packages:   make([]Package, len(r.Packages)),
	}
	for i := range r.Packages {
		out.Packages[i] = fromPackage(&r.Packages[i])
	}
	return out
}

func fromPackage(p *record.Package) Package {
	out := Package{
		ID:            p.ID,
		Name:          p.Name,
		Version:       p.Version,
		Description:   p.Description,
		Homepage:      p.Homepage,
		License:       p.License,
		AttributePath: p.AttributePath,
		Category:      p.Category,
		Broken:        p.Broken,
		Unfree:        p.Unfree,
		Available:     p.Available,
		Score:         p.Score,
	}
	if ext := p.Extended; ext != nil {
		out.LongDescription = ext.LongDescription
		out.Platforms = ext.Platforms
		out.MainProgram = ext.MainProgram
		out.Position = ext.Position
		out.OutputsToInstall = ext.OutputsToInstall
		out.LastUpdated = ext.LastUpdated
		out.Insecure = ext.Insecure
		out.Unsupported = ext.Unsupported
		for _, m := range ext.Maintainers {
			out.Maintainers = append(out.Maintainers, Maintainer(m))
		}
	}
	return out
}
