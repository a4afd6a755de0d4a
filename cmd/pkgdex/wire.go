package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pkgdex/internal/config"
	"github.com/kailas-cloud/pkgdex/internal/db"
	"github.com/kailas-cloud/pkgdex/internal/db/badgerkv"
	"github.com/kailas-cloud/pkgdex/internal/db/bleveidx"
	"github.com/kailas-cloud/pkgdex/internal/db/dynamo"
	"github.com/kailas-cloud/pkgdex/internal/db/hnswidx"
	dbRedis "github.com/kailas-cloud/pkgdex/internal/db/redis"
	"github.com/kailas-cloud/pkgdex/internal/db/sqlite"
	"github.com/kailas-cloud/pkgdex/internal/domain"
	"github.com/kailas-cloud/pkgdex/internal/metrics"
	"github.com/kailas-cloud/pkgdex/internal/repository/embcache"
	"github.com/kailas-cloud/pkgdex/internal/repository/fulltext"
	"github.com/kailas-cloud/pkgdex/internal/repository/records"
	"github.com/kailas-cloud/pkgdex/internal/repository/vector"
	openaiEmb "github.com/kailas-cloud/pkgdex/internal/transport/openai"
	s3fetch "github.com/kailas-cloud/pkgdex/internal/transport/s3"
	embeddinguc "github.com/kailas-cloud/pkgdex/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/pkgdex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/pkgdex/internal/usecase/search"
)

// app holds the long-lived services built once at startup.
type app struct {
	search  *searchuc.Service
	health  *healthuc.Service
	closers []func()
}

// Close releases backends in reverse order of construction.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// backends is the set of opened storage handles, each opened at most once.
type backends struct {
	cfg    *config.Config
	logger *zap.Logger
	app    *app

	fetcher *s3fetch.Fetcher
	sqlite  *sqlite.Store
	redis   *dbRedis.Store
}

// buildApp is the composition root.
func buildApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *app, err error) {
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	a := &app{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()
	b := &backends{cfg: cfg, logger: logger, app: a}

	text, textPinger, err := b.textSearcher(ctx)
	if err != nil {
		return nil, fmt.Errorf("lexical backend: %w", err)
	}
	kv, kvPinger, err := b.recordsKV(ctx)
	if err != nil {
		return nil, fmt.Errorf("records backend: %w", err)
	}
	vs, vecPinger, err := b.vectorSearcher(ctx)
	if err != nil {
		return nil, fmt.Errorf("vector backend: %w", err)
	}

	codec, err := b.codec(ctx)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, codec.Close)

	recordStore, err := records.New(kv, codec, records.Config{
		KeyPrefix: cfg.Records.KeyPrefix,
		CacheSize: cfg.Records.CacheSize,
		Workers:   cfg.Records.Workers,
	}, logger.Named("records"))
	if err != nil {
		return nil, fmt.Errorf("records store: %w", err)
	}
	a.closers = append(a.closers, recordStore.Close)

	lexical := fulltext.New(text, fulltext.Config{
		IndexName:    cfg.Fulltext.IndexName,
		FallbackStep: cfg.Fulltext.FallbackStep,
		ScanLimit:    cfg.Fulltext.ScanLimit,
	}, logger.Named("fulltext"))

	embeddingsEnabled := bool(cfg.Embedding.Enabled)
	var embedder domain.Embedder
	if embeddingsEnabled {
		embedder, err = b.embedder(ctx)
		if err != nil {
			return nil, fmt.Errorf("embedder: %w", err)
		}
	}

	vectorRepo := vector.New(vs, vector.Config{
		Enabled:   embeddingsEnabled && vs != nil,
		IndexName: cfg.Vector.IndexName,
	})

	a.search = searchuc.New(lexical, vectorRepo, recordStore, embedder, searchuc.Config{
		EmbeddingsEnabled:   embeddingsEnabled,
		CandidateMultiplier: cfg.Search.CandidateMultiplier,
		MaxCandidates:       cfg.Search.MaxCandidates,
		RRFK:                cfg.Search.RRFK,
	}, logger.Named("search"))

	var components []healthuc.Component
	add := func(c healthuc.Component, ok bool) {
		if ok {
			components = append(components, c)
		}
	}
	add(healthuc.PingComponent(healthuc.ComponentLexical, textPinger, true))
	add(healthuc.PingComponent(healthuc.ComponentRecords, multiPinger{kvPinger, recordStore}, true))
	if vectorRepo.Enabled() {
		add(healthuc.PingComponent(healthuc.ComponentVector, vecPinger, false))
	}
	if hc, ok := embedder.(domain.HealthChecker); ok {
		add(healthuc.EmbeddingComponent(hc))
	}
	a.health = healthuc.New(time.Duration(cfg.HTTP.HealthTimeoutSec)*time.Second, components...)

	logger.Info("search service ready",
		zap.String("lexical", cfg.Storage.Lexical),
		zap.String("records", cfg.Storage.Records),
		zap.String("vector", cfg.Storage.Vector),
		zap.Bool("embeddings", embeddingsEnabled),
		zap.Bool("vector_enabled", vectorRepo.Enabled()),
	)
	return a, nil
}

// multiPinger succeeds only when every pinger succeeds.
type multiPinger []healthuc.Pinger

func (m multiPinger) Ping(ctx context.Context) error {
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

// resolve materializes s3:// locations on local disk.
func (b *backends) resolve(ctx context.Context, location string) (string, error) {
	if !s3fetch.IsURI(location) {
		return location, nil
	}
	if b.fetcher == nil {
		s3cfg := b.cfg.Storage.S3
		f, err := s3fetch.NewFetcher(ctx, s3fetch.Config{
			Region:    s3cfg.Region,
			Endpoint:  s3cfg.Endpoint,
			PathStyle: s3cfg.PathStyle,
			CacheDir:  s3cfg.CacheDir,
		}, b.logger.Named("s3"))
		if err != nil {
			return "", err
		}
		b.fetcher = f
	}
	return b.fetcher.Resolve(ctx, location)
}

func (b *backends) openSQLite(ctx context.Context) (*sqlite.Store, error) {
	if b.sqlite != nil {
		return b.sqlite, nil
	}
	c := b.cfg.Storage.SQLite
	path, err := b.resolve(ctx, c.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve sqlite artifact: %w", err)
	}
	s, err := sqlite.Open(ctx, sqlite.Config{
		Path:         path,
		FTSTable:     c.FTSTable,
		KVTable:      c.KVTable,
		MaxOpenConns: c.MaxOpenConns,
	})
	if err != nil {
		return nil, err
	}
	b.logger.Info("opened sqlite artifact", zap.String("path", path))
	b.sqlite = s
	b.app.closers = append(b.app.closers, func() { _ = s.Close() })
	return s, nil
}

func (b *backends) openRedis(ctx context.Context) (*dbRedis.Store, error) {
	if b.redis != nil {
		return b.redis, nil
	}
	c := b.cfg.Storage.Redis
	s, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:       c.Addrs,
		Username:    c.Username,
		Password:    c.Password,
		DB:          c.DB,
		DocPrefix:   c.DocPrefix,
		VectorField: c.VectorField,
	})
	if err != nil {
		return nil, err
	}
	b.app.closers = append(b.app.closers, s.Close)
	if err := s.WaitForReady(ctx, time.Duration(c.ReadinessTimeout)*time.Second); err != nil {
		return nil, err
	}
	b.logger.Info("connected to redis", zap.Strings("addrs", c.Addrs))
	b.redis = s
	return s, nil
}

func (b *backends) textSearcher(ctx context.Context) (db.TextSearcher, healthuc.Pinger, error) {
	switch b.cfg.Storage.Lexical {
	case config.BackendSQLite:
		s, err := b.openSQLite(ctx)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.BackendRedis:
		s, err := b.openRedis(ctx)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.BackendBleve:
		s, err := bleveidx.Open(bleveidx.Config{Path: b.cfg.Storage.Bleve.Path})
		if err != nil {
			return nil, nil, err
		}
		b.app.closers = append(b.app.closers, func() { _ = s.Close() })
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("unknown lexical backend %q", b.cfg.Storage.Lexical)
	}
}

func (b *backends) recordsKV(ctx context.Context) (db.KVStore, healthuc.Pinger, error) {
	switch b.cfg.Storage.Records {
	case config.BackendSQLite:
		s, err := b.openSQLite(ctx)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.BackendRedis:
		s, err := b.openRedis(ctx)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.BackendBadger:
		s, err := badgerkv.Open(badgerkv.Config{Path: b.cfg.Storage.Badger.Path, ReadOnly: true}, b.logger)
		if err != nil {
			return nil, nil, err
		}
		b.app.closers = append(b.app.closers, func() { _ = s.Close() })
		return s, s, nil
	case config.BackendDynamoDB:
		c := b.cfg.Storage.DynamoDB
		s, err := dynamo.Open(ctx, dynamo.Config{
			Table:         c.Table,
			Region:        c.Region,
			Endpoint:      c.Endpoint,
			KeyAttribute:  c.KeyAttribute,
			DataAttribute: c.DataAttribute,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("unknown records backend %q", b.cfg.Storage.Records)
	}
}

// vectorSearcher returns nil values when no vector backend is configured.
func (b *backends) vectorSearcher(ctx context.Context) (db.VectorSearcher, healthuc.Pinger, error) {
	switch b.cfg.Storage.Vector {
	case "":
		return nil, nil, nil
	case config.BackendRedis:
		s, err := b.openRedis(ctx)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.BackendHNSW:
		c := b.cfg.Storage.HNSW
		s, err := hnswidx.Open(hnswidx.Config{Path: c.Path, Metric: c.Metric, EfSearch: c.EfSearch})
		if err != nil {
			return nil, nil, err
		}
		b.app.closers = append(b.app.closers, func() { _ = s.Close() })
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("unknown vector backend %q", b.cfg.Storage.Vector)
	}
}

func (b *backends) codec(ctx context.Context) (*records.Codec, error) {
	c := b.cfg.Records
	var dict []byte
	if c.DictionaryPath != "" {
		path, err := b.resolve(ctx, c.DictionaryPath)
		switch {
		case errors.Is(err, s3fetch.ErrObjectNotFound) && !c.DictionaryRequired:
			b.logger.Warn("dictionary not found, decoding without one", zap.String("path", c.DictionaryPath))
		case err != nil:
			return nil, fmt.Errorf("resolve dictionary: %w", err)
		default:
			dict, err = records.LoadDictionary(path, c.DictionaryRequired)
			if err != nil {
				return nil, err
			}
		}
	} else if c.DictionaryRequired {
		return nil, errors.New("records.dictionary_path is required")
	}

	codec, err := records.NewCodec(dict)
	if err != nil {
		return nil, fmt.Errorf("records codec: %w", err)
	}
	b.logger.Info("records codec ready", zap.Int("dictionary_bytes", len(dict)))
	return codec, nil
}

// embedder assembles the query decorator chain:
// OpenAI -> RateLimited -> Retrying -> Cached -> Instrumented -> Instruction.
func (b *backends) embedder(ctx context.Context) (domain.Embedder, error) {
	c := b.cfg.Embedding
	logger := b.logger.Named("embedding")

	var e domain.Embedder = openaiEmb.NewEmbedder(openaiEmb.Config{
		APIKey:     c.APIKey,
		BaseURL:    c.BaseURL,
		Model:      c.Model,
		Dimensions: c.Dimensions,
		Provider:   c.Provider,
		Timeout:    b.cfg.EmbeddingTimeout(),
	}, logger)

	e = embeddinguc.NewRateLimitedEmbedder(e, c.RateLimitRPS, c.RateLimitBurst)
	e = embeddinguc.NewRetryingEmbedder(e, embeddinguc.RetryConfig{
		MaxAttempts:    c.MaxAttempts,
		InitialBackoff: time.Duration(c.InitialBackoffMS) * time.Millisecond,
	}, logger)

	cacheCfg := embcache.Config{
		KeyPrefix: c.Cache.KeyPrefix,
		Model:     c.Model,
		TTL:       time.Duration(c.Cache.TTLSec) * time.Second,
	}
	switch c.Cache.Backend {
	case config.BackendRedis:
		s, err := b.openRedis(ctx)
		if err != nil {
			return nil, fmt.Errorf("embedding cache: %w", err)
		}
		e = embcache.New(e, s, cacheCfg, metrics.EmbeddingCacheTotal, logger)
	case config.BackendBadger:
		s, err := badgerkv.Open(badgerkv.Config{
			Path:     c.Cache.Path,
			InMemory: c.Cache.Path == "",
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("embedding cache: %w", err)
		}
		b.app.closers = append(b.app.closers, func() { _ = s.Close() })
		e = embcache.New(e, s, cacheCfg, metrics.EmbeddingCacheTotal, logger)
	}

	e = embeddinguc.NewInstrumentedEmbedder(e, c.Provider, c.Model, logger)

	// Outermost so the cache key includes the instruction.
	if c.QueryInstruction != "" {
		e = domain.NewInstructionEmbedder(e, c.QueryInstruction)
	}
	return e, nil
}
