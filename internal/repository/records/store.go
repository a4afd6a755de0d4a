package records

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pkgdex/internal/db"
	"github.com/kailas-cloud/pkgdex/internal/domain"
	"github.com/kailas-cloud/pkgdex/internal/domain/record"
	"github.com/kailas-cloud/pkgdex/internal/domain/search/result"
	"github.com/kailas-cloud/pkgdex/internal/metrics"
)

// Defaults for Config.
const (
	DefaultCacheSize = 10000
	DefaultWorkers   = 32
)

// Config tunes the record store.
type Config struct {
	// KeyPrefix is prepended to package ids to form KV keys.
	KeyPrefix string
	// CacheSize bounds the decoded record LRU; negative disables it.
	CacheSize int
	// Workers bounds concurrent lookups across all requests.
	Workers int
}

// Store hydrates package records from dictionary-compressed KV payloads.
type Store struct {
	kv     db.KVStore
	codec  *Codec
	prefix string
	cache  *lru.Cache[string, record.Package]
	pool   *ants.Pool
	logger *zap.Logger
	closed atomic.Bool
}

// New creates a record store. The codec is shared and must outlive the store.
func New(kv db.KVStore, codec *Codec, cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.CacheSize == 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}

	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	s := &Store{
		kv:     kv,
		codec:  codec,
		prefix: cfg.KeyPrefix,
		pool:   pool,
		logger: logger,
	}
	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, record.Package](cfg.CacheSize)
		if err != nil {
			pool.Release()
			return nil, fmt.Errorf("create record cache: %w", err)
		}
		s.cache = cache
	}
	return s, nil
}

// Hydrate loads one record. The returned score is zero; callers assign their own.
func (s *Store) Hydrate(ctx context.Context, id string) (record.Package, error) {
	if s.closed.Load() || s.kv == nil {
		return record.Package{}, domain.ErrNotInitialized
	}
	if id == "" {
		return record.Package{}, fmt.Errorf("%w: empty id", domain.ErrRecordNotFound)
	}

	if s.cache != nil {
		if pkg, ok := s.cache.Get(id); ok {
			metrics.RecordCacheTotal.WithLabelValues("hit").Inc()
			return pkg, nil
		}
		metrics.RecordCacheTotal.WithLabelValues("miss").Inc()
	}

	raw, err := s.kv.Get(ctx, s.prefix+id)
	if err != nil {
		return record.Package{}, mapKVError(id, err)
	}

	data, err := s.codec.Decode(raw)
	if err != nil {
		return record.Package{}, fmt.Errorf("record %s: %w", id, err)
	}
	p, err := parsePayload(data)
	if err != nil {
		return record.Package{}, fmt.Errorf("record %s: %w: invalid payload: %v", id, domain.ErrDecompressionFailed, err)
	}

	pkg := p.toPackage(id)
	if s.cache != nil {
		s.cache.Add(id, pkg)
	}
	return pkg, nil
}

func mapKVError(id string, err error) error {
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		return fmt.Errorf("record %s: %w", id, domain.ErrRecordNotFound)
	case errors.Is(err, db.ErrClosed):
		return fmt.Errorf("record store: %w", domain.ErrNotInitialized)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("record %s: %w: %v", id, domain.ErrQueryFailed, err)
	}
}

// HydrateMany loads records for hits on the shared worker pool.
// Output follows hit order and carries each hit's score. Missing and corrupt
// records are logged and dropped; closed stores, cancellation and backend
// failures abort the batch.
func (s *Store) HydrateMany(ctx context.Context, hits []result.Hit) ([]record.Package, error) {
	if len(hits) == 0 {
		return nil, nil
	}
	if s.closed.Load() {
		return nil, domain.ErrNotInitialized
	}

	pkgs := make([]record.Package, len(hits))
	errs := make([]error, len(hits))

	var wg sync.WaitGroup
	for i := range hits {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			pkgs[i], errs[i] = s.Hydrate(ctx, hits[i].ID())
		}
		if err := s.pool.Submit(task); err != nil {
			wg.Done()
			errs[i] = fmt.Errorf("%w: worker pool: %v", domain.ErrNotInitialized, err)
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]record.Package, 0, len(hits))
	for i, err := range errs {
		switch {
		case err == nil:
			metrics.HydrationTotal.WithLabelValues("ok").Inc()
			out = append(out, pkgs[i].WithScore(hits[i].Score()))
		case errors.Is(err, domain.ErrRecordNotFound):
			metrics.HydrationTotal.WithLabelValues("not_found").Inc()
			s.logger.Warn("record not found, skipping", zap.String("id", hits[i].ID()))
		case errors.Is(err, domain.ErrDecompressionFailed):
			metrics.HydrationTotal.WithLabelValues("decompression_failed").Inc()
			s.logger.Warn("record undecodable, skipping",
				zap.String("id", hits[i].ID()),
				zap.Error(err),
			)
		default:
			metrics.HydrationTotal.WithLabelValues("error").Inc()
			return nil, err
		}
	}
	return out, nil
}

// Ping checks the underlying KV store when it supports health checks.
func (s *Store) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return domain.ErrNotInitialized
	}
	if p, ok := s.kv.(db.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close releases the worker pool. Later calls fail with ErrNotInitialized.
func (s *Store) Close() {
	if s.closed.Swap(true) {
		return
	}
	s.pool.Release()
}
