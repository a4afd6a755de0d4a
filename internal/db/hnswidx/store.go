package hnswidx

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/coder/hnsw"

	"github.com/kailas-cloud/pkgdex/internal/db"
)

var _ db.VectorSearcher = (*Store)(nil)

// Distance metrics.
const (
	MetricCosine    = "cos"
	MetricEuclidean = "l2"
)

// Config holds parameters for loading a prebuilt graph.
// The graph lives at Path and the id mapping at Path+".meta".
type Config struct {
	Path     string
	Metric   string
	EfSearch int
}

// meta is the gob-encoded sidecar that maps graph keys back to package ids.
type meta struct {
	IDMap      map[string]uint64
	Dimensions int
	Metric     string
}

// Store serves nearest-neighbour search from an in-memory coder/hnsw graph.
type Store struct {
	mu     sync.RWMutex
	graph  *hnsw.Graph[uint64]
	keyMap map[uint64]string
	dims   int
	metric string
	closed bool
}

// Open loads the graph and its metadata sidecar.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("path is required")
	}

	m, err := loadMeta(cfg.Path + ".meta")
	if err != nil {
		return nil, &db.Error{Op: db.OpOpen, Err: err}
	}
	if cfg.Metric == "" {
		cfg.Metric = m.Metric
	}

	s := newStore(cfg.Metric, cfg.EfSearch, m.Dimensions)
	for id, key := range m.IDMap {
		s.keyMap[key] = id
	}

	file, err := os.Open(cfg.Path)
	if err != nil {
		return nil, &db.Error{Op: db.OpOpen, Err: err}
	}
	defer func() { _ = file.Close() }()

	// coder/hnsw Import requires an io.ByteReader
	if err := s.graph.Import(bufio.NewReader(file)); err != nil {
		return nil, &db.Error{Op: db.OpOpen, Err: fmt.Errorf("import graph: %w", err)}
	}
	return s, nil
}

func newStore(metric string, efSearch, dims int) *Store {
	g := hnsw.NewGraph[uint64]()
	switch metric {
	case MetricEuclidean:
		g.Distance = hnsw.EuclideanDistance
	default:
		metric = MetricCosine
		g.Distance = hnsw.CosineDistance
	}
	if efSearch > 0 {
		g.EfSearch = efSearch
	}
	return &Store{graph: g, keyMap: make(map[uint64]string), dims: dims, metric: metric}
}

func loadMeta(path string) (*meta, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open metadata: %w", err)
	}
	defer func() { _ = file.Close() }()

	var m meta
	if err := gob.NewDecoder(file).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &m, nil
}

// SearchKNN returns up to K neighbours nearest first. Scores are raw distances.
func (s *Store) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, db.ErrClosed
	}
	if s.dims > 0 && len(q.Vector) != s.dims {
		return nil, &db.Error{
			Op:  db.OpKNN,
			Err: fmt.Errorf("dimension mismatch: index %d, query %d", s.dims, len(q.Vector)),
		}
	}
	if s.graph.Len() == 0 {
		return &db.SearchResult{}, nil
	}

	query := make([]float32, len(q.Vector))
	copy(query, q.Vector)
	if s.metric == MetricCosine {
		normalize(query)
	}

	nodes := s.graph.Search(query, q.K)
	entries := make([]db.SearchEntry, 0, len(nodes))
	for _, n := range nodes {
		id, ok := s.keyMap[n.Key]
		if !ok {
			continue
		}
		entries = append(entries, db.SearchEntry{
			Key:   id,
			Score: float64(s.graph.Distance(query, n.Value)),
		})
	}
	return &db.SearchResult{Total: len(entries), Entries: entries}, nil
}

// Ping fails once the store is closed.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return db.ErrClosed
	}
	return nil
}

// Close drops the graph.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.graph = nil
	return nil
}

func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	n := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= n
	}
}
