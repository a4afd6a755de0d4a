package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	sqlitedrv "modernc.org/sqlite"

	"github.com/kailas-cloud/pkgdex/internal/db"
)

var (
	_ db.KVStore      = (*Store)(nil)
	_ db.TextSearcher = (*Store)(nil)
	_ db.Pinger       = (*Store)(nil)
)

// Default table names of the packaged artifact.
const (
	DefaultFTSTable = "packages_fts"
	DefaultKVTable  = "packages_kv"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// foldFunc lowers text with Unicode case mapping; SQLite lower() and LIKE only fold ASCII.
const foldFunc = "pkgdex_fold"

var (
	registerOnce sync.Once
	registerErr  error
)

func registerFunctions() error {
	registerOnce.Do(func() {
		registerErr = sqlitedrv.RegisterDeterministicScalarFunction(foldFunc, 1, fold)
	})
	return registerErr
}

func fold(_ *sqlitedrv.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// Config holds parameters for opening a read-only search artifact.
type Config struct {
	Path         string
	FTSTable     string
	KVTable      string
	MaxOpenConns int
}

// Store serves BM25 search and record lookups from an SQLite FTS5 artifact.
// The file is opened read-only; the schema is consumed, never created.
//
// Expected schema:
//
//	packages_kv(id TEXT PRIMARY KEY, data BLOB)
//	packages_fts USING fts5(id UNINDEXED, name, description)
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	fts    string
	kv     string
	closed bool
}

// Open opens the artifact at cfg.Path and verifies both tables exist.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	if cfg.FTSTable == "" {
		cfg.FTSTable = DefaultFTSTable
	}
	if cfg.KVTable == "" {
		cfg.KVTable = DefaultKVTable
	}
	for _, t := range []string{cfg.FTSTable, cfg.KVTable} {
		if !identRe.MatchString(t) {
			return nil, fmt.Errorf("invalid table name %q", t)
		}
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 4
	}
	if err := registerFunctions(); err != nil {
		return nil, &db.Error{Op: db.OpOpen, Err: err}
	}

	dsn := "file:" + cfg.Path + "?mode=ro&_pragma=busy_timeout(5000)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &db.Error{Op: db.OpOpen, Err: err}
	}
	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxOpenConns)
	conn.SetConnMaxLifetime(0)

	s := &Store{db: conn, fts: cfg.FTSTable, kv: cfg.KVTable}
	for _, t := range []string{cfg.FTSTable, cfg.KVTable} {
		if err := s.requireTable(ctx, t); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) requireTable(ctx context.Context, name string) error {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE name = ?`, name).Scan(&count)
	if err != nil {
		return &db.Error{Op: db.OpOpen, Err: err}
	}
	if count == 0 {
		return &db.Error{Op: db.OpOpen, Err: fmt.Errorf("table %s: %w", name, db.ErrIndexNotFound)}
	}
	return nil
}

// Get returns the compressed payload stored under id.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, db.ErrClosed
	}

	var data []byte
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT data FROM %s WHERE id = ?`, s.kv), key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, db.ErrKeyNotFound
	}
	if err != nil {
		return nil, s.wrap(db.OpGet, err)
	}
	return data, nil
}

// SearchBM25 runs an FTS5 MATCH ranked by bm25().
// The query is passed through unescaped so FTS5 syntax errors surface to the caller.
func (s *Store) SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if q.Query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if q.TopK <= 0 {
		return nil, fmt.Errorf("topK must be positive")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, db.ErrClosed
	}

	// bm25() is negative, lower is better. Ordering ascending yields best first.
	query := fmt.Sprintf(`SELECT id, name, bm25(%[1]s) AS score
		FROM %[1]s WHERE %[1]s MATCH ? ORDER BY score LIMIT ?`, s.fts)
	rows, err := s.db.QueryContext(ctx, query, q.Query, q.TopK)
	if err != nil {
		return nil, s.wrap(db.OpMatch, err)
	}
	defer func() { _ = rows.Close() }()

	var entries []db.SearchEntry
	for rows.Next() {
		var id, name string
		var score float64
		if err := rows.Scan(&id, &name, &score); err != nil {
			return nil, s.wrap(db.OpMatch, err)
		}
		entries = append(entries, db.SearchEntry{
			Key:    id,
			Score:  -score,
			Fields: map[string]string{db.FieldName: name},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap(db.OpMatch, err)
	}
	return &db.SearchResult{Total: len(entries), Entries: entries}, nil
}

// SearchSubstring scans for name or description containing Term, case-insensitively.
// Name matches come first, then name ascending, then id.
func (s *Store) SearchSubstring(ctx context.Context, q *db.SubstringQuery) (*db.SearchResult, error) {
	if q.Limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}
	term := strings.ToLower(strings.TrimSpace(q.Term))
	if term == "" {
		return &db.SearchResult{}, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, db.ErrClosed
	}

	query := fmt.Sprintf(`SELECT id, name, description FROM %[1]s
		WHERE instr(%[2]s(name), ?1) > 0 OR instr(%[2]s(description), ?1) > 0
		ORDER BY instr(%[2]s(name), ?1) > 0 DESC, %[2]s(name), id
		LIMIT ?2`, s.fts, foldFunc)
	rows, err := s.db.QueryContext(ctx, query, term, q.Limit)
	if err != nil {
		return nil, s.wrap(db.OpSubstring, err)
	}
	defer func() { _ = rows.Close() }()

	var entries []db.SearchEntry
	for rows.Next() {
		var id string
		var name, desc sql.NullString
		if err := rows.Scan(&id, &name, &desc); err != nil {
			return nil, s.wrap(db.OpSubstring, err)
		}
		entries = append(entries, db.SearchEntry{
			Key: id,
			Fields: map[string]string{
				db.FieldName:        name.String,
				db.FieldDescription: desc.String,
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap(db.OpSubstring, err)
	}
	return &db.SearchResult{Total: len(entries), Entries: entries}, nil
}

// Ping checks that the artifact is still readable.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return db.ErrClosed
	}
	if err := s.db.PingContext(ctx); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close releases the connection pool. Later calls fail with db.ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *Store) wrap(op string, err error) error {
	if errors.Is(err, sql.ErrConnDone) {
		return db.ErrClosed
	}
	if strings.Contains(err.Error(), "no such table") {
		return &db.Error{Op: op, Err: fmt.Errorf("%w: %v", db.ErrIndexNotFound, err)}
	}
	return &db.Error{Op: op, Err: err}
}
