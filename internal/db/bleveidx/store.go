package bleveidx

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/kailas-cloud/pkgdex/internal/db"
)

var (
	_ db.TextSearcher = (*Store)(nil)
	_ db.Pinger       = (*Store)(nil)
)

// Config holds parameters for opening a prebuilt bleve index.
type Config struct {
	Path string
}

// Store serves lexical search from a local bleve index whose document ids are package ids.
type Store struct {
	index bleve.Index
}

// Open opens an existing index read-only.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	idx, err := bleve.OpenUsing(cfg.Path, map[string]interface{}{"read_only": true})
	if err != nil {
		return nil, &db.Error{Op: db.OpOpen, Err: err}
	}
	return &Store{index: idx}, nil
}

// IndexMapping is the document mapping the index is expected to carry:
// name and description as stored standard-analyzed text.
func IndexMapping() *mapping.IndexMappingImpl {
	m := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()

	text := bleve.NewTextFieldMapping()
	text.Analyzer = "standard"
	text.Store = true
	doc.AddFieldMappingsAt(db.FieldName, text)
	doc.AddFieldMappingsAt(db.FieldDescription, text)

	m.DefaultMapping = doc
	return m
}

// SearchBM25 matches the query against name and description and returns hits by score.
func (s *Store) SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if q.Query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if q.TopK <= 0 {
		return nil, fmt.Errorf("topK must be positive")
	}

	fields := []string{db.FieldName, db.FieldDescription}
	fieldQueries := make([]blevequery.Query, 0, len(fields))
	for _, f := range fields {
		mq := bleve.NewMatchQuery(q.Query)
		mq.SetField(f)
		fieldQueries = append(fieldQueries, mq)
	}
	req := bleve.NewSearchRequest(bleve.NewDisjunctionQuery(fieldQueries...))
	req.Size = q.TopK
	req.Fields = []string{db.FieldName}

	return s.run(ctx, db.OpMatch, req)
}

// SearchSubstring returns infix wildcard candidates; each token must occur in name or description.
func (s *Store) SearchSubstring(ctx context.Context, q *db.SubstringQuery) (*db.SearchResult, error) {
	if q.Limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}
	tokens := strings.Fields(strings.ToLower(q.Term))
	if len(tokens) == 0 {
		return &db.SearchResult{}, nil
	}

	conj := make([]blevequery.Query, 0, len(tokens))
	for _, tok := range tokens {
		pattern := "*" + wildcardEscaper.Replace(tok) + "*"
		byName := bleve.NewWildcardQuery(pattern)
		byName.SetField(db.FieldName)
		byDesc := bleve.NewWildcardQuery(pattern)
		byDesc.SetField(db.FieldDescription)
		conj = append(conj, bleve.NewDisjunctionQuery(byName, byDesc))
	}
	req := bleve.NewSearchRequest(bleve.NewConjunctionQuery(conj...))
	req.Size = q.Limit
	req.Fields = []string{db.FieldName, db.FieldDescription}
	req.SortBy([]string{"_id"})

	return s.run(ctx, db.OpSubstring, req)
}

// Ping reports whether the index is still open.
func (s *Store) Ping(_ context.Context) error {
	if _, err := s.index.DocCount(); err != nil {
		return wrap(db.OpPing, err)
	}
	return nil
}

// Close closes the index.
func (s *Store) Close() error {
	return s.index.Close()
}

func (s *Store) run(ctx context.Context, op string, req *bleve.SearchRequest) (*db.SearchResult, error) {
	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, wrap(op, err)
	}

	entries := make([]db.SearchEntry, 0, len(res.Hits))
	for _, hit := range res.Hits {
		fields := make(map[string]string, len(hit.Fields))
		for k, v := range hit.Fields {
			if str, ok := v.(string); ok {
				fields[k] = str
			}
		}
		entries = append(entries, db.SearchEntry{Key: hit.ID, Score: hit.Score, Fields: fields})
	}
	return &db.SearchResult{Total: int(res.Total), Entries: entries}, nil
}

func wrap(op string, err error) error {
	if errors.Is(err, bleve.ErrorIndexClosed) {
		return db.ErrClosed
	}
	return &db.Error{Op: op, Err: err}
}

var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)
