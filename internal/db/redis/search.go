package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/pkgdex/internal/db"
)

const distanceAlias = "__distance"

// SearchBM25 runs a BM25 text search over name and description via FT.SEARCH.
func (s *Store) SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.Query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if q.TopK <= 0 {
		return nil, fmt.Errorf("topK must be positive")
	}

	queryStr := fmt.Sprintf("@%s|%s:(%s)", db.FieldName, db.FieldDescription, escapeQuery(q.Query))

	cmd := s.b().Arbitrary("FT.SEARCH").Args(
		q.IndexName, queryStr,
		"SCORER", "BM25",
		"WITHSCORES",
		"RETURN", "1", db.FieldName,
		"LIMIT", "0", strconv.Itoa(q.TopK),
		"DIALECT", "2",
	).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, searchErr(err)
	}

	return s.parseScored(raw)
}

// SearchSubstring returns infix-wildcard candidates with name and description.
// Every whitespace separated token of the term must occur; callers verify full containment.
func (s *Store) SearchSubstring(ctx context.Context, q *db.SubstringQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.Limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}
	tokens := strings.Fields(strings.ToLower(q.Term))
	if len(tokens) == 0 {
		return &db.SearchResult{}, nil
	}

	parts := make([]string, len(tokens))
	for i, tok := range tokens {
		parts[i] = "*" + escapeQuery(tok) + "*"
	}
	queryStr := fmt.Sprintf("@%s|%s:(%s)", db.FieldName, db.FieldDescription, strings.Join(parts, " "))

	cmd := s.b().Arbitrary("FT.SEARCH").Args(
		q.IndexName, queryStr,
		"RETURN", "2", db.FieldName, db.FieldDescription,
		"LIMIT", "0", strconv.Itoa(q.Limit),
		"DIALECT", "2",
	).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, searchErr(err)
	}

	return s.parseUnscored(raw, "")
}

// SearchKNN runs a KNN vector search. Entry scores are raw distances in engine order.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	queryStr := fmt.Sprintf("*=>[KNN %d @%s $BLOB AS %s]", q.K, s.vectorField, distanceAlias)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(
		q.IndexName, queryStr,
		"PARAMS", "2", "BLOB", vectorToBytes(q.Vector),
		"SORTBY", distanceAlias,
		"RETURN", "1", distanceAlias,
		"LIMIT", "0", strconv.Itoa(q.K),
		"DIALECT", "2",
	).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, searchErr(err)
	}

	return s.parseUnscored(raw, distanceAlias)
}

// --- Result parsing ---

// parseScored reads WITHSCORES replies, 3-stride: [total, key1, score1, fields1, ...].
func (s *Store) parseScored(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	total, ok, err := parseTotal(raw)
	if err != nil || !ok {
		return &db.SearchResult{}, err
	}

	entries := make([]db.SearchEntry, 0, total)
	for i := 1; i+2 < len(raw); i += 3 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		scoreStr, err := raw[i+1].ToString()
		if err != nil {
			continue
		}
		score, err := strconv.ParseFloat(scoreStr, 64)
		if err != nil {
			continue
		}
		fields, err := raw[i+2].ToArray()
		if err != nil {
			continue
		}

		entries = append(entries, db.SearchEntry{
			Key:    s.trimKey(key),
			Score:  score,
			Fields: parseFieldPairs(fields),
		})
	}

	return &db.SearchResult{Total: total, Entries: entries}, nil
}

// parseUnscored reads 2-stride replies: [total, key1, fields1, ...].
// When scoreField is set it is parsed into Score and removed from Fields.
func (s *Store) parseUnscored(raw []rueidis.RedisMessage, scoreField string) (*db.SearchResult, error) {
	total, ok, err := parseTotal(raw)
	if err != nil || !ok {
		return &db.SearchResult{}, err
	}

	entries := make([]db.SearchEntry, 0, total)
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entry := db.SearchEntry{Key: s.trimKey(key), Fields: parseFieldPairs(fields)}
		if scoreField != "" {
			if v, ok := entry.Fields[scoreField]; ok {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					entry.Score = f
				}
				delete(entry.Fields, scoreField)
			}
		}
		entries = append(entries, entry)
	}

	return &db.SearchResult{Total: total, Entries: entries}, nil
}

func parseTotal(raw []rueidis.RedisMessage) (int, bool, error) {
	if len(raw) == 0 {
		return 0, false, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, false, fmt.Errorf("parse total: %w", err)
	}
	return int(total), total > 0, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

func (s *Store) trimKey(key string) string {
	return strings.TrimPrefix(key, s.docPrefix)
}

// --- Query helpers ---

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
	`.`, `\.`,
	`,`, `\,`,
	`:`, `\:`,
)

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
