package result

import (
	"time"

	"github.com/kailas-cloud/pkgdex/internal/domain/record"
	"github.com/kailas-cloud/pkgdex/internal/domain/search/mode"
)

// Hit is one ranked identifier. Its 0-based rank is its index in the carrying slice.
type Hit struct {
	id    string
	score float64
}

// New creates a hit.
func New(id string, score float64) Hit {
	return Hit{id: id, score: score}
}

// ID returns the package identifier.
func (h Hit) ID() string { return h.id }

// Score returns the relevance score.
func (h Hit) Score() float64 { return h.score }

// Ranking is the output of one retrieval adapter.
type Ranking struct {
	Hits []Hit
	// Fallback is set when the lexical substring fallback produced the hits.
	Fallback bool
}

// IDs returns the hit identifiers in rank order.
func (r Ranking) IDs() []string {
	ids := make([]string, len(r.Hits))
	for i, h := range r.Hits {
		ids[i] = h.ID()
	}
	return ids
}

// Results is the search response envelope.
type Results struct {
	Query      string
	Packages   []record.Package
	TotalCount int
	Elapsed    time.Duration
	SearchType mode.Mode
}

// QueryTimeMS returns elapsed time in fractional milliseconds.
func (r Results) QueryTimeMS() float64 {
	return float64(r.Elapsed.Microseconds()) / 1000
}
