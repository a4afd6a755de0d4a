package request

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/pkgdex/internal/domain/search/filter"
	"github.com/kailas-cloud/pkgdex/internal/domain/search/mode"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	DefaultLimit   = 50
)

// Request is a validated search query.
type Request struct {
	query  string
	limit  int
	offset int
	filter filter.Filter
	mode   mode.Mode
}

// New validates search parameters.
// A limit of zero or less means no cap; negative offsets are clamped to zero.
// An empty mode lets the orchestrator choose.
func New(query string, limit, offset int, f filter.Filter, m mode.Mode) (Request, error) {
	query = strings.TrimSpace(query)
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	if m != "" && !m.Requestable() {
		return Request{}, fmt.Errorf("invalid search mode: %q", m)
	}
	if offset < 0 {
		offset = 0
	}
	return Request{
		query:  query,
		limit:  limit,
		offset: offset,
		filter: f,
		mode:   m,
	}, nil
}

// Query returns the trimmed search text.
func (r Request) Query() string { return r.query }

// Limit returns the page size; zero or less means no cap.
func (r Request) Limit() int { return r.limit }

// Offset returns the number of leading records to skip.
func (r Request) Offset() int { return r.offset }

// Filter returns the post-filter.
func (r Request) Filter() filter.Filter { return r.filter }

// Mode returns the forced mode, or "" for automatic selection.
func (r Request) Mode() mode.Mode { return r.mode }
