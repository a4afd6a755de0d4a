package chi

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/kailas-cloud/pkgdex/internal/domain"
	"github.com/kailas-cloud/pkgdex/internal/domain/search/filter"
	"github.com/kailas-cloud/pkgdex/internal/domain/search/mode"
	"github.com/kailas-cloud/pkgdex/internal/domain/search/request"
)

// ParseSearchParams builds a request from query parameters.
// Unparsable numbers fall back to defaults; only an invalid mode or an oversized query is rejected.
func ParseSearchParams(q url.Values) (request.Request, error) {
	f := filter.New(
		q.Get("license"),
		q.Get("category"),
		ParseBool(q.Get("include_broken")),
		ParseBool(q.Get("include_unfree")),
	)

	var m mode.Mode
	if raw := q.Get("mode"); raw != "" {
		m = mode.Parse(raw)
	}

	req, err := request.New(
		q.Get("q"),
		parseInt(q.Get("limit"), request.DefaultLimit),
		parseInt(q.Get("offset"), 0),
		f, m,
	)
	if err != nil {
		return request.Request{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	return req, nil
}

// ParseBool accepts "1", "true" and "yes" in any case; everything else is false.
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}
