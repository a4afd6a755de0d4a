package pkgdex

import "time"

// SearchMode is the retrieval strategy of a search.
type SearchMode string

// Search mode constants. ModeFallback is reported, never requested.
const (
	ModeAuto     SearchMode = ""
	ModeFTS      SearchMode = "fts"
	ModeVector   SearchMode = "vector"
	ModeHybrid   SearchMode = "hybrid"
	ModeFallback SearchMode = "fallback"
)

// Query is one search request.
type Query struct {
	Text string
	// Limit of zero or less returns every match.
	Limit  int
	Offset int
	Mode   SearchMode

	License       string
	Category      string
	IncludeBroken bool
	IncludeUnfree bool
}

// Results is a page of ranked packages.
type Results struct {
	Query      string
	Packages   []Package
	TotalCount int
	Elapsed    time.Duration
	SearchType SearchMode
}

// Package is a hydrated package record.
type Package struct {
	ID            string
	Name          string
	Version       string
	Description   string
	Homepage      string
	License       string
	AttributePath string
	Category      string
	Broken        bool
	Unfree        bool
	Available     bool
	Score         float64

	// Fields below are set only for records carrying the extended payload.
	LongDescription  string
	Maintainers      []Maintainer
	Platforms        []string
	MainProgram      string
	Position         string
	OutputsToInstall []string
	LastUpdated      string
	Insecure         bool
	Unsupported      bool
}

// Maintainer is a package maintainer entry.
type Maintainer struct {
	Name     string
	Email    string
	GitHub   string
	GitHubID int64
}
