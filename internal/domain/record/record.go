package record

// Package is a hydrated package record.
// Score is assigned by the caller and never persisted.
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

	// Extended is set only for records decoded from the compressed store.
	Extended *Extended
}

// Extended holds the fields carried only by the compressed payload.
type Extended struct {
	LongDescription  string
	Maintainers      []Maintainer
	Platforms        []string
	MainProgram      string
	Position         string
	OutputsToInstall []string
	LastUpdated      string
	Insecure         bool
	Unsupported      bool
	ContentHash      int64
}

// Maintainer is a package maintainer entry.
type Maintainer struct {
	Name     string
	Email    string
	GitHub   string
	GitHubID int64
}

// WithScore returns a copy of p carrying the given relevance score.
func (p Package) WithScore(score float64) Package {
	p.Score = score
	return p
}
