package db

// TextQuery is the input for BM25 text search.
type TextQuery struct {
	IndexName string
	Query     string
	TopK      int
}

// SubstringQuery asks for candidates whose name or description may contain Term.
// Backends may over-approximate; callers verify containment.
type SubstringQuery struct {
	IndexName string
	Term      string
	Limit     int
}

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName string
	Vector    []float32
	K         int
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single hit. Key is the package identifier.
// Score is the lexical relevance for text searches (higher is better)
// and the raw distance for KNN searches (lower is better).
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// Field names returned by substring searches.
const (
	FieldName        = "name"
	FieldDescription = "description"
)
