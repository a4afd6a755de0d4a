package mode

import "strings"

// Mode is the retrieval strategy of a search.
type Mode string

// Search mode constants.
const (
	// FTS runs lexical retrieval only.
	FTS    Mode = "fts"
	Vector Mode = "vector"
	// Hybrid runs lexical and vector retrieval and fuses them with RRF.
	Hybrid Mode = "hybrid"
	// Fallback tags results whose lexical ranking came from substring matching.
	// It is reported, never requested.
	Fallback Mode = "fallback"
)

// IsValid checks if the mode is one of the known values.
func (m Mode) IsValid() bool {
	return m == FTS || m == Vector || m == Hybrid || m == Fallback
}

// Requestable reports whether a caller may force this mode.
func (m Mode) Requestable() bool {
	return m == FTS || m == Vector || m == Hybrid
}

// Parse normalizes a user supplied mode. Empty input yields "" (automatic).
func Parse(s string) Mode {
	return Mode(strings.ToLower(strings.TrimSpace(s)))
}
