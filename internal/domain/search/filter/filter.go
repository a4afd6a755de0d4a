package filter

import (
	"strings"

	"github.com/kailas-cloud/pkgdex/internal/domain/record"
)

// Filter is the post-retrieval package filter.
// Empty substrings match everything.
type Filter struct {
	license       string
	category      string
	includeBroken bool
	includeUnfree bool
}

// New creates a Filter. License and category are matched case-insensitively as substrings.
func New(license, category string, includeBroken, includeUnfree bool) Filter {
	return Filter{
		license:       strings.ToLower(strings.TrimSpace(license)),
		category:      strings.ToLower(strings.TrimSpace(category)),
		includeBroken: includeBroken,
		includeUnfree: includeUnfree,
	}
}

// License returns the normalized license substring.
func (f Filter) License() string { return f.license }

// Category returns the normalized category substring.
func (f Filter) Category() string { return f.category }

// IncludeBroken reports whether broken packages are kept.
func (f Filter) IncludeBroken() bool { return f.includeBroken }

// IncludeUnfree reports whether unfree packages are kept.
func (f Filter) IncludeUnfree() bool { return f.includeUnfree }

// Match reports whether p passes every predicate.
func (f Filter) Match(p *record.Package) bool {
	if f.license != "" && !strings.Contains(strings.ToLower(p.License), f.license) {
		return false
	}
	if f.category != "" && !strings.Contains(strings.ToLower(p.Category), f.category) {
		return false
	}
	if !f.includeBroken && p.Broken {
		return false
	}
	if !f.includeUnfree && p.Unfree {
		return false
	}
	return true
}

// Apply keeps the packages that match, preserving order.
func (f Filter) Apply(pkgs []record.Package) []record.Package {
	out := make([]record.Package, 0, len(pkgs))
	for i := range pkgs {
		if f.Match(&pkgs[i]) {
			out = append(out, pkgs[i])
		}
	}
	return out
}
