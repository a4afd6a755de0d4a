package bleveidx

import "github.com/blevesearch/bleve/v2"

// NewStoreForTest wraps an already open index (test-only).
func NewStoreForTest(idx bleve.Index) *Store {
	return &Store{index: idx}
}
