package search

import (
	"sort"

	"github.com/kailas-cloud/pkgdex/internal/domain/search/result"
)

// DefaultRRFK is the Reciprocal Rank Fusion constant (standard value from Cormack et al. 2009).
const DefaultRRFK = 60

// fuseRRF merges two rankings via Reciprocal Rank Fusion.
// score(d) = sum of 1/(k + rank_i(d) + 1) over the lists containing d, rank 0-based.
// Ties keep first-appearance order: all of a in rank order, then ids only in b.
// Empty ids are dropped; a repeated id keeps its first rank within a list.
func fuseRRF(a, b []result.Hit, k float64) []result.Hit {
	if k <= 0 {
		k = DefaultRRFK
	}

	type fused struct {
		id    string
		score float64
	}
	order := make([]fused, 0, len(a)+len(b))
	index := make(map[string]int, len(a)+len(b))

	add := func(list []result.Hit) {
		seen := make(map[string]struct{}, len(list))
		for rank, h := range list {
			id := h.ID()
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}

			s := 1.0 / (k + float64(rank) + 1)
			if i, ok := index[id]; ok {
				order[i].score += s
				continue
			}
			index[id] = len(order)
			order = append(order, fused{id: id, score: s})
		}
	}
	add(a)
	add(b)

	sort.SliceStable(order, func(i, j int) bool {
		return order[i].score > order[j].score
	})

	hits := make([]result.Hit, len(order))
	for i, f := range order {
		hits[i] = result.New(f.id, f.score)
	}
	return hits
}
