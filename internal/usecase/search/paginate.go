package search

// paginate drops offset items, then keeps at most limit.
// offset ≤ 0 and limit ≤ 0 are no-ops; offset past the end yields an empty page.
func paginate[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
