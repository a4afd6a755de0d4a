// Package pkgdex embeds package search in a Go program without the HTTP layer.
//
// A Client opens a packaged SQLite search artifact (an FTS5 table plus a
// table of dictionary-compressed records) read-only and answers queries
// in-process. Vector retrieval is optional: supply an Embedder and a
// prebuilt HNSW graph to enable hybrid search with Reciprocal Rank Fusion.
//
//	client, err := pkgdex.Open(ctx, "/var/lib/pkgdex/packages.db",
//	    pkgdex.WithLogger(slog.Default()),
//	)
//	if err != nil { ... }
//	defer client.Close()
//
//	res, err := client.Search(ctx, pkgdex.Query{Text: "nodejs", Limit: 10})
//
// Hybrid search:
//
//	client, err := pkgdex.Open(ctx, "packages.db",
//	    pkgdex.WithEmbedder(myEmbedder),
//	    pkgdex.WithHNSW("packages.hnsw"),
//	)
package pkgdex
