// Package vectorstore defines the similarity search contract the pipeline
// consumes. The index implementation is a swappable backend; the core only
// relies on upsert and scored query with a metadata filter.
package vectorstore

import "context"

// Result is one scored candidate chunk returned by a query.
type Result struct {
	ID       string
	Text     string
	Metadata map[string]string
	Score    float32
}

// Embedder converts free text into a numeric vector representation.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Store indexes chunk texts and answers top-k similarity queries.
//
// An empty query string is the broad path: the store returns up to k entries
// matching the filter in insertion order instead of ranking by similarity.
// Generation jobs use it to sample the whole document rather than a topical
// match.
type Store interface {
	Upsert(ctx context.Context, text string, metadata map[string]string, id string) error
	Query(ctx context.Context, query string, k int, filter map[string]string) ([]Result, error)
}
