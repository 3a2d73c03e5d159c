package vectordb

import "context"

// Searcher answers similarity queries. Implementations must not fail: a
// fault degrades to an empty result set.
type Searcher interface {
	Search(ctx context.Context, query string, k int) []Result
}

// Store is the full vector index surface used by ingestion and the host.
type Store interface {
	Searcher

	// Add embeds and inserts documents, returning how many were stored.
	Add(ctx context.Context, docs []Input) (int, error)

	// Rebuild drops every document in the collection.
	Rebuild(ctx context.Context) error

	// Count returns the number of stored documents.
	Count() int
}

var _ Store = (*Index)(nil)
