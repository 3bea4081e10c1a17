// Package db defines the narrow search-engine contract the pipeline
// needs from Redis Stack: KNN vector queries against the embedding index
// and exact tag lookups against the catalog index.
package db

import (
	"context"
	"time"
)

// Store is the database facade. Consumers depend on the narrow
// sub-interfaces, not on Store itself.
type Store interface {
	Pinger
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KNNQuery is the input for a vector similarity search.
type KNNQuery struct {
	IndexName    string
	Vector       []float32
	K            int
	ReturnFields []string
}

// TagQuery is the input for an exact tag-field lookup.
type TagQuery struct {
	IndexName string
	Field     string
	Value     string
	Limit     int
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit. Score carries the raw
// __vector_score (cosine distance) for KNN hits and is zero for tag
// lookups.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// Searcher provides FT.SEARCH operations.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	SearchTag(ctx context.Context, q *TagQuery) (*SearchResult, error)
}
