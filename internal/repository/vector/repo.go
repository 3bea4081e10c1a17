// Package vector resolves visual embeddings to catalog SKUs through the
// embedding index.
package vector

import (
	"context"
	"fmt"

	"github.com/snapseek/snapseek/internal/db"
	"github.com/snapseek/snapseek/internal/domain"
)

// store is the consumer interface for KNN search.
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Repo implements usecase/search.VectorIndex.
type Repo struct {
	store store
	index string
}

// New creates a vector search repository over the named embedding index.
func New(s store, index string) *Repo {
	return &Repo{store: s, index: index}
}

// NearestSKUs returns the SKUs of catalog entries whose embedding lies
// within maxDistance (cosine) of vec, deduplicated, nearest first, empty
// SKUs dropped. Zero matches is a valid empty result, not an error.
func (r *Repo) NearestSKUs(ctx context.Context, vec []float32, maxDistance float64, topK int) ([]string, error) {
	q := &db.KNNQuery{
		IndexName:    r.index,
		Vector:       vec,
		K:            topK,
		ReturnFields: []string{"sku"},
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("vector search %s: %v: %w", r.index, err, domain.ErrUpstreamUnavailable)
	}

	seen := make(map[string]struct{}, len(sr.Entries))
	skus := make([]string, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		if entry.Score > maxDistance {
			continue
		}
		sku := entry.Fields["sku"]
		if sku == "" {
			continue
		}
		if _, dup := seen[sku]; dup {
			continue
		}
		seen[sku] = struct{}{}
		skus = append(skus, sku)
	}

	return skus, nil
}
