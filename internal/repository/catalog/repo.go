// Package catalog resolves matched SKUs to full product records through
// the catalog index.
package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/snapseek/snapseek/internal/db"
	"github.com/snapseek/snapseek/internal/domain"
)

// store is the consumer interface for catalog lookups.
type store interface {
	SearchTag(ctx context.Context, q *db.TagQuery) (*db.SearchResult, error)
}

// Repo implements usecase/search.Catalog.
type Repo struct {
	store store
	index string
}

// New creates a catalog repository over the named product index.
func New(s store, index string) *Repo {
	return &Repo{store: s, index: index}
}

// LookupSKUs resolves each SKU to its best catalog hit. Misses are
// dropped silently; the order of resolved products follows the input
// SKU order.
func (r *Repo) LookupSKUs(ctx context.Context, skus []string) ([]domain.Product, error) {
	products := make([]domain.Product, 0, len(skus))
	for _, sku := range skus {
		sr, err := r.store.SearchTag(ctx, &db.TagQuery{
			IndexName: r.index,
			Field:     "sku",
			Value:     sku,
			Limit:     1,
		})
		if err != nil {
			return nil, fmt.Errorf("catalog lookup %s: %v: %w", sku, err, domain.ErrUpstreamUnavailable)
		}
		if len(sr.Entries) == 0 {
			continue
		}
		products = append(products, productFromFields(sr.Entries[0]))
	}
	return products, nil
}

// productFromFields maps a catalog hash entry to a product record.
// Ratings are stored as five comma-separated counts, one star first.
func productFromFields(entry db.SearchEntry) domain.Product {
	f := entry.Fields

	p := domain.Product{
		ID:       f["id"],
		Image:    f["image"],
		Banner:   f["banner"],
		Name:     f["name"],
		Category: f["category"],
	}
	if p.ID == "" {
		// Fall back to the document key minus the index prefix.
		if i := strings.LastIndexByte(entry.Key, ':'); i >= 0 {
			p.ID = entry.Key[i+1:]
		} else {
			p.ID = entry.Key
		}
	}

	p.Price.Original, _ = strconv.ParseFloat(f["price_original"], 64)
	p.Price.Discounted, _ = strconv.ParseFloat(f["price_discounted"], 64)

	for i, part := range strings.Split(f["ratings"], ",") {
		if i >= len(p.Ratings) {
			break
		}
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err == nil {
			p.Ratings[i] = n
		}
	}

	switch f["in_stock"] {
	case "1", "true":
		p.InStock = true
	}

	return p
}
