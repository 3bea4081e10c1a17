package search

import (
	"context"

	"github.com/snapseek/snapseek/internal/domain"
)

// Extractor runs the feature extraction model on a batch of crop tensors.
type Extractor interface {
	Extract(ctx context.Context, tensors [][][][]float64) ([][]float32, error)
}

// VectorIndex resolves an embedding to nearby catalog SKUs.
type VectorIndex interface {
	NearestSKUs(ctx context.Context, vec []float32, maxDistance float64, topK int) ([]string, error)
}

// Catalog resolves SKUs to full product records.
type Catalog interface {
	LookupSKUs(ctx context.Context, skus []string) ([]domain.Product, error)
}

// AssetOpener fetches a previously detected image by id.
type AssetOpener interface {
	Open(id string) ([]byte, error)
}
