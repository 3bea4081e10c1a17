// Package search orchestrates the product search pipeline: reopen the
// detected image, crop each region, extract embeddings, and resolve them
// to catalog products.
package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/snapseek/snapseek/internal/domain"
	"github.com/snapseek/snapseek/internal/domain/box"
	"github.com/snapseek/snapseek/internal/imgproc"
)

// Params holds the search pipeline settings.
type Params struct {
	// CropDim is the feature extractor's fixed square input side.
	CropDim int
	// DistanceThreshold is the largest cosine distance still counted as
	// a match.
	DistanceThreshold float64
	TopK              int
}

// Service is the search pipeline orchestrator.
type Service struct {
	extractor Extractor
	index     VectorIndex
	catalog   Catalog
	assets    AssetOpener
	params    Params
	logger    *zap.Logger
}

// New creates a search service.
func New(extractor Extractor, index VectorIndex, catalog Catalog, assets AssetOpener, params Params, logger *zap.Logger) *Service {
	return &Service{
		extractor: extractor,
		index:     index,
		catalog:   catalog,
		assets:    assets,
		params:    params,
		logger:    logger,
	}
}

// Search resolves each box in a prior detection to a ranked product list.
// Results keep the order of the input boxes; a box with no match yields
// an empty list, and a degenerate box (no positive pixel area against
// the stored image) yields no entry at all.
func (s *Service) Search(ctx context.Context, id string, boxes []box.Box) ([][]domain.Product, error) {
	data, err := s.assets.Open(id)
	if err != nil {
		return nil, err
	}
	img, err := imgproc.Decode(data)
	if err != nil {
		return nil, err
	}

	tensors := make([][][][]float64, 0, len(boxes))
	for _, b := range boxes {
		crop, ok := imgproc.CropBox(img, b)
		if !ok {
			s.logger.Warn("skipping degenerate box",
				zap.String("id", id),
				zap.Float64("w", b.W), zap.Float64("h", b.H))
			continue
		}
		tensors = append(tensors, imgproc.Tensor(imgproc.ResizeSquare(crop, s.params.CropDim)))
	}
	if len(tensors) == 0 {
		return [][]domain.Product{}, nil
	}

	embeddings, err := s.extractor.Extract(ctx, tensors)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", id, err)
	}

	results := make([][]domain.Product, len(embeddings))
	g, gctx := errgroup.WithContext(ctx)
	for i, emb := range embeddings {
		i, emb := i, emb
		g.Go(func() error {
			skus, err := s.index.NearestSKUs(gctx, emb, s.params.DistanceThreshold, s.params.TopK)
			if err != nil {
				return err
			}
			if len(skus) == 0 {
				results[i] = []domain.Product{}
				return nil
			}
			products, err := s.catalog.LookupSKUs(gctx, skus)
			if err != nil {
				return err
			}
			if products == nil {
				products = []domain.Product{}
			}
			results[i] = products
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("search %s: %w", id, err)
	}

	return results, nil
}
