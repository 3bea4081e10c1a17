// Package snapseek is the embedded SDK for the visual product search
// pipeline: detect products in an image, then resolve each detected
// region to catalog entries by embedding similarity.
package snapseek

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/snapseek/snapseek/internal/assets"
	"github.com/snapseek/snapseek/internal/db"
	dbRedis "github.com/snapseek/snapseek/internal/db/redis"
	"github.com/snapseek/snapseek/internal/domain/box"
	catalogrepo "github.com/snapseek/snapseek/internal/repository/catalog"
	vectorrepo "github.com/snapseek/snapseek/internal/repository/vector"
	"github.com/snapseek/snapseek/internal/transport/tfserving"
	detectuc "github.com/snapseek/snapseek/internal/usecase/detect"
	searchuc "github.com/snapseek/snapseek/internal/usecase/search"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is the snapseek SDK entry point.
type Client struct {
	store     db.Store
	manager   *assets.Manager
	detectSvc *detectuc.Service
	searchSvc *searchuc.Service
}

// New creates a snapseek Client and connects to the database. The SDK
// runs without durable blob storage: detected images live in the local
// asset directory until retention expires.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o(cfg)
	}
	cfg.applyDefaults()

	if len(cfg.addrs) == 0 {
		return nil, errors.New("snapseek: database address required (use WithRedis)")
	}
	if cfg.inferenceBaseURL == "" {
		return nil, errors.New("snapseek: inference base URL required (use WithInference)")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("snapseek: create store: %w", err)
	}

	ctx := context.Background()
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("snapseek: database not ready: %w", err)
	}

	assetDir := cfg.assetDir
	if assetDir == "" {
		assetDir = filepath.Join(os.TempDir(), "snapseek")
	}
	manager, err := assets.NewManager(assets.Config{
		Dir:       assetDir,
		Retention: cfg.assetRetention,
		DevMode:   true,
	}, nil, cfg.logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("snapseek: create asset manager: %w", err)
	}

	inference := tfserving.NewClient(&tfserving.Config{
		BaseURL: cfg.inferenceBaseURL,
		Timeout: cfg.inferenceTimeout,
		Logger:  cfg.logger,
	})

	detectSvc := detectuc.New(inference, manager, detectuc.Params{
		InputDim:        cfg.inputDim,
		ConfThreshold:   cfg.confThreshold,
		IoUThreshold:    cfg.iouThreshold,
		MaxOutputs:      cfg.maxOutputs,
		ClassOfInterest: cfg.classOfInterest,
	}, cfg.logger)

	searchSvc := searchuc.New(
		inference,
		vectorrepo.New(store, cfg.embeddingIndex),
		catalogrepo.New(store, cfg.catalogIndex),
		manager,
		searchuc.Params{
			CropDim:           cfg.cropDim,
			DistanceThreshold: cfg.distanceThreshold,
			TopK:              cfg.topK,
		},
		cfg.logger,
	)

	return &Client{
		store:     store,
		manager:   manager,
		detectSvc: detectSvc,
		searchSvc: searchSvc,
	}, nil
}

// Detect finds products in a base64-encoded image. The returned ID keys
// the stored image for a later Search call.
func (c *Client) Detect(ctx context.Context, encodedImage string) (Detection, error) {
	det, err := c.detectSvc.Detect(ctx, encodedImage)
	if err != nil {
		return Detection{}, err
	}
	return detectionFromDomain(det), nil
}

// Search resolves boxes from a prior detection to ranked product lists,
// one list per box in input order.
func (c *Client) Search(ctx context.Context, id string, boxes []Box) ([][]Product, error) {
	domBoxes := make([]box.Box, len(boxes))
	for i, b := range boxes {
		domBoxes[i] = boxToDomain(b)
	}

	results, err := c.searchSvc.Search(ctx, id, domBoxes)
	if err != nil {
		return nil, err
	}

	out := make([][]Product, len(results))
	for i, products := range results {
		out[i] = make([]Product, len(products))
		for j, p := range products {
			out[i][j] = productFromDomain(p)
		}
	}
	return out, nil
}

// Close releases the database connection and stops background asset work.
func (c *Client) Close() {
	c.manager.Close()
	c.store.Close()
}
