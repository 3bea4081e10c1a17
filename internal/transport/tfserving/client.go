// Package tfserving is the client for the TensorFlow-Serving-style model
// endpoints: the object detector and the feature extractor. It owns the
// instances/predictions JSON contract, including the transposed
// per-field layout of the detector response, so the pipeline above only
// ever sees per-anchor records.
package tfserving

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/snapseek/snapseek/internal/domain"
	"github.com/snapseek/snapseek/internal/domain/suppress"
	"github.com/snapseek/snapseek/internal/metrics"
)

const (
	detectorModel  = "detector"
	extractorModel = "feature_extractor"
)

// Config holds the inference endpoint settings.
type Config struct {
	// BaseURL is the model server root, e.g. "http://tfserving:8501".
	BaseURL string
	Timeout time.Duration
	Logger  *zap.Logger
}

// Client calls the detection and feature-extraction models.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates an inference client.
func NewClient(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Detect runs the detector on one letterboxed image tensor and returns
// the per-anchor candidates in detector-input pixel units.
//
// The serving response for one image is a transposed grid: row 0 holds
// every anchor's center x, rows 1-3 the centers y and extents, and each
// further row one class's scores across all anchors.
func (c *Client) Detect(ctx context.Context, tensor [][][]float64) ([]suppress.Anchor, error) {
	var resp struct {
		Predictions [][][]float64 `json:"predictions"`
	}
	if err := c.predict(ctx, detectorModel, [][][][]float64{tensor}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Predictions) == 0 {
		return nil, fmt.Errorf("%s: empty predictions: %w", detectorModel, domain.ErrUpstreamUnavailable)
	}

	grid := resp.Predictions[0]
	if len(grid) < 5 {
		return nil, fmt.Errorf("%s: malformed predictions: %d rows: %w",
			detectorModel, len(grid), domain.ErrUpstreamUnavailable)
	}

	numAnchors := len(grid[0])
	numClasses := len(grid) - 4
	for _, row := range grid[1:] {
		if len(row) != numAnchors {
			return nil, fmt.Errorf("%s: ragged predictions: %w", detectorModel, domain.ErrUpstreamUnavailable)
		}
	}

	anchors := make([]suppress.Anchor, numAnchors)
	for i := 0; i < numAnchors; i++ {
		scores := make([]float64, numClasses)
		for k := 0; k < numClasses; k++ {
			scores[k] = grid[4+k][i]
		}
		anchors[i] = suppress.Anchor{
			CX:     grid[0][i],
			CY:     grid[1][i],
			W:      grid[2][i],
			H:      grid[3][i],
			Scores: scores,
		}
	}
	return anchors, nil
}

// Extract runs the feature extractor on a batch of crop tensors and
// returns one embedding per crop, in input order.
func (c *Client) Extract(ctx context.Context, tensors [][][][]float64) ([][]float32, error) {
	var resp struct {
		Predictions [][]float32 `json:"predictions"`
	}
	if err := c.predict(ctx, extractorModel, tensors, &resp); err != nil {
		return nil, err
	}
	if len(resp.Predictions) != len(tensors) {
		return nil, fmt.Errorf("%s: %d embeddings for %d crops: %w",
			extractorModel, len(resp.Predictions), len(tensors), domain.ErrUpstreamUnavailable)
	}
	return resp.Predictions, nil
}

// predict posts {"instances": ...} to /v1/models/<model>:predict and
// decodes the response into out.
func (c *Client) predict(ctx context.Context, model string, instances any, out any) error {
	body, err := json.Marshal(map[string]any{"instances": instances})
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", model, err)
	}

	url := fmt.Sprintf("%s/v1/models/%s:predict", c.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", model, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)

	if err != nil {
		metrics.InferenceRequestsTotal.WithLabelValues(model, "error").Inc()
		c.logger.Error("inference request failed",
			zap.String("model", model), zap.Error(err))
		return fmt.Errorf("%s predict: %v: %w", model, err, domain.ErrUpstreamUnavailable)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		metrics.InferenceRequestsTotal.WithLabelValues(model, "error").Inc()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		c.logger.Error("inference request rejected",
			zap.String("model", model),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", snippet))
		return fmt.Errorf("%s predict: status %d: %w", model, resp.StatusCode, domain.ErrUpstreamUnavailable)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.InferenceRequestsTotal.WithLabelValues(model, "error").Inc()
		return fmt.Errorf("%s predict: decode response: %v: %w", model, err, domain.ErrUpstreamUnavailable)
	}

	metrics.InferenceRequestsTotal.WithLabelValues(model, "success").Inc()
	metrics.InferenceRequestDuration.WithLabelValues(model).Observe(duration.Seconds())
	return nil
}
