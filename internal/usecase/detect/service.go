// Package detect orchestrates the detection pipeline: decode, start the
// asset lifecycle, letterbox, infer, suppress, and map boxes back to the
// source frame.
package detect

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/snapseek/snapseek/internal/domain"
	"github.com/snapseek/snapseek/internal/domain/box"
	"github.com/snapseek/snapseek/internal/domain/letterbox"
	"github.com/snapseek/snapseek/internal/domain/suppress"
	"github.com/snapseek/snapseek/internal/imgproc"
)

// Params holds the detection pipeline settings.
type Params struct {
	// InputDim is the detector's fixed square input side.
	InputDim int
	// ConfThreshold is applied before NMS, independent of whatever
	// threshold the model was trained with.
	ConfThreshold float64
	IoUThreshold  float64
	MaxOutputs    int
	// ClassOfInterest is the only label returned to callers.
	ClassOfInterest int
}

// Service is the detect pipeline orchestrator.
type Service struct {
	detector Detector
	assets   AssetStore
	params   Params
	logger   *zap.Logger
}

// New creates a detect service.
func New(detector Detector, assets AssetStore, params Params, logger *zap.Logger) *Service {
	return &Service{detector: detector, assets: assets, params: params, logger: logger}
}

// Detect runs the full pipeline on a base64-encoded request image. Asset
// persistence is kicked off before inference and never awaited: a save
// failure costs a later search request its cached image, not this
// response.
func (s *Service) Detect(ctx context.Context, encodedImage string) (domain.Detection, error) {
	data, err := imgproc.DecodeBase64(encodedImage)
	if err != nil {
		return domain.Detection{}, err
	}
	img, err := imgproc.Decode(data)
	if err != nil {
		return domain.Detection{}, err
	}

	id := uuid.NewString()
	s.assets.BeginLocalSave(id, data)
	s.assets.BeginDurableUpload(id, data)

	letterboxed, frame := imgproc.Letterbox(img, s.params.InputDim)

	anchors, err := s.detector.Detect(ctx, imgproc.Tensor(letterboxed))
	if err != nil {
		return domain.Detection{}, fmt.Errorf("detect %s: %w", id, err)
	}

	selected := suppress.Suppress(anchors, suppress.Params{
		ConfThreshold: s.params.ConfThreshold,
		IoUThreshold:  s.params.IoUThreshold,
		MaxOutputs:    s.params.MaxOutputs,
	})

	boxes := make([]box.Box, 0, len(selected))
	for _, b := range selected {
		if b.Label != s.params.ClassOfInterest {
			continue
		}
		sb := letterbox.ToSourceSpace(b, frame, s.params.InputDim)
		if !sb.Valid() {
			s.logger.Warn("discarding box with negative extent",
				zap.String("id", id),
				zap.Float64("w", sb.W), zap.Float64("h", sb.H))
			continue
		}
		boxes = append(boxes, sb)
	}

	s.logger.Debug("detection complete",
		zap.String("id", id),
		zap.Int("anchors", len(anchors)),
		zap.Int("boxes", len(boxes)))

	return domain.Detection{ID: id, Boxes: boxes}, nil
}
