package detect

import (
	"context"

	"github.com/snapseek/snapseek/internal/domain/suppress"
)

// Detector runs the object detection model on a letterboxed image tensor.
type Detector interface {
	Detect(ctx context.Context, tensor [][][]float64) ([]suppress.Anchor, error)
}

// AssetStore starts the fire-and-forget persistence of the request image.
type AssetStore interface {
	BeginLocalSave(id string, data []byte)
	BeginDurableUpload(id string, data []byte)
}
