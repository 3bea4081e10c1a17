// Package imgproc implements the pixel-level half of the pipeline: request
// image decoding, the forward letterbox transform, region cropping, and
// tensor construction for the inference endpoints.
package imgproc

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/snapseek/snapseek/internal/domain"
	"github.com/snapseek/snapseek/internal/domain/box"
	"github.com/snapseek/snapseek/internal/domain/letterbox"
)

// DecodeBase64 decodes a base64 request image. A data-URL prefix
// ("data:image/...;base64,") is tolerated and stripped.
func DecodeBase64(encoded string) ([]byte, error) {
	if strings.HasPrefix(encoded, "data:image") {
		if _, rest, ok := strings.Cut(encoded, ","); ok {
			encoded = rest
		}
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode base64 image: %w", domain.ErrBadImage)
	}
	return data, nil
}

// Decode decodes raw image bytes (JPEG, PNG, ...).
func Decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", domain.ErrBadImage)
	}
	return img, nil
}

// Letterbox fits img into a dim x dim square without distortion: the
// shorter axis is padded symmetrically with white fill, then the square
// is resized to dim. Returns the detector-ready image and the source
// frame needed to map boxes back.
func Letterbox(img image.Image, dim int) (*image.NRGBA, letterbox.Frame) {
	b := img.Bounds()
	frame := letterbox.Frame{W: b.Dx(), H: b.Dy()}

	canvas := img
	if frame.W != frame.H {
		side := frame.W
		if frame.H > side {
			side = frame.H
		}
		sq := imaging.New(side, side, color.White)
		canvas = imaging.PasteCenter(sq, img)
	}

	return imaging.Resize(canvas, dim, dim, imaging.Lanczos), frame
}

// CropBox cuts the region described by a fractional center-form box out
// of img. The box is projected to pixel top-left form against the actual
// image size and floored. Returns false for a degenerate region
// (non-positive pixel width or height), which the caller skips.
func CropBox(img image.Image, b box.Box) (*image.NRGBA, bool) {
	bounds := img.Bounds()
	frame := box.Frame{W: float64(bounds.Dx()), H: float64(bounds.Dy())}

	c := box.Convert(b.Coords(), frame, box.CenterForm, true, box.TopLeft, false)
	x := int(math.Floor(c[0]))
	y := int(math.Floor(c[1]))
	w := int(math.Floor(c[2]))
	h := int(math.Floor(c[3]))
	if w <= 0 || h <= 0 {
		return nil, false
	}

	return imaging.Crop(img, image.Rect(x, y, x+w, y+h)), true
}

// ResizeSquare resizes img to dim x dim. Crops are already tight, so no
// aspect-preserving padding is applied here.
func ResizeSquare(img image.Image, dim int) *image.NRGBA {
	return imaging.Resize(img, dim, dim, imaging.Lanczos)
}

// Tensor flattens img into the [H][W][3] raw pixel layout (0..255 RGB)
// the model servers expect.
func Tensor(img *image.NRGBA) [][][]float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	t := make([][][]float64, h)
	for y := 0; y < h; y++ {
		row := make([][]float64, w)
		for x := 0; x < w; x++ {
			off := y*img.Stride + x*4
			row[x] = []float64{
				float64(img.Pix[off]),
				float64(img.Pix[off+1]),
				float64(img.Pix[off+2]),
			}
		}
		t[y] = row
	}
	return t
}
