// Package letterbox maps bounding boxes between the detector's fixed
// square input space and an arbitrarily sized source frame.
//
// The forward image transform (pad the shorter axis to a centered square,
// then resize to the detector dimension) lives in internal/imgproc; this
// package carries the scalar mapping it induces on box coordinates, in
// both directions. ToSourceSpace is the exact inverse of ToDetectorSpace:
// a taller-than-wide source is padded horizontally, so the horizontal
// offset is the one removed on the way back.
package letterbox

import (
	"math"

	"github.com/snapseek/snapseek/internal/domain/box"
)

// Frame is the source image size in pixels.
type Frame struct {
	W int
	H int
}

// Square returns the side of the padded square the source is centered in.
func (f Frame) Square() float64 {
	return math.Max(float64(f.W), float64(f.H))
}

// ToSourceSpace converts a center-form box in detector-input pixel units
// back to fractional (0..1) coordinates of the source frame.
func ToSourceSpace(b box.Box, f Frame, detDim int) box.Box {
	factor := f.Square() / float64(detDim)
	offset := math.Abs(float64(f.W) - float64(f.H))

	b.CX *= factor
	b.CY *= factor
	b.W *= factor
	b.H *= factor

	switch {
	case f.H > f.W:
		b.CX -= offset / 2
	case f.W > f.H:
		b.CY -= offset / 2
	}

	frame := box.Frame{W: float64(f.W), H: float64(f.H)}
	return b.WithCoords(box.Convert(b.Coords(), frame, box.CenterForm, false, box.CenterForm, true))
}

// ToDetectorSpace converts a fractional center-form box of the source
// frame into detector-input pixel units.
func ToDetectorSpace(b box.Box, f Frame, detDim int) box.Box {
	frame := box.Frame{W: float64(f.W), H: float64(f.H)}
	b = b.WithCoords(box.Convert(b.Coords(), frame, box.CenterForm, true, box.CenterForm, false))

	offset := math.Abs(float64(f.W) - float64(f.H))
	switch {
	case f.H > f.W:
		b.CX += offset / 2
	case f.W > f.H:
		b.CY += offset / 2
	}

	factor := float64(detDim) / f.Square()
	b.CX *= factor
	b.CY *= factor
	b.W *= factor
	b.H *= factor
	return b
}
