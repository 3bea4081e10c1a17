// Package box implements the coordinate geometry for detection bounding
// boxes: conversion between representations (center-form, top-left form,
// two-corner form), between pixel and fractional units of a reference
// frame, and intersection-over-union.
package box

import "math"

// Format identifies a bounding box representation.
type Format int

const (
	// CenterForm is (center x, center y, width, height).
	CenterForm Format = iota
	// TopLeft is (min x, min y, width, height).
	TopLeft
	// TwoCorner is (min x, min y, max x, max y).
	TwoCorner
)

// Frame is the reference frame a box is expressed against.
type Frame struct {
	W float64
	H float64
}

// Coords holds the four coordinate fields of a box. Their meaning depends
// on the Format they travel with: slots 0 and 2 scale with the frame
// width, slots 1 and 3 with the frame height.
type Coords [4]float64

// Box is a detection in canonical center-form with its confidence score
// and class label. Coordinates are either pixel units or fractions of a
// frame; the two never mix within one Box.
type Box struct {
	CX    float64
	CY    float64
	W     float64
	H     float64
	Conf  float64
	Label int
}

// Coords returns the center-form coordinate fields.
func (b Box) Coords() Coords {
	return Coords{b.CX, b.CY, b.W, b.H}
}

// WithCoords returns a copy of b carrying c as its center-form
// coordinates. Conf and Label are preserved.
func (b Box) WithCoords(c Coords) Box {
	b.CX, b.CY, b.W, b.H = c[0], c[1], c[2], c[3]
	return b
}

// Valid reports whether the box has non-negative extent. A zero-area box
// is valid (degenerate but legal); negative width or height marks a box
// produced by a broken conversion upstream and must be discarded.
func (b Box) Valid() bool {
	return b.W >= 0 && b.H >= 0
}

// Convert translates c between formats and normalizations against frame.
// All paths go through one canonical intermediate (center-form, pixel
// units), so adding a format costs two branches rather than a conversion
// pair per existing format.
func Convert(c Coords, frame Frame, from Format, fromNorm bool, to Format, toNorm bool) Coords {
	if fromNorm {
		c[0] *= frame.W
		c[1] *= frame.H
		c[2] *= frame.W
		c[3] *= frame.H
	}

	var cx, cy, w, h float64
	switch from {
	case TwoCorner:
		cx = (c[0] + c[2]) / 2
		cy = (c[1] + c[3]) / 2
		w = c[2] - c[0]
		h = c[3] - c[1]
	case TopLeft:
		cx = c[0] + c[2]/2
		cy = c[1] + c[3]/2
		w = c[2]
		h = c[3]
	default:
		cx, cy, w, h = c[0], c[1], c[2], c[3]
	}

	var out Coords
	switch to {
	case TwoCorner:
		out[0] = cx - w/2
		out[1] = cy - h/2
		out[2] = cx + w/2
		out[3] = cy + h/2
	case TopLeft:
		out[0] = cx - w/2
		out[1] = cy - h/2
		out[2] = w
		out[3] = h
	default:
		out[0], out[1], out[2], out[3] = cx, cy, w, h
	}

	if toNorm {
		out[0] /= frame.W
		out[1] /= frame.H
		out[2] /= frame.W
		out[3] /= frame.H
	}

	return out
}

// IoU computes intersection-over-union of two center-form boxes in the
// same coordinate space. Degenerate boxes yield 0.
func IoU(a, b Box) float64 {
	ax1, ay1 := a.CX-a.W/2, a.CY-a.H/2
	ax2, ay2 := a.CX+a.W/2, a.CY+a.H/2
	bx1, by1 := b.CX-b.W/2, b.CY-b.H/2
	bx2, by2 := b.CX+b.W/2, b.CY+b.H/2

	iw := math.Min(ax2, bx2) - math.Max(ax1, bx1)
	ih := math.Min(ay2, by2) - math.Max(ay1, by1)
	if iw <= 0 || ih <= 0 {
		return 0
	}

	inter := iw * ih
	union := a.W*a.H + b.W*b.H - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}
