package letterbox

import (
	"math"
	"testing"

	"github.com/snapseek/snapseek/internal/domain/box"
)

const detDim = 640

func relAlmost(a, b, eps float64) bool {
	if a == b {
		return true
	}
	scale := math.Max(math.Abs(a), math.Abs(b))
	if scale == 0 {
		return math.Abs(a-b) < eps
	}
	return math.Abs(a-b)/scale < eps
}

func boxAlmost(a, b box.Box, eps float64) bool {
	return relAlmost(a.CX, b.CX, eps) && relAlmost(a.CY, b.CY, eps) &&
		relAlmost(a.W, b.W, eps) && relAlmost(a.H, b.H, eps)
}

func TestToSourceSpace_SquareFrame(t *testing.T) {
	// 320x320 source: pure downscale by 2, no padding to remove.
	f := Frame{W: 320, H: 320}
	got := ToSourceSpace(box.Box{CX: 320, CY: 320, W: 128, H: 64}, f, detDim)
	want := box.Box{CX: 0.5, CY: 0.5, W: 0.2, H: 0.1}
	if !boxAlmost(got, want, 1e-9) {
		t.Fatalf("want %+v, got %+v", want, got)
	}
}

func TestToSourceSpace_WideFrame(t *testing.T) {
	// 1280x720: factor 2, vertical pad (1280-720)/2 = 280 source px.
	// Detector center (320, 320) must land on the source center.
	f := Frame{W: 1280, H: 720}
	got := ToSourceSpace(box.Box{CX: 320, CY: 320, W: 64, H: 32}, f, detDim)
	if !relAlmost(got.CX, 0.5, 1e-9) || !relAlmost(got.CY, 0.5, 1e-9) {
		t.Fatalf("center not preserved: %+v", got)
	}
	if !relAlmost(got.W, 128.0/1280.0, 1e-9) || !relAlmost(got.H, 64.0/720.0, 1e-9) {
		t.Fatalf("extent wrong: %+v", got)
	}
}

func TestToSourceSpace_TallFrame(t *testing.T) {
	// 720x1280: horizontal pad; the detector-space center maps to the
	// source center, and the pad comes off the x axis.
	f := Frame{W: 720, H: 1280}
	got := ToSourceSpace(box.Box{CX: 320, CY: 320, W: 32, H: 64}, f, detDim)
	if !relAlmost(got.CX, 0.5, 1e-9) || !relAlmost(got.CY, 0.5, 1e-9) {
		t.Fatalf("center not preserved: %+v", got)
	}
}

func TestRoundTrip(t *testing.T) {
	frames := []Frame{
		{W: 640, H: 640},
		{W: 1280, H: 720},
		{W: 720, H: 1280},
		{W: 333, H: 999},
		{W: 4032, H: 3024},
	}
	boxes := []box.Box{
		{CX: 0.5, CY: 0.5, W: 0.25, H: 0.25},
		{CX: 0.1, CY: 0.9, W: 0.05, H: 0.1},
		{CX: 0.73, CY: 0.21, W: 0.4, H: 0.02},
		{CX: 0.5, CY: 0.5, W: 0, H: 0},
	}

	for _, f := range frames {
		for _, b := range boxes {
			det := ToDetectorSpace(b, f, detDim)
			back := ToSourceSpace(det, f, detDim)
			if !boxAlmost(back, b, 1e-6) {
				t.Fatalf("frame %+v box %+v: round trip gave %+v", f, b, back)
			}
		}
	}
}

func TestToDetectorSpace_KeepsConfAndLabel(t *testing.T) {
	f := Frame{W: 800, H: 600}
	b := box.Box{CX: 0.5, CY: 0.5, W: 0.1, H: 0.1, Conf: 0.87, Label: 3}
	det := ToDetectorSpace(b, f, detDim)
	if det.Conf != 0.87 || det.Label != 3 {
		t.Fatalf("conf/label not carried: %+v", det)
	}
}
