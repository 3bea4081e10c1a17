// Package suppress turns raw per-anchor detector output into a final box
// set: best-class selection, confidence thresholding, and greedy
// non-maximum suppression.
package suppress

import (
	"sort"

	"github.com/snapseek/snapseek/internal/domain/box"
)

// Anchor is one raw detector output: a center-form box in detector-input
// pixel units plus the per-class scores for that anchor.
type Anchor struct {
	CX     float64
	CY     float64
	W      float64
	H      float64
	Scores []float64
}

// Params holds the suppression thresholds.
type Params struct {
	// ConfThreshold is inclusive: an anchor whose best class score equals
	// it exactly is retained.
	ConfThreshold float64
	// IoUThreshold is exclusive: a box is removed only when its IoU with
	// an already selected box strictly exceeds it.
	IoUThreshold float64
	// MaxOutputs caps the number of selected boxes. Zero or negative
	// means no cap.
	MaxOutputs int
}

// Suppress reduces anchors to their best class, drops those below the
// confidence threshold, and applies greedy NMS. Output is in selection
// order (highest confidence first); ties keep input order. Empty or
// fully filtered input yields an empty, non-nil slice.
func Suppress(anchors []Anchor, p Params) []box.Box {
	candidates := make([]box.Box, 0, len(anchors))
	for _, a := range anchors {
		conf, label := bestClass(a.Scores)
		if conf < p.ConfThreshold {
			continue
		}
		candidates = append(candidates, box.Box{
			CX:    a.CX,
			CY:    a.CY,
			W:     a.W,
			H:     a.H,
			Conf:  conf,
			Label: label,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Conf > candidates[j].Conf
	})

	selected := make([]box.Box, 0, len(candidates))
	removed := make([]bool, len(candidates))
	for i, cand := range candidates {
		if removed[i] {
			continue
		}
		selected = append(selected, cand)
		if p.MaxOutputs > 0 && len(selected) >= p.MaxOutputs {
			break
		}
		for j := i + 1; j < len(candidates); j++ {
			if removed[j] {
				continue
			}
			if box.IoU(cand, candidates[j]) > p.IoUThreshold {
				removed[j] = true
			}
		}
	}

	return selected
}

// bestClass returns the maximum score and its index. No scores yields
// (0, -1), which never survives a positive threshold.
func bestClass(scores []float64) (float64, int) {
	if len(scores) == 0 {
		return 0, -1
	}
	best := scores[0]
	idx := 0
	for i, s := range scores[1:] {
		if s > best {
			best = s
			idx = i + 1
		}
	}
	return best, idx
}
