package detect

import (
	"image"
	"sort"
)

// IoU returns the intersection-over-union of two rectangles.
func IoU(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}

	interArea := area(inter)
	union := area(a) + area(b) - interArea
	if union <= 0 {
		return 0
	}
	return float64(interArea) / float64(union)
}

func area(r image.Rectangle) int {
	return r.Dx() * r.Dy()
}

// NMS performs class-agnostic non-maximum suppression. Detections at or below
// confThreshold are dropped, the rest are ordered by descending confidence
// (stable, so equal scores keep their input order) and a detection is
// suppressed when it overlaps an already kept one by more than nmsThreshold.
func NMS(detections []Detection, confThreshold, nmsThreshold float32) []Detection {
	candidates := make([]Detection, 0, len(detections))
	for _, d := range detections {
		if d.Confidence > confThreshold {
			candidates = append(candidates, d)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	kept := make([]Detection, 0, len(candidates))
	for _, candidate := range candidates {
		suppressed := false
		for _, k := range kept {
			if IoU(candidate.Box, k.Box) > float64(nmsThreshold) {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, candidate)
		}
	}

	return kept
}
