package detections

import (
	"image"
	"sort"

	"github.com/samber/lo"

	"github.com/Tutortoise/live-spotter/models"
)

// SuppressOverlaps drops a detection when a higher-confidence detection of the
// same class overlaps it by more than limit (intersection over union). The
// survivors keep their original order. A non-positive limit disables it.
func SuppressOverlaps(dets []models.Detection, limit float64) []models.Detection {
	if limit <= 0 || len(dets) < 2 {
		return dets
	}

	order := make([]int, len(dets))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return dets[order[i]].Confidence > dets[order[j]].Confidence
	})

	dropped := make([]bool, len(dets))
	for i, a := range order {
		if dropped[a] {
			continue
		}
		for _, b := range order[i+1:] {
			if dropped[b] || dets[a].ClassID != dets[b].ClassID {
				continue
			}
			if calculateIOU(dets[a].Box, dets[b].Box) > limit {
				dropped[b] = true
			}
		}
	}

	return lo.Filter(dets, func(_ models.Detection, i int) bool {
		return !dropped[i]
	})
}

func calculateIOU(box1, box2 image.Rectangle) float64 {
	inter := box1.Intersect(box2)
	if inter.Empty() {
		return 0.0
	}

	intersection := float64(inter.Dx() * inter.Dy())
	area1 := float64(box1.Dx() * box1.Dy())
	area2 := float64(box2.Dx() * box2.Dy())
	union := area1 + area2 - intersection
	if union <= 0 {
		return 0.0
	}

	return intersection / union
}
