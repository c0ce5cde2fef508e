package detections

import (
	"image"
	"math"
)

// PixelBox scales a normalized [x1, y1, x2, y2] box to a width x height frame
// and clamps it so that 0 <= left <= right <= width-1 and
// 0 <= top <= bottom <= height-1. Coordinates are truncated toward zero. An
// inverted box collapses to zero width or height; it is not dropped.
func PixelBox(norm [4]float32, width, height int) image.Rectangle {
	maxX, maxY := float64(width-1), float64(height-1)
	left := int(clamp(float64(norm[0])*float64(width), 0, maxX))
	top := int(clamp(float64(norm[1])*float64(height), 0, maxY))
	right := int(clamp(float64(norm[2])*float64(width), 0, maxX))
	bottom := int(clamp(float64(norm[3])*float64(height), 0, maxY))
	if right < left {
		right = left
	}
	if bottom < top {
		bottom = top
	}
	// image.Rect would reorder the corners, build the value directly.
	return image.Rectangle{Min: image.Pt(left, top), Max: image.Pt(right, bottom)}
}

// LabelOrigin is where the label text of box starts: LabelOffset pixels above
// the box, or below its top edge when that would put the text too close to
// the top of the frame.
func LabelOrigin(box image.Rectangle) image.Point {
	y := box.Min.Y - LabelOffset
	if y <= LabelOffset {
		y = box.Min.Y + LabelOffset
	}
	return image.Pt(box.Min.X, y)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func finite(vs ...float32) bool {
	for _, v := range vs {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
