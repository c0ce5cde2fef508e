package detections

import (
	"context"
	"image"
	"image/color"
)

// Frame is a mutable image the pipeline reads from and draws onto.
type Frame interface {
	Size() (width, height int)
	// Image returns the pixels in RGB order.
	Image() (image.Image, error)
	DrawBox(r image.Rectangle, c color.RGBA, thickness int) error
	DrawLabel(text string, origin image.Point, c color.RGBA) error
}

// Engine runs the detection network on one frame. Implementations are not
// required to be safe for concurrent use.
type Engine interface {
	Infer(ctx context.Context, frame Frame) (Tensor, error)
	Close() error
}

// Tensor is a dense float32 array in row-major order.
type Tensor struct {
	Shape []int
	Data  []float32
}

// Rows is the number of candidate detections in a [1,1,N,7] result.
func (t Tensor) Rows() int {
	if len(t.Shape) != 4 {
		return 0
	}
	return t.Shape[2]
}
