package video

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/Tutortoise/live-spotter/detections"
)

// Frame is one captured BGR image. It is owned by whoever holds it last and
// must be closed to release the native buffer.
type Frame struct {
	mat gocv.Mat
}

// NewFrame takes ownership of mat.
func NewFrame(mat gocv.Mat) *Frame {
	return &Frame{mat: mat}
}

// Mat exposes the underlying matrix to OpenCV based engines and windows.
func (f *Frame) Mat() gocv.Mat {
	return f.mat
}

func (f *Frame) Size() (int, int) {
	return f.mat.Cols(), f.mat.Rows()
}

func (f *Frame) Image() (image.Image, error) {
	return f.mat.ToImage()
}

func (f *Frame) DrawBox(r image.Rectangle, c color.RGBA, thickness int) error {
	if err := gocv.Rectangle(&f.mat, r, c, thickness); err != nil {
		return fmt.Errorf("draw box: %w", err)
	}
	return nil
}

func (f *Frame) DrawLabel(text string, origin image.Point, c color.RGBA) error {
	err := gocv.PutTextWithParams(&f.mat, text, origin, gocv.FontHersheySimplex,
		detections.FontScale, c, detections.TextThickness, gocv.LineAA, false)
	if err != nil {
		return fmt.Errorf("draw label %q: %w", text, err)
	}
	return nil
}

func (f *Frame) Close() error {
	return f.mat.Close()
}
