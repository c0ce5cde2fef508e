package detections

import (
	"context"
	"image"
	"image/color"
)

type drawnBox struct {
	Rect      image.Rectangle
	Color     color.RGBA
	Thickness int
}

type drawnLabel struct {
	Text   string
	Origin image.Point
	Color  color.RGBA
}

// fakeFrame records every drawing call instead of touching pixels.
type fakeFrame struct {
	width, height int
	boxes         []drawnBox
	labels        []drawnLabel
	// drawErr is returned by every drawing call.
	drawErr       error
}

func newFakeFrame(width, height int) *fakeFrame {
	return &fakeFrame{width: width, height: height}
}

func (f *fakeFrame) Size() (int, int) {
	return f.width, f.height
}

func (f *fakeFrame) Image() (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, f.width, f.height)), nil
}

func (f *fakeFrame) DrawBox(r image.Rectangle, c color.RGBA, thickness int) error {
	f.boxes = append(f.boxes, drawnBox{r, c, thickness})
	return f.drawErr
}

func (f *fakeFrame) DrawLabel(text string, origin image.Point, c color.RGBA) error {
	f.labels = append(f.labels, drawnLabel{text, origin, c})
	return f.drawErr
}

// fakeEngine returns a fixed tensor or error.
type fakeEngine struct {
	out   Tensor
	err   error
	calls int
}

func (e *fakeEngine) Infer(ctx context.Context, _ Frame) (Tensor, error) {
	e.calls++
	if err := ctx.Err(); err != nil {
		return Tensor{}, err
	}
	return e.out, e.err
}

func (e *fakeEngine) Close() error {
	return nil
}

// rows builds a [1,1,N,7] tensor from (class, confidence, x1, y1, x2, y2) tuples.
func rows(rs ...[6]float32) Tensor {
	data := make([]float32, 0, len(rs)*RowWidth)
	for _, r := range rs {
		data = append(data, 0, r[0], r[1], r[2], r[3], r[4], r[5])
	}
	return Tensor{Shape: []int{1, 1, len(rs), RowWidth}, Data: data}
}
