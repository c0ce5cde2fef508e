package video

import (
	"image"
	"image/color"
	"testing"

	"gocv.io/x/gocv"
	"go.viam.com/test"
)

func TestFrameDrawing(t *testing.T) {
	f := NewFrame(gocv.NewMatWithSize(300, 400, gocv.MatTypeCV8UC3))
	defer f.Close()

	w, h := f.Size()
	test.That(t, w, test.ShouldEqual, 400)
	test.That(t, h, test.ShouldEqual, 300)

	green := color.RGBA{G: 255, A: 255}
	test.That(t, f.DrawBox(image.Rect(40, 30, 200, 150), green, 2), test.ShouldBeNil)
	test.That(t, f.DrawLabel("person: 87.00%", image.Pt(40, 45), green), test.ShouldBeNil)

	img, err := f.Image()
	test.That(t, err, test.ShouldBeNil)
	r, g, b, _ := img.At(40, 90).RGBA()
	test.That(t, r, test.ShouldEqual, uint32(0))
	test.That(t, g, test.ShouldBeGreaterThan, uint32(0))
	test.That(t, b, test.ShouldEqual, uint32(0))
}

func TestCaptureResize(t *testing.T) {
	c := &Capture{width: 400}

	out, err := c.resize(gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3))
	test.That(t, err, test.ShouldBeNil)
	defer out.Close()
	test.That(t, out.Cols(), test.ShouldEqual, 400)
	test.That(t, out.Rows(), test.ShouldEqual, 300)

	same, err := c.resize(gocv.NewMatWithSize(300, 400, gocv.MatTypeCV8UC3))
	test.That(t, err, test.ShouldBeNil)
	defer same.Close()
	test.That(t, same.Cols(), test.ShouldEqual, 400)
}
