package video

import (
	"image"
	"testing"

	"go.viam.com/test"
)

func TestTargetSize(t *testing.T) {
	size, ok := targetSize(640, 480, 400)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, size, test.ShouldResemble, image.Pt(400, 300))

	size, ok = targetSize(1920, 1080, 400)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, size, test.ShouldResemble, image.Pt(400, 225))

	_, ok = targetSize(400, 300, 400)
	test.That(t, ok, test.ShouldBeFalse)

	_, ok = targetSize(640, 480, 0)
	test.That(t, ok, test.ShouldBeFalse)

	size, ok = targetSize(4000, 2, 400)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, size.Y, test.ShouldEqual, 1)
}

func TestDeviceID(t *testing.T) {
	test.That(t, deviceID("0"), test.ShouldEqual, 0)
	test.That(t, deviceID("2"), test.ShouldEqual, 2)
	test.That(t, deviceID("clip.mp4"), test.ShouldEqual, "clip.mp4")
	test.That(t, deviceID("rtsp://cam/stream"), test.ShouldEqual, "rtsp://cam/stream")
}
