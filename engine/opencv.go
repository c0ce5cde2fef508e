package engine

import (
	"context"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/Tutortoise/live-spotter/detections"
)

type matFrame interface {
	Mat() gocv.Mat
}

// OpenCV runs a Caffe network through the OpenCV DNN module. It is not safe
// for concurrent use.
type OpenCV struct {
	net  gocv.Net
	mean gocv.Scalar
	size image.Point
}

func NewOpenCV(prototxt, weights string) (*OpenCV, error) {
	net := gocv.ReadNetFromCaffe(prototxt, weights)
	if net.Empty() {
		net.Close()
		return nil, fmt.Errorf("cannot load caffe network from %s and %s", prototxt, weights)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &OpenCV{
		net:  net,
		mean: gocv.NewScalar(detections.Mean, detections.Mean, detections.Mean, 0),
		size: image.Pt(detections.InputWidth, detections.InputHeight),
	}, nil
}

func (e *OpenCV) Infer(ctx context.Context, frame detections.Frame) (detections.Tensor, error) {
	if err := ctx.Err(); err != nil {
		return detections.Tensor{}, err
	}

	mat, release, err := frameMat(frame)
	if err != nil {
		return detections.Tensor{}, err
	}
	defer release()

	blob := gocv.BlobFromImage(mat, detections.Scale, e.size, e.mean, detections.SwapRB, false)
	defer blob.Close()

	e.net.SetInput(blob, "")
	out := e.net.Forward("")
	defer out.Close()

	return matTensor(out)
}

func (e *OpenCV) Close() error {
	return e.net.Close()
}

// frameMat returns the BGR matrix behind frame, converting frames that do
// not carry one.
func frameMat(frame detections.Frame) (gocv.Mat, func(), error) {
	if f, ok := frame.(matFrame); ok {
		return f.Mat(), func() {}, nil
	}
	img, err := frame.Image()
	if err != nil {
		return gocv.Mat{}, nil, fmt.Errorf("read frame pixels: %w", err)
	}
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.Mat{}, nil, fmt.Errorf("convert frame: %w", err)
	}
	return mat, func() { mat.Close() }, nil
}

// matTensor copies a float32 network output out of native memory.
func matTensor(out gocv.Mat) (detections.Tensor, error) {
	if out.Empty() {
		return detections.Tensor{}, fmt.Errorf("network returned an empty result")
	}
	data, err := out.DataPtrFloat32()
	if err != nil {
		return detections.Tensor{}, fmt.Errorf("read network result: %w", err)
	}
	t := detections.Tensor{
		Shape: out.Size(),
		Data:  make([]float32, len(data)),
	}
	copy(t.Data, data)
	return t, nil
}
