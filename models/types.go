package models

import (
	"image"
	"time"
)

// Detection is one accepted detection after thresholding and clamping.
type Detection struct {
	ClassID    int
	ClassName  string
	Confidence float32
	// Normalized is the box as reported by the engine, in fractions of the frame size.
	Normalized [4]float32
	// Box is the pixel-space box, clamped into the frame.
	Box   image.Rectangle
	Label string
}

type FrameTimings struct {
	Seq       uint64
	Capture   time.Duration
	Inference time.Duration
	Decode    time.Duration
	Annotate  time.Duration
	Display   time.Duration
	Total     time.Duration
}
