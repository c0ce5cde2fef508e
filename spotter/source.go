package spotter

import (
	"context"

	"github.com/Tutortoise/live-spotter/detections"
)

// Frame is a detections.Frame owned by one loop iteration.
type Frame interface {
	detections.Frame
	Close() error
}

// Source delivers the most recent captured frame. Read returns
// ErrFrameUnavailable when nothing arrived in time and ErrSourceClosed once
// the source is exhausted.
type Source interface {
	Read(ctx context.Context) (Frame, error)
	Close() error
}

// Display renders frames and reports at most one key press per poll.
type Display interface {
	Show(frame Frame) error
	// PollKey returns the pressed key, or -1 when there was none.
	PollKey() int
	Close() error
}
