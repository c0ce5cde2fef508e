package spotter

import "errors"

var (
	// ErrFrameUnavailable means no new frame arrived in time; the caller may retry.
	ErrFrameUnavailable = errors.New("frame unavailable")
	// ErrSourceClosed means the video source will not deliver any more frames.
	ErrSourceClosed = errors.New("video source closed")
)
