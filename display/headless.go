package display

import (
	"go.uber.org/atomic"

	"github.com/Tutortoise/live-spotter/spotter"
)

// Headless discards frames and never reports a key, so the session only
// ends on a signal or when the source is exhausted.
type Headless struct {
	shown *atomic.Int64
}

func NewHeadless() *Headless {
	return &Headless{shown: atomic.NewInt64(0)}
}

func (h *Headless) Show(spotter.Frame) error {
	h.shown.Inc()
	return nil
}

func (h *Headless) PollKey() int {
	return -1
}

func (h *Headless) Shown() int64 {
	return h.shown.Load()
}

func (h *Headless) Close() error {
	return nil
}

var _ spotter.Display = (*Headless)(nil)
