// Package display renders annotated frames and reports key presses.
package display

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/Tutortoise/live-spotter/spotter"
)

const DefaultTitle = "Live Detection"

type matFrame interface {
	Mat() gocv.Mat
}

// Window shows frames in a native OpenCV window. It must be used from the
// goroutine that created it.
type Window struct {
	win *gocv.Window
}

func NewWindow(title string) *Window {
	if title == "" {
		title = DefaultTitle
	}
	return &Window{win: gocv.NewWindow(title)}
}

func (w *Window) Show(frame spotter.Frame) error {
	f, ok := frame.(matFrame)
	if !ok {
		return fmt.Errorf("window cannot show frame of type %T", frame)
	}
	if err := w.win.IMShow(f.Mat()); err != nil {
		return fmt.Errorf("show frame: %w", err)
	}
	return nil
}

// PollKey waits one millisecond for a key press, which also lets the window
// process its events.
func (w *Window) PollKey() int {
	return keyCode(w.win.WaitKey(1))
}

func (w *Window) Close() error {
	return w.win.Close()
}

// keyCode keeps the low byte of a key press, or -1 for none.
func keyCode(raw int) int {
	if raw < 0 {
		return -1
	}
	return raw & 0xFF
}

var _ spotter.Display = (*Window)(nil)
