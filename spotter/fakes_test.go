package spotter

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/Tutortoise/live-spotter/detections"
)

type fakeFrame struct {
	id     int
	closed *atomic.Bool
	mu     sync.Mutex
	boxes  int
}

func newFakeFrame(id int) *fakeFrame {
	return &fakeFrame{id: id, closed: atomic.NewBool(false)}
}

func (f *fakeFrame) Size() (int, int) {
	return 400, 300
}

func (f *fakeFrame) Image() (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 400, 300)), nil
}

func (f *fakeFrame) DrawBox(image.Rectangle, color.RGBA, int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.boxes++
	return nil
}

func (f *fakeFrame) DrawLabel(string, image.Point, color.RGBA) error {
	return nil
}

func (f *fakeFrame) Boxes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.boxes
}

func (f *fakeFrame) Close() error {
	f.closed.Store(true)
	return nil
}

// step is one scripted Read result: a frame id, or an error when err is set.
type step struct {
	id  int
	err error
}

type fakeSource struct {
	mu     sync.Mutex
	steps  []step
	frames []*fakeFrame
	closed *atomic.Bool
}

func newFakeSource(steps ...step) *fakeSource {
	return &fakeSource{steps: steps, closed: atomic.NewBool(false)}
}

// framesSource yields frames 1..n and then reports the source closed.
func framesSource(n int) *fakeSource {
	steps := make([]step, n)
	for i := range steps {
		steps[i] = step{id: i + 1}
	}
	return newFakeSource(steps...)
}

func (s *fakeSource) Read(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.steps) == 0 {
		return nil, ErrSourceClosed
	}
	st := s.steps[0]
	s.steps = s.steps[1:]
	if st.err != nil {
		return nil, st.err
	}
	f := newFakeFrame(st.id)
	s.frames = append(s.frames, f)
	return f, nil
}

func (s *fakeSource) Close() error {
	s.closed.Store(true)
	return nil
}

func (s *fakeSource) allFramesClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.frames {
		if !f.closed.Load() {
			return false
		}
	}
	return true
}

type fakeDisplay struct {
	mu     sync.Mutex
	shown  []int
	boxes  []int
	keys   map[int]int
	onShow func(n int)
	closed *atomic.Bool
}

// newFakeDisplay presses key keys[n] right after showing the n-th frame (1-based).
func newFakeDisplay(keys map[int]int) *fakeDisplay {
	return &fakeDisplay{keys: keys, closed: atomic.NewBool(false)}
}

func (d *fakeDisplay) Show(frame Frame) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	f := frame.(*fakeFrame)
	d.shown = append(d.shown, f.id)
	d.boxes = append(d.boxes, f.Boxes())
	if d.onShow != nil {
		d.onShow(len(d.shown))
	}
	return nil
}

func (d *fakeDisplay) PollKey() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if k, ok := d.keys[len(d.shown)]; ok {
		return k
	}
	return -1
}

func (d *fakeDisplay) Boxes() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int(nil), d.boxes...)
}

func (d *fakeDisplay) Close() error {
	d.closed.Store(true)
	return nil
}

func (d *fakeDisplay) Shown() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int(nil), d.shown...)
}

// fakeEngine reports one person per frame. Frames listed in malformed get a
// wrong-shaped result, frames listed in fail get err.
type fakeEngine struct {
	malformed map[int]bool
	fail      map[int]bool
	err       error
	delay     func(id int) time.Duration
	closed    *atomic.Bool
}

func (e *fakeEngine) Infer(ctx context.Context, frame detections.Frame) (detections.Tensor, error) {
	id := frame.(*fakeFrame).id
	if e.delay != nil {
		select {
		case <-time.After(e.delay(id)):
		case <-ctx.Done():
			return detections.Tensor{}, ctx.Err()
		}
	}
	if e.fail[id] {
		return detections.Tensor{}, e.err
	}
	if e.malformed[id] {
		return detections.Tensor{Shape: []int{1, 1, 1, 5}, Data: make([]float32, 5)}, nil
	}
	return detections.Tensor{
		Shape: []int{1, 1, 1, detections.RowWidth},
		Data:  []float32{0, 15, 0.9, 0.1, 0.1, 0.5, 0.5},
	}, nil
}

func (e *fakeEngine) Close() error {
	e.closed.Store(true)
	return nil
}

var errEngine = errors.New("engine exploded")
