// Package stats tracks throughput of a capture session.
package stats

import (
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"
)

// FPS accumulates elapsed time and processed frames. Only the control loop
// calls Start, Update and Stop; readers may call Frames, Elapsed and FPS from
// any goroutine.
type FPS struct {
	clock  clock.Clock
	start  *atomic.Time
	end    *atomic.Time
	frames *atomic.Int64
}

// NewFPS returns a tracker reading time from c; a nil clock uses the wall clock.
func NewFPS(c clock.Clock) *FPS {
	if c == nil {
		c = clock.New()
	}
	return &FPS{
		clock:  c,
		start:  atomic.NewTime(time.Time{}),
		end:    atomic.NewTime(time.Time{}),
		frames: atomic.NewInt64(0),
	}
}

// Start records the start time. Calling it again has no effect.
func (f *FPS) Start() *FPS {
	if f.start.Load().IsZero() {
		f.start.Store(f.clock.Now())
	}
	return f
}

// Update counts one processed frame.
func (f *FPS) Update() {
	f.frames.Inc()
}

// Stop freezes the elapsed time. Only the first call after Start counts.
func (f *FPS) Stop() {
	if f.start.Load().IsZero() || !f.end.Load().IsZero() {
		return
	}
	f.end.Store(f.clock.Now())
}

func (f *FPS) Frames() int64 {
	return f.frames.Load()
}

// Stopped reports whether Stop has been called.
func (f *FPS) Stopped() bool {
	return !f.end.Load().IsZero()
}

// Elapsed is the time between Start and Stop, or until now while running.
func (f *FPS) Elapsed() time.Duration {
	start := f.start.Load()
	if start.IsZero() {
		return 0
	}
	end := f.end.Load()
	if end.IsZero() {
		end = f.clock.Now()
	}
	if d := end.Sub(start); d > 0 {
		return d
	}
	return 0
}

// FPS is frames per second over Elapsed, zero before any time has passed.
func (f *FPS) FPS() float64 {
	secs := f.Elapsed().Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(f.Frames()) / secs
}
