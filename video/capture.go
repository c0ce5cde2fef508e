// Package video captures frames from a camera or a video file in the
// background and hands out only the most recent one.
package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"
	"go.uber.org/multierr"

	"github.com/Tutortoise/live-spotter/spotter"
)

const (
	DefaultWidth           = 400
	DefaultWarmup          = 2 * time.Second
	DefaultFrameTimeout    = time.Second
	DefaultMaxReadFailures = 30
)

type Config struct {
	// Source is a camera index such as "0", or a file path or stream URL.
	Source string
	// Width is the width every frame is resized to, keeping the aspect
	// ratio. Zero keeps the native size.
	Width           int
	Warmup          time.Duration
	FrameTimeout    time.Duration
	MaxReadFailures int
	Logger          *slog.Logger
}

// Capture implements spotter.Source on top of a gocv.VideoCapture.
type Capture struct {
	device       *gocv.VideoCapture
	latest       *spotter.Latest[*Frame]
	width        int
	frameTimeout time.Duration
	maxFailures  int
	logger       *slog.Logger

	first     chan struct{}
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// Open starts capturing and waits up to cfg.Warmup for the first frame.
func Open(ctx context.Context, cfg Config) (*Capture, error) {
	if cfg.Width < 0 {
		return nil, fmt.Errorf("invalid frame width %d", cfg.Width)
	}
	if cfg.FrameTimeout <= 0 {
		cfg.FrameTimeout = DefaultFrameTimeout
	}
	if cfg.MaxReadFailures <= 0 {
		cfg.MaxReadFailures = DefaultMaxReadFailures
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	device, err := gocv.OpenVideoCapture(deviceID(cfg.Source))
	if err != nil {
		return nil, fmt.Errorf("open video source %q: %w", cfg.Source, err)
	}
	if !device.IsOpened() {
		device.Close()
		return nil, fmt.Errorf("open video source %q: device not available", cfg.Source)
	}

	c := &Capture{
		device:       device,
		latest:       spotter.NewLatest(func(f *Frame) { f.Close() }),
		width:        cfg.Width,
		frameTimeout: cfg.FrameTimeout,
		maxFailures:  cfg.MaxReadFailures,
		logger:       cfg.Logger,
		first:        make(chan struct{}),
		done:         make(chan struct{}),
	}

	c.wg.Add(1)
	go c.readLoop()

	if err := c.warmup(ctx, cfg.Warmup); err != nil {
		return nil, multierr.Append(err, c.Close())
	}
	return c, nil
}

func (c *Capture) warmup(ctx context.Context, wait time.Duration) error {
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-c.first:
		return nil
	case <-timer.C:
		c.logger.Warn("no frame received during warmup", "warmup", wait)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Capture) readLoop() {
	defer c.wg.Done()
	var firstOnce sync.Once
	failures := 0

	for {
		select {
		case <-c.done:
			return
		default:
		}

		frame, err := c.grab()
		if err != nil {
			failures++
			if failures >= c.maxFailures {
				c.logger.Warn("closing video source", "consecutive_failures", failures, "error", err)
				c.latest.Close(fmt.Errorf("%w after %d failed reads", spotter.ErrSourceClosed, failures))
				return
			}
			c.logger.Debug("frame capture failed", "error", err)
			continue
		}
		failures = 0

		if !c.latest.Put(frame) {
			frame.Close()
			return
		}
		firstOnce.Do(func() { close(c.first) })
	}
}

var errNoFrame = errors.New("device returned no frame")

// grab reads one frame from the device and resizes it.
func (c *Capture) grab() (*Frame, error) {
	mat := gocv.NewMat()
	if ok := c.device.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, errNoFrame
	}
	resized, err := c.resize(mat)
	if err != nil {
		return nil, err
	}
	return NewFrame(resized), nil
}

// resize scales mat to the configured width. mat is released whenever a
// different matrix, or an error, is returned.
func (c *Capture) resize(mat gocv.Mat) (gocv.Mat, error) {
	size, ok := targetSize(mat.Cols(), mat.Rows(), c.width)
	if !ok {
		return mat, nil
	}
	resized := gocv.NewMat()
	err := gocv.Resize(mat, &resized, size, 0, 0, gocv.InterpolationArea)
	mat.Close()
	if err != nil {
		resized.Close()
		return gocv.Mat{}, fmt.Errorf("resize frame to %v: %w", size, err)
	}
	return resized, nil
}

// Read returns the most recent frame. The caller owns it.
func (c *Capture) Read(ctx context.Context) (spotter.Frame, error) {
	frame, err := c.latest.Take(ctx, c.frameTimeout)
	if err != nil {
		return nil, err
	}
	return frame, nil
}

// Dropped counts frames replaced before the loop took them.
func (c *Capture) Dropped() int64 {
	return c.latest.Dropped()
}

// Close stops the reader and releases the device and any pending frame.
func (c *Capture) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.wg.Wait()
		c.latest.Close(nil)
		c.latest.Drain()
		c.closeErr = c.device.Close()
		if c.closeErr != nil {
			c.closeErr = fmt.Errorf("release video device: %w", c.closeErr)
		}
	})
	return c.closeErr
}

// deviceID turns a numeric source into a camera index.
func deviceID(source string) interface{} {
	if id, err := strconv.Atoi(source); err == nil {
		return id
	}
	return source
}

// targetSize keeps the aspect ratio of a cols x rows image scaled to width.
// It reports false when no resize is needed.
func targetSize(cols, rows, width int) (image.Point, bool) {
	if width <= 0 || cols <= 0 || rows <= 0 || cols == width {
		return image.Point{}, false
	}
	height := rows * width / cols
	if height < 1 {
		height = 1
	}
	return image.Pt(width, height), true
}

var _ spotter.Source = (*Capture)(nil)
