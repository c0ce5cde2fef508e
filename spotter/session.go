// Package spotter runs the capture, detect and display loop.
package spotter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/Tutortoise/live-spotter/detections"
	"github.com/Tutortoise/live-spotter/models"
	"github.com/Tutortoise/live-spotter/stats"
)

// QuitKey ends the session when pressed in the display window.
const QuitKey = 'q'

// DefaultMaxFrameFailures is how many frames in a row may fail detection
// before the engine is considered broken.
const DefaultMaxFrameFailures = 30

type Config struct {
	Source   Source
	Display  Display
	Pool     *EnginePool
	Pipeline *detections.Pipeline
	Stats    *stats.FPS
	Logger   *slog.Logger
	// Workers > 1 overlaps inference of consecutive frames; display order is kept.
	Workers int
	// MaxFrameFailures ends the session after that many consecutive failed
	// frames. Malformed engine output does not count.
	MaxFrameFailures int
}

// Session owns every resource of one capture run. Close releases them all
// and is safe to call on any exit path.
type Session struct {
	source   Source
	display  Display
	pool     *EnginePool
	pipeline *detections.Pipeline
	stats    *stats.FPS
	logger   *slog.Logger
	workers  int

	maxFailures int
	// failStreak is only touched by the control goroutine.
	failStreak int

	seq               *atomic.Uint64
	detections        *atomic.Int64
	skippedFrames     *atomic.Int64
	malformedFrames   *atomic.Int64
	failedFrames      *atomic.Int64
	skippedDetections *atomic.Int64

	closeOnce sync.Once
	closeErr  error
}

// Counters is a snapshot of what the session has seen so far.
type Counters struct {
	Frames            int64 `json:"frames"`
	Detections        int64 `json:"detections"`
	SkippedFrames     int64 `json:"skipped_frames"`
	MalformedFrames   int64 `json:"malformed_frames"`
	FailedFrames      int64 `json:"failed_frames"`
	SkippedDetections int64 `json:"skipped_detections"`
}

func New(cfg Config) (*Session, error) {
	switch {
	case cfg.Source == nil:
		return nil, errors.New("session requires a video source")
	case cfg.Display == nil:
		return nil, errors.New("session requires a display")
	case cfg.Pool == nil:
		return nil, errors.New("session requires an engine pool")
	case cfg.Pipeline == nil:
		return nil, errors.New("session requires a pipeline")
	}
	if cfg.Stats == nil {
		cfg.Stats = stats.NewFPS(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxFrameFailures <= 0 {
		cfg.MaxFrameFailures = DefaultMaxFrameFailures
	}
	if cfg.Workers > cfg.Pool.Size() {
		return nil, fmt.Errorf("%d workers need at least as many engines, pool has %d", cfg.Workers, cfg.Pool.Size())
	}

	return &Session{
		source:            cfg.Source,
		display:           cfg.Display,
		pool:              cfg.Pool,
		pipeline:          cfg.Pipeline,
		stats:             cfg.Stats,
		logger:            cfg.Logger,
		workers:           cfg.Workers,
		maxFailures:       cfg.MaxFrameFailures,
		seq:               atomic.NewUint64(0),
		detections:        atomic.NewInt64(0),
		skippedFrames:     atomic.NewInt64(0),
		malformedFrames:   atomic.NewInt64(0),
		failedFrames:      atomic.NewInt64(0),
		skippedDetections: atomic.NewInt64(0),
	}, nil
}

// Run processes frames until the quit key is pressed, ctx is cancelled, or
// an unrecoverable capture or inference error occurs. The statistics are
// started on entry and stopped on every return path.
func (s *Session) Run(ctx context.Context) error {
	s.stats.Start()
	defer s.stats.Stop()

	if s.workers > 1 {
		return s.runOrdered(ctx)
	}
	return s.runSequential(ctx)
}

func (s *Session) runSequential(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		captureStart := time.Now()
		frame, err := s.source.Read(ctx)
		if err != nil {
			if stop, err := s.readFailed(ctx, err); stop {
				return err
			}
			continue
		}
		timings := models.FrameTimings{Seq: s.seq.Inc(), Capture: time.Since(captureStart)}

		res, err := s.processFrame(ctx, frame)
		quit, err := s.present(ctx, frame, res, err, timings)
		frame.Close()
		if err != nil || quit {
			return err
		}
	}
}

func (s *Session) processFrame(ctx context.Context, frame Frame) (*detections.Result, error) {
	engine, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire engine: %w", err)
	}
	defer s.pool.Release(engine)

	return s.pipeline.Process(ctx, engine, frame)
}

type job struct {
	frame   Frame
	timings models.FrameTimings
	res     *detections.Result
	err     error
	done    chan struct{}
}

// runOrdered reads frames on a helper goroutine and runs Detect for each on
// its own goroutine, bounded by the engine pool. This goroutine consumes the
// jobs in capture order, so annotation, display and statistics stay serial.
func (s *Session) runOrdered(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan *job, s.workers)
	readErr := make(chan error, 1)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(jobs)
		for ctx.Err() == nil {
			captureStart := time.Now()
			frame, err := s.source.Read(ctx)
			if err != nil {
				if stop, err := s.readFailed(ctx, err); stop {
					if err != nil {
						readErr <- err
					}
					return
				}
				continue
			}
			timings := models.FrameTimings{Seq: s.seq.Inc(), Capture: time.Since(captureStart)}

			j := &job{frame: frame, timings: timings, done: make(chan struct{})}
			engine, err := s.pool.Acquire(ctx)
			switch {
			case err == nil:
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer close(j.done)
					defer s.pool.Release(engine)
					j.res, j.err = s.pipeline.Detect(ctx, engine, j.frame)
				}()
			case ctx.Err() != nil:
				frame.Close()
				return
			case errors.Is(err, ErrPoolClosed):
				frame.Close()
				readErr <- fmt.Errorf("acquire engine: %w", err)
				return
			default:
				// the control loop shows the frame unannotated
				j.err = fmt.Errorf("acquire engine: %w", err)
				close(j.done)
			}

			select {
			case jobs <- j:
			case <-ctx.Done():
				<-j.done
				j.frame.Close()
				return
			}
		}
	}()

	defer func() {
		cancel()
		for j := range jobs {
			<-j.done
			j.frame.Close()
		}
		wg.Wait()
	}()

	for j := range jobs {
		<-j.done
		if j.err == nil {
			annotateStart := time.Now()
			j.err = s.pipeline.Annotate(j.frame, j.res.Detections)
			j.res.Timings.Annotate = time.Since(annotateStart)
		}
		quit, err := s.present(ctx, j.frame, j.res, j.err, j.timings)
		j.frame.Close()
		if err != nil || quit {
			return err
		}
	}

	select {
	case err := <-readErr:
		return err
	default:
		return nil
	}
}

// readFailed decides whether a Read error ends the session.
func (s *Session) readFailed(ctx context.Context, err error) (bool, error) {
	switch {
	case ctx.Err() != nil:
		return true, nil
	case errors.Is(err, ErrFrameUnavailable):
		s.skippedFrames.Inc()
		s.logger.Debug("no frame available, skipping")
		return false, nil
	default:
		return true, fmt.Errorf("read frame: %w", err)
	}
}

// present shows one processed frame and polls for the quit key. A frame
// whose detection failed is shown as captured. The frame counts toward the
// statistics only when detection succeeded and the user did not quit on it.
func (s *Session) present(ctx context.Context, frame Frame, res *detections.Result, procErr error, timings models.FrameTimings) (bool, error) {
	switch {
	case procErr == nil:
		s.failStreak = 0
		s.detections.Add(int64(len(res.Detections)))
		s.skippedDetections.Add(int64(res.Skipped))
	case ctx.Err() != nil && errors.Is(procErr, ctx.Err()):
		return true, nil
	case errors.Is(procErr, ErrPoolClosed):
		return false, fmt.Errorf("process frame %d: %w", timings.Seq, procErr)
	case errors.Is(procErr, detections.ErrMalformedOutput):
		s.failStreak = 0
		s.malformedFrames.Inc()
		s.logger.Warn("skipping annotation for frame", "seq", timings.Seq, "error", procErr)
	default:
		s.failStreak++
		s.failedFrames.Inc()
		if s.failStreak >= s.maxFailures {
			return false, fmt.Errorf("%d consecutive frames failed, last was frame %d: %w", s.failStreak, timings.Seq, procErr)
		}
		s.logger.Warn("frame processing failed", "seq", timings.Seq, "consecutive_failures", s.failStreak, "error", procErr)
	}

	displayStart := time.Now()
	if err := s.display.Show(frame); err != nil {
		return false, fmt.Errorf("show frame %d: %w", timings.Seq, err)
	}
	key := s.display.PollKey()
	timings.Display = time.Since(displayStart)

	if key == QuitKey {
		return true, nil
	}
	if procErr != nil {
		return false, nil
	}

	s.stats.Update()
	s.logTimings(timings, res.Timings)
	return false, nil
}

func (s *Session) logTimings(t, detect models.FrameTimings) {
	if !s.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	t.Inference = detect.Inference
	t.Decode = detect.Decode
	t.Annotate = detect.Annotate
	t.Total = t.Capture + t.Inference + t.Decode + t.Annotate + t.Display
	s.logger.Debug("frame timings",
		"seq", t.Seq,
		"capture", t.Capture,
		"inference", t.Inference,
		"decode", t.Decode,
		"annotate", t.Annotate,
		"display", t.Display,
		"total", t.Total)
}

// Counters can be called from any goroutine.
func (s *Session) Counters() Counters {
	return Counters{
		Frames:            s.stats.Frames(),
		Detections:        s.detections.Load(),
		SkippedFrames:     s.skippedFrames.Load(),
		MalformedFrames:   s.malformedFrames.Load(),
		FailedFrames:      s.failedFrames.Load(),
		SkippedDetections: s.skippedDetections.Load(),
	}
}

func (s *Session) Stats() *stats.FPS {
	return s.stats
}

func (s *Session) Pool() *EnginePool {
	return s.pool
}

// Close releases the display, the source and the engines.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = multierr.Combine(
			s.display.Close(),
			s.source.Close(),
			s.pool.Destroy(),
		)
	})
	return s.closeErr
}
