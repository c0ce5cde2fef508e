package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"golang.org/x/sys/cpu"

	"github.com/Tutortoise/live-spotter/catalog"
	"github.com/Tutortoise/live-spotter/detections"
	"github.com/Tutortoise/live-spotter/display"
	"github.com/Tutortoise/live-spotter/engine"
	"github.com/Tutortoise/live-spotter/spotter"
	"github.com/Tutortoise/live-spotter/stats"
	"github.com/Tutortoise/live-spotter/video"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		slog.Error("live-spotter failed", "error", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	var cfg appConfig
	return &cli.App{
		Name:  "live-spotter",
		Usage: "detect objects in a live video stream",
		Flags: appFlags,
		Before: func(c *cli.Context) error {
			slog.SetDefault(newLogger(os.Stderr, c.Bool(flagDebug)))
			var err error
			cfg, err = loadConfig(c)
			return err
		},
		Action: func(c *cli.Context) error {
			return run(c.Context, cfg)
		},
	}
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05",
	}))
}

func logCPUFeatures(logger *slog.Logger) {
	logger.Debug(MsgCPUFeatures,
		"arch", runtime.GOARCH,
		"cpus", runtime.NumCPU(),
		"avx512", cpu.X86.HasAVX512,
		"avx2", cpu.X86.HasAVX2,
		"sse41", cpu.X86.HasSSE41,
		"asimd", cpu.ARM64.HasASIMD)
}

// run loads everything that can fail without hardware first, then opens the
// camera and the window and runs the session until quit, signal or failure.
func run(ctx context.Context, cfg appConfig) (err error) {
	logger := slog.Default()
	logCPUFeatures(logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	names := catalog.DefaultNames()
	if cfg.labels != "" {
		if names, err = catalog.LoadNames(cfg.labels); err != nil {
			return err
		}
	}
	classes, err := catalog.New(names, cfg.seed)
	if err != nil {
		return err
	}

	pipeline, err := detections.New(detections.Options{
		Threshold:  cfg.confidence,
		Catalog:    classes,
		Out:        os.Stdout,
		Logger:     logger,
		OverlapIoU: cfg.nmsIoU,
	})
	if err != nil {
		return err
	}

	logger.Info(MsgLoadingModel, "backend", cfg.engine.Backend, "model", cfg.engine.Model, "classes", classes.Len())
	factory, err := engine.Factory(cfg.engine)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	defer func() {
		if shutdownErr := engine.Shutdown(); shutdownErr != nil {
			logger.Warn("onnxruntime shutdown failed", "error", shutdownErr)
		}
	}()

	pool, err := spotter.NewEnginePool(cfg.workers, factory)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}

	logger.Info(MsgStartingStream, "source", cfg.video.Source, "width", cfg.video.Width)
	vcfg := cfg.video
	vcfg.Logger = logger
	source, err := video.Open(ctx, vcfg)
	if err != nil {
		return ignoreCancel(ctx, multierr.Append(err, pool.Destroy()))
	}

	var surface spotter.Display
	if cfg.headless {
		surface = display.NewHeadless()
	} else {
		surface = display.NewWindow(cfg.windowTitle)
	}

	session, err := spotter.New(spotter.Config{
		Source:           source,
		Display:          surface,
		Pool:             pool,
		Pipeline:         pipeline,
		Stats:            stats.NewFPS(nil),
		Logger:           logger,
		Workers:          cfg.workers,
		MaxFrameFailures: cfg.maxFrameFailures,
	})
	if err != nil {
		return multierr.Combine(err, surface.Close(), source.Close(), pool.Destroy())
	}
	defer func() {
		err = multierr.Append(err, session.Close())
	}()

	if cfg.statusAddr != "" {
		status := newStatusServer(cfg.statusAddr, session, logger)
		if err := status.start(); err != nil {
			return fmt.Errorf("start status server: %w", err)
		}
		defer func() {
			if shutdownErr := status.shutdown(); shutdownErr != nil {
				logger.Warn("status server shutdown failed", "error", shutdownErr)
			}
		}()
	}

	runErr := session.Run(ctx)
	printFinish(os.Stdout, session.Stats())
	if c := session.Counters(); c.SkippedFrames > 0 || c.MalformedFrames > 0 || c.FailedFrames > 0 || c.SkippedDetections > 0 {
		logger.Info("session counters",
			"skipped_frames", c.SkippedFrames,
			"malformed_frames", c.MalformedFrames,
			"failed_frames", c.FailedFrames,
			"skipped_detections", c.SkippedDetections,
			"dropped_frames", source.Dropped())
	}
	return runErr
}

func printFinish(w io.Writer, st *stats.FPS) {
	fmt.Fprintf(w, MsgFinishTime, st.Elapsed().Seconds())
	fmt.Fprintf(w, MsgFinishSpeed, st.FPS())
}

// ignoreCancel turns an error caused by a shutdown signal into a clean exit.
func ignoreCancel(ctx context.Context, err error) error {
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
