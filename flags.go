package main

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/Tutortoise/live-spotter/detections"
	"github.com/Tutortoise/live-spotter/display"
	"github.com/Tutortoise/live-spotter/engine"
	"github.com/Tutortoise/live-spotter/spotter"
	"github.com/Tutortoise/live-spotter/video"
)

const (
	envPrefix = "SPOTTER_"

	flagPrototxt        = "prototxt"
	flagModel           = "model"
	flagConfidence      = "confidence"
	flagBackend         = "backend"
	flagONNXLib         = "onnxruntime-lib"
	flagONNXInput       = "onnx-input"
	flagONNXOutput      = "onnx-output"
	flagMaxDetections   = "max-detections"
	flagSource          = "source"
	flagWidth           = "width"
	flagWarmup          = "warmup"
	flagFrameTimeout    = "frame-timeout"
	flagMaxReadFailures = "max-read-failures"
	flagWorkers         = "workers"
	flagMaxFailedFrames = "max-frame-failures"
	flagNMSIoU          = "nms-iou"
	flagLabels          = "labels"
	flagSeed            = "seed"
	flagHeadless        = "headless"
	flagWindowTitle     = "window-title"
	flagStatusAddr      = "status-addr"
	flagDebug           = "debug"
)

type appConfig struct {
	engine           engine.Config
	video            video.Config
	confidence       float64
	workers          int
	maxFrameFailures int
	nmsIoU           float64
	labels           string
	seed             uint64
	headless         bool
	windowTitle      string
	statusAddr       string
	debug            bool
}

func env(name string) []string {
	return []string{envPrefix + name}
}

var appFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    flagPrototxt,
		Aliases: []string{"p"},
		EnvVars: env("PROTOTXT"),
		Usage:   "path to Caffe 'deploy' prototxt `FILE`",
	},
	&cli.StringFlag{
		Name:     flagModel,
		Aliases:  []string{"m"},
		EnvVars:  env("MODEL"),
		Required: true,
		Usage:    "path to Caffe pre-trained model or .onnx `FILE`",
	},
	&cli.Float64Flag{
		Name:    flagConfidence,
		Aliases: []string{"c"},
		EnvVars: env("CONFIDENCE"),
		Value:   detections.DefaultThreshold,
		Usage:   "minimum probability to filter weak detections",
	},
	&cli.StringFlag{
		Name:    flagBackend,
		EnvVars: env("BACKEND"),
		Value:   engine.BackendOpenCV,
		Usage:   "inference backend, opencv or onnx",
	},
	&cli.StringFlag{
		Name:    flagONNXLib,
		EnvVars: []string{"ONNXRUNTIME_LIB"},
		Usage:   "onnxruntime shared library `FILE` for the onnx backend",
	},
	&cli.StringFlag{
		Name:  flagONNXInput,
		Value: engine.DefaultONNXInput,
		Usage: "input tensor name of the onnx model",
	},
	&cli.StringFlag{
		Name:  flagONNXOutput,
		Value: engine.DefaultONNXOutput,
		Usage: "output tensor name of the onnx model",
	},
	&cli.IntFlag{
		Name:  flagMaxDetections,
		Value: engine.DefaultMaxDetections,
		Usage: "rows in the onnx model output",
	},
	&cli.StringFlag{
		Name:    flagSource,
		EnvVars: env("SOURCE"),
		Value:   "0",
		Usage:   "camera index, video file or stream URL",
	},
	&cli.IntFlag{
		Name:  flagWidth,
		Value: video.DefaultWidth,
		Usage: "resize captured frames to this width, 0 keeps the native size",
	},
	&cli.DurationFlag{
		Name:  flagWarmup,
		Value: video.DefaultWarmup,
		Usage: "how long to wait for the first frame",
	},
	&cli.DurationFlag{
		Name:  flagFrameTimeout,
		Value: video.DefaultFrameTimeout,
		Usage: "how long to wait for each frame before skipping",
	},
	&cli.IntFlag{
		Name:  flagMaxReadFailures,
		Value: video.DefaultMaxReadFailures,
		Usage: "consecutive capture failures before the source is closed",
	},
	&cli.IntFlag{
		Name:  flagWorkers,
		Value: 1,
		Usage: "engines running in parallel, frames are still shown in capture order",
	},
	&cli.IntFlag{
		Name:  flagMaxFailedFrames,
		Value: spotter.DefaultMaxFrameFailures,
		Usage: "consecutive frames that may fail detection before the session ends",
	},
	&cli.Float64Flag{
		Name:  flagNMSIoU,
		Usage: "suppress same-class boxes overlapping more than this IoU, 0 disables",
	},
	&cli.StringFlag{
		Name:  flagLabels,
		Usage: "class names `FILE`, one per line, replacing the built-in VOC list",
	},
	&cli.Uint64Flag{
		Name:  flagSeed,
		Usage: "seed for the box colours, 0 picks one at random",
	},
	&cli.BoolFlag{
		Name:  flagHeadless,
		Usage: "run without a window",
	},
	&cli.StringFlag{
		Name:  flagWindowTitle,
		Value: display.DefaultTitle,
		Usage: "title of the display window",
	},
	&cli.StringFlag{
		Name:    flagStatusAddr,
		EnvVars: env("STATUS_ADDR"),
		Usage:   "serve /metrics and /healthz on this address, empty disables",
	},
	&cli.BoolFlag{
		Name:    flagDebug,
		EnvVars: []string{"DEBUG"},
		Usage:   "enable debug logging and per-frame timings",
	},
}

func loadConfig(c *cli.Context) (appConfig, error) {
	cfg := appConfig{
		engine: engine.Config{
			Backend:  c.String(flagBackend),
			Prototxt: c.String(flagPrototxt),
			Model:    c.String(flagModel),
			ONNX: engine.ONNXConfig{
				LibraryPath:   c.String(flagONNXLib),
				InputName:     c.String(flagONNXInput),
				OutputName:    c.String(flagONNXOutput),
				MaxDetections: c.Int(flagMaxDetections),
			},
			Workers: c.Int(flagWorkers),
		},
		video: video.Config{
			Source:          c.String(flagSource),
			Width:           c.Int(flagWidth),
			Warmup:          c.Duration(flagWarmup),
			FrameTimeout:    c.Duration(flagFrameTimeout),
			MaxReadFailures: c.Int(flagMaxReadFailures),
		},
		confidence:       c.Float64(flagConfidence),
		workers:          c.Int(flagWorkers),
		maxFrameFailures: c.Int(flagMaxFailedFrames),
		nmsIoU:           c.Float64(flagNMSIoU),
		labels:           c.String(flagLabels),
		seed:             c.Uint64(flagSeed),
		headless:         c.Bool(flagHeadless),
		windowTitle:      c.String(flagWindowTitle),
		statusAddr:       c.String(flagStatusAddr),
		debug:            c.Bool(flagDebug),
	}
	return cfg, cfg.validate()
}

// validate checks everything that can fail before a camera or window is opened.
func (cfg appConfig) validate() error {
	switch {
	case cfg.confidence < 0 || cfg.confidence > 1:
		return fmt.Errorf("--%s must be within [0, 1], got %v", flagConfidence, cfg.confidence)
	case cfg.nmsIoU < 0 || cfg.nmsIoU > 1:
		return fmt.Errorf("--%s must be within [0, 1], got %v", flagNMSIoU, cfg.nmsIoU)
	case cfg.workers < 1:
		return fmt.Errorf("--%s must be at least 1, got %d", flagWorkers, cfg.workers)
	case cfg.maxFrameFailures < 1:
		return fmt.Errorf("--%s must be at least 1, got %d", flagMaxFailedFrames, cfg.maxFrameFailures)
	case cfg.video.Width < 0:
		return fmt.Errorf("--%s must not be negative, got %d", flagWidth, cfg.video.Width)
	case cfg.video.Warmup < 0:
		return fmt.Errorf("--%s must not be negative, got %v", flagWarmup, cfg.video.Warmup)
	case cfg.video.FrameTimeout <= 0:
		return fmt.Errorf("--%s must be positive, got %v", flagFrameTimeout, cfg.video.FrameTimeout)
	case cfg.video.MaxReadFailures < 1:
		return fmt.Errorf("--%s must be at least 1, got %d", flagMaxReadFailures, cfg.video.MaxReadFailures)
	case cfg.video.Source == "":
		return errors.New("a video source is required")
	}
	return cfg.engine.Validate()
}
