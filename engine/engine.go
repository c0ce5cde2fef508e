// Package engine opens the detection network on one of the supported
// inference backends.
package engine

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/Tutortoise/live-spotter/detections"
	"github.com/Tutortoise/live-spotter/spotter"
)

const (
	BackendOpenCV = "opencv"
	BackendONNX   = "onnx"
)

type Config struct {
	Backend string
	// Prototxt is the Caffe topology, used by the opencv backend only.
	Prototxt string
	// Model is the Caffe weights file or the .onnx model.
	Model string
	ONNX  ONNXConfig
	// Workers is the number of engines that will run at the same time; the
	// onnx backend splits the CPU threads between them.
	Workers int
}

func (c Config) Validate() error {
	switch c.Backend {
	case BackendOpenCV:
		if c.Prototxt == "" {
			return errors.New("the opencv backend requires a prototxt file")
		}
		if err := checkFile("prototxt", c.Prototxt); err != nil {
			return err
		}
	case BackendONNX:
		if c.ONNX.MaxDetections <= 0 {
			return fmt.Errorf("max detections must be positive, got %d", c.ONNX.MaxDetections)
		}
	default:
		return fmt.Errorf("unknown backend %q, want %s or %s", c.Backend, BackendOpenCV, BackendONNX)
	}
	if c.Model == "" {
		return errors.New("a model file is required")
	}
	return checkFile("model", c.Model)
}

func checkFile(kind, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s file: %w", kind, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s file %s is a directory", kind, path)
	}
	return nil
}

// Factory validates cfg, prepares the backend runtime and returns a
// constructor for the engine pool.
func Factory(cfg Config) (spotter.EngineFactory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case BackendONNX:
		if err := InitONNX(cfg.ONNX.LibraryPath); err != nil {
			return nil, err
		}
		onnxCfg := cfg.ONNX
		if onnxCfg.Threads <= 0 {
			onnxCfg.Threads = max(1, runtime.NumCPU()/max(1, cfg.Workers))
		}
		return func() (detections.Engine, error) {
			return NewONNX(cfg.Model, onnxCfg)
		}, nil
	default:
		return func() (detections.Engine, error) {
			return NewOpenCV(cfg.Prototxt, cfg.Model)
		}, nil
	}
}
