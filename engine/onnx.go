package engine

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/multierr"

	"github.com/Tutortoise/live-spotter/detections"
)

const (
	DefaultONNXInput     = "data"
	DefaultONNXOutput    = "detection_out"
	DefaultMaxDetections = 100
)

type ONNXConfig struct {
	// LibraryPath points at the onnxruntime shared library; empty uses the
	// platform default search.
	LibraryPath string
	InputName   string
	OutputName  string
	// MaxDetections is N in the [1,1,N,7] output the model is exported with.
	MaxDetections int
	Threads       int
}

var (
	envOnce sync.Once
	envErr  error
)

// InitONNX initialises the onnxruntime environment once per process.
func InitONNX(libPath string) error {
	envOnce.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			envErr = fmt.Errorf("initialize onnxruntime: %w", err)
		}
	})
	return envErr
}

// Shutdown destroys the onnxruntime environment if it was initialised.
func Shutdown() error {
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

// ONNX runs an SSD style model through onnxruntime with tensors bound once
// at construction. It is not safe for concurrent use.
type ONNX struct {
	session      *ort.AdvancedSession
	input        *ort.Tensor[float32]
	output       *ort.Tensor[float32]
	preprocessor *detections.Preprocessor
}

func NewONNX(modelPath string, cfg ONNXConfig) (*ONNX, error) {
	if cfg.InputName == "" {
		cfg.InputName = DefaultONNXInput
	}
	if cfg.OutputName == "" {
		cfg.OutputName = DefaultONNXOutput
	}
	if cfg.MaxDetections <= 0 {
		cfg.MaxDetections = DefaultMaxDetections
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("error creating session options: %w", err)
	}
	defer options.Destroy()

	if cfg.Threads > 0 {
		options.SetIntraOpNumThreads(cfg.Threads)
		options.SetInterOpNumThreads(1)
	}

	inputShape := ort.NewShape(1, 3, detections.InputHeight, detections.InputWidth)
	outputShape := ort.NewShape(1, 1, int64(cfg.MaxDetections), detections.RowWidth)

	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("error creating input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("error creating output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{cfg.InputName},
		[]string{cfg.OutputName},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	return &ONNX{
		session:      session,
		input:        inputTensor,
		output:       outputTensor,
		preprocessor: detections.NewPreprocessor(),
	}, nil
}

func (m *ONNX) Infer(ctx context.Context, frame detections.Frame) (detections.Tensor, error) {
	if err := ctx.Err(); err != nil {
		return detections.Tensor{}, err
	}

	img, err := frame.Image()
	if err != nil {
		return detections.Tensor{}, fmt.Errorf("read frame pixels: %w", err)
	}
	if err := m.preprocessor.Process(img, m.input.GetData()); err != nil {
		return detections.Tensor{}, fmt.Errorf("prepare input buffer: %w", err)
	}

	if err := m.session.Run(); err != nil {
		return detections.Tensor{}, fmt.Errorf("model inference: %w", err)
	}

	shape := m.output.GetShape()
	t := detections.Tensor{
		Shape: make([]int, len(shape)),
		Data:  make([]float32, len(m.output.GetData())),
	}
	for i, d := range shape {
		t.Shape[i] = int(d)
	}
	copy(t.Data, m.output.GetData())
	return t, nil
}

func (m *ONNX) Close() error {
	var err error
	if m.session != nil {
		err = multierr.Append(err, m.session.Destroy())
	}
	if m.input != nil {
		err = multierr.Append(err, m.input.Destroy())
	}
	if m.output != nil {
		err = multierr.Append(err, m.output.Destroy())
	}
	return err
}
