package detections

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.uber.org/multierr"

	"github.com/Tutortoise/live-spotter/catalog"
	"github.com/Tutortoise/live-spotter/models"
)

// Options configures a Pipeline.
type Options struct {
	// Threshold is the confidence a detection must strictly exceed.
	Threshold float64
	Catalog   *catalog.Catalog
	// Out receives one "[DETECTED] ..." line per accepted detection.
	Out    io.Writer
	Logger *slog.Logger
	// OverlapIoU enables same-class overlap suppression when positive.
	OverlapIoU float64
}

// Pipeline turns one frame into an annotated frame and the list of accepted detections.
type Pipeline struct {
	threshold  float32
	catalog    *catalog.Catalog
	out        io.Writer
	logger     *slog.Logger
	overlapIoU float64
}

// Result is what Process reports for one frame.
type Result struct {
	Detections []models.Detection
	// Skipped counts retained detections dropped for an unknown class id.
	Skipped int
	Timings models.FrameTimings
}

func New(opts Options) (*Pipeline, error) {
	if opts.Threshold < 0 || opts.Threshold > 1 {
		return nil, fmt.Errorf("confidence threshold %v outside [0, 1]", opts.Threshold)
	}
	if opts.Catalog == nil {
		return nil, errors.New("pipeline requires a class catalog")
	}
	if opts.OverlapIoU < 0 || opts.OverlapIoU > 1 {
		return nil, fmt.Errorf("overlap IoU %v outside [0, 1]", opts.OverlapIoU)
	}
	p := &Pipeline{
		threshold:  float32(opts.Threshold),
		catalog:    opts.Catalog,
		out:        opts.Out,
		logger:     opts.Logger,
		overlapIoU: opts.OverlapIoU,
	}
	if p.out == nil {
		p.out = io.Discard
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p, nil
}

// Process runs engine on frame, draws every accepted detection onto it and
// reports them. A malformed engine result fails the whole frame before
// anything is drawn.
func (p *Pipeline) Process(ctx context.Context, engine Engine, frame Frame) (*Result, error) {
	res, err := p.Detect(ctx, engine, frame)
	if err != nil {
		return nil, err
	}

	annotateStart := time.Now()
	if err := p.Annotate(frame, res.Detections); err != nil {
		return nil, err
	}
	res.Timings.Annotate = time.Since(annotateStart)

	return res, nil
}

// Detect runs inference and decoding without touching the frame or the
// console, so it can run off the control goroutine.
func (p *Pipeline) Detect(ctx context.Context, engine Engine, frame Frame) (*Result, error) {
	width, height := frame.Size()
	if width <= 0 || height <= 0 {
		return nil, &ProcessingError{Message: fmt.Sprintf("empty frame %dx%d", width, height)}
	}

	res := &Result{}

	inferStart := time.Now()
	out, err := engine.Infer(ctx, frame)
	if err != nil {
		return nil, &ProcessingError{Message: "model inference", Cause: err}
	}
	res.Timings.Inference = time.Since(inferStart)

	decodeStart := time.Now()
	dets, skipped, err := p.Decode(out, width, height)
	if err != nil {
		return nil, err
	}
	res.Detections = SuppressOverlaps(dets, p.overlapIoU)
	res.Skipped = skipped
	res.Timings.Decode = time.Since(decodeStart)

	return res, nil
}

// Decode validates out and converts the rows whose confidence exceeds the
// threshold into pixel-space detections, in engine order.
func (p *Pipeline) Decode(out Tensor, width, height int) ([]models.Detection, int, error) {
	if err := Validate(out); err != nil {
		return nil, 0, err
	}

	var (
		dets    []models.Detection
		skipped int
	)
	for i := 0; i < out.Rows(); i++ {
		row := out.Data[i*RowWidth : (i+1)*RowWidth]
		confidence := row[2]
		if !(confidence > p.threshold) {
			continue
		}

		norm := [4]float32{row[3], row[4], row[5], row[6]}
		if !finite(norm[:]...) {
			return nil, 0, &ShapeError{
				Shape:   out.Shape,
				DataLen: len(out.Data),
				Reason:  fmt.Sprintf("row %d has a non-finite box %v", i, norm),
			}
		}

		classID, ok := p.classID(row[1])
		if !ok {
			skipped++
			p.logger.Warn("skipping detection with unknown class id",
				"class_id", row[1], "catalog_size", p.catalog.Len(), "confidence", confidence)
			continue
		}
		name, _ := p.catalog.Name(classID)

		dets = append(dets, models.Detection{
			ClassID:    classID,
			ClassName:  name,
			Confidence: confidence,
			Normalized: norm,
			Box:        PixelBox(norm, width, height),
			Label:      FormatLabel(name, confidence),
		})
	}
	return dets, skipped, nil
}

// Annotate draws each detection and writes its console line. A failed draw
// does not stop the remaining detections from being drawn.
func (p *Pipeline) Annotate(frame Frame, dets []models.Detection) error {
	var err error
	for _, d := range dets {
		fmt.Fprintf(p.out, "[DETECTED] %s\n", d.Label)

		c, _ := p.catalog.Color(d.ClassID)
		err = multierr.Append(err, frame.DrawBox(d.Box, c, BoxThickness))
		err = multierr.Append(err, frame.DrawLabel(d.Label, LabelOrigin(d.Box), c))
	}
	if err != nil {
		return &ProcessingError{Message: "annotate frame", Cause: err}
	}
	return nil
}

func (p *Pipeline) classID(raw float32) (int, bool) {
	// NaN fails both comparisons.
	if !(raw > -1 && raw < float32(p.catalog.Len())) {
		return 0, false
	}
	return int(raw), true
}

// Validate checks that out has the [1,1,N,7] layout and a matching data length.
func Validate(out Tensor) error {
	shapeErr := func(reason string) error {
		return &ShapeError{Shape: out.Shape, DataLen: len(out.Data), Reason: reason}
	}
	if len(out.Shape) != 4 {
		return shapeErr(fmt.Sprintf("expected 4 dimensions, got %d", len(out.Shape)))
	}
	if out.Shape[0] != 1 || out.Shape[1] != 1 {
		return shapeErr("expected a single batch and a single channel")
	}
	if out.Shape[2] < 0 {
		return shapeErr("negative detection count")
	}
	if out.Shape[3] != RowWidth {
		return shapeErr(fmt.Sprintf("expected rows of %d values, got %d", RowWidth, out.Shape[3]))
	}
	if want := out.Shape[2] * RowWidth; len(out.Data) != want {
		return shapeErr(fmt.Sprintf("expected %d values", want))
	}
	return nil
}
