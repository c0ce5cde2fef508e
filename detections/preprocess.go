package detections

import (
	"fmt"
	"image"
	"runtime"
	"sync"

	"github.com/disintegration/imaging"
)

// Preprocessor turns a frame into the planar NCHW float32 input of the
// network: resize to InputWidth x InputHeight, then (pixel - Mean) * Scale
// per channel.
type Preprocessor struct {
	width, height int
	scale, mean   float32
	swapRB        bool
	numWorkers    int
}

func NewPreprocessor() *Preprocessor {
	workers := runtime.GOMAXPROCS(0)
	if workers > InputHeight {
		workers = InputHeight
	}
	return &Preprocessor{
		width:      InputWidth,
		height:     InputHeight,
		scale:      Scale,
		mean:       Mean,
		swapRB:     SwapRB,
		numWorkers: workers,
	}
}

// Len is the number of float32 values Process writes.
func (p *Preprocessor) Len() int {
	return 3 * p.width * p.height
}

// Process fills dst from img. img is in RGB order; with swapRB the planes come
// out as R, G, B, which matches swapping the channels of a BGR camera frame.
// Without it the planes keep the camera's B, G, R order.
func (p *Preprocessor) Process(img image.Image, dst []float32) error {
	if len(dst) != p.Len() {
		return fmt.Errorf("input buffer holds %d values, need %d", len(dst), p.Len())
	}
	if img == nil || img.Bounds().Empty() {
		return fmt.Errorf("cannot preprocess an empty image")
	}

	resized := imaging.Resize(img, p.width, p.height, imaging.Linear)
	p.processParallel(resized, dst)
	return nil
}

func (p *Preprocessor) processParallel(img *image.NRGBA, buffer []float32) {
	channelSize := p.width * p.height
	first, third := 0, 2*channelSize
	if !p.swapRB {
		first, third = third, first
	}

	rowsPerWorker := p.height / p.numWorkers
	var wg sync.WaitGroup
	wg.Add(p.numWorkers)

	for w := 0; w < p.numWorkers; w++ {
		startRow := w * rowsPerWorker
		endRow := (w + 1) * rowsPerWorker
		if w == p.numWorkers-1 {
			endRow = p.height
		}

		go func(start, end int) {
			defer wg.Done()
			for y := start; y < end; y++ {
				src := img.Pix[y*img.Stride : y*img.Stride+p.width*4]
				offset := y * p.width
				for x := 0; x < p.width; x++ {
					i := offset + x
					px := src[x*4 : x*4+3]
					buffer[first+i] = (float32(px[0]) - p.mean) * p.scale
					buffer[channelSize+i] = (float32(px[1]) - p.mean) * p.scale
					buffer[third+i] = (float32(px[2]) - p.mean) * p.scale
				}
			}
		}(startRow, endRow)
	}

	wg.Wait()
}
