// Package detector adapts an external face-detection model to the
// liveness pipeline: letterbox preprocessing, HWC->CHW tensor packing,
// per-stride anchor decoding, non-max suppression, and coordinate
// unmapping back to source-image space. The model itself is an external
// collaborator — Adapter depends only on a Scorer function that runs
// whatever inference backend is wired in.
package detector

import (
	"fmt"
	"image"
	"math"

	"github.com/livenessd/server/internal/imaging"
)

// Config holds the preprocessing and postprocessing parameters for one
// detector instance, mirroring the reference SCRFD configuration.
type Config struct {
	InputWidth     int
	InputHeight    int
	Mean           [3]float64
	Std            [3]float64
	ScoreThreshold float64
	IoUThreshold   float64
	Strides        []int
	AnchorsPerCell int
}

// DefaultConfig matches the reference detector's documented defaults.
func DefaultConfig() Config {
	return Config{
		InputWidth:     640,
		InputHeight:    640,
		Mean:           [3]float64{0.5, 0.5, 0.5},
		Std:            [3]float64{0.5, 0.5, 0.5},
		ScoreThreshold: 0.5,
		IoUThreshold:   0.4,
		Strides:        []int{8, 16, 32},
		AnchorsPerCell: 2,
	}
}

// StrideOutput is one output head's raw tensors for a given stride: flat
// per-anchor sigmoid-pending scores and (dl, dt, dr, db) box deltas.
type StrideOutput struct {
	Scores []float64 // len == gridW*gridH*anchorsPerCell
	Bboxes []float64 // len == gridW*gridH*anchorsPerCell*4
	GridW  int
	GridH  int
}

// Scorer runs the actual detection model against a preprocessed CHW
// tensor and returns one StrideOutput per configured stride. Swapping in
// a real ONNX/TensorRT backend means implementing this function; the
// adapter never talks to a model runtime directly.
type Scorer func(chw []float32, width, height int) (map[int]StrideOutput, error)

// Adapter runs the full detect pipeline: letterbox, tensor pack, score,
// decode, NMS, unmap.
type Adapter struct {
	cfg    Config
	scorer Scorer
}

// New builds an Adapter. A nil scorer makes the adapter inert: Detect
// always returns no boxes, matching the "detector init failure" edge
// case where no face-detection model was selectable.
func New(cfg Config, scorer Scorer) *Adapter {
	return &Adapter{cfg: cfg, scorer: scorer}
}

// Detect runs the full face-detection pipeline against a JPEG/PNG byte
// slice and returns boxes in the source image's coordinate space.
func (a *Adapter) Detect(imageBytes []byte) ([]Box, error) {
	if a.scorer == nil {
		return nil, nil
	}

	img, err := imaging.Decode(imageBytes)
	if err != nil {
		return nil, fmt.Errorf("detector: decode source image: %w", err)
	}
	rgb := imaging.ToRGB(img)
	srcW, srcH := rgb.Bounds().Dx(), rgb.Bounds().Dy()

	lb := ComputeLetterbox(srcW, srcH, a.cfg.InputWidth, a.cfg.InputHeight)
	canvas := lb.Apply(rgb)
	tensor := a.packCHW(canvas)

	outputs, err := a.scorer(tensor, a.cfg.InputWidth, a.cfg.InputHeight)
	if err != nil {
		return nil, fmt.Errorf("detector: run model: %w", err)
	}

	var boxes []Box
	for _, stride := range a.cfg.Strides {
		out, ok := outputs[stride]
		if !ok {
			continue
		}
		boxes = append(boxes, decodeStride(out, stride, a.cfg.AnchorsPerCell, a.cfg.ScoreThreshold)...)
	}

	boxes = NonMaxSuppression(boxes, a.cfg.IoUThreshold)

	unmapped := make([]Box, len(boxes))
	for i, b := range boxes {
		unmapped[i] = lb.Unmap(b)
	}
	return unmapped, nil
}

// packCHW normalizes each channel by (v/255 - mean[c])/std[c] and
// rearranges pixel data from interleaved HWC to planar CHW layout, the
// tensor shape most inference runtimes expect.
func (a *Adapter) packCHW(canvas *image.RGBA) []float32 {
	w, h := canvas.Bounds().Dx(), canvas.Bounds().Dy()
	numel := w * h
	out := make([]float32, numel*3)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := canvas.At(canvas.Bounds().Min.X+x, canvas.Bounds().Min.Y+y).RGBA()
			rf := (float64(r>>8)/255.0 - a.cfg.Mean[0]) / a.cfg.Std[0]
			gf := (float64(g>>8)/255.0 - a.cfg.Mean[1]) / a.cfg.Std[1]
			bf := (float64(b>>8)/255.0 - a.cfg.Mean[2]) / a.cfg.Std[2]

			idx := y*w + x
			out[0*numel+idx] = float32(rf)
			out[1*numel+idx] = float32(gf)
			out[2*numel+idx] = float32(bf)
		}
	}
	return out
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// decodeStride turns one stride's raw score/bbox tensors into boxes in
// letterboxed-canvas coordinates: a box is a distance-to-boundary
// prediction against its grid cell's center.
func decodeStride(out StrideOutput, stride, anchorsPerCell int, scoreThreshold float64) []Box {
	var boxes []Box
	num := out.GridW * out.GridH * anchorsPerCell
	for i := 0; i < num && i < len(out.Scores); i++ {
		score := sigmoid(out.Scores[i])
		if score < scoreThreshold {
			continue
		}
		cell := i / anchorsPerCell
		cx := float64(cell%out.GridW) + 0.5
		cy := float64(cell/out.GridW) + 0.5

		if i*4+3 >= len(out.Bboxes) {
			continue
		}
		dl := out.Bboxes[i*4+0]
		dt := out.Bboxes[i*4+1]
		dr := out.Bboxes[i*4+2]
		db := out.Bboxes[i*4+3]

		cxp := cx * float64(stride)
		cyp := cy * float64(stride)
		x1 := cxp - dl*float64(stride)
		y1 := cyp - dt*float64(stride)
		x2 := cxp + dr*float64(stride)
		y2 := cyp + db*float64(stride)

		if x2 > x1 && y2 > y1 {
			boxes = append(boxes, Box{X1: x1, Y1: y1, X2: x2, Y2: y2, Score: score})
		}
	}
	return boxes
}
