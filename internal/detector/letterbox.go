package detector

import (
	"image"

	"github.com/livenessd/server/internal/imaging"
)

// Letterbox describes an aspect-preserving placement of a source image
// into a fixed inputW x inputH canvas: scale by the smaller of the two
// axis ratios, then center with symmetric padding.
type Letterbox struct {
	Scale      float64
	NewW, NewH int
	OffsetX    int
	OffsetY    int
	SrcW, SrcH int
	InputW     int
	InputH     int
}

// ComputeLetterbox derives the scale/offset geometry for placing a srcW x
// srcH image into an inputW x inputH canvas without distortion.
func ComputeLetterbox(srcW, srcH, inputW, inputH int) Letterbox {
	scale := min(float64(inputW)/float64(srcW), float64(inputH)/float64(srcH))
	newW := int(float64(srcW)*scale + 0.5)
	newH := int(float64(srcH)*scale + 0.5)
	return Letterbox{
		Scale:   scale,
		NewW:    newW,
		NewH:    newH,
		OffsetX: (inputW - newW) / 2,
		OffsetY: (inputH - newH) / 2,
		SrcW:    srcW,
		SrcH:    srcH,
		InputW:  inputW,
		InputH:  inputH,
	}
}

// Apply resizes src to the letterbox's scaled dimensions and pastes it,
// centered, onto a blank inputW x inputH canvas.
func (lb Letterbox) Apply(src *image.RGBA) *image.RGBA {
	resized := imaging.ResizeRGB(src, lb.NewW, lb.NewH)
	canvas := image.NewRGBA(image.Rect(0, 0, lb.InputW, lb.InputH))
	dstRect := image.Rect(lb.OffsetX, lb.OffsetY, lb.OffsetX+lb.NewW, lb.OffsetY+lb.NewH)
	for y := 0; y < lb.NewH; y++ {
		for x := 0; x < lb.NewW; x++ {
			canvas.Set(dstRect.Min.X+x, dstRect.Min.Y+y, resized.At(x, y))
		}
	}
	return canvas
}

// Unmap maps a box from letterboxed-canvas coordinates back to the
// original source image's coordinate space, clamped to its bounds.
func (lb Letterbox) Unmap(b Box) Box {
	clampX := func(v float64) float64 { return clamp(v, 0, float64(lb.SrcW-1)) }
	clampY := func(v float64) float64 { return clamp(v, 0, float64(lb.SrcH-1)) }

	scaleX := float64(lb.SrcW) / float64(lb.NewW)
	scaleY := float64(lb.SrcH) / float64(lb.NewH)

	return Box{
		X1:    clampX((b.X1 - float64(lb.OffsetX)) * scaleX),
		Y1:    clampY((b.Y1 - float64(lb.OffsetY)) * scaleY),
		X2:    clampX((b.X2 - float64(lb.OffsetX)) * scaleX),
		Y2:    clampY((b.Y2 - float64(lb.OffsetY)) * scaleY),
		Score: b.Score,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
