package detector

import "testing"

func TestComputeLetterboxPreservesAspectRatio(t *testing.T) {
	lb := ComputeLetterbox(1280, 720, 640, 640)

	if lb.NewW != 640 {
		t.Fatalf("expected width-constrained scale to fill 640, got %d", lb.NewW)
	}
	if lb.NewH <= 0 || lb.NewH >= 640 {
		t.Fatalf("expected letterboxed height to be padded within canvas, got %d", lb.NewH)
	}
	if lb.OffsetX != 0 {
		t.Fatalf("wide image should pack full width with zero x offset, got %d", lb.OffsetX)
	}
	if lb.OffsetY <= 0 {
		t.Fatalf("wide image letterboxed into a square canvas should have vertical padding, got %d", lb.OffsetY)
	}
}

func TestUnmapRoundTripsCenterBox(t *testing.T) {
	lb := ComputeLetterbox(1280, 720, 640, 640)

	canvasBox := Box{
		X1: float64(lb.OffsetX), Y1: float64(lb.OffsetY),
		X2: float64(lb.OffsetX + lb.NewW), Y2: float64(lb.OffsetY + lb.NewH),
		Score: 0.9,
	}
	src := lb.Unmap(canvasBox)

	if src.X1 != 0 || src.Y1 != 0 {
		t.Fatalf("expected full-canvas box to unmap to source origin, got %+v", src)
	}
	if src.X2 < float64(lb.SrcW-2) || src.Y2 < float64(lb.SrcH-2) {
		t.Fatalf("expected full-canvas box to unmap near source bounds, got %+v", src)
	}
}

func TestUnmapClampsOutOfBoundsCoordinates(t *testing.T) {
	lb := ComputeLetterbox(100, 100, 640, 640)

	box := Box{X1: -1000, Y1: -1000, X2: 10000, Y2: 10000}
	got := lb.Unmap(box)

	if got.X1 != 0 || got.Y1 != 0 {
		t.Fatalf("expected clamped lower bound at 0, got %+v", got)
	}
	if got.X2 != float64(lb.SrcW-1) || got.Y2 != float64(lb.SrcH-1) {
		t.Fatalf("expected clamped upper bound at srcW/srcH - 1, got %+v", got)
	}
}
