package detector

import "sort"

// Box is a scored detection rectangle in image coordinates.
type Box struct {
	X1, Y1, X2, Y2 float64
	Score          float64
}

func (b Box) area() float64 {
	w := b.X2 - b.X1
	if w < 0 {
		w = 0
	}
	h := b.Y2 - b.Y1
	if h < 0 {
		h = 0
	}
	return w * h
}

// iou computes the intersection-over-union of two boxes.
func iou(a, b Box) float64 {
	x1 := max(a.X1, b.X1)
	y1 := max(a.Y1, b.Y1)
	x2 := min(a.X2, b.X2)
	y2 := min(a.Y2, b.Y2)

	w := x2 - x1
	if w < 0 {
		w = 0
	}
	h := y2 - y1
	if h < 0 {
		h = 0
	}
	inter := w * h
	if inter <= 0 {
		return 0
	}
	union := a.area() + b.area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// NonMaxSuppression greedily keeps the highest-scoring boxes, discarding any
// candidate whose IoU with an already-kept box meets or exceeds threshold.
func NonMaxSuppression(boxes []Box, iouThreshold float64) []Box {
	if len(boxes) == 0 {
		return nil
	}
	sorted := make([]Box, len(boxes))
	copy(sorted, boxes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	var kept []Box
	for _, candidate := range sorted {
		keep := true
		for _, k := range kept {
			if iou(candidate, k) >= iouThreshold {
				keep = false
				break
			}
		}
		if keep {
			kept = append(kept, candidate)
		}
	}
	return kept
}
