package repeat

import "math"

// IOU returns the intersection-over-union of two axis-aligned boxes in
// [x_min, y_min, width, height] form. It is symmetric, returns 1 for a box
// against itself and 0 for disjoint or degenerate boxes.
func IOU(a, b []float64) float64 {
	ax2 := a[0] + a[2]
	ay2 := a[1] + a[3]
	bx2 := b[0] + b[2]
	by2 := b[1] + b[3]

	iw := math.Min(ax2, bx2) - math.Max(a[0], b[0])
	ih := math.Min(ay2, by2) - math.Max(a[1], b[1])
	if iw <= 0 || ih <= 0 {
		return 0
	}

	inter := iw * ih
	union := a[2]*a[3] + b[2]*b[3] - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}
