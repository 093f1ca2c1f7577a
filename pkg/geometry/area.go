// Package geometry provides the axis-aligned bounding box arithmetic used
// to reconcile feature tables from overlapping fields of view.
package geometry

// Area is an axis-aligned rectangle in physical coordinates. It is an
// immutable value type; MinX <= MaxX and MinY <= MaxY must hold.
type Area struct {
	MinX float64
	MaxX float64
	MinY float64
	MaxY float64
}

// Pair identifies an unordered pair of table indices; First < Second.
type Pair struct {
	First  int
	Second int
}

// Intersect returns the rectangle covering the overlap of a and b. The
// second return value is false when the projections onto either axis do
// not overlap. Two non-degenerate rectangles that share only an edge do
// not intersect; a zero-extent overlap counts only when one of the inputs
// is itself degenerate along that axis and a touch is the most it can
// produce.
func Intersect(a, b Area) (Area, bool) {
	minX := maxFloat(a.MinX, b.MinX)
	maxX := minFloat(a.MaxX, b.MaxX)
	minY := maxFloat(a.MinY, b.MinY)
	maxY := minFloat(a.MaxY, b.MaxY)

	if !axisOverlaps(minX, maxX, a.MinX == a.MaxX || b.MinX == b.MaxX) {
		return Area{}, false
	}
	if !axisOverlaps(minY, maxY, a.MinY == a.MaxY || b.MinY == b.MaxY) {
		return Area{}, false
	}
	return Area{MinX: minX, MaxX: maxX, MinY: minY, MaxY: maxY}, true
}

// axisOverlaps reports whether the interval [lo, hi] is a genuine overlap:
// positive length, or a closed touch when one of the source intervals was
// degenerate to begin with.
func axisOverlaps(lo, hi float64, degenerateInput bool) bool {
	if degenerateInput {
		return lo <= hi
	}
	return lo < hi
}

// Contains reports whether the point (x, y) lies within the closed
// rectangle.
func (a Area) Contains(x, y float64) bool {
	return x >= a.MinX && x <= a.MaxX && y >= a.MinY && y <= a.MaxY
}

// FindOverlaps returns every pairwise combination of areas whose bounding
// rectangles intersect. Each unordered pair is reported once, keyed by the
// indices of the two areas in the input slice.
func FindOverlaps(areas []Area) map[Pair]Area {
	overlaps := make(map[Pair]Area)
	for i := 0; i < len(areas); i++ {
		for j := i + 1; j < len(areas); j++ {
			if overlap, ok := Intersect(areas[i], areas[j]); ok {
				overlaps[Pair{First: i, Second: j}] = overlap
			}
		}
	}
	return overlaps
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
