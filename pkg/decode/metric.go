package decode

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/kdtree"

	"fishdecode/pkg/codebook"
	"fishdecode/pkg/features"
)

// codePoint is one normalized codeword in the kd-tree.
type codePoint struct {
	vec   []float64
	index int
}

// Compare implements the kdtree.Comparable interface
func (p codePoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(codePoint)
	return p.vec[d] - q.vec[d]
}

// Dims returns the number of dimensions for the KD-tree
func (p codePoint) Dims() int { return len(p.vec) }

// Distance returns the squared Euclidean distance between two codewords
func (p codePoint) Distance(c kdtree.Comparable) float64 {
	q := c.(codePoint)
	var sum float64
	for i := range p.vec {
		d := p.vec[i] - q.vec[i]
		sum += d * d
	}
	return sum
}

// codePoints is a collection of codePoint that satisfies kdtree.Interface
type codePoints []codePoint

func (p codePoints) Index(i int) kdtree.Comparable        { return p[i] }
func (p codePoints) Len() int                             { return len(p) }
func (p codePoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// Pivot implements the kdtree.Interface method
func (p codePoints) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(codePlane{codePoints: p, Dim: d}, kdtree.MedianOfRandoms(codePlane{codePoints: p, Dim: d}, 100))
}

// codePlane implements sort.Interface and kdtree.SortSlicer for codePoints
type codePlane struct {
	codePoints
	kdtree.Dim
}

func (p codePlane) Less(i, j int) bool {
	return p.codePoints[i].vec[p.Dim] < p.codePoints[j].vec[p.Dim]
}

func (p codePlane) Slice(start, end int) kdtree.SortSlicer {
	return codePlane{codePoints: p.codePoints[start:end], Dim: p.Dim}
}

func (p codePlane) Swap(i, j int) {
	p.codePoints[i], p.codePoints[j] = p.codePoints[j], p.codePoints[i]
}

// nearestSearch resolves a normalized observation vector to the nearest
// normalized codeword. The Euclidean default is served by a kd-tree over
// the codewords; any other norm order or custom metric falls back to a
// linear scan.
type nearestSearch struct {
	method MetricDistance
	codes  [][]float64

	tree *kdtree.Tree
}

func newNearestSearch(cb *codebook.Codebook, m MetricDistance) *nearestSearch {
	s := &nearestSearch{method: m, codes: make([][]float64, cb.Len())}
	for i := range s.codes {
		if m.NormOrder == 2 {
			s.codes[i] = cb.UnitCode(i)
			continue
		}
		code := make([]float64, cb.VectorLen())
		copy(code, cb.Code(i))
		if norm := floats.Norm(code, m.NormOrder); norm > 0 {
			floats.Scale(1/norm, code)
		}
		s.codes[i] = code
	}

	if m.Metric == nil && m.NormOrder == 2 {
		points := make(codePoints, len(s.codes))
		for i, code := range s.codes {
			points[i] = codePoint{vec: code, index: i}
		}
		s.tree = kdtree.New(points, true)
	}
	return s
}

// nearest returns the index of the closest codeword and the distance to
// it. The observation must already be normalized.
func (s *nearestSearch) nearest(observed []float64) (index int, distance float64) {
	if s.tree != nil {
		got, dist := s.tree.Nearest(codePoint{vec: observed})
		return got.(codePoint).index, math.Sqrt(dist)
	}

	metric := s.method.Metric
	if metric == nil {
		order := s.method.NormOrder
		metric = func(a, b []float64) float64 { return floats.Distance(a, b, order) }
	}

	index = 0
	distance = metric(observed, s.codes[0])
	for i := 1; i < len(s.codes); i++ {
		if d := metric(observed, s.codes[i]); d < distance {
			index = i
			distance = d
		}
	}
	return index, distance
}

// decodeMetric assigns each spot the target of its nearest codeword. The
// observed vector is normalized by its own norm before the comparison; a
// spot passes iff its nearest distance is at most the distance threshold
// and its raw magnitude is at least the magnitude threshold, both bounds
// inclusive. A zero-magnitude spot cannot be normalized and decodes to
// the no-call sentinel.
func decodeMetric(cb *codebook.Codebook, table *SpotTable, m MetricDistance) (*features.Table, error) {
	search := newNearestSearch(cb, m)

	rows := make([]features.Feature, len(table.Spots))
	for i, spot := range table.Spots {
		row := features.Feature{
			Z: spot.Z, Y: spot.Y, X: spot.X,
			Radius: spot.Radius,
			Target: features.NoCall,
		}

		if mag := floats.Norm(spot.Values, m.NormOrder); mag > 0 {
			normalized := make([]float64, len(spot.Values))
			copy(normalized, spot.Values)
			floats.Scale(1/mag, normalized)

			index, distance := search.nearest(normalized)
			row.Target = cb.Target(index)
			row.Distance = distance
			row.PassesThresholds = distance <= m.DistanceThreshold && mag >= m.MagnitudeThreshold
		}
		rows[i] = row
	}
	return features.NewTable(rows), nil
}
