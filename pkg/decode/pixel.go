package decode

import (
	"fmt"
	"math"

	"github.com/theodesp/unionfind"
	"gonum.org/v1/gonum/floats"

	"fishdecode/pkg/codebook"
	"fishdecode/pkg/features"
	"fishdecode/pkg/labelimage"
	"fishdecode/pkg/provenance"
	"fishdecode/pkg/tensor"
)

// PixelStack holds one intensity vector per pixel of a frame, flattened
// row-major over the frame shape. It is the input to whole-frame pixel
// decoding.
type PixelStack struct {
	Rounds   int
	Channels int
	Shape    []int

	Pixel    tensor.PixelTicks
	Physical tensor.PhysicalTicks

	// Vectors[i] is the (round, channel) intensity vector of the pixel at
	// flat index i.
	Vectors [][]float64
}

// NewPixelStack validates and assembles a pixel stack. Missing pixel ticks
// are synthesized as 0..extent-1; physical coordinates are required for
// every axis of the shape.
func NewPixelStack(rounds, channels int, shape []int, pixel tensor.PixelTicks, physical tensor.PhysicalTicks, vectors [][]float64) (*PixelStack, error) {
	if rounds <= 0 || channels <= 0 {
		return nil, fmt.Errorf("pixel stack shape must be positive; got %d rounds, %d channels",
			rounds, channels)
	}
	if len(shape) < tensor.MinRank || len(shape) > tensor.MaxRank {
		return nil, fmt.Errorf("expected %d or %d spatial dimensions; got %d",
			tensor.MinRank, tensor.MaxRank, len(shape))
	}
	if len(vectors) != tensor.Size(shape) {
		return nil, fmt.Errorf("got %d pixel vectors; shape %v has %d pixels",
			len(vectors), shape, tensor.Size(shape))
	}
	n := rounds * channels
	for i, vec := range vectors {
		if len(vec) != n {
			return nil, fmt.Errorf("pixel %d has %d intensity values; the stack shape %dx%d requires %d",
				i, len(vec), rounds, channels, n)
		}
	}

	pixel = tensor.FillMissingPixelTicks(shape, pixel)
	if err := tensor.ValidateTicks(shape, pixel, physical); err != nil {
		return nil, err
	}

	return &PixelStack{
		Rounds:   rounds,
		Channels: channels,
		Shape:    shape,
		Pixel:    pixel,
		Physical: physical,
		Vectors:  vectors,
	}, nil
}

// PixelDecodeOptions configures whole-frame pixel decoding: the
// nearest-codeword metric plus the cluster area acceptance window.
type PixelDecodeOptions struct {
	Metric MetricDistance

	// MinArea and MaxArea bound the pixel count of an accepted cluster,
	// both ends inclusive.
	MinArea int
	MaxArea int
}

func (o PixelDecodeOptions) validate() error {
	if err := o.Metric.validate(); err != nil {
		return err
	}
	if o.MinArea < 0 {
		return fmt.Errorf("minimum cluster area must be non-negative; got %d", o.MinArea)
	}
	if o.MinArea > o.MaxArea {
		return fmt.Errorf("minimum cluster area %d exceeds maximum %d", o.MinArea, o.MaxArea)
	}
	return nil
}

// PixelDecodeResult pairs the per-cluster feature table with the label
// image assigning every clustered pixel its feature row index plus one.
type PixelDecodeResult struct {
	Features *features.Table
	Decoded  *labelimage.LabelImage
}

// pixelCall is the per-pixel decoding state before clustering.
type pixelCall struct {
	target   int // codeword index, -1 for a zero-magnitude pixel
	distance float64
	passes   bool
}

// DecodePixels decodes every pixel of the stack to its nearest codeword,
// then groups axis-adjacent pixels that share a target and a threshold
// verdict into connected components. A cluster passes iff its pixels
// passed the distance and magnitude thresholds and its area lies within
// [MinArea, MaxArea]; failing clusters stay in the output with
// PassesThresholds false. Zero-magnitude pixels carry no signal and join
// no cluster.
func DecodePixels(cb *codebook.Codebook, stack *PixelStack, opts PixelDecodeOptions) (*PixelDecodeResult, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if stack.Rounds != cb.Rounds() || stack.Channels != cb.Channels() {
		return nil, fmt.Errorf("pixel stack shape %dx%d does not match codebook shape %dx%d",
			stack.Rounds, stack.Channels, cb.Rounds(), cb.Channels())
	}

	search := newNearestSearch(cb, opts.Metric)
	n := tensor.Size(stack.Shape)

	calls := make([]pixelCall, n)
	normalized := make([]float64, cb.VectorLen())
	for i, vec := range stack.Vectors {
		mag := floats.Norm(vec, opts.Metric.NormOrder)
		if mag == 0 {
			calls[i] = pixelCall{target: -1}
			continue
		}
		copy(normalized, vec)
		floats.Scale(1/mag, normalized)
		index, distance := search.nearest(normalized)
		calls[i] = pixelCall{
			target:   index,
			distance: distance,
			passes:   distance <= opts.Metric.DistanceThreshold && mag >= opts.Metric.MagnitudeThreshold,
		}
	}

	// Union axis-adjacent pixels with the same target and verdict. Only the
	// backward neighbor along each axis is inspected; the forward pairing is
	// covered when the neighbor itself is visited.
	strides := rowMajorStrides(stack.Shape)
	uf := unionfind.NewThreadSafeUnionFind(n)
	coords := make([]int, len(stack.Shape))
	for i := range stack.Vectors {
		if calls[i].target < 0 {
			advance(coords, stack.Shape)
			continue
		}
		for axis := range stack.Shape {
			if coords[axis] == 0 {
				continue
			}
			j := i - strides[axis]
			if calls[j].target == calls[i].target && calls[j].passes == calls[i].passes {
				uf.Union(i, j)
			}
		}
		advance(coords, stack.Shape)
	}

	// Number clusters in first-encounter flat order so the output is
	// deterministic.
	clusterOf := make(map[int]int)
	var members [][]int
	labels := tensor.ZerosInt32(stack.Shape)
	for i := range stack.Vectors {
		if calls[i].target < 0 {
			continue
		}
		root := uf.Root(i)
		if root < 0 {
			root = i
		}
		cluster, ok := clusterOf[root]
		if !ok {
			cluster = len(members)
			clusterOf[root] = cluster
			members = append(members, nil)
		}
		members[cluster] = append(members[cluster], i)
		labels.Data[i] = int32(cluster + 1)
	}

	rows := make([]features.Feature, len(members))
	for cluster, pixels := range members {
		rows[cluster] = clusterFeature(cb, stack, calls, pixels, opts)
	}

	log := &provenance.Log{}
	log.Append("DecodePixels", map[string]any{
		"norm_order":          opts.Metric.NormOrder,
		"distance_threshold":  opts.Metric.DistanceThreshold,
		"magnitude_threshold": opts.Metric.MagnitudeThreshold,
		"min_area":            opts.MinArea,
		"max_area":            opts.MaxArea,
	})
	decoded, err := labelimage.FromArrayAndTicks(labels, stack.Pixel, stack.Physical, log)
	if err != nil {
		return nil, err
	}

	return &PixelDecodeResult{Features: features.NewTable(rows), Decoded: decoded}, nil
}

// clusterFeature reduces one connected component to a feature row: the
// mean physical position and nearest-codeword distance of its pixels,
// the pixel-count area, and the equivalent circular or spherical radius.
func clusterFeature(cb *codebook.Codebook, stack *PixelStack, calls []pixelCall, pixels []int, opts PixelDecodeOptions) features.Feature {
	rank := len(stack.Shape)
	centroid := make([]float64, rank)
	coords := make([]int, rank)
	var distance float64
	for _, p := range pixels {
		decompose(stack.Shape, p, coords)
		for axis := range coords {
			centroid[axis] += stack.Physical.Axis(axis)[coords[axis]]
		}
		distance += calls[p].distance
	}
	area := float64(len(pixels))
	for axis := range centroid {
		centroid[axis] /= area
	}
	distance /= area

	row := features.Feature{
		Target:   cb.Target(calls[pixels[0]].target),
		Distance: distance,
		Area:     area,
	}
	if rank == 3 {
		row.Z, row.Y, row.X = centroid[0], centroid[1], centroid[2]
		row.Radius = math.Cbrt(3 * area / (4 * math.Pi))
	} else {
		row.Y, row.X = centroid[0], centroid[1]
		row.Radius = math.Sqrt(area / math.Pi)
	}

	row.PassesThresholds = calls[pixels[0]].passes &&
		len(pixels) >= opts.MinArea && len(pixels) <= opts.MaxArea
	return row
}

// rowMajorStrides returns the flat-index stride of each axis.
func rowMajorStrides(shape []int) []int {
	strides := make([]int, len(shape))
	stride := 1
	for axis := len(shape) - 1; axis >= 0; axis-- {
		strides[axis] = stride
		stride *= shape[axis]
	}
	return strides
}

// advance steps per-axis coordinates to the next pixel in row-major order.
func advance(coords, shape []int) {
	for axis := len(shape) - 1; axis >= 0; axis-- {
		coords[axis]++
		if coords[axis] < shape[axis] {
			return
		}
		coords[axis] = 0
	}
}

// decompose converts a flat row-major index into per-axis coordinates.
func decompose(shape []int, index int, coords []int) {
	for axis := len(shape) - 1; axis >= 0; axis-- {
		coords[axis] = index % shape[axis]
		index /= shape[axis]
	}
}
