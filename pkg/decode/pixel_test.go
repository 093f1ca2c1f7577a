package decode

import (
	"math"
	"testing"

	"fishdecode/pkg/tensor"
)

// testPixelStack builds a 3x4 frame with three signal regions: an L-shaped
// ACTB cluster of three pixels, an isolated ACTB pixel, and an isolated
// GAPDH pixel adjacent to it. Everything else is background.
func testPixelStack(t *testing.T) *PixelStack {
	t.Helper()

	shape := []int{3, 4}
	vectors := make([][]float64, tensor.Size(shape))
	for i := range vectors {
		vectors[i] = make([]float64, 6)
	}

	actb := []float64{3, 0, 0, 0, 4, 0}
	gapdh := []float64{0, 0, 2, 2, 0, 0}
	set := func(y, x int, vec []float64) {
		copy(vectors[y*shape[1]+x], vec)
	}
	set(0, 0, actb) // cluster 1: L-shaped, area 3
	set(0, 1, actb)
	set(1, 1, actb)
	set(1, 3, actb)  // cluster 2: isolated pixel
	set(2, 3, gapdh) // cluster 3: adjacent to cluster 2 but a different target

	physical := tensor.PhysicalTicks{
		Y: []float64{0, 1, 2},
		X: []float64{0, 10, 20, 30},
	}
	stack, err := NewPixelStack(2, 3, shape, tensor.PixelTicks{}, physical, vectors)
	if err != nil {
		t.Fatalf("failed to build pixel stack: %v", err)
	}
	return stack
}

func testPixelOptions() PixelDecodeOptions {
	return PixelDecodeOptions{
		Metric:  MetricDistance{NormOrder: 2, DistanceThreshold: 0.5, MagnitudeThreshold: 1},
		MinArea: 1,
		MaxArea: 100,
	}
}

// TestNewPixelStackValidation verifies shape and vector-length checks.
func TestNewPixelStackValidation(t *testing.T) {
	physical := tensor.PhysicalTicks{Y: []float64{0, 1}, X: []float64{0, 1}}

	if _, err := NewPixelStack(2, 3, []int{2, 2}, tensor.PixelTicks{}, physical, make([][]float64, 3)); err == nil {
		t.Error("expected an error for a vector count mismatching the shape")
	}

	vectors := [][]float64{{1}, {1}, {1}, {1}}
	if _, err := NewPixelStack(2, 3, []int{2, 2}, tensor.PixelTicks{}, physical, vectors); err == nil {
		t.Error("expected an error for short intensity vectors")
	}

	vectors = make([][]float64, 4)
	for i := range vectors {
		vectors[i] = make([]float64, 6)
	}
	if _, err := NewPixelStack(2, 3, []int{2, 2}, tensor.PixelTicks{}, tensor.PhysicalTicks{Y: []float64{0, 1}}, vectors); err == nil {
		t.Error("expected an error for missing physical coordinates")
	}
}

// TestDecodePixelsValidation verifies that a bad area window is rejected
// before any pixels are examined.
func TestDecodePixelsValidation(t *testing.T) {
	cb := testCodebook(t)
	stack := testPixelStack(t)

	opts := testPixelOptions()
	opts.MinArea = 5
	opts.MaxArea = 2
	if _, err := DecodePixels(cb, stack, opts); err == nil {
		t.Error("expected an error when the minimum area exceeds the maximum")
	}

	opts = testPixelOptions()
	opts.MinArea = -1
	if _, err := DecodePixels(cb, stack, opts); err == nil {
		t.Error("expected an error for a negative minimum area")
	}
}

// TestDecodePixelsClusters verifies connected-component formation:
// axis-adjacent same-target pixels merge, different targets never merge,
// and background pixels stay out.
func TestDecodePixelsClusters(t *testing.T) {
	cb := testCodebook(t)
	stack := testPixelStack(t)

	result, err := DecodePixels(cb, stack, testPixelOptions())
	if err != nil {
		t.Fatalf("decoding failed: %v", err)
	}
	if result.Features.Len() != 3 {
		t.Fatalf("expected 3 clusters, got %d", result.Features.Len())
	}

	first := result.Features.Row(0)
	if first.Target != "ACTB" || first.Area != 3 || !first.PassesThresholds {
		t.Errorf("cluster 1: expected a passing ACTB cluster of area 3, got %q area=%v passes=%v",
			first.Target, first.Area, first.PassesThresholds)
	}
	if second := result.Features.Row(1); second.Target != "ACTB" || second.Area != 1 {
		t.Errorf("cluster 2: expected an ACTB singleton, got %q area=%v", second.Target, second.Area)
	}
	if third := result.Features.Row(2); third.Target != "GAPDH" || third.Area != 1 {
		t.Errorf("cluster 3: expected a GAPDH singleton, got %q area=%v", third.Target, third.Area)
	}

	// Cluster 1 covers (0,0), (0,1), (1,1) in physical coordinates.
	if math.Abs(first.Y-1.0/3) > 1e-12 || math.Abs(first.X-20.0/3) > 1e-12 {
		t.Errorf("cluster 1: expected centroid (1/3, 20/3), got (%v, %v)", first.Y, first.X)
	}
	if math.Abs(first.Radius-math.Sqrt(3/math.Pi)) > 1e-12 {
		t.Errorf("cluster 1: expected equivalent radius %v, got %v", math.Sqrt(3/math.Pi), first.Radius)
	}
}

// TestDecodePixelsAreaBounds verifies the inclusive area window: a
// cluster with area exactly at the minimum passes, one pixel fewer fails,
// and failing clusters still appear in the output.
func TestDecodePixelsAreaBounds(t *testing.T) {
	cb := testCodebook(t)
	stack := testPixelStack(t)

	opts := testPixelOptions()
	opts.MinArea = 3
	result, err := DecodePixels(cb, stack, opts)
	if err != nil {
		t.Fatalf("decoding failed: %v", err)
	}
	if result.Features.Len() != 3 {
		t.Fatalf("expected failing clusters to stay in the output, got %d rows", result.Features.Len())
	}
	if !result.Features.Row(0).PassesThresholds {
		t.Error("expected a cluster with area exactly at the minimum to pass")
	}
	if result.Features.Row(1).PassesThresholds || result.Features.Row(2).PassesThresholds {
		t.Error("expected singleton clusters below the minimum area to fail")
	}

	opts.MinArea = 4
	result, err = DecodePixels(cb, stack, opts)
	if err != nil {
		t.Fatalf("decoding failed: %v", err)
	}
	if result.Features.Passing() != 0 {
		t.Errorf("expected no passing clusters above the minimum area, got %d",
			result.Features.Passing())
	}

	opts = testPixelOptions()
	opts.MaxArea = 2
	result, err = DecodePixels(cb, stack, opts)
	if err != nil {
		t.Fatalf("decoding failed: %v", err)
	}
	if result.Features.Row(0).PassesThresholds {
		t.Error("expected a cluster above the maximum area to fail")
	}
	if !result.Features.Row(1).PassesThresholds {
		t.Error("expected a singleton within the area window to pass")
	}
}

// TestDecodePixelsLabelImage verifies that the decoded label image paints
// each cluster with its feature row index plus one and leaves background
// at zero.
func TestDecodePixelsLabelImage(t *testing.T) {
	cb := testCodebook(t)
	stack := testPixelStack(t)

	result, err := DecodePixels(cb, stack, testPixelOptions())
	if err != nil {
		t.Fatalf("decoding failed: %v", err)
	}

	arr := result.Decoded.Array()
	expected := [][]int32{
		{1, 1, 0, 0},
		{0, 1, 0, 2},
		{0, 0, 0, 3},
	}
	for y, row := range expected {
		for x, want := range row {
			if got := arr.At(y, x); got != want {
				t.Errorf("label at (%d, %d): expected %d, got %d", y, x, want, got)
			}
		}
	}

	if result.Decoded.Log().Len() != 1 {
		t.Errorf("expected one provenance entry, got %d", result.Decoded.Log().Len())
	}
}

// TestDecodePixelsDeterministic verifies that repeated decoding of the
// same stack yields identical tables.
func TestDecodePixelsDeterministic(t *testing.T) {
	cb := testCodebook(t)
	stack := testPixelStack(t)

	a, err := DecodePixels(cb, stack, testPixelOptions())
	if err != nil {
		t.Fatalf("decoding failed: %v", err)
	}
	b, err := DecodePixels(cb, stack, testPixelOptions())
	if err != nil {
		t.Fatalf("decoding failed: %v", err)
	}

	if a.Features.Len() != b.Features.Len() {
		t.Fatalf("row counts differ: %d vs %d", a.Features.Len(), b.Features.Len())
	}
	for i := 0; i < a.Features.Len(); i++ {
		if a.Features.Row(i) != b.Features.Row(i) {
			t.Errorf("row %d differs between runs: %+v vs %+v",
				i, a.Features.Row(i), b.Features.Row(i))
		}
	}
	if !a.Decoded.Array().Equal(b.Decoded.Array()) {
		t.Error("decoded label images differ between runs")
	}
}
