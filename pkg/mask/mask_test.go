package mask

import (
	"testing"

	"fishdecode/pkg/labelimage"
	"fishdecode/pkg/tensor"
)

// testLabelImage builds the canonical 5x5 example: label 1 across row 0,
// label 2 on the 2x2 block at rows 3-4 / cols 3-4 with the corner [4,4]
// reset to background.
func testLabelImage(t *testing.T) *labelimage.LabelImage {
	t.Helper()
	arr := tensor.ZerosInt32([]int{5, 5})
	for x := 0; x < 5; x++ {
		arr.Set(1, 0, x)
	}
	for y := 3; y < 5; y++ {
		for x := 3; x < 5; x++ {
			arr.Set(2, y, x)
		}
	}
	arr.Set(0, 4, 4)

	li, err := labelimage.FromArrayAndTicks(arr, tensor.PixelTicks{}, tensor.PhysicalTicks{
		Y: []float64{1.2, 2.4, 3.6, 4.8, 6.0},
		X: []float64{7.2, 8.4, 9.6, 10.8, 12},
	}, nil)
	if err != nil {
		t.Fatalf("failed to build label image: %v", err)
	}
	return li
}

// TestFromLabelImage verifies mask extraction from a label image: one mask
// per distinct positive label, cropped tight, with ticks sliced to match.
func TestFromLabelImage(t *testing.T) {
	collection, err := FromLabelImage(testLabelImage(t))
	if err != nil {
		t.Fatalf("extraction failed: %v", err)
	}

	if collection.Len() != 2 {
		t.Fatalf("expected 2 masks, got %d", collection.Len())
	}

	// Mask 0 is the 1x5 all-True row at y=0.
	region0, err := collection.Mask(0)
	if err != nil {
		t.Fatalf("mask 0: %v", err)
	}
	if !shapeEqual(region0.Array.Shape, []int{1, 5}) {
		t.Errorf("expected mask 0 shape [1 5], got %v", region0.Array.Shape)
	}
	for _, v := range region0.Array.Data {
		if !v {
			t.Error("expected mask 0 to be all True")
			break
		}
	}
	if len(region0.Pixel.Y) != 1 || region0.Pixel.Y[0] != 0 {
		t.Errorf("expected mask 0 y ticks [0], got %v", region0.Pixel.Y)
	}
	if len(region0.Pixel.X) != 5 {
		t.Errorf("expected mask 0 x ticks of length 5, got %v", region0.Pixel.X)
	}
	if region0.Physical.Y[0] != 1.2 {
		t.Errorf("expected mask 0 yc tick 1.2, got %v", region0.Physical.Y[0])
	}

	// Mask 1 is the 2x2 block at y=[3,4], x=[3,4] with [4,4] False.
	region1, err := collection.Mask(1)
	if err != nil {
		t.Fatalf("mask 1: %v", err)
	}
	if !shapeEqual(region1.Array.Shape, []int{2, 2}) {
		t.Errorf("expected mask 1 shape [2 2], got %v", region1.Array.Shape)
	}
	want := []bool{true, true, true, false}
	for i, v := range want {
		if region1.Array.Data[i] != v {
			t.Errorf("mask 1 pixel %d: expected %v, got %v", i, v, region1.Array.Data[i])
		}
	}
	if region1.Pixel.Y[0] != 3 || region1.Pixel.Y[1] != 4 {
		t.Errorf("expected mask 1 y ticks [3 4], got %v", region1.Pixel.Y)
	}
	if region1.Physical.X[0] != 10.8 || region1.Physical.X[1] != 12 {
		t.Errorf("expected mask 1 xc ticks [10.8 12], got %v", region1.Physical.X)
	}

	if _, err := collection.Mask(2); err == nil {
		t.Error("expected an index error for mask 2")
	}
}

// TestUncroppedMaskInverse verifies that uncropping a mask and re-cropping
// it to its tight bounding box reproduces the original crop exactly.
func TestUncroppedMaskInverse(t *testing.T) {
	collection, err := FromLabelImage(testLabelImage(t))
	if err != nil {
		t.Fatalf("extraction failed: %v", err)
	}

	for i := 0; i < collection.Len(); i++ {
		cropped, err := collection.Mask(i)
		if err != nil {
			t.Fatalf("mask %d: %v", i, err)
		}
		uncropped, err := collection.UncroppedMask(i)
		if err != nil {
			t.Fatalf("uncropped mask %d: %v", i, err)
		}
		if !shapeEqual(uncropped.Array.Shape, collection.FrameShape()) {
			t.Errorf("mask %d: expected uncropped shape %v, got %v",
				i, collection.FrameShape(), uncropped.Array.Shape)
		}

		offsets, cropShape := tightBounds(uncropped.Array)
		recrop := tensor.ZerosBool(cropShape)
		copyCrop(uncropped.Array, offsets, recrop)

		if !recrop.Equal(cropped.Array) {
			t.Errorf("mask %d: re-cropped mask differs from original crop", i)
		}
		for axis := range offsets {
			if offsets[axis] != cropped.Offsets[axis] {
				t.Errorf("mask %d axis %d: expected offset %d, got %d",
					i, axis, cropped.Offsets[axis], offsets[axis])
			}
		}
	}
}

// TestToLabelImageRoundTrip verifies that rebuilding a label image from a
// collection reproduces the original raster.
func TestToLabelImageRoundTrip(t *testing.T) {
	li := testLabelImage(t)
	collection, err := FromLabelImage(li)
	if err != nil {
		t.Fatalf("extraction failed: %v", err)
	}

	rebuilt, err := collection.ToLabelImage()
	if err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}
	if !rebuilt.Array().Equal(li.Array()) {
		t.Error("rebuilt label image differs from original")
	}
}

// TestFromBinaryArraysAndTicks verifies independent tight cropping of raw
// boolean arrays, including the all-False case.
func TestFromBinaryArraysAndTicks(t *testing.T) {
	a := tensor.ZerosBool([]int{4, 4})
	a.Set(true, 1, 1)
	a.Set(true, 1, 2)
	a.Set(true, 2, 1)

	empty := tensor.ZerosBool([]int{4, 4})

	physical := tensor.PhysicalTicks{
		Y: []float64{0, 1, 2, 3},
		X: []float64{0, 1, 2, 3},
	}

	collection, err := FromBinaryArraysAndTicks(
		[]*tensor.BoolImage{a, empty}, tensor.PixelTicks{}, physical, nil)
	if err != nil {
		t.Fatalf("construction failed: %v", err)
	}

	view, err := collection.Mask(0)
	if err != nil {
		t.Fatalf("mask 0: %v", err)
	}
	if !shapeEqual(view.Array.Shape, []int{2, 2}) {
		t.Errorf("expected mask 0 cropped to [2 2], got %v", view.Array.Shape)
	}
	if view.Offsets[0] != 1 || view.Offsets[1] != 1 {
		t.Errorf("expected mask 0 offsets [1 1], got %v", view.Offsets)
	}

	// The all-False mask crops to zero extent on every axis.
	view, err = collection.Mask(1)
	if err != nil {
		t.Fatalf("mask 1: %v", err)
	}
	if !shapeEqual(view.Array.Shape, []int{0, 0}) {
		t.Errorf("expected mask 1 cropped to [0 0], got %v", view.Array.Shape)
	}
}

// TestFromBinaryArraysValidation verifies shape and tick validation
// failures.
func TestFromBinaryArraysValidation(t *testing.T) {
	a := tensor.ZerosBool([]int{4, 4})
	b := tensor.ZerosBool([]int{3, 4})

	physical := tensor.PhysicalTicks{
		Y: []float64{0, 1, 2, 3},
		X: []float64{0, 1, 2, 3},
	}

	if _, err := FromBinaryArraysAndTicks(
		[]*tensor.BoolImage{a, b}, tensor.PixelTicks{}, physical, nil); err == nil {
		t.Error("expected an error for mismatched mask shapes")
	}

	short := tensor.PhysicalTicks{
		Y: []float64{0, 1, 2},
		X: []float64{0, 1, 2, 3},
	}
	if _, err := FromBinaryArraysAndTicks(
		[]*tensor.BoolImage{a}, tensor.PixelTicks{}, short, nil); err == nil {
		t.Error("expected an error for mismatched physical tick length")
	}

	missing := tensor.PhysicalTicks{
		X: []float64{0, 1, 2, 3},
	}
	if _, err := FromBinaryArraysAndTicks(
		[]*tensor.BoolImage{a}, tensor.PixelTicks{}, missing, nil); err == nil {
		t.Error("expected an error for missing yc coordinates")
	}
}

// TestMaskRegionprops verifies the lazily computed region properties and
// that cached and recomputed results agree.
func TestMaskRegionprops(t *testing.T) {
	collection, err := FromLabelImage(testLabelImage(t))
	if err != nil {
		t.Fatalf("extraction failed: %v", err)
	}

	props0, err := collection.MaskRegionprops(0)
	if err != nil {
		t.Fatalf("regionprops 0: %v", err)
	}
	if props0.Area != 5 {
		t.Errorf("expected mask 0 area 5, got %d", props0.Area)
	}
	if props0.Centroid[0] != 0 || props0.Centroid[1] != 2 {
		t.Errorf("expected mask 0 centroid [0 2], got %v", props0.Centroid)
	}
	if props0.PhysicalCentroid[0] != 1.2 {
		t.Errorf("expected mask 0 physical y centroid 1.2, got %v", props0.PhysicalCentroid[0])
	}

	props1, err := collection.MaskRegionprops(1)
	if err != nil {
		t.Fatalf("regionprops 1: %v", err)
	}
	if props1.Area != 3 {
		t.Errorf("expected mask 1 area 3, got %d", props1.Area)
	}
	if props1.BBoxMin[0] != 3 || props1.BBoxMax[0] != 5 {
		t.Errorf("expected mask 1 y bbox [3,5), got [%d,%d)", props1.BBoxMin[0], props1.BBoxMax[0])
	}

	// Repeated calls return value-equal results.
	again, err := collection.MaskRegionprops(1)
	if err != nil {
		t.Fatalf("regionprops 1 (repeat): %v", err)
	}
	if !props1.Equal(again) {
		t.Error("repeated regionprops call returned a different result")
	}

	// A collection built from raw arrays has no precomputed properties;
	// the lazy path must agree with the extraction-pass path.
	rebuilt, err := collection.ToLabelImage()
	if err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}
	var arrays []*tensor.BoolImage
	for i := 0; i < collection.Len(); i++ {
		view, err := collection.UncroppedMask(i)
		if err != nil {
			t.Fatalf("uncropped mask %d: %v", i, err)
		}
		arrays = append(arrays, view.Array)
	}
	lazy, err := FromBinaryArraysAndTicks(arrays, rebuilt.PixelTicks(), rebuilt.PhysicalTicks(), nil)
	if err != nil {
		t.Fatalf("lazy collection: %v", err)
	}
	for i := 0; i < lazy.Len(); i++ {
		eager, err := collection.MaskRegionprops(i)
		if err != nil {
			t.Fatalf("eager regionprops %d: %v", i, err)
		}
		recomputed, err := lazy.MaskRegionprops(i)
		if err != nil {
			t.Fatalf("lazy regionprops %d: %v", i, err)
		}
		if !eager.Equal(recomputed) {
			t.Errorf("mask %d: lazy regionprops %+v differ from extraction-pass %+v",
				i, recomputed, eager)
		}
	}
}
