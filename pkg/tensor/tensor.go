// Package tensor provides the dense raster containers shared by the
// decoding and morphology packages. Rasters are stored flat in row-major
// order with an explicit shape, following the Y,X axis ordering for 2D
// data and Z,Y,X for 3D data.
package tensor

import (
	"fmt"
)

// MinRank and MaxRank bound the dimensionality accepted for rasters.
// Imaging data is either a single plane (Y,X) or a volume (Z,Y,X).
const (
	MinRank = 2
	MaxRank = 3
)

// validateShape checks that a shape has an acceptable rank and only
// positive extents. A zero extent is permitted so that an empty crop of an
// all-False mask can still be represented.
func validateShape(shape []int) error {
	if len(shape) < MinRank || len(shape) > MaxRank {
		return fmt.Errorf("expected %d or %d dimensions; got %d", MinRank, MaxRank, len(shape))
	}
	for i, extent := range shape {
		if extent < 0 {
			return fmt.Errorf("axis %s has negative extent %d", AxisName(len(shape), i), extent)
		}
	}
	return nil
}

// Size returns the number of elements implied by a shape.
func Size(shape []int) int {
	n := 1
	for _, extent := range shape {
		n *= extent
	}
	return n
}

// Offset converts per-axis coordinates into a flat row-major index.
func Offset(shape, coords []int) int {
	idx := 0
	for i, c := range coords {
		idx = idx*shape[i] + c
	}
	return idx
}

// Int32Image is a dense integer-labelled raster. Label 0 is background;
// positive values identify regions.
type Int32Image struct {
	Data  []int32
	Shape []int
}

// NewInt32Image wraps existing label data in an Int32Image, validating the
// rank and that the data length matches the shape.
func NewInt32Image(data []int32, shape []int) (*Int32Image, error) {
	if err := validateShape(shape); err != nil {
		return nil, err
	}
	if len(data) != Size(shape) {
		return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)",
			len(data), shape, Size(shape))
	}
	return &Int32Image{Data: data, Shape: shape}, nil
}

// ZerosInt32 allocates a zero-filled label raster of the given shape.
func ZerosInt32(shape []int) *Int32Image {
	return &Int32Image{Data: make([]int32, Size(shape)), Shape: shape}
}

// Rank returns the number of axes.
func (im *Int32Image) Rank() int { return len(im.Shape) }

// At returns the label at the given per-axis coordinates.
func (im *Int32Image) At(coords ...int) int32 {
	return im.Data[Offset(im.Shape, coords)]
}

// Set writes the label at the given per-axis coordinates.
func (im *Int32Image) Set(v int32, coords ...int) {
	im.Data[Offset(im.Shape, coords)] = v
}

// Clone returns a deep copy of the raster.
func (im *Int32Image) Clone() *Int32Image {
	data := make([]int32, len(im.Data))
	copy(data, im.Data)
	shape := make([]int, len(im.Shape))
	copy(shape, im.Shape)
	return &Int32Image{Data: data, Shape: shape}
}

// Equal reports whether two label rasters have identical shape and content.
func (im *Int32Image) Equal(other *Int32Image) bool {
	if len(im.Shape) != len(other.Shape) {
		return false
	}
	for i := range im.Shape {
		if im.Shape[i] != other.Shape[i] {
			return false
		}
	}
	for i := range im.Data {
		if im.Data[i] != other.Data[i] {
			return false
		}
	}
	return true
}

// BoolImage is a dense binary raster used for region masks.
type BoolImage struct {
	Data  []bool
	Shape []int
}

// NewBoolImage wraps existing binary data in a BoolImage, validating the
// rank and that the data length matches the shape.
func NewBoolImage(data []bool, shape []int) (*BoolImage, error) {
	if err := validateShape(shape); err != nil {
		return nil, err
	}
	if len(data) != Size(shape) {
		return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)",
			len(data), shape, Size(shape))
	}
	return &BoolImage{Data: data, Shape: shape}, nil
}

// ZerosBool allocates a False-filled binary raster of the given shape.
func ZerosBool(shape []int) *BoolImage {
	return &BoolImage{Data: make([]bool, Size(shape)), Shape: shape}
}

// Rank returns the number of axes.
func (im *BoolImage) Rank() int { return len(im.Shape) }

// At returns the value at the given per-axis coordinates.
func (im *BoolImage) At(coords ...int) bool {
	return im.Data[Offset(im.Shape, coords)]
}

// Set writes the value at the given per-axis coordinates.
func (im *BoolImage) Set(v bool, coords ...int) {
	im.Data[Offset(im.Shape, coords)] = v
}

// Clone returns a deep copy of the raster.
func (im *BoolImage) Clone() *BoolImage {
	data := make([]bool, len(im.Data))
	copy(data, im.Data)
	shape := make([]int, len(im.Shape))
	copy(shape, im.Shape)
	return &BoolImage{Data: data, Shape: shape}
}

// Equal reports whether two binary rasters have identical shape and content.
func (im *BoolImage) Equal(other *BoolImage) bool {
	if len(im.Shape) != len(other.Shape) {
		return false
	}
	for i := range im.Shape {
		if im.Shape[i] != other.Shape[i] {
			return false
		}
	}
	for i := range im.Data {
		if im.Data[i] != other.Data[i] {
			return false
		}
	}
	return true
}

// CountTrue returns the number of True pixels in the raster.
func (im *BoolImage) CountTrue() int {
	n := 0
	for _, v := range im.Data {
		if v {
			n++
		}
	}
	return n
}
