package tensor

import (
	"fmt"
)

// Axis name tables indexed by rank. Pixel axes follow the y/x (2D) and
// z/y/x (3D) convention; physical coordinate axes carry a "c" suffix.
var (
	axisNames2D  = []string{"y", "x"}
	axisNames3D  = []string{"z", "y", "x"}
	coordNames2D = []string{"yc", "xc"}
	coordNames3D = []string{"zc", "yc", "xc"}
)

// AxisName returns the pixel axis name for the given axis index at the
// given rank.
func AxisName(rank, axis int) string {
	if rank == 3 {
		return axisNames3D[axis]
	}
	return axisNames2D[axis]
}

// CoordName returns the physical coordinate name for the given axis index
// at the given rank.
func CoordName(rank, axis int) string {
	if rank == 3 {
		return coordNames3D[axis]
	}
	return coordNames2D[axis]
}

// PixelTicks carries the integer index labels for each spatial axis of an
// uncropped frame. For 2D data Z is nil; for 3D data all three axes are
// populated. Ticks are monotonic and one entry long per pixel.
type PixelTicks struct {
	Z []int `json:"z,omitempty" yaml:"z,omitempty"`
	Y []int `json:"y" yaml:"y"`
	X []int `json:"x" yaml:"x"`
}

// Rank returns 3 when a Z axis is present and 2 otherwise.
func (t PixelTicks) Rank() int {
	if t.Z != nil {
		return 3
	}
	return 2
}

// Axis returns the tick sequence for the given axis index, ordered Z,Y,X
// for 3D ticks and Y,X for 2D ticks.
func (t PixelTicks) Axis(i int) []int {
	if t.Rank() == 3 {
		switch i {
		case 0:
			return t.Z
		case 1:
			return t.Y
		}
		return t.X
	}
	if i == 0 {
		return t.Y
	}
	return t.X
}

// setAxis replaces the tick sequence for the given axis index.
func (t *PixelTicks) setAxis(rank, i int, ticks []int) {
	if rank == 3 {
		switch i {
		case 0:
			t.Z = ticks
		case 1:
			t.Y = ticks
		default:
			t.X = ticks
		}
		return
	}
	if i == 0 {
		t.Y = ticks
	} else {
		t.X = ticks
	}
}

// PhysicalTicks carries the real-valued physical coordinate of each pixel
// along each spatial axis of an uncropped frame.
type PhysicalTicks struct {
	Z []float64 `json:"zc,omitempty" yaml:"zc,omitempty"`
	Y []float64 `json:"yc" yaml:"yc"`
	X []float64 `json:"xc" yaml:"xc"`
}

// Rank returns 3 when a Z axis is present and 2 otherwise.
func (t PhysicalTicks) Rank() int {
	if t.Z != nil {
		return 3
	}
	return 2
}

// Axis returns the coordinate sequence for the given axis index, ordered
// Z,Y,X for 3D ticks and Y,X for 2D ticks.
func (t PhysicalTicks) Axis(i int) []float64 {
	if t.Rank() == 3 {
		switch i {
		case 0:
			return t.Z
		case 1:
			return t.Y
		}
		return t.X
	}
	if i == 0 {
		return t.Y
	}
	return t.X
}

// DefaultPixelTicks synthesizes 0..extent-1 tick sequences for every axis
// of the given shape.
func DefaultPixelTicks(shape []int) PixelTicks {
	var ticks PixelTicks
	for i, extent := range shape {
		seq := make([]int, extent)
		for j := range seq {
			seq[j] = j
		}
		ticks.setAxis(len(shape), i, seq)
	}
	return ticks
}

// FillMissingPixelTicks returns a copy of ticks with any axis that is
// present in shape but absent from ticks synthesized as 0..extent-1.
func FillMissingPixelTicks(shape []int, ticks PixelTicks) PixelTicks {
	out := ticks
	for i, extent := range shape {
		var present bool
		if len(shape) == 3 {
			present = []bool{ticks.Z != nil, ticks.Y != nil, ticks.X != nil}[i]
		} else {
			present = []bool{ticks.Y != nil, ticks.X != nil}[i]
		}
		if present {
			continue
		}
		seq := make([]int, extent)
		for j := range seq {
			seq[j] = j
		}
		out.setAxis(len(shape), i, seq)
	}
	return out
}

// ValidateTicks checks that the pixel and physical tick records agree with
// each other and with the raster shape: same rank as the shape, and per
// axis the tick length must equal the raster extent.
func ValidateTicks(shape []int, pixel PixelTicks, physical PhysicalTicks) error {
	rank := len(shape)
	if pixel.Rank() != rank {
		return fmt.Errorf("pixel ticks cover %d axes but the data has %d axes", pixel.Rank(), rank)
	}
	if physical.Rank() != rank {
		return fmt.Errorf("physical coordinates provided for %d axes, but the data has %d axes",
			physical.Rank(), rank)
	}
	for i, extent := range shape {
		if got := len(pixel.Axis(i)); got != extent {
			return fmt.Errorf("pixel ticks for %s have %d entries; the array extent is %d",
				AxisName(rank, i), got, extent)
		}
		if got := len(physical.Axis(i)); got != extent {
			return fmt.Errorf("physical coordinates for %s have %d entries; the array extent is %d",
				CoordName(rank, i), got, extent)
		}
	}
	return nil
}

// SliceInts returns ticks[start:end] as a fresh slice.
func SliceInts(ticks []int, start, end int) []int {
	out := make([]int, end-start)
	copy(out, ticks[start:end])
	return out
}

// SliceFloats returns ticks[start:end] as a fresh slice.
func SliceFloats(ticks []float64, start, end int) []float64 {
	out := make([]float64, end-start)
	copy(out, ticks[start:end])
	return out
}
