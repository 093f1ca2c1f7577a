// Package labelimage provides a typed wrapper around an integer-labelled
// segmentation raster together with its pixel and physical coordinate
// ticks and a provenance log. Label 0 is background; every positive value
// identifies one region.
package labelimage

import (
	"fmt"
	"sort"

	"fishdecode/pkg/provenance"
	"fishdecode/pkg/tensor"
)

// LabelImage is an immutable labelled raster with per-axis coordinate
// ticks. The only mutation permitted after construction is appending
// provenance log entries.
type LabelImage struct {
	arr      *tensor.Int32Image
	pixel    tensor.PixelTicks
	physical tensor.PhysicalTicks
	log      *provenance.Log
}

// FromArrayAndTicks constructs a LabelImage from a labelled raster and its
// coordinate ticks, validating everything once.
//
// Pixel ticks may omit axes; omitted axes are synthesized as 0..extent-1.
// Physical ticks are required for every axis present in the raster, and
// every tick sequence must match the raster extent along its axis.
func FromArrayAndTicks(
	arr *tensor.Int32Image,
	pixel tensor.PixelTicks,
	physical tensor.PhysicalTicks,
	log *provenance.Log,
) (*LabelImage, error) {
	if arr == nil {
		return nil, fmt.Errorf("label array is required")
	}
	rank := arr.Rank()

	for i := 0; i < rank; i++ {
		if physicalAxisMissing(rank, i, physical) {
			return nil, fmt.Errorf("missing physical coordinates for %s", tensor.CoordName(rank, i))
		}
	}
	if physical.Rank() != rank {
		return nil, fmt.Errorf("physical coordinates provided for %d axes, but the data has %d axes",
			physical.Rank(), rank)
	}

	pixel = tensor.FillMissingPixelTicks(arr.Shape, pixel)
	if err := tensor.ValidateTicks(arr.Shape, pixel, physical); err != nil {
		return nil, err
	}

	return &LabelImage{
		arr:      arr,
		pixel:    pixel,
		physical: physical,
		log:      log.Clone(),
	}, nil
}

func physicalAxisMissing(rank, axis int, physical tensor.PhysicalTicks) bool {
	if rank == 3 {
		switch axis {
		case 0:
			return physical.Z == nil
		case 1:
			return physical.Y == nil
		}
		return physical.X == nil
	}
	if axis == 0 {
		return physical.Y == nil
	}
	return physical.X == nil
}

// Array returns the underlying labelled raster. Callers must treat it as
// read-only.
func (li *LabelImage) Array() *tensor.Int32Image { return li.arr }

// Shape returns the raster extents, ordered Y,X or Z,Y,X.
func (li *LabelImage) Shape() []int { return li.arr.Shape }

// Rank returns the number of spatial axes.
func (li *LabelImage) Rank() int { return li.arr.Rank() }

// PixelTicks returns the per-axis pixel index labels of the frame.
func (li *LabelImage) PixelTicks() tensor.PixelTicks { return li.pixel }

// PhysicalTicks returns the per-axis physical coordinates of the frame.
func (li *LabelImage) PhysicalTicks() tensor.PhysicalTicks { return li.physical }

// Log returns the provenance log. External callers append entries here;
// the label image never computes entries itself.
func (li *LabelImage) Log() *provenance.Log { return li.log }

// Labels returns the distinct positive label values present in the
// raster, in ascending order.
func (li *LabelImage) Labels() []int32 {
	seen := make(map[int32]struct{})
	for _, v := range li.arr.Data {
		if v > 0 {
			seen[v] = struct{}{}
		}
	}
	labels := make([]int32, 0, len(seen))
	for v := range seen {
		labels = append(labels, v)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	return labels
}
