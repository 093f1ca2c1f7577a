package mask

import (
	"fmt"
	"sort"

	"fishdecode/pkg/tensor"
)

// RegionProperties holds the geometric descriptors of one connected
// region: pixel area, bounding box in uncropped frame coordinates
// (min inclusive, max exclusive), and centroids in both pixel and physical
// space.
type RegionProperties struct {
	Label            int
	Area             int
	BBoxMin          []int
	BBoxMax          []int
	Centroid         []float64
	PhysicalCentroid []float64
}

// Equal reports whether two property records are value-equal.
func (p *RegionProperties) Equal(other *RegionProperties) bool {
	if p.Label != other.Label || p.Area != other.Area {
		return false
	}
	if len(p.BBoxMin) != len(other.BBoxMin) {
		return false
	}
	for i := range p.BBoxMin {
		if p.BBoxMin[i] != other.BBoxMin[i] || p.BBoxMax[i] != other.BBoxMax[i] {
			return false
		}
		if p.Centroid[i] != other.Centroid[i] || p.PhysicalCentroid[i] != other.PhysicalCentroid[i] {
			return false
		}
	}
	return true
}

// regionAccum gathers the per-label statistics produced by a single pass
// over a labelled raster.
type regionAccum struct {
	label       int32
	count       int
	bboxMin     []int
	bboxMax     []int
	coordSum    []float64
	physicalSum []float64
}

func (acc *regionAccum) properties(label int, rank int) *RegionProperties {
	props := &RegionProperties{
		Label:            label,
		Area:             acc.count,
		BBoxMin:          acc.bboxMin,
		BBoxMax:          acc.bboxMax,
		Centroid:         make([]float64, rank),
		PhysicalCentroid: make([]float64, rank),
	}
	for axis := 0; axis < rank; axis++ {
		props.Centroid[axis] = acc.coordSum[axis] / float64(acc.count)
		props.PhysicalCentroid[axis] = acc.physicalSum[axis] / float64(acc.count)
	}
	return props
}

// accumulateRegions performs one pass over a labelled raster, gathering
// area, bounding box, and centroid statistics per positive label value.
// The result is ordered by ascending label.
func accumulateRegions(arr *tensor.Int32Image, physical tensor.PhysicalTicks) []*regionAccum {
	rank := arr.Rank()
	byLabel := make(map[int32]*regionAccum)
	coords := make([]int, rank)

	for flat, v := range arr.Data {
		if v <= 0 {
			continue
		}
		decompose(flat, arr.Shape, coords)
		acc, ok := byLabel[v]
		if !ok {
			acc = &regionAccum{
				label:       v,
				bboxMin:     make([]int, rank),
				bboxMax:     make([]int, rank),
				coordSum:    make([]float64, rank),
				physicalSum: make([]float64, rank),
			}
			copy(acc.bboxMin, coords)
			byLabel[v] = acc
		}
		acc.count++
		for axis := 0; axis < rank; axis++ {
			c := coords[axis]
			if c < acc.bboxMin[axis] {
				acc.bboxMin[axis] = c
			}
			if c+1 > acc.bboxMax[axis] {
				acc.bboxMax[axis] = c + 1
			}
			acc.coordSum[axis] += float64(c)
			acc.physicalSum[axis] += physical.Axis(axis)[c]
		}
	}

	accums := make([]*regionAccum, 0, len(byLabel))
	for _, acc := range byLabel {
		accums = append(accums, acc)
	}
	sort.Slice(accums, func(i, j int) bool { return accums[i].label < accums[j].label })
	return accums
}

// MaskRegionprops returns the region properties for the mask at the given
// index. Properties captured at construction are returned directly;
// otherwise a single-label raster is reconstructed at the full frame
// extent, measured once, and the result cached. Recomputation is
// deterministic, so repeated calls always return value-equal results.
func (c *BinaryMaskCollection) MaskRegionprops(index int) (*RegionProperties, error) {
	if index < 0 || index >= len(c.masks) {
		return nil, fmt.Errorf("mask index %d out of range [0, %d)", index, len(c.masks))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &c.masks[index]
	if entry.props != nil {
		return entry.props, nil
	}

	// Recreate the label image, but with just this mask.
	arr := tensor.ZerosInt32(c.FrameShape())
	fillLabel(entry.data.Mask, entry.data.Offsets, int32(index+1), arr)
	accums := accumulateRegions(arr, c.physical)
	if len(accums) == 0 {
		// an all-False mask has no measurable region
		entry.props = &RegionProperties{
			Label:            index + 1,
			BBoxMin:          make([]int, c.Rank()),
			BBoxMax:          make([]int, c.Rank()),
			Centroid:         make([]float64, c.Rank()),
			PhysicalCentroid: make([]float64, c.Rank()),
		}
		return entry.props, nil
	}
	entry.props = accums[0].properties(index+1, c.Rank())
	return entry.props, nil
}
