// Package mask implements the binary mask collection: one cropped boolean
// mask per connected region of a label image, each retaining its offset
// into the uncropped frame so the full-size mask can be reconstructed, plus
// lazily computed region properties.
package mask

import (
	"fmt"
	"sync"

	"fishdecode/pkg/labelimage"
	"fishdecode/pkg/provenance"
	"fishdecode/pkg/tensor"
)

// MaskData is the internal unit of a collection: a boolean mask cropped to
// its tight bounding box and the per-axis offsets of that crop within the
// uncropped frame.
type MaskData struct {
	Mask    *tensor.BoolImage
	Offsets []int
}

type maskEntry struct {
	data  MaskData
	props *RegionProperties
}

// BinaryMaskCollection owns a dense, ordered sequence of masks together
// with the pixel and physical ticks of the shared uncropped frame. The
// collection is immutable after construction; the only internal mutability
// is the per-mask region-properties cache.
type BinaryMaskCollection struct {
	masks    []maskEntry
	pixel    tensor.PixelTicks
	physical tensor.PhysicalTicks
	log      *provenance.Log

	// guards lazy population of the region-properties cache; recomputation
	// is deterministic, so racing computations agree.
	mu sync.Mutex
}

// newCollection validates ticks and masks once and assembles a collection.
func newCollection(
	pixel tensor.PixelTicks,
	physical tensor.PhysicalTicks,
	masks []maskEntry,
	log *provenance.Log,
) (*BinaryMaskCollection, error) {
	rank := pixel.Rank()
	if physical.Rank() != rank {
		return nil, fmt.Errorf("pixel ticks should have the same cardinality as physical ticks: %d != %d",
			rank, physical.Rank())
	}
	frame := make([]int, rank)
	for i := 0; i < rank; i++ {
		if len(pixel.Axis(i)) != len(physical.Axis(i)) {
			return nil, fmt.Errorf("pixel ticks for %s do not have the same cardinality as physical coordinate ticks for %s",
				tensor.AxisName(rank, i), tensor.CoordName(rank, i))
		}
		frame[i] = len(pixel.Axis(i))
	}

	for ix, entry := range masks {
		m := entry.data
		if m.Mask == nil {
			return nil, fmt.Errorf("mask %d has no data", ix)
		}
		if m.Mask.Rank() != rank {
			return nil, fmt.Errorf("expected %d dimensions for mask %d; got %d", rank, ix, m.Mask.Rank())
		}
		if len(m.Offsets) != rank {
			return nil, fmt.Errorf("mask %d has %d offsets for %d axes", ix, len(m.Offsets), rank)
		}
		for axis := 0; axis < rank; axis++ {
			if m.Offsets[axis] < 0 || m.Offsets[axis]+m.Mask.Shape[axis] > frame[axis] {
				return nil, fmt.Errorf("mask %d exceeds the frame on axis %s: offset %d + extent %d > %d",
					ix, tensor.AxisName(rank, axis), m.Offsets[axis], m.Mask.Shape[axis], frame[axis])
			}
		}
	}

	return &BinaryMaskCollection{
		masks:    masks,
		pixel:    pixel,
		physical: physical,
		log:      log.Clone(),
	}, nil
}

// FromLabelImage derives one cropped mask per distinct positive label
// value in the label image, ordered by ascending label. The label image
// already encodes component identity, so this is a single extraction pass,
// not a re-segmentation; region properties are captured during the pass.
func FromLabelImage(li *labelimage.LabelImage) (*BinaryMaskCollection, error) {
	arr := li.Array()
	rank := arr.Rank()
	accums := accumulateRegions(arr, li.PhysicalTicks())

	masks := make([]maskEntry, 0, len(accums))
	for ix, acc := range accums {
		cropShape := make([]int, rank)
		for axis := 0; axis < rank; axis++ {
			cropShape[axis] = acc.bboxMax[axis] - acc.bboxMin[axis]
		}
		crop := tensor.ZerosBool(cropShape)
		copyRegion(arr, acc.label, acc.bboxMin, crop)

		props := acc.properties(ix+1, rank)
		masks = append(masks, maskEntry{
			data: MaskData{
				Mask:    crop,
				Offsets: acc.bboxMin,
			},
			props: props,
		})
	}

	return newCollection(li.PixelTicks(), li.PhysicalTicks(), masks, li.Log())
}

// FromBinaryArraysAndTicks builds a collection from raw boolean arrays.
// Every array must share an identical shape matching the tick lengths.
// Each array is cropped independently to its tight bounding box; an
// all-False array crops to a zero-extent region on every axis. Pixel ticks
// omitted for a present axis are synthesized as 0..extent-1. Region
// properties are computed lazily on first access.
func FromBinaryArraysAndTicks(
	arrays []*tensor.BoolImage,
	pixel tensor.PixelTicks,
	physical tensor.PhysicalTicks,
	log *provenance.Log,
) (*BinaryMaskCollection, error) {
	if len(arrays) == 0 {
		return nil, fmt.Errorf("at least one mask array is required")
	}
	for ix, arr := range arrays {
		if arr == nil {
			return nil, fmt.Errorf("mask array %d is nil", ix)
		}
	}

	shape := arrays[0].Shape
	for ix, arr := range arrays[1:] {
		if len(arr.Shape) != len(shape) {
			return nil, fmt.Errorf("all masks must be identically sized: mask %d has rank %d, mask 0 has rank %d",
				ix+1, len(arr.Shape), len(shape))
		}
		for axis := range shape {
			if arr.Shape[axis] != shape[axis] {
				return nil, fmt.Errorf("all masks must be identically sized: mask %d has shape %v, mask 0 has shape %v",
					ix+1, arr.Shape, shape)
			}
		}
	}

	rank := len(shape)
	if physical.Rank() != rank {
		return nil, fmt.Errorf("physical coordinates provided for %d axes, but the data has %d axes",
			physical.Rank(), rank)
	}
	for axis := 0; axis < rank; axis++ {
		if len(physical.Axis(axis)) != shape[axis] {
			return nil, fmt.Errorf("the physical coordinates for %s have %d entries; the array extent is %d",
				tensor.CoordName(rank, axis), len(physical.Axis(axis)), shape[axis])
		}
	}
	pixel = tensor.FillMissingPixelTicks(shape, pixel)

	masks := make([]maskEntry, 0, len(arrays))
	for _, arr := range arrays {
		offsets, cropShape := tightBounds(arr)
		crop := tensor.ZerosBool(cropShape)
		copyCrop(arr, offsets, crop)
		masks = append(masks, maskEntry{
			data: MaskData{Mask: crop, Offsets: offsets},
		})
	}

	return newCollection(pixel, physical, masks, log)
}

// Len returns the number of masks in the collection.
func (c *BinaryMaskCollection) Len() int { return len(c.masks) }

// PixelTicks returns the pixel ticks of the uncropped frame.
func (c *BinaryMaskCollection) PixelTicks() tensor.PixelTicks { return c.pixel }

// PhysicalTicks returns the physical ticks of the uncropped frame.
func (c *BinaryMaskCollection) PhysicalTicks() tensor.PhysicalTicks { return c.physical }

// Log returns the provenance log carried by the collection.
func (c *BinaryMaskCollection) Log() *provenance.Log { return c.log }

// Rank returns the number of spatial axes of the frame.
func (c *BinaryMaskCollection) Rank() int { return c.pixel.Rank() }

// FrameShape returns the extents of the uncropped frame.
func (c *BinaryMaskCollection) FrameShape() []int {
	rank := c.Rank()
	shape := make([]int, rank)
	for axis := 0; axis < rank; axis++ {
		shape[axis] = len(c.pixel.Axis(axis))
	}
	return shape
}

// MaskView is a cropped mask materialized with its coordinate ticks sliced
// to the mask's offset and extent.
type MaskView struct {
	Index    int
	Array    *tensor.BoolImage
	Offsets  []int
	Pixel    tensor.PixelTicks
	Physical tensor.PhysicalTicks
}

// Mask returns the cropped mask at the given index with pixel and physical
// ticks sliced to its offset and extent.
func (c *BinaryMaskCollection) Mask(index int) (MaskView, error) {
	if index < 0 || index >= len(c.masks) {
		return MaskView{}, fmt.Errorf("mask index %d out of range [0, %d)", index, len(c.masks))
	}
	data := c.masks[index].data
	rank := c.Rank()

	var pixel tensor.PixelTicks
	var physical tensor.PhysicalTicks
	for axis := 0; axis < rank; axis++ {
		start := data.Offsets[axis]
		end := start + data.Mask.Shape[axis]
		setPixelAxis(&pixel, rank, axis, tensor.SliceInts(c.pixel.Axis(axis), start, end))
		setPhysicalAxis(&physical, rank, axis, tensor.SliceFloats(c.physical.Axis(axis), start, end))
	}

	return MaskView{
		Index:    index,
		Array:    data.Mask,
		Offsets:  data.Offsets,
		Pixel:    pixel,
		Physical: physical,
	}, nil
}

// UncroppedMask reconstitutes the mask at the full frame extent by filling
// the cropped region into a False-initialized array at the recorded
// offset. When the crop already spans the frame the cropped array is
// returned directly.
func (c *BinaryMaskCollection) UncroppedMask(index int) (MaskView, error) {
	if index < 0 || index >= len(c.masks) {
		return MaskView{}, fmt.Errorf("mask index %d out of range [0, %d)", index, len(c.masks))
	}
	data := c.masks[index].data
	frame := c.FrameShape()

	full := data.Mask
	if !shapeEqual(data.Mask.Shape, frame) {
		full = tensor.ZerosBool(frame)
		fillBool(data.Mask, data.Offsets, full)
	}

	return MaskView{
		Index:    index,
		Array:    full,
		Offsets:  make([]int, c.Rank()),
		Pixel:    c.pixel,
		Physical: c.physical,
	}, nil
}

// Masks calls fn for every mask in index order, stopping at the first
// error.
func (c *BinaryMaskCollection) Masks(fn func(MaskView) error) error {
	for i := range c.masks {
		view, err := c.Mask(i)
		if err != nil {
			return err
		}
		if err := fn(view); err != nil {
			return err
		}
	}
	return nil
}

// ToLabelImage rebuilds a combined labelled raster sized to the full
// frame, painting mask i with label i+1 in ascending index order. If masks
// overlap, the highest index wins at each pixel.
func (c *BinaryMaskCollection) ToLabelImage() (*labelimage.LabelImage, error) {
	arr := tensor.ZerosInt32(c.FrameShape())
	for ix, entry := range c.masks {
		fillLabel(entry.data.Mask, entry.data.Offsets, int32(ix+1), arr)
	}
	return labelimage.FromArrayAndTicks(arr, c.pixel, c.physical, c.log)
}

// tightBounds returns the per-axis offsets and shape of the minimal region
// spanning all True pixels of the array. An axis with no True pixels
// yields offset 0 and extent 0.
func tightBounds(arr *tensor.BoolImage) (offsets, shape []int) {
	rank := arr.Rank()
	offsets = make([]int, rank)
	shape = make([]int, rank)

	lo := make([]int, rank)
	hi := make([]int, rank)
	for axis := 0; axis < rank; axis++ {
		lo[axis] = -1
	}

	coords := make([]int, rank)
	for flat, v := range arr.Data {
		if !v {
			continue
		}
		decompose(flat, arr.Shape, coords)
		for axis := 0; axis < rank; axis++ {
			if lo[axis] == -1 || coords[axis] < lo[axis] {
				lo[axis] = coords[axis]
			}
			if coords[axis]+1 > hi[axis] {
				hi[axis] = coords[axis] + 1
			}
		}
	}

	for axis := 0; axis < rank; axis++ {
		if lo[axis] == -1 {
			continue // all-False: zero extent at offset 0
		}
		offsets[axis] = lo[axis]
		shape[axis] = hi[axis] - lo[axis]
	}
	return offsets, shape
}

// decompose converts a flat row-major index into per-axis coordinates.
func decompose(flat int, shape, coords []int) {
	for axis := len(shape) - 1; axis >= 0; axis-- {
		coords[axis] = flat % shape[axis]
		flat /= shape[axis]
	}
}

// copyCrop copies the region of src starting at offsets into dst, which
// has the crop's shape.
func copyCrop(src *tensor.BoolImage, offsets []int, dst *tensor.BoolImage) {
	coords := make([]int, dst.Rank())
	srcCoords := make([]int, dst.Rank())
	for flat := range dst.Data {
		decompose(flat, dst.Shape, coords)
		for axis := range coords {
			srcCoords[axis] = coords[axis] + offsets[axis]
		}
		dst.Data[flat] = src.Data[tensor.Offset(src.Shape, srcCoords)]
	}
}

// copyRegion copies the pixels of src equal to label, within the bounding
// box starting at offsets, into the cropped boolean dst.
func copyRegion(src *tensor.Int32Image, label int32, offsets []int, dst *tensor.BoolImage) {
	coords := make([]int, dst.Rank())
	srcCoords := make([]int, dst.Rank())
	for flat := range dst.Data {
		decompose(flat, dst.Shape, coords)
		for axis := range coords {
			srcCoords[axis] = coords[axis] + offsets[axis]
		}
		dst.Data[flat] = src.Data[tensor.Offset(src.Shape, srcCoords)] == label
	}
}

// fillBool paints the True pixels of the cropped mask into dst at the
// given offsets.
func fillBool(crop *tensor.BoolImage, offsets []int, dst *tensor.BoolImage) {
	coords := make([]int, crop.Rank())
	dstCoords := make([]int, crop.Rank())
	for flat, v := range crop.Data {
		if !v {
			continue
		}
		decompose(flat, crop.Shape, coords)
		for axis := range coords {
			dstCoords[axis] = coords[axis] + offsets[axis]
		}
		dst.Data[tensor.Offset(dst.Shape, dstCoords)] = true
	}
}

// fillLabel paints the True pixels of the cropped mask into dst at the
// given offsets using the given label value.
func fillLabel(crop *tensor.BoolImage, offsets []int, label int32, dst *tensor.Int32Image) {
	coords := make([]int, crop.Rank())
	dstCoords := make([]int, crop.Rank())
	for flat, v := range crop.Data {
		if !v {
			continue
		}
		decompose(flat, crop.Shape, coords)
		for axis := range coords {
			dstCoords[axis] = coords[axis] + offsets[axis]
		}
		dst.Data[tensor.Offset(dst.Shape, dstCoords)] = label
	}
}

func shapeEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func setPixelAxis(t *tensor.PixelTicks, rank, axis int, ticks []int) {
	if rank == 3 {
		switch axis {
		case 0:
			t.Z = ticks
		case 1:
			t.Y = ticks
		default:
			t.X = ticks
		}
		return
	}
	if axis == 0 {
		t.Y = ticks
	} else {
		t.X = ticks
	}
}

func setPhysicalAxis(t *tensor.PhysicalTicks, rank, axis int, ticks []float64) {
	if rank == 3 {
		switch axis {
		case 0:
			t.Z = ticks
		case 1:
			t.Y = ticks
		default:
			t.X = ticks
		}
		return
	}
	if axis == 0 {
		t.Y = ticks
	} else {
		t.X = ticks
	}
}
