// Package assign joins decoded feature rows to the segmented regions of a
// label image, producing a per-feature cell label. A feature whose
// physical position lands on background keeps the zero label.
package assign

import (
	"fmt"
	"sort"

	"fishdecode/pkg/features"
	"fishdecode/pkg/labelimage"
)

// Background is the cell label of a feature that falls outside every
// segmented region.
const Background int32 = 0

// Cells resolves each feature row of the table to the label of the region
// containing its physical position. Positions are snapped to the nearest
// coordinate tick along each axis; the tick sequences must be ascending.
// The returned slice is parallel to the table rows.
func Cells(li *labelimage.LabelImage, table *features.Table) ([]int32, error) {
	rank := li.Rank()
	physical := li.PhysicalTicks()
	for axis := 0; axis < rank; axis++ {
		ticks := physical.Axis(axis)
		if !sort.Float64sAreSorted(ticks) {
			return nil, fmt.Errorf("physical coordinates along axis %d are not ascending", axis)
		}
	}

	arr := li.Array()
	cells := make([]int32, table.Len())
	coords := make([]int, rank)
	for i := 0; i < table.Len(); i++ {
		row := table.Row(i)
		position := [3]float64{row.Z, row.Y, row.X}
		for axis := 0; axis < rank; axis++ {
			coords[axis] = nearestTick(physical.Axis(axis), position[3-rank+axis])
		}
		cells[i] = arr.At(coords...)
	}
	return cells, nil
}

// CountsPerCell tallies passing feature rows by target within each cell.
// Background hits and failing rows are left out; the outer map is keyed by
// cell label, the inner by target name.
func CountsPerCell(li *labelimage.LabelImage, table *features.Table) (map[int32]map[string]int, error) {
	cells, err := Cells(li, table)
	if err != nil {
		return nil, err
	}

	counts := make(map[int32]map[string]int)
	for i, cell := range cells {
		row := table.Row(i)
		if cell == Background || !row.PassesThresholds || row.Target == features.NoCall {
			continue
		}
		perTarget, ok := counts[cell]
		if !ok {
			perTarget = make(map[string]int)
			counts[cell] = perTarget
		}
		perTarget[row.Target]++
	}
	return counts, nil
}

// nearestTick returns the index of the tick closest to v, clamped to the
// sequence ends.
func nearestTick(ticks []float64, v float64) int {
	i := sort.SearchFloat64s(ticks, v)
	if i == 0 {
		return 0
	}
	if i == len(ticks) {
		return len(ticks) - 1
	}
	if v-ticks[i-1] <= ticks[i]-v {
		return i - 1
	}
	return i
}
