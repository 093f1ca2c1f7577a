// Package features provides the tabular container of decoded detections:
// one row per spot or per connected pixel cluster, with physical
// coordinates, the decoded target, the distance to the nearest codeword,
// and the threshold verdict. Tables are immutable snapshots; overlapping
// fields of view are reconciled at concatenation time.
package features

import (
	"fmt"

	"fishdecode/pkg/geometry"
)

// NoCall is the sentinel target assigned to detections whose barcode or
// nearest codeword could not be resolved. It is an output state, not an
// error; such rows stay in the table for auditing.
const NoCall = "no_call"

// Feature is one decoded detection.
type Feature struct {
	// physical coordinates; Z is zero for 2D data
	Z float64
	Y float64
	X float64

	Target           string
	Distance         float64
	PassesThresholds bool

	// detector-specific geometry
	Radius float64
	Area   float64
}

// Table is an immutable snapshot of decoded detections.
type Table struct {
	rows []Feature
}

// NewTable builds a table from a sequence of decoded detections. The rows
// are copied; the table does not perform any decoding itself.
func NewTable(rows []Feature) *Table {
	copied := make([]Feature, len(rows))
	copy(copied, rows)
	return &Table{rows: copied}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Row returns the feature at the given index.
func (t *Table) Row(i int) Feature { return t.rows[i] }

// Rows returns the underlying rows. Callers must treat them as read-only.
func (t *Table) Rows() []Feature { return t.rows }

// Passing returns the number of rows that passed all decoder thresholds.
func (t *Table) Passing() int {
	n := 0
	for _, r := range t.rows {
		if r.PassesThresholds {
			n++
		}
	}
	return n
}

// BoundingArea returns the axis-aligned rectangle spanning the physical
// X/Y coordinates of every row; ok is false for an empty table.
func (t *Table) BoundingArea() (area geometry.Area, ok bool) {
	if len(t.rows) == 0 {
		return geometry.Area{}, false
	}
	area = geometry.Area{
		MinX: t.rows[0].X, MaxX: t.rows[0].X,
		MinY: t.rows[0].Y, MaxY: t.rows[0].Y,
	}
	for _, r := range t.rows[1:] {
		if r.X < area.MinX {
			area.MinX = r.X
		}
		if r.X > area.MaxX {
			area.MaxX = r.X
		}
		if r.Y < area.MinY {
			area.MinY = r.Y
		}
		if r.Y > area.MaxY {
			area.MaxY = r.Y
		}
	}
	return area, true
}

// SelectArea returns a table holding the rows whose coordinates fall
// within the closed rectangle.
func (t *Table) SelectArea(area geometry.Area) *Table {
	var kept []Feature
	for _, r := range t.rows {
		if area.Contains(r.X, r.Y) {
			kept = append(kept, r)
		}
	}
	return &Table{rows: kept}
}

// RemoveArea returns a table without the rows strictly inside the
// rectangle. Rows on the rectangle boundary are retained, so removal is
// the open-interval complement of SelectArea.
func (t *Table) RemoveArea(area geometry.Area) *Table {
	var kept []Feature
	for _, r := range t.rows {
		inside := r.X > area.MinX && r.X < area.MaxX &&
			r.Y > area.MinY && r.Y < area.MaxY
		if !inside {
			kept = append(kept, r)
		}
	}
	return &Table{rows: kept}
}

// OverlapPolicy selects how rows in geometrically overlapping regions of
// concatenated tables are reconciled.
type OverlapPolicy int

const (
	// OverlapIgnore keeps every row from every table.
	OverlapIgnore OverlapPolicy = iota
	// OverlapTakeMax keeps, within each pairwise overlap region, the rows
	// of the later-supplied table and drops the earlier table's rows
	// strictly inside the overlap. Rows outside every overlap always
	// survive.
	OverlapTakeMax
)

// Concatenate merges tables into one. Under OverlapTakeMax the pairwise
// overlapping bounding regions are computed first and the configured
// reconciliation applied before rows are appended in table order.
func Concatenate(tables []*Table, policy OverlapPolicy) (*Table, error) {
	switch policy {
	case OverlapIgnore, OverlapTakeMax:
	default:
		return nil, fmt.Errorf("unknown overlap policy %d", policy)
	}

	pruned := make([]*Table, len(tables))
	copy(pruned, tables)

	if policy == OverlapTakeMax {
		areas := make([]geometry.Area, len(tables))
		populated := make([]bool, len(tables))
		for i, table := range tables {
			areas[i], populated[i] = table.BoundingArea()
		}
		for pair, overlap := range geometry.FindOverlaps(areas) {
			if !populated[pair.First] || !populated[pair.Second] {
				continue
			}
			// later-supplied table wins inside the overlap
			pruned[pair.First] = pruned[pair.First].RemoveArea(overlap)
		}
	}

	var rows []Feature
	for _, table := range pruned {
		rows = append(rows, table.rows...)
	}
	return &Table{rows: rows}, nil
}
