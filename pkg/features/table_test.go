package features

import (
	"testing"

	"fishdecode/pkg/geometry"
)

// diagonalTable builds a table of n rows whose x and y coordinates are
// evenly spaced over [min, max] along the diagonal.
func diagonalTable(min, max float64, n int) *Table {
	rows := make([]Feature, n)
	step := (max - min) / float64(n-1)
	for i := range rows {
		v := min + float64(i)*step
		rows[i] = Feature{X: v, Y: v, Target: "ACTB", PassesThresholds: true}
	}
	return NewTable(rows)
}

// gridTable builds a table of n rows spanning [minX,maxX] x [minY,maxY]
// along matched linear ramps.
func gridTable(minX, maxX, minY, maxY float64, n int) *Table {
	rows := make([]Feature, n)
	stepX := (maxX - minX) / float64(n-1)
	stepY := (maxY - minY) / float64(n-1)
	for i := range rows {
		rows[i] = Feature{
			X:                minX + float64(i)*stepX,
			Y:                minY + float64(i)*stepY,
			Target:           "GAPDH",
			PassesThresholds: true,
		}
	}
	return NewTable(rows)
}

// TestBoundingArea verifies the bounding rectangle derived from row
// coordinates.
func TestBoundingArea(t *testing.T) {
	table := NewTable([]Feature{
		{X: 1, Y: 5},
		{X: -2, Y: 3},
		{X: 4, Y: 4},
	})
	area, ok := table.BoundingArea()
	if !ok {
		t.Fatal("expected a bounding area for a populated table")
	}
	want := geometry.Area{MinX: -2, MaxX: 4, MinY: 3, MaxY: 5}
	if area != want {
		t.Errorf("expected bounding area %v, got %v", want, area)
	}

	if _, ok := NewTable(nil).BoundingArea(); ok {
		t.Error("expected no bounding area for an empty table")
	}
}

// TestSelectRemoveArea verifies the closed-interval selection and the
// open-interval removal around a rectangle.
func TestSelectRemoveArea(t *testing.T) {
	table := diagonalTable(0, 2, 10)
	area := geometry.Area{MinX: 1, MaxX: 2, MinY: 1, MaxY: 3}

	selected := table.SelectArea(area)
	for _, r := range selected.Rows() {
		if r.X < 1 || r.X > 2 {
			t.Errorf("selected row at x=%v outside [1,2]", r.X)
		}
	}

	removed := table.RemoveArea(area)
	for _, r := range removed.Rows() {
		if r.X > 1 && r.X < 2 && r.Y > 1 && r.Y < 3 {
			t.Errorf("row at (%v, %v) should have been removed", r.X, r.Y)
		}
	}
	// boundary rows survive removal
	if removed.Len()+selected.Len() < table.Len() {
		t.Errorf("select (%d) + remove (%d) lost rows from %d",
			selected.Len(), removed.Len(), table.Len())
	}
}

// TestConcatenateDisjoint verifies that concatenating tables with
// non-overlapping bounding regions retains every row unchanged.
func TestConcatenateDisjoint(t *testing.T) {
	a := diagonalTable(0, 1, 10)
	b := diagonalTable(5, 6, 7)

	got, err := Concatenate([]*Table{a, b}, OverlapTakeMax)
	if err != nil {
		t.Fatalf("concatenation failed: %v", err)
	}
	if got.Len() != 17 {
		t.Errorf("expected 17 rows, got %d", got.Len())
	}
}

// TestConcatenateTakeMax verifies the take-max overlap policy on the
// canonical two-table example: table A spans 0..2 x 0..2 with 10 rows,
// table B spans 1..2 x 1..3 with 20 rows, and the later-supplied B wins
// inside the overlap for a total of 26 rows.
func TestConcatenateTakeMax(t *testing.T) {
	a := diagonalTable(0, 2, 10)
	b := gridTable(1, 2, 1, 3, 20)

	got, err := Concatenate([]*Table{a, b}, OverlapTakeMax)
	if err != nil {
		t.Fatalf("concatenation failed: %v", err)
	}
	if got.Len() != 26 {
		t.Errorf("expected 26 rows, got %d", got.Len())
	}

	// All of B's rows survive.
	gapdh := 0
	for _, r := range got.Rows() {
		if r.Target == "GAPDH" {
			gapdh++
		}
	}
	if gapdh != 20 {
		t.Errorf("expected all 20 rows of the winning table, got %d", gapdh)
	}
}

// TestConcatenateIgnore verifies that the ignore policy keeps every row
// even in overlap regions.
func TestConcatenateIgnore(t *testing.T) {
	a := diagonalTable(0, 2, 10)
	b := gridTable(1, 2, 1, 3, 20)

	got, err := Concatenate([]*Table{a, b}, OverlapIgnore)
	if err != nil {
		t.Fatalf("concatenation failed: %v", err)
	}
	if got.Len() != 30 {
		t.Errorf("expected 30 rows, got %d", got.Len())
	}
}
