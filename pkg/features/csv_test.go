package features

import (
	"strings"
	"testing"
)

// TestWriteCSV verifies the exported header and row formatting.
func TestWriteCSV(t *testing.T) {
	table := NewTable([]Feature{
		{Y: 1.5, X: 2, Target: "ACTB", Distance: 0.25, PassesThresholds: true, Radius: 1, Area: 3},
		{Y: 4, X: 5, Target: NoCall},
	})

	var sb strings.Builder
	if err := table.WriteCSV(&sb); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "z,y,x,target,distance,passes_thresholds,radius,area" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if lines[1] != "0,1.5,2,ACTB,0.25,true,1,3" {
		t.Errorf("unexpected first row %q", lines[1])
	}
	if !strings.Contains(lines[2], NoCall) || !strings.Contains(lines[2], "false") {
		t.Errorf("unexpected second row %q", lines[2])
	}
}
