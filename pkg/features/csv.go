package features

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/pkg/errors"
)

// csvHeader is the column order of the exported table.
var csvHeader = []string{"z", "y", "x", "target", "distance", "passes_thresholds", "radius", "area"}

// WriteCSV exports the table with one row per feature and a fixed header.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return errors.Wrap(err, "writing feature table header")
	}

	record := make([]string, len(csvHeader))
	for _, r := range t.rows {
		record[0] = strconv.FormatFloat(r.Z, 'g', -1, 64)
		record[1] = strconv.FormatFloat(r.Y, 'g', -1, 64)
		record[2] = strconv.FormatFloat(r.X, 'g', -1, 64)
		record[3] = r.Target
		record[4] = strconv.FormatFloat(r.Distance, 'g', -1, 64)
		record[5] = strconv.FormatBool(r.PassesThresholds)
		record[6] = strconv.FormatFloat(r.Radius, 'g', -1, 64)
		record[7] = strconv.FormatFloat(r.Area, 'g', -1, 64)
		if err := cw.Write(record); err != nil {
			return errors.Wrap(err, "writing feature table row")
		}
	}

	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing feature table")
}
