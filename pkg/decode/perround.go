package decode

import (
	"fishdecode/pkg/codebook"
	"fishdecode/pkg/features"
)

// decodePerRoundMax reduces each spot to its per-round argmax barcode and
// resolves it against the codebook exactly. A barcode absent from the
// codebook is a decode miss, not an error: the row keeps its coordinates
// and gets the no-call target. Distance is zero on this path; there is no
// notion of proximity in a discrete lookup.
func decodePerRoundMax(cb *codebook.Codebook, table *SpotTable) *features.Table {
	rows := make([]features.Feature, len(table.Spots))
	for i, spot := range table.Spots {
		row := features.Feature{
			Z: spot.Z, Y: spot.Y, X: spot.X,
			Radius: spot.Radius,
		}

		barcode := codebook.ArgmaxBarcode(spot.Values, table.Rounds, table.Channels)
		if index, ok := cb.LookupBarcode(barcode); ok {
			row.Target = cb.Target(index)
			row.PassesThresholds = true
		} else {
			row.Target = features.NoCall
		}
		rows[i] = row
	}
	return features.NewTable(rows)
}
