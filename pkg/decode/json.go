package decode

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// spotTableDocument mirrors the external spot intensity document: the
// table shape plus one record per detected spot.
type spotTableDocument struct {
	Rounds   int            `json:"rounds"`
	Channels int            `json:"channels"`
	Spots    []spotDocument `json:"spots"`
}

type spotDocument struct {
	Z      float64   `json:"z,omitempty"`
	Y      float64   `json:"y"`
	X      float64   `json:"x"`
	Radius float64   `json:"radius,omitempty"`
	Values []float64 `json:"values"`
}

// SpotTableFromJSON loads a spot intensity table from its external JSON
// document. Vector lengths are checked against the declared shape.
func SpotTableFromJSON(data []byte) (*SpotTable, error) {
	var doc spotTableDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "decoding spot table document")
	}
	if doc.Rounds <= 0 || doc.Channels <= 0 {
		return nil, errors.Errorf("spot table shape must be positive; got %d rounds, %d channels",
			doc.Rounds, doc.Channels)
	}

	n := doc.Rounds * doc.Channels
	table := &SpotTable{
		Rounds:   doc.Rounds,
		Channels: doc.Channels,
		Spots:    make([]Spot, len(doc.Spots)),
	}
	for i, s := range doc.Spots {
		if len(s.Values) != n {
			return nil, errors.Errorf("spot %d has %d intensity values; the table shape %dx%d requires %d",
				i, len(s.Values), doc.Rounds, doc.Channels, n)
		}
		table.Spots[i] = Spot{Z: s.Z, Y: s.Y, X: s.X, Radius: s.Radius, Values: s.Values}
	}
	return table, nil
}
