// Package decode maps observed intensity vectors to gene targets using a
// codebook. Two strategies are supported: discrete per-round argmax lookup
// and nearest-codeword lookup under a configurable distance metric with
// magnitude, distance, and area thresholds. The strategy set is closed;
// decoding dispatches on the concrete method value.
package decode

import (
	"fmt"

	"fishdecode/pkg/codebook"
	"fishdecode/pkg/features"
)

// Spot is one pre-extracted detection with its intensity vector flattened
// row-major over (round, channel).
type Spot struct {
	// physical coordinates; Z is zero for 2D data
	Z float64
	Y float64
	X float64

	Radius float64
	Values []float64
}

// SpotTable is the externally produced set of per-spot intensity vectors
// consumed by the spot decoders.
type SpotTable struct {
	Rounds   int
	Channels int
	Spots    []Spot
}

// validateAgainst checks that the table's vector shape matches the
// codebook before any per-spot work begins.
func (st *SpotTable) validateAgainst(cb *codebook.Codebook) error {
	if st.Rounds != cb.Rounds() || st.Channels != cb.Channels() {
		return fmt.Errorf("intensity table shape %dx%d does not match codebook shape %dx%d",
			st.Rounds, st.Channels, cb.Rounds(), cb.Channels())
	}
	n := cb.VectorLen()
	for i, spot := range st.Spots {
		if len(spot.Values) != n {
			return fmt.Errorf("spot %d has %d intensity values; the codebook shape %dx%d requires %d",
				i, len(spot.Values), cb.Rounds(), cb.Channels(), n)
		}
	}
	return nil
}

// Method is one member of the closed set of decoding strategies.
type Method interface {
	isMethod()
}

// PerRoundMaxChannel decodes each spot by selecting, per round, the
// channel with maximal intensity and looking the resulting barcode up in
// the codebook exactly. Argmax ties resolve deterministically to the
// lowest channel index. This is a discrete decode: no magnitude or
// distance thresholding is applied.
type PerRoundMaxChannel struct{}

func (PerRoundMaxChannel) isMethod() {}

// MetricDistance decodes each spot to its nearest codeword under a
// distance metric, after normalizing the observed vector by its own norm.
// A spot passes iff its nearest distance is at most DistanceThreshold and
// its vector magnitude is at least MagnitudeThreshold.
type MetricDistance struct {
	// NormOrder selects the vector norm used both for the magnitude check
	// and, when Metric is nil, for the distance metric. The common choice
	// is 2.
	NormOrder float64

	DistanceThreshold  float64
	MagnitudeThreshold float64

	// Metric overrides the distance function between the normalized
	// observed vector and a normalized codeword. When nil, the L-NormOrder
	// distance is used; the Euclidean case is served by a kd-tree over the
	// codewords.
	Metric func(observed, codeword []float64) float64
}

func (MetricDistance) isMethod() {}

func (m MetricDistance) validate() error {
	if m.NormOrder <= 0 {
		return fmt.Errorf("norm order must be positive; got %v", m.NormOrder)
	}
	if m.DistanceThreshold < 0 {
		return fmt.Errorf("distance threshold must be non-negative; got %v", m.DistanceThreshold)
	}
	if m.MagnitudeThreshold < 0 {
		return fmt.Errorf("magnitude threshold must be non-negative; got %v", m.MagnitudeThreshold)
	}
	return nil
}

// Decode maps every spot in the table to a feature row using the given
// method. Lookup misses and threshold failures are not errors: the
// affected rows appear in the output with the no-call target or
// PassesThresholds set to false.
func Decode(cb *codebook.Codebook, table *SpotTable, method Method) (*features.Table, error) {
	if err := table.validateAgainst(cb); err != nil {
		return nil, err
	}

	switch m := method.(type) {
	case PerRoundMaxChannel:
		return decodePerRoundMax(cb, table), nil
	case MetricDistance:
		if err := m.validate(); err != nil {
			return nil, err
		}
		return decodeMetric(cb, table, m)
	default:
		return nil, fmt.Errorf("unknown decoding method %T", method)
	}
}
