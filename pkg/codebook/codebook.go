// Package codebook holds the immutable mapping from gene targets to their
// expected per-round, per-channel intensity signatures, together with the
// precomputed lookup structures the decoders derive from it.
package codebook

import (
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Entry pairs a target name with its codeword, flattened row-major over
// (round, channel).
type Entry struct {
	Target string
	Code   []float64
}

// Codebook is an immutable collection of codewords sharing one
// (rounds, channels) shape. A matrix of L2-normalized codewords is
// computed once at construction for distance comparisons.
type Codebook struct {
	rounds   int
	channels int
	targets  []string
	codes    *mat.Dense
	unit     *mat.Dense

	// per-round argmax channel sequence -> codeword index, for the
	// discrete per-round-max decoding path
	barcodes map[string]int
}

// New builds a codebook from entries. Every entry must carry a codeword of
// exactly rounds*channels values.
func New(rounds, channels int, entries []Entry) (*Codebook, error) {
	if rounds <= 0 || channels <= 0 {
		return nil, fmt.Errorf("codebook shape must be positive; got %d rounds, %d channels",
			rounds, channels)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("codebook has no entries")
	}

	n := rounds * channels
	cb := &Codebook{
		rounds:   rounds,
		channels: channels,
		targets:  make([]string, len(entries)),
		codes:    mat.NewDense(len(entries), n, nil),
		unit:     mat.NewDense(len(entries), n, nil),
		barcodes: make(map[string]int, len(entries)),
	}

	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		if len(e.Code) != n {
			return nil, fmt.Errorf("codeword for %q has %d values; the codebook shape %dx%d requires %d",
				e.Target, len(e.Code), rounds, channels, n)
		}
		if _, dup := seen[e.Target]; dup {
			return nil, fmt.Errorf("duplicate codebook target %q", e.Target)
		}
		seen[e.Target] = struct{}{}

		cb.targets[i] = e.Target
		cb.codes.SetRow(i, e.Code)

		unit := make([]float64, n)
		copy(unit, e.Code)
		if norm := floats.Norm(unit, 2); norm > 0 {
			floats.Scale(1/norm, unit)
		}
		cb.unit.SetRow(i, unit)

		cb.barcodes[BarcodeKey(ArgmaxBarcode(e.Code, rounds, channels))] = i
	}

	return cb, nil
}

// Rounds returns the number of imaging rounds per codeword.
func (cb *Codebook) Rounds() int { return cb.rounds }

// Channels returns the number of channels per round.
func (cb *Codebook) Channels() int { return cb.channels }

// Len returns the number of targets.
func (cb *Codebook) Len() int { return len(cb.targets) }

// VectorLen returns the flattened codeword length, rounds*channels.
func (cb *Codebook) VectorLen() int { return cb.rounds * cb.channels }

// Target returns the target name at the given codeword index.
func (cb *Codebook) Target(i int) string { return cb.targets[i] }

// Code returns the raw codeword at the given index. Callers must treat it
// as read-only.
func (cb *Codebook) Code(i int) []float64 { return cb.codes.RawRowView(i) }

// UnitCode returns the L2-normalized codeword at the given index. Callers
// must treat it as read-only.
func (cb *Codebook) UnitCode(i int) []float64 { return cb.unit.RawRowView(i) }

// LookupBarcode resolves a per-round channel-index sequence to a codeword
// index; ok is false when the barcode is not in the codebook.
func (cb *Codebook) LookupBarcode(barcode []int) (index int, ok bool) {
	index, ok = cb.barcodes[BarcodeKey(barcode)]
	return index, ok
}

// ArgmaxBarcode reduces a (rounds x channels) vector to the sequence of
// per-round argmax channel indices. Ties resolve deterministically to the
// lowest channel index.
func ArgmaxBarcode(vec []float64, rounds, channels int) []int {
	barcode := make([]int, rounds)
	for r := 0; r < rounds; r++ {
		best := 0
		bestVal := vec[r*channels]
		for c := 1; c < channels; c++ {
			if v := vec[r*channels+c]; v > bestVal {
				best = c
				bestVal = v
			}
		}
		barcode[r] = best
	}
	return barcode
}

// BarcodeKey renders a channel-index sequence as a map key.
func BarcodeKey(barcode []int) string {
	parts := make([]string, len(barcode))
	for i, c := range barcode {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, ",")
}
