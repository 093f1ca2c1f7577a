package models

import (
	"time"

	"github.com/google/uuid"

	"fishdecode/pkg/decode"
	"fishdecode/pkg/features"
	"fishdecode/pkg/labelimage"
)

// FieldOfView represents a single imaging position with its per-pixel
// intensity stack
type FieldOfView struct {
	// Name identifies the field of view within the experiment
	Name string

	// Stack is the per-pixel intensity data to decode
	Stack *decode.PixelStack
}

// FOVResult holds the decoding products of one field of view
type FOVResult struct {
	// Name identifies the field of view the result belongs to
	Name string

	// Features is the per-cluster feature table
	Features *features.Table

	// Decoded is the cluster label image
	Decoded *labelimage.LabelImage
}

// RunRecord summarizes one batch decoding run
type RunRecord struct {
	// ID uniquely identifies the run
	ID uuid.UUID

	// StartedAt is the wall-clock time the run began
	StartedAt time.Time

	// Duration is the total processing time
	Duration time.Duration

	// FOVCount is the number of fields of view processed
	FOVCount int

	// RowTotal is the number of feature rows across all fields of view
	RowTotal int

	// PassingTotal is the number of rows that passed all thresholds
	PassingTotal int
}
