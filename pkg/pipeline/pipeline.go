// Package pipeline runs codebook decoding over a batch of fields of view,
// fanning the independent fields out across a configurable number of
// workers and reconciling the per-field feature tables into one combined
// table.
package pipeline

import (
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"fishdecode/internal/models"
	"fishdecode/pkg/codebook"
	"fishdecode/pkg/config"
	"fishdecode/pkg/decode"
	"fishdecode/pkg/features"
)

// Params holds the batch decoding parameters
type Params struct {
	// Codebook maps targets to their expected intensity signatures
	Codebook *codebook.Codebook

	// Options configures per-pixel decoding and clustering
	Options decode.PixelDecodeOptions

	// NumWorkers specifies how many fields of view are decoded concurrently.
	// Zero or negative means one worker per CPU core.
	NumWorkers int

	// OverlapPolicy selects how rows in overlapping fields of view are
	// reconciled in the combined table
	OverlapPolicy features.OverlapPolicy
}

// Result holds the products of a batch run: one result per field of view
// in input order, the reconciled combined table, and the run record.
type Result struct {
	PerFOV   []models.FOVResult
	Combined *features.Table
	Record   models.RunRecord
}

// Runner decodes batches of fields of view
type Runner struct {
	params *Params
	log    *logrus.Logger
}

// NewRunner creates a runner with the provided parameters. A nil logger
// falls back to the logrus standard logger.
func NewRunner(params *Params, log *logrus.Logger) *Runner {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Runner{params: params, log: log}
}

// Run decodes every field of view and concatenates the per-field tables
// under the configured overlap policy. Fields are processed in parallel;
// results keep the input order regardless of completion order.
func (r *Runner) Run(fovs []models.FieldOfView) (*Result, error) {
	if len(fovs) == 0 {
		return nil, fmt.Errorf("no fields of view to process")
	}

	workers := r.params.NumWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	record := models.RunRecord{
		ID:        uuid.New(),
		StartedAt: time.Now(),
		FOVCount:  len(fovs),
	}
	r.log.WithFields(logrus.Fields{
		"run":     record.ID,
		"fovs":    len(fovs),
		"workers": workers,
	}).Info("starting batch decode")

	// Fan the fields out across workers; each outcome travels back on the
	// result channel tagged with its input index.
	type outcome struct {
		index  int
		result models.FOVResult
		err    error
	}
	resultChan := make(chan outcome)
	semaphore := make(chan struct{}, workers)

	for i := range fovs {
		go func(index int, fov models.FieldOfView) {
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			decoded, err := decode.DecodePixels(r.params.Codebook, fov.Stack, r.params.Options)
			if err != nil {
				resultChan <- outcome{index: index, err: fmt.Errorf("decoding %s: %w", fov.Name, err)}
				return
			}
			resultChan <- outcome{
				index: index,
				result: models.FOVResult{
					Name:     fov.Name,
					Features: decoded.Features,
					Decoded:  decoded.Decoded,
				},
			}
		}(i, fovs[i])
	}

	perFOV := make([]models.FOVResult, len(fovs))
	var firstErr error
	for completed := 0; completed < len(fovs); completed++ {
		res := <-resultChan
		if res.err != nil {
			if firstErr == nil {
				firstErr = res.err
			}
			continue
		}
		perFOV[res.index] = res.result

		r.log.WithFields(logrus.Fields{
			"run":     record.ID,
			"fov":     res.result.Name,
			"rows":    res.result.Features.Len(),
			"passing": res.result.Features.Passing(),
		}).Debug("field of view decoded")
	}
	if firstErr != nil {
		return nil, firstErr
	}

	tables := make([]*features.Table, len(perFOV))
	for i, res := range perFOV {
		tables[i] = res.Features
		record.RowTotal += res.Features.Len()
		record.PassingTotal += res.Features.Passing()
	}
	combined, err := features.Concatenate(tables, r.params.OverlapPolicy)
	if err != nil {
		return nil, fmt.Errorf("combining feature tables: %w", err)
	}

	record.Duration = time.Since(record.StartedAt)
	r.log.WithFields(logrus.Fields{
		"run":      record.ID,
		"rows":     record.RowTotal,
		"passing":  record.PassingTotal,
		"combined": combined.Len(),
		"elapsed":  record.Duration,
	}).Info("batch decode finished")

	return &Result{PerFOV: perFOV, Combined: combined, Record: record}, nil
}

// PolicyFromName resolves the configuration name of an overlap policy.
func PolicyFromName(name string) (features.OverlapPolicy, error) {
	switch name {
	case "ignore":
		return features.OverlapIgnore, nil
	case "take_max":
		return features.OverlapTakeMax, nil
	default:
		return 0, fmt.Errorf("unknown overlap policy %q", name)
	}
}

// OptionsFromConfig assembles pixel decoding options from the loaded
// configuration.
func OptionsFromConfig(cfg *config.Config) decode.PixelDecodeOptions {
	return decode.PixelDecodeOptions{
		Metric: decode.MetricDistance{
			NormOrder:          cfg.Decoding.NormOrder,
			DistanceThreshold:  cfg.Decoding.DistanceThreshold,
			MagnitudeThreshold: cfg.Decoding.MagnitudeThreshold,
		},
		MinArea: cfg.Clustering.MinArea,
		MaxArea: cfg.Clustering.MaxArea,
	}
}
