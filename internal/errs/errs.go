// Package errs defines the sentinel error kinds shared across the pipeline
// stages (§7). Stages wrap one of these with fmt.Errorf("%w: ...") so callers
// can errors.Is against the kind while still getting a stage/feature-specific
// message, mirroring the teacher's ErrEmptyOverpassResponse pattern.
package errs

import "errors"

var (
	// ErrInvalidInput covers malformed bounds, inconsistent CRS, or a
	// requested grid smaller than 2x2.
	ErrInvalidInput = errors.New("invalid input")

	// ErrElevationSample is returned by an elevation callback failure that
	// could not be locally recovered by nearest-neighbor fill.
	ErrElevationSample = errors.New("elevation sample failed")

	// ErrEmptyHeightField means no valid elevation samples were produced
	// after fill, so no terrain can be built.
	ErrEmptyHeightField = errors.New("empty height field")

	// ErrDegenerateFeature marks a per-feature failure (area <= eps,
	// unrepairable self-intersection). Non-fatal: the feature is skipped.
	ErrDegenerateFeature = errors.New("degenerate feature")

	// ErrNonWatertightBase means the terrain solid failed its post-weld
	// watertight check. Fatal.
	ErrNonWatertightBase = errors.New("non-watertight base")

	// ErrCancelled propagates a cancellation-token observation. The pipeline
	// aborts immediately and releases intermediate buffers.
	ErrCancelled = errors.New("cancelled")

	// ErrInternalGeometry covers a boolean/buffer operation that failed
	// beyond retry. Per-feature, non-fatal.
	ErrInternalGeometry = errors.New("internal geometry failure")
)

// Stage wraps an error with the stage name that produced it, per §7's
// requirement that user-visible failures carry the stage name.
func Stage(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &stageError{stage: stage, err: err}
}

// Feature wraps an error with the stage and feature identifier that produced
// it.
func Feature(stage, featureID string, err error) error {
	if err == nil {
		return nil
	}
	return &stageError{stage: stage, featureID: featureID, err: err}
}

type stageError struct {
	stage     string
	featureID string
	err       error
}

func (e *stageError) Error() string {
	if e.featureID != "" {
		return e.stage + " [" + e.featureID + "]: " + e.err.Error()
	}
	return e.stage + ": " + e.err.Error()
}

func (e *stageError) Unwrap() error { return e.err }
