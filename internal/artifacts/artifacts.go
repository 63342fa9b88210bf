// Package artifacts defines the three well-known files an evaluation run
// leaves in the shared output location and the codecs used to read and write
// them. Artifacts are keyed by name only; every run overwrites the previous
// run's files.
package artifacts

import (
	"errors"
	"fmt"
)

const (
	TimingReportName     = "timing_results.json"
	EvaluationReportName = "eval_result.csv"
	PredictionsName      = "predictions.csv"
)

var (
	EvaluationHeaders  = []string{"weighted_f1_score", "num_parameters", "accuracy", "precision", "recall"}
	PredictionsHeaders = []string{"filename", "predicted_class", "confidence"}
)

// ErrMissing is returned when an artifact is absent from the store. It is a
// normal steady state ("nothing run yet"), not a failure.
var ErrMissing = errors.New("artifact not found")

type ParseError struct {
	Artifact string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed artifact %s: %v", e.Artifact, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
