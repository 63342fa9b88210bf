// Package producer contains the two interchangeable ways of producing
// evaluation artifacts: running the external pipeline script, or generating
// synthetic results. Both leave the same three files behind, so readers never
// need to know which one ran.
package producer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"eval-backend/internal/artifacts"

	"github.com/google/uuid"
)

const (
	DefaultPipeline       = "satellite-classifier:latest"
	DefaultOutputFilename = artifacts.PredictionsName
)

var (
	ErrEmptyDataset          = errors.New("No test images found. Please upload images first.")
	ErrInvalidOutputFilename = errors.New("invalid output filename")
)

type Request struct {
	JobId              uuid.UUID
	PipelineIdentifier string
	OutputFilename     string
}

func (r Request) Validate() error {
	name := r.OutputFilename
	if name == "" {
		return nil
	}
	if filepath.Base(name) != name || strings.ContainsAny(name, `/\`) || !strings.EqualFold(filepath.Ext(name), ".csv") {
		return fmt.Errorf("%w: %q must be a plain .csv file name", ErrInvalidOutputFilename, name)
	}
	if name == artifacts.EvaluationReportName {
		return fmt.Errorf("%w: %q is reserved for the evaluation report", ErrInvalidOutputFilename, name)
	}
	return nil
}

func (r Request) pipelineOrDefault() string {
	if r.PipelineIdentifier == "" {
		return DefaultPipeline
	}
	return r.PipelineIdentifier
}

func (r Request) outputFilenameOrDefault() string {
	if r.OutputFilename == "" {
		return DefaultOutputFilename
	}
	return r.OutputFilename
}

type Result struct {
	Stdout  string
	Stderr  string
	Message string
}

type Producer interface {
	Produce(ctx context.Context, req Request) (*Result, error)
}

type AssetLister interface {
	ListCurrent() ([]string, error)
}
