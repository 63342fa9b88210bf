// Package results reconciles the artifacts of the most recent run into a
// single view. It only ever reads from the artifact store.
package results

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"

	"eval-backend/internal/artifacts"
)

const (
	NotAvailable     = "N/A"
	NoResultsMessage = "No evaluation results found. Run evaluation first."
)

type Metrics struct {
	ModelName             string
	NumImages             string
	Throughput            string
	F1Score               string
	NumParameters         string
	Accuracy              string
	Precision             string
	Recall                string
	TotalTime             string
	TimeToFirstPrediction string
	TimeToLastPrediction  string
	ContainerStartupTime  string
	ModelLoadTime         string
	InferenceTime         string
}

type Results struct {
	HasResults bool
	Message    string
	Metrics    Metrics

	// Timing is the timing report exactly as stored, when it is valid JSON.
	Timing      json.RawMessage
	Evaluation  *artifacts.Table
	Predictions *artifacts.Table

	RawEvaluationCSV  *string
	RawPredictionsCSV *string

	ParseErrors map[string]*artifacts.ParseError
}

type Aggregator struct {
	store *artifacts.Store
}

func NewAggregator(store *artifacts.Store) *Aggregator {
	return &Aggregator{store: store}
}

func (a *Aggregator) Current(ctx context.Context) (*Results, error) {
	timingData, hasTiming, err := a.read(ctx, artifacts.TimingReportName)
	if err != nil {
		return nil, err
	}
	evalData, hasEval, err := a.read(ctx, artifacts.EvaluationReportName)
	if err != nil {
		return nil, err
	}
	if !hasTiming || !hasEval {
		return &Results{HasResults: false, Message: NoResultsMessage}, nil
	}

	predData, hasPredictions, err := a.read(ctx, artifacts.PredictionsName)
	if err != nil {
		return nil, err
	}

	res := &Results{HasResults: true}

	// timing keeps whatever fields decoded even when err is set.
	timing, err := artifacts.ParseTimingReport(timingData)
	if err := res.recordParseError(err); err != nil {
		return nil, err
	}
	if json.Valid(timingData) {
		res.Timing = json.RawMessage(timingData)
	}

	evalCsv := string(evalData)
	res.RawEvaluationCSV = &evalCsv
	res.Evaluation, err = artifacts.ParseTable(artifacts.EvaluationReportName, evalData)
	if err := res.recordParseError(err); err != nil {
		return nil, err
	}

	if hasPredictions {
		predictionsCsv := string(predData)
		res.RawPredictionsCSV = &predictionsCsv
		res.Predictions, err = artifacts.ParseTable(artifacts.PredictionsName, predData)
		if err := res.recordParseError(err); err != nil {
			return nil, err
		}
	}

	res.Metrics = buildMetrics(timing, res.Evaluation)
	return res, nil
}

func (a *Aggregator) read(ctx context.Context, name string) ([]byte, bool, error) {
	data, err := a.store.Read(ctx, name)
	if err != nil {
		if errors.Is(err, artifacts.ErrMissing) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (r *Results) recordParseError(err error) error {
	if err == nil {
		return nil
	}
	var perr *artifacts.ParseError
	if !errors.As(err, &perr) {
		return err
	}
	slog.Warn("ignoring malformed artifact", "artifact", perr.Artifact, "error", perr.Err)
	if r.ParseErrors == nil {
		r.ParseErrors = make(map[string]*artifacts.ParseError)
	}
	r.ParseErrors[perr.Artifact] = perr
	return nil
}

func buildMetrics(timing *artifacts.TimingReport, evaluation *artifacts.Table) Metrics {
	if timing == nil {
		timing = &artifacts.TimingReport{}
	}

	full := timing.FullEvaluation
	details := timing.Details

	evalValue := func(column string) string {
		if v, ok := evaluation.Value(0, column); ok {
			return v
		}
		return NotAvailable
	}

	modelName := timing.ModelName
	if modelName == "" {
		modelName = NotAvailable
	}

	return Metrics{
		ModelName:             modelName,
		NumImages:             orNotAvailable(timing.NumTestFiles),
		Throughput:            throughput(timing.NumTestFiles, full.TimeToLastPrediction),
		F1Score:               evalValue("weighted_f1_score"),
		NumParameters:         evalValue("num_parameters"),
		Accuracy:              evalValue("accuracy"),
		Precision:             evalValue("precision"),
		Recall:                evalValue("recall"),
		TotalTime:             orNotAvailable(full.TotalTime),
		TimeToFirstPrediction: orNotAvailable(full.TimeToFirstPrediction),
		TimeToLastPrediction:  orNotAvailable(full.TimeToLastPrediction),
		ContainerStartupTime:  orNotAvailable(details.ContainerStartupTime),
		ModelLoadTime:         orNotAvailable(details.ModelLoadTime),
		InferenceTime:         orNotAvailable(details.InferenceTime),
	}
}

func orNotAvailable(n artifacts.Number) string {
	if s, ok := n.String(); ok {
		return s
	}
	return NotAvailable
}

// throughput is always derived from the file count and the time to the last
// prediction; a throughput value stored in the timing report is ignored.
func throughput(files, lastPrediction artifacts.Number) string {
	n, ok := files.Float()
	if !ok {
		return NotAvailable
	}
	last, ok := lastPrediction.Float()
	if !ok || last == 0 {
		return NotAvailable
	}
	return strconv.FormatFloat(n/last, 'f', 2, 64)
}
