package api

import (
	"eval-backend/internal/artifacts"
	"eval-backend/internal/results"
	"eval-backend/pkg/api"
)

func convertTable(t *artifacts.Table) *api.Table {
	if t == nil {
		return nil
	}
	return &api.Table{Headers: t.Headers, Data: t.Data}
}

func convertMetrics(m results.Metrics) *api.Metrics {
	return &api.Metrics{
		ModelName:             m.ModelName,
		NumImages:             m.NumImages,
		Throughput:            m.Throughput,
		F1Score:               m.F1Score,
		NumParameters:         m.NumParameters,
		Accuracy:              m.Accuracy,
		Precision:             m.Precision,
		Recall:                m.Recall,
		TotalTime:             m.TotalTime,
		TimeToFirstPrediction: m.TimeToFirstPrediction,
		TimeToLastPrediction:  m.TimeToLastPrediction,
		ContainerStartupTime:  m.ContainerStartupTime,
		ModelLoadTime:         m.ModelLoadTime,
		InferenceTime:         m.InferenceTime,
	}
}

func convertResults(r *results.Results, omitRaw bool) api.ResultsResponse {
	if !r.HasResults {
		return api.ResultsResponse{Success: true, HasResults: false, Message: r.Message}
	}

	res := api.ResultsResponse{
		Success:     true,
		HasResults:  true,
		Metrics:     convertMetrics(r.Metrics),
		Timing:      r.Timing,
		Evaluation:  convertTable(r.Evaluation),
		Predictions: convertTable(r.Predictions),
	}

	if !omitRaw {
		res.Raw = &api.RawArtifacts{EvalCsv: r.RawEvaluationCSV, PredictionsCsv: r.RawPredictionsCSV}
	}

	if len(r.ParseErrors) > 0 {
		res.ParseErrors = make(map[string]string, len(r.ParseErrors))
		for name, err := range r.ParseErrors {
			res.ParseErrors[name] = err.Err.Error()
		}
	}

	return res
}
