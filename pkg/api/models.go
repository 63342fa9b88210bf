package api

import "encoding/json"

type ErrorResponse struct {
	Success bool    `json:"success"`
	Error   string  `json:"error"`
	Stdout  *string `json:"stdout,omitempty"`
	Stderr  *string `json:"stderr,omitempty"`
}

type UploadResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Files   []string `json:"files"`
}

type ListUploadsResponse struct {
	Success bool     `json:"success"`
	Files   []string `json:"files"`
	Count   int      `json:"count"`
}

type EvaluateRequest struct {
	PipelineIdentifier string `json:"pipelineIdentifier,omitempty"`
	OutputFilename     string `json:"outputFilename,omitempty"`

	// Older clients send these names.
	ImageName       string `json:"imageName,omitempty"`
	PredictionsFile string `json:"predictionsFile,omitempty"`
}

func (r EvaluateRequest) Pipeline() string {
	if r.PipelineIdentifier != "" {
		return r.PipelineIdentifier
	}
	return r.ImageName
}

func (r EvaluateRequest) Output() string {
	if r.OutputFilename != "" {
		return r.OutputFilename
	}
	return r.PredictionsFile
}

type EvaluateResponse struct {
	Success bool   `json:"success"`
	Output  string `json:"output"`
	Stderr  string `json:"stderr"`
}

type MockEvaluateResponse struct {
	Success bool   `json:"success"`
	Output  string `json:"output"`
	Message string `json:"message"`
}

type ResultsParams struct {
	OmitRaw bool `schema:"omit_raw"`
}

type Metrics struct {
	ModelName             string `json:"modelName"`
	NumImages             string `json:"numImages"`
	Throughput            string `json:"throughput"`
	F1Score               string `json:"f1Score"`
	NumParameters         string `json:"numParameters"`
	Accuracy              string `json:"accuracy"`
	Precision             string `json:"precision"`
	Recall                string `json:"recall"`
	TotalTime             string `json:"totalTime"`
	TimeToFirstPrediction string `json:"timeToFirstPrediction"`
	TimeToLastPrediction  string `json:"timeToLastPrediction"`
	ContainerStartupTime  string `json:"containerStartupTime"`
	ModelLoadTime         string `json:"modelLoadTime"`
	InferenceTime         string `json:"inferenceTime"`
}

type Table struct {
	Headers []string            `json:"headers"`
	Data    []map[string]string `json:"data"`
}

type RawArtifacts struct {
	EvalCsv        *string `json:"evalCsv"`
	PredictionsCsv *string `json:"predictionsCsv"`
}

type ResultsResponse struct {
	Success    bool   `json:"success"`
	HasResults bool   `json:"hasResults"`
	Message    string `json:"message,omitempty"`

	Metrics     *Metrics          `json:"metrics,omitempty"`
	Timing      json.RawMessage   `json:"timing,omitempty"`
	Evaluation  *Table            `json:"evaluation,omitempty"`
	Predictions *Table            `json:"predictions"`
	Raw         *RawArtifacts     `json:"raw,omitempty"`
	ParseErrors map[string]string `json:"parseErrors,omitempty"`
}
