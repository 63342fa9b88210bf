package artifacts_test

import (
	"encoding/json"
	"testing"

	"eval-backend/internal/artifacts"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimingReportStringValues(t *testing.T) {
	data := []byte(`{
  "model_name": "satellite-classifier:latest",
  "num_test_files": 10,
  "full_evaluation": {
    "total_time": "6.12",
    "time_to_first_prediction": "1.31",
    "time_to_last_prediction": "5.62",
    "throughput": "1.78"
  },
  "details": {
    "container_startup_time": "0.41",
    "model_load_time": "0.77",
    "inference_time": "4.31"
  }
}`)

	report, err := artifacts.ParseTimingReport(data)
	require.NoError(t, err)

	assert.Equal(t, "satellite-classifier:latest", report.ModelName)
	n, ok := report.NumTestFiles.Float()
	assert.True(t, ok)
	assert.Equal(t, 10.0, n)

	total, ok := report.FullEvaluation.TotalTime.String()
	assert.True(t, ok)
	assert.Equal(t, "6.12", total)

	last, ok := report.FullEvaluation.TimeToLastPrediction.Float()
	assert.True(t, ok)
	assert.InDelta(t, 5.62, last, 1e-9)

	load, ok := report.Details.ModelLoadTime.String()
	assert.True(t, ok)
	assert.Equal(t, "0.77", load)
}

func TestParseTimingReportPartial(t *testing.T) {
	// Shape written by the docker evaluation script: no details, no first prediction.
	data := []byte(`{"image_name": "sat:1", "model_name": "weights", "num_test_files": 3,
		"full_evaluation": {"total_time": 12.5, "time_to_last_prediction": 12.5}}`)

	report, err := artifacts.ParseTimingReport(data)
	require.NoError(t, err)

	assert.Equal(t, "sat:1", report.ImageName)
	_, ok := report.FullEvaluation.TimeToFirstPrediction.String()
	assert.False(t, ok)
	_, ok = report.Details.InferenceTime.Float()
	assert.False(t, ok)

	total, ok := report.FullEvaluation.TotalTime.String()
	assert.True(t, ok)
	assert.Equal(t, "12.5", total)
}

func TestParseTimingReportMalformed(t *testing.T) {
	_, err := artifacts.ParseTimingReport([]byte(`{"num_test_files": `))
	var perr *artifacts.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, artifacts.TimingReportName, perr.Artifact)

	_, err = artifacts.ParseTimingReport([]byte(`[1, 2]`))
	require.ErrorAs(t, err, &perr)
}

func TestParseTimingReportBadFieldsKeepTheRest(t *testing.T) {
	data := []byte(`{"model_name": 42, "num_test_files": 10,
		"full_evaluation": {"time_to_last_prediction": 5, "total_time": true},
		"details": []}`)

	report, err := artifacts.ParseTimingReport(data)
	var perr *artifacts.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, artifacts.TimingReportName, perr.Artifact)
	assert.ErrorContains(t, err, "model_name")
	assert.ErrorContains(t, err, "full_evaluation.total_time")
	assert.ErrorContains(t, err, "details")

	require.NotNil(t, report)
	assert.Empty(t, report.ModelName)

	n, ok := report.NumTestFiles.Float()
	assert.True(t, ok)
	assert.Equal(t, 10.0, n)

	last, ok := report.FullEvaluation.TimeToLastPrediction.String()
	assert.True(t, ok)
	assert.Equal(t, "5", last)

	_, ok = report.FullEvaluation.TotalTime.String()
	assert.False(t, ok)
	_, ok = report.Details.InferenceTime.String()
	assert.False(t, ok)
}

func TestNumberNonNumericString(t *testing.T) {
	var n artifacts.Number
	require.NoError(t, json.Unmarshal([]byte(`"n/a"`), &n))

	text, ok := n.String()
	assert.True(t, ok)
	assert.Equal(t, "n/a", text)

	_, ok = n.Float()
	assert.False(t, ok)

	out, err := json.Marshal(n)
	require.NoError(t, err)
	assert.Equal(t, `"n/a"`, string(out))
}

func TestEncodeTimingReport(t *testing.T) {
	report := &artifacts.TimingReport{
		ModelName:    "m",
		NumTestFiles: artifacts.NumberFromInt(4),
		FullEvaluation: artifacts.FullEvaluation{
			TotalTime:            artifacts.NumberOf(6.004, 2),
			TimeToLastPrediction: artifacts.NumberOf(5.5, 2),
		},
	}

	data, err := artifacts.EncodeTimingReport(report)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 4.0, decoded["num_test_files"])

	full := decoded["full_evaluation"].(map[string]any)
	assert.Equal(t, 6.0, full["total_time"])
	assert.Equal(t, 5.5, full["time_to_last_prediction"])
	assert.Nil(t, full["throughput"])

	parsed, err := artifacts.ParseTimingReport(data)
	require.NoError(t, err)
	text, _ := parsed.FullEvaluation.TotalTime.String()
	assert.Equal(t, "6.00", text)
}
