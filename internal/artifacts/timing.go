package artifacts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Number is a numeric timing field. Producers disagree on whether numbers are
// written as JSON numbers or as preformatted strings ("5.50"), so both are
// accepted and the literal text is kept for display.
type Number struct {
	text  string
	valid bool
}

var jsonNumber = regexp.MustCompile(`^-?(0|[1-9]\d*)(\.\d+)?([eE][+-]?\d+)?$`)

// NumberOf renders f with the given number of decimals.
func NumberOf(f float64, decimals int) Number {
	return Number{text: strconv.FormatFloat(f, 'f', decimals, 64), valid: true}
}

func NumberFromInt(i int) Number {
	return Number{text: strconv.Itoa(i), valid: true}
}

func (n Number) String() (string, bool) {
	return n.text, n.valid
}

func (n Number) Float() (float64, bool) {
	if !n.valid {
		return 0, false
	}
	f, err := strconv.ParseFloat(n.text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = Number{}
		return nil
	}

	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		*n = Number{text: s, valid: s != ""}
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return fmt.Errorf("expected number or numeric string, got %s", b)
	}
	*n = Number{text: num.String(), valid: true}
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.valid {
		return []byte("null"), nil
	}
	if jsonNumber.MatchString(n.text) {
		return []byte(n.text), nil
	}
	return json.Marshal(n.text)
}

type TimingReport struct {
	ModelName      string         `json:"model_name,omitempty"`
	ImageName      string         `json:"image_name,omitempty"`
	NumTestFiles   Number         `json:"num_test_files"`
	FullEvaluation FullEvaluation `json:"full_evaluation"`
	Details        TimingDetails  `json:"details"`
}

type FullEvaluation struct {
	TotalTime             Number `json:"total_time"`
	TimeToFirstPrediction Number `json:"time_to_first_prediction"`
	TimeToLastPrediction  Number `json:"time_to_last_prediction"`
	Throughput            Number `json:"throughput"`
}

type TimingDetails struct {
	ContainerStartupTime Number `json:"container_startup_time"`
	ModelLoadTime        Number `json:"model_load_time"`
	InferenceTime        Number `json:"inference_time"`
}

// ParseTimingReport decodes the report field by field. A field of the wrong
// type is left unset and reported in the returned *ParseError alongside the
// partially filled report; only a document that is not a JSON object yields a
// nil report.
func ParseTimingReport(data []byte) (*TimingReport, error) {
	var errs []error
	root := fieldDecoder{errs: &errs}
	if err := json.Unmarshal(data, &root.fields); err != nil {
		return nil, &ParseError{Artifact: TimingReportName, Err: err}
	}

	report := &TimingReport{}
	root.decode("model_name", &report.ModelName)
	root.decode("image_name", &report.ImageName)
	root.decode("num_test_files", &report.NumTestFiles)

	full := root.object("full_evaluation")
	full.decode("total_time", &report.FullEvaluation.TotalTime)
	full.decode("time_to_first_prediction", &report.FullEvaluation.TimeToFirstPrediction)
	full.decode("time_to_last_prediction", &report.FullEvaluation.TimeToLastPrediction)
	full.decode("throughput", &report.FullEvaluation.Throughput)

	details := root.object("details")
	details.decode("container_startup_time", &report.Details.ContainerStartupTime)
	details.decode("model_load_time", &report.Details.ModelLoadTime)
	details.decode("inference_time", &report.Details.InferenceTime)

	if len(errs) > 0 {
		return report, &ParseError{Artifact: TimingReportName, Err: errors.Join(errs...)}
	}
	return report, nil
}

type fieldDecoder struct {
	path   string
	fields map[string]json.RawMessage
	errs   *[]error
}

func (d fieldDecoder) decode(name string, v any) {
	raw, ok := d.fields[name]
	if !ok {
		return
	}
	if err := json.Unmarshal(raw, v); err != nil {
		*d.errs = append(*d.errs, fmt.Errorf("field %s%s: %w", d.path, name, err))
	}
}

func (d fieldDecoder) object(name string) fieldDecoder {
	sub := fieldDecoder{path: d.path + name + ".", errs: d.errs}
	d.decode(name, &sub.fields)
	return sub
}

func EncodeTimingReport(report *TimingReport) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("error encoding timing report: %w", err)
	}
	return data, nil
}
