package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"eval-backend/pkg/api"

	"github.com/gorilla/schema"
)

type codedError struct {
	err  error
	code int

	stdout *string
	stderr *string
}

func (e *codedError) Error() string {
	return e.err.Error()
}

func (e *codedError) Unwrap() error {
	return e.err
}

func CodedError(code int, err error) error {
	return &codedError{err: err, code: code}
}

func CodedErrorf(code int, format string, args ...any) error {
	return &codedError{err: fmt.Errorf(format, args...), code: code}
}

// CodedErrorWithOutput attaches the captured output of a failed process so the
// caller can see what the script printed before it failed.
func CodedErrorWithOutput(code int, err error, stdout, stderr string) error {
	return &codedError{err: err, code: code, stdout: &stdout, stderr: &stderr}
}

func ParseRequest[T any](r *http.Request) (T, error) {
	var data T
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		slog.Error("error parsing request body", "error", err)
		return data, CodedErrorf(http.StatusBadRequest, "unable to parse request body")
	}
	return data, nil
}

var queryDecoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}()

func ParseRequestQueryParams[T any](r *http.Request) (T, error) {
	var data T
	if err := r.ParseForm(); err != nil {
		slog.Error("error parsing form", "error", err)
		return data, CodedErrorf(http.StatusBadRequest, "unable to parse request query params")
	}

	err := queryDecoder.Decode(&data, r.Form)
	if err != nil {
		slog.Error("error decoding query params", "error", err)
		return data, CodedErrorf(http.StatusBadRequest, "unable to parse request query params")
	}

	return data, nil
}

func RestHandler(handler func(r *http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := handler(r)
		if err != nil {
			WriteJsonError(w, err)
			return
		}

		if res == nil {
			res = struct{}{}
		}

		WriteJsonResponse(w, res)
	}
}

func WriteJsonError(w http.ResponseWriter, err error) {
	body := api.ErrorResponse{Success: false, Error: err.Error()}
	code := http.StatusInternalServerError

	var cerr *codedError
	if errors.As(err, &cerr) {
		code = cerr.code
		body.Stdout = cerr.stdout
		body.Stderr = cerr.stderr
		if cerr.code == http.StatusInternalServerError {
			slog.Error("internal server error received in endpoint", "error", err)
		}
	} else {
		slog.Error("recieved non coded error from endpoint", "error", err)
	}

	writeJson(w, code, body)
}

func WriteJsonResponse(w http.ResponseWriter, data interface{}) {
	writeJson(w, http.StatusOK, data)
}

func writeJson(w http.ResponseWriter, code int, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		slog.Error("error serializing response body", "error", err)
		http.Error(w, fmt.Sprintf("error serializing response body: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(payload); err != nil {
		slog.Error("error writing response body", "error", err)
	}
}
