package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"

	"eval-backend/pkg/api"

	"github.com/go-resty/resty/v2"
	"github.com/schollz/progressbar/v3"
)

// ServerError is a failure reported by the backend in its JSON error envelope.
type ServerError struct {
	Status  int
	Message string
	Stdout  string
	Stderr  string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

type Client struct {
	client *resty.Client
}

func NewClient(server string, timeout time.Duration) *Client {
	return &Client{client: resty.New().SetBaseURL(server).SetTimeout(timeout)}
}

func decode[T any](res *resty.Response, err error) (*T, error) {
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if !res.IsSuccess() {
		var body api.ErrorResponse
		if jerr := json.Unmarshal(res.Body(), &body); jerr != nil || body.Error == "" {
			return nil, &ServerError{Status: res.StatusCode(), Message: res.String()}
		}
		serr := &ServerError{Status: res.StatusCode(), Message: body.Error}
		if body.Stdout != nil {
			serr.Stdout = *body.Stdout
		}
		if body.Stderr != nil {
			serr.Stderr = *body.Stderr
		}
		return nil, serr
	}

	var out T
	if err := json.Unmarshal(res.Body(), &out); err != nil {
		return nil, fmt.Errorf("error parsing response: %w", err)
	}
	return &out, nil
}

// Upload streams the files as one multipart request. bar, if not nil, tracks
// the bytes sent.
func (c *Client) Upload(ctx context.Context, paths []string, bar *progressbar.ProgressBar) (*api.UploadResponse, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeFiles(mw, paths)
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	var body io.Reader = pr
	if bar != nil {
		reader := progressbar.NewReader(pr, bar)
		body = &reader
	}

	res, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", mw.FormDataContentType()).
		SetBody(body).
		Post("/api/upload")
	pr.Close()

	return decode[api.UploadResponse](res, err)
}

func writeFiles(mw *multipart.Writer, paths []string) error {
	for _, path := range paths {
		if err := writeFile(mw, path); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(mw *multipart.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error opening %s: %w", path, err)
	}
	defer f.Close()

	part, err := mw.CreateFormFile("files", filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("error reading %s: %w", path, err)
	}
	return nil
}

func (c *Client) List(ctx context.Context) (*api.ListUploadsResponse, error) {
	return decode[api.ListUploadsResponse](c.client.R().SetContext(ctx).Get("/api/upload"))
}

func (c *Client) Evaluate(ctx context.Context, req api.EvaluateRequest) (*api.EvaluateResponse, error) {
	return decode[api.EvaluateResponse](c.client.R().SetContext(ctx).SetBody(req).Post("/api/evaluate"))
}

func (c *Client) MockEvaluate(ctx context.Context, req api.EvaluateRequest) (*api.MockEvaluateResponse, error) {
	return decode[api.MockEvaluateResponse](c.client.R().SetContext(ctx).SetBody(req).Post("/api/mock-evaluate"))
}

func (c *Client) Results(ctx context.Context, omitRaw bool) (*api.ResultsResponse, error) {
	r := c.client.R().SetContext(ctx)
	if omitRaw {
		r.SetQueryParam("omit_raw", "true")
	}
	return decode[api.ResultsResponse](r.Get("/api/results"))
}
