package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"eval-backend/internal/dataset"
	"eval-backend/internal/jobs"
	"eval-backend/internal/producer"
	"eval-backend/internal/results"
	"eval-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	DefaultMaxUploadBytes = 1 << 30

	uploadFormField   = "files"
	multipartMemLimit = 32 << 20
	readTimeout       = 60 * time.Second
)

type EvaluationService struct {
	stager      *dataset.Stager
	runner      producer.Producer
	mock        producer.Producer
	aggregator  *results.Aggregator
	coordinator *jobs.Coordinator
	lifetime    context.Context

	maxUploadBytes int64
}

type ServiceParams struct {
	Stager         *dataset.Stager
	Runner         producer.Producer
	Mock           producer.Producer
	Aggregator     *results.Aggregator
	Coordinator    *jobs.Coordinator
	MaxUploadBytes int64

	// Lifetime bounds every run; cancelling it aborts runs in flight.
	Lifetime context.Context
}

func NewEvaluationService(params ServiceParams) *EvaluationService {
	s := &EvaluationService{
		stager:         params.Stager,
		runner:         params.Runner,
		mock:           params.Mock,
		aggregator:     params.Aggregator,
		coordinator:    params.Coordinator,
		maxUploadBytes: params.MaxUploadBytes,
		lifetime:       params.Lifetime,
	}
	if s.coordinator == nil {
		s.coordinator = jobs.NewCoordinator()
	}
	if s.lifetime == nil {
		s.lifetime = context.Background()
	}
	if s.maxUploadBytes <= 0 {
		s.maxUploadBytes = DefaultMaxUploadBytes
	}
	return s
}

func (s *EvaluationService) AddRoutes(r chi.Router) {
	r.Get("/health", RestHandler(func(r *http.Request) (any, error) { return nil, nil }))

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(readTimeout))
			r.Get("/upload", RestHandler(s.ListUploads))
			r.Get("/results", RestHandler(s.GetResults))
		})

		// Runs are bounded by the producer's own timeout.
		r.Post("/upload", RestHandler(s.Upload))
		r.Post("/evaluate", RestHandler(s.Evaluate))
		r.Post("/mock-evaluate", RestHandler(s.MockEvaluate))
	})
}

func (s *EvaluationService) Upload(r *http.Request) (any, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemLimit); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, CodedErrorf(http.StatusRequestEntityTooLarge, "upload exceeds the %d byte limit", maxErr.Limit)
		}
		slog.Error("error parsing multipart form", "error", err)
		return nil, CodedErrorf(http.StatusBadRequest, "unable to parse multipart form")
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			slog.Warn("error removing multipart temp files", "error", err)
		}
	}()

	headers := r.MultipartForm.File[uploadFormField]
	if len(headers) == 0 {
		return nil, CodedErrorf(http.StatusBadRequest, "No files provided")
	}

	assets, closeAll, err := openAssets(headers)
	defer closeAll()
	if err != nil {
		return nil, CodedError(http.StatusInternalServerError, err)
	}

	var saved []string
	err = s.coordinator.Exclusive(r.Context(), "upload", func(ctx context.Context, op jobs.Operation) error {
		var err error
		saved, err = s.stager.ReplaceAll(assets)
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, jobs.ErrBusy):
			return nil, CodedError(http.StatusConflict, err)
		case errors.Is(err, dataset.ErrNoAssets):
			return nil, CodedErrorf(http.StatusBadRequest, "No files provided")
		case errors.Is(err, dataset.ErrInvalidAssetType), errors.Is(err, dataset.ErrInvalidAssetName):
			return nil, CodedError(http.StatusBadRequest, err)
		default:
			return nil, CodedError(http.StatusInternalServerError, err)
		}
	}

	slog.Info("replaced dataset", "files", len(saved))

	return api.UploadResponse{
		Success: true,
		Message: fmt.Sprintf("Uploaded %d files", len(saved)),
		Files:   saved,
	}, nil
}

func openAssets(headers []*multipart.FileHeader) ([]dataset.Asset, func(), error) {
	var files []multipart.File
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}

	assets := make([]dataset.Asset, 0, len(headers))
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			return nil, closeAll, fmt.Errorf("error opening uploaded file %s: %w", header.Filename, err)
		}
		files = append(files, f)
		assets = append(assets, dataset.Asset{Name: header.Filename, Content: f})
	}
	return assets, closeAll, nil
}

func (s *EvaluationService) ListUploads(r *http.Request) (any, error) {
	files, err := s.stager.ListCurrent()
	if err != nil {
		return nil, CodedError(http.StatusInternalServerError, err)
	}
	return api.ListUploadsResponse{Success: true, Files: files, Count: len(files)}, nil
}

func (s *EvaluationService) Evaluate(r *http.Request) (any, error) {
	req, err := ParseRequest[api.EvaluateRequest](r)
	if err != nil {
		return nil, err
	}

	res, err := s.produce(r.Context(), "evaluate", s.runner, req)
	if err != nil {
		return nil, err
	}

	return api.EvaluateResponse{Success: true, Output: res.Stdout, Stderr: res.Stderr}, nil
}

func (s *EvaluationService) MockEvaluate(r *http.Request) (any, error) {
	req, err := ParseRequest[api.EvaluateRequest](r)
	if err != nil {
		return nil, err
	}

	res, err := s.produce(r.Context(), "mock-evaluate", s.mock, req)
	if err != nil {
		return nil, err
	}

	return api.MockEvaluateResponse{Success: true, Output: res.Stdout, Message: res.Message}, nil
}

// produce runs p under the coordinator. The run is detached from the request
// so a disconnecting client does not leave half written artifacts behind, but
// it is still cancelled when the service lifetime ends.
func (s *EvaluationService) produce(ctx context.Context, name string, p producer.Producer, req api.EvaluateRequest) (*producer.Result, error) {
	preq := producer.Request{
		PipelineIdentifier: req.Pipeline(),
		OutputFilename:     req.Output(),
	}
	if err := preq.Validate(); err != nil {
		return nil, CodedError(http.StatusBadRequest, err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()
	stop := context.AfterFunc(s.lifetime, cancel)
	defer stop()

	var res *producer.Result
	err := s.coordinator.Exclusive(runCtx, name, func(ctx context.Context, op jobs.Operation) error {
		preq.JobId = op.Id
		var err error
		res, err = p.Produce(ctx, preq)
		return err
	})
	if err == nil {
		return res, nil
	}

	var perr *producer.ExternalProcessError
	switch {
	case s.lifetime.Err() != nil:
		err = fmt.Errorf("%s aborted, server is shutting down: %w", name, err)
		if errors.As(err, &perr) {
			return nil, CodedErrorWithOutput(http.StatusServiceUnavailable, err, perr.Stdout, perr.Stderr)
		}
		return nil, CodedError(http.StatusServiceUnavailable, err)
	case errors.Is(err, jobs.ErrBusy):
		return nil, CodedError(http.StatusConflict, err)
	case errors.Is(err, producer.ErrEmptyDataset), errors.Is(err, producer.ErrInvalidOutputFilename):
		return nil, CodedError(http.StatusBadRequest, err)
	case errors.As(err, &perr):
		return nil, CodedErrorWithOutput(http.StatusInternalServerError, err, perr.Stdout, perr.Stderr)
	default:
		return nil, CodedError(http.StatusInternalServerError, err)
	}
}

func (s *EvaluationService) GetResults(r *http.Request) (any, error) {
	params, err := ParseRequestQueryParams[api.ResultsParams](r)
	if err != nil {
		return nil, err
	}

	res, err := s.aggregator.Current(r.Context())
	if err != nil {
		return nil, CodedError(http.StatusInternalServerError, err)
	}

	return convertResults(res, params.OmitRaw), nil
}
