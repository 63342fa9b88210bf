package producer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"eval-backend/internal/artifacts"

	"github.com/google/uuid"
)

const (
	DefaultRunTimeout     = 600 * time.Second
	DefaultMaxOutputBytes = 10 * 1024 * 1024

	waitDelay = 5 * time.Second
)

// ExternalProcessError describes a pipeline run that did not complete
// successfully. Whatever output was captured before the failure is kept.
type ExternalProcessError struct {
	Stdout              string
	Stderr              string
	ExitCode            int
	TimedOut            bool
	OutputLimitExceeded bool
	Timeout             time.Duration
	OutputLimit         int
	Err                 error
}

func (e *ExternalProcessError) Error() string {
	switch {
	case e.TimedOut:
		return fmt.Sprintf("evaluation timed out after %v", e.Timeout)
	case e.OutputLimitExceeded:
		return fmt.Sprintf("evaluation output exceeded %d bytes", e.OutputLimit)
	case e.ExitCode >= 0:
		return fmt.Sprintf("evaluation script exited with code %d", e.ExitCode)
	default:
		return fmt.Sprintf("evaluation script failed: %v", e.Err)
	}
}

func (e *ExternalProcessError) Unwrap() error {
	return e.Err
}

type ProcessRunnerConfig struct {
	ScriptsDir     string
	Script         string
	OutputDir      string
	Builder        CommandBuilder
	Timeout        time.Duration
	MaxOutputBytes int

	// Publish, when set, receives the artifacts the script left in OutputDir
	// after a successful run.
	Publish *artifacts.Store
}

type ProcessRunner struct {
	scriptsDir     string
	script         string
	outputDir      string
	builder        CommandBuilder
	timeout        time.Duration
	maxOutputBytes int
	publish        *artifacts.Store
}

func NewProcessRunner(cfg ProcessRunnerConfig) *ProcessRunner {
	r := &ProcessRunner{
		scriptsDir:     cfg.ScriptsDir,
		script:         cfg.Script,
		outputDir:      cfg.OutputDir,
		builder:        cfg.Builder,
		timeout:        cfg.Timeout,
		maxOutputBytes: cfg.MaxOutputBytes,
		publish:        cfg.Publish,
	}
	if r.builder == nil {
		r.builder = NativeShell{}
	}
	if r.timeout <= 0 {
		r.timeout = DefaultRunTimeout
	}
	if r.maxOutputBytes <= 0 {
		r.maxOutputBytes = DefaultMaxOutputBytes
	}
	return r
}

func (r *ProcessRunner) Produce(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.JobId == uuid.Nil {
		req.JobId = uuid.New()
	}

	scriptPath := filepath.Join(r.scriptsDir, r.script)
	if abs, err := filepath.Abs(scriptPath); err == nil {
		scriptPath = abs
	}
	name, args := r.builder.Build(scriptPath, req.PipelineIdentifier, req.OutputFilename)

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	output := newCappedOutput(r.maxOutputBytes, cancel)

	cmd := exec.CommandContext(runCtx, name, args...)
	cmd.Dir = r.scriptsDir
	cmd.Env = os.Environ()
	cmd.Stdout = output.writer(&output.stdout)
	cmd.Stderr = output.writer(&output.stderr)
	cmd.WaitDelay = waitDelay
	configureProcess(cmd)

	slog.Info("starting evaluation", "job_id", req.JobId, "command", name, "args", strings.Join(args, " "), "dir", r.scriptsDir)
	start := time.Now()

	runErr := cmd.Run()
	stdout, stderr, exceeded := output.snapshot()

	if runErr != nil || exceeded {
		perr := &ExternalProcessError{
			Stdout:      stdout,
			Stderr:      stderr,
			ExitCode:    -1,
			Timeout:     r.timeout,
			OutputLimit: r.maxOutputBytes,
			Err:         runErr,
		}
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			perr.ExitCode = exitErr.ExitCode()
		}
		switch {
		case exceeded:
			perr.OutputLimitExceeded = true
		case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
			perr.TimedOut = true
		case ctx.Err() != nil:
			perr.Err = ctx.Err()
		}
		slog.Error("evaluation failed", "job_id", req.JobId, "exit_code", perr.ExitCode, "timed_out", perr.TimedOut,
			"output_limit_exceeded", perr.OutputLimitExceeded, "duration", time.Since(start), "error", runErr)
		return nil, perr
	}

	slog.Info("evaluation completed", "job_id", req.JobId, "duration", time.Since(start))

	if r.publish != nil {
		published, err := r.publish.Import(ctx, r.outputDir, artifacts.TimingReportName, artifacts.EvaluationReportName, artifacts.PredictionsName)
		if err != nil {
			slog.Error("error publishing artifacts", "job_id", req.JobId, "error", err)
			return nil, fmt.Errorf("error publishing artifacts: %w", err)
		}
		slog.Info("published artifacts", "job_id", req.JobId, "artifacts", published)
	}

	return &Result{Stdout: stdout, Stderr: stderr, Message: "Evaluation completed successfully"}, nil
}

// cappedOutput collects stdout and stderr separately while enforcing a single
// limit on their combined size. Crossing the limit calls onExceed once and
// discards everything after it.
type cappedOutput struct {
	mu       sync.Mutex
	limit    int
	total    int
	exceeded bool
	onExceed func()

	stdout bytes.Buffer
	stderr bytes.Buffer
}

func newCappedOutput(limit int, onExceed func()) *cappedOutput {
	return &cappedOutput{limit: limit, onExceed: onExceed}
}

func (o *cappedOutput) writer(buf *bytes.Buffer) *cappedWriter {
	return &cappedWriter{output: o, buf: buf}
}

func (o *cappedOutput) snapshot() (string, string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stdout.String(), o.stderr.String(), o.exceeded
}

type cappedWriter struct {
	output *cappedOutput
	buf    *bytes.Buffer
}

// Write never reports a short write so the copying goroutine inside exec keeps
// draining the pipe until the process is gone.
func (w *cappedWriter) Write(p []byte) (int, error) {
	o := w.output
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.exceeded {
		return len(p), nil
	}

	remaining := o.limit - o.total
	if len(p) > remaining {
		w.buf.Write(p[:remaining])
		o.total = o.limit
		o.exceeded = true
		if o.onExceed != nil {
			o.onExceed()
		}
		return len(p), nil
	}

	w.buf.Write(p)
	o.total += len(p)
	return len(p), nil
}
