package producer

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"eval-backend/internal/artifacts"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const DefaultMockDelay = 2 * time.Second

var mockClasses = []string{"cloud", "haze", "smoke", "clear"}

type MockGeneratorConfig struct {
	Delay time.Duration
	// Rand seeds the generator; a time seeded source is used when nil.
	Rand *rand.Rand
}

// MockGenerator fabricates a plausible set of artifacts for the staged dataset
// without running the pipeline.
type MockGenerator struct {
	assets AssetLister
	store  *artifacts.Store
	delay  time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

func NewMockGenerator(assets AssetLister, store *artifacts.Store, cfg MockGeneratorConfig) *MockGenerator {
	rng := cfg.Rand
	if rng == nil {
		now := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(now, now>>1))
	}
	return &MockGenerator{assets: assets, store: store, delay: cfg.Delay, rng: rng}
}

type mockRun struct {
	predictions [][]string
	timing      *artifacts.TimingReport
	f1          float64
	numParams   int
}

func (g *MockGenerator) Produce(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	files, err := g.assets.ListCurrent()
	if err != nil {
		return nil, fmt.Errorf("error listing dataset: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrEmptyDataset
	}

	pipeline := req.pipelineOrDefault()
	predictionsFile := req.outputFilenameOrDefault()

	slog.Info("generating mock evaluation", "job_id", req.JobId, "pipeline", pipeline, "files", len(files))
	time.Sleep(g.delay)

	run := g.draw(files, pipeline)

	// Results always read the well-known predictions file, so a run writing
	// elsewhere must not leave the previous run's predictions behind.
	if predictionsFile != artifacts.PredictionsName {
		if err := g.store.Remove(ctx, artifacts.PredictionsName); err != nil {
			return nil, err
		}
	}

	predictions, err := artifacts.EncodeTable(artifacts.PredictionsHeaders, run.predictions)
	if err != nil {
		return nil, err
	}
	if err := g.store.Write(ctx, predictionsFile, predictions); err != nil {
		return nil, err
	}

	timing, err := artifacts.EncodeTimingReport(run.timing)
	if err != nil {
		return nil, err
	}
	if err := g.store.Write(ctx, artifacts.TimingReportName, timing); err != nil {
		return nil, err
	}

	evaluation, err := artifacts.EncodeTable(artifacts.EvaluationHeaders, [][]string{{
		formatScore(run.f1),
		strconv.Itoa(run.numParams),
		formatScore(run.f1 + 0.02),
		formatScore(run.f1 + 0.01),
		formatScore(run.f1 - 0.01),
	}})
	if err != nil {
		return nil, err
	}
	if err := g.store.Write(ctx, artifacts.EvaluationReportName, evaluation); err != nil {
		return nil, err
	}

	slog.Info("mock evaluation complete", "job_id", req.JobId, "files", len(files))

	return &Result{
		Stdout:  mockLog(pipeline, predictionsFile, files, run),
		Message: "Mock evaluation completed successfully",
	}, nil
}

func (g *MockGenerator) draw(files []string, pipeline string) mockRun {
	g.mu.Lock()
	defer g.mu.Unlock()

	uniform := func(lo, hi float64) float64 {
		return lo + g.rng.Float64()*(hi-lo)
	}

	rows := make([][]string, 0, len(files))
	for _, file := range files {
		class := mockClasses[g.rng.IntN(len(mockClasses))]
		rows = append(rows, []string{file, class, formatScore(uniform(0.70, 1.00))})
	}

	total := uniform(5.5, 7.5)
	first := uniform(1.2, 1.5)
	last := total - 0.5

	timing := &artifacts.TimingReport{
		ModelName:    pipeline,
		NumTestFiles: artifacts.NumberFromInt(len(files)),
		FullEvaluation: artifacts.FullEvaluation{
			TotalTime:             artifacts.NumberOf(total, 2),
			TimeToFirstPrediction: artifacts.NumberOf(first, 2),
			TimeToLastPrediction:  artifacts.NumberOf(last, 2),
			Throughput:            artifacts.NumberOf(float64(len(files))/last, 2),
		},
		Details: artifacts.TimingDetails{
			ContainerStartupTime: artifacts.NumberOf(uniform(0.3, 0.8), 2),
			ModelLoadTime:        artifacts.NumberOf(uniform(0.5, 0.9), 2),
			InferenceTime:        artifacts.NumberOf(last-first, 2),
		},
	}

	return mockRun{
		predictions: rows,
		timing:      timing,
		f1:          math.Round(uniform(0.85, 0.97)*1e4) / 1e4,
		numParams:   20_000_000 + g.rng.IntN(5_000_000),
	}
}

func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}

func mockLog(pipeline, predictionsFile string, files []string, run mockRun) string {
	const rule = "=========================================="

	throughput, _ := run.timing.FullEvaluation.Throughput.String()
	printer := message.NewPrinter(language.English)

	var b strings.Builder
	fmt.Fprintf(&b, "%s\nComplete Docker Evaluation Pipeline\n%s\n", rule, rule)
	fmt.Fprintf(&b, "Image: %s\nPredictions file: %s\n\n", pipeline, predictionsFile)
	fmt.Fprintf(&b, "Step 1/2: Running Docker evaluation...\nLoading model...\nProcessing %d images...\n", len(files))
	for i, file := range files {
		fmt.Fprintf(&b, "  [%d/%d] %s\n", i+1, len(files), file)
	}
	b.WriteString("Evaluation complete\n\n")
	b.WriteString("Step 2/2: Computing metrics...\nComputing F1 score...\nCounting parameters...\nMetrics computed\n\n")
	fmt.Fprintf(&b, "%s\nEVALUATION RESULTS\n%s\n", rule, rule)
	fmt.Fprintf(&b, "Model Name: %s\n", pipeline)
	fmt.Fprintf(&b, "Number of Test Images: %d\n", len(files))
	fmt.Fprintf(&b, "Throughput: %s files/second\n", throughput)
	fmt.Fprintf(&b, "Weighted F1 Score: %s\n", formatScore(run.f1))
	b.WriteString(printer.Sprintf("Model Size: %d parameters\n", run.numParams))
	b.WriteString(rule)
	return b.String()
}
