//go:build !windows

package producer_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"eval-backend/internal/artifacts"
	"eval-backend/internal/producer"
	"eval-backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, body string) string {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run.sh"), []byte(body), 0755))
	return dir
}

func newRunner(dir string, cfg producer.ProcessRunnerConfig) *producer.ProcessRunner {
	cfg.ScriptsDir = dir
	cfg.Script = "run.sh"
	cfg.Builder = producer.NativeShell{Shell: "sh"}
	return producer.NewProcessRunner(cfg)
}

func TestProcessRunnerSuccess(t *testing.T) {
	t.Setenv("EVAL_TEST_MARKER", "inherited")

	dir := writeScript(t, `echo "args: $1 $2"
echo "env: $EVAL_TEST_MARKER"
pwd
echo "warning" >&2
`)
	runner := newRunner(dir, producer.ProcessRunnerConfig{})

	res, err := runner.Produce(context.Background(), producer.Request{PipelineIdentifier: "img:latest", OutputFilename: "out.csv"})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(res.Stdout), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "args: img:latest out.csv", lines[0])
	assert.Equal(t, "env: inherited", lines[1])

	expectedDir, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	actualDir, err := filepath.EvalSymlinks(lines[2])
	require.NoError(t, err)
	assert.Equal(t, expectedDir, actualDir)

	assert.Equal(t, "warning\n", res.Stderr)
	assert.NotEmpty(t, res.Message)
}

func TestProcessRunnerNonZeroExit(t *testing.T) {
	dir := writeScript(t, "echo out\necho err >&2\nexit 3\n")
	runner := newRunner(dir, producer.ProcessRunnerConfig{})

	_, err := runner.Produce(context.Background(), producer.Request{})
	var perr *producer.ExternalProcessError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 3, perr.ExitCode)
	assert.False(t, perr.TimedOut)
	assert.Equal(t, "out\n", perr.Stdout)
	assert.Equal(t, "err\n", perr.Stderr)
}

func TestProcessRunnerMissingScript(t *testing.T) {
	runner := producer.NewProcessRunner(producer.ProcessRunnerConfig{
		ScriptsDir: t.TempDir(),
		Script:     "run.sh",
		Builder:    producer.NativeShell{Shell: "eval-backend-no-such-shell"},
	})

	_, err := runner.Produce(context.Background(), producer.Request{})
	var perr *producer.ExternalProcessError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, -1, perr.ExitCode)
}

func TestProcessRunnerTimeoutKillsProcessGroup(t *testing.T) {
	dir := writeScript(t, "echo started\nsleep 30 &\nsleep 30\n")
	runner := newRunner(dir, producer.ProcessRunnerConfig{Timeout: 300 * time.Millisecond})

	start := time.Now()
	_, err := runner.Produce(context.Background(), producer.Request{})
	elapsed := time.Since(start)

	var perr *producer.ExternalProcessError
	require.ErrorAs(t, err, &perr)
	assert.True(t, perr.TimedOut)
	assert.Equal(t, "started\n", perr.Stdout)
	assert.Less(t, elapsed, 10*time.Second)
}

func TestProcessRunnerOutputLimit(t *testing.T) {
	dir := writeScript(t, "while true; do echo 0123456789; done\n")
	runner := newRunner(dir, producer.ProcessRunnerConfig{MaxOutputBytes: 1000, Timeout: 20 * time.Second})

	_, err := runner.Produce(context.Background(), producer.Request{})
	var perr *producer.ExternalProcessError
	require.ErrorAs(t, err, &perr)
	assert.True(t, perr.OutputLimitExceeded)
	assert.False(t, perr.TimedOut)
	assert.Len(t, perr.Stdout, 1000)
}

func TestProcessRunnerOutputLimitSharedByStreams(t *testing.T) {
	dir := writeScript(t, `head -c 600 /dev/zero | tr '\0' o
head -c 600 /dev/zero | tr '\0' e >&2
sleep 30
`)
	runner := newRunner(dir, producer.ProcessRunnerConfig{MaxOutputBytes: 1000, Timeout: 20 * time.Second})

	start := time.Now()
	_, err := runner.Produce(context.Background(), producer.Request{})
	elapsed := time.Since(start)

	var perr *producer.ExternalProcessError
	require.ErrorAs(t, err, &perr)
	assert.True(t, perr.OutputLimitExceeded)
	assert.False(t, perr.TimedOut)
	assert.Equal(t, 1000, len(perr.Stdout)+len(perr.Stderr))
	assert.NotEmpty(t, perr.Stdout)
	assert.NotEmpty(t, perr.Stderr)
	assert.Empty(t, strings.Trim(perr.Stdout, "o"))
	assert.Empty(t, strings.Trim(perr.Stderr, "e"))
	assert.Less(t, elapsed, 10*time.Second)
}

func TestProcessRunnerPublishesArtifacts(t *testing.T) {
	outputDir := t.TempDir()
	t.Setenv("EVAL_TEST_OUTPUT", outputDir)

	dir := writeScript(t, `echo '{"num_test_files": 1}' > "$EVAL_TEST_OUTPUT/timing_results.json"
printf 'filename,predicted_class,confidence\na.tif,cloud,0.9\n' > "$EVAL_TEST_OUTPUT/predictions.csv"
`)

	storeDir := t.TempDir()
	store := artifacts.NewStore(storage.NewLocalProvider(storeDir), "output")
	runner := newRunner(dir, producer.ProcessRunnerConfig{OutputDir: outputDir, Publish: store})

	_, err := runner.Produce(context.Background(), producer.Request{})
	require.NoError(t, err)

	data, err := store.Read(context.Background(), artifacts.TimingReportName)
	require.NoError(t, err)
	assert.Contains(t, string(data), "num_test_files")

	_, err = store.Read(context.Background(), artifacts.PredictionsName)
	require.NoError(t, err)

	_, err = store.Read(context.Background(), artifacts.EvaluationReportName)
	assert.ErrorIs(t, err, artifacts.ErrMissing)
}
