package producer_test

import (
	"testing"

	"eval-backend/internal/producer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToShellPath(t *testing.T) {
	cases := []struct {
		path, mountRoot, expected string
	}{
		{`C:\git\project\scripts\run.sh`, "", "/c/git/project/scripts/run.sh"},
		{`C:\git\project`, "/mnt", "/mnt/c/git/project"},
		{`D:/data/images`, "/mnt/", "/mnt/d/data/images"},
		{`C:\`, "", "/c"},
		{`relative\scripts\run.sh`, "", "relative/scripts/run.sh"},
		{"/usr/local/bin/run.sh", "/mnt", "/usr/local/bin/run.sh"},
	}

	for _, c := range cases {
		assert.Equal(t, c.expected, producer.ToShellPath(c.path, c.mountRoot), c.path)
	}
}

func TestNativeShellBuild(t *testing.T) {
	name, args := producer.NativeShell{}.Build("/srv/scripts/complete_evaluation.sh", "img:latest", "out.csv")
	assert.Equal(t, "bash", name)
	assert.Equal(t, []string{"/srv/scripts/complete_evaluation.sh", "img:latest", "out.csv"}, args)

	name, _ = producer.NativeShell{Shell: "sh"}.Build("run.sh")
	assert.Equal(t, "sh", name)
}

func TestAlternateShellBuild(t *testing.T) {
	builder := producer.AlternateShell{}
	name, args := builder.Build(`C:\eval\scripts\complete_evaluation.sh`, "img:latest", "")
	assert.Equal(t, producer.DefaultAlternateShellPath, name)
	assert.Equal(t, []string{"/c/eval/scripts/complete_evaluation.sh", "img:latest", ""}, args)
}

func TestSelectCommandBuilder(t *testing.T) {
	builder, err := producer.SelectCommandBuilder("linux", producer.ShellOptions{Mode: producer.ShellModeAuto})
	require.NoError(t, err)
	assert.IsType(t, producer.NativeShell{}, builder)

	builder, err = producer.SelectCommandBuilder("windows", producer.ShellOptions{})
	require.NoError(t, err)
	assert.IsType(t, producer.AlternateShell{}, builder)

	builder, err = producer.SelectCommandBuilder("windows", producer.ShellOptions{Mode: producer.ShellModeNative, NativeShell: "sh"})
	require.NoError(t, err)
	assert.Equal(t, producer.NativeShell{Shell: "sh"}, builder)

	builder, err = producer.SelectCommandBuilder("darwin", producer.ShellOptions{Mode: producer.ShellModeAlternate, AlternatePath: "/opt/bash", MountRoot: "/mnt"})
	require.NoError(t, err)
	assert.Equal(t, producer.AlternateShell{Path: "/opt/bash", MountRoot: "/mnt"}, builder)

	_, err = producer.SelectCommandBuilder("linux", producer.ShellOptions{Mode: "powershell"})
	assert.Error(t, err)
}

func TestRequestValidate(t *testing.T) {
	valid := []string{"", "predictions.csv", "run_2.CSV"}
	for _, name := range valid {
		assert.NoError(t, producer.Request{OutputFilename: name}.Validate(), name)
	}

	invalid := []string{"../predictions.csv", "out/predictions.csv", `out\predictions.csv`, "predictions.txt", "eval_result.csv"}
	for _, name := range invalid {
		assert.ErrorIs(t, producer.Request{OutputFilename: name}.Validate(), producer.ErrInvalidOutputFilename, name)
	}
}
