package dataset_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"eval-backend/internal/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assets(names ...string) []dataset.Asset {
	out := make([]dataset.Asset, 0, len(names))
	for _, name := range names {
		out = append(out, dataset.Asset{Name: name, Content: strings.NewReader("data:" + name)})
	}
	return out
}

func newStager(t *testing.T) *dataset.Stager {
	t.Helper()
	return dataset.NewStager(filepath.Join(t.TempDir(), "test_data"))
}

func TestListCurrentEmpty(t *testing.T) {
	stager := newStager(t)

	names, err := stager.ListCurrent()
	require.NoError(t, err)
	assert.Empty(t, names)
	assert.NotNil(t, names)
}

func TestReplaceAll(t *testing.T) {
	stager := newStager(t)

	saved, err := stager.ReplaceAll(assets("b.tif", "a.TIFF"))
	require.NoError(t, err)
	assert.Equal(t, []string{"b.tif", "a.TIFF"}, saved)

	names, err := stager.ListCurrent()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.TIFF", "b.tif"}, names)

	data, err := os.ReadFile(filepath.Join(stager.Dir(), "b.tif"))
	require.NoError(t, err)
	assert.Equal(t, "data:b.tif", string(data))
}

func TestReplaceAllDiscardsPrevious(t *testing.T) {
	stager := newStager(t)

	_, err := stager.ReplaceAll(assets("one.tif", "two.tif", "shared.tif"))
	require.NoError(t, err)

	_, err = stager.ReplaceAll(assets("three.tiff", "shared.tif"))
	require.NoError(t, err)

	names, err := stager.ListCurrent()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"three.tiff", "shared.tif"}, names)

	// no leftover incoming/retired directories next to the staging dir
	siblings, err := os.ReadDir(filepath.Dir(stager.Dir()))
	require.NoError(t, err)
	require.Len(t, siblings, 1)
	assert.Equal(t, "test_data", siblings[0].Name())
}

func TestReplaceAllRejectsInvalidType(t *testing.T) {
	stager := newStager(t)

	_, err := stager.ReplaceAll(assets("keep.tif"))
	require.NoError(t, err)

	saved, err := stager.ReplaceAll(assets("new1.tif", "image.png", "new2.tif"))
	require.Error(t, err)
	assert.Nil(t, saved)
	assert.ErrorIs(t, err, dataset.ErrInvalidAssetType)
	assert.Contains(t, err.Error(), "image.png")

	names, err := stager.ListCurrent()
	require.NoError(t, err)
	assert.Equal(t, []string{"keep.tif"}, names)

	siblings, err := os.ReadDir(filepath.Dir(stager.Dir()))
	require.NoError(t, err)
	assert.Len(t, siblings, 1)
}

func TestReplaceAllRejectsPathNames(t *testing.T) {
	stager := newStager(t)

	for _, name := range []string{"../escape.tif", "nested/x.tif", `win\x.tif`, ""} {
		_, err := stager.ReplaceAll(assets(name))
		assert.ErrorIs(t, err, dataset.ErrInvalidAssetName, name)
	}

	names, err := stager.ListCurrent()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestReplaceAllNoAssets(t *testing.T) {
	stager := newStager(t)

	_, err := stager.ReplaceAll(nil)
	assert.ErrorIs(t, err, dataset.ErrNoAssets)
}

func TestListCurrentFiltersExtensions(t *testing.T) {
	stager := newStager(t)
	require.NoError(t, os.MkdirAll(stager.Dir(), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(stager.Dir(), "a.tif"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(stager.Dir(), "notes.txt"), nil, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(stager.Dir(), "sub.tif"), 0o755))

	names, err := stager.ListCurrent()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.tif"}, names)
}
