package loader_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnubald/icenet/internal/loader"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadRecipe(t *testing.T) {
	recipeYAML := `
identifier: test_ds
shape: [432, 432]
ground_truth: siconca
sources:
  - name: osisaf
    vars: [siconca]
    file_filters: [latlon_]
splits:
  train:
    start: 2020-1-1
    end: 2020-1-10
  val:
    start: 2020-2-1
    end: 2020-2-3
  test:
    start: 2020-3-1
    end: 2020-3-2
`
	path := writeFile(t, t.TempDir(), "recipe.yaml", recipeYAML)

	r, err := loader.ReadRecipe(path)
	require.NoError(t, err)
	assert.Equal(t, "test_ds", r.Identifier)
	assert.Equal(t, [2]int{432, 432}, r.Shape)
	require.Len(t, r.Sources, 1)
	assert.Equal(t, "osisaf", r.Sources[0].Name)
	assert.Equal(t, []string{"latlon_"}, r.Sources[0].FileFilters)
	assert.Equal(t, "2020-1-1", r.Splits.Train.Start)
}

func TestReadRecipeValidation(t *testing.T) {
	dir := t.TempDir()

	noID := writeFile(t, dir, "noid.yaml", "sources:\n  - name: osisaf\n")
	_, err := loader.ReadRecipe(noID)
	assert.ErrorContains(t, err, "identifier")

	noSources := writeFile(t, dir, "nosrc.yaml", "identifier: x\n")
	_, err = loader.ReadRecipe(noSources)
	assert.ErrorContains(t, err, "source")

	_, err = loader.ReadRecipe(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestConfigWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := &loader.Config{
		Identifier:  "test_ds",
		Hemisphere:  "north",
		Shape:       [2]int{4, 4},
		GroundTruth: "siconca",
		Sources: map[string]loader.Source{
			"osisaf": {
				VarFiles: map[string][]string{
					"siconca": {"/src/north/siconca/siconca_20200101.nc"},
				},
				Dates: map[string][]string{
					"train": {"2020_01_01"},
					"test":  {"2020_03_01"},
				},
			},
		},
	}

	path, err := cfg.Write(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, loader.ConfigFilename("test_ds")), path)

	got, err := loader.ReadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Identifier, got.Identifier)
	assert.Equal(t, cfg.Shape, got.Shape)
	assert.Equal(t, cfg.Sources["osisaf"].VarFiles, got.Sources["osisaf"].VarFiles)
}

func TestReadConfigValidation(t *testing.T) {
	dir := t.TempDir()

	noSources := writeFile(t, dir, "loader.empty.json",
		`{"identifier":"empty","hemisphere":"north","shape":[4,4],"sources":{}}`)
	_, err := loader.ReadConfig(noSources)
	assert.ErrorContains(t, err, "no sources")

	badShape := writeFile(t, dir, "loader.bad.json",
		`{"identifier":"bad","hemisphere":"north","shape":[0,4],"sources":{"s":{}}}`)
	_, err = loader.ReadConfig(badShape)
	assert.ErrorContains(t, err, "invalid shape")
}

func TestSplitDatesDeduplicatesAcrossSources(t *testing.T) {
	cfg := &loader.Config{
		Identifier: "test_ds",
		Hemisphere: "north",
		Shape:      [2]int{4, 4},
		Sources: map[string]loader.Source{
			"osisaf": {Dates: map[string][]string{"train": {"2020_01_02", "2020_01_01"}}},
			"era5":   {Dates: map[string][]string{"train": {"2020_01_01"}}},
		},
	}

	splits, err := cfg.SplitDates()
	require.NoError(t, err)
	require.Len(t, splits.Train, 2)
	assert.True(t, splits.Train[0].Equal(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, splits.Train[1].Equal(time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)))
	assert.Empty(t, splits.Val)
	assert.Empty(t, splits.Test)
}

func TestSplitDatesRejectsBadDates(t *testing.T) {
	cfg := &loader.Config{
		Sources: map[string]loader.Source{
			"osisaf": {Dates: map[string][]string{"train": {"2020-01-01"}}},
		},
	}
	_, err := cfg.SplitDates()
	assert.Error(t, err)
}
