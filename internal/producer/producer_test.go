package producer_test

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ctessum/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnubald/icenet/internal/adapter/netcdf"
	"github.com/bnubald/icenet/internal/domain"
	"github.com/bnubald/icenet/internal/producer"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := producer.New(producer.Config{
		Hemisphere: domain.HemisphereNorth,
		Path:       t.TempDir(),
	}, discardLogger())
	assert.ErrorContains(t, err, "no identifier")

	_, err = producer.New(producer.Config{
		Identifier: "osisaf",
		Path:       t.TempDir(),
	}, discardLogger())
	assert.ErrorContains(t, err, "hemisphere")

	_, err = producer.New(producer.Config{
		Identifier: "osisaf",
		Hemisphere: domain.HemisphereBoth,
		Path:       t.TempDir(),
	}, discardLogger())
	assert.ErrorContains(t, err, "hemisphere")
}

func TestNewCreatesBasePath(t *testing.T) {
	dir := t.TempDir()
	p, err := producer.New(producer.Config{
		Identifier: "osisaf",
		Hemisphere: domain.HemisphereSouth,
		Path:       dir,
	}, discardLogger())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "osisaf"), p.BasePath())
	assert.DirExists(t, p.BasePath())

	// Recreating over an existing tree is allowed.
	_, err = producer.New(producer.Config{
		Identifier: "osisaf",
		Hemisphere: domain.HemisphereSouth,
		Path:       dir,
	}, discardLogger())
	assert.NoError(t, err)
}

func TestDataVarFolder(t *testing.T) {
	dir := t.TempDir()
	p, err := producer.New(producer.Config{
		Identifier: "osisaf",
		Hemisphere: domain.HemisphereNorth,
		Path:       dir,
	}, discardLogger())
	require.NoError(t, err)

	got, err := p.DataVarFolder("siconca")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "osisaf", "north", "siconca"), got)
	assert.DirExists(t, got)
}

// touch creates an empty raw file, making parent directories as needed.
func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
}

func newTestProcessor(t *testing.T, src string, splits producer.DateSplits, filters []string) *producer.Processor {
	t.Helper()
	p, err := producer.NewProcessor(producer.ProcessorConfig{
		Config: producer.Config{
			Identifier: "osisaf",
			Hemisphere: domain.HemisphereNorth,
			Path:       t.TempDir(),
		},
		SourceData:  src,
		FileFilters: filters,
		Dates:       splits,
	}, discardLogger())
	require.NoError(t, err)
	return p
}

func TestInitSourceDataGroupsByVariable(t *testing.T) {
	src := t.TempDir()
	root := filepath.Join(src, "osisaf", "north")
	touch(t, filepath.Join(root, "siconca", "siconca_20200101.nc"))
	touch(t, filepath.Join(root, "siconca", "siconca_20200102.nc"))
	touch(t, filepath.Join(root, "siconca", "siconca_20200301.nc")) // outside splits
	touch(t, filepath.Join(root, "siconca", "README.txt"))          // no date suffix

	splits := producer.DateSplits{
		Train: []time.Time{time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
		Val:   []time.Time{time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)},
	}
	p := newTestProcessor(t, src, splits, nil)
	require.NoError(t, p.InitSourceData())

	files := p.VarFiles()["siconca"]
	require.Len(t, files, 2)
	assert.Contains(t, files[0], "siconca_20200101.nc")
	assert.Contains(t, files[1], "siconca_20200102.nc")
}

func TestInitSourceDataBareYearFallsBackToParentVar(t *testing.T) {
	src := t.TempDir()
	root := filepath.Join(src, "osisaf", "north")
	// Year-sharded layout: <var>/<year>/<var>_<date>.nc.
	touch(t, filepath.Join(root, "uas", "2020", "uas_20200101.nc"))

	splits := producer.DateSplits{
		Train: []time.Time{time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	p := newTestProcessor(t, src, splits, nil)
	require.NoError(t, p.InitSourceData())

	assert.Len(t, p.VarFiles()["uas"], 1)
	assert.NotContains(t, p.VarFiles(), "2020")
}

func TestInitSourceDataAppliesFileFilters(t *testing.T) {
	src := t.TempDir()
	root := filepath.Join(src, "osisaf", "north")
	touch(t, filepath.Join(root, "siconca", "siconca_20200101.nc"))
	touch(t, filepath.Join(root, "siconca", "latlon_siconca_20200101.nc"))

	splits := producer.DateSplits{
		Train: []time.Time{time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	p := newTestProcessor(t, src, splits, []string{"latlon_"})
	require.NoError(t, p.InitSourceData())

	files := p.VarFiles()["siconca"]
	require.Len(t, files, 1)
	assert.NotContains(t, files[0], "latlon_")
}

func TestInitSourceDataMissingRoot(t *testing.T) {
	p := newTestProcessor(t, t.TempDir(), producer.DateSplits{}, nil)
	assert.ErrorContains(t, p.InitSourceData(), "does not exist")
}

func TestSaveProcessedFile(t *testing.T) {
	p := newTestProcessor(t, t.TempDir(), producer.DateSplits{}, nil)
	grid := sparse.ZerosDense(2, 2)
	grid.Elements[0] = 0.5

	path, err := p.SaveProcessedFile("siconca", "siconca_20200601.nc", []string{"yc", "xc"}, grid)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, []string{path}, p.ProcessedFiles()["siconca"])

	got, err := netcdf.ReadVar(path, "siconca")
	require.NoError(t, err)
	assert.Equal(t, grid.Elements, got.Elements)

	// Registering the same path again is a warn-and-ignore no-op.
	again, err := p.SaveProcessedFile("siconca", "siconca_20200601.nc", []string{"yc", "xc"}, grid)
	require.NoError(t, err)
	assert.Equal(t, path, again)
	assert.Len(t, p.ProcessedFiles()["siconca"], 1)
}

func TestSaveProcessedFileDry(t *testing.T) {
	p, err := producer.NewProcessor(producer.ProcessorConfig{
		Config: producer.Config{
			Identifier: "osisaf",
			Hemisphere: domain.HemisphereNorth,
			Path:       t.TempDir(),
			Dry:        true,
		},
		SourceData: t.TempDir(),
	}, discardLogger())
	require.NoError(t, err)

	path, err := p.SaveProcessedFile("siconca", "siconca_20200601.nc", []string{"yc", "xc"}, sparse.ZerosDense(2, 2))
	require.NoError(t, err)
	assert.NoFileExists(t, path)
	assert.Equal(t, []string{path}, p.ProcessedFiles()["siconca"])
}

func TestDateSplits(t *testing.T) {
	d := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)
	s := producer.DateSplits{
		Train: []time.Time{d, d.AddDate(0, 0, 1)},
		Test:  []time.Time{d.AddDate(0, 1, 0)},
	}
	assert.Equal(t, 3, s.Total())
	assert.Len(t, s.ForName("train"), 2)
	assert.Empty(t, s.ForName("val"))
	assert.Len(t, s.ForName("test"), 1)
	assert.Nil(t, s.ForName("bogus"))
}
