package loader_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnubald/icenet/internal/loader"
)

func TestManifestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := &loader.Manifest{
		Identifier:    "test_ds",
		Hemisphere:    "north",
		LoaderConfig:  filepath.Join(dir, "loader.test_ds.json"),
		Path:          filepath.Join("network_datasets", "test_ds", "north"),
		Shape:         [2]int{4, 4},
		NumChannels:   9,
		ChannelNames:  []string{"siconca_lag_2", "siconca_lag_1", "siconca_lag_0", "cos", "sin", "land"},
		NForecastDays: 3,
		BatchSize:     2,
		Lag:           2,
		Counts:        map[string]int{"train": 4, "val": 2, "test": 2},
		Dates:         map[string][]string{"test": {"2020_03_01", "2020_03_02"}},
		Generated:     time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	path, err := m.Write(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, loader.ManifestFilename("test_ds")), path)

	got, err := loader.ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, m.Identifier, got.Identifier)
	assert.Equal(t, m.ChannelNames, got.ChannelNames)
	assert.Equal(t, m.Counts, got.Counts)
	assert.True(t, m.Generated.Equal(got.Generated))
}

func TestReadManifestRejectsBadBatchSize(t *testing.T) {
	dir := t.TempDir()
	m := &loader.Manifest{Identifier: "broken"}
	path, err := m.Write(dir)
	require.NoError(t, err)

	_, err = loader.ReadManifest(path)
	assert.ErrorContains(t, err, "output_batch_size")
}
