package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Manifest is the generated dataset's config file, dataset_config.<name>.json.
// It records everything a consumer needs to read the batches back without
// reparsing the loader config.
type Manifest struct {
	Identifier   string `json:"identifier"`
	Hemisphere   string `json:"hemisphere"`
	LoaderConfig string `json:"loader_config"`

	// Path locates the dataset tree relative to the manifest file.
	Path string `json:"path"`

	Shape         [2]int   `json:"shape"`
	NumChannels   int      `json:"num_channels"`
	ChannelNames  []string `json:"channel_names"`
	NForecastDays int      `json:"n_forecast_days"`
	BatchSize     int      `json:"output_batch_size"`
	Lag           int      `json:"lag"`

	// Counts is the number of samples per split; Dates lists their target
	// dates in manifest format.
	Counts map[string]int      `json:"counts"`
	Dates  map[string][]string `json:"dates"`

	Generated time.Time `json:"generated"`
}

// ManifestFilename returns the conventional manifest name for a dataset.
func ManifestFilename(name string) string {
	return fmt.Sprintf("dataset_config.%s.json", name)
}

// ReadManifest loads a dataset manifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset config: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse dataset config %s: %w", path, err)
	}
	if m.BatchSize <= 0 {
		return nil, fmt.Errorf("dataset config %s: invalid output_batch_size %d", path, m.BatchSize)
	}
	return &m, nil
}

// Write persists the manifest as dataset_config.<identifier>.json in dir.
func (m *Manifest) Write(dir string) (string, error) {
	path := filepath.Join(dir, ManifestFilename(m.Identifier))
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode dataset config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write dataset config: %w", err)
	}
	return path, nil
}
