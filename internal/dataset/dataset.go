// Package dataset reads generated datasets back: manifest, split file
// discovery, batch decoding and flat-index sample lookup.
package dataset

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/bnubald/icenet/internal/adapter/netcdf"
	"github.com/bnubald/icenet/internal/domain"
	"github.com/bnubald/icenet/internal/loader"
	"github.com/bnubald/icenet/internal/producer"
)

// DataSet exposes a generated dataset through its manifest.
type DataSet struct {
	manifest *loader.Manifest
	baseDir  string
	logger   *slog.Logger
}

// Open loads the dataset manifest at configPath. The dataset tree is
// resolved relative to the manifest's directory.
func Open(configPath string, logger *slog.Logger) (*DataSet, error) {
	m, err := loader.ReadManifest(configPath)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DataSet{
		manifest: m,
		baseDir:  filepath.Dir(configPath),
		logger:   logger,
	}, nil
}

// Identifier returns the dataset name.
func (d *DataSet) Identifier() string { return d.manifest.Identifier }

// Shape returns the grid shape samples were generated on.
func (d *DataSet) Shape() domain.GridShape {
	return domain.GridShape{Height: d.manifest.Shape[0], Width: d.manifest.Shape[1]}
}

// NumChannels returns the input channel count.
func (d *DataSet) NumChannels() int { return d.manifest.NumChannels }

// NForecastDays returns the forecast horizon in days.
func (d *DataSet) NForecastDays() int { return d.manifest.NForecastDays }

// BatchSize returns the generation batch size, which fixes the flat-index
// arithmetic for sample lookup.
func (d *DataSet) BatchSize() int { return d.manifest.BatchSize }

// ChannelNames returns the input plane names in channel order.
func (d *DataSet) ChannelNames() []string { return d.manifest.ChannelNames }

// Hemisphere returns the dataset's hemisphere.
func (d *DataSet) Hemisphere() (domain.Hemisphere, error) {
	return domain.ParseHemisphere(d.manifest.Hemisphere)
}

// LoaderConfigPath returns the loader config the dataset was generated from.
func (d *DataSet) LoaderConfigPath() string { return d.manifest.LoaderConfig }

// SplitDir returns the directory holding a split's batch files.
func (d *DataSet) SplitDir(split string) string {
	return filepath.Join(d.baseDir, d.manifest.Path, split)
}

// SplitFiles lists a split's batch files in batch order.
func (d *DataSet) SplitFiles(split string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(d.SplitDir(split), "*.nc"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// Splits returns the batch files of all three splits, optionally reduced.
// A ratio in (0, 1] truncates each split's file list proportionally; zero
// disables reduction and anything above 1 is an error. Finding no files at
// all is an error: the dataset was never generated.
func (d *DataSet) Splits(ratio float64) (train, val, test []string, err error) {
	if ratio > 1 {
		return nil, nil, nil, errors.New("ratio cannot be more than 1")
	}

	lists := make([][]string, len(producer.SplitNames))
	for i, split := range producer.SplitNames {
		lists[i], err = d.SplitFiles(split)
		if err != nil {
			return nil, nil, nil, err
		}
	}
	train, val, test = lists[0], lists[1], lists[2]

	if len(train)+len(val)+len(test) == 0 {
		return nil, nil, nil, errors.New("no dataset files found, abandoning")
	}
	d.logger.Info("dataset files",
		"train", len(train), "val", len(val), "test", len(test))

	if ratio > 0 {
		train = reduce(train, ratio)
		val = reduce(val, ratio)
		test = reduce(test, ratio)
		d.logger.Info("reduced dataset files", "ratio", ratio,
			"train", len(train), "val", len(val), "test", len(test))
	}
	return train, val, test, nil
}

// reduce truncates to ratio of the files, keeping everything when the
// truncated count would be zero.
func reduce(files []string, ratio float64) []string {
	idx := int(float64(len(files)) * ratio)
	if idx > 0 {
		return files[:idx]
	}
	return files
}

// Dates returns a split's target dates as recorded in the manifest.
func (d *DataSet) Dates(split string) ([]time.Time, error) {
	enc := d.manifest.Dates[split]
	out := make([]time.Time, len(enc))
	for i, s := range enc {
		t, err := time.Parse(domain.ManifestDateFormat, s)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: bad %s date %q: %w", d.Identifier(), split, s, err)
		}
		out[i] = t
	}
	return out, nil
}

// Sample fetches the idx-th sample of a split by locating its batch file
// with integer division against the generation batch size and indexing the
// remainder inside it.
func (d *DataSet) Sample(split string, idx int) (domain.Sample, error) {
	if idx < 0 {
		return domain.Sample{}, fmt.Errorf("sample index %d out of range", idx)
	}
	files, err := d.SplitFiles(split)
	if err != nil {
		return domain.Sample{}, err
	}

	batchIdx := idx / d.BatchSize()
	itemIdx := idx % d.BatchSize()
	if batchIdx >= len(files) {
		return domain.Sample{}, fmt.Errorf(
			"sample index %d needs batch %d but %s split has %d files",
			idx, batchIdx, split, len(files))
	}

	samples, err := netcdf.ReadBatch(files[batchIdx])
	if err != nil {
		return domain.Sample{}, err
	}
	if itemIdx >= len(samples) {
		return domain.Sample{}, fmt.Errorf(
			"sample index %d is item %d of batch %d, which holds %d samples",
			idx, itemIdx, batchIdx, len(samples))
	}
	return samples[itemIdx], nil
}

// Check decodes every batch file of a split and validates shapes against
// the manifest, reporting all problems found.
func (d *DataSet) Check(split string) error {
	files, err := d.SplitFiles(split)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("%s split has no batch files", split)
	}

	shape := d.Shape()
	var problems []error
	for _, f := range files {
		samples, err := netcdf.ReadBatch(f)
		if err != nil {
			problems = append(problems, err)
			continue
		}
		for i, s := range samples {
			if err := d.checkSample(s, shape); err != nil {
				problems = append(problems, fmt.Errorf("%s sample %d: %w", f, i, err))
			}
		}
		d.logger.Debug("checked batch file", "file", f, "samples", len(samples))
	}
	return errors.Join(problems...)
}

func (d *DataSet) checkSample(s domain.Sample, shape domain.GridShape) error {
	wantX := []int{shape.Height, shape.Width, d.NumChannels()}
	wantY := []int{shape.Height, shape.Width, d.NForecastDays(), 1}
	if !shapeEqual(s.X.Shape, wantX) {
		return fmt.Errorf("x shape %v, want %v", s.X.Shape, wantX)
	}
	if !shapeEqual(s.Y.Shape, wantY) {
		return fmt.Errorf("y shape %v, want %v", s.Y.Shape, wantY)
	}
	if !shapeEqual(s.Weights.Shape, wantY) {
		return fmt.Errorf("sample_weights shape %v, want %v", s.Weights.Shape, wantY)
	}
	return nil
}

func shapeEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// NewLoader builds a loader over this dataset's loader config, for
// assembling fresh prediction samples consistent with the generated data.
func (d *DataSet) NewLoader(factory *loader.Factory, impl string, logger *slog.Logger) (loader.Loader, error) {
	opts := loader.Options{
		ConfigPath:   d.LoaderConfigPath(),
		Name:         d.Identifier(),
		Lag:          d.manifest.Lag,
		ForecastDays: d.NForecastDays(),
		BatchSize:    d.BatchSize(),
		OutputPath:   d.baseDir,
	}
	return factory.Create(impl, opts, logger, nil)
}
