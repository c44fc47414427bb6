// Package predict runs a forecast network over dataset samples and stores
// the forecasts for later evaluation.
package predict

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ctessum/sparse"

	"github.com/bnubald/icenet/internal/adapter/netcdf"
	"github.com/bnubald/icenet/internal/dataset"
	"github.com/bnubald/icenet/internal/domain"
	"github.com/bnubald/icenet/internal/loader"
	"github.com/bnubald/icenet/internal/model"
)

// Options configures a prediction run.
type Options struct {
	// OutputName names the prediction run under the results tree.
	OutputName string
	// ResultsPath is the results root; forecasts land under
	// <ResultsPath>/predict/<OutputName>/<network>.<seed>/.
	ResultsPath string

	// TestSet replays samples already generated in the dataset's test split
	// instead of assembling fresh ones.
	TestSet bool
	// SaveInputs also stores each sample's input planes next to the
	// forecast.
	SaveInputs bool

	// LoaderImpl picks the loader implementation for fresh-sample
	// assembly; defaults to "standard".
	LoaderImpl string
}

// Runner drives predictions for one network over one dataset.
type Runner struct {
	ds      *dataset.DataSet
	net     model.Network
	factory *loader.Factory
	opts    Options
	logger  *slog.Logger
}

// NewRunner wires a prediction runner. OutputName and ResultsPath are
// required.
func NewRunner(ds *dataset.DataSet, net model.Network, factory *loader.Factory, opts Options, logger *slog.Logger) (*Runner, error) {
	if opts.OutputName == "" {
		return nil, fmt.Errorf("prediction output name is required")
	}
	if opts.ResultsPath == "" {
		return nil, fmt.Errorf("results path is required")
	}
	if opts.LoaderImpl == "" {
		opts.LoaderImpl = "standard"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{ds: ds, net: net, factory: factory, opts: opts, logger: logger}, nil
}

// OutputDir returns the directory forecasts are written to.
func (r *Runner) OutputDir() string {
	return filepath.Join(r.opts.ResultsPath, "predict", r.opts.OutputName,
		fmt.Sprintf("%s.%d", r.net.Name(), r.net.Seed()))
}

// Run predicts every requested date and writes one forecast file per date.
func (r *Runner) Run(ctx context.Context, dates []time.Time) error {
	if len(dates) == 0 {
		return fmt.Errorf("no forecast dates given")
	}
	if _, err := os.Stat(r.OutputDir()); err == nil {
		r.logger.Warn("forecast output directory already exists, files may be overwritten",
			"dir", r.OutputDir())
	}
	if err := os.MkdirAll(r.OutputDir(), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	var ldr loader.Loader
	if !r.opts.TestSet {
		var err error
		ldr, err = r.ds.NewLoader(r.factory, r.opts.LoaderImpl, r.logger)
		if err != nil {
			return fmt.Errorf("build loader for fresh samples: %w", err)
		}
	}

	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			return err
		}
		sample, err := r.sampleFor(ctx, ldr, date)
		if err != nil {
			return err
		}
		if err := r.predictOne(date, sample); err != nil {
			return err
		}
	}
	return nil
}

// sampleFor fetches the input sample for a date, either by replaying the
// test split or by assembling it fresh from source data.
func (r *Runner) sampleFor(ctx context.Context, ldr loader.Loader, date time.Time) (domain.Sample, error) {
	if !r.opts.TestSet {
		r.logger.Info("assembling fresh sample", "date", date.Format(domain.FileDateFormat))
		return ldr.GenerateSample(ctx, date, true)
	}

	testDates, err := r.ds.Dates("test")
	if err != nil {
		return domain.Sample{}, err
	}
	if len(testDates) == 0 {
		return domain.Sample{}, fmt.Errorf("dataset %s has no test split to replay", r.ds.Identifier())
	}
	idx := -1
	for i, d := range testDates {
		if d.Equal(date) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.Sample{}, fmt.Errorf(
			"date %s is not in the %s test split", date.Format(domain.FileDateFormat), r.ds.Identifier())
	}

	r.logger.Info("replaying test sample",
		"date", date.Format(domain.FileDateFormat),
		"index", idx,
		"batch", idx/r.ds.BatchSize(),
		"item", idx%r.ds.BatchSize())
	return r.ds.Sample("test", idx)
}

func (r *Runner) predictOne(date time.Time, sample domain.Sample) error {
	forecast, err := r.net.Predict(sample, r.ds.NForecastDays())
	if err != nil {
		return fmt.Errorf("predict %s: %w", date.Format(domain.FileDateFormat), err)
	}

	specs := []netcdf.VarSpec{
		{Name: "forecast", DimNames: []string{"yc", "xc", "leadtime", "n"}, Data: forecast},
	}
	if r.opts.SaveInputs {
		specs = append(specs, netcdf.VarSpec{
			Name: "inputs", DimNames: []string{"yc", "xc", "channel"}, Data: sample.X,
		})
	}

	path := ForecastPath(r.OutputDir(), date)
	if err := netcdf.WriteVars(path, specs); err != nil {
		return fmt.Errorf("write forecast for %s: %w", date.Format(domain.FileDateFormat), err)
	}
	r.logger.Info("wrote forecast", "date", date.Format(domain.FileDateFormat), "file", path)
	return nil
}

// ForecastPath names a stored forecast file for a date.
func ForecastPath(dir string, date time.Time) string {
	return filepath.Join(dir, date.Format(domain.ManifestDateFormat)+".nc")
}

// ReadForecast loads a stored forecast back, shaped (yc, xc, leadtime, n).
func ReadForecast(dir string, date time.Time) (*sparse.DenseArray, error) {
	arr, err := netcdf.ReadVar(ForecastPath(dir, date), "forecast")
	if err != nil {
		return nil, err
	}
	if len(arr.Shape) != 4 {
		return nil, fmt.Errorf("forecast for %s has shape %v, want 4 dims",
			date.Format(domain.FileDateFormat), arr.Shape)
	}
	return arr, nil
}
