package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/cheggaaa/pb"
	"golang.org/x/sync/errgroup"

	"github.com/bnubald/icenet/internal/adapter/netcdf"
	"github.com/bnubald/icenet/internal/domain"
	"github.com/bnubald/icenet/internal/mask"
	"github.com/bnubald/icenet/internal/observability"
	"github.com/bnubald/icenet/internal/producer"
)

// datasetsDir is the directory generated datasets live under, per dataset
// name and hemisphere.
const datasetsDir = "network_datasets"

// baseLoader implements sample assembly, batching and manifest writing.
// ParallelLoader and StandardLoader differ only in how many batches they
// build at once.
type baseLoader struct {
	cfg     *Config
	opts    Options
	hemi    domain.Hemisphere
	splits  producer.DateSplits
	asm     *assembler
	logger  *slog.Logger
	metrics *observability.Metrics
	workers int
	ready   atomic.Bool
}

func newBase(opts Options, logger *slog.Logger, metrics *observability.Metrics, workers int) (*baseLoader, error) {
	cfg, err := ReadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	hemi, err := domain.ParseHemisphere(cfg.Hemisphere)
	if err != nil {
		return nil, fmt.Errorf("loader config %s: %w", opts.ConfigPath, err)
	}
	if opts.Name == "" {
		opts.Name = cfg.Identifier
	}
	if opts.BatchSize <= 0 {
		return nil, fmt.Errorf("output batch size must be positive, got %d", opts.BatchSize)
	}
	if opts.ForecastDays <= 0 {
		return nil, fmt.Errorf("forecast days must be positive, got %d", opts.ForecastDays)
	}
	if opts.Lag < 0 {
		return nil, fmt.Errorf("lag must not be negative, got %d", opts.Lag)
	}

	splits, err := cfg.SplitDates()
	if err != nil {
		return nil, err
	}
	if opts.DatesOverride != nil && opts.DatesOverride.Total() > 0 {
		splits = *opts.DatesOverride
	}

	var masks *mask.Masks
	if mask.Exists(opts.OutputPath, hemi) {
		if masks, err = mask.Load(opts.OutputPath, hemi); err != nil {
			return nil, err
		}
	} else {
		logger.Warn("no masks generated for hemisphere, generating unweighted samples",
			"hemisphere", hemi.String())
	}

	asm, err := newAssembler(cfg, opts.Lag, opts.ForecastDays, masks)
	if err != nil {
		return nil, err
	}

	if metrics == nil {
		metrics = observability.NewMetricsForTesting()
	}

	return &baseLoader{
		cfg:     cfg,
		opts:    opts,
		hemi:    hemi,
		splits:  splits,
		asm:     asm,
		logger:  logger,
		metrics: metrics,
		workers: workers,
	}, nil
}

// DatasetDir returns the split directories' parent for this dataset.
func (b *baseLoader) DatasetDir() string {
	return filepath.Join(b.opts.OutputPath, datasetsDir, b.opts.Name, b.hemi.String())
}

// CheckReadiness reports readiness once the first batch has been written,
// for the optional status endpoint on long generation runs.
func (b *baseLoader) CheckReadiness(_ context.Context) error {
	if !b.ready.Load() {
		return errors.New("no batches written yet")
	}
	return nil
}

// GenerateSample assembles one sample outside the batch-writing flow.
func (b *baseLoader) GenerateSample(_ context.Context, date time.Time, prediction bool) (domain.Sample, error) {
	return b.asm.sample(date, prediction)
}

// Generate builds every split and writes the dataset manifest.
func (b *baseLoader) Generate(ctx context.Context) (*Manifest, error) {
	b.metrics.GenerationActive.Set(1)
	defer b.metrics.GenerationActive.Set(0)

	b.logger.Info("generating dataset",
		"name", b.opts.Name,
		"hemisphere", b.hemi.String(),
		"lag", b.opts.Lag,
		"forecast_days", b.opts.ForecastDays,
		"batch_size", b.opts.BatchSize,
		"workers", b.workers,
	)

	for _, split := range producer.SplitNames {
		if err := b.generateSplit(ctx, split); err != nil {
			return nil, fmt.Errorf("generate %s split: %w", split, err)
		}
	}

	return b.writeManifest()
}

// WriteConfigOnly emits the manifest without touching sample data.
func (b *baseLoader) WriteConfigOnly() (*Manifest, error) {
	return b.writeManifest()
}

func (b *baseLoader) generateSplit(ctx context.Context, split string) error {
	dates := b.splits.ForName(split)
	if len(dates) == 0 {
		b.logger.Info("split has no dates, skipping", "split", split)
		return nil
	}

	splitDir := filepath.Join(b.DatasetDir(), split)
	if !b.opts.Dry {
		if err := os.MkdirAll(splitDir, 0o755); err != nil {
			return err
		}
	}

	var bar *pb.ProgressBar
	if b.opts.Progress {
		bar = pb.StartNew(len(dates))
		defer bar.Finish()
	}

	batches := chunkDates(dates, b.opts.BatchSize)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	for bi, batchDates := range batches {
		g.Go(func() error {
			path := filepath.Join(splitDir, fmt.Sprintf("%08d.nc", bi))

			if b.opts.Pickup {
				if _, err := os.Stat(path); err == nil {
					b.logger.Debug("batch exists, picking up", "file", path)
					b.metrics.SamplesSkipped.Add(float64(len(batchDates)))
					advance(bar, len(batchDates))
					return nil
				}
			}

			batch := domain.Batch{Index: bi, Samples: make([]domain.Sample, 0, len(batchDates))}
			for _, d := range batchDates {
				if err := ctx.Err(); err != nil {
					return err
				}
				s, err := b.asm.sample(d, false)
				if err != nil {
					b.metrics.SampleFailures.Inc()
					return err
				}
				batch.Samples = append(batch.Samples, s)
				b.metrics.SamplesGenerated.Inc()
				advance(bar, 1)
			}

			if b.opts.Dry {
				return nil
			}

			start := time.Now()
			if err := netcdf.WriteBatch(path, batch); err != nil {
				return err
			}
			b.metrics.BatchWriteDuration.Observe(time.Since(start).Seconds())
			b.metrics.BatchesWritten.WithLabelValues(split).Inc()
			b.ready.Store(true)

			b.notify(ctx, split, path, batch)
			return nil
		})
	}

	return g.Wait()
}

// notify publishes a batch event when a notifier is configured. Publish
// failures are logged and counted, never fatal to generation.
func (b *baseLoader) notify(ctx context.Context, split, path string, batch domain.Batch) {
	if b.opts.Notifier == nil {
		return
	}
	dates := make([]string, len(batch.Samples))
	for i, s := range batch.Samples {
		dates[i] = s.Date.Format(domain.ManifestDateFormat)
	}
	event := BatchEvent{
		Dataset:     b.opts.Name,
		Hemisphere:  b.hemi.String(),
		Split:       split,
		File:        path,
		Samples:     len(batch.Samples),
		Dates:       dates,
		ProcessedAt: domain.Now(),
	}
	if err := b.opts.Notifier.NotifyBatch(ctx, event); err != nil {
		b.logger.Warn("batch event publish failed", "error", err, "file", path)
		b.metrics.EventPublishErrors.Inc()
		return
	}
	b.metrics.EventsPublished.Inc()
}

func (b *baseLoader) writeManifest() (*Manifest, error) {
	counts := make(map[string]int, len(producer.SplitNames))
	dates := make(map[string][]string, len(producer.SplitNames))
	for _, split := range producer.SplitNames {
		ds := b.splits.ForName(split)
		counts[split] = len(ds)
		enc := make([]string, len(ds))
		for i, d := range ds {
			enc[i] = d.Format(domain.ManifestDateFormat)
		}
		dates[split] = enc
	}

	m := &Manifest{
		Identifier:    b.opts.Name,
		Hemisphere:    b.hemi.String(),
		LoaderConfig:  b.opts.ConfigPath,
		Path:          filepath.Join(datasetsDir, b.opts.Name, b.hemi.String()),
		Shape:         b.cfg.Shape,
		NumChannels:   b.asm.numChannels(),
		ChannelNames:  b.asm.channelNames(),
		NForecastDays: b.opts.ForecastDays,
		BatchSize:     b.opts.BatchSize,
		Lag:           b.opts.Lag,
		Counts:        counts,
		Dates:         dates,
		Generated:     domain.Now(),
	}

	if b.opts.Dry {
		b.logger.Info("dry run, not writing dataset config")
		return m, nil
	}
	path, err := m.Write(b.opts.OutputPath)
	if err != nil {
		return nil, err
	}
	b.logger.Info("wrote dataset config", "path", path)
	return m, nil
}

func chunkDates(dates []time.Time, size int) [][]time.Time {
	var out [][]time.Time
	for len(dates) > 0 {
		n := min(size, len(dates))
		out = append(out, dates[:n])
		dates = dates[n:]
	}
	return out
}

func advance(bar *pb.ProgressBar, n int) {
	if bar != nil {
		bar.Add(n)
	}
}

// ParallelLoader generates batches with a bounded worker pool.
type ParallelLoader struct {
	*baseLoader
}

// NewParallel builds the multi-worker loader implementation.
func NewParallel(opts Options, logger *slog.Logger, metrics *observability.Metrics) (Loader, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = 2
	}
	b, err := newBase(opts, logger, metrics, workers)
	if err != nil {
		return nil, err
	}
	return &ParallelLoader{baseLoader: b}, nil
}

// StandardLoader generates one batch at a time; useful for debugging
// and tiny datasets.
type StandardLoader struct {
	*baseLoader
}

// NewStandard builds the serial loader implementation.
func NewStandard(opts Options, logger *slog.Logger, metrics *observability.Metrics) (Loader, error) {
	b, err := newBase(opts, logger, metrics, 1)
	if err != nil {
		return nil, err
	}
	return &StandardLoader{baseLoader: b}, nil
}
