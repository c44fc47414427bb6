package loader

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bnubald/icenet/internal/domain"
	"github.com/bnubald/icenet/internal/observability"
	"github.com/bnubald/icenet/internal/producer"
)

// Loader generates training-ready sample batches from a loader config.
type Loader interface {
	// Generate produces every split's batch files and returns the written
	// dataset manifest.
	Generate(ctx context.Context) (*Manifest, error)
	// GenerateSample assembles a single sample for a date outside the
	// generated dataset. In prediction mode missing future ground truth is
	// tolerated (y and weights are zeroed).
	GenerateSample(ctx context.Context, date time.Time, prediction bool) (domain.Sample, error)
	// WriteConfigOnly emits the dataset manifest without generating data.
	WriteConfigOnly() (*Manifest, error)
}

// Options carries the per-run settings a loader implementation needs on top
// of the persisted loader config.
type Options struct {
	// ConfigPath locates loader.<name>.json.
	ConfigPath string
	// Name is the output dataset name; defaults to the config identifier.
	Name string

	Lag          int
	ForecastDays int
	BatchSize    int
	Workers      int

	// Pickup skips batch files that already exist.
	Pickup bool
	// Dry assembles samples but writes nothing.
	Dry bool
	// Progress renders a terminal progress bar per split.
	Progress bool

	// OutputPath is the data root; batches land under
	// <OutputPath>/network_datasets/<Name>/<hemisphere>/<split>.
	OutputPath string

	// DatesOverride replaces the config's split target dates when non-nil.
	DatesOverride *producer.DateSplits

	// Notifier receives an event per written batch; nil disables
	// notification.
	Notifier Notifier
}

// Notifier publishes dataset generation events to an external system.
type Notifier interface {
	NotifyBatch(ctx context.Context, event BatchEvent) error
}

// BatchEvent describes one written batch file.
type BatchEvent struct {
	Dataset     string    `json:"dataset"`
	Hemisphere  string    `json:"hemisphere"`
	Split       string    `json:"split"`
	File        string    `json:"file"`
	Samples     int       `json:"samples"`
	Dates       []string  `json:"dates"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Constructor builds a loader implementation from options.
type Constructor func(opts Options, logger *slog.Logger, metrics *observability.Metrics) (Loader, error)

// Factory is a name-to-implementation registry for loaders.
type Factory struct {
	mu    sync.Mutex
	impls map[string]Constructor
}

// NewFactory returns a factory with the built-in implementations
// registered: "parallel" (multi-worker) and "standard" (serial).
func NewFactory() *Factory {
	f := &Factory{impls: make(map[string]Constructor)}
	f.impls["parallel"] = NewParallel
	f.impls["standard"] = NewStandard
	return f
}

// Register adds a loader implementation under a new name. Registering an
// existing name is an error so implementations cannot be silently shadowed.
func (f *Factory) Register(name string, c Constructor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.impls[name]; ok {
		return fmt.Errorf("loader %q already registered", name)
	}
	if c == nil {
		return fmt.Errorf("loader %q has no constructor", name)
	}
	f.impls[name] = c
	return nil
}

// Create instantiates the named loader implementation.
func (f *Factory) Create(name string, opts Options, logger *slog.Logger, metrics *observability.Metrics) (Loader, error) {
	f.mu.Lock()
	c, ok := f.impls[name]
	f.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown loader implementation %q", name)
	}
	return c(opts, logger, metrics)
}
