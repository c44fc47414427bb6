// Package producer manages the identified, hemisphere-scoped output trees
// that downloaders, generators and processors write into, and the discovery
// of raw per-date source files feeding the loader.
package producer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bnubald/icenet/internal/domain"
)

// Config identifies a producer and scopes it to one hemisphere.
type Config struct {
	// Identifier names the producer's subtree under Path, e.g. "osisaf".
	Identifier string
	Hemisphere domain.Hemisphere
	// Path is the data root the identifier directory is created in.
	Path string

	// Dry disables all file output.
	Dry bool
	// Overwrite allows replacing files that already exist.
	Overwrite bool
}

// DataProducer is the base of every pipeline data role: it owns an output
// directory tree <path>/<identifier> and hands out hemisphere/variable
// subfolders inside it.
type DataProducer struct {
	identifier string
	basePath   string
	hemisphere domain.Hemisphere
	dry        bool
	overwrite  bool
	logger     *slog.Logger
}

// Downloader fetches raw data into its producer tree.
type Downloader interface {
	Download(ctx context.Context) error
}

// Generator derives data (masks, climatologies) into its producer tree.
type Generator interface {
	Generate(ctx context.Context) error
}

// New validates the config and prepares the producer's output directory.
// The directory is created when absent; an existing one is reused with a
// warning so reruns are cheap.
func New(cfg Config, logger *slog.Logger) (*DataProducer, error) {
	if cfg.Identifier == "" {
		return nil, errors.New("producer: no identifier supplied")
	}
	if !cfg.Hemisphere.Valid() {
		return nil, fmt.Errorf("producer %s: exactly one hemisphere required, got %s",
			cfg.Identifier, cfg.Hemisphere)
	}
	if logger == nil {
		logger = slog.Default()
	}

	base := filepath.Join(cfg.Path, cfg.Identifier)
	if _, err := os.Stat(base); err == nil {
		logger.Warn("producer path already exists", "path", base)
	} else if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("producer %s: create %s: %w", cfg.Identifier, base, err)
	} else {
		logger.Info("created producer path", "path", base)
	}

	return &DataProducer{
		identifier: cfg.Identifier,
		basePath:   base,
		hemisphere: cfg.Hemisphere,
		dry:        cfg.Dry,
		overwrite:  cfg.Overwrite,
		logger:     logger,
	}, nil
}

// Identifier returns the producer name.
func (p *DataProducer) Identifier() string { return p.identifier }

// Hemisphere returns the single hemisphere this producer is scoped to.
func (p *DataProducer) Hemisphere() domain.Hemisphere { return p.hemisphere }

// BasePath returns the producer's output root, <path>/<identifier>.
func (p *DataProducer) BasePath() string { return p.basePath }

// SetBasePath repoints the output root, for tests and replayed trees.
func (p *DataProducer) SetBasePath(path string) { p.basePath = path }

// Dry reports whether file output is disabled.
func (p *DataProducer) Dry() bool { return p.dry }

// Overwrite reports whether existing files may be replaced.
func (p *DataProducer) Overwrite() bool { return p.overwrite }

// DataVarFolder returns <base>/<hemisphere>/<name>, creating it if needed.
func (p *DataProducer) DataVarFolder(name string) (string, error) {
	dir := filepath.Join(p.basePath, p.hemisphere.String(), name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("producer %s: create var folder %s: %w", p.identifier, dir, err)
	}
	return dir, nil
}

// Logger returns the producer's logger.
func (p *DataProducer) Logger() *slog.Logger { return p.logger }
