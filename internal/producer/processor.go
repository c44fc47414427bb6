package producer

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/ctessum/sparse"

	"github.com/bnubald/icenet/internal/adapter/netcdf"
	"github.com/bnubald/icenet/internal/domain"
)

// DateSplits carries the train/val/test target dates a processor works on.
type DateSplits struct {
	Train []time.Time
	Val   []time.Time
	Test  []time.Time
}

// SplitNames is the canonical split ordering used in paths and manifests.
var SplitNames = []string{"train", "val", "test"}

// ForName returns the dates of the named split.
func (s DateSplits) ForName(name string) []time.Time {
	switch name {
	case "train":
		return s.Train
	case "val":
		return s.Val
	case "test":
		return s.Test
	default:
		return nil
	}
}

// Total counts dates across all splits.
func (s DateSplits) Total() int {
	return len(s.Train) + len(s.Val) + len(s.Test)
}

var (
	// fileDateRe extracts the YYYYMMDD suffix from raw file names like
	// siconca_20200131.nc.
	fileDateRe = regexp.MustCompile(`_(\d{8})\.nc$`)
	// bareYearRe matches directory names that are just a year, used by
	// sources that shard their daily files by year.
	bareYearRe = regexp.MustCompile(`^\d{4}$`)
)

// FileProcessor turns discovered raw files into processed per-variable files.
type FileProcessor interface {
	Process(ctx context.Context) error
}

// Processor extends DataProducer with date-categorised source discovery:
// it locates the raw daily files backing each split's working date set and
// groups them per variable.
type Processor struct {
	*DataProducer

	sourceData  string
	fileFilters []string
	dates       DateSplits

	varFiles       map[string][]string
	processedFiles map[string][]string
}

// ProcessorConfig configures a Processor on top of the base producer config.
type ProcessorConfig struct {
	Config

	// SourceData is the raw-data root; discovery happens under
	// <SourceData>/<Identifier>/<hemisphere>.
	SourceData string
	// FileFilters skip any discovered file whose basename contains one of
	// these fragments (e.g. intermediate "latlon_" products).
	FileFilters []string
	Dates       DateSplits
}

// NewProcessor builds a Processor. Source discovery is deferred to
// InitSourceData so construction never touches the source tree.
func NewProcessor(cfg ProcessorConfig, logger *slog.Logger) (*Processor, error) {
	base, err := New(cfg.Config, logger)
	if err != nil {
		return nil, err
	}
	return &Processor{
		DataProducer:   base,
		sourceData:     filepath.Join(cfg.SourceData, cfg.Identifier),
		fileFilters:    slices.Clone(cfg.FileFilters),
		dates:          cfg.Dates,
		varFiles:       make(map[string][]string),
		processedFiles: make(map[string][]string),
	}, nil
}

// Dates returns the processor's split dates.
func (p *Processor) Dates() DateSplits { return p.dates }

// VarFiles returns the discovered raw files grouped by variable name.
// Valid after InitSourceData.
func (p *Processor) VarFiles() map[string][]string { return p.varFiles }

// ProcessedFiles returns the files registered via SaveProcessedFile,
// grouped by variable name.
func (p *Processor) ProcessedFiles() map[string][]string { return p.processedFiles }

// InitSourceData walks the hemisphere's source tree once and associates
// every raw daily file whose date belongs to a split with its variable.
// The variable is the file's parent directory name; when the parent is a
// bare year directory the grandparent names the variable instead.
func (p *Processor) InitSourceData() error {
	root := filepath.Join(p.sourceData, p.Hemisphere().String())
	if _, err := os.Stat(root); err != nil {
		return fmt.Errorf("source data directory %s does not exist", root)
	}

	wanted := make(map[string]struct{})
	for _, name := range SplitNames {
		dates := p.dates.ForName(name)
		if len(dates) == 0 {
			p.Logger().Info("no dates for category", "category", name)
			continue
		}
		p.Logger().Info("processing dates for category", "category", name, "dates", len(dates))
		for _, d := range dates {
			wanted[d.Format(domain.FileDateFormat)] = struct{}{}
		}
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		m := fileDateRe.FindStringSubmatch(d.Name())
		if m == nil {
			return nil
		}
		if _, ok := wanted[m[1]]; !ok {
			return nil
		}
		for _, flt := range p.fileFilters {
			if strings.Contains(d.Name(), flt) {
				return nil
			}
		}

		varName := varNameFromPath(path)
		p.varFiles[varName] = append(p.varFiles[varName], path)
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk source data %s: %w", root, err)
	}

	for varName, files := range p.varFiles {
		sort.Strings(files)
		p.Logger().Debug("discovered var files", "var", varName, "files", len(files))
	}
	return nil
}

// varNameFromPath names the variable a raw file belongs to from its parent
// directory, stepping over a bare year directory when the source shards
// files by year.
func varNameFromPath(path string) string {
	dir := filepath.Dir(path)
	name := filepath.Base(dir)
	if bareYearRe.MatchString(name) {
		name = filepath.Base(filepath.Dir(dir))
	}
	return name
}

// SaveProcessedFile writes a processed grid into the variable's folder and
// registers it. Re-registering the same path logs a warning and is a no-op.
func (p *Processor) SaveProcessedFile(varName, name string, dimNames []string, data *sparse.DenseArray) (string, error) {
	dir, err := p.DataVarFolder(varName)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)

	if slices.Contains(p.processedFiles[varName], path) {
		p.Logger().Warn("already registered in processed list", "var", varName, "path", path)
		return path, nil
	}

	if !p.Dry() {
		if err := netcdf.WriteVar(path, varName, dimNames, data); err != nil {
			return "", err
		}
	}

	p.Logger().Debug("adding processed file", "var", varName, "path", path)
	p.processedFiles[varName] = append(p.processedFiles[varName], path)
	return path, nil
}
