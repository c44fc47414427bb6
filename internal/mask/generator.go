package mask

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"time"

	"github.com/ctessum/sparse"

	"github.com/bnubald/icenet/internal/adapter/netcdf"
	"github.com/bnubald/icenet/internal/domain"
	"github.com/bnubald/icenet/internal/producer"
)

// Generator derives the mask set from a reference SIC source tree. It is a
// producer.Generator: its output lives in the standard <data>/masks tree.
type Generator struct {
	*producer.DataProducer

	proc     *producer.Processor
	truthVar string
}

// GeneratorConfig configures mask derivation.
type GeneratorConfig struct {
	Hemisphere domain.Hemisphere
	// DataPath is where the masks tree is created.
	DataPath string
	// SourcePath and Source name the producer tree holding the reference
	// SIC files, e.g. osisaf.
	SourcePath string
	Source     string
	// Var is the SIC variable name in the reference files.
	Var string
	// Reference selects the climatology days scanned per month.
	Reference producer.DateSplits
}

// NewGenerator builds a mask generator over a reference SIC climatology.
func NewGenerator(cfg GeneratorConfig, logger *slog.Logger) (*Generator, error) {
	if cfg.Var == "" {
		cfg.Var = "siconca"
	}
	proc, err := producer.NewProcessor(producer.ProcessorConfig{
		Config: producer.Config{
			Identifier: cfg.Source,
			Hemisphere: cfg.Hemisphere,
			Path:       cfg.DataPath,
		},
		SourceData: cfg.SourcePath,
		Dates:      cfg.Reference,
	}, logger)
	if err != nil {
		return nil, err
	}

	base, err := producer.New(producer.Config{
		Identifier: Identifier,
		Hemisphere: cfg.Hemisphere,
		Path:       cfg.DataPath,
	}, logger)
	if err != nil {
		return nil, err
	}

	return &Generator{DataProducer: base, proc: proc, truthVar: cfg.Var}, nil
}

// Generate scans the reference files and writes the land mask plus one
// active-grid-cell mask per month that has reference data. Land is wherever
// SIC is missing in every reference file; a cell is active for a month when
// it is ocean and its climatological maximum SIC reaches the extent
// threshold. The north polar satellite hole is always excluded.
func (g *Generator) Generate(ctx context.Context) error {
	if err := g.proc.InitSourceData(); err != nil {
		return err
	}
	files := g.proc.VarFiles()[g.truthVar]
	if len(files) == 0 {
		return fmt.Errorf("masks: no reference %q files discovered", g.truthVar)
	}

	var land *sparse.DenseArray
	monthMax := make(map[time.Month]*sparse.DenseArray)

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		date, ok := domain.FileDate(filepath.Base(f))
		if !ok {
			continue
		}
		grid, err := netcdf.ReadVar(f, g.truthVar)
		if err != nil {
			return err
		}
		grid = flattenSingletonTime(grid)

		if land == nil {
			land = sparse.ZerosDense(grid.Shape...)
			for i := range land.Elements {
				land.Elements[i] = 1
			}
		}

		mm, ok := monthMax[date.Month()]
		if !ok {
			mm = sparse.ZerosDense(grid.Shape...)
			monthMax[date.Month()] = mm
		}

		for i, v := range grid.Elements {
			if isLand(v) {
				continue
			}
			land.Elements[i] = 0 // observed at least once: ocean
			if v > mm.Elements[i] {
				mm.Elements[i] = v
			}
		}
	}

	dir, err := g.DataVarFolder(Identifier)
	if err != nil {
		return err
	}

	if err := netcdf.WriteVar(
		filepath.Join(dir, landMaskFile), landVar, []string{"yc", "xc"}, land,
	); err != nil {
		return err
	}
	g.Logger().Info("wrote land mask", "hemisphere", g.Hemisphere().String())

	for month, mm := range monthMax {
		active := sparse.ZerosDense(mm.Shape...)
		for i := range mm.Elements {
			if land.Elements[i] == 0 && mm.Elements[i] >= minExtentSIC {
				active.Elements[i] = 1
			}
		}
		if g.Hemisphere() == domain.HemisphereNorth {
			carvePolarHole(active)
		}
		path := filepath.Join(dir, fmt.Sprintf(activeMaskFile, int(month)))
		if err := netcdf.WriteVar(path, activeVar, []string{"yc", "xc"}, active); err != nil {
			return err
		}
		g.Logger().Info("wrote active cell mask", "month", month.String())
	}
	return nil
}

// carvePolarHole zeroes a disc around the grid centre where polar-orbiting
// sensors never observe.
func carvePolarHole(arr *sparse.DenseArray) {
	h, w := arr.Shape[0], arr.Shape[1]
	cy, cx := float64(h-1)/2, float64(w-1)/2
	for i := 0; i < h; i++ {
		for j := 0; j < w; j++ {
			dy, dx := float64(i)-cy, float64(j)-cx
			if math.Sqrt(dy*dy+dx*dx) <= polarHoleRadius {
				arr.Set(0, i, j)
			}
		}
	}
}

// flattenSingletonTime drops a leading length-1 time dimension.
func flattenSingletonTime(grid *sparse.DenseArray) *sparse.DenseArray {
	if len(grid.Shape) == 3 && grid.Shape[0] == 1 {
		flat := sparse.ZerosDense(grid.Shape[1], grid.Shape[2])
		copy(flat.Elements, grid.Elements)
		return flat
	}
	return grid
}
