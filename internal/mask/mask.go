// Package mask generates and loads the land and active-grid-cell masks that
// weight samples and metrics. Masks are derived once per hemisphere from a
// reference SIC climatology and stored alongside the other producer trees.
package mask

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/ctessum/sparse"

	"github.com/bnubald/icenet/internal/adapter/netcdf"
	"github.com/bnubald/icenet/internal/domain"
)

const (
	// Identifier is the producer tree name masks are stored under.
	Identifier = "masks"

	landMaskFile   = "land_mask.nc"
	activeMaskFile = "active_grid_cell_mask_%02d.nc"

	landVar   = "land"
	activeVar = "active_grid_cell"

	// minExtentSIC is the climatological SIC above which a cell counts as
	// ever ice-covered and therefore worth scoring.
	minExtentSIC = 0.15

	// polarHoleRadius carves the satellite observation hole around the
	// north pole out of the active masks, in grid cells.
	polarHoleRadius = 28
)

// Masks provides the land mask and the monthly active-cell masks for one
// hemisphere.
type Masks struct {
	hemisphere domain.Hemisphere
	land       *sparse.DenseArray
	active     map[time.Month]*sparse.DenseArray
}

// Dir returns the masks directory for a hemisphere under the data root.
func Dir(dataPath string, hemi domain.Hemisphere) string {
	return filepath.Join(dataPath, Identifier, hemi.String(), Identifier)
}

// Load reads previously generated masks. A missing masks tree is an error;
// callers that can run unmasked should check os.IsNotExist-style absence
// with Exists first.
func Load(dataPath string, hemi domain.Hemisphere) (*Masks, error) {
	dir := Dir(dataPath, hemi)

	land, err := netcdf.ReadVar(filepath.Join(dir, landMaskFile), landVar)
	if err != nil {
		return nil, fmt.Errorf("load land mask: %w", err)
	}

	m := &Masks{
		hemisphere: hemi,
		land:       land,
		active:     make(map[time.Month]*sparse.DenseArray, 12),
	}
	for month := time.January; month <= time.December; month++ {
		path := filepath.Join(dir, fmt.Sprintf(activeMaskFile, int(month)))
		if _, err := os.Stat(path); err != nil {
			continue // month not covered by the reference climatology
		}
		arr, err := netcdf.ReadVar(path, activeVar)
		if err != nil {
			return nil, fmt.Errorf("load active mask for %s: %w", month, err)
		}
		m.active[month] = arr
	}
	return m, nil
}

// Exists reports whether a generated masks tree is present.
func Exists(dataPath string, hemi domain.Hemisphere) bool {
	_, err := os.Stat(filepath.Join(Dir(dataPath, hemi), landMaskFile))
	return err == nil
}

// Hemisphere returns the hemisphere the masks were generated for.
func (m *Masks) Hemisphere() domain.Hemisphere { return m.hemisphere }

// Land returns the land mask grid (1 land, 0 ocean).
func (m *Masks) Land() *sparse.DenseArray { return m.land }

// ActiveCells returns the active-grid-cell mask for a month, or nil when
// that month has no mask.
func (m *Masks) ActiveCells(month time.Month) *sparse.DenseArray {
	return m.active[month]
}

// isLand treats NaN SIC as land: SIC products leave land cells unset.
func isLand(v float64) bool { return math.IsNaN(v) }
