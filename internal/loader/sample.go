package loader

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ctessum/sparse"

	"github.com/bnubald/icenet/internal/adapter/netcdf"
	"github.com/bnubald/icenet/internal/domain"
	"github.com/bnubald/icenet/internal/mask"
)

// metaChannels are appended after the lagged variable planes: seasonal
// encoding of the target date plus the land mask.
var metaChannels = []string{"cos", "sin", "land"}

// varSeries indexes one variable's daily files by date for O(1) lookup
// during window assembly.
type varSeries struct {
	source string
	name   string
	files  map[string]string // YYYYMMDD -> path
}

func (v varSeries) file(d time.Time) (string, bool) {
	p, ok := v.files[d.Format(domain.FileDateFormat)]
	return p, ok
}

// assembler builds samples from a loader config. It is safe for concurrent
// use: all state is read-only after construction and the grid cache is
// thread-safe.
type assembler struct {
	shape  domain.GridShape
	lag    int
	leads  int
	series []varSeries
	truth  varSeries
	masks  *mask.Masks
	reader *netcdf.CachedReader
}

func newAssembler(cfg *Config, lag, leads int, masks *mask.Masks) (*assembler, error) {
	a := &assembler{
		shape:  cfg.GridShape(),
		lag:    lag,
		leads:  leads,
		masks:  masks,
		reader: netcdf.NewCachedReader(4 * (lag + 1)),
	}

	for srcName, src := range cfg.Sources {
		for varName, files := range src.VarFiles {
			vs := varSeries{source: srcName, name: varName, files: make(map[string]string, len(files))}
			for _, f := range files {
				d, ok := domain.FileDate(f)
				if !ok {
					return nil, fmt.Errorf("source %s: file %s has no date suffix", srcName, f)
				}
				vs.files[d.Format(domain.FileDateFormat)] = f
			}
			a.series = append(a.series, vs)
			if varName == cfg.GroundTruth {
				a.truth = vs
			}
		}
	}
	if a.truth.files == nil {
		return nil, fmt.Errorf("loader config: ground truth variable %q not provided by any source", cfg.GroundTruth)
	}

	// Channel order must be stable across runs and workers.
	sort.Slice(a.series, func(i, j int) bool {
		if a.series[i].source != a.series[j].source {
			return a.series[i].source < a.series[j].source
		}
		return a.series[i].name < a.series[j].name
	})
	return a, nil
}

// numChannels is (lag+1) planes per variable plus the metadata channels.
func (a *assembler) numChannels() int {
	return len(a.series)*(a.lag+1) + len(metaChannels)
}

// channelNames lists the x planes in assembly order.
func (a *assembler) channelNames() []string {
	names := make([]string, 0, a.numChannels())
	for _, vs := range a.series {
		for off := a.lag; off >= 0; off-- {
			names = append(names, fmt.Sprintf("%s_lag_%d", vs.name, off))
		}
	}
	return append(names, metaChannels...)
}

// sample assembles the (x, y, weights) arrays for one target date. With
// prediction set, missing future ground truth yields zeroed y planes with
// zero weight instead of an error.
func (a *assembler) sample(date time.Time, prediction bool) (domain.Sample, error) {
	h, w := a.shape.Height, a.shape.Width
	x := sparse.ZerosDense(h, w, a.numChannels())
	y := sparse.ZerosDense(h, w, a.leads, 1)
	weights := sparse.ZerosDense(h, w, a.leads, 1)

	ch := 0
	for _, vs := range a.series {
		for _, d := range domain.LagDates(date, a.lag) {
			grid, err := a.readPlane(vs, d)
			if err != nil {
				return domain.Sample{}, err
			}
			for i := 0; i < h; i++ {
				for j := 0; j < w; j++ {
					v := grid.Get(i, j)
					if math.IsNaN(v) {
						v = 0
					}
					x.Set(v, i, j, ch)
				}
			}
			ch++
		}
	}
	a.fillMeta(x, date, ch)

	for li, d := range domain.LeadDates(date, a.leads) {
		path, ok := a.truth.file(d)
		if !ok {
			if !prediction {
				return domain.Sample{}, fmt.Errorf(
					"sample %s: no ground truth for lead date %s",
					date.Format(domain.FileDateFormat), d.Format(domain.FileDateFormat))
			}
			continue // unknown future: y and weights stay zero
		}
		grid, err := a.readGrid(path)
		if err != nil {
			return domain.Sample{}, err
		}

		active := a.activeMask(d)
		for i := 0; i < h; i++ {
			for j := 0; j < w; j++ {
				v := grid.Get(i, j)
				if math.IsNaN(v) {
					continue // missing observation keeps zero weight
				}
				y.Set(v, i, j, li, 0)
				wv := 1.0
				if active != nil {
					wv = active.Get(i, j)
				}
				weights.Set(wv, i, j, li, 0)
			}
		}
	}

	return domain.Sample{Date: date, X: x, Y: y, Weights: weights}, nil
}

func (a *assembler) readPlane(vs varSeries, d time.Time) (*sparse.DenseArray, error) {
	path, ok := vs.file(d)
	if !ok {
		return nil, fmt.Errorf("variable %s: no file for date %s", vs.name, d.Format(domain.FileDateFormat))
	}
	return a.readGridVar(path, vs.name)
}

func (a *assembler) readGrid(path string) (*sparse.DenseArray, error) {
	return a.readGridVar(path, a.truth.name)
}

func (a *assembler) readGridVar(path, name string) (*sparse.DenseArray, error) {
	grid, err := a.reader.ReadVar(path, name)
	if err != nil {
		return nil, err
	}
	if len(grid.Shape) == 3 && grid.Shape[0] == 1 {
		// Daily files carry a singleton time dimension; flatten it.
		flat := sparse.ZerosDense(grid.Shape[1], grid.Shape[2])
		copy(flat.Elements, grid.Elements)
		grid = flat
	}
	if len(grid.Shape) != 2 || grid.Shape[0] != a.shape.Height || grid.Shape[1] != a.shape.Width {
		return nil, fmt.Errorf("%s: grid shape %v does not match dataset shape (%d, %d)",
			path, grid.Shape, a.shape.Height, a.shape.Width)
	}
	return grid, nil
}

// fillMeta writes the seasonal-encoding and land-mask channels.
func (a *assembler) fillMeta(x *sparse.DenseArray, date time.Time, ch int) {
	theta := 2 * math.Pi * float64(date.YearDay()-1) / 365.25
	cosv, sinv := math.Cos(theta), math.Sin(theta)

	var land *sparse.DenseArray
	if a.masks != nil {
		land = a.masks.Land()
	}

	h, w := a.shape.Height, a.shape.Width
	for i := 0; i < h; i++ {
		for j := 0; j < w; j++ {
			x.Set(cosv, i, j, ch)
			x.Set(sinv, i, j, ch+1)
			if land != nil {
				x.Set(land.Get(i, j), i, j, ch+2)
			}
		}
	}
}

func (a *assembler) activeMask(d time.Time) *sparse.DenseArray {
	if a.masks == nil {
		return nil
	}
	return a.masks.ActiveCells(d.Month())
}
