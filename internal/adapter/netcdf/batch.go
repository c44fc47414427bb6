package netcdf

import (
	"fmt"
	"math"
	"time"

	"github.com/ctessum/sparse"

	"github.com/bnubald/icenet/internal/domain"
)

// Batch files hold one generation batch as four variables:
//
//	x               (sample, yc, xc, channel)
//	y               (sample, yc, xc, leadtime, n)
//	sample_weights  (sample, yc, xc, leadtime, n)
//	date            (sample)                        days since 1970-01-01
//
// n is the number of predicted variables, currently always 1 (SIC).
var (
	xDims  = []string{"sample", "yc", "xc", "channel"}
	yDims  = []string{"sample", "yc", "xc", "leadtime", "n"}
	dtDims = []string{"sample"}
)

const epochDay = 24 * time.Hour

// WriteBatch encodes the batch's samples into a single NetCDF file.
// All samples must share the shapes of the first.
func WriteBatch(path string, b domain.Batch) error {
	if len(b.Samples) == 0 {
		return fmt.Errorf("write batch %s: empty batch", path)
	}

	first := b.Samples[0]
	xShape := append([]int{len(b.Samples)}, first.X.Shape...)
	yShape := append([]int{len(b.Samples)}, first.Y.Shape...)

	x := sparse.ZerosDense(xShape...)
	y := sparse.ZerosDense(yShape...)
	sw := sparse.ZerosDense(yShape...)
	dates := sparse.ZerosDense(len(b.Samples))

	xn, yn := len(first.X.Elements), len(first.Y.Elements)
	for i, s := range b.Samples {
		if len(s.X.Elements) != xn || len(s.Y.Elements) != yn || len(s.Weights.Elements) != yn {
			return fmt.Errorf("write batch %s: sample %s shape mismatch", path,
				s.Date.Format(domain.FileDateFormat))
		}
		copy(x.Elements[i*xn:(i+1)*xn], s.X.Elements)
		copy(y.Elements[i*yn:(i+1)*yn], s.Y.Elements)
		copy(sw.Elements[i*yn:(i+1)*yn], s.Weights.Elements)
		dates.Elements[i] = float64(s.Date.Unix() / int64(epochDay.Seconds()))
	}

	return WriteVars(path, []VarSpec{
		{Name: "x", DimNames: xDims, Data: x},
		{Name: "y", DimNames: yDims, Data: y},
		{Name: "sample_weights", DimNames: yDims, Data: sw},
		{Name: "date", DimNames: dtDims, Data: dates},
	})
}

// ReadBatch decodes a batch file back into its samples.
func ReadBatch(path string) ([]domain.Sample, error) {
	x, err := ReadVar(path, "x")
	if err != nil {
		return nil, err
	}
	y, err := ReadVar(path, "y")
	if err != nil {
		return nil, err
	}
	sw, err := ReadVar(path, "sample_weights")
	if err != nil {
		return nil, err
	}
	dates, err := ReadVar(path, "date")
	if err != nil {
		return nil, err
	}

	if len(x.Shape) != 4 || len(y.Shape) != 5 {
		return nil, fmt.Errorf("%s: unexpected batch ranks x%v y%v", path, x.Shape, y.Shape)
	}
	n := x.Shape[0]
	if y.Shape[0] != n || sw.Shape[0] != n || len(dates.Elements) != n {
		return nil, fmt.Errorf("%s: inconsistent sample counts", path)
	}

	xn := len(x.Elements) / n
	yn := len(y.Elements) / n

	samples := make([]domain.Sample, n)
	for i := 0; i < n; i++ {
		sx := sparse.ZerosDense(x.Shape[1:]...)
		sy := sparse.ZerosDense(y.Shape[1:]...)
		ssw := sparse.ZerosDense(y.Shape[1:]...)
		copy(sx.Elements, x.Elements[i*xn:(i+1)*xn])
		copy(sy.Elements, y.Elements[i*yn:(i+1)*yn])
		copy(ssw.Elements, sw.Elements[i*yn:(i+1)*yn])

		days := int64(math.Round(dates.Elements[i]))
		samples[i] = domain.Sample{
			Date:    time.Unix(days*int64(epochDay.Seconds()), 0).UTC(),
			X:       sx,
			Y:       sy,
			Weights: ssw,
		}
	}
	return samples, nil
}
