// Package eval scores stored forecasts against ground truth, one value per
// leadtime.
package eval

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/stat"
)

// defaultGridAreaKM is the EASE grid cell edge length in kilometres.
const defaultGridAreaKM = 25.0

// LeadtimeValue is one metric value at one forecast leadtime (1-based,
// days ahead).
type LeadtimeValue struct {
	Leadtime int
	Value    float64
}

// checkPair validates that forecast and observation stacks share the
// expected (h, w, leadtime, 1) shape and returns the dimensions.
func checkPair(fc, obs *sparse.DenseArray) (h, w, leads int, err error) {
	if len(fc.Shape) != 4 || fc.Shape[3] != 1 {
		return 0, 0, 0, fmt.Errorf("forecast shape %v, want (h, w, leadtime, 1)", fc.Shape)
	}
	if len(obs.Shape) != len(fc.Shape) {
		return 0, 0, 0, fmt.Errorf("observation shape %v does not match forecast %v",
			obs.Shape, fc.Shape)
	}
	for i := range fc.Shape {
		if obs.Shape[i] != fc.Shape[i] {
			return 0, 0, 0, fmt.Errorf("observation shape %v does not match forecast %v",
				obs.Shape, fc.Shape)
		}
	}
	return fc.Shape[0], fc.Shape[1], fc.Shape[2], nil
}

// planeAt flattens one leadtime of a (h, w, leadtime, 1) stack into a
// vector, with matching weights. A nil weight stack means every cell
// counts equally.
func planeAt(arr, weights *sparse.DenseArray, lead, h, w int) (vals, wts []float64) {
	vals = make([]float64, 0, h*w)
	wts = make([]float64, 0, h*w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			vals = append(vals, arr.Get(y, x, lead, 0))
			if weights == nil {
				wts = append(wts, 1)
			} else {
				wts = append(wts, weights.Get(y, x, lead, 0))
			}
		}
	}
	return vals, wts
}

// BinaryAccuracy scores per-cell ice/no-ice agreement at a concentration
// threshold, weighted by the cell weights (typically the active grid cell
// mask), as a percentage per leadtime.
func BinaryAccuracy(fc, obs, weights *sparse.DenseArray, threshold float64) ([]LeadtimeValue, error) {
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("threshold must be in [0, 1], got %v", threshold)
	}
	h, w, leads, err := checkPair(fc, obs)
	if err != nil {
		return nil, err
	}

	out := make([]LeadtimeValue, leads)
	for l := 0; l < leads; l++ {
		fv, wts := planeAt(fc, weights, l, h, w)
		ov, _ := planeAt(obs, nil, l, h, w)
		agree := make([]float64, len(fv))
		for i := range fv {
			if (fv[i] > threshold) == (ov[i] > threshold) {
				agree[i] = 1
			}
		}
		out[l] = LeadtimeValue{Leadtime: l + 1, Value: stat.Mean(agree, wts) * 100}
	}
	return out, nil
}

// SIEError computes the sea ice extent bias per leadtime: the difference
// between forecast and observed ice extent, where each cell above the
// concentration threshold contributes its weight (typically the active
// grid cell mask) times the cell area in square kilometres. gridAreaKM is
// the cell edge length; zero selects the 25 km EASE grid default.
func SIEError(fc, obs, weights *sparse.DenseArray, threshold, gridAreaKM float64) ([]LeadtimeValue, error) {
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("threshold must be in [0, 1], got %v", threshold)
	}
	if gridAreaKM == 0 {
		gridAreaKM = defaultGridAreaKM
	}
	if gridAreaKM < 0 {
		return nil, fmt.Errorf("grid area must be positive, got %v", gridAreaKM)
	}
	h, w, leads, err := checkPair(fc, obs)
	if err != nil {
		return nil, err
	}

	cellArea := gridAreaKM * gridAreaKM
	out := make([]LeadtimeValue, leads)
	for l := 0; l < leads; l++ {
		fv, wts := planeAt(fc, weights, l, h, w)
		ov, _ := planeAt(obs, nil, l, h, w)
		var fcExtent, obsExtent float64
		for i := range fv {
			if fv[i] > threshold {
				fcExtent += wts[i]
			}
			if ov[i] > threshold {
				obsExtent += wts[i]
			}
		}
		out[l] = LeadtimeValue{Leadtime: l + 1, Value: (fcExtent - obsExtent) * cellArea}
	}
	return out, nil
}

// errorsAt returns the weighted forecast errors for one leadtime, scaled
// to percentage concentration.
func errorsAt(fc, obs, weights *sparse.DenseArray, lead, h, w int) (errs, wts []float64) {
	fv, wv := planeAt(fc, weights, lead, h, w)
	ov, _ := planeAt(obs, nil, lead, h, w)
	errs = make([]float64, len(fv))
	for i := range fv {
		errs[i] = (fv[i] - ov[i]) * 100
	}
	return errs, wv
}

// MAE computes the weighted mean absolute error per leadtime, in
// percentage concentration.
func MAE(fc, obs, weights *sparse.DenseArray) ([]LeadtimeValue, error) {
	h, w, leads, err := checkPair(fc, obs)
	if err != nil {
		return nil, err
	}
	out := make([]LeadtimeValue, leads)
	for l := 0; l < leads; l++ {
		errs, wts := errorsAt(fc, obs, weights, l, h, w)
		for i := range errs {
			errs[i] = math.Abs(errs[i])
		}
		out[l] = LeadtimeValue{Leadtime: l + 1, Value: stat.Mean(errs, wts)}
	}
	return out, nil
}

// MSE computes the weighted mean squared error per leadtime, in squared
// percentage concentration.
func MSE(fc, obs, weights *sparse.DenseArray) ([]LeadtimeValue, error) {
	h, w, leads, err := checkPair(fc, obs)
	if err != nil {
		return nil, err
	}
	out := make([]LeadtimeValue, leads)
	for l := 0; l < leads; l++ {
		errs, wts := errorsAt(fc, obs, weights, l, h, w)
		for i := range errs {
			errs[i] *= errs[i]
		}
		out[l] = LeadtimeValue{Leadtime: l + 1, Value: stat.Mean(errs, wts)}
	}
	return out, nil
}

// RMSE computes the root of the weighted mean squared error per leadtime.
func RMSE(fc, obs, weights *sparse.DenseArray) ([]LeadtimeValue, error) {
	mse, err := MSE(fc, obs, weights)
	if err != nil {
		return nil, err
	}
	for i := range mse {
		mse[i].Value = math.Sqrt(mse[i].Value)
	}
	return mse, nil
}

// WriteCSV stores leadtime metric values as a two-column CSV.
func WriteCSV(path, metricName string, values []LeadtimeValue) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(f)
	records := [][]string{{"leadtime", metricName}}
	for _, v := range values {
		records = append(records, []string{
			strconv.Itoa(v.Leadtime),
			strconv.FormatFloat(v.Value, 'g', -1, 64),
		})
	}
	if err := cw.WriteAll(records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
