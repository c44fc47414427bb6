package eval

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ctessum/sparse"
)

// Region is a rectangular grid crop in cell coordinates, exclusive of
// (X2, Y2).
type Region struct {
	X1, Y1, X2, Y2 int
}

// ParseRegion reads a "x1,y1,x2,y2" region string. Both upper bounds must
// exceed their lower bound.
func ParseRegion(s string) (Region, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Region{}, fmt.Errorf("region %q: want x1,y1,x2,y2", s)
	}
	vals := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Region{}, fmt.Errorf("region %q: %w", s, err)
		}
		if v < 0 {
			return Region{}, fmt.Errorf("region %q: negative bound %d", s, v)
		}
		vals[i] = v
	}
	r := Region{X1: vals[0], Y1: vals[1], X2: vals[2], Y2: vals[3]}
	if r.X2 <= r.X1 || r.Y2 <= r.Y1 {
		return Region{}, fmt.Errorf("region %q: upper bounds must exceed lower bounds", s)
	}
	return r, nil
}

// Crop restricts a (h, w, ...) stack to the region, leaving trailing
// dimensions intact.
func (r Region) Crop(arr *sparse.DenseArray) (*sparse.DenseArray, error) {
	if len(arr.Shape) < 2 {
		return nil, fmt.Errorf("cannot crop array of shape %v", arr.Shape)
	}
	h, w := arr.Shape[0], arr.Shape[1]
	if r.Y2 > h || r.X2 > w {
		return nil, fmt.Errorf("region (%d,%d)-(%d,%d) exceeds grid (%d, %d)",
			r.X1, r.Y1, r.X2, r.Y2, h, w)
	}

	outShape := append([]int{r.Y2 - r.Y1, r.X2 - r.X1}, arr.Shape[2:]...)
	out := sparse.ZerosDense(outShape...)

	rest := 1
	for _, d := range arr.Shape[2:] {
		rest *= d
	}
	idx := make([]int, len(arr.Shape))
	for y := r.Y1; y < r.Y2; y++ {
		for x := r.X1; x < r.X2; x++ {
			for k := 0; k < rest; k++ {
				// Unravel k over the trailing dimensions.
				rem := k
				for d := len(arr.Shape) - 1; d >= 2; d-- {
					idx[d] = rem % arr.Shape[d]
					rem /= arr.Shape[d]
				}
				idx[0], idx[1] = y, x
				v := arr.Get(idx...)
				idx[0], idx[1] = y-r.Y1, x-r.X1
				out.Set(v, idx...)
			}
		}
	}
	return out, nil
}
