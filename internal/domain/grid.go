package domain

import (
	"fmt"

	"github.com/ctessum/sparse"
)

// GridShape is the (height, width) of a hemisphere grid.
type GridShape struct {
	Height int `json:"height"`
	Width  int `json:"width"`
}

func (s GridShape) Cells() int { return s.Height * s.Width }

// NewGrid allocates a zeroed (h, w) field.
func NewGrid(shape GridShape) *sparse.DenseArray {
	return sparse.ZerosDense(shape.Height, shape.Width)
}

// GridFromFloat32s copies a flat float32 buffer (row-major, as read from
// NetCDF) into a dense array of the given shape.
func GridFromFloat32s(data []float32, shape ...int) (*sparse.DenseArray, error) {
	n := 1
	for _, d := range shape {
		n *= d
	}
	if len(data) != n {
		return nil, fmt.Errorf("grid data has %d values, shape %v wants %d", len(data), shape, n)
	}
	arr := sparse.ZerosDense(shape...)
	for i, v := range data {
		arr.Elements[i] = float64(v)
	}
	return arr, nil
}

// GridToFloat32s flattens a dense array back to the float32 buffer written
// to NetCDF.
func GridToFloat32s(arr *sparse.DenseArray) []float32 {
	out := make([]float32, len(arr.Elements))
	for i, v := range arr.Elements {
		out[i] = float32(v)
	}
	return out
}
