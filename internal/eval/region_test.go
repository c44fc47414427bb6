package eval_test

import (
	"testing"

	"github.com/ctessum/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnubald/icenet/internal/eval"
)

func TestParseRegion(t *testing.T) {
	r, err := eval.ParseRegion("10, 20, 110, 220")
	require.NoError(t, err)
	assert.Equal(t, eval.Region{X1: 10, Y1: 20, X2: 110, Y2: 220}, r)

	for _, bad := range []string{
		"",
		"1,2,3",
		"1,2,3,4,5",
		"a,2,3,4",
		"-1,2,3,4",
		"10,20,10,220", // x2 == x1
		"10,20,110,20", // y2 == y1
		"10,20,5,220",  // x2 < x1
	} {
		_, err := eval.ParseRegion(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestRegionCrop(t *testing.T) {
	arr := sparse.ZerosDense(4, 4, 2, 1)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			for l := 0; l < 2; l++ {
				arr.Set(float64(y*100+x*10+l), y, x, l, 0)
			}
		}
	}

	r := eval.Region{X1: 1, Y1: 2, X2: 3, Y2: 4}
	got, err := r.Crop(arr)
	require.NoError(t, err)

	assert.Equal(t, []int{2, 2, 2, 1}, got.Shape)
	assert.InDelta(t, 210, got.Get(0, 0, 0, 0), 1e-9)
	assert.InDelta(t, 211, got.Get(0, 0, 1, 0), 1e-9)
	assert.InDelta(t, 320, got.Get(1, 1, 0, 0), 1e-9)
}

func TestRegionCropOutOfBounds(t *testing.T) {
	arr := sparse.ZerosDense(4, 4)
	r := eval.Region{X1: 0, Y1: 0, X2: 5, Y2: 2}
	_, err := r.Crop(arr)
	assert.ErrorContains(t, err, "exceeds grid")
}
