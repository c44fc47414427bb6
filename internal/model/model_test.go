package model_test

import (
	"math"
	"testing"
	"time"

	"github.com/ctessum/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnubald/icenet/internal/domain"
	"github.com/bnubald/icenet/internal/model"
)

var channelNames = []string{"siconca_lag_2", "siconca_lag_1", "siconca_lag_0", "cos", "sin", "land"}

// sampleWithLastPlane builds a 2x2 input sample whose lag-0 siconca plane
// holds the given values.
func sampleWithLastPlane(vals [4]float64) domain.Sample {
	x := sparse.ZerosDense(2, 2, len(channelNames))
	i := 0
	for y := 0; y < 2; y++ {
		for c := 0; c < 2; c++ {
			x.Set(vals[i], y, c, 2) // lag-0 channel
			x.Set(0.99, y, c, 0)    // older lags must be ignored
			i++
		}
	}
	return domain.Sample{Date: time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC), X: x}
}

func TestPersistenceRepeatsLastObservation(t *testing.T) {
	net := model.NewPersistence(channelNames, "siconca", 42)
	assert.Equal(t, "persistence", net.Name())
	assert.Equal(t, 42, net.Seed())

	sample := sampleWithLastPlane([4]float64{0.9, 0.15, 0, 1})
	fc, err := net.Predict(sample, 3)
	require.NoError(t, err)

	assert.Equal(t, []int{2, 2, 3, 1}, fc.Shape)
	for l := 0; l < 3; l++ {
		assert.InDelta(t, 0.9, fc.Get(0, 0, l, 0), 1e-9)
		assert.InDelta(t, 0.15, fc.Get(0, 1, l, 0), 1e-9)
		assert.InDelta(t, 0, fc.Get(1, 0, l, 0), 1e-9)
		assert.InDelta(t, 1, fc.Get(1, 1, l, 0), 1e-9)
	}
}

func TestPersistenceMissingChannel(t *testing.T) {
	net := model.NewPersistence([]string{"uas_lag_0"}, "siconca", 42)
	sample := domain.Sample{X: sparse.ZerosDense(2, 2, 1)}
	_, err := net.Predict(sample, 1)
	assert.ErrorContains(t, err, "siconca_lag_0")
}

func TestDampedAnomalyDecaysTowardZero(t *testing.T) {
	net := model.NewDampedAnomaly(channelNames, "siconca", 42, 10)
	sample := sampleWithLastPlane([4]float64{1, 0.5, 0, 0})

	fc, err := net.Predict(sample, 2)
	require.NoError(t, err)

	d1 := math.Exp(-1.0 / 10)
	d2 := math.Exp(-2.0 / 10)
	assert.InDelta(t, d1, fc.Get(0, 0, 0, 0), 1e-9)
	assert.InDelta(t, d2, fc.Get(0, 0, 1, 0), 1e-9)
	assert.InDelta(t, 0.5*d1, fc.Get(0, 1, 0, 0), 1e-9)
	// Ice-free cells stay ice-free.
	assert.InDelta(t, 0, fc.Get(1, 0, 0, 0), 1e-9)
}

func TestDampedAnomalyWithClimatology(t *testing.T) {
	net := model.NewDampedAnomaly(channelNames, "siconca", 42, 5)
	clim := sparse.ZerosDense(2, 2)
	clim.Set(0.4, 0, 0)
	net.Climatology = clim

	sample := sampleWithLastPlane([4]float64{1, 0, 0, 0})
	fc, err := net.Predict(sample, 1)
	require.NoError(t, err)

	want := 0.4 + (1-0.4)*math.Exp(-1.0/5)
	assert.InDelta(t, want, fc.Get(0, 0, 0, 0), 1e-9)
}

func TestDampedAnomalyValidation(t *testing.T) {
	net := model.NewDampedAnomaly(channelNames, "siconca", 42, 0)
	_, err := net.Predict(sampleWithLastPlane([4]float64{}), 1)
	assert.ErrorContains(t, err, "e-folding")

	net = model.NewDampedAnomaly(channelNames, "siconca", 42, 10)
	net.Climatology = sparse.ZerosDense(3, 3)
	_, err = net.Predict(sampleWithLastPlane([4]float64{}), 1)
	assert.ErrorContains(t, err, "climatology shape")
}

func TestDampedAnomalyName(t *testing.T) {
	net := model.NewDampedAnomaly(channelNames, "siconca", 7, 10)
	assert.Equal(t, "damped_anomaly", net.Name())
	assert.Equal(t, 7, net.Seed())
}
