// Package model defines how trained forecast networks are invoked. Real
// training happens elsewhere; the networks here are reference baselines
// that let the prediction and evaluation paths run end to end.
package model

import (
	"fmt"
	"math"

	"github.com/ctessum/sparse"

	"github.com/bnubald/icenet/internal/domain"
)

// Network produces a forecast stack from an assembled input sample. The
// returned array is shaped (height, width, leadtimes, 1) to line up with
// dataset ground truth.
type Network interface {
	// Name identifies the network in output paths.
	Name() string
	// Seed identifies the trained instance in output paths.
	Seed() int
	// Predict runs the network over one input sample.
	Predict(sample domain.Sample, leadtimes int) (*sparse.DenseArray, error)
}

// channelIndex finds a named input plane, or -1.
func channelIndex(names []string, want string) int {
	for i, n := range names {
		if n == want {
			return i
		}
	}
	return -1
}

// lastObserved extracts the most recent ground-truth plane from a sample's
// input channels. Lag channels are named <var>_lag_<offset> with offset 0
// being the target date itself.
func lastObserved(sample domain.Sample, channelNames []string, truthVar string) (*sparse.DenseArray, error) {
	idx := channelIndex(channelNames, fmt.Sprintf("%s_lag_0", truthVar))
	if idx < 0 {
		return nil, fmt.Errorf("no %s_lag_0 channel in %v", truthVar, channelNames)
	}
	h, w := sample.X.Shape[0], sample.X.Shape[1]
	plane := sparse.ZerosDense(h, w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			plane.Set(sample.X.Get(y, x, idx), y, x)
		}
	}
	return plane, nil
}

// Persistence forecasts the last observed field unchanged at every
// leadtime. It is the standard no-skill baseline.
type Persistence struct {
	channelNames []string
	truthVar     string
	seed         int
}

// NewPersistence builds a persistence baseline over the given channel
// layout and ground truth variable.
func NewPersistence(channelNames []string, truthVar string, seed int) *Persistence {
	return &Persistence{channelNames: channelNames, truthVar: truthVar, seed: seed}
}

func (p *Persistence) Name() string { return "persistence" }
func (p *Persistence) Seed() int    { return p.seed }

func (p *Persistence) Predict(sample domain.Sample, leadtimes int) (*sparse.DenseArray, error) {
	last, err := lastObserved(sample, p.channelNames, p.truthVar)
	if err != nil {
		return nil, err
	}
	h, w := last.Shape[0], last.Shape[1]
	out := sparse.ZerosDense(h, w, leadtimes, 1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := last.Get(y, x)
			for l := 0; l < leadtimes; l++ {
				out.Set(v, y, x, l, 0)
			}
		}
	}
	return out, nil
}

// DampedAnomaly decays the last observed field toward a climatological
// mean with an e-folding timescale in days. With no climatology it decays
// toward zero concentration.
type DampedAnomaly struct {
	channelNames []string
	truthVar     string
	seed         int

	// EFoldingDays controls the decay rate; larger means slower decay.
	EFoldingDays float64
	// Climatology, when set, is the (height, width) field decayed toward.
	Climatology *sparse.DenseArray
}

// NewDampedAnomaly builds a damped-anomaly baseline with the given decay
// timescale.
func NewDampedAnomaly(channelNames []string, truthVar string, seed int, efoldingDays float64) *DampedAnomaly {
	return &DampedAnomaly{
		channelNames: channelNames,
		truthVar:     truthVar,
		seed:         seed,
		EFoldingDays: efoldingDays,
	}
}

func (m *DampedAnomaly) Name() string { return "damped_anomaly" }
func (m *DampedAnomaly) Seed() int    { return m.seed }

func (m *DampedAnomaly) Predict(sample domain.Sample, leadtimes int) (*sparse.DenseArray, error) {
	if m.EFoldingDays <= 0 {
		return nil, fmt.Errorf("e-folding timescale must be positive, got %v", m.EFoldingDays)
	}
	last, err := lastObserved(sample, m.channelNames, m.truthVar)
	if err != nil {
		return nil, err
	}
	h, w := last.Shape[0], last.Shape[1]
	if m.Climatology != nil &&
		(m.Climatology.Shape[0] != h || m.Climatology.Shape[1] != w) {
		return nil, fmt.Errorf("climatology shape %v does not match grid (%d, %d)",
			m.Climatology.Shape, h, w)
	}

	out := sparse.ZerosDense(h, w, leadtimes, 1)
	for l := 0; l < leadtimes; l++ {
		decay := math.Exp(-float64(l+1) / m.EFoldingDays)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				mean := 0.0
				if m.Climatology != nil {
					mean = m.Climatology.Get(y, x)
				}
				v := mean + (last.Get(y, x)-mean)*decay
				out.Set(clamp01(v), y, x, l, 0)
			}
		}
	}
	return out, nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
