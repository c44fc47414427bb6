package domain

import (
	"time"

	"github.com/ctessum/sparse"
)

// Sample is one training example for a single target date.
type Sample struct {
	Date time.Time

	// X holds the input planes, shape (h, w, channels).
	X *sparse.DenseArray
	// Y holds future SIC ground truth, shape (h, w, leads, 1).
	Y *sparse.DenseArray
	// Weights mirrors Y and carries the per-cell loss weighting.
	Weights *sparse.DenseArray
}

// Batch is a group of samples written to a single batch file.
type Batch struct {
	Index   int
	Samples []Sample
}

// Dates lists the target dates of the samples in the batch.
func (b Batch) Dates() []time.Time {
	out := make([]time.Time, len(b.Samples))
	for i, s := range b.Samples {
		out[i] = s.Date
	}
	return out
}
