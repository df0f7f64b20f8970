package model

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"lutfit/internal/colorset"
)

// Report summarises how well a model reproduces its training set.
type Report struct {
	Points int
	// RMSError is the root mean square over every channel of every point.
	RMSError float64
	// MaxError is the largest absolute channel error.
	MaxError float64
}

// Assess evaluates m at every source point of set and compares the result
// with the targets.
func Assess(ctx context.Context, m Model, set *colorset.Set, workers int) (Report, error) {
	got, err := m.EvaluateBatch(ctx, set.Sources(), workers)
	if err != nil {
		return Report{}, err
	}
	want := set.Targets()
	sq := make([]float64, 0, 3*len(got))
	abs := make([]float64, 0, 3*len(got))
	for i := range got {
		for c := 0; c < 3; c++ {
			d := got[i][c] - want[i][c]
			sq = append(sq, d*d)
			abs = append(abs, math.Abs(d))
		}
	}
	r := Report{Points: len(got)}
	if len(sq) > 0 {
		r.RMSError = math.Sqrt(stat.Mean(sq, nil))
		r.MaxError = floats.Max(abs)
	}
	return r, nil
}
