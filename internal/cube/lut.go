// Package cube bakes a fitted model into a 3D LUT and writes it out.
package cube

import (
	"context"
	"fmt"

	"lutfit/internal/colorset"
	"lutfit/internal/grid"
)

// Evaluator is the part of a fitted model a LUT needs.
type Evaluator interface {
	EvaluateBatch(ctx context.Context, points []colorset.Point3, workers int) ([]colorset.Point3, error)
}

// Lut holds one output color per grid point, in the grid's order.
type Lut struct {
	Size   int
	Values []colorset.Point3
}

// Build evaluates m at every point of g.
func Build(ctx context.Context, m Evaluator, g *grid.Grid, workers int) (*Lut, error) {
	values, err := m.EvaluateBatch(ctx, g.Points, workers)
	if err != nil {
		return nil, fmt.Errorf("evaluate grid: %w", err)
	}
	if len(values) != len(g.Points) {
		return nil, fmt.Errorf("evaluate grid: got %d values for %d points", len(values), len(g.Points))
	}
	return &Lut{Size: g.Size, Values: values}, nil
}

func (l *Lut) check() error {
	if l.Size < 1 {
		return fmt.Errorf("lut size must be at least 1, got %d", l.Size)
	}
	if want := l.Size * l.Size * l.Size; len(l.Values) != want {
		return fmt.Errorf("lut of size %d has %d values, want %d", l.Size, len(l.Values), want)
	}
	return nil
}
