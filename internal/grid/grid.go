// Package grid generates the regular sampling lattice a LUT is baked on.
//
// Points are ordered blue outermost, green in the middle and red innermost,
// so red varies fastest. This is the row order of a .cube file.
package grid

import (
	"fmt"

	"lutfit/internal/colorset"
	"lutfit/internal/errs"
)

// Grid is an N×N×N lattice over the unit cube.
type Grid struct {
	Size   int
	Points []colorset.Point3
}

// New generates the lattice with side length n.
func New(n int) (*Grid, error) {
	points, err := Generate(n)
	if err != nil {
		return nil, err
	}
	return &Grid{Size: n, Points: points}, nil
}

// Axis returns n evenly spaced values from 0 to 1 inclusive. A single
// sample sits at 0.
func Axis(n int) []float64 {
	if n < 1 {
		return nil
	}
	axis := make([]float64, n)
	if n == 1 {
		return axis
	}
	for i := range axis {
		axis[i] = float64(i) / float64(n-1)
	}
	return axis
}

// Generate returns the n³ lattice points in canonical order.
func Generate(n int) ([]colorset.Point3, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: grid size must be at least 1, got %d", errs.ErrConfig, n)
	}
	axis := Axis(n)
	points := make([]colorset.Point3, 0, n*n*n)
	for _, b := range axis {
		for _, g := range axis {
			for _, r := range axis {
				points = append(points, colorset.Point3{r, g, b})
			}
		}
	}
	return points, nil
}

// Index returns the position of lattice cell (r, g, b) in canonical order.
func Index(n, r, g, b int) int {
	return (b*n+g)*n + r
}

// Coords is the inverse of Index.
func Coords(n, i int) (r, g, b int) {
	return i % n, (i / n) % n, i / (n * n)
}
