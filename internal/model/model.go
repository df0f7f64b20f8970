// Package model fits a continuous color transform to a correspondence set
// and evaluates it. Two variants share the Model contract: a hierarchical
// radial basis function interpolant (Scattered) and a small feed-forward
// regression network (Network).
//
// A fitted Model is immutable and safe for concurrent use.
package model

import (
	"context"

	"lutfit/internal/colorset"
)

// Method names accepted by NewFitter.
const (
	MethodScattered  = "scattered"
	MethodRegression = "regression"
)

// Model maps a source color to a target color.
type Model interface {
	// Evaluate is a pure function of the model and p.
	Evaluate(p colorset.Point3) colorset.Point3
	// EvaluateBatch returns Evaluate of every point, in input order.
	// workers <= 0 means GOMAXPROCS.
	EvaluateBatch(ctx context.Context, points []colorset.Point3, workers int) ([]colorset.Point3, error)
}

// Fitter builds a Model from a correspondence set.
type Fitter interface {
	// MinPoints is the smallest set the fitter accepts.
	MinPoints() int
	Fit(ctx context.Context, set *colorset.Set) (Model, error)
}
