package model

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"lutfit/internal/colorset"
	"lutfit/internal/errs"
)

const (
	// MinScatteredPoints is the smallest set a Scattered interpolant is fitted to.
	MinScatteredPoints = 1

	// Eigenmodes of a coarse layer system below coarseTol*λmax are not fitted
	// by that layer; the residual they carry is left to finer layers. The
	// finest layer keeps everything above fineTol*λmax.
	coarseTol = 1e-3
	fineTol   = 1e-10
	// Rank cutoff for the affine base term.
	affineRcond = 1e-10
	// Source points closer than this are treated as duplicates.
	duplicateTol = 1e-9
)

// ScatteredConfig tunes a hierarchical RBF fit.
type ScatteredConfig struct {
	// BaseRadius is the support radius of the coarsest layer. Each following
	// layer halves it.
	BaseRadius float64
	// Layers is the number of refinement layers.
	Layers int
	// Regularization is added to the diagonal of every layer system.
	Regularization float64
}

// DefaultScatteredConfig returns the settings used when none are given.
func DefaultScatteredConfig() ScatteredConfig {
	return ScatteredConfig{
		BaseRadius:     5.0,
		Layers:         5,
		Regularization: 0,
	}
}

// Validate checks the tuning parameters.
func (c ScatteredConfig) Validate() error {
	if !(c.BaseRadius > 0) || math.IsInf(c.BaseRadius, 0) {
		return fmt.Errorf("%w: base radius must be positive, got %v", errs.ErrConfig, c.BaseRadius)
	}
	if c.Layers < 1 {
		return fmt.Errorf("%w: layer count must be at least 1, got %d", errs.ErrConfig, c.Layers)
	}
	if c.Regularization < 0 || math.IsNaN(c.Regularization) {
		return fmt.Errorf("%w: regularization must not be negative, got %v", errs.ErrConfig, c.Regularization)
	}
	return nil
}

// MinPoints implements Fitter.
func (c ScatteredConfig) MinPoints() int { return MinScatteredPoints }

// Fit implements Fitter.
func (c ScatteredConfig) Fit(ctx context.Context, set *colorset.Set) (Model, error) {
	return FitScattered(ctx, set, c)
}

type rbfLayer struct {
	radius  float64
	dense   bool // support covers every center
	weights []colorset.Point3
}

// Scattered is a fitted hierarchical RBF interpolant: an affine base term
// plus layers of compactly supported Wendland functions, coarse to fine,
// each fitted to the residual left by the layers before it.
type Scattered struct {
	centers []colorset.Point3
	tree    *centerTree

	srcMean  colorset.Point3
	dispMean colorset.Point3    // mean of target-source
	slope    [3]colorset.Point3 // slope[in][out], displacement per unit source

	layers []rbfLayer
}

// FitScattered fits a hierarchical RBF interpolant through set. The context
// is checked between layers.
func FitScattered(ctx context.Context, set *colorset.Set, cfg ScatteredConfig) (*Scattered, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := set.Validate(MinScatteredPoints); err != nil {
		return nil, err
	}
	src := set.Sources()
	dst := set.Targets()

	s := &Scattered{
		centers: src,
		tree:    newCenterTree(src),
	}

	if cfg.Regularization == 0 {
		if i, j, ok := s.findDuplicate(); ok {
			return nil, fmt.Errorf("%w: source points %d and %d coincide, use regularization", errs.ErrSingularFit, i, j)
		}
	}

	if err := s.fitAffine(src, dst); err != nil {
		return nil, err
	}

	residual := make([]colorset.Point3, len(src))
	for i, p := range src {
		residual[i] = sub(dst[i], s.affine(p))
	}

	diameter := math.Sqrt(boundingDiagonal2(src))
	radius := cfg.BaseRadius
	for k := 0; k < cfg.Layers; k++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		l := rbfLayer{radius: radius, dense: radius >= diameter}
		tol := coarseTol
		if k == cfg.Layers-1 {
			tol = fineTol
		}
		// Without regularization the finest layer must interpolate every
		// point, so any mode it would have to drop is an error.
		strict := k == cfg.Layers-1 && cfg.Regularization == 0
		w, err := s.solveLayer(l, residual, cfg.Regularization, tol, strict)
		if err != nil {
			return nil, fmt.Errorf("layer %d (radius %g): %w", k, radius, err)
		}
		l.weights = w
		s.layers = append(s.layers, l)

		for i, p := range src {
			residual[i] = sub(residual[i], s.layerAt(&l, p))
		}
		radius /= 2
	}
	return s, nil
}

func (s *Scattered) findDuplicate() (int, int, bool) {
	for i, p := range s.centers {
		dup := -1
		s.tree.within(p, duplicateTol, func(j int, _ float64) {
			if j != i && (dup < 0 || j < dup) {
				dup = j
			}
		})
		if dup >= 0 {
			return min(i, dup), max(i, dup), true
		}
	}
	return 0, 0, false
}

// fitAffine fits the displacement dst-src as dispMean + (src-mean(src))·slope
// in the minimum-norm least-squares sense. Source directions the data does
// not span get no slope, so the base term passes them through unchanged.
func (s *Scattered) fitAffine(src, dst []colorset.Point3) error {
	n := len(src)
	disp := make([]colorset.Point3, n)
	for i := range src {
		disp[i] = sub(dst[i], src[i])
	}
	s.srcMean = mean(src)
	s.dispMean = mean(disp)

	x := mat.NewDense(n, 3, nil)
	t := mat.NewDense(n, 3, nil)
	for i := range src {
		ds := sub(src[i], s.srcMean)
		dt := sub(disp[i], s.dispMean)
		x.SetRow(i, ds[:])
		t.SetRow(i, dt[:])
	}

	var svd mat.SVD
	if !svd.Factorize(x, mat.SVDThin) {
		return fmt.Errorf("%w: affine term factorization failed", errs.ErrSingularFit)
	}
	rank := svd.Rank(affineRcond)
	if rank == 0 {
		return nil
	}
	var beta mat.Dense
	svd.SolveTo(&beta, t, rank)
	for in := 0; in < 3; in++ {
		for out := 0; out < 3; out++ {
			v := beta.At(in, out)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: affine term is not finite", errs.ErrSingularFit)
			}
			s.slope[in][out] = v
		}
	}
	return nil
}

// solveLayer solves (Φ + λI) w = residual through a symmetric
// eigendecomposition, skipping modes weaker than tol relative to the
// strongest. A strict solve fails instead of skipping.
func (s *Scattered) solveLayer(l rbfLayer, residual []colorset.Point3, lambda, tol float64, strict bool) ([]colorset.Point3, error) {
	n := len(s.centers)
	phi := mat.NewSymDense(n, nil)
	for i, p := range s.centers {
		s.neighbours(&l, p, func(j int, d2 float64) {
			if j >= i {
				phi.SetSym(i, j, wendland(math.Sqrt(d2)/l.radius))
			}
		})
		phi.SetSym(i, i, phi.At(i, i)+lambda)
	}

	var es mat.EigenSym
	if !es.Factorize(phi, true) {
		return nil, fmt.Errorf("%w: eigendecomposition did not converge", errs.ErrSingularFit)
	}
	vals := es.Values(nil)
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	rhs := mat.NewDense(n, 3, nil)
	for i, r := range residual {
		rhs.SetRow(i, r[:])
	}
	var proj mat.Dense
	proj.Mul(vecs.T(), rhs)

	lmax := math.Max(math.Abs(floats.Min(vals)), math.Abs(floats.Max(vals)))
	for i, v := range vals {
		row := proj.RawRowView(i)
		if math.Abs(v) <= tol*lmax {
			if strict {
				return nil, fmt.Errorf("%w: finest layer is ill-conditioned, source points nearly coincide; use regularization", errs.ErrSingularFit)
			}
			floats.Scale(0, row)
			continue
		}
		floats.Scale(1/v, row)
	}

	var w mat.Dense
	w.Mul(&vecs, &proj)
	weights := make([]colorset.Point3, n)
	for i := range weights {
		row := w.RawRowView(i)
		if floats.HasNaN(row) || math.IsInf(floats.Sum(row), 0) {
			return nil, fmt.Errorf("%w: weights are not finite", errs.ErrSingularFit)
		}
		copy(weights[i][:], row)
	}
	return weights, nil
}

// neighbours visits every center inside the support of l around p.
func (s *Scattered) neighbours(l *rbfLayer, p colorset.Point3, fn func(idx int, d2 float64)) {
	if l.dense {
		for i, c := range s.centers {
			if d2 := sqDist(p, c); d2 < l.radius*l.radius {
				fn(i, d2)
			}
		}
		return
	}
	s.tree.within(p, l.radius, fn)
}

func (s *Scattered) affine(p colorset.Point3) colorset.Point3 {
	d := sub(p, s.srcMean)
	out := colorset.Point3{p[0] + s.dispMean[0], p[1] + s.dispMean[1], p[2] + s.dispMean[2]}
	for in := 0; in < 3; in++ {
		for c := 0; c < 3; c++ {
			out[c] += d[in] * s.slope[in][c]
		}
	}
	return out
}

func (s *Scattered) layerAt(l *rbfLayer, p colorset.Point3) colorset.Point3 {
	var out colorset.Point3
	s.neighbours(l, p, func(i int, d2 float64) {
		f := wendland(math.Sqrt(d2) / l.radius)
		w := l.weights[i]
		out[0] += f * w[0]
		out[1] += f * w[1]
		out[2] += f * w[2]
	})
	return out
}

// Evaluate implements Model.
func (s *Scattered) Evaluate(p colorset.Point3) colorset.Point3 {
	out := s.affine(p)
	for k := range s.layers {
		v := s.layerAt(&s.layers[k], p)
		out[0] += v[0]
		out[1] += v[1]
		out[2] += v[2]
	}
	return out
}

// EvaluateBatch implements Model.
func (s *Scattered) EvaluateBatch(ctx context.Context, points []colorset.Point3, workers int) ([]colorset.Point3, error) {
	return evaluateBatch(ctx, s.Evaluate, points, workers)
}

// Layers returns the number of fitted layers.
func (s *Scattered) Layers() int { return len(s.layers) }

// wendland is the C2 Wendland function, positive definite in three
// dimensions, with support [0,1).
func wendland(t float64) float64 {
	if t >= 1 {
		return 0
	}
	u := 1 - t
	u2 := u * u
	return u2 * u2 * (4*t + 1)
}

func sub(a, b colorset.Point3) colorset.Point3 {
	return colorset.Point3{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func mean(points []colorset.Point3) colorset.Point3 {
	var m colorset.Point3
	if len(points) == 0 {
		return m
	}
	for _, p := range points {
		m[0] += p[0]
		m[1] += p[1]
		m[2] += p[2]
	}
	n := float64(len(points))
	return colorset.Point3{m[0] / n, m[1] / n, m[2] / n}
}

func boundingDiagonal2(points []colorset.Point3) float64 {
	lo, hi := points[0], points[0]
	for _, p := range points[1:] {
		for c := 0; c < 3; c++ {
			lo[c] = math.Min(lo[c], p[c])
			hi[c] = math.Max(hi[c], p[c])
		}
	}
	return sqDist(lo, hi)
}
