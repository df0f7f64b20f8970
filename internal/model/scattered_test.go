package model

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lutfit/internal/colorset"
	"lutfit/internal/errs"
	"lutfit/internal/grid"
)

func randomPoints(seed uint64, n int) []colorset.Point3 {
	rng := rand.New(rand.NewPCG(seed, 1))
	points := make([]colorset.Point3, n)
	for i := range points {
		points[i] = colorset.Point3{rng.Float64(), rng.Float64(), rng.Float64()}
	}
	return points
}

func warp(p colorset.Point3) colorset.Point3 {
	return colorset.Point3{
		p[0] * p[0],
		math.Sqrt(p[1]),
		0.2 + 0.5*p[2] + 0.1*math.Sin(3*p[0]),
	}
}

func assertClose(t *testing.T, want, got colorset.Point3, tol float64, msgAndArgs ...interface{}) {
	t.Helper()
	for c := 0; c < 3; c++ {
		assert.InDelta(t, want[c], got[c], tol, msgAndArgs...)
	}
}

func TestScatteredConstantTarget(t *testing.T) {
	t.Parallel()
	src := randomPoints(1, 12)
	constant := colorset.Point3{0.3, 0.6, 0.9}
	dst := make([]colorset.Point3, len(src))
	for i := range dst {
		dst[i] = constant
	}

	m, err := FitScattered(context.Background(), colorset.New(src, dst), DefaultScatteredConfig())
	require.NoError(t, err)

	points, err := grid.Generate(5)
	require.NoError(t, err)
	for _, p := range points {
		assertClose(t, constant, m.Evaluate(p), 1e-8, "at %v", p)
	}
}

func TestScatteredIdentityFromEndpoints(t *testing.T) {
	t.Parallel()
	ends := []colorset.Point3{{0, 0, 0}, {1, 1, 1}}
	m, err := FitScattered(context.Background(), colorset.New(ends, ends), DefaultScatteredConfig())
	require.NoError(t, err)

	g, err := grid.New(3)
	require.NoError(t, err)
	out, err := m.EvaluateBatch(context.Background(), g.Points, 0)
	require.NoError(t, err)
	require.Len(t, out, 27)

	for i, p := range g.Points {
		assertClose(t, p, out[i], 1e-6, "grid sample %v", p)
	}
}

func TestScatteredShiftOffAxis(t *testing.T) {
	t.Parallel()
	// Sources along the grey axis, every target shifted by the same offset.
	src := []colorset.Point3{{0, 0, 0}, {0.5, 0.5, 0.5}, {1, 1, 1}}
	shift := colorset.Point3{0.1, -0.05, 0.02}
	dst := make([]colorset.Point3, len(src))
	for i, p := range src {
		dst[i] = colorset.Point3{p[0] + shift[0], p[1] + shift[1], p[2] + shift[2]}
	}
	m, err := FitScattered(context.Background(), colorset.New(src, dst), DefaultScatteredConfig())
	require.NoError(t, err)

	for _, p := range []colorset.Point3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {0.5, 0, 1}} {
		want := colorset.Point3{p[0] + shift[0], p[1] + shift[1], p[2] + shift[2]}
		assertClose(t, want, m.Evaluate(p), 1e-6, "at %v", p)
	}
}

func TestScatteredIdentityFromSpreadPoints(t *testing.T) {
	t.Parallel()
	src := randomPoints(2, 30)
	m, err := FitScattered(context.Background(), colorset.New(src, src), DefaultScatteredConfig())
	require.NoError(t, err)

	points, _ := grid.Generate(4)
	for _, p := range points {
		assertClose(t, p, m.Evaluate(p), 1e-6, "at %v", p)
	}
}

func TestScatteredInterpolatesData(t *testing.T) {
	t.Parallel()
	src := randomPoints(3, 20)
	dst := make([]colorset.Point3, len(src))
	for i, p := range src {
		dst[i] = warp(p)
	}
	cfg := ScatteredConfig{BaseRadius: 0.5, Layers: 3}
	m, err := FitScattered(context.Background(), colorset.New(src, dst), cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Layers())

	for i, p := range src {
		assertClose(t, dst[i], m.Evaluate(p), 1e-6, "data point %d", i)
	}

	rep, err := Assess(context.Background(), m, colorset.New(src, dst), 2)
	require.NoError(t, err)
	assert.Equal(t, 20, rep.Points)
	assert.Less(t, rep.MaxError, 1e-6)
	assert.LessOrEqual(t, rep.RMSError, rep.MaxError)
}

func TestScatteredDeterministic(t *testing.T) {
	t.Parallel()
	src := randomPoints(4, 25)
	dst := make([]colorset.Point3, len(src))
	for i, p := range src {
		dst[i] = warp(p)
	}
	m, err := FitScattered(context.Background(), colorset.New(src, dst), DefaultScatteredConfig())
	require.NoError(t, err)

	points, _ := grid.Generate(6)
	for _, p := range points {
		assert.Equal(t, m.Evaluate(p), m.Evaluate(p))
	}

	single := make([]colorset.Point3, len(points))
	for i, p := range points {
		single[i] = m.Evaluate(p)
	}
	for _, workers := range []int{0, 1, 3, 1000} {
		batch, err := m.EvaluateBatch(context.Background(), points, workers)
		require.NoError(t, err)
		if diff := cmp.Diff(single, batch); diff != "" {
			t.Errorf("workers=%d: batch differs from Evaluate (-single +batch):\n%s", workers, diff)
		}
	}
}

func TestScatteredDuplicatePoints(t *testing.T) {
	t.Parallel()
	src := []colorset.Point3{{0, 0, 0}, {0.5, 0.5, 0.5}, {0.5, 0.5, 0.5}, {1, 1, 1}}
	dst := []colorset.Point3{{0, 0, 0}, {0.4, 0.5, 0.5}, {0.6, 0.5, 0.5}, {1, 1, 1}}
	set := colorset.New(src, dst)

	_, err := FitScattered(context.Background(), set, DefaultScatteredConfig())
	require.ErrorIs(t, err, errs.ErrSingularFit)

	cfg := DefaultScatteredConfig()
	cfg.Regularization = 0.01
	m, err := FitScattered(context.Background(), set, cfg)
	require.NoError(t, err)
	out := m.Evaluate(colorset.Point3{0.5, 0.5, 0.5})
	assert.InDelta(t, 0.5, out[0], 0.1)
}

func TestScatteredNearDuplicatePoints(t *testing.T) {
	t.Parallel()
	src := []colorset.Point3{{0.5, 0.5, 0.5}, {0.5, 0.5, 0.5 + 1e-7}}
	dst := []colorset.Point3{{0.4, 0.4, 0.4}, {0.6, 0.6, 0.6}}
	set := colorset.New(src, dst)

	_, err := FitScattered(context.Background(), set, DefaultScatteredConfig())
	require.ErrorIs(t, err, errs.ErrSingularFit)

	cfg := DefaultScatteredConfig()
	cfg.Regularization = 0.01
	_, err = FitScattered(context.Background(), set, cfg)
	require.NoError(t, err)
}

func TestScatteredSinglePoint(t *testing.T) {
	t.Parallel()
	set := colorset.New([]colorset.Point3{{0.2, 0.2, 0.2}}, []colorset.Point3{{0.7, 0.1, 0.4}})
	m, err := FitScattered(context.Background(), set, DefaultScatteredConfig())
	require.NoError(t, err)
	assertClose(t, colorset.Point3{0.7, 0.1, 0.4}, m.Evaluate(colorset.Point3{0.2, 0.2, 0.2}), 1e-9)
	// One correspondence is a pure shift.
	assertClose(t, colorset.Point3{1.4, -0.1, 0.5}, m.Evaluate(colorset.Point3{0.9, 0, 0.3}), 1e-9)
}

func TestScatteredErrors(t *testing.T) {
	t.Parallel()
	ok := colorset.New(randomPoints(5, 4), randomPoints(6, 4))

	cases := []struct {
		name string
		set  *colorset.Set
		cfg  ScatteredConfig
		want error
	}{
		{"zero radius", ok, ScatteredConfig{BaseRadius: 0, Layers: 1}, errs.ErrConfig},
		{"no layers", ok, ScatteredConfig{BaseRadius: 1, Layers: 0}, errs.ErrConfig},
		{"negative smoothing", ok, ScatteredConfig{BaseRadius: 1, Layers: 1, Regularization: -1}, errs.ErrConfig},
		{"mismatch", colorset.New(randomPoints(5, 4), randomPoints(6, 3)), DefaultScatteredConfig(), errs.ErrDataMismatch},
		{"empty", colorset.New(nil, nil), DefaultScatteredConfig(), errs.ErrInsufficientData},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FitScattered(context.Background(), tc.set, tc.cfg)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestScatteredCanceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := FitScattered(ctx, colorset.New(randomPoints(7, 5), randomPoints(8, 5)), DefaultScatteredConfig())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWendland(t *testing.T) {
	assert.Equal(t, 1.0, wendland(0))
	assert.Equal(t, 0.0, wendland(1))
	assert.Equal(t, 0.0, wendland(2))
	prev := wendland(0)
	for x := 0.05; x < 1; x += 0.05 {
		v := wendland(x)
		assert.Less(t, v, prev)
		prev = v
	}
}
