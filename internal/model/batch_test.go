package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lutfit/internal/colorset"
)

func TestEvaluateBatchOrder(t *testing.T) {
	points := randomPoints(9, 1000)
	double := func(p colorset.Point3) colorset.Point3 {
		return colorset.Point3{2 * p[0], 2 * p[1], 2 * p[2]}
	}
	for _, workers := range []int{0, 1, 7, 5000} {
		out, err := evaluateBatch(context.Background(), double, points, workers)
		require.NoError(t, err)
		require.Len(t, out, len(points))
		for i, p := range points {
			assert.Equal(t, double(p), out[i])
		}
	}
}

func TestEvaluateBatchEmpty(t *testing.T) {
	out, err := evaluateBatch(context.Background(), func(p colorset.Point3) colorset.Point3 { return p }, nil, 4)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestEvaluateBatchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := evaluateBatch(ctx, func(p colorset.Point3) colorset.Point3 { return p }, randomPoints(10, 100), 2)
	assert.ErrorIs(t, err, context.Canceled)
}
