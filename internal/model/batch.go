package model

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"lutfit/internal/colorset"
)

// ctxCheckEvery is how many points a worker evaluates between cancellation checks.
const ctxCheckEvery = 256

// evaluateBatch shards points into contiguous chunks, one per worker. Each
// output slot is written by exactly one goroutine.
func evaluateBatch(ctx context.Context, eval func(colorset.Point3) colorset.Point3, points []colorset.Point3, workers int) ([]colorset.Point3, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	out := make([]colorset.Point3, len(points))
	if len(points) == 0 {
		return out, nil
	}
	chunk := (len(points) + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < len(points); start += chunk {
		start := start
		end := min(start+chunk, len(points))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if (i-start)%ctxCheckEvery == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				out[i] = eval(points[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
