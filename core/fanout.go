package core

import (
	"context"

	"github.com/sourcegraph/conc/pool"
)

// fanOut runs independent steps concurrently and joins them. The first
// failure cancels the siblings and is the error returned.
func fanOut(ctx context.Context, steps ...func(ctx context.Context) error) error {
	if len(steps) == 0 {
		return nil
	}
	p := pool.New().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError()
	for _, step := range steps {
		if step == nil {
			continue
		}
		p.Go(step)
	}
	return p.Wait()
}

// fanOutEach runs fn for every index in [0, n) concurrently.
func fanOutEach(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	steps := make([]func(ctx context.Context) error, 0, n)
	for i := 0; i < n; i++ {
		steps = append(steps, func(ctx context.Context) error {
			return fn(ctx, i)
		})
	}
	return fanOut(ctx, steps...)
}
