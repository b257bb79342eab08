package stabilize

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Parallel runs fns concurrently inside a single suspended region with
// stabilization edges, and returns their results in argument order.
//
// However many functions are passed, the handler sees exactly one
// stabilization before the group and one after it. The first error cancels
// the context handed to the remaining functions.
func Parallel[T any](ctx context.Context, b *Bus, fns ...func(ctx context.Context) (T, error)) ([]T, error) {
	results := make([]T, len(fns))
	err := b.WithSuspended(ctx, func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)
		for i, fn := range fns {
			g.Go(func() error {
				v, err := fn(gctx)
				if err != nil {
					return err
				}
				results[i] = v
				return nil
			})
		}
		return g.Wait()
	}, true)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ParallelDo is Parallel for functions without a result.
func ParallelDo(ctx context.Context, b *Bus, fns ...func(ctx context.Context) error) error {
	return b.WithSuspended(ctx, func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)
		for _, fn := range fns {
			g.Go(func() error { return fn(gctx) })
		}
		return g.Wait()
	}, true)
}
