package bench

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Fold reduces items on at most workers goroutines. Each goroutine folds one
// contiguous partition with op, starting from zero. The partial results are
// combined with combine, in partition order, after every goroutine is done.
func Fold[T, R any](
	ctx context.Context,
	items []T,
	workers int,
	zero R,
	op func(acc R, item T) R,
	combine func(a, b R) R,
) (R, error) {
	if workers <= 0 {
		workers = 1
	}

	if workers > len(items) {
		workers = len(items)
	}

	if workers == 0 {
		return zero, nil
	}

	partials := make([]R, workers)
	size := (len(items) + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for w := 0; w < workers; w++ {
		lo := min(w*size, len(items))
		hi := min(lo+size, len(items))

		g.Go(func() error {
			acc := zero
			for _, item := range items[lo:hi] {
				if err := gctx.Err(); err != nil {
					return err
				}

				acc = op(acc, item)
			}

			partials[w] = acc

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return zero, err
	}

	result := zero
	for _, p := range partials {
		result = combine(result, p)
	}

	return result, nil
}
