package dataset

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// chunkRanges splits n items into at most workers contiguous ranges.
// The split depends only on n and workers, never on scheduling.
func chunkRanges(n, workers int) [][2]int {
	if n <= 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}
	size := n / workers
	rem := n % workers
	ranges := make([][2]int, 0, workers)
	start := 0
	for i := 0; i < workers; i++ {
		end := start + size
		if i < rem {
			end++
		}
		ranges = append(ranges, [2]int{start, end})
		start = end
	}
	return ranges
}

// parallelFold folds contiguous chunks of files on separate goroutines
// and hands the partials back in chunk order. Callers merge the partials
// sequentially, so the combined result is identical for any worker count.
func parallelFold[P any](ctx context.Context, files []FileRef, workers int, fold func(context.Context, []FileRef) (P, error)) ([]P, error) {
	ranges := chunkRanges(len(files), workers)
	if len(ranges) == 0 {
		return nil, nil
	}
	partials := make([]P, len(ranges))
	g, ctx := errgroup.WithContext(ctx)
	for i, r := range ranges {
		i, r := i, r
		g.Go(func() error {
			p, err := fold(ctx, files[r[0]:r[1]])
			if err != nil {
				return err
			}
			partials[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return partials, nil
}
