package backup

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

// forEachVolume runs fn for every volume id on a bounded pool and stops at
// the first failure, cancelling work not yet started.
func forEachVolume(ctx context.Context, ids []string, workers int, fn func(ctx context.Context, id string) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(poolSize(workers, len(ids)))
	for _, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(ctx, id)
		})
	}
	return g.Wait()
}

// forEachVolumeCollect runs fn for every volume id on a bounded pool and
// never stops early; the returned error joins every failure.
func forEachVolumeCollect(ctx context.Context, ids []string, workers int, fn func(ctx context.Context, id string) error) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(poolSize(workers, len(ids)))
	for _, id := range ids {
		g.Go(func() error {
			if err := fn(ctx, id); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// poolSize bounds the pool to the job count, with a floor of one worker.
func poolSize(workers, jobs int) int {
	if workers < 1 {
		workers = 1
	}
	if jobs > 0 && workers > jobs {
		workers = jobs
	}
	return workers
}
