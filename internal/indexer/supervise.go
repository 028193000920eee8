package indexer

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// Watcher is a long-running task supervised alongside the pipeline, such as a
// connection monitor. Watch blocks until ctx is done or the task fails.
type Watcher interface {
	Watch(ctx context.Context) error
}

// RunSupervised runs the pipeline and watchers together. The first watcher failure
// cancels the pipeline and is returned. When the pipeline ends, watchers are stopped.
func (r *Runner) RunSupervised(ctx context.Context, watchers ...Watcher) error {
	g, gctx := errgroup.WithContext(ctx)
	watchCtx, stop := context.WithCancel(gctx)
	defer stop()

	g.Go(func() error {
		defer stop()
		return r.Run(gctx)
	})

	for _, w := range watchers {
		w := w
		g.Go(func() error {
			err := w.Watch(watchCtx)
			if err != nil && watchCtx.Err() != nil && errors.Is(err, watchCtx.Err()) {
				return nil
			}
			return err
		})
	}

	return g.Wait()
}
