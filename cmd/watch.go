package main

import (
	"context"
	"time"

	"github.com/desertthunder/lrx/internal/library"
	"github.com/desertthunder/lrx/internal/shared"
	"github.com/urfave/cli/v3"
)

// Watch brings the library current with an initial scan, then resolves
// filesystem event batches until the context is cancelled.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	config := r.configFor(cmd)

	root := cmd.String("root")
	if root == "" {
		root = config.Library.Root
	}
	root = shared.ExpandPath(root)

	debounceMS := cmd.Int("debounce")
	if debounceMS <= 0 {
		debounceMS = config.Watch.DebounceMS
	}

	store := r.storeFor(cmd, config)
	engine := r.engineFor(store, config.Scan.Concurrency)

	r.logger.Info("running initial scan", "root", root)

	if _, err := engine.Run(ctx, nil, root); err != nil {
		return err
	}

	watcher, err := library.NewWatcher(library.WatcherOpts{
		Root:     root,
		Debounce: time.Duration(debounceMS) * time.Millisecond,
		Logger:   r.logger,
	})
	if err != nil {
		return err
	}
	defer watcher.Close()

	watcher.Start(ctx)

	r.logger.Info("watching library", "root", root, "debounce_ms", debounceMS)
	r.writePlain("Watching %s (Ctrl+C to stop)\n", root)

	for {
		select {
		case batch, ok := <-watcher.Batches():
			if !ok {
				return nil
			}

			r.logger.Info("processing batch", "files", len(batch))

			// Each batch runs the same pipeline as scan, so a failed batch
			// only logs: the watch keeps going.
			if _, err := engine.RunPaths(ctx, nil, batch); err != nil {
				r.logger.Error("batch failed", "error", err)
			}
		case <-ctx.Done():
			return nil
		}
	}
}
