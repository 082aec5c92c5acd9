package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/lrx/internal/cache"
	"github.com/desertthunder/lrx/internal/shared"
	"github.com/urfave/cli/v3"
)

// CacheList prints every cached path with its file or directory tag.
func (r *Runner) CacheList(ctx context.Context, cmd *cli.Command) error {
	store := r.storeFor(cmd, r.configFor(cmd))

	entries, err := store.Load()
	if err != nil {
		return fmt.Errorf("failed to load cache: %w", err)
	}

	if cmd.Bool("json") {
		if entries == nil {
			entries = []cache.Entry{}
		}
		return r.writeJSON(entries, true)
	}

	if len(entries) == 0 {
		return r.writePlain("Cache is empty: %s\n", store.Path())
	}

	r.writePlainHeader(fmt.Sprintf("Cache: %s (%d entries)", store.Path(), len(entries)))
	for _, entry := range entries {
		marker := " "
		if entry.Dir {
			marker = "d"
		}
		r.writePlain("%s %s\n", marker, entry.Path)
	}

	return nil
}

// CacheAdd marks a path as processed so future scans skip it.
func (r *Runner) CacheAdd(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}

	store := r.storeFor(cmd, r.configFor(cmd))

	entries, err := store.Load()
	if err != nil {
		return fmt.Errorf("failed to load cache: %w", err)
	}

	if cache.Contains(path, entries) {
		return r.writePlain("Already cached: %s\n", path)
	}

	entry := cache.NewEntry(path)
	if cmd.Bool("dir") {
		entry = cache.DirEntry(path)
	}

	if err := store.Save(append(entries, entry)); err != nil {
		return fmt.Errorf("failed to save cache: %w", err)
	}

	r.logger.Info("cached path", "path", path, "dir", entry.Dir)

	if entry.Dir {
		return r.writePlain("✓ Cached directory: %s\n", path)
	}

	return r.writePlain("✓ Cached: %s\n", path)
}

// CacheRemove drops an exact path from the cache. A path covered only by a
// directory entry stays covered until the directory entry itself is removed.
func (r *Runner) CacheRemove(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}

	store := r.storeFor(cmd, r.configFor(cmd))

	entries, err := store.Load()
	if err != nil {
		return fmt.Errorf("failed to load cache: %w", err)
	}

	kept := make([]cache.Entry, 0, len(entries))
	for _, entry := range entries {
		if entry.Path != path {
			kept = append(kept, entry)
		}
	}

	if len(kept) == len(entries) {
		return fmt.Errorf("path not in cache: %s", path)
	}

	if err := store.Save(kept); err != nil {
		return fmt.Errorf("failed to save cache: %w", err)
	}

	r.logger.Info("removed cached path", "path", path)

	return r.writePlain("✓ Removed: %s\n", path)
}

// CacheClear empties the cache file.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	store := r.storeFor(cmd, r.configFor(cmd))

	entries, err := store.Load()
	if err != nil {
		return fmt.Errorf("failed to load cache: %w", err)
	}

	if err := store.Save(nil); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	r.logger.Info("cleared cache", "path", store.Path(), "entries", len(entries))

	return r.writePlain("✓ Cleared %d entries from %s\n", len(entries), store.Path())
}

// cacheCommand manages the processed-paths cache file.
func cacheCommand(r *Runner) *cli.Command {
	configFlag := func() *cli.StringFlag {
		return &cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
		}
	}
	cacheFlag := func() *cli.StringFlag {
		return &cli.StringFlag{
			Name:  "cache",
			Usage: "Path to the processed-paths cache file (overrides config)",
		}
	}

	return &cli.Command{
		Name:  "cache",
		Usage: "Manage the processed-paths cache",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List cached paths",
				Flags: []cli.Flag{
					configFlag(),
					cacheFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.CacheList,
			},
			{
				Name:  "add",
				Usage: "Mark a file or directory as processed",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					configFlag(),
					cacheFlag(),
					&cli.BoolFlag{
						Name:  "dir",
						Usage: "Cache the path as a directory prefix even if it does not exist yet",
					},
				},
				Action: r.CacheAdd,
			},
			{
				Name:  "remove",
				Usage: "Drop a path from the cache",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					configFlag(),
					cacheFlag(),
				},
				Action: r.CacheRemove,
			},
			{
				Name:  "clear",
				Usage: "Remove every entry from the cache",
				Flags: []cli.Flag{
					configFlag(),
					cacheFlag(),
				},
				Action: r.CacheClear,
			},
		},
	}
}
