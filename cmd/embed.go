package main

import (
	"context"

	"github.com/desertthunder/lrx/internal/shared"
	"github.com/desertthunder/lrx/internal/tagger"
	"github.com/urfave/cli/v3"
)

// Embed writes saved .lrc lyrics into the ID3v2 frames of MP3 files.
func (r *Runner) Embed(ctx context.Context, cmd *cli.Command) error {
	config := r.configFor(cmd)

	root := cmd.String("root")
	if root == "" {
		root = config.Library.Root
	}
	root = shared.ExpandPath(root)

	force := cmd.Bool("force")

	r.logger.Info("embedding lyrics", "root", root, "force", force)

	embedder := tagger.NewEmbedder(tagger.EmbedderOpts{
		Logger: r.logger,
		Force:  force,
	})

	result, err := embedder.EmbedDir(root)
	if err != nil {
		return err
	}

	r.writePlainHeader("Embed Complete")
	r.writePlain("Embedded: %d\n", result.Embedded)
	r.writePlain("Skipped: %d\n", result.Skipped)
	r.writePlain("Failed: %d\n", result.Failed)

	return nil
}
