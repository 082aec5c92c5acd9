// ID3v2 lyric embedding for MP3 files.
//
// Lyrics saved as sibling .lrc files can additionally be written into the
// USLT (unsynchronised lyrics) frame of the MP3 itself, so players without
// .lrc support still display them. Other audio formats keep the .lrc sibling
// as the only lyric artifact.
package tagger

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bogem/id3v2/v2"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/lrx/internal/library"
	"github.com/desertthunder/lrx/internal/shared"
)

// Embedder writes .lrc lyric text into MP3 USLT frames.
type Embedder struct {
	logger *log.Logger
	force  bool
}

// EmbedderOpts contains configuration options for creating an Embedder.
type EmbedderOpts struct {
	Logger *log.Logger
	Force  bool // overwrite existing lyric frames
}

// NewEmbedder creates an Embedder, filling unset options with defaults.
func NewEmbedder(opts EmbedderOpts) *Embedder {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Embedder{logger: opts.Logger, force: opts.Force}
}

// EmbedResult summarizes an EmbedDir pass.
type EmbedResult struct {
	Embedded int
	Skipped  int
	Failed   int
}

// EmbedDir walks root for .mp3 files with a sibling .lrc file and embeds
// each lyric text into its MP3. Files already carrying a lyric frame are
// skipped unless the Embedder was created with Force.
func (e *Embedder) EmbedDir(root string) (EmbedResult, error) {
	var result EmbedResult

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}

			return nil
		}

		if d.IsDir() || filepath.Ext(path) != ".mp3" {
			return nil
		}

		text, err := os.ReadFile(library.LyricsPath(path))
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			result.Failed++
			e.logger.Error("failed to read lyrics file", "path", path, "error", err)
			return nil
		}

		embedded, err := e.EmbedFile(path, string(text))
		switch {
		case err != nil:
			result.Failed++
			e.logger.Error("failed to embed lyrics", "path", path, "error", err)
		case embedded:
			result.Embedded++
			e.logger.Info("embedded lyrics", "path", path)
		default:
			result.Skipped++
			e.logger.Debug("lyrics already embedded, skipping", "path", path)
		}

		return nil
	})
	if err != nil {
		return result, fmt.Errorf("failed to walk library root %s: %w", root, err)
	}

	return result, nil
}

// EmbedFile writes text into the USLT frame of the MP3 at path. It reports
// false when the file already carries a lyric frame and Force is off.
func (e *Embedder) EmbedFile(path, text string) (bool, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		// Files with a corrupt header still get a fresh tag.
		tag, err = id3v2.Open(path, id3v2.Options{Parse: false})
		if err != nil {
			return false, fmt.Errorf("failed to open %s: %w", path, err)
		}
	}
	defer tag.Close()

	lyricsID := tag.CommonID("Unsynchronised lyrics/text transcription")
	if len(tag.GetFrames(lyricsID)) > 0 && !e.force {
		return false, nil
	}

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.DeleteFrames(lyricsID)
	tag.AddUnsynchronisedLyricsFrame(id3v2.UnsynchronisedLyricsFrame{
		Encoding: id3v2.EncodingUTF8,
		Language: "und",
		Lyrics:   text,
	})

	if err := tag.Save(); err != nil {
		return false, fmt.Errorf("failed to save %s: %w", path, err)
	}

	return true, nil
}
