// Package metadata extracts the tag data needed for lyrics lookups from audio files.
package metadata

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/desertthunder/lrx/internal/shared"
	"github.com/dhowden/tag"
	"github.com/hcl/audioduration"
)

// Song holds the tag fields used to query a lyrics service.
//
// Artist and Title are required for a lookup; Album and Duration are
// best-effort and may be zero.
type Song struct {
	Album    string `json:"album"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Duration int    `json:"duration"` // Duration in seconds
}

// Extractor reads tag data from an audio file on disk.
type Extractor interface {
	// Extract returns the song metadata for the file at path.
	// Wraps shared.ErrExtractFailed when the file cannot be read or parsed.
	Extract(path string) (Song, error)
}

// TagExtractor implements Extractor using embedded tag frames for text fields
// and the audio stream itself for track length.
type TagExtractor struct{}

// NewTagExtractor creates a TagExtractor.
func NewTagExtractor() *TagExtractor {
	return &TagExtractor{}
}

// Extract reads tags from the file at path.
func (e *TagExtractor) Extract(path string) (Song, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Song{}, fmt.Errorf("%w: %v", shared.ErrExtractFailed, err)
	}
	if info.Size() == 0 {
		return Song{}, fmt.Errorf("%w: empty file %s", shared.ErrExtractFailed, path)
	}

	file, err := os.Open(path)
	if err != nil {
		return Song{}, fmt.Errorf("%w: %v", shared.ErrExtractFailed, err)
	}
	defer file.Close()

	data, err := tag.ReadFrom(file)
	if err != nil {
		return Song{}, fmt.Errorf("%w: unreadable tags in %s: %v", shared.ErrExtractFailed, path, err)
	}

	song := Song{
		Album:  cleanString(data.Album()),
		Title:  cleanString(data.Title()),
		Artist: cleanString(data.Artist()),
	}
	song.Duration = songDuration(file, string(data.FileType()))

	return song, nil
}

// songDuration computes the track length in whole seconds. Formats without a
// duration reader and unparseable streams yield 0; lookups still work, the
// service just cannot use length to narrow matches.
func songDuration(file *os.File, format string) int {
	var fileType int
	switch strings.ToLower(format) {
	case "mp3":
		fileType = audioduration.TypeMp3
	case "aac", "mp4", "m4a", "alac":
		fileType = audioduration.TypeMp4
	case "flac":
		fileType = audioduration.TypeFlac
	case "ogg", "vorbis":
		fileType = audioduration.TypeOgg
	default:
		return 0
	}

	// The tag reader consumed the stream, rewind before parsing frames.
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return 0
	}

	duration, err := audioduration.Duration(file, fileType)
	if err != nil {
		return 0
	}

	return int(duration)
}

// cleanString trims and collapses interior whitespace in a tag value.
func cleanString(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
