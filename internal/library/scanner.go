package library

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// AudioExtensions is the allow-list of file extensions eligible for lyric
// lookups. Comparison is case-sensitive.
var AudioExtensions = map[string]bool{
	".flac": true,
	".mp3":  true,
	".wav":  true,
	".ogg":  true,
	".aac":  true,
	".wma":  true,
}

// IsAudioFile reports whether path has a recognized audio extension.
func IsAudioFile(path string) bool {
	return AudioExtensions[filepath.Ext(path)]
}

// LyricsPath returns the sibling .lrc path for an audio file,
// e.g. /music/track.flac -> /music/track.lrc.
func LyricsPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".lrc"
}

// Collect walks root and returns the audio files beneath it in lexical order.
// Entries that cannot be read are skipped so one bad directory does not abort
// the scan; an unreadable root is still an error.
func Collect(root string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}

			return nil
		}

		if d.IsDir() {
			return nil
		}

		if IsAudioFile(path) {
			files = append(files, path)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk library root %s: %w", root, err)
	}

	return files, nil
}
