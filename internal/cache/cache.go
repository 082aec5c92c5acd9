// Package cache persists the set of already-processed library paths between runs.
//
// The cache file is a flat list of absolute paths, one per line. An entry may
// name a single audio file or a directory; directory entries cover every path
// beneath them. The file is human-editable: blank lines are ignored and the
// set is rewritten sorted and deduplicated on save.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Entry is a single cached path, tagged as a file or a directory prefix.
// The tag is resolved once when the entry is created, not on every check.
type Entry struct {
	Path string `json:"path"`
	Dir  bool   `json:"dir"`
}

// NewEntry builds an Entry for path, tagging directories via a one-time stat.
// Paths that no longer exist are treated as file entries.
func NewEntry(path string) Entry {
	info, err := os.Stat(path)
	return Entry{Path: path, Dir: err == nil && info.IsDir()}
}

// FileEntry builds an Entry covering exactly one file path.
func FileEntry(path string) Entry {
	return Entry{Path: path}
}

// DirEntry builds an Entry covering every path beneath dir.
func DirEntry(path string) Entry {
	return Entry{Path: path, Dir: true}
}

// Contains reports whether path is covered by entries: either an exact match,
// or nested under a directory entry. Directory containment respects path
// segment boundaries, so /music/ab does not cover /music/abc/song.mp3.
func Contains(path string, entries []Entry) bool {
	cleaned := filepath.Clean(path)
	for _, entry := range entries {
		entryPath := filepath.Clean(entry.Path)
		if cleaned == entryPath {
			return true
		}
		if entry.Dir && strings.HasPrefix(cleaned, entryPath+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// Store reads and writes the processed-paths cache file.
type Store struct {
	path string
}

// NewStore creates a Store backed by the cache file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the location of the backing cache file.
func (s *Store) Path() string {
	return s.path
}

// Load reads the cache file and returns its entries, skipping blank lines.
// A missing cache file yields an empty set with no error.
func (s *Store) Load() ([]Entry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	var entries []Entry
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		entries = append(entries, NewEntry(line))
	}

	return entries, nil
}

// Save deduplicates and sorts the entries, then replaces the cache file
// atomically via a temp-file rename so an interrupted write never truncates
// the previous cache.
func (s *Store) Save(entries []Entry) error {
	seen := make(map[string]bool, len(entries))
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if seen[entry.Path] {
			continue
		}
		seen[entry.Path] = true
		paths = append(paths, entry.Path)
	}
	sort.Strings(paths)

	var buf strings.Builder
	for _, path := range paths {
		buf.WriteString(path)
		buf.WriteByte('\n')
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(buf.String()), 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace cache file: %w", err)
	}

	return nil
}
