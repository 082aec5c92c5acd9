// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync/atomic"
	"testing"

	"github.com/bogem/id3v2/v2"
	"github.com/desertthunder/lrx/internal/metadata"
)

// MockProvider is a test double for [lyrics.Provider]
type MockProvider struct {
	Lyrics string
	Err    error
	Calls  atomic.Int64
}

func (m *MockProvider) Fetch(ctx context.Context, song metadata.Song) (string, error) {
	m.Calls.Add(1)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Lyrics, nil
}

func (m *MockProvider) Name() string { return "mock" }

// MockExtractor is a test double for [metadata.Extractor] returning canned
// songs keyed by path
type MockExtractor struct {
	Songs map[string]metadata.Song
	Err   error
	Calls atomic.Int64
}

func (m *MockExtractor) Extract(path string) (metadata.Song, error) {
	m.Calls.Add(1)
	if m.Err != nil {
		return metadata.Song{}, m.Err
	}
	return m.Songs[path], nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

// WriteTaggedMP3 creates a minimal MP3 fixture at path carrying an ID3v2 tag
// with the given text frames. The audio payload is not decodable, which is
// fine for tag-reading tests.
func WriteTaggedMP3(t *testing.T, path, artist, title, album string) {
	t.Helper()

	payload := make([]byte, 512)
	payload[0] = 0xFF
	payload[1] = 0xFB
	if err := os.WriteFile(path, payload, 0644); err != nil {
		t.Fatalf("Failed to write fixture file %s: %v", path, err)
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: false})
	if err != nil {
		t.Fatalf("Failed to open fixture file %s: %v", path, err)
	}
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetArtist(artist)
	tag.SetTitle(title)
	tag.SetAlbum(album)
	if err := tag.Save(); err != nil {
		t.Fatalf("Failed to save tag to %s: %v", path, err)
	}
	if err := tag.Close(); err != nil {
		t.Fatalf("Failed to close fixture file %s: %v", path, err)
	}
}
