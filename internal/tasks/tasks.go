// package tasks implements the concurrent fetch-and-reconcile pipeline for library lyrics.
//
// The core abstraction is ScanEngine, which discovers audio files, resolves each one against the cache and the lyrics provider, and folds outcomes back into the cache.
// Operations emit progress updates via channels for non-blocking status reporting to the CLI layer.
package tasks

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lrx/internal/cache"
	"github.com/desertthunder/lrx/internal/library"
	"github.com/desertthunder/lrx/internal/lyrics"
	"github.com/desertthunder/lrx/internal/metadata"
	"github.com/desertthunder/lrx/internal/shared"
)

// DefaultConcurrency caps in-flight lyric lookups when no limit is configured.
const DefaultConcurrency = 20

// Status is the terminal state of one processed file.
type Status int

const (
	StatusCached  Status = iota // Skipped via cache containment
	StatusExists                // Sibling .lrc already on disk
	StatusFound                 // Lyrics fetched and written
	StatusMissing               // No lyrics available
	StatusError                 // Extraction or write failed
)

func (s Status) String() string {
	switch s {
	case StatusCached:
		return "cached"
	case StatusExists:
		return "exists"
	case StatusFound:
		return "found"
	case StatusMissing:
		return "missing"
	case StatusError:
		return "error"
	default:
		return ""
	}
}

// Outcome ties one audio file to its terminal status.
type Outcome struct {
	Path   string // Audio file path
	Status Status // Terminal state
	Err    error  // Underlying cause when Status is StatusError
}

// ScanResult aggregates every outcome of a single run.
//
// Missing includes errored files: a file whose extraction or write failed is
// still a file without lyrics.
type ScanResult struct {
	Root     string        // Scanned root (empty for explicit path runs)
	Seen     int           // Files discovered
	Found    int           // Lyrics fetched and written
	Missing  int           // No lyrics available, including Errored
	Cached   int           // Skipped via cache containment
	Existing int           // Sibling .lrc already present
	Errored  int           // Extraction or write failures
	Elapsed  time.Duration // Wall-clock run time
	Outcomes []Outcome     // Per-file details in completion order
}

// ScanEngine defines operations for reconciling a music library against a lyrics provider.
type ScanEngine interface {
	// Run scans root recursively and resolves every discovered audio file, persisting the cache once at the end.
	Run(ctx context.Context, progress chan<- ProgressUpdate, root string) (*ScanResult, error)

	// RunPaths resolves an explicit list of audio paths through the same pipeline, used by watch mode batches.
	RunPaths(ctx context.Context, progress chan<- ProgressUpdate, paths []string) (*ScanResult, error)
}

// LyricsEngine implements ScanEngine.
// Contains dependencies on the cache store, tag extractor, and lyrics provider.
type LyricsEngine struct {
	store     *cache.Store
	extractor metadata.Extractor
	provider  lyrics.Provider
	logger    *log.Logger
	limit     int
}

// ScanEngineOpts configures [NewLyricsEngine]. Zero values fall back to
// defaults: a tag extractor, a stderr logger, and 20 concurrent lookups.
type ScanEngineOpts struct {
	Store       *cache.Store
	Extractor   metadata.Extractor
	Provider    lyrics.Provider
	Logger      *log.Logger
	Concurrency int
}

// NewLyricsEngine creates a LyricsEngine with the provided collaborators.
func NewLyricsEngine(opts ScanEngineOpts) *LyricsEngine {
	if opts.Extractor == nil {
		opts.Extractor = metadata.NewTagExtractor()
	}

	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}

	return &LyricsEngine{
		store:     opts.Store,
		extractor: opts.Extractor,
		provider:  opts.Provider,
		logger:    opts.Logger,
		limit:     opts.Concurrency,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *LyricsEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}

	select {
	case progress <- update:
	default:
	}
}

// Run discovers audio files under root and resolves each one.
func (e *LyricsEngine) Run(ctx context.Context, progress chan<- ProgressUpdate, root string) (*ScanResult, error) {
	files, err := library.Collect(root)
	if err != nil {
		return nil, err
	}

	e.sendProgress(progress, discoveredUpdate(len(files), root))
	e.logger.Info("discovered audio files", "root", root, "count", len(files))

	result, err := e.run(ctx, progress, files)
	if result != nil {
		result.Root = root
	}

	return result, err
}

// RunPaths resolves an explicit list of audio paths.
func (e *LyricsEngine) RunPaths(ctx context.Context, progress chan<- ProgressUpdate, paths []string) (*ScanResult, error) {
	return e.run(ctx, progress, paths)
}

// run fans the file set out to per-file goroutines and drains their outcomes.
//
// The drain loop is the only writer of counters and cache additions; workers
// read the loaded entry snapshot and never touch shared state. The cache is
// saved exactly once, after the outcome stream closes.
func (e *LyricsEngine) run(ctx context.Context, progress chan<- ProgressUpdate, files []string) (*ScanResult, error) {
	if e.store == nil {
		return nil, fmt.Errorf("%w: cache store not initialized", shared.ErrServiceUnavailable)
	}

	if e.provider == nil {
		return nil, fmt.Errorf("%w: lyrics provider not initialized", shared.ErrServiceUnavailable)
	}

	start := time.Now()

	loaded, err := e.store.Load()
	if err != nil {
		e.logger.Error("failed to load cache, continuing with an empty set", "path", e.store.Path(), "error", err)
		loaded = nil
	}

	e.sendProgress(progress, loadedCacheUpdate(len(loaded)))

	result := &ScanResult{
		Seen:     len(files),
		Outcomes: make([]Outcome, 0, len(files)),
	}

	results := make(chan Outcome, len(files))
	sem := make(chan struct{}, e.limit)

	var wg sync.WaitGroup
	for _, path := range files {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			results <- e.processFile(ctx, path, loaded, sem)
		}(path)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var added []cache.Entry

	step := 0
	for out := range results {
		step++
		result.Outcomes = append(result.Outcomes, out)

		switch out.Status {
		case StatusCached:
			result.Cached++
			e.logger.Info("skipping (in cache)", "path", out.Path)
		case StatusExists:
			result.Existing++
			added = append(added, cache.FileEntry(out.Path))
			e.logger.Info("lyrics file already exists", "path", out.Path)
		case StatusFound:
			result.Found++
			added = append(added, cache.FileEntry(out.Path))
			e.logger.Info("saved lyrics", "path", out.Path)
		case StatusMissing:
			result.Missing++
			e.logger.Info("no lyrics found", "path", out.Path)
		case StatusError:
			result.Missing++
			result.Errored++
			e.logger.Error("failed to process file", "path", out.Path, "error", out.Err)
		}

		e.sendProgress(progress, outcomeUpdate(step, len(files), out))
	}

	result.Elapsed = time.Since(start)

	if err := e.store.Save(append(loaded, added...)); err != nil {
		return result, fmt.Errorf("run completed but failed to save cache: %w", err)
	}

	e.sendProgress(progress, savedCacheUpdate(len(loaded)+len(added), e.store.Path()))
	e.logger.Info("run complete", "seen", result.Seen, "found", result.Found, "missing", result.Missing)

	return result, nil
}

// processFile resolves a single audio file to its terminal status. Only the
// provider call holds a semaphore slot; every other step runs unbounded.
func (e *LyricsEngine) processFile(ctx context.Context, path string, entries []cache.Entry, sem chan struct{}) Outcome {
	if cache.Contains(path, entries) {
		return Outcome{Path: path, Status: StatusCached}
	}

	lrc := library.LyricsPath(path)
	if _, err := os.Stat(lrc); err == nil {
		return Outcome{Path: path, Status: StatusExists}
	}

	song, err := e.extractor.Extract(path)
	if err != nil {
		return Outcome{Path: path, Status: StatusError, Err: err}
	}

	if song.Artist == "" || song.Title == "" {
		return Outcome{Path: path, Status: StatusMissing}
	}

	// Stop admitting lookups once the run is cancelled.
	select {
	case <-ctx.Done():
		return Outcome{Path: path, Status: StatusMissing}
	default:
	}

	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return Outcome{Path: path, Status: StatusMissing}
	}

	text, err := e.provider.Fetch(ctx, song)
	<-sem

	if err != nil {
		return Outcome{Path: path, Status: StatusMissing}
	}

	if err := os.WriteFile(lrc, []byte(text), 0644); err != nil {
		return Outcome{Path: path, Status: StatusError, Err: fmt.Errorf("failed to write %s: %w", lrc, err)}
	}

	return Outcome{Path: path, Status: StatusFound}
}
