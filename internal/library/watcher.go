package library

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lrx/internal/shared"
	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher monitors a library root for new or rewritten audio files.
//
// fsnotify watches are not recursive, so every subdirectory is registered at
// startup and new directories are registered as they appear. Events are held
// for a debounce window and flushed as one sorted batch per quiet period.
type Watcher struct {
	root     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *log.Logger
	batches  chan []string
	wg       sync.WaitGroup
}

// WatcherOpts configures [NewWatcher]. Zero values fall back to defaults
// (500ms debounce, stderr logger).
type WatcherOpts struct {
	Root     string
	Debounce time.Duration
	Logger   *log.Logger
}

// NewWatcher registers watches on root and its subdirectories. The root must
// exist; unreadable subdirectories are logged and skipped.
func NewWatcher(opts WatcherOpts) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}

	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := fsw.Add(opts.Root); err != nil {
		fsw.Close()

		return nil, fmt.Errorf("failed to watch %s: %w", opts.Root, err)
	}

	w := &Watcher{
		root:     opts.Root,
		debounce: opts.Debounce,
		watcher:  fsw,
		logger:   opts.Logger,
		batches:  make(chan []string, 16),
	}

	w.addRecursive(opts.Root)

	return w, nil
}

// Batches returns the channel of debounced audio file batches. The channel is
// closed when the watcher stops.
func (w *Watcher) Batches() <-chan []string {
	return w.batches
}

// Start launches the event loop. It returns immediately; the loop runs until
// ctx is cancelled or [Watcher.Close] is called.
func (w *Watcher) Start(ctx context.Context) {
	w.wg.Add(1)

	go w.loop(ctx)
}

// Close stops the underlying watcher and waits for the event loop to drain.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	w.wg.Wait()

	return err
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()
	defer close(w.batches)

	pending := make(map[string]struct{})

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	defer timer.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if path, relevant := w.collect(event); relevant {
				pending[path] = struct{}{}

				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}

				timer.Reset(w.debounce)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}

			w.logger.Error("watcher error", "error", err)
		case <-timer.C:
			if len(pending) == 0 {
				continue
			}

			batch := make([]string, 0, len(pending))
			for path := range pending {
				batch = append(batch, path)
			}

			sort.Strings(batch)
			pending = make(map[string]struct{})

			select {
			case w.batches <- batch:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// collect inspects one filesystem event and reports whether it names an audio
// file worth processing. Newly created directories are added to the watch set
// so files landing inside them are seen.
func (w *Watcher) collect(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.addRecursive(event.Name)

			return "", false
		}
	}

	return event.Name, IsAudioFile(event.Name)
}

func (w *Watcher) addRecursive(root string) {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		if !d.IsDir() {
			return nil
		}

		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("failed to watch directory", "path", path, "error", err)
		}

		return nil
	})
	if err != nil {
		w.logger.Warn("failed to register watches", "root", root, "error", err)
	}
}
