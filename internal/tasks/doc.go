// Package tasks orchestrates the lyric fetch-and-reconcile pipeline with real-time progress reporting.
//
// # Core Operations
//
// The [ScanEngine] interface defines two operations:
//
//  1. [ScanEngine.Run] : Full library scan
//     - Discovers audio files under a root directory
//     - Resolves every file through the per-file state machine
//     - Persists the updated cache exactly once at the end of the run
//     - Returns per-status counts and all outcomes in completion order
//
//  2. [ScanEngine.RunPaths] : Scan an explicit path list
//     - Same pipeline over paths supplied by the caller
//     - Used by watch mode to process debounced change batches
//
// # Per-File State Machine
//
// Each file resolves to exactly one [Status]; checks short-circuit in order:
//
//  1. Cache check : path contained in the cache → [StatusCached]
//  2. Existing output : sibling .lrc already on disk → [StatusExists]
//  3. Tag extraction : unreadable file → [StatusError]; empty artist or title → [StatusMissing]
//  4. Lyrics lookup : provider miss or lookup failure → [StatusMissing]
//  5. Write : sibling .lrc written → [StatusFound]; write failure → [StatusError]
//
// # Concurrency
//
// Every file runs on its own goroutine. A counting semaphore caps in-flight
// provider lookups (default 20); cache checks, stat calls, tag extraction, and
// file writes run unbounded. Outcomes drain through a single consuming loop
// which is the only writer of counters and cache additions, so no locks guard
// shared state.
//
// # Progress Reporting
//
// # All operations use non-blocking channels for progress updates
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and the outcome for advanced consumers.
// Updates use select with default to prevent blocking.
//
// # Implementation
//
// [LyricsEngine] implements [ScanEngine] with dependencies on:
//   - [cache.Store] : persisted processed-path set
//   - [metadata.Extractor] : audio tag reader
//   - [lyrics.Provider] : remote lookup client
package tasks
