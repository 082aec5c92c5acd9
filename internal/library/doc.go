// Package library discovers audio files on disk and watches a library root for changes.
//
// # Discovery
//
// [Collect] walks a directory tree and returns every file whose extension is in
// [AudioExtensions]. Matching is exact: extensions are compared as written, so
// TRACK.MP3 is not an audio file while track.mp3 is. Unreadable subdirectories
// are skipped rather than aborting the walk.
//
// # Watching
//
// [Watcher] wraps fsnotify to monitor the root and every subdirectory, batching
// rapid events (album rips, torrent completions) behind a debounce window so a
// burst of writes produces a single batch of audio paths.
package library
