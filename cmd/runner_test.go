package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/lrx/internal/cache"
	"github.com/desertthunder/lrx/internal/library"
	"github.com/desertthunder/lrx/internal/metadata"
	"github.com/desertthunder/lrx/internal/models"
	"github.com/desertthunder/lrx/internal/shared"
	tu "github.com/desertthunder/lrx/internal/testing"
	"github.com/urfave/cli/v3"
)

// testRunner builds a Runner with quiet logging and the given test doubles.
func testRunner(output io.Writer, provider *tu.MockProvider, extractor *tu.MockExtractor) *Runner {
	return NewRunner(RunnerOpts{
		Provider:  provider,
		Extractor: extractor,
		Logger:    shared.NewLogger(io.Discard),
		Output:    output,
	})
}

// runCommand executes one CLI invocation against a fresh command tree.
func runCommand(r *Runner, args ...string) error {
	app := &cli.Command{Name: "lrx", Commands: r.register()}
	return app.Run(context.Background(), append([]string{"lrx"}, args...))
}

func writeAudio(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("audio"), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			extractor := &tu.MockExtractor{}
			provider := &tu.MockProvider{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "config.toml",
				Extractor:  extractor,
				Provider:   provider,
				Logger:     logger,
				Output:     output,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.configPath != "config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
			if runner.extractor != extractor {
				t.Error("expected extractor to be set")
			}
			if runner.provider != provider {
				t.Error("expected provider to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Config: nil,
			})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil extractor uses tag extractor", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Extractor: nil,
			})

			if runner.extractor == nil {
				t.Error("expected default extractor to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Logger: nil,
			})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Output: nil,
			})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with empty configPath", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				ConfigPath: "",
			})

			if runner.configPath != "" {
				t.Errorf("expected empty configPath, got %s", runner.configPath)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, true)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			expected := `{"key":"value"}` + "\n"
			if result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			// channels cannot be marshaled to JSON
			data := make(chan int)
			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			failing := &tu.FWriter{}
			runner := NewRunner(RunnerOpts{Output: failing})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			data := map[string]string{"key": "value"}
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writePlain("hello %s", "world")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			failing := &tu.FWriter{}
			runner := NewRunner(RunnerOpts{Output: failing})

			err := runner.writePlain("test")

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := []string{"scan", "watch", "cache", "embed", "history", "setup"}
		if len(commands) != len(names) {
			t.Fatalf("expected %d commands, got %d", len(names), len(commands))
		}

		for i, name := range names {
			if commands[i] == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			if commands[i].Name != name {
				t.Errorf("expected command %d to be %s, got %s", i, name, commands[i].Name)
			}
		}
	})

	t.Run("configFor", func(t *testing.T) {
		invoke := func(runner *Runner, args ...string) *shared.Config {
			t.Helper()

			var got *shared.Config
			cmd := &cli.Command{
				Name: "probe",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "config", Value: "config.toml"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					got = runner.configFor(cmd)
					return nil
				},
			}

			if err := cmd.Run(context.Background(), append([]string{"probe"}, args...)); err != nil {
				t.Fatalf("probe command failed: %v", err)
			}

			return got
		}

		t.Run("returns startup config for the startup path", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: "config.toml"})

			if got := invoke(runner); got != runner.config {
				t.Error("expected the startup config")
			}
		})

		t.Run("loads an alternate file", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "alt.toml")
			alt := shared.DefaultConfig()
			alt.Library.Root = "/elsewhere"
			if err := shared.SaveConfig(path, alt); err != nil {
				t.Fatalf("Failed to save config fixture: %v", err)
			}

			runner := NewRunner(RunnerOpts{ConfigPath: "config.toml", Logger: shared.NewLogger(io.Discard)})

			got := invoke(runner, "--config", path)
			if got.Library.Root != "/elsewhere" {
				t.Errorf("expected alternate config, got root %s", got.Library.Root)
			}
		})

		t.Run("falls back when the file is unreadable", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: "config.toml", Logger: shared.NewLogger(io.Discard)})

			got := invoke(runner, "--config", filepath.Join(t.TempDir(), "absent.toml"))
			if got != runner.config {
				t.Error("expected fallback to the startup config")
			}
		})
	})
}

func TestScanCommand(t *testing.T) {
	t.Run("fetches lyrics and prints the summary", func(t *testing.T) {
		root := t.TempDir()
		trackA := filepath.Join(root, "a.flac")
		trackB := filepath.Join(root, "b.mp3")
		writeAudio(t, trackA)
		writeAudio(t, trackB)

		cachePath := filepath.Join(t.TempDir(), "cache.txt")

		extractor := &tu.MockExtractor{Songs: map[string]metadata.Song{
			trackA: {Artist: "Waxahatchee", Title: "Lilacs", Album: "Saint Cloud", Duration: 211},
			trackB: {Artist: "Waxahatchee", Title: "Fire", Album: "Saint Cloud", Duration: 240},
		}}
		provider := &tu.MockProvider{Lyrics: "[00:12.00] As long as I gaze on"}

		output := &bytes.Buffer{}
		runner := testRunner(output, provider, extractor)

		if err := runCommand(runner, "scan", "--root", root, "--cache", cachePath); err != nil {
			t.Fatalf("scan failed: %v", err)
		}

		tu.AssertFileExists(t, library.LyricsPath(trackA))
		tu.AssertFileExists(t, library.LyricsPath(trackB))

		got := output.String()
		if !strings.Contains(got, "Scan Complete") {
			t.Errorf("expected summary header, got: %s", got)
		}
		if !strings.Contains(got, "Lyrics found: 2") {
			t.Errorf("expected found count, got: %s", got)
		}

		cached := tu.MustReadFile(t, cachePath)
		if !strings.Contains(cached, trackA) || !strings.Contains(cached, trackB) {
			t.Errorf("expected both tracks cached, got: %s", cached)
		}
	})

	t.Run("json summary", func(t *testing.T) {
		root := t.TempDir()
		track := filepath.Join(root, "a.mp3")
		writeAudio(t, track)

		extractor := &tu.MockExtractor{Songs: map[string]metadata.Song{
			track: {Artist: "Waxahatchee", Title: "Lilacs"},
		}}

		output := &bytes.Buffer{}
		runner := testRunner(output, &tu.MockProvider{Lyrics: "line"}, extractor)

		err := runCommand(runner, "scan",
			"--root", root, "--cache", filepath.Join(t.TempDir(), "cache.txt"), "--json")
		if err != nil {
			t.Fatalf("scan failed: %v", err)
		}

		var summary scanSummary
		if err := json.Unmarshal(output.Bytes(), &summary); err != nil {
			t.Fatalf("expected JSON output, got: %s", output.String())
		}
		if summary.FilesSeen != 1 || summary.Found != 1 {
			t.Errorf("unexpected summary: %+v", summary)
		}
	})

	t.Run("missing root", func(t *testing.T) {
		runner := testRunner(&bytes.Buffer{}, &tu.MockProvider{}, &tu.MockExtractor{})

		err := runCommand(runner, "scan",
			"--root", filepath.Join(t.TempDir(), "absent"),
			"--cache", filepath.Join(t.TempDir(), "cache.txt"))
		if err == nil {
			t.Fatal("expected error for missing root")
		}
	})
}

func TestCacheCommands(t *testing.T) {
	t.Run("add and list", func(t *testing.T) {
		cachePath := filepath.Join(t.TempDir(), "cache.txt")
		track := filepath.Join(t.TempDir(), "a.mp3")
		writeAudio(t, track)

		output := &bytes.Buffer{}
		runner := testRunner(output, &tu.MockProvider{}, &tu.MockExtractor{})

		if err := runCommand(runner, "cache", "add", "--cache", cachePath, track); err != nil {
			t.Fatalf("cache add failed: %v", err)
		}
		if !strings.Contains(output.String(), "✓ Cached: "+track) {
			t.Errorf("unexpected add output: %s", output.String())
		}

		output.Reset()
		if err := runCommand(runner, "cache", "list", "--cache", cachePath); err != nil {
			t.Fatalf("cache list failed: %v", err)
		}
		if !strings.Contains(output.String(), track) {
			t.Errorf("expected listed path, got: %s", output.String())
		}
	})

	t.Run("directory entries cover their contents", func(t *testing.T) {
		cachePath := filepath.Join(t.TempDir(), "cache.txt")
		dir := t.TempDir()

		output := &bytes.Buffer{}
		runner := testRunner(output, &tu.MockProvider{}, &tu.MockExtractor{})

		if err := runCommand(runner, "cache", "add", "--cache", cachePath, dir); err != nil {
			t.Fatalf("cache add failed: %v", err)
		}
		if !strings.Contains(output.String(), "✓ Cached directory: "+dir) {
			t.Errorf("unexpected add output: %s", output.String())
		}

		output.Reset()
		if err := runCommand(runner, "cache", "add", "--cache", cachePath, filepath.Join(dir, "a.mp3")); err != nil {
			t.Fatalf("cache add failed: %v", err)
		}
		if !strings.Contains(output.String(), "Already cached:") {
			t.Errorf("expected containment to short-circuit, got: %s", output.String())
		}
	})

	t.Run("dir flag caches paths that do not exist yet", func(t *testing.T) {
		cachePath := filepath.Join(t.TempDir(), "cache.txt")
		future := filepath.Join(t.TempDir(), "incoming")

		output := &bytes.Buffer{}
		runner := testRunner(output, &tu.MockProvider{}, &tu.MockExtractor{})

		if err := runCommand(runner, "cache", "add", "--cache", cachePath, "--dir", future); err != nil {
			t.Fatalf("cache add failed: %v", err)
		}
		if !strings.Contains(output.String(), "✓ Cached directory: "+future) {
			t.Errorf("unexpected add output: %s", output.String())
		}
	})

	t.Run("list json tags directories", func(t *testing.T) {
		cachePath := filepath.Join(t.TempDir(), "cache.txt")
		dir := t.TempDir()

		output := &bytes.Buffer{}
		runner := testRunner(output, &tu.MockProvider{}, &tu.MockExtractor{})

		if err := runCommand(runner, "cache", "add", "--cache", cachePath, dir); err != nil {
			t.Fatalf("cache add failed: %v", err)
		}

		output.Reset()
		if err := runCommand(runner, "cache", "list", "--cache", cachePath, "--json"); err != nil {
			t.Fatalf("cache list failed: %v", err)
		}

		var entries []cache.Entry
		if err := json.Unmarshal(output.Bytes(), &entries); err != nil {
			t.Fatalf("expected JSON entries, got: %s", output.String())
		}
		if len(entries) != 1 || entries[0].Path != dir || !entries[0].Dir {
			t.Errorf("expected one directory entry for %s, got: %+v", dir, entries)
		}
	})

	t.Run("remove", func(t *testing.T) {
		cachePath := filepath.Join(t.TempDir(), "cache.txt")
		track := filepath.Join(t.TempDir(), "a.mp3")

		output := &bytes.Buffer{}
		runner := testRunner(output, &tu.MockProvider{}, &tu.MockExtractor{})

		if err := runCommand(runner, "cache", "add", "--cache", cachePath, track); err != nil {
			t.Fatalf("cache add failed: %v", err)
		}
		if err := runCommand(runner, "cache", "remove", "--cache", cachePath, track); err != nil {
			t.Fatalf("cache remove failed: %v", err)
		}

		err := runCommand(runner, "cache", "remove", "--cache", cachePath, track)
		if err == nil || !strings.Contains(err.Error(), "path not in cache") {
			t.Errorf("expected missing-path error, got: %v", err)
		}
	})

	t.Run("clear", func(t *testing.T) {
		cachePath := filepath.Join(t.TempDir(), "cache.txt")

		output := &bytes.Buffer{}
		runner := testRunner(output, &tu.MockProvider{}, &tu.MockExtractor{})

		for _, name := range []string{"a.mp3", "b.mp3"} {
			if err := runCommand(runner, "cache", "add", "--cache", cachePath, filepath.Join(t.TempDir(), name)); err != nil {
				t.Fatalf("cache add failed: %v", err)
			}
		}

		output.Reset()
		if err := runCommand(runner, "cache", "clear", "--cache", cachePath); err != nil {
			t.Fatalf("cache clear failed: %v", err)
		}
		if !strings.Contains(output.String(), "✓ Cleared 2 entries") {
			t.Errorf("unexpected clear output: %s", output.String())
		}

		output.Reset()
		if err := runCommand(runner, "cache", "list", "--cache", cachePath); err != nil {
			t.Fatalf("cache list failed: %v", err)
		}
		if !strings.Contains(output.String(), "Cache is empty") {
			t.Errorf("expected empty cache, got: %s", output.String())
		}
	})
}

func TestHistoryCommands(t *testing.T) {
	tmpDir := t.TempDir()
	root := filepath.Join(tmpDir, "music")
	if err := os.MkdirAll(root, 0755); err != nil {
		t.Fatalf("Failed to create library root: %v", err)
	}

	track := filepath.Join(root, "a.flac")
	writeAudio(t, track)

	configPath := filepath.Join(tmpDir, "config.toml")
	config := shared.DefaultConfig()
	config.Library.Root = root
	config.Cache.Path = filepath.Join(tmpDir, "cache.txt")
	config.Database.Path = filepath.Join(tmpDir, "lrx.db")
	if err := shared.SaveConfig(configPath, config); err != nil {
		t.Fatalf("Failed to save config fixture: %v", err)
	}

	extractor := &tu.MockExtractor{Songs: map[string]metadata.Song{
		track: {Artist: "Waxahatchee", Title: "Lilacs", Album: "Saint Cloud", Duration: 211},
	}}

	output := &bytes.Buffer{}
	runner := testRunner(output, &tu.MockProvider{Lyrics: "[00:12.00] As long as I gaze on"}, extractor)

	if err := runCommand(runner, "setup", "database", "--config", configPath); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	// Recording defaults on once the database exists.
	if err := runCommand(runner, "scan", "--config", configPath); err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	output.Reset()
	if err := runCommand(runner, "history", "list", "--config", configPath, "--json"); err != nil {
		t.Fatalf("history list failed: %v", err)
	}

	var summaries []models.RunSummary
	if err := json.Unmarshal(output.Bytes(), &summaries); err != nil {
		t.Fatalf("expected JSON run list, got: %s", output.String())
	}
	if len(summaries) != 1 {
		t.Fatalf("expected one recorded run, got %d", len(summaries))
	}
	if summaries[0].FilesSeen != 1 || summaries[0].Found != 1 {
		t.Errorf("unexpected counts: %+v", summaries[0])
	}

	runID := summaries[0].ID

	t.Run("show", func(t *testing.T) {
		output.Reset()
		if err := runCommand(runner, "history", "show", "--config", configPath, "--id", runID); err != nil {
			t.Fatalf("history show failed: %v", err)
		}
		if !strings.Contains(output.String(), "[found] "+track) {
			t.Errorf("expected outcome line, got: %s", output.String())
		}
	})

	t.Run("show missing run", func(t *testing.T) {
		err := runCommand(runner, "history", "show", "--config", configPath, "--id", "absent")
		if err == nil || !strings.Contains(err.Error(), "run not found") {
			t.Errorf("expected missing-run error, got: %v", err)
		}
	})

	t.Run("export markdown", func(t *testing.T) {
		exportPath := filepath.Join(tmpDir, "run.md")

		output.Reset()
		err := runCommand(runner, "history", "export",
			"--config", configPath, "--id", runID, "--format", "markdown", "--output", exportPath)
		if err != nil {
			t.Fatalf("history export failed: %v", err)
		}

		tu.AssertFileExists(t, exportPath)
		if md := tu.MustReadFile(t, exportPath); !strings.Contains(md, "# Run "+runID) {
			t.Errorf("unexpected export content: %s", md)
		}
	})

	t.Run("export rejects unknown formats", func(t *testing.T) {
		err := runCommand(runner, "history", "export",
			"--config", configPath, "--id", runID, "--format", "yaml")
		if err == nil || !strings.Contains(err.Error(), "unknown format") {
			t.Errorf("expected format error, got: %v", err)
		}
	})

	t.Run("list requires the database", func(t *testing.T) {
		freshDir := t.TempDir()
		freshConfig := shared.DefaultConfig()
		freshConfig.Database.Path = filepath.Join(freshDir, "lrx.db")
		freshPath := filepath.Join(freshDir, "config.toml")
		if err := shared.SaveConfig(freshPath, freshConfig); err != nil {
			t.Fatalf("Failed to save config fixture: %v", err)
		}

		err := runCommand(runner, "history", "list", "--config", freshPath)
		if err == nil || !strings.Contains(err.Error(), "history database not found") {
			t.Errorf("expected missing-database error, got: %v", err)
		}
	})
}

func TestEmbedCommand(t *testing.T) {
	root := t.TempDir()
	track := filepath.Join(root, "a.mp3")
	tu.WriteTaggedMP3(t, track, "Waxahatchee", "Lilacs", "Saint Cloud")
	if err := os.WriteFile(library.LyricsPath(track), []byte("[00:12.00] As long as I gaze on"), 0644); err != nil {
		t.Fatalf("Failed to write lyrics fixture: %v", err)
	}

	output := &bytes.Buffer{}
	runner := testRunner(output, &tu.MockProvider{}, &tu.MockExtractor{})

	if err := runCommand(runner, "embed", "--root", root); err != nil {
		t.Fatalf("embed failed: %v", err)
	}

	got := output.String()
	if !strings.Contains(got, "Embed Complete") {
		t.Errorf("expected summary header, got: %s", got)
	}
	if !strings.Contains(got, "Embedded: 1") {
		t.Errorf("expected one embedded file, got: %s", got)
	}
}

func TestWatchCommand(t *testing.T) {
	root := t.TempDir()
	cachePath := filepath.Join(t.TempDir(), "cache.txt")
	track := filepath.Join(root, "a.mp3")

	extractor := &tu.MockExtractor{Songs: map[string]metadata.Song{
		track: {Artist: "Waxahatchee", Title: "Lilacs"},
	}}

	runner := testRunner(&bytes.Buffer{}, &tu.MockProvider{Lyrics: "[00:12.00] As long as I gaze on"}, extractor)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		app := &cli.Command{Name: "lrx", Commands: runner.register()}
		done <- app.Run(ctx, []string{
			"lrx", "watch", "--root", root, "--cache", cachePath, "--debounce", "100",
		})
	}()

	// Give the initial scan and watch registration a moment to settle.
	time.Sleep(300 * time.Millisecond)

	writeAudio(t, track)

	deadline := time.After(5 * time.Second)
	for {
		if _, err := os.Stat(library.LyricsPath(track)); err == nil {
			break
		}

		select {
		case <-deadline:
			t.Fatal("timed out waiting for the batch to produce a lyrics file")
		case <-time.After(50 * time.Millisecond):
		}
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("watch failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancellation")
	}
}
