package main

import (
	"context"
	"os"
	"time"

	"github.com/desertthunder/lrx/internal/models"
	"github.com/desertthunder/lrx/internal/repositories"
	"github.com/desertthunder/lrx/internal/shared"
	"github.com/desertthunder/lrx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// scanSummary is the JSON projection of a completed scan.
type scanSummary struct {
	Root           string  `json:"root"`
	FilesSeen      int     `json:"files_seen"`
	Found          int     `json:"found"`
	Missing        int     `json:"missing"`
	Cached         int     `json:"cached"`
	Existing       int     `json:"existing"`
	Errored        int     `json:"errored"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// Scan runs the fetch-and-reconcile pipeline over the library root.
func (r *Runner) Scan(ctx context.Context, cmd *cli.Command) error {
	config := r.configFor(cmd)

	root := cmd.String("root")
	if root == "" {
		root = config.Library.Root
	}
	root = shared.ExpandPath(root)

	limit := cmd.Int("limit")
	if limit <= 0 {
		limit = config.Scan.Concurrency
	}

	useJSON := cmd.Bool("json")

	store := r.storeFor(cmd, config)
	engine := r.engineFor(store, limit)

	r.logger.Info("starting scan", "root", root, "cache", store.Path(), "limit", limit)

	// Create progress channel and goroutine to handle updates
	var progressCh chan tasks.ProgressUpdate
	var progressDone chan struct{}
	if !useJSON {
		progressCh = make(chan tasks.ProgressUpdate, 50)
		progressDone = make(chan struct{})
		go func() {
			defer close(progressDone)
			for update := range progressCh {
				switch update.Phase {
				case tasks.DiscoverFiles:
					r.writePlain("📂 %s\n", update.Message)
				case tasks.ProcessFiles:
					r.writePlain("   %s\n", update.Message)
				case tasks.SaveCache:
					r.writePlain("\n💾 %s\n", update.Message)
				}
			}
		}()
	}

	started := time.Now()

	// Run the engine operation
	result, err := engine.Run(ctx, progressCh, root)
	if progressCh != nil {
		// Drain remaining updates before the summary so output stays ordered.
		close(progressCh)
		<-progressDone
	}

	if err != nil {
		return err
	}

	record := cmd.Bool("record")
	if !cmd.IsSet("record") {
		_, statErr := os.Stat(shared.ExpandPath(config.Database.Path))
		record = statErr == nil
	}
	if record {
		r.recordRun(config, result, started)
	}

	if useJSON {
		return r.writeJSON(scanSummary{
			Root:           result.Root,
			FilesSeen:      result.Seen,
			Found:          result.Found,
			Missing:        result.Missing,
			Cached:         result.Cached,
			Existing:       result.Existing,
			Errored:        result.Errored,
			ElapsedSeconds: result.Elapsed.Seconds(),
		}, true)
	}

	// Output summary
	r.writePlain("\n")
	r.writePlainHeader("Scan Complete")
	r.writePlain("Root: %s\n", result.Root)
	r.writePlain("Files seen: %d\n", result.Seen)
	r.writePlain("Lyrics found: %d\n", result.Found)
	r.writePlain("Missing: %d (errored: %d)\n", result.Missing, result.Errored)
	r.writePlain("Cached: %d\n", result.Cached)
	r.writePlain("Existing .lrc: %d\n", result.Existing)
	r.writePlain("Elapsed: %s\n", result.Elapsed.Round(time.Millisecond))

	return nil
}

// recordRun persists a completed scan to the history database. Recording is
// best-effort: a missing or unopenable database skips with a debug line, and
// a scan never fails because of it.
func (r *Runner) recordRun(config *shared.Config, result *tasks.ScanResult, started time.Time) {
	dbPath := shared.ExpandPath(config.Database.Path)
	if _, err := os.Stat(dbPath); err != nil {
		r.logger.Debug("history database not found, skipping run recording", "path", dbPath)
		return
	}

	db, err := shared.NewDatabase(dbPath)
	if err != nil {
		r.logger.Debug("failed to open history database, skipping run recording", "path", dbPath, "error", err)
		return
	}
	defer db.Close()

	repo := repositories.NewRunRepository(db)

	run := models.NewRun(0, result.Root)
	run.SetStartedAt(started)
	run.SetCompletedAt(started.Add(result.Elapsed))
	run.SetCounts(result.Seen, result.Found, result.Missing, result.Cached, result.Existing, result.Errored)

	if err := repo.Create(run); err != nil {
		r.logger.Debug("failed to record run", "error", err)
		return
	}

	outcomes := make([]*models.RunOutcome, 0, len(result.Outcomes))
	for _, out := range result.Outcomes {
		errText := ""
		if out.Err != nil {
			errText = out.Err.Error()
		}
		outcomes = append(outcomes, models.NewRunOutcome(run.ID(), out.Path, out.Status.String(), errText))
	}

	if err := repo.CreateOutcomes(outcomes); err != nil {
		r.logger.Debug("failed to record run outcomes", "run", run.ID(), "error", err)
		return
	}

	r.logger.Info("run recorded", "id", run.ID(), "sequence", run.Sequence())
}
