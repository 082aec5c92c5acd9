package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/lrx/internal/formatter"
	"github.com/desertthunder/lrx/internal/models"
	"github.com/desertthunder/lrx/internal/repositories"
	"github.com/desertthunder/lrx/internal/shared"
	"github.com/urfave/cli/v3"
)

// openHistory opens the run-history database for one command invocation.
// Unlike recording, inspection requires the database to exist.
func (r *Runner) openHistory(cmd *cli.Command) (*sql.DB, error) {
	config := r.configFor(cmd)

	path := shared.ExpandPath(config.Database.Path)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("history database not found at %s, run 'lrx setup database' first", path)
	}

	db, err := shared.NewDatabase(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	return db, nil
}

// HistoryList prints recorded runs, newest first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openHistory(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repositories.NewRunRepository(db)

	runs, err := repo.List(map[string]any{"limit": cmd.Int("limit")})
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if cmd.Bool("json") {
		summaries := make([]models.RunSummary, 0, len(runs))
		for _, run := range runs {
			summaries = append(summaries, run.Summary())
		}
		return r.writeJSON(summaries, true)
	}

	if len(runs) == 0 {
		return r.writePlain("No recorded runs\n")
	}

	r.writePlainHeader(fmt.Sprintf("Run History (%d runs)", len(runs)))
	for _, run := range runs {
		r.writePlain("#%d %s\n", run.Sequence(), run.ID())
		r.writePlain("   %s: %d seen, %d found, %d missing (started %s)\n",
			run.Root(), run.FilesSeen(), run.Found(), run.Missing(),
			run.StartedAt().Format(time.RFC3339))
	}

	return nil
}

// HistoryShow prints one run with its per-file outcomes.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.String("id")

	db, err := r.openHistory(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repositories.NewRunRepository(db)

	run, err := repo.Get(id)
	if err != nil {
		return err
	}

	listed, err := repo.ListOutcomes(id)
	if err != nil {
		return fmt.Errorf("failed to list outcomes: %w", err)
	}

	records := make([]models.OutcomeRecord, 0, len(listed))
	for _, out := range listed {
		records = append(records, out.Record())
	}

	summary := run.Summary()

	if cmd.Bool("json") {
		return r.writeJSON(struct {
			Run      models.RunSummary      `json:"run"`
			Outcomes []models.OutcomeRecord `json:"outcomes"`
		}{summary, records}, true)
	}

	r.writePlainHeader(fmt.Sprintf("Run #%d (%s)", summary.Sequence, summary.ID))
	r.writePlain("Root: %s\n", summary.Root)
	r.writePlain("Started: %s\n", summary.StartedAt.Format(time.RFC3339))
	r.writePlain("Files: %d (found %d, missing %d, cached %d, existing %d, errored %d)\n",
		summary.FilesSeen, summary.Found, summary.Missing, summary.Cached, summary.Existing, summary.Errored)

	if len(records) > 0 {
		r.writePlainln("Outcomes:")
		for _, record := range records {
			if record.Error != "" {
				r.writePlain("[%s] %s (%s)\n", record.Status, record.Path, record.Error)
			} else {
				r.writePlain("[%s] %s\n", record.Status, record.Path)
			}
		}
	}

	return nil
}

// HistoryExport writes a recorded run to disk in the requested format.
func (r *Runner) HistoryExport(ctx context.Context, cmd *cli.Command) error {
	id := cmd.String("id")

	db, err := r.openHistory(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repositories.NewRunRepository(db)

	run, err := repo.Get(id)
	if err != nil {
		return err
	}

	listed, err := repo.ListOutcomes(id)
	if err != nil {
		return fmt.Errorf("failed to list outcomes: %w", err)
	}

	records := make([]models.OutcomeRecord, 0, len(listed))
	for _, out := range listed {
		records = append(records, out.Record())
	}

	summary := run.Summary()
	output := cmd.String("output")

	switch format := cmd.String("format"); format {
	case "csv":
		result, err := formatter.WriteRunExport(summary, records, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported outcomes to: %s\n", result.OutcomesFile)
		return r.writePlain("✓ Exported summary to: %s\n", result.SummaryFile)
	case "markdown", "md":
		path, err := formatter.WriteMarkdownExport(summary, records, output)
		if err != nil {
			return err
		}
		return r.writePlain("✓ Exported run to: %s\n", path)
	case "text", "txt":
		path, err := formatter.WriteTextExport(summary, records, output)
		if err != nil {
			return err
		}
		return r.writePlain("✓ Exported run to: %s\n", path)
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}
}
