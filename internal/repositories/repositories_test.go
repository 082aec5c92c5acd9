package repositories

import (
	"database/sql"
	"testing"
	"time"

	"github.com/desertthunder/lrx/internal/models"
	"github.com/desertthunder/lrx/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func completedRun(root string, seen, found, missing int) *models.Run {
	run := models.NewRun(0, root)
	run.SetCounts(seen, found, missing, 0, 0, 0)
	run.SetCompletedAt(time.Now())

	return run
}

func TestRunRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		run := completedRun("/music", 10, 4, 6)

		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		if run.ID() == "" {
			t.Error("run ID should be set after creation")
		}

		if run.Sequence() == 0 {
			t.Error("run sequence should be assigned on creation")
		}
	})

	t.Run("Create rejects invalid runs", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)

		if err := repo.Create(models.NewRun(0, "")); err == nil {
			t.Error("expected validation error for empty root")
		}
	})

	t.Run("Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		run := completedRun("/music", 10, 4, 6)

		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		retrieved, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}

		if retrieved.ID() != run.ID() {
			t.Errorf("expected ID %s, got %s", run.ID(), retrieved.ID())
		}

		if retrieved.Root() != "/music" {
			t.Errorf("expected root /music, got %s", retrieved.Root())
		}

		if retrieved.FilesSeen() != 10 || retrieved.Found() != 4 || retrieved.Missing() != 6 {
			t.Errorf("counts did not round-trip: %+v", retrieved.Summary())
		}

		if retrieved.CompletedAt().IsZero() {
			t.Error("completed_at did not round-trip")
		}
	})

	t.Run("Get missing run", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)

		if _, err := repo.Get("nonexistent"); err == nil {
			t.Error("expected error for missing run")
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		run := completedRun("/music", 10, 4, 6)

		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		run.SetCounts(12, 5, 7, 0, 0, 0)

		if err := repo.Update(run); err != nil {
			t.Fatalf("failed to update run: %v", err)
		}

		retrieved, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}

		if retrieved.FilesSeen() != 12 || retrieved.Found() != 5 {
			t.Errorf("update not persisted: %+v", retrieved.Summary())
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		run := completedRun("/music", 1, 1, 0)

		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		if err := repo.Delete(run.ID()); err != nil {
			t.Fatalf("failed to delete run: %v", err)
		}

		if _, err := repo.Get(run.ID()); err == nil {
			t.Error("expected error getting soft-deleted run")
		}

		if err := repo.Delete(run.ID()); err == nil {
			t.Error("expected error deleting run twice")
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)

		for _, root := range []string{"/music", "/music", "/podcasts"} {
			if err := repo.Create(completedRun(root, 1, 1, 0)); err != nil {
				t.Fatalf("failed to create run: %v", err)
			}
		}

		runs, err := repo.List(map[string]any{})
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}

		if len(runs) != 3 {
			t.Fatalf("expected 3 runs, got %d", len(runs))
		}

		// Newest first.
		if runs[0].Sequence() < runs[1].Sequence() || runs[1].Sequence() < runs[2].Sequence() {
			t.Errorf("runs not ordered by sequence descending: %d, %d, %d",
				runs[0].Sequence(), runs[1].Sequence(), runs[2].Sequence())
		}

		limited, err := repo.List(map[string]any{"limit": 2})
		if err != nil {
			t.Fatalf("failed to list limited runs: %v", err)
		}

		if len(limited) != 2 {
			t.Errorf("expected 2 runs with limit, got %d", len(limited))
		}

		filtered, err := repo.List(map[string]any{"root": "/podcasts"})
		if err != nil {
			t.Fatalf("failed to list filtered runs: %v", err)
		}

		if len(filtered) != 1 || filtered[0].Root() != "/podcasts" {
			t.Errorf("root filter failed: %v", filtered)
		}
	})
}

func TestRunRepository_Outcomes(t *testing.T) {
	t.Run("CreateOutcomes and ListOutcomes round-trip", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		run := completedRun("/music", 3, 1, 2)

		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		outcomes := []*models.RunOutcome{
			models.NewRunOutcome(run.ID(), "/music/b.mp3", "missing", ""),
			models.NewRunOutcome(run.ID(), "/music/a.mp3", "found", ""),
			models.NewRunOutcome(run.ID(), "/music/c.mp3", "error", "disk full"),
		}

		if err := repo.CreateOutcomes(outcomes); err != nil {
			t.Fatalf("failed to create outcomes: %v", err)
		}

		listed, err := repo.ListOutcomes(run.ID())
		if err != nil {
			t.Fatalf("failed to list outcomes: %v", err)
		}

		if len(listed) != 3 {
			t.Fatalf("expected 3 outcomes, got %d", len(listed))
		}

		// Ordered by path.
		if listed[0].Path() != "/music/a.mp3" || listed[2].Path() != "/music/c.mp3" {
			t.Errorf("outcomes not ordered by path: %s, %s, %s",
				listed[0].Path(), listed[1].Path(), listed[2].Path())
		}

		if listed[2].Status() != "error" || listed[2].ErrText() != "disk full" {
			t.Errorf("error outcome did not round-trip: %+v", listed[2].Record())
		}
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)

		if err := repo.CreateOutcomes(nil); err != nil {
			t.Fatalf("empty batch failed: %v", err)
		}
	})

	t.Run("outcomes require an existing run", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		outcomes := []*models.RunOutcome{
			models.NewRunOutcome("no-such-run", "/music/a.mp3", "found", ""),
		}

		if err := repo.CreateOutcomes(outcomes); err == nil {
			t.Error("expected foreign key violation")
		}
	})

	t.Run("invalid status rolls back the batch", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		run := completedRun("/music", 2, 1, 1)

		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		outcomes := []*models.RunOutcome{
			models.NewRunOutcome(run.ID(), "/music/a.mp3", "found", ""),
			models.NewRunOutcome(run.ID(), "/music/b.mp3", "pending", ""),
		}

		if err := repo.CreateOutcomes(outcomes); err == nil {
			t.Fatal("expected validation error")
		}

		listed, err := repo.ListOutcomes(run.ID())
		if err != nil {
			t.Fatalf("failed to list outcomes: %v", err)
		}

		if len(listed) != 0 {
			t.Errorf("partial batch persisted: %d rows", len(listed))
		}
	})
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "runs")
		if err != nil {
			t.Fatalf("failed to get sequence: %v", err)
		}

		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}
}
