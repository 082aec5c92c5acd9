package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/lrx/internal/models"
	"github.com/desertthunder/lrx/internal/shared"
)

// RunRepository implements [models.Repository] for [models.Run] persistence.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new [RunRepository] with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new run into the database with generated ID and sequence
func (r *RunRepository) Create(run *models.Run) error {
	sequence, err := NextSequence(r.db, "runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	run.SetID(id)
	run.SetSequence(sequence)

	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO runs (id, sequence, root, files_seen, found, missing, cached, existing, errored, started_at, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id, sequence, run.Root(),
		run.FilesSeen(), run.Found(), run.Missing(), run.Cached(), run.Existing(), run.Errored(),
		run.StartedAt(), run.CompletedAt(), run.CreatedAt(), run.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

// Get retrieves a run by ID, excluding soft-deleted runs
func (r *RunRepository) Get(id string) (*models.Run, error) {
	query := `
		SELECT id, sequence, root, files_seen, found, missing, cached, existing, errored, started_at, completed_at, created_at, updated_at, deleted_at
		FROM runs
		WHERE id = ? AND deleted_at IS NULL
	`

	run, err := scanRun(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	return run, nil
}

// Update modifies an existing run's counts and completion time in the database
func (r *RunRepository) Update(run *models.Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	run.SetUpdatedAt(now)

	query := `
		UPDATE runs
		SET files_seen = ?, found = ?, missing = ?, cached = ?, existing = ?, errored = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		run.FilesSeen(), run.Found(), run.Missing(), run.Cached(), run.Existing(), run.Errored(),
		run.CompletedAt(), now, run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run not found or already deleted: %s", run.ID())
	}

	return nil
}

// Delete soft-deletes a run by ID
func (r *RunRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE runs
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run not found or already deleted: %s", id)
	}

	return nil
}

// List retrieves runs newest first, excluding soft-deleted runs.
//
// Supported criteria: "root" filters by library root, "limit" caps the result count.
func (r *RunRepository) List(criteria map[string]any) ([]*models.Run, error) {
	query := `
		SELECT id, sequence, root, files_seen, found, missing, cached, existing, errored, started_at, completed_at, created_at, updated_at, deleted_at
		FROM runs
		WHERE deleted_at IS NULL
	`

	args := []any{}

	if root, ok := criteria["root"].(string); ok && root != "" {
		query += " AND root = ?"
		args = append(args, root)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

// CreateOutcomes batch-inserts per-file outcome rows in one transaction.
//
// Each outcome receives a generated ID; the whole batch commits or rolls back together.
func (r *RunRepository) CreateOutcomes(outcomes []*models.RunOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO run_outcomes (id, run_id, path, status, error_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, outcome := range outcomes {
		outcome.SetID(shared.GenerateID())

		if err := outcome.Validate(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}

		_, err := stmt.Exec(
			outcome.ID(), outcome.RunID(), outcome.Path(), outcome.Status(), outcome.ErrText(),
			outcome.CreatedAt(), outcome.UpdatedAt(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert outcome: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit outcomes: %w", err)
	}

	return nil
}

// ListOutcomes retrieves every outcome row for a run, ordered by path
func (r *RunRepository) ListOutcomes(runID string) ([]*models.RunOutcome, error) {
	query := `
		SELECT id, run_id, path, status, error_message, created_at, updated_at
		FROM run_outcomes
		WHERE run_id = ?
		ORDER BY path ASC
	`

	rows, err := r.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []*models.RunOutcome
	for rows.Next() {
		var (
			id        string
			run       string
			path      string
			status    string
			errText   sql.NullString
			createdAt time.Time
			updatedAt time.Time
		)

		if err := rows.Scan(&id, &run, &path, &status, &errText, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}

		outcome := models.NewRunOutcome(run, path, status, errText.String)
		outcome.SetID(id)
		outcome.SetCreatedAt(createdAt)
		outcome.SetUpdatedAt(updatedAt)

		outcomes = append(outcomes, outcome)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return outcomes, nil
}

// scanner abstracts *sql.Row and *sql.Rows for shared scan logic.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*models.Run, error) {
	var (
		id          string
		sequence    int
		root        string
		filesSeen   int
		found       int
		missing     int
		cached      int
		existing    int
		errored     int
		startedAt   sql.NullTime
		completedAt sql.NullTime
		createdAt   time.Time
		updatedAt   time.Time
		deletedAt   sql.NullTime
	)

	err := row.Scan(
		&id, &sequence, &root,
		&filesSeen, &found, &missing, &cached, &existing, &errored,
		&startedAt, &completedAt, &createdAt, &updatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	run := models.NewRun(sequence, root)
	run.SetID(id)
	run.SetCounts(filesSeen, found, missing, cached, existing, errored)
	run.SetCreatedAt(createdAt)
	run.SetUpdatedAt(updatedAt)

	if startedAt.Valid {
		run.SetStartedAt(startedAt.Time)
	}
	if completedAt.Valid {
		run.SetCompletedAt(completedAt.Time)
	}
	if deletedAt.Valid {
		run.SetDeletedAt(&deletedAt.Time)
	}

	return run, nil
}
