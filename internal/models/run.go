package models

import (
	"fmt"
	"time"
)

// validStatuses is the persistence vocabulary for run outcomes.
var validStatuses = map[string]bool{
	"cached":  true,
	"exists":  true,
	"found":   true,
	"missing": true,
	"error":   true,
}

// Run is a persisted scan: one row per completed run with per-status counts.
type Run struct {
	id          string
	sequence    int
	root        string
	filesSeen   int
	found       int
	missing     int
	cached      int
	existing    int
	errored     int
	startedAt   time.Time
	completedAt time.Time
	createdAt   time.Time
	updatedAt   time.Time
	deletedAt   *time.Time
}

// NewRun creates a Run for the given sequence and library root with timestamps set to now.
func NewRun(sequence int, root string) *Run {
	now := time.Now()

	return &Run{
		sequence:  sequence,
		root:      root,
		startedAt: now,
		createdAt: now,
		updatedAt: now,
	}
}

func (r *Run) ID() string             { return r.id }
func (r *Run) Sequence() int          { return r.sequence }
func (r *Run) Root() string           { return r.root }
func (r *Run) FilesSeen() int         { return r.filesSeen }
func (r *Run) Found() int             { return r.found }
func (r *Run) Missing() int           { return r.missing }
func (r *Run) Cached() int            { return r.cached }
func (r *Run) Existing() int          { return r.existing }
func (r *Run) Errored() int           { return r.errored }
func (r *Run) StartedAt() time.Time   { return r.startedAt }
func (r *Run) CompletedAt() time.Time { return r.completedAt }
func (r *Run) CreatedAt() time.Time   { return r.createdAt }
func (r *Run) UpdatedAt() time.Time   { return r.updatedAt }
func (r *Run) DeletedAt() *time.Time  { return r.deletedAt }

func (r *Run) SetID(id string)            { r.id = id }
func (r *Run) SetSequence(sequence int)   { r.sequence = sequence }
func (r *Run) SetStartedAt(t time.Time)   { r.startedAt = t }
func (r *Run) SetCompletedAt(t time.Time) { r.completedAt = t }
func (r *Run) SetCreatedAt(t time.Time)   { r.createdAt = t }
func (r *Run) SetUpdatedAt(t time.Time)   { r.updatedAt = t }
func (r *Run) SetDeletedAt(t *time.Time)  { r.deletedAt = t }

// SetCounts records the per-status totals of a completed run.
func (r *Run) SetCounts(seen, found, missing, cached, existing, errored int) {
	r.filesSeen = seen
	r.found = found
	r.missing = missing
	r.cached = cached
	r.existing = existing
	r.errored = errored
}

// Validate checks that the run names a root and carries sane counts.
func (r *Run) Validate() error {
	if r.root == "" {
		return fmt.Errorf("root is required")
	}

	for _, count := range []int{r.filesSeen, r.found, r.missing, r.cached, r.existing, r.errored} {
		if count < 0 {
			return fmt.Errorf("counts must be non-negative")
		}
	}

	return nil
}

// RunSummary is the JSON-friendly projection of a run.
type RunSummary struct {
	ID          string    `json:"id"`
	Sequence    int       `json:"sequence"`
	Root        string    `json:"root"`
	FilesSeen   int       `json:"files_seen"`
	Found       int       `json:"found"`
	Missing     int       `json:"missing"`
	Cached      int       `json:"cached"`
	Existing    int       `json:"existing"`
	Errored     int       `json:"errored"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// Summary returns the run as a DTO for rendering.
func (r *Run) Summary() RunSummary {
	return RunSummary{
		ID:          r.id,
		Sequence:    r.sequence,
		Root:        r.root,
		FilesSeen:   r.filesSeen,
		Found:       r.found,
		Missing:     r.missing,
		Cached:      r.cached,
		Existing:    r.existing,
		Errored:     r.errored,
		StartedAt:   r.startedAt,
		CompletedAt: r.completedAt,
	}
}

// RunOutcome is a persisted per-file outcome belonging to a run.
type RunOutcome struct {
	id        string
	runID     string
	path      string
	status    string
	errText   string
	createdAt time.Time
	updatedAt time.Time
}

// NewRunOutcome creates a RunOutcome tying a file path and terminal status to a run.
func NewRunOutcome(runID, path, status, errText string) *RunOutcome {
	now := time.Now()

	return &RunOutcome{
		runID:     runID,
		path:      path,
		status:    status,
		errText:   errText,
		createdAt: now,
		updatedAt: now,
	}
}

func (o *RunOutcome) ID() string           { return o.id }
func (o *RunOutcome) RunID() string        { return o.runID }
func (o *RunOutcome) Path() string         { return o.path }
func (o *RunOutcome) Status() string       { return o.status }
func (o *RunOutcome) ErrText() string      { return o.errText }
func (o *RunOutcome) CreatedAt() time.Time { return o.createdAt }
func (o *RunOutcome) UpdatedAt() time.Time { return o.updatedAt }

func (o *RunOutcome) SetID(id string)          { o.id = id }
func (o *RunOutcome) SetCreatedAt(t time.Time) { o.createdAt = t }
func (o *RunOutcome) SetUpdatedAt(t time.Time) { o.updatedAt = t }

// Validate checks that the outcome is anchored to a run and carries a known status.
func (o *RunOutcome) Validate() error {
	if o.runID == "" {
		return fmt.Errorf("run id is required")
	}

	if o.path == "" {
		return fmt.Errorf("path is required")
	}

	if !validStatuses[o.status] {
		return fmt.Errorf("unknown status: %s", o.status)
	}

	return nil
}

// OutcomeRecord is the JSON-friendly projection of a run outcome.
type OutcomeRecord struct {
	Path   string `json:"path"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Record returns the outcome as a DTO for rendering.
func (o *RunOutcome) Record() OutcomeRecord {
	return OutcomeRecord{
		Path:   o.path,
		Status: o.status,
		Error:  o.errText,
	}
}
