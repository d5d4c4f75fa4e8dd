package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Run is one processed video.
type Run struct {
	ID         string          `json:"id"`
	Source     string          `json:"source"`
	Policy     string          `json:"policy"`
	Frames     int             `json:"frames"`
	Count      int             `json:"count"`
	Settings   json.RawMessage `json:"settings,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

// Finished reports whether the run completed.
func (r *Run) Finished() bool {
	return r.FinishedAt != nil
}

// RunRepository provides operations for runs.
type RunRepository struct {
	db *sql.DB
}

// Runs returns the run repository for this store.
func (s *Store) Runs() *RunRepository {
	return &RunRepository{db: s.db}
}

// Create inserts a new run. An ID is generated when empty.
func (r *RunRepository) Create(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	settings := run.Settings
	if len(settings) == 0 {
		settings = json.RawMessage("{}")
	}

	_, err := r.db.Exec(
		`INSERT INTO runs (id, source, policy, frames, count, settings, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.Policy, run.Frames, run.Count, string(settings), run.StartedAt,
	)
	return err
}

// Finish records the final totals of a run and when it ended.
func (r *RunRepository) Finish(id string, frames, count int, finishedAt time.Time) error {
	result, err := r.db.Exec(
		`UPDATE runs SET frames = ?, count = ?, finished_at = ? WHERE id = ?`,
		frames, count, finishedAt, id,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

const runColumns = `id, source, policy, frames, count, settings, started_at, finished_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	run := &Run{}
	var settings string
	var finished sql.NullTime

	err := row.Scan(&run.ID, &run.Source, &run.Policy, &run.Frames, &run.Count, &settings, &run.StartedAt, &finished)
	if err != nil {
		return nil, err
	}

	run.Settings = json.RawMessage(settings)
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return run, nil
}

// GetByID retrieves a run by its ID.
func (r *RunRepository) GetByID(id string) (*Run, error) {
	run, err := scanRun(r.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return run, nil
}

// List retrieves runs, most recent first. limit <= 0 means no limit.
func (r *RunRepository) List(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.Query(`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

// Delete removes a run and its crossings.
func (r *RunRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
