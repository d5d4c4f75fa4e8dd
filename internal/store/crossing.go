package store

import (
	"database/sql"
)

// CrossingEvent is a persisted count increment.
type CrossingEvent struct {
	ID         int64   `json:"id"`
	RunID      string  `json:"run_id"`
	FrameIndex int     `json:"frame_index"`
	Count      int     `json:"count"`
	CX         int     `json:"cx"`
	CY         int     `json:"cy"`
	Area       float64 `json:"area"`
	MediaTime  float64 `json:"media_time"`
}

// CrossingRepository provides operations for crossing events.
type CrossingRepository struct {
	db *sql.DB
}

// Crossings returns the crossing repository for this store.
func (s *Store) Crossings() *CrossingRepository {
	return &CrossingRepository{db: s.db}
}

// Create inserts the events of one frame in a single transaction.
func (r *CrossingRepository) Create(events []CrossingEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO crossings (run_id, frame_index, count, cx, cy, area, media_time)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.Exec(e.RunID, e.FrameIndex, e.Count, e.CX, e.CY, e.Area, e.MediaTime); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListByRun retrieves the events of a run in count order.
func (r *CrossingRepository) ListByRun(runID string) ([]CrossingEvent, error) {
	rows, err := r.db.Query(
		`SELECT id, run_id, frame_index, count, cx, cy, area, media_time
		 FROM crossings
		 WHERE run_id = ?
		 ORDER BY count`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []CrossingEvent{}
	for rows.Next() {
		var e CrossingEvent
		if err := rows.Scan(&e.ID, &e.RunID, &e.FrameIndex, &e.Count, &e.CX, &e.CY, &e.Area, &e.MediaTime); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}
