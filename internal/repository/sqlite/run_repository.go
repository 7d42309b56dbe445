package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"yolodetector/internal/models"
)

// RunRepository implements repository.RunRepository for SQLite.
type RunRepository struct {
	db *DB
}

// NewRunRepository creates a new SQLite run repository.
func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

// Insert records the start of a run.
func (r *RunRepository) Insert(run *models.Run) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO runs (input, output, mode, device, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, run.Input, run.Output, run.Mode, run.Device, run.StartedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	return result.LastInsertId()
}

// Finish stores the frame count and end time of a run.
func (r *RunRepository) Finish(id int64, frames int, finishedAt time.Time) error {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`UPDATE runs SET frames = ?, finished_at = ? WHERE id = ?`, frames, finishedAt, id)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("run %d not found", id)
	}
	return nil
}

// GetByID retrieves a run by its ID. It returns nil when no run matches.
func (r *RunRepository) GetByID(id int64) (*models.Run, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	run, err := scanRun(r.db.Conn().QueryRow(`
		SELECT id, input, output, mode, device, started_at, finished_at, frames
		FROM runs WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// GetAll returns the most recent runs first. A limit <= 0 returns all runs.
func (r *RunRepository) GetAll(limit int) ([]models.Run, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query := `
		SELECT id, input, output, mode, device, started_at, finished_at, frames
		FROM runs ORDER BY started_at DESC, id DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

// GetStats counts the detections of a run per label.
func (r *RunRepository) GetStats(id int64) (*models.RunStats, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	stats := &models.RunStats{RunID: id, LabelCounts: make(map[string]int)}

	if err := r.db.Conn().QueryRow(`SELECT frames FROM runs WHERE id = ?`, id).Scan(&stats.Frames); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("run %d not found", id)
		}
		return nil, fmt.Errorf("failed to get run frames: %w", err)
	}

	rows, err := r.db.Conn().Query(`
		SELECT label, COUNT(*) FROM detections WHERE run_id = ? GROUP BY label
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query label counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var label string
		var count int
		if err := rows.Scan(&label, &count); err != nil {
			return nil, fmt.Errorf("failed to scan label count: %w", err)
		}
		stats.LabelCounts[label] = count
		stats.Detections += count
	}

	return stats, rows.Err()
}

// Delete removes a run and, through the foreign key, its detections.
func (r *RunRepository) Delete(id int64) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM runs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*models.Run, error) {
	var run models.Run
	var finished sql.NullTime
	if err := row.Scan(&run.ID, &run.Input, &run.Output, &run.Mode, &run.Device, &run.StartedAt, &finished, &run.Frames); err != nil {
		return nil, err
	}
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return &run, nil
}
