package store

import (
	"database/sql"
	"fmt"
	"time"
)

// ScheduledRun is a recurring session: a config file run on a cron
// schedule by serve mode.
type ScheduledRun struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Schedule   string     `json:"schedule"`
	ConfigPath string     `json:"config_path"`
	Status     string     `json:"status"`
	NextRunAt  *time.Time `json:"next_run_at,omitempty"`
	LastRunAt  *time.Time `json:"last_run_at,omitempty"`
	LastStatus string     `json:"last_status,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func scanRun(sc scanner) (*ScheduledRun, error) {
	r := &ScheduledRun{}
	var lastStatus, lastError *string
	err := sc.Scan(&r.ID, &r.Name, &r.Schedule, &r.ConfigPath, &r.Status,
		&r.NextRunAt, &r.LastRunAt, &lastStatus, &lastError, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	if lastStatus != nil {
		r.LastStatus = *lastStatus
	}
	if lastError != nil {
		r.LastError = *lastError
	}
	return r, nil
}

func (s *Store) SaveRun(r *ScheduledRun) error {
	_, err := s.db.Exec(`
		INSERT INTO scheduled_runs (id, name, schedule, config_path, status, next_run_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			schedule = excluded.schedule,
			config_path = excluded.config_path,
			status = excluded.status,
			next_run_at = excluded.next_run_at`,
		r.ID, r.Name, r.Schedule, r.ConfigPath, r.Status, r.NextRunAt)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

func (s *Store) GetRun(id string) (*ScheduledRun, error) {
	row := s.db.QueryRow(`
		SELECT id, name, schedule, config_path, status,
		       next_run_at, last_run_at, last_status, last_error, created_at
		FROM scheduled_runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

func (s *Store) ListRuns() ([]ScheduledRun, error) {
	rows, err := s.db.Query(`
		SELECT id, name, schedule, config_path, status,
		       next_run_at, last_run_at, last_status, last_error, created_at
		FROM scheduled_runs ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []ScheduledRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

func (s *Store) GetDueRuns(now time.Time) ([]ScheduledRun, error) {
	rows, err := s.db.Query(`
		SELECT id, name, schedule, config_path, status,
		       next_run_at, last_run_at, last_status, last_error, created_at
		FROM scheduled_runs
		WHERE status = 'active' AND next_run_at <= ?
		ORDER BY next_run_at`, now)
	if err != nil {
		return nil, fmt.Errorf("get due runs: %w", err)
	}
	defer rows.Close()

	var runs []ScheduledRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

func (s *Store) UpdateRunResult(id string, lastStatus, lastError string, nextRunAt *time.Time) error {
	_, err := s.db.Exec(`
		UPDATE scheduled_runs
		SET last_run_at = CURRENT_TIMESTAMP, last_status = ?, last_error = ?, next_run_at = ?
		WHERE id = ?`, lastStatus, lastError, nextRunAt, id)
	return err
}

func (s *Store) UpdateRunStatus(id, status string) error {
	_, err := s.db.Exec(`UPDATE scheduled_runs SET status = ? WHERE id = ?`, status, id)
	return err
}

func (s *Store) DeleteRun(id string) error {
	_, err := s.db.Exec(`DELETE FROM scheduled_runs WHERE id = ?`, id)
	return err
}
