// Package runlog keeps a sqlite history of runs: one row per run with its
// terminal status, error, and summary metrics.
package runlog

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

type Status string

const (
	StatusStarted   Status = "started"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

type RunRecord struct {
	ID          string
	StartedAt   time.Time
	CompletedAt time.Time
	Status      Status
	Error       string
	Metrics     map[string]int64
}

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("runlog: path is required")
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		completed_at DATETIME,
		status TEXT NOT NULL,
		error TEXT,
		metrics TEXT
	);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Start() (*RunRecord, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("runlog: store is not open")
	}
	record := &RunRecord{
		ID:        uuid.NewString(),
		StartedAt: s.now().UTC(),
		Status:    StatusStarted,
	}
	_, err := s.db.Exec(
		`INSERT INTO runs (id, started_at, status) VALUES (?, ?, ?)`,
		record.ID, record.StartedAt, string(record.Status),
	)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Store) Finish(record *RunRecord, runErr error, metrics map[string]int64) error {
	if s == nil || s.db == nil {
		return errors.New("runlog: store is not open")
	}
	if record == nil {
		return errors.New("runlog: record is nil")
	}
	record.CompletedAt = s.now().UTC()
	if runErr != nil {
		record.Status = StatusFailed
		record.Error = runErr.Error()
	} else {
		record.Status = StatusCompleted
		record.Error = ""
	}
	record.Metrics = metrics

	var metricsJSON []byte
	if len(metrics) > 0 {
		payload, err := json.Marshal(metrics)
		if err != nil {
			return err
		}
		metricsJSON = payload
	}
	_, err := s.db.Exec(
		`UPDATE runs SET completed_at = ?, status = ?, error = ?, metrics = ? WHERE id = ?`,
		record.CompletedAt, string(record.Status), record.Error, string(metricsJSON), record.ID,
	)
	return err
}

// List returns the most recent runs, newest first.
func (s *Store) List(limit int) ([]RunRecord, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("runlog: store is not open")
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, started_at, completed_at, status, error, metrics
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var record RunRecord
		var completedAt sql.NullTime
		var errText, metricsJSON sql.NullString
		if err := rows.Scan(&record.ID, &record.StartedAt, &completedAt, (*string)(&record.Status), &errText, &metricsJSON); err != nil {
			return nil, err
		}
		if completedAt.Valid {
			record.CompletedAt = completedAt.Time
		}
		record.Error = errText.String
		if metricsJSON.Valid && metricsJSON.String != "" {
			if err := json.Unmarshal([]byte(metricsJSON.String), &record.Metrics); err != nil {
				return nil, err
			}
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
