package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the outcome of a sync run.
type Status string

// Run statuses.
const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusSkipped:
		return true
	}
	return false
}

// Run is one recorded sync run.
type Run struct {
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	ID             string    `json:"id"`
	Status         Status    `json:"status"`
	PropertyID     string    `json:"property_id"`
	SpreadsheetID  string    `json:"spreadsheet_id"`
	Worksheet      string    `json:"worksheet,omitempty"`
	StartDate      string    `json:"start_date"`
	EndDate        string    `json:"end_date"`
	Error          string    `json:"error,omitempty"`
	DuplicateDates []string  `json:"duplicate_dates,omitempty"`
	Fetched        int       `json:"fetched"`
	Existing       int       `json:"existing"`
	Superseded     int       `json:"superseded"`
	Written        int       `json:"written"`
}

// Duration returns how long the run took.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const runColumns = `id, started_at, finished_at, status, property_id, spreadsheet_id, worksheet,
	start_date, end_date, fetched, existing, superseded, written, error, duplicate_dates`

// RecordRun stores a finished run. Recording the same ID twice replaces the earlier row.
func (s *SQLiteStore) RecordRun(ctx context.Context, run *Run) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRun(run); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO sync_runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.UTC().Format(timeLayout),
		run.FinishedAt.UTC().Format(timeLayout),
		string(run.Status),
		run.PropertyID,
		run.SpreadsheetID,
		run.Worksheet,
		run.StartDate,
		run.EndDate,
		run.Fetched,
		run.Existing,
		run.Superseded,
		run.Written,
		run.Error,
		strings.Join(run.DuplicateDates, ","),
	)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.ID, err)
	}
	return nil
}

// ListRuns returns up to limit runs, newest first. A non-positive limit returns all runs.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + runColumns + ` FROM sync_runs ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		run, scanErr := scanRun(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// LastRun returns the most recent run, or nil when nothing has been recorded.
func (s *SQLiteStore) LastRun(ctx context.Context) (*Run, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM sync_runs ORDER BY started_at DESC, id DESC LIMIT 1`)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		run                            Run
		started, finished, status      string
		worksheet, errText, duplicates sql.NullString
	)

	err := sc.Scan(
		&run.ID,
		&started,
		&finished,
		&status,
		&run.PropertyID,
		&run.SpreadsheetID,
		&worksheet,
		&run.StartDate,
		&run.EndDate,
		&run.Fetched,
		&run.Existing,
		&run.Superseded,
		&run.Written,
		&errText,
		&duplicates,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return nil, fmt.Errorf("invalid started_at for run %s: %w", run.ID, err)
	}
	if run.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
		return nil, fmt.Errorf("invalid finished_at for run %s: %w", run.ID, err)
	}

	run.Status = Status(status)
	run.Worksheet = worksheet.String
	run.Error = errText.String
	if duplicates.String != "" {
		run.DuplicateDates = strings.Split(duplicates.String, ",")
	}

	return &run, nil
}
