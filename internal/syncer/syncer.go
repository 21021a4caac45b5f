// Package syncer runs the fetch, reconcile and write sequence that keeps a
// worksheet in step with the analytics report.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/ga4sync/internal/export"
	"github.com/Veraticus/ga4sync/internal/history"
	"github.com/Veraticus/ga4sync/internal/model"
	"github.com/Veraticus/ga4sync/internal/reconcile"
	"github.com/Veraticus/ga4sync/internal/sheets"
)

// Fetcher retrieves report rows for a query.
type Fetcher interface {
	Fetch(ctx context.Context, query model.Query) (*model.RecordSet, error)
}

// SheetOpener opens the destination worksheet.
type SheetOpener interface {
	OpenWorksheet(ctx context.Context, spreadsheetID, name string) (sheets.Worksheet, error)
}

// RunRecorder stores the outcome of each run.
type RunRecorder interface {
	RecordRun(ctx context.Context, run *history.Run) error
}

// Options describes what to sync and where.
type Options struct {
	// Progress, when set, is called with the number of rows about to be
	// written and returns a per-batch callback.
	Progress      func(total int) func(rows int)
	PropertyID    string
	SpreadsheetID string
	Worksheet     string
	ExportPath    string
	Query         model.Query
}

// Result summarizes a run.
type Result struct {
	RunID          string
	Worksheet      string
	DuplicateDates []string
	Record         history.Run
	Fetched        int
	Existing       int
	Superseded     int
	Written        int
	Skipped        bool
}

// Syncer wires a fetcher, a worksheet opener and an optional run recorder.
type Syncer struct {
	fetcher  Fetcher
	opener   SheetOpener
	recorder RunRecorder
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
	export   func(path string, set *model.RecordSet) error
}

// New creates a Syncer. recorder may be nil to disable run history.
func New(fetcher Fetcher, opener SheetOpener, recorder RunRecorder, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Syncer{
		fetcher:  fetcher,
		opener:   opener,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
		export:   export.WriteXLSX,
	}
}

// Run performs one sync. An empty report leaves the worksheet untouched.
// Header formatting, snapshot export and history failures are logged and do
// not fail the run.
func (s *Syncer) Run(ctx context.Context, opts Options) (*Result, error) {
	run := &history.Run{
		ID:            s.newID(),
		StartedAt:     s.now(),
		PropertyID:    opts.PropertyID,
		SpreadsheetID: opts.SpreadsheetID,
		Worksheet:     opts.Worksheet,
		StartDate:     opts.Query.DateRange.Start,
		EndDate:       opts.Query.DateRange.End,
	}
	logger := s.logger.With("run_id", run.ID)

	result, err := s.run(ctx, logger, opts, run)

	run.FinishedAt = s.now()
	switch {
	case err != nil:
		run.Status = history.StatusFailed
		run.Error = err.Error()
	case result.Skipped:
		run.Status = history.StatusSkipped
	default:
		run.Status = history.StatusSucceeded
	}
	s.record(ctx, logger, run)

	if err != nil {
		return nil, err
	}

	result.RunID = run.ID
	result.Record = *run
	logger.Info("sync finished",
		"status", run.Status,
		"fetched", result.Fetched,
		"written", result.Written,
		"duration", run.Duration())
	return result, nil
}

func (s *Syncer) run(ctx context.Context, logger *slog.Logger, opts Options, run *history.Run) (*Result, error) {
	fresh, err := s.fetcher.Fetch(ctx, opts.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch report: %w", err)
	}
	run.Fetched = fresh.Len()

	if fresh.Empty() {
		logger.Info("no data for date range, leaving worksheet unchanged",
			"date_range", opts.Query.DateRange.String())
		return &Result{Skipped: true, Worksheet: opts.Worksheet}, nil
	}

	ws, err := s.opener.OpenWorksheet(ctx, opts.SpreadsheetID, opts.Worksheet)
	if err != nil {
		return nil, fmt.Errorf("failed to open worksheet: %w", err)
	}
	run.Worksheet = ws.Title()

	table, err := ws.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read existing data: %w", err)
	}

	existing := reconcile.FromTable(table, fresh.Schema)
	run.Existing = existing.Len()
	logger.Info("read existing rows", "worksheet", ws.Title(), "rows", existing.Len())

	merged := reconcile.Merge(fresh, existing)
	run.Superseded = merged.Superseded
	run.DuplicateDates = merged.DuplicateDates
	if len(merged.DuplicateDates) > 0 {
		logger.Info("replacing rows for refetched dates",
			"dates", merged.DuplicateDates,
			"superseded", merged.Superseded)
	}

	if err := ws.Clear(ctx); err != nil {
		return nil, fmt.Errorf("failed to clear worksheet: %w", err)
	}

	var progress func(rows int)
	if opts.Progress != nil {
		progress = opts.Progress(merged.Set.Len() + 1)
	}
	if err := ws.WriteTable(ctx, merged.Set.Table(), progress); err != nil {
		return nil, fmt.Errorf("failed to write worksheet: %w", err)
	}
	run.Written = merged.Set.Len()

	if err := ws.FormatHeader(ctx, merged.Set.Schema.Len()); err != nil {
		logger.Warn("failed to format header", "error", err)
	}

	if opts.ExportPath != "" {
		if err := s.export(opts.ExportPath, merged.Set); err != nil {
			logger.Warn("failed to export snapshot", "path", opts.ExportPath, "error", err)
		} else {
			logger.Info("exported snapshot", "path", opts.ExportPath)
		}
	}

	return &Result{
		Worksheet:      ws.Title(),
		DuplicateDates: merged.DuplicateDates,
		Fetched:        fresh.Len(),
		Existing:       existing.Len(),
		Superseded:     merged.Superseded,
		Written:        merged.Set.Len(),
	}, nil
}

func (s *Syncer) record(ctx context.Context, logger *slog.Logger, run *history.Run) {
	if s.recorder == nil {
		return
	}

	// Record failed runs even when ctx was cancelled mid-run.
	recordCtx := ctx
	if errors.Is(ctx.Err(), context.Canceled) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		var cancel context.CancelFunc
		recordCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
	}

	if err := s.recorder.RecordRun(recordCtx, run); err != nil {
		logger.Warn("failed to record run history", "error", err)
	}
}
