package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/ga4sync/internal/analytics"
	"github.com/Veraticus/ga4sync/internal/cli"
	"github.com/Veraticus/ga4sync/internal/config"
	"github.com/Veraticus/ga4sync/internal/credentials"
	"github.com/Veraticus/ga4sync/internal/history"
	"github.com/Veraticus/ga4sync/internal/sheets"
	"github.com/Veraticus/ga4sync/internal/syncer"
)

// app holds the clients built once per process and reused across runs.
type app struct {
	cfg    *config.SyncConfig
	syncer *syncer.Syncer
	store  *history.SQLiteStore
}

// addSyncFlags registers the flags shared by sync and watch.
func addSyncFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("property", "", "GA4 property ID (env GA4_PROPERTY_ID)")
	flags.String("sheet", "", "Google Sheet ID (env GOOGLE_SHEET_ID)")
	flags.String("worksheet", "", "worksheet name, created if missing (default: first worksheet)")
	flags.String("start-date", "", "report start: today, yesterday, NdaysAgo or YYYY-MM-DD")
	flags.String("end-date", "", "report end: today, yesterday, NdaysAgo or YYYY-MM-DD")
	flags.String("export", "", "also write the reconciled data to this .xlsx file")
	flags.Bool("progress", false, "show a progress bar while writing")
	flags.Bool("no-history", false, "do not record the run in the local history database")
}

// bindSyncFlags binds the shared flags to their config keys in v. Called from
// PreRunE so that only the running command's flags are bound.
func bindSyncFlags(cmd *cobra.Command, v *viper.Viper) error {
	bindings := map[string]string{
		"analytics.property_id": "property",
		"sheets.spreadsheet_id": "sheet",
		"sheets.worksheet":      "worksheet",
		"sync.start_date":       "start-date",
		"sync.end_date":         "end-date",
		"export.xlsx":           "export",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", flag, err)
		}
	}

	if noHistory, _ := cmd.Flags().GetBool("no-history"); noHistory {
		v.Set("history.enabled", false)
	}
	return nil
}

func newApp(ctx context.Context, v *viper.Viper, logger *slog.Logger) (*app, error) {
	cfg, err := config.LoadSyncConfig(v)
	if err != nil {
		return nil, err
	}

	creds, err := credentials.Lookup(cfg.CredentialsEnv, cfg.CredentialsPaths, logger)
	if err != nil {
		return nil, err
	}
	if email := creds.ClientEmail(); email != "" {
		logger.Debug("using service account", "email", email, "source", creds.Kind)
	}

	httpClient, err := creds.HTTPClient(ctx, analytics.ReadonlyScope, sheets.Scope)
	if err != nil {
		return nil, err
	}

	runner, err := analytics.NewServiceRunner(ctx, httpClient)
	if err != nil {
		return nil, err
	}

	fetcher, err := analytics.NewFetcher(analytics.Config{
		PropertyID: cfg.PropertyID,
		RowLimit:   cfg.RowLimit,
	}, runner, logger)
	if err != nil {
		return nil, err
	}

	sheetsClient, err := sheets.NewClient(ctx, sheets.DefaultConfig(), httpClient, logger)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}

	var recorder syncer.RunRecorder
	if cfg.HistoryEnabled {
		store, storeErr := openHistory(ctx, cfg.HistoryPath)
		if storeErr != nil {
			// History is cosmetic; a broken database must not block syncing.
			logger.Warn("run history disabled", "path", cfg.HistoryPath, "error", storeErr)
		} else {
			a.store = store
			recorder = store
		}
	}

	a.syncer = syncer.New(fetcher, sheetsClient, recorder, logger)
	return a, nil
}

func openHistory(ctx context.Context, path string) (*history.SQLiteStore, error) {
	store, err := history.NewSQLiteStore(path)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}
	return store, nil
}

func (a *app) options(showProgress bool) syncer.Options {
	opts := syncer.Options{
		PropertyID:    a.cfg.PropertyID,
		SpreadsheetID: a.cfg.SpreadsheetID,
		Worksheet:     a.cfg.Worksheet,
		ExportPath:    a.cfg.ExportXLSX,
		Query:         a.cfg.Query(),
	}
	if showProgress {
		opts.Progress = func(total int) func(int) {
			return cli.RowProgress(cli.NewProgressBar(os.Stderr, total, "Writing rows..."))
		}
	}
	return opts
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			slog.Warn("Failed to close history database", "error", err)
		}
	}
}
