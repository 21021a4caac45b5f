package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/ga4sync/internal/cli"
)

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync",
		Long: `Fetch the configured report once and merge it into the worksheet.

Rows for every fetched date replace the existing rows for that date. Other
dates are kept. An empty report leaves the worksheet untouched.`,
		Example: `  # Sync today's data using GA4_PROPERTY_ID and GOOGLE_SHEET_ID
  ga4sync sync

  # Backfill the last week into a named worksheet
  ga4sync sync --start-date 7daysAgo --end-date yesterday --worksheet "GA4 Daily"`,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return bindSyncFlags(cmd, viper.GetViper())
		},
		RunE: runSync,
	}

	addSyncFlags(cmd)
	return cmd
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	a, err := newApp(ctx, viper.GetViper(), logger)
	if err != nil {
		return err
	}
	defer a.Close()

	showProgress, _ := cmd.Flags().GetBool("progress")

	result, err := a.syncer.Run(ctx, a.options(showProgress))
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.RenderRunSummary(result.Record))
	return nil
}
