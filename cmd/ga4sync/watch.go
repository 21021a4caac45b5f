package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/ga4sync/internal/status"
)

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Sync continuously on an interval",
		Long: `Run a sync immediately and then once per interval until interrupted.

A failed run is logged and retried at the next interval. With --status-listen
a read-only HTTP endpoint reports health and recent runs.`,
		Example: `  # Sync every 15 minutes and expose status on :8080
  ga4sync watch --interval 15m --status-listen :8080`,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := viper.BindPFlag("sync.interval", cmd.Flags().Lookup("interval")); err != nil {
				return err
			}
			if err := viper.BindPFlag("status.listen", cmd.Flags().Lookup("status-listen")); err != nil {
				return err
			}
			return bindSyncFlags(cmd, viper.GetViper())
		},
		RunE: runWatch,
	}

	addSyncFlags(cmd)
	cmd.Flags().Duration("interval", 0, "time between syncs (default 60m)")
	cmd.Flags().String("status-listen", "", "address for the status HTTP server, e.g. :8080")
	return cmd
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	a, err := newApp(ctx, viper.GetViper(), logger)
	if err != nil {
		return err
	}
	defer a.Close()

	g, gctx := errgroup.WithContext(ctx)

	if addr := a.cfg.StatusListen; addr != "" {
		var reader status.RunReader
		if a.store != nil {
			reader = a.store
		}
		srv := status.NewServer(reader, logger)
		g.Go(func() error {
			return srv.ListenAndServe(gctx, addr)
		})
	}

	g.Go(func() error {
		return a.syncer.Watch(gctx, a.cfg.Interval, a.options(false))
	})

	return g.Wait()
}
