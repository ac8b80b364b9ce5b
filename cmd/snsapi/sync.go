package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"snsapi/internal/cmdlog"
	"snsapi/internal/jobs"
	"snsapi/internal/metrics"
)

var syncLoop bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Archive new home timeline items",
	Long: `Fetch the home timeline and store items newer than the last sync.
With --loop, repeat every sync.interval until interrupted.`,
	RunE: runSync,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose metrics and keep syncing the home timeline",
	RunE:  runServe,
}

func init() {
	syncCmd.Flags().BoolVar(&syncLoop, "loop", false, "keep syncing on sync.interval")
	rootCmd.AddCommand(syncCmd, serveCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	return cmdlog.Run(a.log, "sync", func() error {
		if !syncLoop {
			ctx := cmd.Context()
			if err := a.authorized(ctx); err != nil {
				return err
			}
			n, err := jobs.SyncHome(ctx, a.db, a.channel, a.cfg.Sync.Count, a.log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d new messages\n", n)
			return nil
		}
		return loop(cmd.Context(), a)
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	return cmdlog.Run(a.log, "serve", func() error {
		if a.cfg.Metrics.Addr == "" {
			a.cfg.Metrics.Addr = ":9090"
		}
		addr, err := metrics.StartServer(a.cfg.Metrics.Addr)
		if err != nil {
			return err
		}
		a.log.Info("metrics server started", zap.Stringer("addr", addr))
		return loop(cmd.Context(), a)
	})
}

// loop syncs until SIGINT or SIGTERM.
func loop(parent context.Context, a *app) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := a.authorized(ctx); err != nil {
		return err
	}
	err := jobs.RunSyncLoop(ctx, a.db, a.channel, a.cfg.Sync.Count, a.cfg.Sync.Interval, a.log)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
