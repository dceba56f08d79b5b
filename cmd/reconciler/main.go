// Command reconciler runs the poll path outside the HTTP server: a periodic
// sweep of stale pending payments, a one-off poll, and schema migration.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"paysync/config"
	"paysync/internal/app"
	"paysync/internal/database"
	"paysync/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "reconciler",
		Short:   "Reconcile local payment records with the payment provider",
		Version: Version,
	}

	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(pollCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads config and builds the app. The caller must Close it.
func bootstrap(ctx context.Context) (*app.App, error) {
	cfg := config.Load()
	zl, err := logger.New(cfg.Server.Env, cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, zl)
}

func sweepCmd() *cobra.Command {
	var (
		olderThan time.Duration
		limit     int
		interval  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Poll pending payments older than --older-than",
		Long: `Poll the provider for every pending payment older than --older-than.

With --interval the sweep repeats until SIGINT or SIGTERM; without it a
single pass runs and the command exits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			defer a.Log.Sync()

			if !cmd.Flags().Changed("older-than") {
				olderThan = a.Config.Reconcile.SweepOlderThan
			}
			if !cmd.Flags().Changed("limit") {
				limit = a.Config.Reconcile.SweepBatch
			}

			for {
				stats, err := a.Reconciler.SweepPending(ctx, olderThan, limit)
				if err != nil && ctx.Err() == nil {
					a.Log.Error("sweep failed", zap.Error(err))
				}
				if interval <= 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "checked=%d approved=%d soft=%d\n", stats.Checked, stats.Approved, stats.Soft)
					return err
				}
				select {
				case <-ctx.Done():
					a.Log.Info("sweep loop stopped")
					return nil
				case <-time.After(interval):
				}
			}
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 2*time.Minute, "only poll records created before now minus this")
	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "maximum records per pass")
	cmd.Flags().DurationVar(&interval, "interval", 0, "repeat every interval until interrupted (0 runs once)")
	return cmd
}

func pollCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "poll [payment-id]",
		Short: "Reconcile a single payment and print its status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			defer a.Log.Sync()

			res, err := a.Reconciler.Poll(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("poll %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "payment=%s status=%s approved=%t provider_status=%s soft=%t\n",
				args[0], res.Status, res.Approved, res.ProviderStatus, res.Soft)
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the payment tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			if err := database.AutoMigrate(a.DB); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migration complete")
			return nil
		},
	}
}
