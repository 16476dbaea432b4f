package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/semmidev/tenantvault/internal/adapter/repository"
	"github.com/semmidev/tenantvault/internal/app"
	"github.com/semmidev/tenantvault/internal/config"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tenantvault",
		Short: "Scheduled per-tenant backups with retention",
		Long: `tenantvault exports the tables of every tenant with backups enabled into
versioned JSON snapshots, records each run in a ledger and prunes snapshots
older than the tenant's retention window.

Examples:
  # Run the cron and HTTP triggers
  tenantvault serve --config configs/config.yaml

  # Run a single pass and print the summary
  tenantvault run

  # Back up one tenant now
  tenantvault manual --tenant 3f0c6a6e-0d5b-4b7c-9d3e-2f4f1c2a9b10

  # Create or upgrade the ledger tables
  tenantvault migrate`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "configs/config.yaml", "path to config file")

	root.AddCommand(newServeCmd(), newRunCmd(), newManualCmd(), newMigrateCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the cron trigger and the HTTP trigger until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			application, err := setup(ctx)
			if err != nil {
				return err
			}
			defer application.Shutdown()

			return application.Serve(ctx)
		},
	}
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one backup pass and print the summary as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			application, err := setup(ctx)
			if err != nil {
				return err
			}
			defer application.Shutdown()

			summary, err := application.RunOnce(ctx)
			if summary != nil {
				if encErr := printJSON(cmd, summary); encErr != nil {
					return encErr
				}
			}
			if err != nil {
				return fmt.Errorf("backup pass: %w", err)
			}
			return nil
		},
	}
}

func newManualCmd() *cobra.Command {
	var tenantID string

	cmd := &cobra.Command{
		Use:   "manual",
		Short: "Back up a single tenant now",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			application, err := setup(ctx)
			if err != nil {
				return err
			}
			defer application.Shutdown()

			run, err := application.RunManual(ctx, tenantID)
			if run != nil {
				if encErr := printJSON(cmd, run); encErr != nil {
					return encErr
				}
			}
			if err != nil {
				return fmt.Errorf("manual backup: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant id to back up")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the ledger database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			if err := repository.Migrate(cfg.LedgerURL()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func setup(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	application, err := app.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize app: %w", err)
	}
	return application, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
