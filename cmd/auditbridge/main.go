package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/auditbridge-backend/internal/app"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "auditbridge",
		Short:        "Evidence processing backend for tech audits",
		SilenceUsage: true,
	}
	cmd.AddCommand(serveCmd(), workerCmd(), migrateCmd(), seedCriteriaCmd())
	return cmd
}

func serveCmd() *cobra.Command {
	var (
		withWorker bool
		migrate    bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := wiredApp(ctx, migrate)
			if err != nil {
				return err
			}
			defer a.Close()

			g, gctx := errgroup.WithContext(ctx)
			if withWorker {
				if err := a.StartWorker(gctx); err != nil {
					return err
				}
			}
			g.Go(func() error { return a.Serve(gctx) })
			return g.Wait()
		},
	}
	cmd.Flags().BoolVar(&withWorker, "with-worker", true, "Run the job worker in the same process")
	cmd.Flags().BoolVar(&migrate, "migrate", true, "Run auto-migrations before serving")
	return cmd
}

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run only the job worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := wiredApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.StartWorker(ctx); err != nil {
				return err
			}
			a.Log.Info("Worker running")
			<-ctx.Done()
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New()
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Migrate()
		},
	}
}

func seedCriteriaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-criteria <framework.yaml>",
		Short: "Load the base criteria framework",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New()
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.Migrate(); err != nil {
				return err
			}
			res, err := a.SeedCriteria(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "criteria created=%d existing=%d\n", res.Created, res.Existing)
			return nil
		},
	}
}

func wiredApp(ctx context.Context, migrate bool) (*app.App, error) {
	a, err := app.New()
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := a.Migrate(); err != nil {
			a.Close()
			return nil, err
		}
	}
	if err := a.Wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}
