package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"coursescout/internal/api"
	"coursescout/internal/checker"
	"coursescout/internal/logger"
	"coursescout/internal/pipeline"
)

func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "coursescout",
		Short:         "Collect free course links and check whether they still work",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "optional config file (yaml, json or toml)")

	withApp := func(fn func(ctx context.Context, cmd *cobra.Command, a *app) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), configFile)
			if err != nil {
				return err
			}
			defer a.Close()
			return fn(cmd.Context(), cmd, a)
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "collect",
			Short: "Fetch new posts and store the ones not seen before",
			Args:  cobra.NoArgs,
			RunE:  withApp(runCollect),
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Validate the stored course links and print a summary",
			Args:  cobra.NoArgs,
			RunE:  withApp(runValidate),
		},
		&cobra.Command{
			Use:   "run",
			Short: "Collect, then validate",
			Args:  cobra.NoArgs,
			RunE:  withApp(runAll),
		},
		&cobra.Command{
			Use:   "serve",
			Short: "Serve the read API and run the pipeline periodically",
			Args:  cobra.NoArgs,
			RunE:  withApp(runServe),
		},
	)
	return root
}

func runCollect(ctx context.Context, cmd *cobra.Command, a *app) error {
	stats, err := a.pipeline.Collect(ctx)
	if err != nil {
		return err
	}
	return pipeline.WriteCollectReport(cmd.OutOrStdout(), stats)
}

func runValidate(ctx context.Context, cmd *cobra.Command, a *app) error {
	summary, err := a.pipeline.Validate(ctx)
	if err != nil {
		return err
	}
	return pipeline.WriteValidationReport(cmd.OutOrStdout(), summary)
}

func runAll(ctx context.Context, cmd *cobra.Command, a *app) error {
	stats, err := a.pipeline.Collect(ctx)
	if err != nil {
		return err
	}
	if err := pipeline.WriteCollectReport(cmd.OutOrStdout(), stats); err != nil {
		return err
	}
	return runValidate(ctx, cmd, a)
}

func runServe(ctx context.Context, _ *cobra.Command, a *app) error {
	// Initialize the background checker and the API server.
	checkerSvc := checker.New(a.pipeline, a.cfg.CheckInterval, a.log.With(logger.String("component", "checker")))
	router := api.NewRouter(a.store, api.RouterConfig{
		Logger:   a.log.With(logger.String("component", "api")),
		Gatherer: a.registry,
		Runs:     checkerSvc,
	})
	server := api.NewServer(a.cfg.HTTPPort, router, a.log)

	// Start the services.
	checkerSvc.Start()
	server.Start()
	a.log.Info("application is running")

	// Block until a shutdown signal or a server failure.
	var serveErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received, starting graceful shutdown")
	case serveErr = <-server.Errors():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownGrace)
	defer shutdownCancel()

	// Stop the checker first to prevent new runs from starting.
	checkerSvc.Stop()

	// Then, shut down the HTTP server, allowing in-flight requests to finish.
	if err := server.Shutdown(shutdownCtx); err != nil {
		serveErr = errors.Join(serveErr, fmt.Errorf("http server shutdown error: %w", err))
	}
	if serveErr == nil {
		a.log.Info("application shut down gracefully")
	}
	return serveErr
}
