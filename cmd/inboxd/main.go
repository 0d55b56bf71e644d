package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"inboxd/internal/config"
	"inboxd/internal/metrics"
	"inboxd/internal/server"
	"inboxd/internal/store"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	configPath string // overridable via --config flag
)

func main() {
	root := &cobra.Command{
		Use:   "inboxd",
		Short: "inboxd: webhook message ingestion and query service",
		Long:  "inboxd receives signed message notifications over HTTP, stores them idempotently in SQLite, and serves query, stats, and health endpoints.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file (optional; env vars override)")

	root.AddCommand(serveCmd())
	root.AddCommand(checkCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	logger.Info("starting inboxd", "version", version, "addr", cfg.Addr(), "db", cfg.DatabasePath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.DatabasePath, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	srv := server.New(cfg, st, metrics.New(), logger)
	if err := srv.Start(ctx); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("inboxd", version)
		},
	}
}
