package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sourcebot-dev/sourcebot-sub003/internal/config"
	"github.com/sourcebot-dev/sourcebot-sub003/internal/logging"
	"github.com/sourcebot-dev/sourcebot-sub003/internal/repostore"
	"github.com/sourcebot-dev/sourcebot-sub003/internal/search"
	"github.com/sourcebot-dev/sourcebot-sub003/internal/server"
	"github.com/sourcebot-dev/sourcebot-sub003/internal/telemetry"
	"github.com/sourcebot-dev/sourcebot-sub003/internal/zoekt"
	"github.com/sourcebot-dev/sourcebot-sub003/pkg/version"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the search API server",
		Long: `Start the HTTP API server.

The server exposes POST /api/search for unary searches and
POST /api/stream_search for server-sent event streams. It requires a
running Zoekt-compatible engine at the configured address.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")

	return cmd
}

func runServe(ctx context.Context, cfg config.Config) error {
	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	if cfg.Logging.FilePath != "" {
		logCfg.FilePath = cfg.Logging.FilePath
	}
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer cleanup()
	slog.SetDefault(logger)

	store, err := repostore.Open(repostore.Options{
		Path:                  cfg.Store.DBPath,
		PermissionSyncEnabled: cfg.Store.PermissionSyncEnabled,
	})
	if err != nil {
		return fmt.Errorf("failed to open repository store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close repository store", slog.String("error", err.Error()))
		}
	}()

	client := zoekt.NewClient(zoekt.Options{
		Network:     cfg.Engine.Network,
		Address:     cfg.Engine.Address,
		DialTimeout: cfg.Engine.DialTimeout,
	})

	recorder := telemetry.NewRecorder()
	service := search.NewService(client, store, logger, recorder, search.Defaults{
		Matches:      cfg.Search.DefaultMatches,
		ContextLines: cfg.Search.DefaultContextLines,
	})

	srv := server.New(cfg.Server.Addr, service, logger, recorder)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			slog.String("addr", cfg.Server.Addr),
			slog.String("engine", cfg.Engine.Address),
			slog.String("version", version.Version))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
