package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/reportload/internal/config"
	"github.com/JonMunkholm/reportload/internal/core"
	"github.com/JonMunkholm/reportload/internal/logging"
	_ "github.com/JonMunkholm/reportload/internal/reports" // Register all report and master types
	"github.com/JonMunkholm/reportload/internal/store"
	"github.com/JonMunkholm/reportload/internal/web"
	"github.com/joho/godotenv"
)

func main() {
	// .env values win over the inherited environment.
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format, os.Stdout)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	service := core.NewService(db, db, cfg.Ingest.Options())
	for _, group := range core.Groups() {
		slog.Debug("type group", "group", group, "types", len(core.ByGroup(group)))
	}
	slog.Info("types registered", "count", core.TypeCount())

	server, err := web.NewServer(service, db, cfg)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Server.Addr())
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if active := service.LimiterStatus().Active; active > 0 {
		slog.Info("waiting for runs to complete", "active", active)
		if err := service.WaitForRuns(shutdownCtx); err != nil {
			slog.Warn("runs did not complete in time", "error", err)
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
