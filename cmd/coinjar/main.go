package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dukerupert/coinjar/internal/config"
	"github.com/dukerupert/coinjar/internal/database"
	"github.com/dukerupert/coinjar/internal/logging"
	"github.com/dukerupert/coinjar/internal/server"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.Setup(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	db, err := database.Open(context.Background(), cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if v, err := database.SchemaVersion(context.Background(), db); err == nil {
		slog.Info("database ready", "path", cfg.DBPath, "schema_version", v)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, db, cfg, logger)
	if err != nil {
		slog.Error("failed to start server", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	srv.Trigger().Start(ctx)

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		slog.Info("coinjar starting", "addr", fmt.Sprintf("http://localhost:%s", cfg.Port), "timezone", cfg.Location().String(), "snapshot_backend", cfg.SnapshotBackend)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down")
	srv.Trigger().Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
