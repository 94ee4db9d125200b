// Package main is the entry point for the deterministic embedding backend.
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

	"github.com/MikeSquared-Agency/embedding-backend/internal/config"
	"github.com/MikeSquared-Agency/embedding-backend/internal/metrics"
	"github.com/MikeSquared-Agency/embedding-backend/internal/models"
	"github.com/MikeSquared-Agency/embedding-backend/internal/server"
)

func main() {
	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	// Model registry. Serving without it is pointless, so any failure is fatal.
	registry, err := models.LoadRegistry(cfg.ModelsPath)
	if err != nil {
		logger.Error("failed to load model registry", "path", cfg.ModelsPath, "error", err)
		os.Exit(1)
	}
	metrics.RegistryModels.Set(float64(registry.Len()))
	logger.Info("model registry loaded", "path", cfg.ModelsPath, "models", registry.Len())

	// Server
	srv := server.New(cfg, registry, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      srv.Router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Info("shutting down gracefully...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	logger.Info("embedding backend starting", "port", cfg.Port, "backend_version", cfg.BackendVersion)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	<-stopped
	logger.Info("embedding backend stopped")
}
