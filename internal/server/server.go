// Package server provides the HTTP server setup for the embedding backend.
package server

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/embedding-backend/internal/api"
	"github.com/MikeSquared-Agency/embedding-backend/internal/config"
	"github.com/MikeSquared-Agency/embedding-backend/internal/middleware"
	"github.com/MikeSquared-Agency/embedding-backend/internal/models"
	"github.com/MikeSquared-Agency/embedding-backend/internal/service"
)

// Server holds all dependencies for the embedding backend HTTP server.
type Server struct {
	Router   *chi.Mux
	Config   *config.Config
	Registry *models.Registry
	Service  *service.Service
	Logger   *slog.Logger
}

// New creates a new Server with all routes configured. The registry is shared
// read-only by every request.
func New(cfg *config.Config, registry *models.Registry, logger *slog.Logger) *Server {
	svc := service.New(registry, cfg.BackendVersion,
		service.WithBatchWorkers(cfg.BatchWorkers),
		service.WithLogger(logger),
	)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Metrics)
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.APIKeyAuth(cfg.APIKey))

	// Handlers
	healthHandler := api.NewHealthHandler(registry)
	embedHandler := api.NewEmbedHandler(svc, cfg.MaxBodyBytes, logger)

	// Routes
	r.Get("/health", healthHandler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/capabilities", embedHandler.Capabilities)
	r.Post("/probe", embedHandler.Probe)
	r.Route("/v1/embed", func(r chi.Router) {
		r.Post("/text", embedHandler.EmbedText)
		r.Post("/image_text", embedHandler.EmbedImageText)
	})

	return &Server{
		Router:   r,
		Config:   cfg,
		Registry: registry,
		Service:  svc,
		Logger:   logger,
	}
}
