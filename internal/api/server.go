package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/opensource-logistics/stratum/internal/archive"
	"github.com/opensource-logistics/stratum/internal/domain"
	"github.com/opensource-logistics/stratum/internal/review"
	"github.com/opensource-logistics/stratum/internal/usage"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server. An empty authSecret leaves the API
// open, which is the Standard tier default.
func NewServer(cfg domain.ServerConfig, repo domain.Repository, cache domain.Cache, bus domain.EventBus, engine *review.Engine, tracker *usage.Service, archiver *archive.Archiver, version string, tier domain.Tier, authSecret string) *Server {
	handler := NewHandler(repo, cache, bus, engine, tracker, archiver, version, tier)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	// Health and instance endpoints (no tenant required)
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)
	router.Get("/v1/info", handler.Info)

	// API routes (tenant required)
	router.Route("/v1", func(r chi.Router) {
		r.Use(TenantMiddleware)
		r.Use(AuthMiddleware(authSecret))

		// Inventory snapshot
		r.Post("/items", handler.CreateItem)
		r.Get("/items", handler.ListItems)
		r.Post("/items/import", handler.ImportItems)
		r.Get("/items/{id}", handler.GetItem)
		r.Delete("/items/{id}", handler.DeleteItem)

		// Pipeline configuration
		r.Get("/config", handler.GetConfig)
		r.Put("/config", handler.UpdateConfig)
		r.Get("/config/defaults", handler.GetConfigDefaults)

		// Ranking runs. The static /latest route must stay ahead of /{id}.
		r.Post("/rankings", handler.CreateRanking)
		r.Get("/rankings", handler.ListRankings)
		r.Get("/rankings/latest", handler.LatestRanking)
		r.Get("/rankings/{id}", handler.GetRanking)
		r.Post("/rankings/{id}/reclassify", handler.ReclassifyRanking)
		r.Get("/rankings/{id}/export", handler.ExportRanking)

		// Descriptive statistics
		r.Get("/stats", handler.GetStats)
		r.Get("/correlations", handler.GetCorrelations)

		// Procurement review
		r.Get("/flags", handler.ListFlags)
		r.Get("/review/rules", handler.ListReviewRules)
		r.Post("/review/rules", handler.CreateReviewRule)

		// Usage tracking
		r.Post("/movements", handler.RecordMovement)
		r.Get("/usage/{id}", handler.GetUsage)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
