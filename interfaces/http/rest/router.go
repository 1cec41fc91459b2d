// Package rest wires the HTTP surface: routing, middleware and the REST
// handlers over the application services.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/chyax98/recall/application/ops"
	"github.com/chyax98/recall/application/ports"
	"github.com/chyax98/recall/infrastructure/config"
	"github.com/chyax98/recall/infrastructure/observability"
	"github.com/chyax98/recall/interfaces/http/rest/handlers"
	"github.com/chyax98/recall/interfaces/http/rest/middleware"
	"github.com/chyax98/recall/pkg/errors"
)

// Router creates and configures the HTTP router
type Router struct {
	config        *config.Config
	services      ops.Services
	registry      *ops.Registry
	collector     *observability.Collector
	info          ports.StoreInfo
	targetVersion int
	logger        *zap.Logger
	errorHandler  *errors.ErrorHandler
}

// NewRouter creates a new router instance
func NewRouter(
	cfg *config.Config,
	services ops.Services,
	registry *ops.Registry,
	collector *observability.Collector,
	info ports.StoreInfo,
	targetVersion int,
	logger *zap.Logger,
	errorHandler *errors.ErrorHandler,
) *Router {
	return &Router{
		config:        cfg,
		services:      services,
		registry:      registry,
		collector:     collector,
		info:          info,
		targetVersion: targetVersion,
		logger:        logger,
		errorHandler:  errorHandler,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	if rt.config.EnableMetrics {
		router.Use(middleware.Metrics(rt.collector))
	}
	router.Use(middleware.CircuitBreaker(middleware.DefaultCircuitBreakerConfig("store"), rt.logger))

	if rt.config.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Probes and scrape endpoint
	healthHandler := handlers.NewHealthHandler(rt.info, rt.targetVersion, rt.logger)
	router.Get("/health", healthHandler.Health)
	router.Get("/ready", healthHandler.Ready)
	if rt.config.EnableMetrics {
		router.Method(http.MethodGet, "/metrics", rt.collector.Handler())
	}

	// API v1 routes
	router.Route("/api/v1", func(r chi.Router) {
		memoryHandler := handlers.NewMemoryHandler(rt.services.Memories, rt.logger, rt.errorHandler)
		graphHandler := handlers.NewGraphHandler(rt.services.Graph, rt.logger, rt.errorHandler)

		r.Route("/memories", func(r chi.Router) {
			r.Post("/", memoryHandler.Store)
			r.Get("/", memoryHandler.List)
			r.Delete("/", memoryHandler.DeleteByTag)
			r.Get("/{hash}", memoryHandler.Get)
			r.Put("/{hash}", memoryHandler.Update)
			r.Delete("/{hash}", memoryHandler.Delete)
			r.Get("/{hash}/related", graphHandler.Related)
		})

		r.Post("/relationships", graphHandler.Link)

		r.Get("/search", handlers.NewSearchHandler(rt.services.Memories, rt.logger, rt.errorHandler).Search)
		r.Get("/stats", handlers.NewStatsHandler(rt.services.Memories, rt.logger, rt.errorHandler).Stats)

		snapshotHandler := handlers.NewSnapshotHandler(rt.services.Snapshots, rt.collector, rt.logger, rt.errorHandler)
		r.Route("/snapshot", func(r chi.Router) {
			r.Get("/", snapshotHandler.Export)
			r.Post("/import", snapshotHandler.Import)
		})

		opsHandler := handlers.NewOpsHandler(rt.registry, rt.collector, rt.logger, rt.errorHandler)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/", opsHandler.List)
			r.Post("/{name}", opsHandler.Dispatch)
		})
	})

	return router
}
