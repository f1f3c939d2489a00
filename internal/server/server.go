// Package server provides the HTTP server and routing for holdfast.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/holdfast/holdfast/internal/di"
	alerthandlers "github.com/holdfast/holdfast/internal/modules/alerts/handlers"
	analysishandlers "github.com/holdfast/holdfast/internal/modules/analysis/handlers"
	bibliographyhandlers "github.com/holdfast/holdfast/internal/modules/bibliography/handlers"
	ledgerhandlers "github.com/holdfast/holdfast/internal/modules/ledger/handlers"
	valuationhandlers "github.com/holdfast/holdfast/internal/modules/valuation/handlers"
	watchlisthandlers "github.com/holdfast/holdfast/internal/modules/watchlist/handlers"
	"github.com/holdfast/holdfast/internal/session"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Port      int
	DevMode   bool
	Container *di.Container // DI container with all services
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	port           int
	container      *di.Container
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		port:           cfg.Port,
		container:      cfg.Container,
		systemHandlers: NewSystemHandlers(cfg.Container, cfg.Log),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	// No WriteTimeout: event streams hold the connection open. Regular API
	// routes are bounded by the Timeout middleware instead.
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging and request metrics
	s.router.Use(s.loggingMiddleware)

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5, "application/json"))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	c := s.container
	log := s.log

	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", c.Metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		// Event streams are long lived: no request timeout
		stream := NewEventsStreamHandler(c.EventBus, log)
		r.Get("/events/stream", stream.ServeHTTP)
		r.Get("/events/ws", NewEventsSocketHandler(c.EventBus, log).ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			r.Use(session.Middleware(c.Config.PriceTimeout))

			ledgerhandlers.NewHandler(c.LedgerService, c.Config.Catalog, log).RegisterRoutes(r)
			valuationhandlers.NewHandler(c.ValuationService, log).RegisterRoutes(r)
			alerthandlers.NewHandler(c.AlertService, log).RegisterRoutes(r)
			watchlisthandlers.NewHandler(c.WatchlistService, log).RegisterRoutes(r)
			bibliographyhandlers.NewHandler(c.BibliographyService, log).RegisterRoutes(r)
			analysishandlers.NewHandler(c.AnalysisService, log).RegisterRoutes(r)

			r.Route("/system", s.systemHandlers.RegisterRoutes)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests and records their latency
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		s.container.Metrics.ObserveHTTP(r.Method, route, ww.Status(), time.Since(start))

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", ww.Header().Get("X-Request-Id")).
			Msg("HTTP request")
	})
}
