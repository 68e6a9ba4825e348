// Package api provides the HTTP API server and handlers for Shelfwise.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/shelfwise/shelfwise-server/internal/metrics"
	"github.com/shelfwise/shelfwise-server/internal/ratelimit"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// Options configures the optional parts of the server.
type Options struct {
	Version        string
	AllowedOrigins []string // defaults to any origin
	// AuthRateLimiter throttles register, login and refresh per client IP.
	// Nil disables throttling.
	AuthRateLimiter *ratelimit.KeyedRateLimiter
	Metrics         metrics.Recorder
	// MetricsHandler is mounted at /metrics when non-nil.
	MetricsHandler http.Handler
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store           store.Store
	services        *Services
	router          *chi.Mux
	api             huma.API
	logger          *slog.Logger
	metrics         metrics.Recorder
	authRateLimiter *ratelimit.KeyedRateLimiter
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(st store.Store, services *Services, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		store:           st,
		services:        services,
		router:          chi.NewRouter(),
		logger:          logger,
		metrics:         opts.Metrics,
		authRateLimiter: opts.AuthRateLimiter,
	}

	s.setupMiddleware(opts.AllowedOrigins)

	humaConfig := huma.DefaultConfig("Shelfwise API", opts.Version)
	humaConfig.Info.Description = "Book catalog with user reviews and ratings."
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler(logger)

	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerBookRoutes()
	s.registerReviewRoutes()

	if opts.MetricsHandler != nil {
		s.router.Handle("/metrics", opts.MetricsHandler)
	}

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mainly for OpenAPI generation.
func (s *Server) API() huma.API {
	return s.api
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware(allowedOrigins []string) {
	s.router.Use(middleware.RealIP)
	s.router.Use(requestContext(s.logger))
	s.router.Use(accessLog(s.logger, s.metrics))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader, "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	s.router.Use(authMiddleware(s.services.Auth))
}

// bearerSecurity marks an operation as requiring an access token in the OpenAPI document.
var bearerSecurity = []map[string][]string{{"bearer": {}}}
