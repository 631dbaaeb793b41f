package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/fluent-loop/feed-engine/internal/catalog"
	"github.com/fluent-loop/feed-engine/internal/config"
	"github.com/fluent-loop/feed-engine/internal/engine"
	"github.com/fluent-loop/feed-engine/internal/health"
)

// Server represents the HTTP API server
type Server struct {
	config        config.ServerConfig
	router        *chi.Mux
	engine        *engine.Engine
	catalogLoader *catalog.Loader
	healthChecks  *health.Registry
	batchSize     int
}

// NewServer creates a new API server
func NewServer(
	cfg config.ServerConfig,
	eng *engine.Engine,
	loader *catalog.Loader,
	checks *health.Registry,
	batchSize int,
) *Server {
	s := &Server{
		config:        cfg,
		engine:        eng,
		catalogLoader: loader,
		healthChecks:  checks,
		batchSize:     batchSize,
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", "X-Session-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health checks (outside versioned API - public)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(SessionMiddleware)

		r.Route("/challenges", func(r chi.Router) {
			r.Get("/", s.handleListChallenges)
			r.Get("/{id}", s.handleGetChallenge)
		})

		r.Route("/feed", func(r chi.Router) {
			r.Post("/queue", s.handleBuildQueue)
			r.Post("/submit", s.handleSubmit)
			r.Get("/compare", s.handleCompare)
			r.Get("/progress", s.handleProgress)
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
