// Package server exposes the task executor over HTTP and WebSocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ziadkadry99/shopagent/internal/cache"
	"github.com/ziadkadry99/shopagent/internal/dashboard"
	"github.com/ziadkadry99/shopagent/internal/logger"
	"github.com/ziadkadry99/shopagent/internal/metrics"
	"github.com/ziadkadry99/shopagent/internal/task"
	"github.com/ziadkadry99/shopagent/internal/vectordb"
)

// requestTimeout bounds the plain HTTP routes. Streams are not bounded.
const requestTimeout = 120 * time.Second

// Config holds server configuration.
type Config struct {
	Host     string
	Port     int
	AllowAll bool // allow all CORS origins (dev mode)

	Provider        string
	Model           string
	EnableRAG       bool
	EnableWebSearch bool
	EnableCaching   bool
}

// Deps are the collaborators the server reports on and drives.
type Deps struct {
	Executor *task.Executor
	Cache    cache.Store       // optional
	Index    vectordb.Store    // optional
	Threads  dashboard.Threads // optional; enables conversation reset
	Logger   logger.Logger
}

// Server is the shopagent HTTP server.
type Server struct {
	cfg        Config
	deps       Deps
	log        logger.Logger
	router     chi.Router
	prometheus http.Handler
	httpServer *http.Server
}

// New creates a server. Executor is required.
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Executor == nil {
		return nil, errors.New("server: executor is required")
	}
	log := deps.Logger
	if log == nil {
		log = logger.Default()
	}
	s := &Server{cfg: cfg, deps: deps, log: log.With("component", "server")}

	prom, err := metrics.Handler(deps.Executor.Metrics(), s.cacheEntries)
	if err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}
	s.prometheus = prom
	s.router = s.buildRouter()
	return s, nil
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/v1/tasks/stream", s.handleStream)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		r.Get("/health/detailed", s.handleDetailedHealth)
		r.Get("/metrics", s.handleMetrics)
		r.Handle("/metrics/prometheus", s.prometheus)

		r.Post("/v1/tasks", s.handleSubmit)
		r.Post("/v1/tasks/{id}/cancel", s.handleCancel)

		dashboard.New(s.deps.Threads, s.log).RegisterRoutes(r)
	})

	return r
}

// Router returns the chi router.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured address.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.log.Info("shopagent server listening", "addr", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Server) cacheEntries() int {
	if s.deps.Cache == nil {
		return 0
	}
	return s.deps.Cache.Len(context.Background())
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
