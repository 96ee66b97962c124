// Package server provides read-only HTTP API over stored webpage records
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/yitzyh/shtell/pkg/config"
	"github.com/yitzyh/shtell/pkg/store"
)

const (
	maxPageSize     = 1000
	categoriesTTL   = time.Hour
	shutdownTimeout = 10 * time.Second
)

// Server represents HTTP server instance
type Server struct {
	store   store.Store
	config  config.ServerConfig
	metrics http.Handler
	version string
	debug   bool
	now     func() time.Time

	lock       sync.Mutex
	httpServer *http.Server
	router     *routegroup.Bundle

	cacheLock  sync.Mutex
	categories *categoriesCache
}

type categoriesCache struct {
	resp    categoriesResponse
	expires time.Time
}

// Option configures Server
type Option func(*Server)

// WithMetrics mounts metrics handler on /metrics
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// New initializes a new server instance
func New(cfg config.ServerConfig, st store.Store, version string, debug bool, opts ...Option) *Server {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	s := &Server{
		store:   st,
		config:  cfg,
		version: version,
		debug:   debug,
		now:     time.Now,
		router:  routegroup.New(http.NewServeMux()),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Run starts the HTTP server and handles graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	lgr.Printf("[INFO] starting server on %s", s.config.Listen)

	s.lock.Lock()
	s.httpServer = &http.Server{
		Addr:              s.config.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: s.config.Timeout,
		ReadTimeout:       s.config.Timeout,
		WriteTimeout:      s.config.Timeout,
	}
	httpServer := s.httpServer
	s.lock.Unlock()

	go func() {
		<-ctx.Done()
		lgr.Printf("[INFO] shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			lgr.Printf("[WARN] server shutdown error: %v", err)
		}
	}()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

// Handler returns the router, used by tests and embedding
func (s *Server) Handler() http.Handler { return s.router }

// setupMiddleware configures standard middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(rest.AppInfo("shtell", "yitzyh", s.version))
	s.router.Use(rest.Ping)

	if s.debug {
		s.router.Use(logger.New(logger.Log(lgr.Default()), logger.Prefix("[DEBUG]")).Handler)
	}

	s.router.Use(rest.Recoverer(lgr.Default()))
	s.router.Use(rest.Throttle(100))
	s.router.Use(rest.SizeLimit(64 * 1024))
}

// setupRoutes configures application routes
func (s *Server) setupRoutes() {
	s.router.Mount("/api/v1").Route(func(r *routegroup.Bundle) {
		r.HandleFunc("GET /status", s.statusHandler)
		r.HandleFunc("GET /webpages", s.listHandler)
		r.HandleFunc("GET /webpages/{id}", s.getHandler)
		r.HandleFunc("GET /categories", s.categoriesHandler)
	})
	s.router.HandleFunc("GET /rss/{category}", s.rssHandler)

	if s.metrics != nil {
		s.router.Handle("GET /metrics", s.metrics)
	}
}

// renderJSON sends JSON response
func renderJSON(w http.ResponseWriter, _ *http.Request, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			lgr.Printf("[ERROR] can't encode response to JSON: %v", err)
		}
	}
}

// renderError sends error response as JSON
func renderError(w http.ResponseWriter, r *http.Request, err error, code int) {
	errMsg := "unknown error"
	if err != nil {
		errMsg = err.Error()
	}
	renderJSON(w, r, code, rest.JSON{"error": errMsg})
}
