// Package server provides the HTTP boundary for the inkwell API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/inkwell-md/inkwell/internal/adapter"
	"github.com/inkwell-md/inkwell/internal/content"
	"github.com/inkwell-md/inkwell/internal/docstore"
	"github.com/inkwell-md/inkwell/internal/editsession"
	"github.com/inkwell-md/inkwell/internal/logging"
	"github.com/inkwell-md/inkwell/internal/preview"
	"github.com/inkwell-md/inkwell/pkg/types"
)

// Config holds server configuration.
type Config struct {
	Host         string
	Port         int
	EnableCORS   bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Host:         "127.0.0.1",
		Port:         4711,
		EnableCORS:   true,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // no write timeout: SSE and WebSocket streams stay open
	}
}

// Server is the HTTP server. It owns no session state of its own;
// everything lives in the manager, store and registry it is built
// with.
type Server struct {
	config  *Config
	router  *chi.Mux
	httpSrv *http.Server
	log     zerolog.Logger

	store    *docstore.Store
	manager  *editsession.Manager
	registry *adapter.Registry
	engine   preview.Engine

	// mu guards appConfig and validator, which PATCH /api/config
	// replaces at runtime.
	mu        sync.RWMutex
	appConfig *types.Config
	validator *content.Validator
}

// New creates a new Server instance.
func New(cfg *Config, appConfig *types.Config, store *docstore.Store, manager *editsession.Manager, registry *adapter.Registry, validator *content.Validator, engine preview.Engine) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	s := &Server{
		config:    cfg,
		router:    chi.NewRouter(),
		log:       logging.Component("server"),
		store:     store,
		manager:   manager,
		registry:  registry,
		engine:    engine,
		appConfig: appConfig,
		validator: validator,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures middleware for the server.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)

	if s.config.EnableCORS {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
}

// devGate refuses every request unless development mode is enabled.
// The gate lives here at the boundary only; no core package ever
// consults the flag.
func (s *Server) devGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		dev := s.appConfig.Dev
		s.mu.RUnlock()

		if !dev {
			writeError(w, http.StatusForbidden, "development mode disabled")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.log.Info().Str("addr", s.httpSrv.Addr).Msg("server listening")
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully shuts down the server and closes every open
// session.
func (s *Server) Shutdown(ctx context.Context) error {
	s.manager.CloseAll()
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// Router returns the chi router, for tests and for embedding.
func (s *Server) Router() *chi.Mux {
	return s.router
}
