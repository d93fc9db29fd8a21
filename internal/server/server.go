// Package server provides the HTTP server for the orchestrator: a chi
// router exposing the chat endpoint (POST /api/chat, the Event Bus
// streamed as Server-Sent Events) plus the auxiliary session and file
// routes spec.md §6 reserves for the browser client.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/opencode-ai/opencode/internal/devserver"
	"github.com/opencode-ai/opencode/internal/provider"
	"github.com/opencode-ai/opencode/internal/session"
	"github.com/opencode-ai/opencode/pkg/types"
)

// Config holds server configuration.
type Config struct {
	Port             int
	WorkspaceRoot    string
	EnableCORS       bool
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	DisableLint      bool
	DisableTypeCheck bool
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:         8080,
		EnableCORS:   true,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // SSE responses never time out on write
	}
}

// Server is the HTTP server.
type Server struct {
	config     *Config
	router     *chi.Mux
	httpSrv    *http.Server
	appConfig  *types.Config
	sessions   *session.Service
	providers  *provider.Registry
	devServers *devserver.Manager
}

// New creates a new Server instance.
func New(cfg *Config, appConfig *types.Config, sessions *session.Service, providers *provider.Registry) *Server {
	s := &Server{
		config:     cfg,
		router:     chi.NewRouter(),
		appConfig:  appConfig,
		sessions:   sessions,
		providers:  providers,
		devServers: devserver.NewManager(),
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RealIP)

	if s.config.EnableCORS {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
