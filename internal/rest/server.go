package rest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/KilimcininKorOglu/mvccview/internal/backend"
	"github.com/KilimcininKorOglu/mvccview/internal/config"
	"github.com/KilimcininKorOglu/mvccview/internal/logging"
	"github.com/KilimcininKorOglu/mvccview/internal/metrics"
)

// ServerConfig holds REST server configuration.
type ServerConfig struct {
	Address      string
	Version      string
	Username     string
	PasswordHash string
	MetricsPath  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	RateLimit    int
	CORSOrigins  []string
}

// DefaultServerConfig returns default configuration.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Address:      "127.0.0.1:8090",
		Version:      "dev",
		MetricsPath:  "/metrics",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		RateLimit:    100,
	}
}

// ServerConfigFromConfig derives the server configuration from the
// dashboard configuration. An empty MetricsPath disables the endpoint.
func ServerConfigFromConfig(cfg *config.Config, version string) *ServerConfig {
	sc := DefaultServerConfig()
	sc.Address = cfg.Dashboard.Address
	sc.Version = version
	sc.Username = cfg.Dashboard.Username
	sc.PasswordHash = cfg.Dashboard.PasswordHash
	sc.CORSOrigins = cfg.Dashboard.CORSOrigins
	sc.MetricsPath = ""
	if cfg.Metrics.Enabled {
		sc.MetricsPath = cfg.Metrics.Path
	}
	return sc
}

// Server is the dashboard REST API server.
type Server struct {
	config   *ServerConfig
	backend  backend.Backend
	logger   logging.Logger
	auth     *Authenticator
	handlers *Handlers
	router   *Router

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// NewServer creates a new REST server.
func NewServer(cfg *ServerConfig, be backend.Backend, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		config:   cfg,
		backend:  be,
		logger:   logger,
		auth:     NewAuthenticator(cfg.Username, cfg.PasswordHash),
		handlers: NewHandlers(be, cfg.Version),
		router:   NewRouter(),
	}

	s.setupRoutes()
	s.setupMiddleware()

	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/api/v1/health", s.handlers.HandleHealth)

	s.router.GET("/api/v1/snapshot", s.handlers.HandleSnapshot)
	s.router.GET("/api/v1/dashboard", s.handlers.HandleDashboard)
	s.router.GET("/api/v1/rows/{id}/chain", s.handlers.HandleShowChain)
	s.router.GET("/api/v1/chain", s.handlers.HandleChain)
	s.router.DELETE("/api/v1/chain", s.handlers.HandleClearFocus)
	s.router.GET("/api/v1/compare", s.handlers.HandleCompare)
	s.router.GET("/api/v1/notifications", s.handlers.HandleNotifications)
	s.router.DELETE("/api/v1/notifications/{id}", s.handlers.HandleDismissNotification)

	s.router.POST("/api/v1/transactions", s.handlers.HandleBegin)
	s.router.POST("/api/v1/transactions/{id}/commit", s.handlers.HandleCommit)
	s.router.POST("/api/v1/transactions/{id}/rollback", s.handlers.HandleRollback)

	s.router.POST("/api/v1/rows", s.handlers.HandleInsert)
	s.router.PUT("/api/v1/rows/{id}", s.handlers.HandleUpdate)
	s.router.DELETE("/api/v1/rows/{id}", s.handlers.HandleDelete)
	s.router.POST("/api/v1/rows/{id}/read", s.handlers.HandleRead)

	s.router.POST("/api/v1/reset", s.handlers.HandleReset)

	if s.config.MetricsPath != "" {
		s.router.GET(s.config.MetricsPath, metrics.Handler().ServeHTTP)
	}
}

func (s *Server) setupMiddleware() {
	s.router.Use(RecoveryMiddleware(s.logger))
	s.router.Use(RequestIDMiddleware())
	s.router.Use(LoggingMiddleware(s.logger))
	s.router.Use(ConnectionTrackingMiddleware(s.handlers))

	if len(s.config.CORSOrigins) > 0 {
		s.router.Use(CORSMiddleware(s.config.CORSOrigins))
	}

	if s.config.RateLimit > 0 {
		s.router.Use(RateLimitMiddleware(s.config.RateLimit))
	}

	exclude := []string{"/api/v1/health"}
	if s.config.MetricsPath != "" {
		exclude = append(exclude, s.config.MetricsPath)
	}
	s.router.Use(AuthMiddleware(s.auth, exclude))
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetCredentials replaces the Basic auth credentials at runtime.
func (s *Server) SetCredentials(username, passwordHash string) {
	s.auth.SetCredentials(username, passwordHash)
}

// Start starts the REST server.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	s.mu.Lock()
	s.server, s.listener = srv, listener
	s.mu.Unlock()

	s.logger.Info("REST server started", "address", listener.Addr().String())

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("REST server failed", "error", err)
		}
	}()

	return nil
}

// Addr returns the listening address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop gracefully stops the REST server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()

	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			return err
		}
	}

	s.logger.Info("REST server stopped")
	return nil
}
