package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/feral-file/castindex/internal/adapter"
	"github.com/feral-file/castindex/internal/api/middleware"
	"github.com/feral-file/castindex/internal/api/rest"
	"github.com/feral-file/castindex/internal/config"
	"github.com/feral-file/castindex/internal/logger"
	"github.com/feral-file/castindex/internal/query"
	"github.com/feral-file/castindex/internal/store"
)

// Config holds the server configuration
type Config struct {
	Debug        bool
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	Auth         config.AuthConfig
}

// Server wraps the HTTP server
type Server struct {
	config     Config
	store      store.Store
	executor   *query.Executor
	clock      adapter.Clock
	httpServer *http.Server
}

// New creates a new API server
func New(cfg Config, st store.Store, executor *query.Executor, clock adapter.Clock) *Server {
	return &Server{
		config:   cfg,
		store:    st,
		executor: executor,
		clock:    clock,
	}
}

// Router builds the gin engine with every middleware and route
func (s *Server) Router() (*gin.Engine, error) {
	if s.config.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	auth, err := middleware.NewAuthenticator(s.config.Auth)
	if err != nil {
		return nil, err
	}
	if !auth.Enabled() {
		logger.Warn("No API credentials configured, the query endpoint is open")
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.SetupCORS())

	rest.SetupRoutes(router, rest.NewHandler(s.store, s.executor, s.clock), auth)

	return router, nil
}

// Start initializes and starts the HTTP server
func (s *Server) Start() error {
	router, err := s.Router()
	if err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	logger.Info("Starting API server", zap.String("address", addr))

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down API server")

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}

	return nil
}
