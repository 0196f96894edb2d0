// Package api provides the HTTP REST API and WebSocket server for
// devicelink.
//
// It exposes the device registry, manual sync, rule management and
// real-time engine events to the habit application frontend.
//
// The server follows the same lifecycle pattern as the other
// infrastructure components:
//
//	server := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple
// goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/pulsehabit/devicelink/internal/engine"
	"github.com/pulsehabit/devicelink/internal/infrastructure/config"
	"github.com/pulsehabit/devicelink/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  config.APIConfig
	Logger  *logging.Logger
	Engine  *engine.Engine
	Hub     *Hub // If set, the server uses this hub instead of creating its own
	Version string
}

// Server is the HTTP API server for devicelink.
type Server struct {
	cfg     config.APIConfig
	logger  *logging.Logger
	engine  *engine.Engine
	version string

	server *http.Server
	hub    *Hub
	cancel context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}

	s := &Server{
		cfg:     deps.Config,
		logger:  deps.Logger,
		engine:  deps.Engine,
		version: deps.Version,
		hub:     deps.Hub,
	}
	if s.hub == nil {
		s.hub = NewHub(deps.Logger)
	}
	return s, nil
}

// EventHub returns the WebSocket hub so the engine can broadcast events
// through it.
func (s *Server) EventHub() *Hub {
	return s.hub
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub and launches the HTTP listener in a
// background goroutine. The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	go s.hub.Run(ctx)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.buildRouter(),
		ReadTimeout:  time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	s.logger.Info("api server starting", "addr", addr)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server stopped", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the server, waiting for in-flight
// requests up to gracefulShutdownTimeout.
func (s *Server) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}
	s.logger.Info("api server stopped")
	return nil
}
