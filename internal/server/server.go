// Package server assembles the HTTP surface: authorization routes, the
// dashboard API behind session middleware, and lifecycle management.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/stridedash/stridedash/internal/auth"
	authhandlers "github.com/stridedash/stridedash/internal/auth/handlers"
	"github.com/stridedash/stridedash/internal/auth/middleware"
	"github.com/stridedash/stridedash/internal/config"
	"github.com/stridedash/stridedash/internal/logger"
	"github.com/stridedash/stridedash/internal/server/handler"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	// shutdownTimeout is the maximum time to wait for server shutdown
	shutdownTimeout = 5 * time.Second
)

// Server is the dashboard HTTP server.
type Server struct {
	cfg        *config.ServerConfig
	httpServer *http.Server
}

// NewServer wires the route tree: /auth/* handlers, /api/* behind the
// session middleware, everything behind CORS.
func NewServer(cfg *config.Config, authHandler *authhandlers.Handler, apiHandler *handler.Handler, sessions *auth.Registry) *Server {
	mux := http.NewServeMux()
	authHandler.RegisterRoutes(mux)
	apiHandler.RegisterRoutes(mux, middleware.RequireSession(sessions, cfg.Server.SessionCookie))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	return &Server{
		cfg: &cfg.Server,
		httpServer: &http.Server{
			Addr:    addr,
			Handler: middleware.CORSWithOrigins(cfg.Server.AllowOrigins)(mux),
		},
	}
}

// Start begins serving and returns once the listener is handed off.
func (s *Server) Start() {
	go func() {
		logger.Info("Starting server", zap.String("address", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()
}

// Stop drains in-flight requests and shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	logger.Info("Shutting down server", zap.Duration("timeout", shutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}

// Run binds the server to the fx application lifecycle.
func Run(lc fx.Lifecycle, srv *Server) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			srv.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Stop(ctx)
		},
	})
}

// Module provides the HTTP server dependencies
var Module = fx.Module("server",
	fx.Provide(
		NewServer,
	),
	fx.Invoke(Run),
)
