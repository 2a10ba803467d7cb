// Package server assembles the HTTP stack and runs it.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pageza/flavor-monk/backend/config"
	"github.com/pageza/flavor-monk/backend/internal/api"
	"github.com/pageza/flavor-monk/backend/internal/metrics"
	"github.com/pageza/flavor-monk/backend/internal/middleware"
)

const defaultShutdownTimeout = 10 * time.Second

// Server represents the HTTP server
type Server struct {
	router          *gin.Engine
	http            *http.Server
	logger          *zap.Logger
	shutdownTimeout time.Duration
}

// NewServer creates a new server instance. collector may be nil, in which
// case neither request metrics nor /metrics are served.
func NewServer(cfg config.ServerConfig, deps api.Dependencies, collector *metrics.Collector, logger *zap.Logger) *Server {
	router := gin.New()
	router.Use(middleware.ErrorHandler(logger))
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	if collector != nil {
		router.Use(collector.HTTPMiddleware())
		router.GET("/metrics", gin.WrapH(collector.Handler()))
	}

	api.RegisterRoutes(router, deps)

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	return &Server{
		router: router,
		http: &http.Server{
			Addr:              net.JoinHostPort(cfg.Host, cfg.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger:          logger.Named("server"),
		shutdownTimeout: timeout,
	}
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", ln.Addr().String()))
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
