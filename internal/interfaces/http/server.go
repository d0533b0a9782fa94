package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kFady/stereo-site-1/internal/config"
	"github.com/kFady/stereo-site-1/internal/infrastructure/monitoring/logging"
)

// Server wraps the standard HTTP server around the gin engine.
type Server struct {
	srv    *http.Server
	logger logging.Logger
}

// NewServer builds the listener from the server config and router config.
func NewServer(cfg config.ServerConfig, routerCfg RouterConfig) *Server {
	engine := NewRouter(routerCfg)
	return &Server{
		srv: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      engine,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		logger: routerCfg.Logger.Named("http.server"),
	}
}

// Start blocks serving requests until Stop is called or the listener fails.
func (s *Server) Start() error {
	s.logger.Info("http server listening", logging.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop drains in-flight requests within the context deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.srv.Shutdown(ctx)
}
