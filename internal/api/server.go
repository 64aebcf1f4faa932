package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"coursescout/internal/logger"
)

// Server wraps the http.Server to provide graceful shutdown.
type Server struct {
	httpServer *http.Server
	log        logger.Logger
	errCh      chan error
}

// NewServer creates and configures a new API server.
func NewServer(port string, handler http.Handler, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log:   log,
		errCh: make(chan error, 1),
	}
}

// Start runs the HTTP server in a new goroutine. A failure to listen is
// reported on Errors.
func (s *Server) Start() {
	s.log.Info("starting HTTP server", logger.String("addr", s.httpServer.Addr))
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("HTTP server failed", logger.Error(err))
			s.errCh <- err
		}
	}()
}

// Errors delivers at most one fatal server error.
func (s *Server) Errors() <-chan error { return s.errCh }

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
