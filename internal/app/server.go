package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Server wraps one HTTP listener; App runs two of them, one for the JSON
// control plane and one for the OCPP WebSocket gateway, each on its own
// port. It satisfies shutdown.ShutdownableServer.
type Server struct {
	http   *http.Server
	logger *zap.Logger
}

// NewServer builds the HTTP server for port, serving router, with the
// read/write timeouts from the process config.
func NewServer(port int, router *chi.Mux, readTimeout, writeTimeout time.Duration, logger *zap.Logger) *Server {
	return &Server{
		http: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      router,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
		logger: logger,
	}
}

// Start runs ListenAndServe in the foreground; it returns http.ErrServerClosed
// once Shutdown completes, which callers should treat as a clean exit.
func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.http.Addr))
	return s.http.ListenAndServe()
}

// Shutdown gracefully drains in-flight requests before closing the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
