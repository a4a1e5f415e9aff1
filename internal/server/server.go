// Package server assembles the HTTP router and the gateway's middleware
// stack.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/nixxxo/local-llm/internal/storage"
)

// Server wraps the chi router and the underlying http.Server.
type Server struct {
	Router *chi.Mux
	Port   int

	logger *slog.Logger
	http   *http.Server
	audit  *AuditWriter
}

// New builds the router with the standard middleware stack: request IDs,
// structured request logging, the request audit sink, rate-limit headers, a
// request deadline, panic recovery, and OpenTelemetry HTTP instrumentation.
// logStore may be nil to disable the audit sink.
func New(port int, logger *slog.Logger, logStore storage.RequestLogStore) *Server {
	r := chi.NewRouter()
	audit := NewAuditWriter(logStore, logger)

	// Apply middleware in order
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(AuditMiddleware(audit))
	r.Use(RateLimitHeaderMiddleware)
	r.Use(TimeoutMiddleware(30 * time.Second))
	r.Use(Recoverer(logger))

	// Wrap with OpenTelemetry HTTP instrumentation
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "llm-gateway")
	})

	return &Server{
		Router: r,
		Port:   port,
		logger: logger,
		audit:  audit,
	}
}

// Start begins serving and blocks until the server stops. A clean shutdown
// via Shutdown returns nil.
func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.Port),
		Handler: s.Router,
	}
	s.logger.Info("starting server", slog.Int("port", s.Port))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then flushes the audit queue. The
// order matters: no new records are produced once the listener is down.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.http != nil {
		err = s.http.Shutdown(ctx)
	}
	if cerr := s.audit.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
