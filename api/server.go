// Package api exposes the assistant over HTTP.
//
// Endpoints:
//
//	POST /api/query    →  answer a question within a session
//	GET  /api/courses  →  course analytics (count + titles)
//	GET  /health       →  liveness probe
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coursechat/coursechat/internal/rag"
)

const (
	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout bounds header reads to stop slow-client abuse.
	ReadHeaderTimeout = 10 * time.Second

	ReadTimeout = 30 * time.Second

	// WriteTimeout is generous: a query response waits on model calls.
	WriteTimeout = 120 * time.Second

	IdleTimeout = 120 * time.Second
)

// Server is the HTTP front end over the RAG system.
type Server struct {
	mux    *http.ServeMux
	system *rag.System
	logger *slog.Logger
}

// NewServer creates a server with all routes registered.
func NewServer(system *rag.System, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mux:    http.NewServeMux(),
		system: system,
		logger: logger,
	}

	s.mux.HandleFunc("POST /api/query", s.handleQuery)
	s.mux.HandleFunc("GET /api/courses", s.handleCourses)
	s.mux.HandleFunc("GET /health", s.handleHealth)

	return s
}

// Handler returns the full handler chain: recovery → logging → routes.
func (s *Server) Handler() http.Handler {
	return chain(s.mux, s.recoveryMiddleware, s.loggingMiddleware)
}

// Run starts the server and blocks until the context is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
