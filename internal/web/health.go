// Package web exposes the liveness endpoint used by hosting platforms to
// keep the bot process alive.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Server serves GET /health.
type Server struct {
	logger   *slog.Logger
	instance string
	started  time.Time
	mux      *http.ServeMux
}

// NewServer creates a Server with a fresh per-process instance ID, so
// restarts are visible to whatever is probing the endpoint.
func NewServer(logger *slog.Logger) *Server {
	s := &Server{
		logger:   logger,
		instance: uuid.New().String(),
		started:  time.Now(),
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":   "ok",
		"instance": s.instance,
		"uptime":   time.Since(s.started).Round(time.Second).String(),
	})
}

// Handler returns the HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start listens on addr until ctx is canceled. Serve errors other than
// graceful shutdown are logged, not fatal; the bot works without the
// endpoint.
func (s *Server) Start(ctx context.Context, addr string) {
	srv := &http.Server{Addr: addr, Handler: s.mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		s.logger.Info("Liveness endpoint listening.", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Liveness endpoint failed.", "error", err)
		}
	}()
}
