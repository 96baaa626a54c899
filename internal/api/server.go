// Package api exposes one dataset session over HTTP. Every response body is a
// JSON object with "status" set to "success" or "error"; errors also carry
// the error kind and message.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/paveg/datafilter/internal/config"
	"github.com/paveg/datafilter/internal/monitoring"
	"github.com/paveg/datafilter/internal/session"
	"github.com/paveg/datafilter/internal/version"
)

// Timeouts applied by Server.
const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
	maxRequestBody    = 10 << 20
)

// Server serves the dataset API, the monitoring endpoints and a health check.
type Server struct {
	cfg       config.Config
	session   *session.Session
	collector *monitoring.MetricsCollector
	logger    *slog.Logger
	mux       *http.ServeMux
	server    *http.Server
}

// NewServer creates a server over sess. A nil collector serves empty
// metrics.
func NewServer(cfg config.Config, sess *session.Session, collector *monitoring.MetricsCollector, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if collector == nil {
		collector = monitoring.NewMetricsCollector(false)
	}

	s := &Server{
		cfg:       cfg,
		session:   sess,
		collector: collector,
		logger:    logger.With(slog.String("component", "api")),
		mux:       http.NewServeMux(),
	}
	s.routes()
	s.server = &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/files", s.handleFiles)
	s.mux.HandleFunc("POST /api/preview", s.handlePreview)
	s.mux.HandleFunc("POST /api/load", s.handleLoad)
	s.mux.HandleFunc("POST /api/save", s.handleSave)
	s.mux.HandleFunc("GET /api/data", s.handleData)
	s.mux.HandleFunc("POST /api/data", s.handleReplace)
	s.mux.HandleFunc("POST /api/filter", s.handleFilter)
	s.mux.HandleFunc("POST /api/filter/stat", s.handleFilterByStat)
	s.mux.HandleFunc("POST /api/sort", s.handleSort)
	s.mux.HandleFunc("GET /api/stats", s.handleStats)
	s.mux.HandleFunc("GET /api/fields", s.handleFields)
	s.mux.HandleFunc("POST /api/fields/add", s.handleAddField)
	s.mux.HandleFunc("POST /api/fields/remove", s.handleRemoveField)
	s.mux.HandleFunc("POST /api/fields/rename", s.handleRenameField)
	s.mux.HandleFunc("POST /api/fields/update", s.handleUpdateField)
	s.mux.HandleFunc("POST /api/undo", s.handleUndo)
	s.mux.HandleFunc("POST /api/redo", s.handleRedo)
	s.mux.HandleFunc("GET /api/history", s.handleHistory)
	s.mux.HandleFunc("GET /api/version", s.handleVersion)
	monitoring.NewHandlers(s.collector).Register(s.mux)
}

// Handler returns the server's handler with request logging and panic
// recovery applied.
func (s *Server) Handler() http.Handler {
	return s.recoverer(s.requestLogger(s.mux))
}

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.server.Addr }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", slog.String("addr", s.server.Addr), slog.String("session", s.session.ID()))
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("server shutting down")
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		return nil
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		w.Header().Set("Server", version.UserAgent())
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				s.logger.Error("handler panic", slog.String("path", r.URL.Path), slog.Any("panic", v))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
