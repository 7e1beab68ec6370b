package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Angellovem/biocredits-calc/internal/pipeline"
)

// StatusSource reports readiness and the most recent scoring run.
type StatusSource interface {
	CheckReadiness(ctx context.Context) error
	LastRun() (*pipeline.Result, time.Time, bool)
}

// Server exposes health, readiness, run status, and metrics HTTP endpoints.
type Server struct {
	httpServer *http.Server
	status     StatusSource
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /statusz, and
// /metrics routes.
func NewServer(addr string, status StatusSource, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		status: status,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /statusz", s.handleStatus)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.status.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// runStatus is the /statusz wire form of the latest completed run.
type runStatus struct {
	RunID         string    `json:"run_id"`
	CompletedAt   time.Time `json:"completed_at"`
	Plots         int       `json:"plots"`
	Observations  int       `json:"observations"`
	Unmatched     int       `json:"unmatched"`
	Groups        int       `json:"groups"`
	Scores        int       `json:"scores"`
	FeatureErrors int       `json:"feature_errors"`
	GroupErrors   int       `json:"group_errors"`
	Duration      string    `json:"duration"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	res, completedAt, ok := s.status.LastRun()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "no completed runs"})
		return
	}
	writeJSON(w, http.StatusOK, runStatus{
		RunID:         res.RunID,
		CompletedAt:   completedAt,
		Plots:         res.Plots,
		Observations:  res.Observations,
		Unmatched:     res.Unmatched,
		Groups:        len(res.Unions),
		Scores:        len(res.Scores),
		FeatureErrors: len(res.FeatureErrs),
		GroupErrors:   len(res.GroupErrs),
		Duration:      res.Duration.String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort health response
}
