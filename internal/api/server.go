package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"PhaseKing/internal/ledger"
	"PhaseKing/internal/logger"
)

// ProgressProvider exposes the state of the current run.
type ProgressProvider interface {
	Snapshot() Status
}

// LedgerReader exposes sealed runs.
type LedgerReader interface {
	Verdicts() ([]ledger.Verdict, error)
	Export(id uuid.UUID) ([]byte, error)
}

// Server is the coordinator's HTTP status server.
type Server struct {
	addr     string           // addr is the HTTP listen address
	progress ProgressProvider // progress reports the current run
	ledger   LedgerReader     // ledger serves past runs; nil when no data dir is set
	metrics  http.Handler     // metrics serves Prometheus collectors; nil to disable
	server   *http.Server     // server is the underlying HTTP server
}

// New creates a status server. ledger and metrics may be nil.
func New(addr string, progress ProgressProvider, ledger LedgerReader, metrics http.Handler) *Server {
	return &Server{
		addr:     addr,
		progress: progress,
		ledger:   ledger,
		metrics:  metrics,
	}
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /runs", s.handleRuns)
	mux.HandleFunc("GET /runs/{id}/export", s.handleExport)

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	return mux
}

// Start starts the HTTP server in a goroutine.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("status api started", "addr", s.addr)

		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// handleHealth handles GET /health requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// handleStatus handles GET /status requests.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.progress == nil {
		writeError(w, http.StatusServiceUnavailable, "status not available")
		return
	}

	writeJSON(w, http.StatusOK, s.progress.Snapshot())
}

// RunView is one sealed run as listed by GET /runs.
type RunView struct {
	RunID        string  `json:"runId"`
	Nodes        int     `json:"nodes"`
	Sessions     int     `json:"sessions"`
	Failures     int     `json:"failures"`
	SuccessRatio float64 `json:"successRatio,omitempty"`
	Confidence   float64 `json:"confidence,omitempty"`
	Bound        string  `json:"bound,omitempty"`
	Seed         string  `json:"seed"`
	Signed       bool    `json:"signed"`
	Valid        bool    `json:"valid"`
}

// handleRuns handles GET /runs requests.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		writeError(w, http.StatusServiceUnavailable, "ledger not enabled")
		return
	}

	verdicts, err := s.ledger.Verdicts()
	if err != nil {
		logger.Warn("list runs", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read ledger")
		return
	}

	runs := make([]RunView, len(verdicts))
	for i, v := range verdicts {
		signed := len(v.Signature) > 0

		runs[i] = RunView{
			RunID:        v.RunID.String(),
			Nodes:        v.NodeCount,
			Sessions:     v.Sessions,
			Failures:     v.Failures,
			SuccessRatio: v.SuccessRatio,
			Confidence:   v.Confidence,
			Bound:        v.Bound,
			Seed:         seedHex(v.Seed),
			Signed:       signed,
			Valid:        signed && v.Verify(),
		}
	}

	writeJSON(w, http.StatusOK, runs)
}

// handleExport handles GET /runs/{id}/export requests.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		writeError(w, http.StatusServiceUnavailable, "ledger not enabled")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	data, err := s.ledger.Export(id)
	if errors.Is(err, ledger.ErrNotSealed) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		logger.Warn("export run", "run", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read ledger")
		return
	}

	w.Header().Set("Content-Type", "application/zstd")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+id.String()+".pkl\"")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}
