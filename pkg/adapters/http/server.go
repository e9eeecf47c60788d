// Package http exposes the flow controller surface as a JSON API:
// starting runs by flow name and driving them through
// pause/resume/abort/state.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/espalierhq/espalier/pkg/domain"
	"github.com/espalierhq/espalier/pkg/ports"
	"github.com/espalierhq/espalier/pkg/session"
)

// Server routes control requests to live run controllers.
type Server struct {
	runner ports.FlowRunner
	runs   *session.Manager
	logger *slog.Logger
}

// NewHandler creates the HTTP handler for the control API.
func NewHandler(runner ports.FlowRunner, runs *session.Manager, logger *slog.Logger) http.Handler {
	s := &Server{
		runner: runner,
		runs:   runs,
		logger: logger,
	}

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Post("/flows/{name}/runs", s.StartRun)
	r.Get("/runs/{id}", s.GetRun)
	r.Post("/runs/{id}/pause", s.PauseRun)
	r.Post("/runs/{id}/resume", s.ResumeRun)
	r.Post("/runs/{id}/abort", s.AbortRun)
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RunResponse is returned by StartRun and GetRun.
type RunResponse struct {
	RunID    string          `json:"run_id"`
	Snapshot domain.Snapshot `json:"snapshot"`
}

// StartRun handles POST /flows/{name}/runs. The body, if present, is
// the initial shared context.
func (s *Server) StartRun(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var initial map[string]any
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&initial); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			s.logger.Warn("StartRun: invalid request body", "error", err)
			return
		}
	}

	ctrl, err := s.runner.Run(r.Context(), name, initial)
	if err != nil {
		var undefined *domain.UndefinedFlowError
		if errors.As(err, &undefined) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		s.logger.Error("StartRun failed", "flow", name, "error", err)
		return
	}

	s.runs.Track(ctrl)
	s.writeRun(w, ctrl, http.StatusCreated)
}

// GetRun handles GET /runs/{id}.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.writeRun(w, ctrl, http.StatusOK)
}

// PauseRun handles POST /runs/{id}/pause.
func (s *Server) PauseRun(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := ctrl.Pause(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	s.writeRun(w, ctrl, http.StatusAccepted)
}

// ResumeRun handles POST /runs/{id}/resume. The body, if present, is
// merged into the shared context.
func (s *Server) ResumeRun(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var resumeData map[string]any
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&resumeData); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			s.logger.Warn("ResumeRun: invalid request body", "error", err)
			return
		}
	}

	if err := ctrl.Resume(resumeData); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	s.writeRun(w, ctrl, http.StatusAccepted)
}

// AbortRequest is the body of POST /runs/{id}/abort.
type AbortRequest struct {
	Reason string `json:"reason"`
}

// AbortRun handles POST /runs/{id}/abort.
func (s *Server) AbortRun(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var body AbortRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}
	if body.Reason == "" {
		body.Reason = "aborted via api"
	}

	if err := ctrl.Abort(body.Reason); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	s.writeRun(w, ctrl, http.StatusAccepted)
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (ports.Controller, bool) {
	id := chi.URLParam(r, "id")
	ctrl, err := s.runs.Get(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return nil, false
	}
	return ctrl, true
}

func (s *Server) writeRun(w http.ResponseWriter, ctrl ports.Controller, code int) {
	resp := RunResponse{
		RunID:    ctrl.ID(),
		Snapshot: ctrl.GetState(),
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}
