package server

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/jonathan/jobscout/internal/pipeline/steps"
	"github.com/jonathan/jobscout/internal/store"
)

// RunDetail is a run with the steps it recorded
type RunDetail struct {
	*store.Run
	CompletedSteps []string `json:"completed_steps"`
	PendingSteps   []string `json:"pending_steps"`
}

func (s *Server) runID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid run ID format")
		return uuid.Nil, false
	}
	return id, true
}

// handleListRuns lists runs, filtered by status, outcome and location query parameters
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	filters := store.RunFilters{
		Status:   v.Get("status"),
		Outcome:  v.Get("outcome"),
		Location: v.Get("location"),
	}
	for name, dst := range map[string]*int{"limit": &filters.Limit, "offset": &filters.Offset} {
		if raw := v.Get(name); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				s.errorResponse(w, http.StatusBadRequest, "Invalid "+name)
				return
			}
			*dst = n
		}
	}

	runs, err := s.store.ListRuns(r.Context(), filters)
	if err != nil {
		s.log.Error("failed to list runs", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

// handleGetRun returns a run and which of its steps were recorded
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, ok := s.runID(w, r)
	if !ok {
		return
	}

	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), errorMessage(err))
		return
	}
	done, pending, err := steps.Progress(r.Context(), s.store, id)
	if err != nil {
		s.log.Error("failed to read run progress", "run_id", id, "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if done == nil {
		done = []string{}
	}
	if pending == nil {
		pending = []string{}
	}
	s.jsonResponse(w, http.StatusOK, RunDetail{Run: run, CompletedSteps: done, PendingSteps: pending})
}

// handleDeleteRun deletes a run and its artifacts
func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	id, ok := s.runID(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteRun(r.Context(), id); err != nil {
		s.errorResponse(w, HTTPStatus(err), errorMessage(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRunArtifacts lists the artifacts of a run in step order
func (s *Server) handleRunArtifacts(w http.ResponseWriter, r *http.Request) {
	id, ok := s.runID(w, r)
	if !ok {
		return
	}
	if _, err := s.store.GetRun(r.Context(), id); err != nil {
		s.errorResponse(w, HTTPStatus(err), errorMessage(err))
		return
	}
	artifacts, err := s.store.ListArtifacts(r.Context(), id)
	if err != nil {
		s.log.Error("failed to list artifacts", "run_id", id, "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"run_id": id, "artifacts": artifacts})
}

// handleRunArtifact returns the artifact of one step
func (s *Server) handleRunArtifact(w http.ResponseWriter, r *http.Request) {
	id, ok := s.runID(w, r)
	if !ok {
		return
	}
	step := r.PathValue("step")
	if _, known := steps.StepRegistry[step]; !known {
		s.errorResponse(w, http.StatusBadRequest, "Unknown step: "+step)
		return
	}
	a, err := s.store.GetArtifact(r.Context(), id, step)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), errorMessage(err))
		return
	}
	s.jsonResponse(w, http.StatusOK, a)
}
