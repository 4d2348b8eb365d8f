package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/jonathan/jobscout/internal/pipeline"
	"github.com/jonathan/jobscout/internal/types"
)

// maxRequestBytes bounds search request bodies.
const maxRequestBytes = 64 << 10

// SearchRequest is the body of POST /search. Either Query or all three form fields are required.
type SearchRequest struct {
	Query           string `json:"query,omitempty"`
	Location        string `json:"location,omitempty"`
	Role            string `json:"role,omitempty"`
	ExperienceLevel string `json:"experience_level,omitempty"`
	Strategy        string `json:"strategy,omitempty"`
}

func (req SearchRequest) hasForm() bool {
	return req.Location != "" || req.Role != "" || req.ExperienceLevel != ""
}

// search is a validated request ready to run.
type search struct {
	text     string
	query    *types.Query
	strategy pipeline.Strategy
}

func (req SearchRequest) resolve() (*search, error) {
	strategy, err := pipeline.ParseStrategy(req.Strategy)
	if err != nil {
		return nil, &ErrValidation{Field: "strategy", Message: err.Error()}
	}

	if text := strings.TrimSpace(req.Query); text != "" {
		return &search{text: text, strategy: strategy}, nil
	}
	if !req.hasForm() {
		return nil, &ErrValidation{Field: "query", Message: "either query or location, role and experience_level are required"}
	}
	for _, f := range [][2]string{{"location", req.Location}, {"role", req.Role}, {"experience_level", req.ExperienceLevel}} {
		if strings.TrimSpace(f[1]) == "" {
			return nil, &ErrValidation{Field: f[0], Message: "is required"}
		}
	}
	q, err := types.NewQuery(req.Role, req.ExperienceLevel, req.Location)
	if err != nil {
		return nil, &ErrValidation{Field: "experience_level", Message: err.Error()}
	}
	return &search{query: &q, strategy: strategy}, nil
}

func (s *Server) runSearch(ctx context.Context, sr *search, opts ...pipeline.CallOption) (*pipeline.Response, error) {
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}
	opts = append(opts, pipeline.WithStrategy(sr.strategy))
	if sr.query != nil {
		return s.exec.Run(ctx, *sr.query, opts...)
	}
	return s.exec.Execute(ctx, sr.text, opts...)
}

func decodeSearch(w http.ResponseWriter, r *http.Request) (SearchRequest, error) {
	var req SearchRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return req, &ErrValidation{Field: "body", Message: "request body is empty"}
		}
		return req, &ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	return req, nil
}

func (s *Server) respondSearch(w http.ResponseWriter, r *http.Request, req SearchRequest) {
	sr, err := req.resolve()
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	resp, err := s.runSearch(r.Context(), sr)
	if err != nil {
		s.log.Error("search failed", "error", err)
		s.errorResponse(w, HTTPStatus(err), errorMessage(err))
		return
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleSearchGet runs GET /search?q=... and returns {response, run_id, result}.
// The form fields may be given as query parameters instead of q.
func (s *Server) handleSearchGet(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	s.respondSearch(w, r, SearchRequest{
		Query:           v.Get("q"),
		Location:        v.Get("location"),
		Role:            v.Get("role"),
		ExperienceLevel: v.Get("experience_level"),
		Strategy:        v.Get("strategy"),
	})
}

// handleSearch runs POST /search
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSearch(w, r)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.respondSearch(w, r, req)
}

// handleSearchStream runs a search and streams its progress as SSE "step" events,
// ending with one "complete" or "error" event.
func (s *Server) handleSearchStream(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSearch(w, r)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	sr, err := req.resolve()
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp, err := s.runSearch(r.Context(), sr, pipeline.WithProgress(func(event pipeline.ProgressEvent) {
		if err := sse.WriteEvent("step", event); err != nil {
			s.log.Warn("failed to write SSE event", "step", event.Step, "error", err)
		}
	}))
	if err != nil {
		s.log.Error("streaming search failed", "error", err)
		sse.WriteError(HTTPStatus(err), errorMessage(err))
		return
	}
	sse.WriteComplete(resp)
}
