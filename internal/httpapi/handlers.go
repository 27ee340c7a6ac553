package httpapi

import (
	"fmt"
	"net/http"

	"github.com/nao1215/surveytriage/internal/lookup"
	"github.com/nao1215/surveytriage/internal/model"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type scrubRequest struct {
	// Texts may hold any JSON value. Strings are scrubbed, everything
	// else is echoed unchanged.
	Texts []any `json:"texts"`
}

type scrubResponse struct {
	Texts      []any          `json:"texts"`
	Redactions map[string]int `json:"redactions"`
}

func (s *Server) handleScrub(w http.ResponseWriter, r *http.Request) {
	var req scrubRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if len(req.Texts) > s.maxBatch {
		respondError(w, r, http.StatusBadRequest, "too_many_items", ErrTooManyItems)
		return
	}

	resp := scrubResponse{
		Texts:      make([]any, len(req.Texts)),
		Redactions: make(map[string]int),
	}
	for i, v := range req.Texts {
		text, ok := v.(string)
		if !ok {
			resp.Texts[i] = s.scrubber.Scrub(v)
			continue
		}
		red := s.scrubber.Redact(text)
		resp.Texts[i] = red.Text
		for kind, n := range red.Counts {
			resp.Redactions[string(kind)] += n
		}
		if s.metrics != nil && red.Changed() {
			s.metrics.Redacted(red.Counts)
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

type classifyResponse struct {
	model.URLRecord

	Rule string `json:"rule"`
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if !query.Has("path") {
		respondError(w, r, http.StatusBadRequest, "invalid_request",
			fmt.Errorf("%w: query parameter path is required", ErrInvalidInput))
		return
	}
	rec, rule := s.classifier.Explain(query.Get("path"))
	respondJSON(w, http.StatusOK, classifyResponse{URLRecord: rec, Rule: rule})
}

type lookupRequest struct {
	Paths []any `json:"paths"`
}

type lookupResponse struct {
	Records []model.URLRecord `json:"records"`
	Stats   lookup.Stats      `json:"stats"`
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if len(req.Paths) > s.maxBatch {
		respondError(w, r, http.StatusBadRequest, "too_many_items", ErrTooManyItems)
		return
	}

	paths, err := stringPaths(req.Paths)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_input", err)
		return
	}

	records, stats := s.resolver.Resolve(r.Context(), paths)
	respondJSON(w, http.StatusOK, lookupResponse{
		Records: lookup.Reassemble(paths, records),
		Stats:   stats,
	})
}

// stringPaths converts decoded JSON values to paths. null is an absent
// path; any other non-string value is rejected.
func stringPaths(values []any) ([]string, error) {
	paths := make([]string, len(values))
	for i, v := range values {
		switch p := v.(type) {
		case string:
			paths[i] = p
		case nil:
		default:
			return nil, fmt.Errorf("%w: paths[%d] is %T, expected a string", ErrInvalidInput, i, v)
		}
	}
	return paths, nil
}
