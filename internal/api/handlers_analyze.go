package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dgallion1/opmark/internal/enhance"
	"github.com/dgallion1/opmark/internal/highlight"
)

// handleAnalyzeText runs synchronous term analysis over free text: the
// model proposes term names, the catalog validates them, and the
// resolver recomputes every span locally before projection.
func (s *Server) handleAnalyzeText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	result, err := s.analyzer.AnalyzeText(r.Context(), req.Content)
	if err != nil {
		jsonError(w, "analysis failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	spans := highlight.Resolve(req.Content, result.Recognized)
	segments, err := highlight.Project(req.Content, spans)
	if err != nil {
		jsonError(w, "projection failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	unknown := result.Unknown
	if unknown == nil {
		unknown = []string{}
	}
	if spans == nil {
		spans = []highlight.TaskMatch{}
	}
	if segments == nil {
		segments = []highlight.Segment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"spans":         spans,
		"segments":      segments,
		"unknown_terms": unknown,
	})
}

// handleEnhance rewrites a passage under one of the enhancement modes.
func (s *Server) handleEnhance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Mode == "" {
		req.Mode = string(enhance.ModeGeneral)
	}
	if !enhance.ValidMode(req.Mode) {
		jsonError(w, "unknown enhancement mode: "+req.Mode, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		jsonError(w, "text is required", http.StatusBadRequest)
		return
	}

	result, err := s.enhancer.EnhanceText(r.Context(), req.Text, enhance.Mode(req.Mode))
	if err != nil {
		jsonError(w, "enhancement failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
