package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dgallion1/opmark/internal/docstore"
	"github.com/dgallion1/opmark/internal/editor"
	"github.com/dgallion1/opmark/internal/highlight"
	"github.com/dgallion1/opmark/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

// docResponse is the wire form of a stored document. Segments are only
// present when the cached spans match the current content version;
// stale caches are withheld rather than rendered against edited text.
type docResponse struct {
	ID        string                `json:"id"`
	Title     string                `json:"title"`
	Content   string                `json:"content"`
	Version   int64                 `json:"version"`
	Spans     []highlight.TaskMatch `json:"spans,omitempty"`
	Segments  []highlight.Segment   `json:"segments,omitempty"`
	CreatedAt string                `json:"created_at"`
	UpdatedAt string                `json:"updated_at"`
}

func toDocResponse(doc *docstore.Document) docResponse {
	resp := docResponse{
		ID:        doc.ID,
		Title:     doc.Title,
		Content:   doc.Content,
		Version:   doc.Version,
		CreatedAt: doc.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: doc.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if doc.SpanVersion == doc.Version && len(doc.Spans) > 0 {
		resp.Spans = doc.Spans
		if segs, err := highlight.Project(doc.Content, doc.Spans); err == nil {
			resp.Segments = segs
		}
	}
	return resp
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		jsonError(w, "title is required", http.StatusBadRequest)
		return
	}

	now := time.Now()
	doc := &docstore.Document{
		ID:        pipeline.NewID(),
		Title:     req.Title,
		Content:   req.Content,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.docs.Save(r.Context(), doc); err != nil {
		jsonError(w, "save failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	job, err := s.orchestrator.SubmitDocument(doc)
	if err != nil {
		s.log.Warn("initial analysis submit failed", "doc_id", doc.ID, "error", err)
	}

	resp := map[string]any{"document": toDocResponse(doc)}
	if job != nil {
		resp["job_id"] = job.ID
		resp["poll_url"] = fmt.Sprintf("/api/jobs/%s", job.ID)
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.docs.List(r.Context())
	if err != nil {
		jsonError(w, "list failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	summaries := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		summaries = append(summaries, map[string]any{
			"id":         doc.ID,
			"title":      doc.Title,
			"version":    doc.Version,
			"updated_at": doc.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": summaries})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, _ := s.loadDoc(w, r)
	if doc == nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"document": toDocResponse(doc)})
}

// handleUpdateDocument replaces the document content wholesale. The
// version bumps, cached spans are dropped, and a debounced re-analysis
// is scheduled so a typing burst becomes a single model call.
func (s *Server) handleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	doc, _ := s.loadDoc(w, r)
	if doc == nil {
		return
	}

	var req struct {
		Title   *string `json:"title"`
		Content *string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Title == nil && req.Content == nil {
		jsonError(w, "nothing to update", http.StatusBadRequest)
		return
	}

	if req.Title != nil {
		doc.Title = *req.Title
	}
	if req.Content != nil {
		doc.Content = *req.Content
		doc.Version++
		doc.Spans = nil
		doc.SpanVersion = 0
	}
	doc.UpdatedAt = time.Now()
	if err := s.docs.Save(r.Context(), doc); err != nil {
		jsonError(w, "save failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if req.Content != nil {
		s.orchestrator.ScheduleReanalysis(doc.ID)
	}

	writeJSON(w, http.StatusOK, map[string]any{"document": toDocResponse(doc)})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	if err := s.docs.Delete(r.Context(), docID); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			jsonError(w, "document not found", http.StatusNotFound)
			return
		}
		jsonError(w, "delete failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": docID})
}

// handleApplyEnhancement splices an enhanced passage into the document,
// guarded by a version precondition: the client must name the version
// it selected against, and any intervening edit rejects the apply.
func (s *Server) handleApplyEnhancement(w http.ResponseWriter, r *http.Request) {
	doc, _ := s.loadDoc(w, r)
	if doc == nil {
		return
	}

	var req struct {
		Version      int64  `json:"version"`
		Start        int    `json:"start"`
		End          int    `json:"end"`
		EnhancedText string `json:"enhanced_text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.Version != doc.Version {
		jsonError(w, fmt.Sprintf("document version conflict: apply targets %d, document is at %d",
			req.Version, doc.Version), http.StatusConflict)
		return
	}

	sub, err := editor.Substitute(doc.Content, editor.Selection{Start: req.Start, End: req.End}, req.EnhancedText)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	doc.Content = sub.NewContent
	doc.Version++
	doc.Spans = nil
	doc.SpanVersion = 0
	doc.UpdatedAt = time.Now()
	if err := s.docs.Save(r.Context(), doc); err != nil {
		jsonError(w, "save failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	s.orchestrator.ScheduleReanalysis(doc.ID)

	writeJSON(w, http.StatusOK, map[string]any{
		"document": toDocResponse(doc),
		"caret":    sub.NewCaret,
	})
}

// handleAnalyzeDocument queues an explicit background analysis run.
func (s *Server) handleAnalyzeDocument(w http.ResponseWriter, r *http.Request) {
	doc, _ := s.loadDoc(w, r)
	if doc == nil {
		return
	}

	job, err := s.orchestrator.SubmitDocument(doc)
	if err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   job.ID,
		"doc_id":   job.DocID,
		"status":   job.Status,
		"poll_url": fmt.Sprintf("/api/jobs/%s", job.ID),
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":   snap.ID,
		"doc_id":   snap.DocID,
		"status":   snap.Status,
		"phase":    snap.Phase,
		"progress": snap.Progress,
	})
}

// loadDoc fetches the document named in the route, writing the error
// response itself. A nil return means the response is already sent.
func (s *Server) loadDoc(w http.ResponseWriter, r *http.Request) (*docstore.Document, error) {
	docID := chi.URLParam(r, "docID")
	doc, err := s.docs.Load(r.Context(), docID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			jsonError(w, "document not found", http.StatusNotFound)
		} else {
			jsonError(w, "load failed: "+err.Error(), http.StatusInternalServerError)
		}
		return nil, err
	}
	return doc, nil
}
