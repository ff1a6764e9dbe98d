package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/dgallion1/opmark/internal/catalog"
	"github.com/dgallion1/opmark/internal/highlight"
	"github.com/go-chi/chi/v5"
)

// handlePutTask creates or replaces a catalog entry.
func (s *Server) handlePutTask(w http.ResponseWriter, r *http.Request) {
	var detail highlight.TaskDetail
	if err := json.NewDecoder(r.Body).Decode(&detail); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := catalog.Validate(detail); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.tasks.Put(r.Context(), detail); err != nil {
		jsonError(w, "store failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"task": detail})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.tasks.List(r.Context())
	if err != nil {
		jsonError(w, "list failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if tasks == nil {
		tasks = []highlight.TaskDetail{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	name := taskNameParam(r)
	detail, err := s.tasks.Get(r.Context(), name)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			jsonError(w, "task not found", http.StatusNotFound)
			return
		}
		jsonError(w, "lookup failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"task": detail})
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	name := taskNameParam(r)
	if err := s.tasks.Delete(r.Context(), name); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			jsonError(w, "task not found", http.StatusNotFound)
			return
		}
		jsonError(w, "delete failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": name})
}

// taskNameParam decodes the route segment; task names contain spaces
// ("ATTACK BY FIRE") and arrive percent-encoded.
func taskNameParam(r *http.Request) string {
	raw := chi.URLParam(r, "taskName")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}
