// Package api is the HTTP surface for the OPORD highlight service:
// document CRUD with versioned enhancement applies, synchronous and
// background term analysis, task catalog management, and file import.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dgallion1/opmark/internal/analyze"
	"github.com/dgallion1/opmark/internal/catalog"
	"github.com/dgallion1/opmark/internal/config"
	"github.com/dgallion1/opmark/internal/docstore"
	"github.com/dgallion1/opmark/internal/enhance"
	"github.com/dgallion1/opmark/internal/genai"
	"github.com/dgallion1/opmark/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Analyzer is the slice of the term analyzer the handlers need.
type Analyzer interface {
	AnalyzeText(ctx context.Context, text string) (*analyze.Result, error)
}

// Enhancer is the slice of the enhancement collaborator the handlers need.
type Enhancer interface {
	EnhanceText(ctx context.Context, text string, mode enhance.Mode) (*enhance.Result, error)
}

// Server is the HTTP API server for opmark.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	docs         docstore.Store
	tasks        catalog.Store
	analyzer     Analyzer
	enhancer     Enhancer
	gem          *genai.Client
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, docs docstore.Store, tasks catalog.Store, analyzer Analyzer, enhancer Enhancer, gem *genai.Client, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		docs:         docs,
		tasks:        tasks,
		analyzer:     analyzer,
		enhancer:     enhancer,
		gem:          gem,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.OpmarkAPIKey, s.log))

		r.Post("/api/documents", s.handleCreateDocument)
		r.Get("/api/documents", s.handleListDocuments)
		r.Get("/api/documents/{docID}", s.handleGetDocument)
		r.Put("/api/documents/{docID}", s.handleUpdateDocument)
		r.Delete("/api/documents/{docID}", s.handleDeleteDocument)
		r.Post("/api/documents/{docID}/apply", s.handleApplyEnhancement)
		r.Post("/api/documents/{docID}/analyze", s.handleAnalyzeDocument)
		r.Get("/api/jobs/{jobID}", s.handleJobStatus)

		r.Post("/api/analyze", s.handleAnalyzeText)
		r.Post("/api/enhance", s.handleEnhance)
		r.Post("/api/import", s.handleImport)

		r.Put("/api/tasks", s.handlePutTask)
		r.Get("/api/tasks", s.handleListTasks)
		r.Get("/api/tasks/{taskName}", s.handleGetTask)
		r.Delete("/api/tasks/{taskName}", s.handleDeleteTask)

		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
