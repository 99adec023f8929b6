// Package api exposes the HTTP surface: ingestion, question answering,
// theme extraction and document management.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mfields/doctheme/internal/config"
	"github.com/mfields/doctheme/internal/docstore"
	"github.com/mfields/doctheme/internal/index"
	"github.com/mfields/doctheme/internal/llm"
	"github.com/mfields/doctheme/internal/pipeline"
	"github.com/mfields/doctheme/internal/query"
	"github.com/mfields/doctheme/internal/themes"
)

// Server is the HTTP API server.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	queries      *query.Engine
	themes       *themes.Engine
	llm          *llm.Client
	docs         *docstore.Store
	vectors      index.Store
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, queries *query.Engine, themeEngine *themes.Engine, llmClient *llm.Client, docs *docstore.Store, vectors index.Store, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		queries:      queries,
		themes:       themeEngine,
		llm:          llmClient,
		docs:         docs,
		vectors:      vectors,
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

	// API endpoints. Authentication is enforced only when a key is
	// configured, so local development works without one.
	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Post("/api/upload", s.handleUpload)
		r.Get("/api/upload/{jobID}/status", s.handleUploadStatus)

		r.Post("/api/query", s.handleQuery)
		r.Post("/api/themes", s.handleThemes)
		r.Post("/api/identify-themes", s.handleIdentifyThemes)

		r.Get("/api/documents", s.handleListDocuments)
		r.Delete("/api/documents/{docID}", s.handleDeleteDocument)

		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
