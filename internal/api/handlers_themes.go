package api

import (
	"encoding/json"
	"net/http"

	"github.com/mfields/doctheme/internal/retrieval"
)

type themesRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
	Model string `json:"model"`
}

// handleThemes samples the index and extracts cross-document themes. A
// model output that cannot be parsed is reported in the body, not as an
// HTTP failure, so clients can inspect the raw output.
func (s *Server) handleThemes(w http.ResponseWriter, r *http.Request) {
	var req themesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	topK := req.TopK
	if topK <= 0 {
		topK = s.cfg.ThemesTopK
	}

	result, err := s.themes.Extract(r.Context(), req.Query, topK, req.Model)
	if err != nil {
		s.log.Error("theme extraction failed", "error", err)
		jsonError(w, "theme extraction failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"themes": result})
}

type identifyThemesRequest struct {
	Chunks []string `json:"chunks"`
	DocIDs []string `json:"doc_ids"`
	Query  string   `json:"query"`
	Model  string   `json:"model"`
}

// handleIdentifyThemes runs theme analysis over caller-supplied excerpts
// instead of sampling the index.
func (s *Server) handleIdentifyThemes(w http.ResponseWriter, r *http.Request) {
	var req identifyThemesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Chunks) == 0 {
		jsonError(w, "chunks is required", http.StatusBadRequest)
		return
	}

	excerpts := make([]retrieval.Excerpt, 0, len(req.Chunks))
	for i, text := range req.Chunks {
		docID := "UNKNOWN_DOC"
		if i < len(req.DocIDs) {
			docID = req.DocIDs[i]
		}
		excerpts = append(excerpts, retrieval.Excerpt{Text: text, DocID: docID})
	}

	result, err := s.themes.Identify(r.Context(), excerpts, req.Query, req.Model)
	if err != nil {
		s.log.Error("theme identification failed", "error", err)
		jsonError(w, "theme identification failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if !result.OK() {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"themes": result})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"themes": result})
}
