package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

type queryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
	Model string `json:"model"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		jsonError(w, "query is required", http.StatusBadRequest)
		return
	}

	topK := req.TopK
	if topK <= 0 {
		topK = s.cfg.QueryTopK
	}

	answer, err := s.queries.Run(r.Context(), req.Query, topK, req.Model)
	if err != nil {
		s.log.Error("query failed", "error", err)
		jsonError(w, "query failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(answer)
}
