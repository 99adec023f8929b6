package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mfields/doctheme/internal/docstore"
)

// handleListDocuments lists all registered documents.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.docs.List(r.Context())
	if err != nil {
		jsonError(w, "failed to list documents: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if docs == nil {
		docs = []docstore.Document{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"documents": docs, "count": len(docs)})
}

// handleDeleteDocument removes a document from the registry and deletes
// its vectors from the index.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	ctx := r.Context()

	if err := s.docs.Delete(ctx, docID); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			jsonError(w, "document not found", http.StatusNotFound)
			return
		}
		jsonError(w, "failed to delete document: "+err.Error(), http.StatusInternalServerError)
		return
	}

	vectorsDeleted := true
	if err := s.vectors.DeleteByDoc(ctx, docID); err != nil {
		// The registry entry is gone; report the index failure instead of
		// pretending the delete fully succeeded.
		s.log.Error("vector delete failed", "doc_id", docID, "error", err)
		vectorsDeleted = false
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"doc_id":          docID,
		"deleted":         true,
		"vectors_deleted": vectorsDeleted,
	})
}
