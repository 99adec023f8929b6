// Package index defines the types exchanged with the external vector index
// and the narrow interfaces the core consumes. Concrete clients live in
// their own packages (internal/pinecone).
package index

import "context"

// Metadata is the payload stored alongside each vector. Text is carried so
// retrieval can hand back excerpts without a second lookup.
type Metadata struct {
	DocID string `json:"doc_id"`
	Ref   string `json:"ref"`
	Text  string `json:"text"`
}

// Vector is one embedded chunk ready for storage.
type Vector struct {
	ID       string    `json:"id"`
	Values   []float64 `json:"values"`
	Metadata Metadata  `json:"metadata"`
}

// Match is one ranked result from a similarity query. Matches arrive ordered
// by descending similarity; consumers preserve that order.
type Match struct {
	Score float64
	DocID string
	Ref   string
	Text  string
}

// Searcher issues similarity queries against the index.
type Searcher interface {
	Query(ctx context.Context, vector []float64, topK int) ([]Match, error)
}

// Upserter writes vectors to the index.
type Upserter interface {
	Upsert(ctx context.Context, vectors []Vector) error
}

// Store is the full capability surface of the vector index.
type Store interface {
	Searcher
	Upserter
	DeleteByDoc(ctx context.Context, docID string) error
}
