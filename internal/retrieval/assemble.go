// Package retrieval turns ranked index matches into the excerpt list and
// citation map used for answer synthesis and theme extraction.
package retrieval

import (
	"fmt"

	"github.com/mfields/doctheme/internal/index"
)

// Excerpt is one retrieved chunk of text together with its owning document.
type Excerpt struct {
	Text  string
	DocID string
}

// Assemble walks matches in the order supplied by the index (already ranked
// by descending similarity; never re-sorted here) and produces the ordered
// excerpt list plus the deduplicated citation map. Matches without text
// contribute nothing. A match without a ref gets a synthesized score-based
// locator so every cited excerpt remains traceable. When max > 0 at most
// max excerpts (and their citations) are taken.
func Assemble(matches []index.Match, max int) ([]Excerpt, *Citations) {
	var excerpts []Excerpt
	citations := NewCitations()

	for _, m := range matches {
		if max > 0 && len(excerpts) >= max {
			break
		}
		if m.Text == "" {
			// Stored vector carries no text, likely malformed ingestion.
			continue
		}

		docID := m.DocID
		if docID == "" {
			docID = "UNKNOWN_DOC"
		}
		ref := m.Ref
		if ref == "" {
			ref = fmt.Sprintf("score_%.2f", m.Score)
		}

		excerpts = append(excerpts, Excerpt{Text: m.Text, DocID: docID})
		citations.Add(docID, ref)
	}

	return excerpts, citations
}
