package chunker

import (
	"fmt"
	"strings"
)

// ChunkRef derives the citation reference for chunk i (0-based) of n chunks
// produced from a source unit with reference base. A unit that yields a
// single chunk keeps its reference unchanged; splits get a -chunk-N suffix
// so each chunk stays individually citable.
func ChunkRef(base string, i, n int) string {
	if n <= 1 {
		return base
	}
	return fmt.Sprintf("%s-chunk-%d", base, i+1)
}

// VectorID builds the storage key for a chunk from its document id and
// reference. Spaces are replaced with underscores so the id is safe for use
// as a vector store key.
func VectorID(docID, ref string) string {
	return strings.ReplaceAll(docID+"_"+ref, " ", "_")
}
