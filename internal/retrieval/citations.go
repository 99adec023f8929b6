package retrieval

import (
	"bytes"
	"encoding/json"
)

// Citations maps document ids to the refs that supported an answer. Both
// document keys and refs within a document keep first-seen order, matching
// the ranking order of the matches they came from; refs are unique per
// document.
type Citations struct {
	docs []string
	refs map[string][]string
}

func NewCitations() *Citations {
	return &Citations{refs: make(map[string][]string)}
}

// Add records ref for docID unless the pair was already seen.
func (c *Citations) Add(docID, ref string) {
	existing, ok := c.refs[docID]
	if !ok {
		c.docs = append(c.docs, docID)
		c.refs[docID] = []string{ref}
		return
	}
	for _, r := range existing {
		if r == ref {
			return
		}
	}
	c.refs[docID] = append(existing, ref)
}

// Docs returns document ids in first-seen order.
func (c *Citations) Docs() []string {
	out := make([]string, len(c.docs))
	copy(out, c.docs)
	return out
}

// Refs returns the refs recorded for docID, in first-seen order.
func (c *Citations) Refs(docID string) []string {
	refs := c.refs[docID]
	out := make([]string, len(refs))
	copy(out, refs)
	return out
}

// Len returns the number of cited documents.
func (c *Citations) Len() int {
	return len(c.docs)
}

// MarshalJSON encodes the map as a JSON object with keys in first-seen
// order. A plain map would lose the ranking order.
func (c *Citations) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, docID := range c.docs {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(docID)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		refs, err := json.Marshal(c.refs[docID])
		if err != nil {
			return nil, err
		}
		buf.Write(refs)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
