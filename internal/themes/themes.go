// Package themes extracts named themes with supporting citations from
// retrieved document excerpts, and parses the model's loosely structured
// output into a typed result.
package themes

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Theme is one extracted theme: a short summary and the document ids that
// support it.
type Theme struct {
	Summary string   `json:"summary"`
	Docs    []string `json:"docs"`
}

// Result is the tagged outcome of theme extraction: either a title→Theme
// mapping, or a diagnostic error carrying the raw model output. Callers
// branch on OK rather than inspecting for a magic key.
type Result struct {
	Themes map[string]Theme
	Err    string
	Raw    string
}

// OK reports whether the result holds parsed themes.
func (r Result) OK() bool { return r.Err == "" }

// MarshalJSON encodes the themes mapping directly, or the error object with
// the raw output preserved for diagnostics.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.OK() {
		return json.Marshal(r.Themes)
	}
	out := map[string]string{"error": r.Err}
	if r.Raw != "" {
		out["raw_output"] = r.Raw
	}
	return json.Marshal(out)
}

var codeBlockRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

func stripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}

// ParseResponse turns raw model output into a Result. It tries a strict
// parse first, then retries on the substring between the first '{' and the
// last '}' to recover from responses that wrap JSON in explanatory prose.
// Irrecoverable output yields the error variant with the original text;
// ParseResponse never fails with a Go error.
func ParseResponse(raw string) Result {
	content := stripCodeBlock(raw)

	var parsed map[string]Theme
	if err := json.Unmarshal([]byte(content), &parsed); err == nil {
		return Result{Themes: parsed}
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(content[start:end+1]), &parsed); err == nil {
			return Result{Themes: parsed}
		}
	}

	return Result{Err: "failed to parse model output", Raw: raw}
}
