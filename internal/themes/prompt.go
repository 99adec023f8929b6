package themes

import (
	"fmt"
	"strings"

	"github.com/mfields/doctheme/internal/retrieval"
)

// MaxExcerpts bounds the number of excerpts fed to the extraction prompt,
// keeping prompt size predictable for large retrievals.
const MaxExcerpts = 20

// BuildPrompt assembles the theme-extraction prompt. Each excerpt is framed
// with its document id so the model can attribute themes; the response
// format is pinned to a title→{summary, docs} JSON object.
func BuildPrompt(excerpts []retrieval.Excerpt, query string) string {
	var sb strings.Builder
	sb.WriteString("You are an AI assistant specializing in document research. ")
	sb.WriteString("Identify 2-3 major themes from the following excerpts.\n")
	if query != "" {
		sb.WriteString(fmt.Sprintf("User Query: %s\n\n", query))
	}
	sb.WriteString("Excerpts:\n")

	n := len(excerpts)
	if n > MaxExcerpts {
		n = MaxExcerpts
	}
	for i := 0; i < n; i++ {
		sb.WriteString(fmt.Sprintf("Excerpt %d (Doc: %s): %s\n\n", i+1, excerpts[i].DocID, strings.TrimSpace(excerpts[i].Text)))
	}

	sb.WriteString("Extract 2-3 key themes.\n")
	sb.WriteString("Each theme should include:\n")
	sb.WriteString("- A short title\n")
	sb.WriteString("- A 2-3 sentence summary\n")
	sb.WriteString("- A list of supporting document IDs\n")
	sb.WriteString("Return response in this JSON format:\n")
	sb.WriteString("{\n")
	sb.WriteString("  \"Theme 1\": {\"summary\": \"...\", \"docs\": [\"DOC001\", \"DOC002\"]},\n")
	sb.WriteString("  \"Theme 2\": {\"summary\": \"...\", \"docs\": [\"DOC003\"]}\n")
	sb.WriteString("}")

	return sb.String()
}
