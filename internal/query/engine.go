// Package query answers natural-language questions over the indexed
// corpus: retrieve, assemble excerpts and citations, delegate synthesis to
// the completion capability.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mfields/doctheme/internal/embed"
	"github.com/mfields/doctheme/internal/index"
	"github.com/mfields/doctheme/internal/llm"
	"github.com/mfields/doctheme/internal/retrieval"
)

const (
	// MaxQueryLen bounds the text sent to the embedding capability.
	MaxQueryLen = 1024

	// DefaultTopK is the retrieval width when the caller does not specify one.
	DefaultTopK = 5

	answerTemperature = 0.2
	answerMaxTokens   = 800

	greetingAnswer = "Hello! Upload a document and ask a research question to get started."
)

// greetings are trivial inputs that short-circuit the whole pipeline: no
// retrieval context exists and paying for a completion is pointless.
var greetings = map[string]bool{
	"hi":    true,
	"hello": true,
	"hey":   true,
}

// Answer is the terminal result of one query: the synthesized answer and
// the citations that back it.
type Answer struct {
	Answer    string               `json:"answer"`
	Citations *retrieval.Citations `json:"citations"`
}

// Engine sequences retrieval, assembly and completion for one request. It
// holds no per-request state and is safe for concurrent use.
type Engine struct {
	embedder embed.Embedder
	idx      index.Searcher
	llm      llm.Completer
	log      *slog.Logger
}

func NewEngine(embedder embed.Embedder, idx index.Searcher, completer llm.Completer, log *slog.Logger) *Engine {
	return &Engine{
		embedder: embedder,
		idx:      idx,
		llm:      completer,
		log:      log,
	}
}

// Run answers q against the index. Zero retrieval results fall back to
// either a canned greeting reply or a context-free completion; otherwise
// the assembled excerpts constrain the model to answer from documents only.
func (e *Engine) Run(ctx context.Context, q string, topK int, model string) (Answer, error) {
	q = strings.TrimSpace(q)
	if topK <= 0 {
		topK = DefaultTopK
	}

	truncated := q
	if len(truncated) > MaxQueryLen {
		truncated = truncated[:MaxQueryLen]
	}

	vector, err := e.embedder.Embed(ctx, truncated)
	if err != nil {
		return Answer{}, fmt.Errorf("embed query: %w", err)
	}

	matches, err := e.idx.Query(ctx, vector, topK)
	if err != nil {
		return Answer{}, fmt.Errorf("similarity query: %w", err)
	}

	if len(matches) == 0 {
		return e.answerWithoutContext(ctx, q, model)
	}

	excerpts, citations := retrieval.Assemble(matches, 0)
	e.log.Info("retrieval complete", "matches", len(matches), "excerpts", len(excerpts), "documents", citations.Len())

	if len(excerpts) == 0 {
		// Every match was textless metadata; treat as empty retrieval.
		return e.answerWithoutContext(ctx, q, model)
	}

	prompt := buildAnswerPrompt(excerpts, q)
	answer, err := e.llm.Complete(ctx, prompt, llm.Options{
		Model:       model,
		Temperature: answerTemperature,
		MaxTokens:   answerMaxTokens,
	})
	if err != nil {
		return Answer{}, fmt.Errorf("answer synthesis: %w", err)
	}

	return Answer{Answer: answer, Citations: citations}, nil
}

// answerWithoutContext handles the empty-retrieval states: trivial
// greetings get a canned reply without a completion call, everything else
// gets a best-effort context-free completion.
func (e *Engine) answerWithoutContext(ctx context.Context, q, model string) (Answer, error) {
	if greetings[strings.ToLower(strings.TrimSpace(q))] {
		return Answer{Answer: greetingAnswer, Citations: retrieval.NewCitations()}, nil
	}

	prompt := fmt.Sprintf("The user asked: '%s'. Respond helpfully, even without documents.", q)
	answer, err := e.llm.Complete(ctx, prompt, llm.Options{
		Model:       model,
		Temperature: answerTemperature,
		MaxTokens:   answerMaxTokens,
	})
	if err != nil {
		return Answer{}, fmt.Errorf("fallback completion: %w", err)
	}
	return Answer{Answer: answer, Citations: retrieval.NewCitations()}, nil
}

func buildAnswerPrompt(excerpts []retrieval.Excerpt, q string) string {
	var sb strings.Builder
	sb.WriteString("You are an AI research assistant helping with document analysis. Use the following excerpts:\n\n")
	for i, ex := range excerpts {
		sb.WriteString(fmt.Sprintf("Excerpt %d:\n%s\n\n", i+1, ex.Text))
	}
	sb.WriteString(fmt.Sprintf("Question: %s\n\nAnswer based only on the excerpts.", q))
	return sb.String()
}
