package themes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mfields/doctheme/internal/embed"
	"github.com/mfields/doctheme/internal/index"
	"github.com/mfields/doctheme/internal/llm"
	"github.com/mfields/doctheme/internal/retrieval"
)

const (
	// DefaultTopK is the retrieval width for theme sampling; wide on
	// purpose, the excerpt cap trims it down after assembly.
	DefaultTopK = 100

	themeTemperature = 0.4
	themeMaxTokens   = 1000
)

// Engine runs theme extraction over the vector index.
type Engine struct {
	embedder embed.Embedder
	idx      index.Searcher
	llm      llm.Completer
	dim      int
	log      *slog.Logger
}

func NewEngine(embedder embed.Embedder, idx index.Searcher, completer llm.Completer, dimension int, log *slog.Logger) *Engine {
	return &Engine{
		embedder: embedder,
		idx:      idx,
		llm:      completer,
		dim:      dimension,
		log:      log,
	}
}

// Extract retrieves excerpts from the index and identifies themes across
// them. An empty query samples the index with a zero vector to get a
// general cross-section instead of a focused retrieval.
func (e *Engine) Extract(ctx context.Context, query string, topK int, model string) (Result, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	var vector []float64
	if query != "" {
		var err error
		vector, err = e.embedder.Embed(ctx, query)
		if err != nil {
			return Result{}, fmt.Errorf("embed query: %w", err)
		}
	} else {
		vector = make([]float64, e.dim)
	}

	matches, err := e.idx.Query(ctx, vector, topK)
	if err != nil {
		return Result{}, fmt.Errorf("similarity query: %w", err)
	}

	excerpts, _ := retrieval.Assemble(matches, MaxExcerpts)
	e.log.Info("theme retrieval", "matches", len(matches), "excerpts", len(excerpts))

	return e.Identify(ctx, excerpts, query, model)
}

// Identify runs theme extraction over already-assembled excerpts. An empty
// excerpt list returns the typed error variant immediately, without
// touching the completion capability. Completion failures surface as Go
// errors; malformed completions surface as the Result error variant.
func (e *Engine) Identify(ctx context.Context, excerpts []retrieval.Excerpt, query, model string) (Result, error) {
	if len(excerpts) == 0 {
		return Result{Err: "no document excerpts available for theme analysis"}, nil
	}

	prompt := BuildPrompt(excerpts, query)
	content, err := e.llm.Complete(ctx, prompt, llm.Options{
		Model:       model,
		Temperature: themeTemperature,
		MaxTokens:   themeMaxTokens,
	})
	if err != nil {
		return Result{}, fmt.Errorf("theme extraction: %w", err)
	}

	result := ParseResponse(content)
	if !result.OK() {
		e.log.Warn("theme response parse failed", "raw_len", len(result.Raw))
	}
	return result, nil
}
