package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mfields/doctheme/internal/chunker"
	"github.com/mfields/doctheme/internal/docstore"
	"github.com/mfields/doctheme/internal/embed"
	"github.com/mfields/doctheme/internal/index"
	"github.com/mfields/doctheme/internal/parser"
)

// UpsertBatchSize is the number of vectors sent per index write.
const UpsertBatchSize = 100

// Registry is the slice of the docstore the pipeline needs.
type Registry interface {
	FindByHash(ctx context.Context, contentHash string) (docstore.Document, error)
	Put(ctx context.Context, doc docstore.Document) error
}

// Worker processes a single document job.
type Worker struct {
	embedder embed.Embedder
	idx      index.Upserter
	registry Registry
	log      *slog.Logger
	chunkCfg chunker.Config

	chunkMode          string
	maxConcurrentEmbed int
	pdfFallback        bool
}

func NewWorker(embedder embed.Embedder, idx index.Upserter, registry Registry, log *slog.Logger, chunkCfg chunker.Config, chunkMode string, maxEmbed int, pdfFallback bool) *Worker {
	if maxEmbed <= 0 {
		maxEmbed = 1
	}
	return &Worker{
		embedder:           embedder,
		idx:                idx,
		registry:           registry,
		log:                log,
		chunkCfg:           chunkCfg,
		chunkMode:          chunkMode,
		maxConcurrentEmbed: maxEmbed,
		pdfFallback:        pdfFallback,
	}
}

type chunk struct {
	text string
	ref  string
	id   string
}

// Process runs the full ingest pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID)

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	p, err := parser.ForFile(job.Filename)
	if err != nil {
		log.Error("unsupported format", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	if pp, ok := p.(*parser.PDFParser); ok {
		pp.FallbackPdftotext = w.pdfFallback
	}

	data := job.FileData()
	units, err := p.Parse(bytes.NewReader(data), job.Filename)
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	job.SetContentHash(ContentHashHex(data))

	// Phase 1.5: Dedup check
	existing, err := w.registry.FindByHash(ctx, job.ContentHash)
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		log.Warn("dedup check failed, proceeding", "error", err)
	} else if err == nil {
		log.Info("duplicate document, skipping", "existing_doc_id", existing.DocID)
		job.SetStatus(StatusDupSkipped, "dedup")
		return
	}

	// Phase 2: Chunk
	job.SetStatus(StatusChunking, "chunking")
	chunks := w.chunkUnits(job.DocID, units)
	job.SetTotalChunks(len(chunks))
	log.Info("chunked document", "units", len(units), "chunks", len(chunks))

	if len(chunks) == 0 {
		log.Warn("no chunks produced")
		job.AddError("no extractable content")
		job.SetStatus(StatusFailed, "chunking")
		return
	}

	// Phase 3: Embed chunks with bounded concurrency.
	job.SetStatus(StatusEmbedding, "embedding")
	type embedResult struct {
		vector index.Vector
		err    error
		idx    int
	}
	results := make(chan embedResult, len(chunks))
	sem := make(chan struct{}, w.maxConcurrentEmbed)

	for i, c := range chunks {
		sem <- struct{}{}
		go func(i int, c chunk) {
			defer func() { <-sem }()
			var values []float64
			var lastErr error
			for attempt := 0; attempt < MaxRetries; attempt++ {
				values, lastErr = w.embedder.Embed(ctx, c.text)
				if lastErr == nil || !IsRetryable(lastErr) {
					break
				}
				log.Warn("retryable embedding error", "chunk", i, "attempt", attempt, "error", lastErr)
				select {
				case <-time.After(Backoff(attempt)):
				case <-ctx.Done():
					results <- embedResult{err: ctx.Err(), idx: i}
					return
				}
			}
			if lastErr != nil {
				results <- embedResult{err: lastErr, idx: i}
				return
			}
			results <- embedResult{
				vector: index.Vector{
					ID:     c.id,
					Values: values,
					Metadata: index.Metadata{
						DocID: job.DocID,
						Ref:   c.ref,
						Text:  c.text,
					},
				},
				idx: i,
			}
		}(i, c)
	}

	// Collect in chunk order so upsert batches stay deterministic.
	vectors := make([]index.Vector, len(chunks))
	embedded := make([]bool, len(chunks))
	hadErrors := false
	for range chunks {
		r := <-results
		if r.err != nil {
			log.Error("embedding failed", "chunk", r.idx, "error", r.err)
			job.AddError(fmt.Sprintf("chunk %d: %s", r.idx, r.err))
			hadErrors = true
			continue
		}
		vectors[r.idx] = r.vector
		embedded[r.idx] = true
		job.IncrChunksEmbedded()
	}

	ordered := vectors[:0]
	for i, ok := range embedded {
		if ok {
			ordered = append(ordered, vectors[i])
		}
	}
	log.Info("embedding complete", "embedded", len(ordered), "errors", hadErrors)

	if len(ordered) == 0 {
		job.SetStatus(StatusFailed, "embedding")
		return
	}

	// Phase 4: Upsert in sequential batches. An index write failure aborts
	// the remaining batches rather than leaving interleaved gaps.
	job.SetStatus(StatusStoring, "storing")
	storeFailed := false
	for start := 0; start < len(ordered); start += UpsertBatchSize {
		end := min(start+UpsertBatchSize, len(ordered))
		if err := w.idx.Upsert(ctx, ordered[start:end]); err != nil {
			log.Error("upsert failed", "batch_start", start, "error", err)
			job.AddError(fmt.Sprintf("upsert batch %d: %s", start/UpsertBatchSize, err))
			storeFailed = true
			break
		}
		job.AddVectorsStored(end - start)
	}

	stored := job.Snapshot().Progress.VectorsStored
	log.Info("storage complete", "stored", stored, "total", len(ordered))

	if stored == 0 {
		job.SetStatus(StatusFailed, "storing")
		return
	}

	if err := w.registry.Put(ctx, docstore.Document{
		DocID:       job.DocID,
		Filename:    job.Filename,
		ContentHash: job.ContentHash,
		ChunkCount:  stored,
		CreatedAt:   job.CreatedAt,
	}); err != nil {
		log.Error("docstore write failed", "error", err)
		job.AddError(fmt.Sprintf("docstore: %s", err))
		hadErrors = true
	}

	if hadErrors || storeFailed {
		job.SetStatus(StatusPartial, "done")
	} else {
		job.SetStatus(StatusCompleted, "done")
	}
}

// chunkUnits converts parsed units into embeddable chunks with stable
// vector IDs. Units below the embeddable minimum are dropped; units longer
// than the configured chunk size are split on sentence boundaries, or with
// an overlapping sliding window when that mode is configured.
func (w *Worker) chunkUnits(docID string, units []parser.Unit) []chunk {
	var out []chunk
	for _, u := range units {
		if len(u.Text) < chunker.MinEmbeddable {
			continue
		}
		var pieces []string
		if w.chunkMode == "window" && len(u.Text) > w.chunkCfg.ChunkSize {
			pieces = chunker.SlidingWindow(u.Text, w.chunkCfg.ChunkSize, w.chunkCfg.Overlap)
		} else {
			pieces = chunker.SplitSentences(u.Text, w.chunkCfg.ChunkSize)
		}
		for i, text := range pieces {
			if len(text) < chunker.MinEmbeddable {
				continue
			}
			ref := chunker.ChunkRef(u.Ref, i, len(pieces))
			out = append(out, chunk{
				text: text,
				ref:  ref,
				id:   chunker.VectorID(docID, ref),
			})
		}
	}
	return out
}
