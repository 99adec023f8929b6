package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mfields/doctheme/internal/chunker"
	"github.com/mfields/doctheme/internal/docstore"
	"github.com/mfields/doctheme/internal/embed"
	"github.com/mfields/doctheme/internal/index"
)

type stubEmbedder struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail {
		return nil, errors.New("embedding unavailable")
	}
	return []float64{0.1, 0.2, 0.3}, nil
}

type stubUpserter struct {
	mu        sync.Mutex
	batches   [][]index.Vector
	failBatch int // 1-indexed batch that fails; 0 means never
}

func (s *stubUpserter) Upsert(_ context.Context, vectors []index.Vector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, vectors)
	if s.failBatch > 0 && len(s.batches) == s.failBatch {
		return errors.New("index write failed")
	}
	return nil
}

type stubRegistry struct {
	mu     sync.Mutex
	byHash map[string]docstore.Document
	stored []docstore.Document
}

func newStubRegistry() *stubRegistry {
	return &stubRegistry{byHash: make(map[string]docstore.Document)}
}

func (s *stubRegistry) FindByHash(_ context.Context, hash string) (docstore.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.byHash[hash]; ok {
		return doc, nil
	}
	return docstore.Document{}, docstore.ErrNotFound
}

func (s *stubRegistry) Put(_ context.Context, doc docstore.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stored = append(s.stored, doc)
	return nil
}

func testWorker(emb *stubEmbedder, up *stubUpserter, reg *stubRegistry) *Worker {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := chunker.Config{ChunkSize: 500, Overlap: 50}
	return NewWorker(emb, up, reg, log, cfg, "sentence", 2, false)
}

func testJob(filename, content string) *Job {
	job := &Job{ID: "job-1", DocID: strings.TrimSuffix(filename, ".txt"), Filename: filename, Status: StatusQueued}
	job.SetFileData([]byte(content))
	return job
}

func TestProcess_CompletesSmallDocument(t *testing.T) {
	emb := &stubEmbedder{}
	up := &stubUpserter{}
	reg := newStubRegistry()
	w := testWorker(emb, up, reg)

	job := testJob("notes.txt", "This is the first paragraph with enough text to embed.\n\nThis is the second paragraph, also comfortably long enough.")
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("status = %q, errors = %v", snap.Status, snap.Progress.Errors)
	}
	if snap.Progress.TotalChunks != 2 || snap.Progress.ChunksEmbedded != 2 || snap.Progress.VectorsStored != 2 {
		t.Errorf("progress = %+v", snap.Progress)
	}
	if len(up.batches) != 1 || len(up.batches[0]) != 2 {
		t.Fatalf("upsert batches = %d", len(up.batches))
	}
	v := up.batches[0][0]
	if v.ID != "notes_para-1" || v.Metadata.DocID != "notes" || v.Metadata.Ref != "para-1" {
		t.Errorf("vector = %+v", v)
	}
	if len(reg.stored) != 1 || reg.stored[0].ChunkCount != 2 {
		t.Errorf("registry records = %+v", reg.stored)
	}
}

func TestProcess_WindowModeChunksLongUnits(t *testing.T) {
	emb := &stubEmbedder{}
	up := &stubUpserter{}
	reg := newStubRegistry()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := NewWorker(emb, up, reg, log, chunker.Config{ChunkSize: 200, Overlap: 20}, "window", 2, false)

	// One 500-char paragraph: with step 180 the windows start at 0, 180
	// and 360, so three chunks with suffixed refs.
	job := testJob("long.txt", strings.Repeat("x", 500))
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("status = %q, errors = %v", snap.Status, snap.Progress.Errors)
	}
	if snap.Progress.TotalChunks != 3 {
		t.Fatalf("total chunks = %d, want 3", snap.Progress.TotalChunks)
	}
	if got := up.batches[0][0].Metadata.Ref; got != "para-1-chunk-1" {
		t.Errorf("first ref = %q", got)
	}
	if got := up.batches[0][2].Metadata.Ref; got != "para-1-chunk-3" {
		t.Errorf("last ref = %q", got)
	}
}

func TestProcess_SkipsDuplicateContent(t *testing.T) {
	emb := &stubEmbedder{}
	up := &stubUpserter{}
	reg := newStubRegistry()
	content := "Identical content that was already ingested previously."
	reg.byHash[ContentHashHex([]byte(content))] = docstore.Document{DocID: "earlier"}
	w := testWorker(emb, up, reg)

	job := testJob("again.txt", content)
	w.Process(context.Background(), job)

	if got := job.Snapshot().Status; got != StatusDupSkipped {
		t.Fatalf("status = %q, want %q", got, StatusDupSkipped)
	}
	if emb.calls != 0 {
		t.Errorf("embedder called %d times for a duplicate", emb.calls)
	}
	if len(up.batches) != 0 {
		t.Errorf("upsert called for a duplicate")
	}
}

func TestProcess_UnsupportedExtensionFails(t *testing.T) {
	w := testWorker(&stubEmbedder{}, &stubUpserter{}, newStubRegistry())
	job := testJob("image.png", "binary")
	w.Process(context.Background(), job)

	if got := job.Snapshot().Status; got != StatusFailed {
		t.Errorf("status = %q, want %q", got, StatusFailed)
	}
}

func TestProcess_TinyContentFails(t *testing.T) {
	w := testWorker(&stubEmbedder{}, &stubUpserter{}, newStubRegistry())
	job := testJob("tiny.txt", "too short")
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed {
		t.Errorf("status = %q, want %q", snap.Status, StatusFailed)
	}
	if len(snap.Progress.Errors) == 0 {
		t.Error("expected an error explaining the failure")
	}
}

func TestProcess_EmbeddingFailureFails(t *testing.T) {
	emb := &stubEmbedder{fail: true}
	up := &stubUpserter{}
	reg := newStubRegistry()
	w := testWorker(emb, up, reg)

	job := testJob("doc.txt", "A paragraph that is long enough to be chunked and embedded.")
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed {
		t.Errorf("status = %q, want %q", snap.Status, StatusFailed)
	}
	if len(up.batches) != 0 {
		t.Error("upsert should not run when nothing embedded")
	}
	if len(reg.stored) != 0 {
		t.Error("registry should not record a failed ingestion")
	}
}

func TestProcess_UpsertFailureAborts(t *testing.T) {
	emb := &stubEmbedder{}
	up := &stubUpserter{failBatch: 2}
	reg := newStubRegistry()
	w := testWorker(emb, up, reg)

	// Enough paragraphs to span two upsert batches.
	var sb strings.Builder
	for i := 0; i < UpsertBatchSize+10; i++ {
		fmt.Fprintf(&sb, "Paragraph number %d carries enough characters to clear the minimum.\n\n", i)
	}
	job := testJob("big.txt", sb.String())
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusPartial {
		t.Fatalf("status = %q, errors = %v", snap.Status, snap.Progress.Errors)
	}
	if snap.Progress.VectorsStored != UpsertBatchSize {
		t.Errorf("vectors stored = %d, want %d", snap.Progress.VectorsStored, UpsertBatchSize)
	}
	if len(up.batches) != 2 {
		t.Errorf("batches attempted = %d, want 2", len(up.batches))
	}
}

func TestIsRetryable(t *testing.T) {
	retryable := &embed.RetryableError{StatusCode: 429, Message: "rate limited"}
	if !IsRetryable(retryable) {
		t.Error("RetryableError should be retryable")
	}
	if !IsRetryable(fmt.Errorf("wrapped: %w", retryable)) {
		t.Error("wrapped RetryableError should be retryable")
	}
	if IsRetryable(errors.New("plain failure")) {
		t.Error("plain error should not be retryable")
	}
}

func TestBackoff_Bounds(t *testing.T) {
	for attempt := 0; attempt < 6; attempt++ {
		d := Backoff(attempt)
		if d <= 0 {
			t.Errorf("Backoff(%d) = %v, want positive", attempt, d)
		}
		if d > 45*time.Second {
			t.Errorf("Backoff(%d) = %v, exceeds cap plus jitter", attempt, d)
		}
	}
}
