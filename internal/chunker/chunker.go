package chunker

import "strings"

const (
	// MinEmbeddable is the minimum trimmed length for a chunk to be worth
	// embedding. Shorter chunks produce low-signal vectors and are skipped
	// by the ingestion pipeline.
	MinEmbeddable = 20

	// MinViable is the minimum slice length emitted by SlidingWindow.
	// Shorter tail fragments are discarded.
	MinViable = 100
)

// Config controls chunking behavior.
type Config struct {
	ChunkSize int // Target chunk size in characters.
	Overlap   int // Overlap between consecutive sliding-window chunks in characters.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize: 500,
		Overlap:   50,
	}
}

// SplitSentences splits text into chunks of at most maxLen characters,
// preserving sentence boundaries. Sentences are accumulated greedily; when
// adding the next sentence would exceed maxLen the current chunk is flushed
// and the sentence starts a new one. A single sentence longer than maxLen
// is emitted as its own oversized chunk; content is never truncated or
// split mid-word.
func SplitSentences(text string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = DefaultConfig().ChunkSize
	}
	if len(text) <= maxLen {
		return []string{text}
	}

	sentences := strings.Split(text, ". ")

	var chunks []string
	var current []string
	length := 0

	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		if !strings.HasSuffix(sentence, ".") {
			sentence += "."
		}
		if length+len(sentence) <= maxLen {
			current = append(current, sentence)
			length += len(sentence)
			continue
		}
		if len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
		}
		current = []string{sentence}
		length = len(sentence)
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}

	return chunks
}

// SlidingWindow slices text into fixed-width windows of size characters,
// advancing by size-overlap each step. Slices shorter than MinViable are
// dropped to avoid degenerate tail fragments.
func SlidingWindow(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultConfig().ChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	if len(text) <= size {
		return []string{text}
	}

	step := size - overlap
	var chunks []string
	for i := 0; i < len(text); i += step {
		end := i + size
		if end > len(text) {
			end = len(text)
		}
		if end-i >= MinViable {
			chunks = append(chunks, text[i:end])
		}
	}
	return chunks
}
