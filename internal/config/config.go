package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Auth. Empty disables request authentication.
	APIKey string

	// Completion provider
	LLMProvider  string
	OpenAIAPIKey string
	GroqAPIKey   string
	LLMModel     string

	// Embeddings
	EmbedBaseURL   string
	EmbedAPIKey    string
	EmbedModel     string
	EmbedDimension int

	// Vector index
	PineconeAPIKey string
	PineconeHost   string

	// Document registry
	DocstorePath string

	// Worker pool
	WorkerCount        int
	MaxQueueSize       int
	MaxConcurrentEmbed int

	// Upload limits
	MaxUploadBytes int64

	// Chunking defaults. ChunkMode selects sentence-boundary accumulation
	// ("sentence") or fixed-width sliding windows ("window").
	ChunkMode           string
	DefaultChunkSize    int
	DefaultChunkOverlap int

	// Retrieval defaults
	QueryTopK  int
	ThemesTopK int

	// Job state
	JobTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("API_KEY"),

		LLMProvider:  envOr("LLM_PROVIDER", "openai"),
		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
		GroqAPIKey:   os.Getenv("GROQ_API_KEY"),
		LLMModel:     os.Getenv("LLM_MODEL"),

		EmbedBaseURL:   envOr("EMBED_BASE_URL", "https://api.openai.com/v1"),
		EmbedAPIKey:    os.Getenv("EMBED_API_KEY"),
		EmbedModel:     envOr("EMBED_MODEL", "text-embedding-3-small"),
		EmbedDimension: envInt("EMBED_DIMENSION", 1536),

		PineconeAPIKey: os.Getenv("PINECONE_API_KEY"),
		PineconeHost:   os.Getenv("PINECONE_HOST"),

		DocstorePath: envOr("DOCSTORE_PATH", "data/documents.db"),

		WorkerCount:        envInt("WORKER_COUNT", 4),
		MaxQueueSize:       envInt("MAX_QUEUE_SIZE", 100),
		MaxConcurrentEmbed: envInt("MAX_CONCURRENT_EMBED", 5),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		ChunkMode:           envOr("CHUNK_MODE", "sentence"),
		DefaultChunkSize:    envInt("DEFAULT_CHUNK_SIZE", 500),
		DefaultChunkOverlap: envInt("DEFAULT_CHUNK_OVERLAP", 50),

		QueryTopK:  envInt("QUERY_TOP_K", 5),
		ThemesTopK: envInt("THEMES_TOP_K", 100),

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxConcurrentEmbed <= 0 {
		cfg.MaxConcurrentEmbed = 5
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.DefaultChunkSize <= 0 {
		cfg.DefaultChunkSize = 500
	}
	if cfg.DefaultChunkOverlap < 0 {
		cfg.DefaultChunkOverlap = 50
	}
	if cfg.EmbedDimension <= 0 {
		cfg.EmbedDimension = 1536
	}
	if cfg.QueryTopK <= 0 {
		cfg.QueryTopK = 5
	}
	if cfg.ThemesTopK <= 0 {
		cfg.ThemesTopK = 100
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.PineconeAPIKey == "" {
		return fmt.Errorf("PINECONE_API_KEY is required")
	}
	if c.PineconeHost == "" {
		return fmt.Errorf("PINECONE_HOST is required")
	}
	if c.EmbedAPIKey == "" && c.OpenAIAPIKey == "" {
		return fmt.Errorf("EMBED_API_KEY or OPENAI_API_KEY is required")
	}
	switch c.LLMProvider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
	case "groq":
		if c.GroqAPIKey == "" {
			return fmt.Errorf("GROQ_API_KEY is required for the groq provider")
		}
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLMProvider)
	}
	if c.ChunkMode != "sentence" && c.ChunkMode != "window" {
		return fmt.Errorf("unsupported CHUNK_MODE %q", c.ChunkMode)
	}
	return nil
}

// LLMAPIKey returns the completion key for the configured provider.
func (c Config) LLMAPIKey() string {
	if c.LLMProvider == "groq" {
		return c.GroqAPIKey
	}
	return c.OpenAIAPIKey
}

// ResolvedEmbedAPIKey falls back to the OpenAI key when no dedicated
// embedding key is set.
func (c Config) ResolvedEmbedAPIKey() string {
	if c.EmbedAPIKey != "" {
		return c.EmbedAPIKey
	}
	return c.OpenAIAPIKey
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
