package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8090" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.LLMProvider != "openai" {
		t.Errorf("LLMProvider = %q", cfg.LLMProvider)
	}
	if cfg.EmbedModel != "text-embedding-3-small" {
		t.Errorf("EmbedModel = %q", cfg.EmbedModel)
	}
	if cfg.DefaultChunkSize != 500 || cfg.DefaultChunkOverlap != 50 {
		t.Errorf("chunk defaults = %d/%d", cfg.DefaultChunkSize, cfg.DefaultChunkOverlap)
	}
	if cfg.QueryTopK != 5 || cfg.ThemesTopK != 100 {
		t.Errorf("topK defaults = %d/%d", cfg.QueryTopK, cfg.ThemesTopK)
	}
	if cfg.JobTTL != time.Hour {
		t.Errorf("JobTTL = %v", cfg.JobTTL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("WORKER_COUNT", "8")
	t.Setenv("JOB_TTL", "30m")
	t.Setenv("PDF_FALLBACK_PDFTOTEXT", "false")

	cfg := Load()
	if cfg.Port != "9000" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.WorkerCount != 8 {
		t.Errorf("WorkerCount = %d", cfg.WorkerCount)
	}
	if cfg.JobTTL != 30*time.Minute {
		t.Errorf("JobTTL = %v", cfg.JobTTL)
	}
	if cfg.PDFFallbackPdftotext {
		t.Error("PDFFallbackPdftotext should be false")
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("WORKER_COUNT", "-3")
	t.Setenv("JOB_TTL", "not-a-duration")

	cfg := Load()
	if cfg.WorkerCount != 4 {
		t.Errorf("WorkerCount = %d, want default 4", cfg.WorkerCount)
	}
	if cfg.JobTTL != time.Hour {
		t.Errorf("JobTTL = %v, want default 1h", cfg.JobTTL)
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		ChunkMode:      "sentence",
		LLMProvider:    "openai",
		OpenAIAPIKey:   "sk-test",
		PineconeAPIKey: "pc-test",
		PineconeHost:   "https://index.example.pinecone.io",
	}
	if err := base.Validate(); err != nil {
		t.Errorf("Validate = %v, want nil", err)
	}

	missing := base
	missing.PineconeAPIKey = ""
	if err := missing.Validate(); err == nil {
		t.Error("Validate passed without PINECONE_API_KEY")
	}

	groq := base
	groq.LLMProvider = "groq"
	if err := groq.Validate(); err == nil {
		t.Error("Validate passed for groq provider without GROQ_API_KEY")
	}
	groq.GroqAPIKey = "gsk-test"
	if err := groq.Validate(); err != nil {
		t.Errorf("Validate = %v, want nil", err)
	}

	unknown := base
	unknown.LLMProvider = "mystery"
	if err := unknown.Validate(); err == nil {
		t.Error("Validate passed for unsupported provider")
	}
}

func TestLLMAPIKeySelection(t *testing.T) {
	cfg := Config{LLMProvider: "openai", OpenAIAPIKey: "oai", GroqAPIKey: "grq"}
	if got := cfg.LLMAPIKey(); got != "oai" {
		t.Errorf("LLMAPIKey = %q", got)
	}
	cfg.LLMProvider = "groq"
	if got := cfg.LLMAPIKey(); got != "grq" {
		t.Errorf("LLMAPIKey = %q", got)
	}
}
