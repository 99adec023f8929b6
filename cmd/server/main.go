package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mfields/doctheme/internal/api"
	"github.com/mfields/doctheme/internal/config"
	"github.com/mfields/doctheme/internal/docstore"
	"github.com/mfields/doctheme/internal/embed"
	"github.com/mfields/doctheme/internal/llm"
	"github.com/mfields/doctheme/internal/pinecone"
	"github.com/mfields/doctheme/internal/pipeline"
	"github.com/mfields/doctheme/internal/query"
	"github.com/mfields/doctheme/internal/themes"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients and stores.
	docs, err := docstore.Open(cfg.DocstorePath)
	if err != nil {
		log.Error("failed to open docstore", "path", cfg.DocstorePath, "error", err)
		os.Exit(1)
	}
	defer docs.Close()

	vectors := pinecone.NewClient(cfg.PineconeHost, cfg.PineconeAPIKey)
	embedder := embed.NewClient(embed.Config{
		BaseURL: cfg.EmbedBaseURL,
		APIKey:  cfg.ResolvedEmbedAPIKey(),
		Model:   cfg.EmbedModel,
	})
	llmClient, err := llm.NewClient(llm.Config{
		Provider: llm.Provider(cfg.LLMProvider),
		APIKey:   cfg.LLMAPIKey(),
		Model:    cfg.LLMModel,
	})
	if err != nil {
		log.Error("failed to create llm client", "error", err)
		os.Exit(1)
	}

	// Initialize pipeline and engines.
	orch := pipeline.NewOrchestrator(cfg, embedder, vectors, docs, log)
	orch.Start(ctx)

	queries := query.NewEngine(embedder, vectors, llmClient, log)
	themeEngine := themes.NewEngine(embedder, vectors, llmClient, cfg.EmbedDimension, log)

	// Initialize HTTP server.
	srv := api.NewServer(orch, queries, themeEngine, llmClient, docs, vectors, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		llmClient.Close()
		embedder.Close()
		vectors.Close()
	}()

	log.Info("starting doctheme", "port", cfg.Port, "provider", cfg.LLMProvider)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
