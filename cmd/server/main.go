package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"endeerag/internal/app"
	"endeerag/internal/config"
	"endeerag/internal/server"
	"endeerag/internal/store"
	"endeerag/internal/util"
	"endeerag/pkg/ai"
	"endeerag/pkg/vectorstore"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	index := vectorstore.New(vectorstore.Config{
		BaseURL:   cfg.EndeeURL,
		IndexName: cfg.IndexName,
		Dimension: cfg.EmbeddingDim,
	})
	embedder := ai.NewOllamaEmbedder(ai.NewOllamaClient(cfg.EmbeddingBaseURL), cfg.EmbeddingModel, cfg.EmbeddingDim)
	generator := ai.NewFallbackGenerator(cfg.GeminiAPIKey)
	if !generator.Enabled() {
		slog.Warn("GEMINI_API_KEY not set, chat answers disabled")
	}

	documents := store.NewDocumentStore()
	conversations := store.NewConversationStore()
	queryLog := store.NewQueryLog()

	appCore := app.New(app.Config{
		Index:            index,
		Embedder:         embedder,
		Generator:        generator,
		Documents:        documents,
		Conversations:    conversations,
		QueryLog:         queryLog,
		ChunkSize:        cfg.ChunkSize,
		ChunkOverlap:     cfg.ChunkOverlap,
		TopK:             cfg.TopK,
		HistoryLimit:     cfg.HistoryLimit,
		EmbedConcurrency: cfg.EmbedConcurrency,
	})

	// The service still starts when the vector store is down; the index is
	// retried lazily on first use.
	startupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := appCore.EnsureIndex(startupCtx); err != nil {
		slog.Warn("vector index unavailable at startup", "err", err)
	}
	cancel()

	httpServer := server.New(server.Config{
		App:            appCore,
		Documents:      documents,
		Conversations:  conversations,
		QueryLog:       queryLog,
		MaxUploadBytes: int64(cfg.MaxUploadMB) << 20,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", addr, "index", cfg.IndexName)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "err", err)
	}
}
