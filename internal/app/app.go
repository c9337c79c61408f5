// Package app is the retrieval orchestrator: it wires the chunker, the
// embedding and generation gateways, the vector index, and the in-memory
// stores into the ingest / query / summarize flows.
package app

import (
	"context"
	"errors"
	"strings"

	"endeerag/internal/chunk"
	"endeerag/internal/store"
	"endeerag/pkg/ai"
	"endeerag/pkg/vectorstore"
)

var (
	// ErrDocumentNotFound indicates an unknown filename.
	ErrDocumentNotFound = errors.New("document not found")
)

// VectorIndex is the slice of the vector store gateway the orchestrator
// drives. *vectorstore.Client implements it.
type VectorIndex interface {
	Ready() bool
	EnsureIndex(ctx context.Context) error
	Upsert(ctx context.Context, id string, vector []float32, meta vectorstore.Payload) error
	Query(ctx context.Context, vector []float32, topK int) ([]vectorstore.Hit, error)
}

// Generator produces answer text and never fails. *ai.FallbackGenerator
// implements it.
type Generator interface {
	Generate(ctx context.Context, prompt string) string
	Enabled() bool
}

// Config wires the orchestrator's collaborators and tuning knobs.
type Config struct {
	Index         VectorIndex
	Embedder      ai.Embedder
	Generator     Generator
	Documents     *store.DocumentStore
	Conversations *store.ConversationStore
	QueryLog      *store.QueryLog

	ChunkSize        int
	ChunkOverlap     int
	TopK             int
	HistoryLimit     int // messages, not turns
	EmbedConcurrency int
}

// App is the core application service.
type App struct {
	index         VectorIndex
	embedder      ai.Embedder
	generator     Generator
	documents     *store.DocumentStore
	conversations *store.ConversationStore
	queryLog      *store.QueryLog

	chunkSize        int
	chunkOverlap     int
	topK             int
	historyLimit     int
	embedConcurrency int
}

// New constructs the orchestrator, applying defaults for unset knobs.
func New(cfg Config) *App {
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = chunk.DefaultSize
	}
	chunkOverlap := cfg.ChunkOverlap
	if chunkOverlap < 0 {
		chunkOverlap = chunk.DefaultOverlap
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = 5
	}
	historyLimit := cfg.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = 6
	}
	embedConcurrency := cfg.EmbedConcurrency
	if embedConcurrency <= 0 {
		embedConcurrency = 1
	}
	return &App{
		index:            cfg.Index,
		embedder:         cfg.Embedder,
		generator:        cfg.Generator,
		documents:        cfg.Documents,
		conversations:    cfg.Conversations,
		queryLog:         cfg.QueryLog,
		chunkSize:        chunkSize,
		chunkOverlap:     chunkOverlap,
		topK:             topK,
		historyLimit:     historyLimit,
		embedConcurrency: embedConcurrency,
	}
}

// IndexReady reports whether the vector index is reachable and ensured.
func (a *App) IndexReady() bool {
	return a.index.Ready()
}

// GeminiEnabled reports whether a generation credential is configured.
func (a *App) GeminiEnabled() bool {
	return a.generator.Enabled()
}

// EnsureIndex attempts index creation at startup. Failure degrades ingest
// and search to no-ops; it is retried lazily on first use.
func (a *App) EnsureIndex(ctx context.Context) error {
	return a.index.EnsureIndex(ctx)
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// titleFromQuery derives a conversation title from the first user query:
// the first 60 characters, with an ellipsis when truncated.
func titleFromQuery(query string) string {
	query = strings.TrimSpace(query)
	title := truncateRunes(query, 60)
	if len([]rune(query)) > 60 {
		title += "…"
	}
	return title
}
