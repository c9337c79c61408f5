package ai

import (
	"context"
	"fmt"
)

// Embedder provides fixed-dimension embeddings for text.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// OllamaEmbedder wraps Ollama embedding calls with a fixed model and dimension.
type OllamaEmbedder struct {
	client     *OllamaClient
	model      string
	dimensions int
}

// NewOllamaEmbedder builds an Ollama-based embedder.
func NewOllamaEmbedder(client *OllamaClient, model string, dimensions int) *OllamaEmbedder {
	return &OllamaEmbedder{client: client, model: model, dimensions: dimensions}
}

// EmbedText returns the embedding for text, enforcing the configured
// dimension so a misconfigured model is caught before anything is indexed.
func (e *OllamaEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vector, err := e.client.EmbedText(ctx, e.model, text, e.dimensions)
	if err != nil {
		return nil, err
	}
	if e.dimensions > 0 && len(vector) != e.dimensions {
		return nil, fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(vector), e.dimensions)
	}
	return vector, nil
}
