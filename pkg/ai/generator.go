package ai

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// DefaultModelChain lists Gemini models in priority order. When a model
// fails, the generator falls through to the next one.
var DefaultModelChain = []string{
	"gemini-2.0-flash",
	"gemini-1.5-flash",
	"gemini-1.5-flash-latest",
	"gemini-pro",
	"gemini-pro-latest",
}

const (
	// MissingKeyMessage is returned when no API key is configured.
	MissingKeyMessage = "Gemini API Key is missing. Please set GEMINI_API_KEY to enable AI chat."
	// ExhaustedMessage is returned when every model in the chain failed.
	ExhaustedMessage = "All Gemini models are currently rate-limited. " +
		"Please wait a minute and try again, or check your API quota at " +
		"https://ai.google.dev/gemini-api/docs/rate-limits."

	triesPerModel  = 2
	defaultBackoff = 2 * time.Second
)

// modelCaller is the single-model generation call the fallback chain drives.
type modelCaller interface {
	GenerateText(ctx context.Context, model, prompt string) (string, error)
}

// FallbackGenerator produces text through a prioritized chain of models.
// Generate never fails: every upstream error is absorbed and converted to a
// user-facing message.
type FallbackGenerator struct {
	caller  modelCaller
	chain   []string
	backoff time.Duration
}

// NewFallbackGenerator builds a generator backed by Gemini. An empty API key
// yields a disabled generator whose Generate short-circuits to
// MissingKeyMessage without any network calls.
func NewFallbackGenerator(apiKey string) *FallbackGenerator {
	g := &FallbackGenerator{
		chain:   DefaultModelChain,
		backoff: defaultBackoff,
	}
	if strings.TrimSpace(apiKey) == "" {
		return g
	}
	client, err := NewGeminiClient(apiKey)
	if err != nil {
		return g
	}
	g.caller = client
	return g
}

// Enabled reports whether a credential is configured.
func (g *FallbackGenerator) Enabled() bool {
	return g.caller != nil
}

// Generate runs the prompt through the model chain and always returns a
// string. Rate-limited attempts are retried once on the same model after a
// backoff; any other error moves straight to the next model.
func (g *FallbackGenerator) Generate(ctx context.Context, prompt string) string {
	if g.caller == nil {
		return MissingKeyMessage
	}

	var lastErr error
	for _, model := range g.chain {
		for attempt := 1; attempt <= triesPerModel; attempt++ {
			text, err := g.caller.GenerateText(ctx, model, prompt)
			if err == nil {
				return text
			}
			lastErr = err
			if !isRateLimited(err) {
				slog.Error("generation failed", "model", model, "err", err)
				break
			}
			slog.Warn("model rate limited", "model", model, "attempt", attempt)
			if g.backoff > 0 {
				select {
				case <-time.After(g.backoff):
				case <-ctx.Done():
					return ExhaustedMessage
				}
			}
		}
	}
	slog.Error("all models exhausted", "err", lastErr)
	return ExhaustedMessage
}

// isRateLimited classifies quota-shaped failures: a 429 status or an error
// message mentioning quota or rate limits.
func isRateLimited(err error) bool {
	msg := err.Error()
	if strings.Contains(msg, "429") {
		return true
	}
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "quota") || strings.Contains(lower, "rate")
}
