package app

import (
	"context"
	"fmt"
)

// summarizeInputCap bounds the text handed to the model, to stay inside
// its token limits.
const summarizeInputCap = 3000

// Summarize generates a bullet-point summary of an ingested document.
// Generation-side failures surface as text, same as chat answers.
func (a *App) Summarize(ctx context.Context, filename string) (string, error) {
	doc, ok := a.documents.Get(filename)
	if !ok {
		return "", ErrDocumentNotFound
	}
	text := doc.FullText
	if text == "" {
		text = doc.Preview
	}
	truncated := truncateRunes(text, summarizeInputCap)
	return a.generator.Generate(ctx, buildSummaryPrompt(filename, truncated)), nil
}

func buildSummaryPrompt(filename, text string) string {
	return fmt.Sprintf(`Summarise the following document in 3-5 bullet points.
Be concise but capture the key information. Format in Markdown.

Document: %s

Content:
%s

Summary (Markdown bullet points):`, filename, text)
}
