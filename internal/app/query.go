package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"endeerag/internal/store"
)

// noContentPlaceholder stands in for a hit whose payload carries no text.
const noContentPlaceholder = "No content available"

// QueryRequest carries one /query call.
type QueryRequest struct {
	Query          string
	TopK           int
	Mode           string
	ConversationID string
}

// QueryResult is one retrieved chunk exposed to the client.
type QueryResult struct {
	ID       string  `json:"id"`
	Score    float64 `json:"score"`
	Content  string  `json:"content"`
	Filename string  `json:"filename"`
}

// QueryResponse is the answer payload. Answer and ConversationID are null
// outside chat mode.
type QueryResponse struct {
	Results        []QueryResult `json:"results"`
	Answer         *string       `json:"answer"`
	ConversationID *string       `json:"conversation_id"`
}

// Query retrieves the nearest chunks for the query and, in chat mode, folds
// in conversation history and generates an answer. Every call is recorded
// in the query log with its wall-clock duration.
func (a *App) Query(ctx context.Context, req QueryRequest) (QueryResponse, error) {
	start := time.Now()
	topK := req.TopK
	if topK <= 0 {
		topK = a.topK
	}

	vector, err := a.embedder.EmbedText(ctx, req.Query)
	if err != nil {
		return QueryResponse{}, fmt.Errorf("embed query: %w", err)
	}
	hits, err := a.index.Query(ctx, vector, topK)
	if err != nil {
		return QueryResponse{}, fmt.Errorf("search index: %w", err)
	}

	results := make([]QueryResult, 0, len(hits))
	var contextChunks []string
	for _, hit := range hits {
		content := hit.Meta.Content
		if content == "" {
			content = noContentPlaceholder
		} else {
			contextChunks = append(contextChunks, content)
		}
		filename := hit.Meta.Filename
		if filename == "" {
			filename = "unknown"
		}
		results = append(results, QueryResult{
			ID:       hit.ID,
			Score:    hit.Similarity,
			Content:  content,
			Filename: filename,
		})
	}

	resp := QueryResponse{Results: results}
	if req.ConversationID != "" {
		id := req.ConversationID
		resp.ConversationID = &id
	}

	if req.Mode == "chat" {
		var history []store.Message
		if req.ConversationID != "" {
			history = a.conversations.History(req.ConversationID, a.historyLimit)
		}
		answer := a.generator.Generate(ctx, buildAnswerPrompt(req.Query, contextChunks, history))

		convID := req.ConversationID
		if convID == "" || !a.conversations.Exists(convID) {
			convID = a.conversations.Create(titleFromQuery(req.Query)).ID
		}
		a.conversations.AppendTurn(convID, req.Query, answer)
		resp.Answer = &answer
		resp.ConversationID = &convID
	}

	a.queryLog.Record(store.QueryLogEntry{
		Query:          req.Query,
		Mode:           req.Mode,
		Timestamp:      time.Now().UTC(),
		ResponseTimeMs: time.Since(start).Milliseconds(),
		ResultsCount:   len(results),
	})
	return resp, nil
}

// buildAnswerPrompt combines the assistant persona, recent history, the
// retrieved context, and the user question into one generation prompt.
func buildAnswerPrompt(query string, contextChunks []string, history []store.Message) string {
	contextText := "(no relevant documents found)"
	if len(contextChunks) > 0 {
		contextText = strings.Join(contextChunks, "\n\n")
	}

	historyBlock := ""
	if len(history) > 0 {
		var sb strings.Builder
		sb.WriteString("Previous conversation:\n")
		for _, msg := range history {
			role := "Assistant"
			if msg.Role == "user" {
				role = "User"
			}
			sb.WriteString(role + ": " + msg.Content + "\n")
		}
		sb.WriteString("\n")
		historyBlock = sb.String()
	}

	return fmt.Sprintf(`You are Endee Assistant, a knowledgeable, friendly AI document assistant.
Use the retrieved context below to answer the user's question accurately.
If the answer is not in the context, say so clearly but remain helpful.
Format your answer in Markdown for readability (use headers, bullet points, bold, etc.).

%s---
Retrieved Context:
%s

---
User Question: %s

Answer (in Markdown):`, historyBlock, contextText, query)
}
