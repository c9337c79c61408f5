package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Message is one turn in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is an append-only message log with a title.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary is the listing view of a conversation.
type Summary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ConversationStore maps conversation id to conversation. Unbounded for
// the process lifetime.
type ConversationStore struct {
	mu    sync.RWMutex
	convs map[string]*Conversation
}

// NewConversationStore initializes an empty store.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{convs: make(map[string]*Conversation)}
}

// Create mints a conversation with a fresh UUID and an empty message log.
func (s *ConversationStore) Create(title string) Conversation {
	now := time.Now().UTC()
	conv := &Conversation{
		ID:        uuid.NewString(),
		Title:     title,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs[conv.ID] = conv
	return *conv
}

// Get returns a copy of the conversation.
func (s *ConversationStore) Get(id string) (Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.convs[id]
	if !ok {
		return Conversation{}, false
	}
	return snapshot(conv), true
}

// Exists reports whether the id is known.
func (s *ConversationStore) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.convs[id]
	return ok
}

// AppendTurn appends a user/assistant message pair and bumps UpdatedAt.
// Appending the pair under one lock keeps the log length even.
func (s *ConversationStore) AppendTurn(id, userContent, assistantContent string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.convs[id]
	if !ok {
		return false
	}
	conv.Messages = append(conv.Messages,
		Message{Role: "user", Content: userContent},
		Message{Role: "assistant", Content: assistantContent},
	)
	conv.UpdatedAt = time.Now().UTC()
	return true
}

// History returns up to limit most recent messages in order.
func (s *ConversationStore) History(id string, limit int) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.convs[id]
	if !ok || limit <= 0 {
		return nil
	}
	msgs := conv.Messages
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// List returns summaries sorted by UpdatedAt descending.
func (s *ConversationStore) List() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]Summary, 0, len(s.convs))
	for _, conv := range s.convs {
		res = append(res, Summary{
			ID:           conv.ID,
			Title:        conv.Title,
			MessageCount: len(conv.Messages),
			CreatedAt:    conv.CreatedAt,
			UpdatedAt:    conv.UpdatedAt,
		})
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].UpdatedAt.After(res[j].UpdatedAt)
	})
	return res
}

// Rename overwrites the title.
func (s *ConversationStore) Rename(id, title string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.convs[id]
	if !ok {
		return false
	}
	conv.Title = title
	return true
}

// Delete removes a conversation.
func (s *ConversationStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.convs[id]; !ok {
		return false
	}
	delete(s.convs, id)
	return true
}

// Count returns the number of conversations.
func (s *ConversationStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.convs)
}

// Export renders the conversation as Markdown: the title as a heading, then
// each message labeled by speaker and separated by horizontal rules.
func (s *ConversationStore) Export(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.convs[id]
	if !ok {
		return "", false
	}
	var sb strings.Builder
	sb.WriteString("# " + conv.Title + "\n\n")
	sb.WriteString("*Exported from Endee RAG Assistant*\n\n---\n\n")
	for _, msg := range conv.Messages {
		label := "**Endee Assistant**"
		if msg.Role == "user" {
			label = "**You**"
		}
		sb.WriteString(label + ":\n\n" + msg.Content + "\n\n---\n\n")
	}
	return sb.String(), true
}

func snapshot(conv *Conversation) Conversation {
	out := *conv
	out.Messages = make([]Message, len(conv.Messages))
	copy(out.Messages, conv.Messages)
	return out
}
