// Package store holds the process-lifetime in-memory state: ingested
// document metadata, conversations, and the query log. Every store guards
// its maps with a mutex; requests are served on OS threads.
package store

import (
	"sync"
	"time"
)

// Document is the metadata kept for one ingested file. Filename is the
// identity key; re-ingesting the same filename overwrites silently.
type Document struct {
	Filename   string    `json:"filename"`
	Chunks     int       `json:"chunks"`
	SizeBytes  int64     `json:"size_bytes"`
	UploadedAt time.Time `json:"uploaded_at"`
	Preview    string    `json:"preview,omitempty"`
	FullText   string    `json:"-"`
}

// DocumentStore maps filename to document metadata.
type DocumentStore struct {
	mu    sync.RWMutex
	docs  map[string]Document
	order []string
}

// NewDocumentStore initializes an empty store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string]Document)}
}

// Put stores or replaces a document record, tracking insertion order.
func (s *DocumentStore) Put(doc Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docs[doc.Filename]; !exists {
		s.order = append(s.order, doc.Filename)
	}
	s.docs[doc.Filename] = doc
}

// Get retrieves a document by filename.
func (s *DocumentStore) Get(filename string) (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[filename]
	return doc, ok
}

// Delete removes a document record. The vectors it produced stay in the
// index; there is no index-side delete.
func (s *DocumentStore) Delete(filename string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[filename]; !ok {
		return false
	}
	delete(s.docs, filename)
	filtered := s.order[:0]
	for _, name := range s.order {
		if name != filename {
			filtered = append(filtered, name)
		}
	}
	s.order = filtered
	return true
}

// List returns documents in insertion order.
func (s *DocumentStore) List() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]Document, 0, len(s.order))
	for _, name := range s.order {
		if doc, ok := s.docs[name]; ok {
			res = append(res, doc)
		}
	}
	return res
}

// Count returns the number of documents.
func (s *DocumentStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// TotalChunks sums chunk counts across all documents.
func (s *DocumentStore) TotalChunks() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, doc := range s.docs {
		total += doc.Chunks
	}
	return total
}
