// Package server exposes the HTTP surface of the RAG service.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"endeerag/internal/app"
	"endeerag/internal/extract"
	"endeerag/internal/store"
	"endeerag/internal/util"
)

const (
	serviceName    = "Endee RAG API"
	serviceVersion = "3.0.0"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	Documents      *store.DocumentStore
	Conversations  *store.ConversationStore
	QueryLog       *store.QueryLog
	MaxUploadBytes int64
}

// Server routes requests to the orchestrator and the metadata stores.
type Server struct {
	app            *app.App
	documents      *store.DocumentStore
	conversations  *store.ConversationStore
	queryLog       *store.QueryLog
	maxUploadBytes int64
	mux            *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		app:            cfg.App,
		documents:      cfg.Documents,
		conversations:  cfg.Conversations,
		queryLog:       cfg.QueryLog,
		maxUploadBytes: cfg.MaxUploadBytes,
		mux:            http.NewServeMux(),
	}
	s.routes()
	return s
}

// Router returns the configured handler with the middleware stack applied.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(util.WithCORS(util.WithRequestLog(s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleRoot)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/stats", s.handleStats)
	s.mux.HandleFunc("/documents", s.handleDocuments)
	s.mux.HandleFunc("/documents/", s.handleDocumentByName)
	s.mux.HandleFunc("/ingest", s.handleIngest)
	s.mux.HandleFunc("/summarize", s.handleSummarize)
	s.mux.HandleFunc("/query", s.handleQuery)
	s.mux.HandleFunc("/conversations", s.handleConversations)
	s.mux.HandleFunc("/conversations/", s.handleConversationByID)
	s.mux.HandleFunc("/analytics", s.handleAnalytics)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": serviceName,
		"version": serviceVersion,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	endeeConnected := s.app.IndexReady()
	status := "healthy"
	if !endeeConnected {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":               status,
		"endee_connected":      endeeConnected,
		"gemini_enabled":       s.app.GeminiEnabled(),
		"documents_loaded":     s.documents.Count(),
		"active_conversations": s.conversations.Count(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_documents":     s.documents.Count(),
		"total_chunks":        s.documents.TotalChunks(),
		"total_conversations": s.conversations.Count(),
		"total_queries":       s.queryLog.Count(),
		"endee_connected":     s.app.IndexReady(),
		"gemini_enabled":      s.app.GeminiEnabled(),
	})
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	docs := s.documents.List()
	out := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		out = append(out, map[string]any{
			"filename":    doc.Filename,
			"chunks":      doc.Chunks,
			"size_bytes":  doc.SizeBytes,
			"uploaded_at": doc.UploadedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDocumentByName(w http.ResponseWriter, r *http.Request) {
	filename := strings.TrimPrefix(r.URL.Path, "/documents/")
	if filename == "" || strings.Contains(filename, "/") {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	// Vectors already upserted for this document stay in the index.
	if !s.documents.Delete(filename) {
		writeError(w, http.StatusNotFound, "Document not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "filename": filename})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if s.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required (field: file)")
		return
	}
	defer file.Close()

	res, err := s.app.Ingest(r.Context(), header.Filename, file)
	if err != nil {
		if errors.Is(err, extract.ErrNoText) {
			writeError(w, http.StatusBadRequest, "Could not extract any text from the file.")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req summarizeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	summary, err := s.app.Summarize(r.Context(), req.Filename)
	if err != nil {
		if errors.Is(err, app.ErrDocumentNotFound) {
			writeError(w, http.StatusNotFound, "Document not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"filename": req.Filename,
		"summary":  summary,
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req queryRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	mode := req.Mode
	if mode == "" {
		mode = "chat"
	}
	resp, err := s.app.Query(r.Context(), app.QueryRequest{
		Query:          req.Query,
		TopK:           req.TopK,
		Mode:           mode,
		ConversationID: req.ConversationID,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, s.conversations.List())
}

func (s *Server) handleConversationByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/conversations/")
	if rest == "" {
		http.NotFound(w, r)
		return
	}
	id, action, _ := strings.Cut(rest, "/")

	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			conv, ok := s.conversations.Get(id)
			if !ok {
				writeError(w, http.StatusNotFound, "Conversation not found")
				return
			}
			writeJSON(w, http.StatusOK, conv)
		case http.MethodDelete:
			if !s.conversations.Delete(id) {
				writeError(w, http.StatusNotFound, "Conversation not found")
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
		default:
			methodNotAllowed(w)
		}
	case "rename":
		if r.Method != http.MethodPut {
			methodNotAllowed(w)
			return
		}
		var req renameRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if !s.conversations.Rename(id, req.Title) {
			writeError(w, http.StatusNotFound, "Conversation not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "renamed", "id": id, "title": req.Title})
	case "export":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		text, ok := s.conversations.Export(id)
		if !ok {
			writeError(w, http.StatusNotFound, "Conversation not found")
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, text)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, s.queryLog.Summary())
}

type queryRequest struct {
	Query          string `json:"query"`
	TopK           int    `json:"top_k"`
	Mode           string `json:"mode"`
	ConversationID string `json:"conversation_id"`
}

type summarizeRequest struct {
	Filename string `json:"filename"`
}

type renameRequest struct {
	Title string `json:"title"`
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
