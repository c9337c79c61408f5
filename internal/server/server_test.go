package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"endeerag/internal/app"
	"endeerag/internal/store"
	"endeerag/pkg/vectorstore"
)

type stubIndex struct {
	hits    []vectorstore.Hit
	upserts int
}

func (f *stubIndex) Ready() bool                       { return true }
func (f *stubIndex) EnsureIndex(context.Context) error { return nil }
func (f *stubIndex) Upsert(context.Context, string, []float32, vectorstore.Payload) error {
	f.upserts++
	return nil
}
func (f *stubIndex) Query(_ context.Context, _ []float32, topK int) ([]vectorstore.Hit, error) {
	if len(f.hits) > topK {
		return f.hits[:topK], nil
	}
	return f.hits, nil
}

type stubEmbedder struct{}

func (stubEmbedder) EmbedText(context.Context, string) ([]float32, error) {
	return make([]float32, 384), nil
}

type stubGenerator struct{ answer string }

func (g stubGenerator) Generate(context.Context, string) string { return g.answer }
func (stubGenerator) Enabled() bool                             { return true }

func newTestServer(t *testing.T, index *stubIndex) (*httptest.Server, Config) {
	t.Helper()
	cfg := Config{
		Documents:     store.NewDocumentStore(),
		Conversations: store.NewConversationStore(),
		QueryLog:      store.NewQueryLog(),
	}
	cfg.App = app.New(app.Config{
		Index:         index,
		Embedder:      stubEmbedder{},
		Generator:     stubGenerator{answer: "generated answer"},
		Documents:     cfg.Documents,
		Conversations: cfg.Conversations,
		QueryLog:      cfg.QueryLog,
	})
	srv := httptest.NewServer(New(cfg).Router())
	t.Cleanup(srv.Close)
	return srv, cfg
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, body any, out any) int {
	t.Helper()
	data, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func uploadFile(t *testing.T, url, filename, content string) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := io.WriteString(fw, content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	mw.Close()

	resp, err := http.Post(url+"/ingest", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST /ingest: %v", err)
	}
	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	resp.Body.Close()
	return resp, body
}

func TestRootAndHealth(t *testing.T) {
	srv, _ := newTestServer(t, &stubIndex{})

	var root map[string]string
	if code := getJSON(t, srv.URL+"/", &root); code != http.StatusOK {
		t.Fatalf("GET / status %d", code)
	}
	if root["service"] != "Endee RAG API" || root["status"] != "ok" {
		t.Fatalf("root payload: %v", root)
	}

	var health map[string]any
	if code := getJSON(t, srv.URL+"/health", &health); code != http.StatusOK {
		t.Fatalf("GET /health status %d", code)
	}
	if health["status"] != "healthy" || health["endee_connected"] != true {
		t.Fatalf("health payload: %v", health)
	}
}

func TestUnknownPathIs404(t *testing.T) {
	srv, _ := newTestServer(t, &stubIndex{})
	if code := getJSON(t, srv.URL+"/nope", nil); code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
}

func TestIngestListDeleteDocument(t *testing.T) {
	index := &stubIndex{}
	srv, _ := newTestServer(t, index)

	resp, body := uploadFile(t, srv.URL, "notes.txt", "Hello world. This is a test.")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ingest status %d: %v", resp.StatusCode, body)
	}
	if body["chunks_processed"].(float64) != 1 {
		t.Fatalf("chunks_processed = %v", body["chunks_processed"])
	}
	if body["size_bytes"].(float64) != 28 {
		t.Fatalf("size_bytes = %v", body["size_bytes"])
	}
	if index.upserts != 1 {
		t.Fatalf("upserts = %d", index.upserts)
	}

	var docs []map[string]any
	if code := getJSON(t, srv.URL+"/documents", &docs); code != http.StatusOK {
		t.Fatalf("GET /documents status %d", code)
	}
	if len(docs) != 1 || docs[0]["filename"] != "notes.txt" {
		t.Fatalf("documents: %v", docs)
	}

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/documents/notes.txt", nil)
	delResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	delResp.Body.Close()
	if delResp.StatusCode != http.StatusOK {
		t.Fatalf("delete status %d", delResp.StatusCode)
	}
}

func TestDeleteUnknownDocumentIs404(t *testing.T) {
	srv, _ := newTestServer(t, &stubIndex{})
	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/documents/unknown.txt", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	var body map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body["error"] != "Document not found" {
		t.Fatalf("error = %q", body["error"])
	}
}

func TestIngestEmptyFileIs400(t *testing.T) {
	srv, _ := newTestServer(t, &stubIndex{})
	resp, body := uploadFile(t, srv.URL, "empty.txt", "   ")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d: %v", resp.StatusCode, body)
	}
}

func TestQuerySearchMode(t *testing.T) {
	index := &stubIndex{hits: []vectorstore.Hit{
		{ID: "1", Similarity: 0.9, Meta: vectorstore.Payload{Filename: "notes.txt", Content: "alpha"}},
		{ID: "2", Similarity: 0.5, Meta: vectorstore.Payload{Filename: "notes.txt", Content: "beta"}},
	}}
	srv, _ := newTestServer(t, index)

	var out struct {
		Results        []map[string]any `json:"results"`
		Answer         *string          `json:"answer"`
		ConversationID *string          `json:"conversation_id"`
	}
	code := postJSON(t, srv.URL+"/query", map[string]any{"query": "what is X", "mode": "search"}, &out)
	if code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if out.Answer != nil || out.ConversationID != nil {
		t.Fatalf("search mode must return null answer/conversation_id: %+v", out)
	}
	if len(out.Results) != 2 {
		t.Fatalf("results: %v", out.Results)
	}
}

func TestQueryChatModeRoundTrip(t *testing.T) {
	srv, cfg := newTestServer(t, &stubIndex{})

	var out struct {
		Answer         *string `json:"answer"`
		ConversationID *string `json:"conversation_id"`
	}
	code := postJSON(t, srv.URL+"/query", map[string]any{"query": "what is X"}, &out)
	if code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if out.Answer == nil || *out.Answer != "generated answer" {
		t.Fatalf("answer: %v", out.Answer)
	}
	if out.ConversationID == nil {
		t.Fatalf("missing conversation id")
	}

	var conv store.Conversation
	if code := getJSON(t, srv.URL+"/conversations/"+*out.ConversationID, &conv); code != http.StatusOK {
		t.Fatalf("GET conversation status %d", code)
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("messages: %v", conv.Messages)
	}

	// Rename, export, delete round trip.
	renameBody, _ := json.Marshal(map[string]string{"title": "renamed"})
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/conversations/"+*out.ConversationID+"/rename", bytes.NewReader(renameBody))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("rename status %d", resp.StatusCode)
	}

	expResp, err := http.Get(srv.URL + "/conversations/" + *out.ConversationID + "/export")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	exported, _ := io.ReadAll(expResp.Body)
	expResp.Body.Close()
	if !strings.HasPrefix(string(exported), "# renamed") {
		t.Fatalf("export content:\n%s", exported)
	}
	if ct := expResp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("export content type %q", ct)
	}

	if cfg.QueryLog.Count() != 1 {
		t.Fatalf("query log count = %d", cfg.QueryLog.Count())
	}
}

func TestQueryValidation(t *testing.T) {
	srv, _ := newTestServer(t, &stubIndex{})
	if code := postJSON(t, srv.URL+"/query", map[string]any{"query": "  "}, nil); code != http.StatusBadRequest {
		t.Fatalf("blank query should 400, got %d", code)
	}
}

func TestSummarizeEndpoints(t *testing.T) {
	srv, cfg := newTestServer(t, &stubIndex{})
	if code := postJSON(t, srv.URL+"/summarize", map[string]string{"filename": "nope.txt"}, nil); code != http.StatusNotFound {
		t.Fatalf("unknown file should 404, got %d", code)
	}

	cfg.Documents.Put(store.Document{Filename: "doc.txt", FullText: "Some document text."})
	var out map[string]string
	if code := postJSON(t, srv.URL+"/summarize", map[string]string{"filename": "doc.txt"}, &out); code != http.StatusOK {
		t.Fatalf("summarize status %d", code)
	}
	if out["summary"] != "generated answer" || out["filename"] != "doc.txt" {
		t.Fatalf("summarize payload: %v", out)
	}
}

func TestAnalyticsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &stubIndex{})
	postJSON(t, srv.URL+"/query", map[string]any{"query": "one", "mode": "search"}, nil)
	postJSON(t, srv.URL+"/query", map[string]any{"query": "two", "mode": "search"}, nil)

	var out struct {
		TotalQueries int              `json:"total_queries"`
		Recent       []map[string]any `json:"recent"`
	}
	if code := getJSON(t, srv.URL+"/analytics", &out); code != http.StatusOK {
		t.Fatalf("analytics status %d", code)
	}
	if out.TotalQueries != 2 || len(out.Recent) != 2 {
		t.Fatalf("analytics payload: %+v", out)
	}
	if out.Recent[0]["query"] != "two" {
		t.Fatalf("recent not newest-first: %+v", out.Recent)
	}
}

func TestStatsEndpoint(t *testing.T) {
	srv, cfg := newTestServer(t, &stubIndex{})
	cfg.Documents.Put(store.Document{Filename: "a.txt", Chunks: 4})
	cfg.Documents.Put(store.Document{Filename: "b.txt", Chunks: 2})

	var out map[string]any
	if code := getJSON(t, srv.URL+"/stats", &out); code != http.StatusOK {
		t.Fatalf("stats status %d", code)
	}
	if out["total_documents"].(float64) != 2 || out["total_chunks"].(float64) != 6 {
		t.Fatalf("stats payload: %v", out)
	}
}
