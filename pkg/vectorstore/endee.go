// Package vectorstore is a minimal REST client for the Endee vector
// database: index lifecycle, upsert, and nearest-neighbor search.
package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ErrUnavailable indicates the index could not be reached or created. The
// caller decides whether that degrades to a no-op or fails the operation.
var ErrUnavailable = errors.New("vector index unavailable")

// Payload is the opaque chunk metadata stored alongside each vector.
type Payload struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// Hit is one nearest-neighbor result, sorted by descending similarity.
type Hit struct {
	ID         string  `json:"id"`
	Similarity float64 `json:"similarity"`
	Meta       Payload `json:"meta"`
}

// Config holds client settings.
type Config struct {
	BaseURL   string
	IndexName string
	Dimension int
	Timeout   time.Duration
}

// Client talks to one named Endee index. The index is ensured lazily: a
// failed EnsureIndex leaves the client in a degraded state and is retried
// on the next use instead of failing startup.
type Client struct {
	baseURL    string
	indexName  string
	dimension  int
	httpClient *http.Client

	mu    sync.Mutex
	ready bool
}

// New constructs a client. It performs no network I/O; call EnsureIndex or
// let the first Upsert/Query attempt it.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/") + "/api/v1",
		indexName:  cfg.IndexName,
		dimension:  cfg.Dimension,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Ready reports whether the index has been verified or created.
func (c *Client) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// EnsureIndex fetches the index by name, creating it with the configured
// dimension (cosine similarity, int8d precision) when absent. Idempotent;
// on failure the client stays degraded and the error is returned.
func (c *Client) EnsureIndex(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ensureIndexLocked(ctx)
}

func (c *Client) ensureIndexLocked(ctx context.Context) error {
	if c.ready {
		return nil
	}
	status, err := c.do(ctx, http.MethodGet, "/index/"+c.indexName, nil, nil)
	if err == nil && status == http.StatusOK {
		c.ready = true
		return nil
	}
	if err != nil && status == 0 {
		return fmt.Errorf("reach endee: %w", err)
	}
	body := map[string]any{
		"name":       c.indexName,
		"dimension":  c.dimension,
		"space_type": "cosine",
		"precision":  "int8d",
	}
	if _, err := c.do(ctx, http.MethodPost, "/index", body, nil); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	c.ready = true
	slog.Info("vector index created", "index", c.indexName, "dimension", c.dimension)
	return nil
}

// ensureReady retries EnsureIndex lazily. Failures are logged, not raised.
func (c *Client) ensureReady(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ready {
		return true
	}
	if err := c.ensureIndexLocked(ctx); err != nil {
		slog.Warn("vector index unavailable", "index", c.indexName, "err", err)
		return false
	}
	return true
}

// Upsert inserts or replaces one vector by id.
func (c *Client) Upsert(ctx context.Context, id string, vector []float32, meta Payload) error {
	if !c.ensureReady(ctx) {
		return ErrUnavailable
	}
	body := map[string]any{
		"vectors": []upsertRecord{{ID: id, Vector: vector, Meta: meta}},
	}
	if _, err := c.do(ctx, http.MethodPost, "/index/"+c.indexName+"/vectors", body, nil); err != nil {
		return fmt.Errorf("upsert vector: %w", err)
	}
	return nil
}

// Query returns up to topK nearest neighbors by descending similarity.
// A degraded index yields an empty result, not an error.
func (c *Client) Query(ctx context.Context, vector []float32, topK int) ([]Hit, error) {
	if !c.ensureReady(ctx) {
		return nil, nil
	}
	if topK <= 0 {
		topK = 5
	}
	body := map[string]any{
		"vector": vector,
		"top_k":  topK,
	}
	var resp struct {
		Results []Hit `json:"results"`
	}
	if _, err := c.do(ctx, http.MethodPost, "/index/"+c.indexName+"/search", body, &resp); err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	return resp.Results, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) (int, error) {
	var reader *bytes.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error != "" {
			return resp.StatusCode, fmt.Errorf("endee api error: %s: %s", resp.Status, errResp.Error)
		}
		return resp.StatusCode, fmt.Errorf("endee api error: %s", resp.Status)
	}
	if out == nil {
		return resp.StatusCode, nil
	}
	return resp.StatusCode, json.NewDecoder(resp.Body).Decode(out)
}

type upsertRecord struct {
	ID     string    `json:"id"`
	Vector []float32 `json:"vector"`
	Meta   Payload   `json:"meta"`
}
