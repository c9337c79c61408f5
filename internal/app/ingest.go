package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"endeerag/internal/chunk"
	"endeerag/internal/extract"
	"endeerag/internal/store"
	"endeerag/pkg/vectorstore"
)

const previewLength = 300

// IngestResult summarizes one successful ingestion.
type IngestResult struct {
	Filename        string `json:"filename"`
	Status          string `json:"status"`
	ChunksProcessed int    `json:"chunks_processed"`
	SizeBytes       int64  `json:"size_bytes"`
	Preview         string `json:"preview"`
}

// Ingest spools the upload to a temp file, extracts its text, chunks it,
// embeds and upserts every chunk, and records document metadata. The temp
// file is removed on every path out. extract.ErrNoText means the upload
// carried nothing indexable and is the caller's 400.
func (a *App) Ingest(ctx context.Context, filename string, file io.Reader) (IngestResult, error) {
	tmp, err := os.CreateTemp("", "ingest-*"+sanitizeExt(filename))
	if err != nil {
		return IngestResult{}, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	size, err := io.Copy(tmp, file)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return IngestResult{}, fmt.Errorf("spool upload: %w", err)
	}

	text, err := extract.Text(filename, tmp.Name())
	if err != nil {
		if errors.Is(err, extract.ErrNoText) {
			return IngestResult{}, err
		}
		// Unreadable files surface as extraction failures too.
		return IngestResult{}, fmt.Errorf("%w: %s", extract.ErrNoText, err)
	}

	chunks := chunk.Split(text, a.chunkSize, a.chunkOverlap)
	upserted, err := a.embedAndUpsert(ctx, filename, chunks)
	if err != nil {
		return IngestResult{}, err
	}

	preview := strings.TrimSpace(truncateRunes(text, previewLength))
	a.documents.Put(store.Document{
		Filename:   filename,
		Chunks:     upserted,
		SizeBytes:  size,
		UploadedAt: time.Now().UTC(),
		Preview:    preview,
		FullText:   text,
	})
	slog.Info("document ingested", "filename", filename, "chunks", upserted, "size_bytes", size)

	return IngestResult{
		Filename:        filename,
		Status:          "ingested",
		ChunksProcessed: upserted,
		SizeBytes:       size,
		Preview:         preview,
	}, nil
}

// embedAndUpsert pushes chunks through the embedding gateway into the index
// with bounded concurrency and returns how many were actually upserted. An
// unavailable index downgrades upserts to skips; embedding failures abort.
func (a *App) embedAndUpsert(ctx context.Context, filename string, chunks []string) (int, error) {
	var upserted atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.embedConcurrency)
	for _, text := range chunks {
		text := text
		g.Go(func() error {
			vector, err := a.embedder.EmbedText(gctx, text)
			if err != nil {
				return fmt.Errorf("embed chunk: %w", err)
			}
			err = a.index.Upsert(gctx, uuid.NewString(), vector, vectorPayload(filename, text))
			if err != nil {
				if errors.Is(err, vectorstore.ErrUnavailable) {
					slog.Warn("index unavailable, chunk skipped", "filename", filename)
					return nil
				}
				return fmt.Errorf("upsert chunk: %w", err)
			}
			upserted.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return int(upserted.Load()), nil
}

func vectorPayload(filename, content string) vectorstore.Payload {
	return vectorstore.Payload{Filename: filename, Content: content}
}

func sanitizeExt(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 {
		return ""
	}
	ext := filename[idx:]
	if strings.ContainsAny(ext, "/\\") {
		return ""
	}
	return ext
}
