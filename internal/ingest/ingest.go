// Package ingest glues the chunker, the embedding service and the vector
// store together for one document at a time.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pagemarkhq/pagemark/internal/chunker"
	"github.com/pagemarkhq/pagemark/internal/embedding"
	"github.com/pagemarkhq/pagemark/internal/vectorstore"
)

// Status tracks a document through the pipeline.
type Status string

const (
	StatusPending   Status = "pending"
	StatusEmbedding Status = "embedding"
	StatusStoring   Status = "storing"
	StatusCompleted Status = "completed"
	// StatusPartial means some batches were durably stored before a
	// failure; Result carries both counts so the caller can resume.
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// Result reports what happened to one document's ingestion.
type Result struct {
	FileID int64
	Total  int // chunks produced from the document
	Stored int // chunks durably written to the vector store
	Status Status
}

// Ingestor runs the chunk → embed → store pipeline. One instance is safe
// for concurrent use: the embedding service is read-only and the store
// handles its own synchronization. Within one document everything is
// sequential.
type Ingestor struct {
	embedder      *embedding.Service
	store         vectorstore.Store
	maxChunkChars int
	logger        *slog.Logger
	progress      Reporter
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithMaxChunkChars overrides the chunk length bound.
func WithMaxChunkChars(max int) Option {
	return func(g *Ingestor) {
		if max > 0 {
			g.maxChunkChars = max
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Ingestor) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithProgress sets a reporter that is advanced once per embedded chunk.
func WithProgress(reporter Reporter) Option {
	return func(g *Ingestor) {
		g.progress = reporter
	}
}

// NewIngestor wires the pipeline. The embedding service and store are
// injected so tests can substitute stubs.
func NewIngestor(embedder *embedding.Service, store vectorstore.Store, opts ...Option) (*Ingestor, error) {
	if embedder == nil {
		return nil, errors.New("embedding service required")
	}
	if store == nil {
		return nil, errors.New("vector store required")
	}
	g := &Ingestor{
		embedder:      embedder,
		store:         store,
		maxChunkChars: chunker.DefaultMaxChars,
		logger:        slog.Default().With("component", "ingest"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Ingest chunks rawText, embeds every chunk in document order and stores
// the result under fileID. Any embedding failure aborts the whole document
// before anything is written; a storage failure after some batches
// succeeded yields StatusPartial with the durably stored count in Result.
// The Result is non-nil even on error.
func (g *Ingestor) Ingest(ctx context.Context, fileID int64, rawText string) (*Result, error) {
	res := &Result{FileID: fileID, Status: StatusPending}

	if err := g.store.EnsureCollection(ctx, g.embedder.Dimensions()); err != nil {
		res.Status = StatusFailed
		return res, fmt.Errorf("ensure collection: %w", err)
	}

	chunks := chunker.Split(rawText, g.maxChunkChars)
	res.Total = len(chunks)
	if len(chunks) == 0 {
		res.Status = StatusCompleted
		return res, nil
	}

	res.Status = StatusEmbedding
	if g.progress != nil {
		g.progress.Start(len(chunks))
	}
	embedded := make([]vectorstore.EmbeddedChunk, 0, len(chunks))
	for _, chunk := range chunks {
		vec, err := g.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			res.Status = StatusFailed
			return res, fmt.Errorf("embed chunk %d of file %d: %w", chunk.Index, fileID, err)
		}
		embedded = append(embedded, vectorstore.EmbeddedChunk{
			Text:   chunk.Text,
			Vector: vec,
			Index:  chunk.Index,
		})
		if g.progress != nil {
			g.progress.Increment()
		}
	}
	if g.progress != nil {
		g.progress.Finish()
	}

	res.Status = StatusStoring
	stored, err := g.store.StoreChunks(ctx, fileID, embedded)
	res.Stored = stored
	if err != nil {
		if stored > 0 {
			res.Status = StatusPartial
		} else {
			res.Status = StatusFailed
		}
		return res, err
	}

	res.Status = StatusCompleted
	g.logger.Info("document ingested", "file_id", fileID, "chunks", stored)
	return res, nil
}

// Search embeds the query with the same service used at ingestion time and
// returns the top limit hits, optionally restricted to one document.
func (g *Ingestor) Search(ctx context.Context, query string, limit int, fileID *int64) ([]vectorstore.SearchHit, error) {
	vec, err := g.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return g.store.Search(ctx, vec, limit, fileID)
}
