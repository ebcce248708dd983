// Package vectorstore persists embedded chunks and answers filtered
// nearest-neighbor queries. Two backends implement the same contract: a
// Qdrant HTTP backend and a local SQLite backend for offline use.
package vectorstore

import "context"

// EmbeddedChunk pairs one chunk of document text with its vector.
// Index is the chunk's running position across the whole document.
type EmbeddedChunk struct {
	Text   string
	Vector []float32
	Index  int
}

// SearchHit is one similarity-search result, ordered by descending score.
type SearchHit struct {
	Text    string
	Summary string
	Score   float64
	FileID  int64
}

// Store is the gateway to a vector database. Implementations must make
// EnsureCollection safe to call concurrently and must report partial
// progress from StoreChunks (see PartialStoreError).
type Store interface {
	EnsureCollection(ctx context.Context, dims int) error
	StoreChunks(ctx context.Context, fileID int64, chunks []EmbeddedChunk) (int, error)
	Search(ctx context.Context, vector []float32, limit int, fileID *int64) ([]SearchHit, error)
	DeleteDocument(ctx context.Context, fileID int64) error
	Count(ctx context.Context) (int64, error)
	Close() error
}
