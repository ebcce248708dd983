package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/pagemarkhq/pagemark/internal/config"
)

const (
	// Retry policy for batch upserts: 3 attempts total, exponential
	// backoff starting at 1s, capped at 5s.
	upsertMaxRetries uint64 = 2
	upsertBaseDelay         = time.Second
	upsertMaxDelay          = 5 * time.Second

	fileIDField = "file_id"
)

// New picks a backend from configuration: Qdrant when a URL is set,
// otherwise the local SQLite store.
func New(cfg config.VectorStoreConfig) (Store, error) {
	if cfg.QdrantURL != "" {
		return NewQdrantStore(cfg), nil
	}
	return NewLocalStore(cfg.LocalPath, cfg.BatchSize)
}

// QdrantStore implements Store against a Qdrant collection. One instance is
// safe for concurrent use; racing EnsureCollection calls are idempotent.
type QdrantStore struct {
	client     *QdrantClient
	collection string
	batchSize  int
	logger     *slog.Logger

	// retryBase is overridable in tests to keep backoff sleeps short.
	retryBase time.Duration
}

func NewQdrantStore(cfg config.VectorStoreConfig) *QdrantStore {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	return &QdrantStore{
		client:     NewQdrantClient(cfg.QdrantURL, cfg.QdrantAPIKey, timeout),
		collection: cfg.Collection,
		batchSize:  batchSize,
		logger:     slog.Default().With("component", "vectorstore"),
		retryBase:  upsertBaseDelay,
	}
}

// EnsureCollection creates the collection if it does not exist, then makes a
// best-effort attempt to index the file_id payload field. "Already exists"
// responses from concurrent initializations count as success; an index
// failure is logged but never aborts initialization.
func (s *QdrantStore) EnsureCollection(ctx context.Context, dims int) error {
	names, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	exists := false
	for _, name := range names {
		if name == s.collection {
			exists = true
			break
		}
	}
	if !exists {
		if err := s.client.CreateCollection(ctx, s.collection, dims, "Cosine"); err != nil && !isAlreadyExists(err) {
			return fmt.Errorf("create collection %s: %w", s.collection, err)
		}
	}

	if err := s.client.CreatePayloadIndex(ctx, s.collection, fileIDField, "integer"); err != nil && !isAlreadyExists(err) {
		s.logger.Warn("failed to create file_id payload index",
			"collection", s.collection, "err", err)
	}
	return nil
}

// StoreChunks upserts chunks in fixed-size batches, in document order, each
// batch retried on transient failure. Every point gets a fresh UUID, so
// re-ingesting a document appends new points rather than replacing old ones.
// The returned count is the number of chunks durably stored even when err is
// non-nil; in that case err is a *PartialStoreError.
func (s *QdrantStore) StoreChunks(ctx context.Context, fileID int64, chunks []EmbeddedChunk) (int, error) {
	stored := 0
	total := len(chunks)
	for start := 0; start < total; start += s.batchSize {
		end := start + s.batchSize
		if end > total {
			end = total
		}
		points := make([]Point, 0, end-start)
		for _, chunk := range chunks[start:end] {
			points = append(points, Point{
				ID:     uuid.NewString(),
				Vector: chunk.Vector,
				Payload: map[string]any{
					fileIDField:   fileID,
					"text":        chunk.Text,
					"chunk_index": chunk.Index,
				},
			})
		}

		backoff := retry.WithMaxRetries(upsertMaxRetries,
			retry.WithCappedDuration(upsertMaxDelay, retry.NewExponential(s.retryBase)))
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			if upsertErr := s.client.UpsertPoints(ctx, s.collection, points); upsertErr != nil {
				if isTransient(upsertErr) {
					return retry.RetryableError(upsertErr)
				}
				return upsertErr
			}
			return nil
		})
		if err != nil {
			return stored, &PartialStoreError{
				FileID: fileID,
				Stored: stored,
				Total:  total,
				Err:    fmt.Errorf("upsert batch starting at chunk %d: %w", start, err),
			}
		}
		stored += len(points)
	}
	return stored, nil
}

// Search returns the top limit hits by cosine similarity, optionally
// restricted to one document. A nil fileID searches across all documents.
func (s *QdrantStore) Search(ctx context.Context, vector []float32, limit int, fileID *int64) ([]SearchHit, error) {
	var filter map[string]any
	if fileID != nil {
		filter = qdrantMustFilter(qdrantMatchFilter(fileIDField, *fileID))
	}
	points, err := s.client.SearchPoints(ctx, s.collection, vector, limit, filter)
	if err != nil {
		return nil, fmt.Errorf("search collection %s: %w", s.collection, err)
	}
	hits := make([]SearchHit, 0, len(points))
	for _, p := range points {
		hits = append(hits, SearchHit{
			Text:    payloadString(p.Payload, "text"),
			Summary: payloadString(p.Payload, "summary"),
			Score:   p.Score,
			FileID:  payloadInt64(p.Payload, fileIDField),
		})
	}
	return hits, nil
}

// DeleteDocument removes every point belonging to a document.
func (s *QdrantStore) DeleteDocument(ctx context.Context, fileID int64) error {
	filter := qdrantMustFilter(qdrantMatchFilter(fileIDField, fileID))
	return s.client.DeletePointsByFilter(ctx, s.collection, filter)
}

// Count returns the number of stored points.
func (s *QdrantStore) Count(ctx context.Context) (int64, error) {
	return s.client.CountPoints(ctx, s.collection)
}

func (s *QdrantStore) Close() error {
	return nil
}

func payloadString(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	val, ok := payload[key]
	if !ok || val == nil {
		return ""
	}
	switch v := val.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func payloadInt64(payload map[string]any, key string) int64 {
	if payload == nil {
		return 0
	}
	val, ok := payload[key]
	if !ok || val == nil {
		return 0
	}
	switch v := val.(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	case float32:
		return int64(v)
	default:
		return 0
	}
}
