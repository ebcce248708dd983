package vectorstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagemarkhq/pagemark/internal/config"
)

// fakeQdrant implements the subset of the Qdrant REST API the gateway
// talks to, with hooks to inject failures.
type fakeQdrant struct {
	mu          sync.Mutex
	collections map[string]int
	indexes     map[string]bool
	points      []fakePoint

	createCalls int
	upsertCalls int

	// failUpserts maps 1-based upsert call number to a status code.
	failUpserts map[int]int
	// failIndexStatus, when non-zero, fails index creation with that code.
	failIndexStatus int
	// conflictOnCreate makes collection creation return 409 "already exists".
	conflictOnCreate bool
}

type fakePoint struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

func newFakeQdrant() *fakeQdrant {
	return &fakeQdrant{
		collections: make(map[string]int),
		indexes:     make(map[string]bool),
		failUpserts: make(map[int]int),
	}
}

func (f *fakeQdrant) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		path := r.URL.Path
		switch {
		case path == "/collections" && r.Method == http.MethodGet:
			names := make([]map[string]any, 0, len(f.collections))
			for name := range f.collections {
				names = append(names, map[string]any{"name": name})
			}
			writeJSON(w, map[string]any{"result": map[string]any{"collections": names}})

		case strings.HasSuffix(path, "/index") && r.Method == http.MethodPut:
			collection := strings.TrimSuffix(strings.TrimPrefix(path, "/collections/"), "/index")
			if f.failIndexStatus != 0 {
				http.Error(w, "index backend unavailable", f.failIndexStatus)
				return
			}
			if f.indexes[collection] {
				http.Error(w, `{"status":{"error":"index already exists"}}`, http.StatusBadRequest)
				return
			}
			f.indexes[collection] = true
			writeJSON(w, map[string]any{"result": true})

		case strings.HasSuffix(path, "/points") && r.Method == http.MethodPut:
			f.upsertCalls++
			if code, ok := f.failUpserts[f.upsertCalls]; ok {
				http.Error(w, "injected upsert failure", code)
				return
			}
			var req struct {
				Points []struct {
					ID      string         `json:"id"`
					Vector  []float32      `json:"vector"`
					Payload map[string]any `json:"payload"`
				} `json:"points"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			for _, p := range req.Points {
				f.points = append(f.points, fakePoint{ID: p.ID, Vector: p.Vector, Payload: p.Payload})
			}
			writeJSON(w, map[string]any{"result": map[string]any{"status": "completed"}})

		case strings.HasSuffix(path, "/points/search") && r.Method == http.MethodPost:
			var req struct {
				Vector []float32 `json:"vector"`
				Limit  int       `json:"limit"`
				Filter *struct {
					Must []struct {
						Key   string `json:"key"`
						Match struct {
							Value any `json:"value"`
						} `json:"match"`
					} `json:"must"`
				} `json:"filter"`
			}
			json.NewDecoder(r.Body).Decode(&req)

			var results []map[string]any
			for _, p := range f.points {
				if req.Filter != nil {
					matched := true
					for _, cond := range req.Filter.Must {
						want, _ := cond.Match.Value.(float64)
						got, _ := p.Payload[cond.Key].(float64)
						if want != got {
							matched = false
							break
						}
					}
					if !matched {
						continue
					}
				}
				var score float64
				for i := range req.Vector {
					if i < len(p.Vector) {
						score += float64(req.Vector[i]) * float64(p.Vector[i])
					}
				}
				results = append(results, map[string]any{
					"id": p.ID, "score": score, "payload": p.Payload,
				})
			}
			sort.Slice(results, func(i, j int) bool {
				return results[i]["score"].(float64) > results[j]["score"].(float64)
			})
			if req.Limit > 0 && len(results) > req.Limit {
				results = results[:req.Limit]
			}
			writeJSON(w, map[string]any{"result": results})

		case strings.HasSuffix(path, "/points/delete") && r.Method == http.MethodPost:
			writeJSON(w, map[string]any{"result": map[string]any{"status": "completed"}})

		case strings.HasPrefix(path, "/collections/") && r.Method == http.MethodPut:
			f.createCalls++
			name := strings.TrimPrefix(path, "/collections/")
			if f.conflictOnCreate || f.collections[name] != 0 {
				http.Error(w, `{"status":{"error":"collection already exists"}}`, http.StatusConflict)
				return
			}
			var req struct {
				Vectors struct {
					Size int `json:"size"`
				} `json:"vectors"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			f.collections[name] = req.Vectors.Size
			writeJSON(w, map[string]any{"result": true})

		case strings.HasPrefix(path, "/collections/") && r.Method == http.MethodGet:
			writeJSON(w, map[string]any{"result": map[string]any{"points_count": len(f.points)}})

		default:
			http.NotFound(w, r)
		}
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func newTestStore(t *testing.T, fake *fakeQdrant, batchSize int) *QdrantStore {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)
	store := NewQdrantStore(config.VectorStoreConfig{
		QdrantURL:      srv.URL,
		Collection:     "study_chunks",
		BatchSize:      batchSize,
		TimeoutSeconds: 5,
	})
	store.retryBase = time.Millisecond
	return store
}

func embeddedChunks(texts ...string) []EmbeddedChunk {
	chunks := make([]EmbeddedChunk, len(texts))
	for i, text := range texts {
		vec := make([]float32, 4)
		vec[i%4] = 1
		chunks[i] = EmbeddedChunk{Text: text, Vector: vec, Index: i}
	}
	return chunks
}

func TestEnsureCollectionIdempotent(t *testing.T) {
	fake := newFakeQdrant()
	store := newTestStore(t, fake, 100)
	ctx := context.Background()

	require.NoError(t, store.EnsureCollection(ctx, 4))
	require.NoError(t, store.EnsureCollection(ctx, 4))

	assert.Equal(t, 1, fake.createCalls, "second call must not recreate the collection")
	assert.Equal(t, 4, fake.collections["study_chunks"])
}

func TestEnsureCollectionRacingCreate(t *testing.T) {
	fake := newFakeQdrant()
	fake.conflictOnCreate = true
	store := newTestStore(t, fake, 100)

	// Another process created the collection between list and create.
	require.NoError(t, store.EnsureCollection(context.Background(), 4))
}

func TestEnsureCollectionIndexFailureIsNotFatal(t *testing.T) {
	fake := newFakeQdrant()
	fake.failIndexStatus = http.StatusInternalServerError
	store := newTestStore(t, fake, 100)

	require.NoError(t, store.EnsureCollection(context.Background(), 4))
}

func TestStoreChunksBatchesInOrder(t *testing.T) {
	fake := newFakeQdrant()
	store := newTestStore(t, fake, 2)
	ctx := context.Background()

	stored, err := store.StoreChunks(ctx, 42, embeddedChunks("a", "b", "c", "d", "e"))
	require.NoError(t, err)
	assert.Equal(t, 5, stored)
	assert.Equal(t, 3, fake.upsertCalls)

	seen := make(map[string]bool)
	for i, p := range fake.points {
		assert.Equal(t, float64(42), p.Payload["file_id"])
		assert.Equal(t, float64(i), p.Payload["chunk_index"], "chunk_index must run across batches")
		assert.False(t, seen[p.ID], "point IDs must be unique")
		seen[p.ID] = true
	}
}

func TestStoreChunksPartialFailureAccounting(t *testing.T) {
	fake := newFakeQdrant()
	// Second batch is rejected outright; 4xx must not be retried.
	fake.failUpserts[2] = http.StatusBadRequest
	store := newTestStore(t, fake, 1)
	ctx := context.Background()

	stored, err := store.StoreChunks(ctx, 7, embeddedChunks("a", "b", "c"))
	assert.Equal(t, 1, stored)
	require.Error(t, err)

	var partial *PartialStoreError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, 1, partial.Stored)
	assert.Equal(t, 3, partial.Total)
	assert.Equal(t, int64(7), partial.FileID)
	assert.Equal(t, 2, fake.upsertCalls, "a 4xx rejection must fail fast")
}

func TestStoreChunksRetriesTransientFailure(t *testing.T) {
	fake := newFakeQdrant()
	fake.failUpserts[1] = http.StatusServiceUnavailable
	store := newTestStore(t, fake, 100)

	stored, err := store.StoreChunks(context.Background(), 7, embeddedChunks("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, 2, stored)
	assert.Equal(t, 2, fake.upsertCalls)
}

func TestStoreChunksExhaustsRetries(t *testing.T) {
	fake := newFakeQdrant()
	fake.failUpserts[1] = http.StatusServiceUnavailable
	fake.failUpserts[2] = http.StatusServiceUnavailable
	fake.failUpserts[3] = http.StatusServiceUnavailable
	store := newTestStore(t, fake, 100)

	stored, err := store.StoreChunks(context.Background(), 7, embeddedChunks("a"))
	assert.Equal(t, 0, stored)
	require.Error(t, err)
	assert.Equal(t, 3, fake.upsertCalls, "three attempts, then give up")

	var partial *PartialStoreError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, 0, partial.Stored)
}

func TestSearchRoundTripFiltered(t *testing.T) {
	fake := newFakeQdrant()
	store := newTestStore(t, fake, 100)
	ctx := context.Background()

	_, err := store.StoreChunks(ctx, 1, []EmbeddedChunk{
		{Text: "the krebs cycle", Vector: []float32{1, 0, 0, 0}, Index: 0},
		{Text: "glycolysis", Vector: []float32{0, 1, 0, 0}, Index: 1},
	})
	require.NoError(t, err)
	_, err = store.StoreChunks(ctx, 2, []EmbeddedChunk{
		{Text: "the french revolution", Vector: []float32{0, 0, 1, 0}, Index: 0},
	})
	require.NoError(t, err)

	fileID := int64(1)
	hits, err := store.Search(ctx, []float32{1, 0, 0, 0}, 10, &fileID)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "the krebs cycle", hits[0].Text)
	assert.Equal(t, int64(1), hits[0].FileID)
	assert.Greater(t, hits[0].Score, hits[1].Score)

	// nil fileID searches across all documents.
	hits, err = store.Search(ctx, []float32{0, 0, 1, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "the french revolution", hits[0].Text)
}

func TestSearchLimit(t *testing.T) {
	fake := newFakeQdrant()
	store := newTestStore(t, fake, 100)
	ctx := context.Background()

	_, err := store.StoreChunks(ctx, 1, embeddedChunks("a", "b", "c", "d"))
	require.NoError(t, err)

	hits, err := store.Search(ctx, []float32{1, 1, 1, 1}, 2, nil)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestDeleteDocument(t *testing.T) {
	fake := newFakeQdrant()
	store := newTestStore(t, fake, 100)

	require.NoError(t, store.DeleteDocument(context.Background(), 3))
}

func TestCount(t *testing.T) {
	fake := newFakeQdrant()
	store := newTestStore(t, fake, 100)
	ctx := context.Background()

	_, err := store.StoreChunks(ctx, 1, embeddedChunks("a", "b"))
	require.NoError(t, err)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
