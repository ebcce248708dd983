package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocalStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(t.TempDir(), 2)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLocalStoreRoundTrip(t *testing.T) {
	store := newTestLocalStore(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureCollection(ctx, 3))
	require.NoError(t, store.EnsureCollection(ctx, 3))

	stored, err := store.StoreChunks(ctx, 5, []EmbeddedChunk{
		{Text: "cell membranes", Vector: []float32{1, 0, 0}, Index: 0},
		{Text: "osmosis", Vector: []float32{0, 1, 0}, Index: 1},
		{Text: "diffusion", Vector: []float32{0, 0.9, 0.1}, Index: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, stored)

	fileID := int64(5)
	hits, err := store.Search(ctx, []float32{0, 1, 0}, 2, &fileID)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "osmosis", hits[0].Text)
	assert.Equal(t, int64(5), hits[0].FileID)
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
}

func TestLocalStoreSearchFilterExcludesOtherFiles(t *testing.T) {
	store := newTestLocalStore(t)
	ctx := context.Background()

	_, err := store.StoreChunks(ctx, 1, []EmbeddedChunk{
		{Text: "biology notes", Vector: []float32{1, 0}, Index: 0},
	})
	require.NoError(t, err)
	_, err = store.StoreChunks(ctx, 2, []EmbeddedChunk{
		{Text: "history notes", Vector: []float32{1, 0}, Index: 0},
	})
	require.NoError(t, err)

	fileID := int64(2)
	hits, err := store.Search(ctx, []float32{1, 0}, 10, &fileID)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "history notes", hits[0].Text)

	hits, err = store.Search(ctx, []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestLocalStoreDeleteDocument(t *testing.T) {
	store := newTestLocalStore(t)
	ctx := context.Background()

	_, err := store.StoreChunks(ctx, 9, []EmbeddedChunk{
		{Text: "to be removed", Vector: []float32{1}, Index: 0},
	})
	require.NoError(t, err)

	require.NoError(t, store.DeleteDocument(ctx, 9))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestLocalStoreCount(t *testing.T) {
	store := newTestLocalStore(t)
	ctx := context.Background()

	_, err := store.StoreChunks(ctx, 1, embeddedChunks("a", "b", "c"))
	require.NoError(t, err)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestLocalStoreRequiresPath(t *testing.T) {
	_, err := NewLocalStore("", 10)
	require.Error(t, err)
}
