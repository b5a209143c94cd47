package boltdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/wuzeru/agent-memory/pkg/errors"
	"github.com/wuzeru/agent-memory/pkg/memory"
	"github.com/wuzeru/agent-memory/test/testutil"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	db, _, cleanup := testutil.CreateTempBoltDB(t)
	t.Cleanup(cleanup)

	store, err := NewBoltStore(db)
	require.NoError(t, err)
	return store
}

func testEntry(id string, embedding []float32) memory.MemoryEntry {
	return memory.MemoryEntry{
		ID:      id,
		Content: "content for " + id,
		Metadata: memory.EntryMetadata{
			Type: memory.TypeDocument,
		},
		Embedding: embedding,
		CreatedAt: time.Now().UTC(),
	}
}

func TestBoltStore_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entry := testEntry("entry-1", []float32{0.1, 0.2, 0.3})
	require.NoError(t, store.Store(ctx, entry))

	got, err := store.Get(ctx, "entry-1")
	require.NoError(t, err)
	assert.Equal(t, entry.ID, got.ID)
	assert.Equal(t, entry.Content, got.Content)
	assert.Equal(t, entry.Embedding, got.Embedding)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestBoltStore_RequiresID(t *testing.T) {
	store := newTestStore(t)

	err := store.Store(context.Background(), testEntry("", nil))
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestBoltStore_Delete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, testEntry("entry-1", nil)))

	deleted, err := store.Delete(ctx, "entry-1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.Delete(ctx, "entry-1")
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = store.Delete(ctx, "never-existed")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestBoltStore_CountAndClear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Store(ctx, testEntry(id, nil)))
	}

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	require.NoError(t, store.Clear(ctx))

	count, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	_, err = store.Get(ctx, "a")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestBoltStore_Search(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, testEntry("a", []float32{1, 0, 0})))
	require.NoError(t, store.Store(ctx, testEntry("b", []float32{0.9, 0.1, 0})))
	require.NoError(t, store.Store(ctx, testEntry("c", []float32{0, 1, 0})))

	results, err := store.Search(ctx, []float32{0.95, 0.05, 0}, 5, 0.5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Entry.ID)
	assert.Equal(t, "b", results[1].Entry.ID)
	assert.Greater(t, results[0].Similarity, results[1].Similarity)
}

func TestBoltStore_Persistence(t *testing.T) {
	db, dbPath, cleanup := testutil.CreateTempBoltDB(t)
	t.Cleanup(cleanup)
	ctx := context.Background()

	store, err := NewBoltStore(db)
	require.NoError(t, err)
	require.NoError(t, store.Store(ctx, testEntry("persisted", []float32{0.5, 0.5})))
	require.NoError(t, db.Close())

	db2, err := bolt.Open(dbPath, 0600, nil)
	require.NoError(t, err)
	defer db2.Close()

	store2, err := NewBoltStore(db2)
	require.NoError(t, err)

	got, err := store2.Get(ctx, "persisted")
	require.NoError(t, err)
	assert.Equal(t, "content for persisted", got.Content)
}

func TestBoltStore_CloseReleasesFileLock(t *testing.T) {
	db, dbPath, cleanup := testutil.CreateTempBoltDB(t)
	t.Cleanup(cleanup)

	store, err := NewBoltStore(db)
	require.NoError(t, err)
	require.NoError(t, store.Store(context.Background(), testEntry("a", []float32{1, 0})))
	require.NoError(t, store.Close())

	// Bolt holds an exclusive file lock until closed; reopening proves the
	// store released it.
	db2, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	require.NoError(t, err)
	assert.NoError(t, db2.Close())
}
