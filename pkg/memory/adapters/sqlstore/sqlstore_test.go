package sqlstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wuzeru/agent-memory/pkg/errors"
	"github.com/wuzeru/agent-memory/pkg/memory"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping SQLite-backed test in short mode")
	}

	dbPath := filepath.Join(t.TempDir(), "memories.sqlite.db")
	db, err := sqlx.Connect("sqlite3", dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewSQLStore(db)
	require.NoError(t, err)
	return store
}

func testEntry(id string, embedding []float32) memory.MemoryEntry {
	return memory.MemoryEntry{
		ID:      id,
		Content: "content for " + id,
		Metadata: memory.EntryMetadata{
			Type:   memory.TypeDocument,
			Source: "test",
			Tags:   []string{"unit"},
		},
		Embedding: embedding,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestSQLStore_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entry := testEntry("entry-1", []float32{0.1, 0.2, 0.3})
	require.NoError(t, store.Store(ctx, entry))

	got, err := store.Get(ctx, "entry-1")
	require.NoError(t, err)
	assert.Equal(t, entry.ID, got.ID)
	assert.Equal(t, entry.Content, got.Content)
	assert.Equal(t, entry.Metadata.Tags, got.Metadata.Tags)
	assert.Equal(t, entry.Embedding, got.Embedding)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestSQLStore_UpsertReplaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entry := testEntry("entry-1", []float32{0.1, 0.2})
	require.NoError(t, store.Store(ctx, entry))

	entry.Content = "updated content"
	require.NoError(t, store.Store(ctx, entry))

	got, err := store.Get(ctx, "entry-1")
	require.NoError(t, err)
	assert.Equal(t, "updated content", got.Content)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSQLStore_Delete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, testEntry("entry-1", nil)))

	deleted, err := store.Delete(ctx, "entry-1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.Delete(ctx, "entry-1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestSQLStore_Clear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		require.NoError(t, store.Store(ctx, testEntry(id, nil)))
	}

	require.NoError(t, store.Clear(ctx))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSQLStore_Search(t *testing.T) {
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
}

func TestSQLStore_Close(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, testEntry("a", []float32{1, 0})))
	require.NoError(t, store.Close())

	_, err := store.Count(ctx)
	assert.Error(t, err)
}
