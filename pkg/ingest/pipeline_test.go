package ingest

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wuzeru/agent-memory/pkg/embedding/adapters/deterministic"
	"github.com/wuzeru/agent-memory/pkg/errors"
	"github.com/wuzeru/agent-memory/pkg/memory"
	"github.com/wuzeru/agent-memory/pkg/memory/adapters/file"
)

func newTestPipeline(t *testing.T) (*Pipeline, memory.VectorStore) {
	t.Helper()
	store, err := file.NewFileStore(filepath.Join(t.TempDir(), "memories.json"))
	require.NoError(t, err)
	provider := deterministic.NewProvider(16)
	return NewPipeline(store, provider, nil, 50), store
}

func TestPipeline_IngestDocument(t *testing.T) {
	pipeline, store := newTestPipeline(t)
	ctx := context.Background()

	text := "first paragraph of the document\n\nsecond paragraph of the document"
	ids, err := pipeline.IngestDocument(ctx, text, Options{
		Source:         "doc.txt",
		Tags:           []string{"docs"},
		OriginalFormat: "txt",
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)

	for i, id := range ids {
		entry, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, memory.TypeDocument, entry.Metadata.Type)
		assert.Equal(t, "doc.txt", entry.Metadata.Source)
		assert.Equal(t, []string{"docs"}, entry.Metadata.Tags)
		assert.Equal(t, i, entry.Metadata.Context["chunk_index"])
		assert.Equal(t, 2, entry.Metadata.Context["chunk_total"])
		assert.Equal(t, "txt", entry.Metadata.Context["original_format"])
		assert.NotEmpty(t, entry.Embedding)
	}
}

func TestPipeline_IngestDocumentChunkOrder(t *testing.T) {
	pipeline, store := newTestPipeline(t)
	ctx := context.Background()

	paragraphs := []string{
		strings.Repeat("a", 40),
		strings.Repeat("b", 40),
		strings.Repeat("c", 40),
	}
	ids, err := pipeline.IngestDocument(ctx, strings.Join(paragraphs, "\n\n"), Options{})
	require.NoError(t, err)
	require.Len(t, ids, 3)

	for i, id := range ids {
		entry, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, paragraphs[i], entry.Content)
	}
}

func TestPipeline_IngestDocumentRejectsUnknownType(t *testing.T) {
	pipeline, _ := newTestPipeline(t)

	_, err := pipeline.IngestDocument(context.Background(), "text", Options{Type: "bogus"})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestPipeline_SkipEmbedding(t *testing.T) {
	pipeline, store := newTestPipeline(t)
	ctx := context.Background()

	ids, err := pipeline.IngestDocument(ctx, "no vector for this one", Options{SkipEmbedding: true})
	require.NoError(t, err)
	require.Len(t, ids, 1)

	entry, err := store.Get(ctx, ids[0])
	require.NoError(t, err)
	assert.Empty(t, entry.Embedding)

	// Entries without embeddings never appear in similarity search.
	results, err := store.Search(ctx, make([]float32, 16), 10, 0.0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestPipeline_IngestText(t *testing.T) {
	pipeline, store := newTestPipeline(t)
	ctx := context.Background()

	// Blank lines do not split single-entry ingestion.
	text := "a note\n\nwith a blank line"
	id, err := pipeline.IngestText(ctx, text, Options{Source: "user"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	entry, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, text, entry.Content)
	assert.Equal(t, memory.TypeConversation, entry.Metadata.Type)
	assert.Equal(t, "user", entry.Metadata.Source)
	assert.NotEmpty(t, entry.Embedding)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPipeline_IngestTextCustomType(t *testing.T) {
	pipeline, store := newTestPipeline(t)
	ctx := context.Background()

	id, err := pipeline.IngestText(ctx, "lesson learned", Options{Type: memory.TypeExperience})
	require.NoError(t, err)

	entry, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, memory.TypeExperience, entry.Metadata.Type)

	_, err = pipeline.IngestText(ctx, "text", Options{Type: "bogus"})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}
