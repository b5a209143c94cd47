// Package ingest turns converted document text into bounded-size memory
// entries: text is chunked, embedded, and inserted into the vector store.
package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/wuzeru/agent-memory/pkg/embedding"
	memerrors "github.com/wuzeru/agent-memory/pkg/errors"
	"github.com/wuzeru/agent-memory/pkg/log"
	"github.com/wuzeru/agent-memory/pkg/memory"
	"github.com/wuzeru/agent-memory/pkg/scripting"
)

// Options controls how a document is turned into memory entries.
type Options struct {
	// Type is the memory type for the created entries. Defaults to
	// memory.TypeDocument.
	Type memory.MemoryType

	// Tags are attached to every created entry.
	Tags []string

	// Source labels where the document came from, e.g. a file path.
	Source string

	// OriginalFormat records the format the document was converted from,
	// e.g. "txt" or "md".
	OriginalFormat string

	// SkipEmbedding suppresses embedding generation. Entries stored this
	// way are excluded from similarity search.
	SkipEmbedding bool
}

// Pipeline chunks document text and stores the resulting entries.
type Pipeline struct {
	store        memory.VectorStore
	provider     embedding.Provider
	scriptEngine scripting.Engine
	chunkSize    int
}

// NewPipeline creates an ingestion pipeline. The script engine is optional;
// when present, before_ingest and after_ingest Lua hooks run around each
// document.
func NewPipeline(store memory.VectorStore, provider embedding.Provider, scriptEngine scripting.Engine, chunkSize int) *Pipeline {
	if chunkSize <= 0 {
		chunkSize = 2000
	}
	return &Pipeline{
		store:        store,
		provider:     provider,
		scriptEngine: scriptEngine,
		chunkSize:    chunkSize,
	}
}

// IngestDocument chunks the text and stores one entry per chunk. It returns
// the ids of the created entries in chunk order. An embedding or store
// failure on a chunk stops ingestion; entries created for earlier chunks
// are kept.
func (p *Pipeline) IngestDocument(ctx context.Context, text string, opts Options) ([]string, error) {
	if opts.Type == "" {
		opts.Type = memory.TypeDocument
	}
	if !memory.ValidType(opts.Type) {
		return nil, memerrors.Wrap(memerrors.ErrInvalidInput, "unknown memory type %q", opts.Type)
	}

	text = callBeforeIngestHook(ctx, p.scriptEngine, text)

	chunks := SplitChunks(text, p.chunkSize)
	total := len(chunks)

	ids := make([]string, 0, total)
	for i, chunk := range chunks {
		entry := memory.MemoryEntry{
			ID:      uuid.New().String(),
			Content: chunk,
			Metadata: memory.EntryMetadata{
				Type:   opts.Type,
				Source: opts.Source,
				Tags:   opts.Tags,
				Context: map[string]interface{}{
					"chunk_index":     i,
					"chunk_total":     total,
					"original_format": opts.OriginalFormat,
				},
			},
			CreatedAt: time.Now().UTC(),
		}

		if !opts.SkipEmbedding {
			vector, err := p.provider.Embed(ctx, chunk)
			if err != nil {
				return ids, memerrors.Wrap(err, "failed to embed chunk %d of %d", i+1, total)
			}
			entry.Embedding = vector
		}

		if err := p.store.Store(ctx, entry); err != nil {
			return ids, memerrors.Wrap(err, "failed to store chunk %d of %d", i+1, total)
		}
		ids = append(ids, entry.ID)
	}

	log.DebugContext(ctx, "Ingested document", "chunks", total, "type", opts.Type, "source", opts.Source)

	callAfterIngestHook(ctx, p.scriptEngine, ids)
	return ids, nil
}

// IngestText stores a single piece of text as one entry without chunking
// and returns its id.
func (p *Pipeline) IngestText(ctx context.Context, text string, opts Options) (string, error) {
	if opts.Type == "" {
		opts.Type = memory.TypeConversation
	}
	if !memory.ValidType(opts.Type) {
		return "", memerrors.Wrap(memerrors.ErrInvalidInput, "unknown memory type %q", opts.Type)
	}

	entry := memory.MemoryEntry{
		ID:      uuid.New().String(),
		Content: text,
		Metadata: memory.EntryMetadata{
			Type:   opts.Type,
			Source: opts.Source,
			Tags:   opts.Tags,
		},
		CreatedAt: time.Now().UTC(),
	}

	if !opts.SkipEmbedding {
		vector, err := p.provider.Embed(ctx, text)
		if err != nil {
			return "", memerrors.Wrap(err, "failed to embed text")
		}
		entry.Embedding = vector
	}

	if err := p.store.Store(ctx, entry); err != nil {
		return "", err
	}
	return entry.ID, nil
}
