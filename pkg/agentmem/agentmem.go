// Package agentmem is the main facade for the agent-memory library. It ties
// together the vector store, embedding provider, ingestion pipeline, skill
// engine, and optional Lua hooks behind a single client.
package agentmem

import (
	"context"
	"errors"

	"github.com/wuzeru/agent-memory/pkg/convert"
	"github.com/wuzeru/agent-memory/pkg/embedding"
	memerrors "github.com/wuzeru/agent-memory/pkg/errors"
	"github.com/wuzeru/agent-memory/pkg/ingest"
	"github.com/wuzeru/agent-memory/pkg/log"
	"github.com/wuzeru/agent-memory/pkg/memory"
	"github.com/wuzeru/agent-memory/pkg/scripting"
	"github.com/wuzeru/agent-memory/pkg/skills"
)

const (
	// defaultRecallLimit applies when RecallOptions.Limit is unset.
	defaultRecallLimit = 10

	// skillContextLimit is how many memories are recalled as context for a
	// skill execution.
	skillContextLimit = 5

	// skillContextThreshold is the minimum similarity for a memory to be
	// included in skill context.
	skillContextThreshold = 0.3
)

// Client is the top-level entry point for storing, recalling, and acting on
// agent memories.
type Client struct {
	store        memory.VectorStore
	provider     embedding.Provider
	pipeline     *ingest.Pipeline
	skillEngine  *skills.Engine
	converter    convert.Converter
	scriptEngine scripting.Engine
}

// NewClient assembles a client from explicit components. The script engine
// and converter may be nil; a nil converter disables file ingestion.
func NewClient(
	store memory.VectorStore,
	provider embedding.Provider,
	skillEngine *skills.Engine,
	converter convert.Converter,
	scriptEngine scripting.Engine,
	chunkSize int,
) *Client {
	client := &Client{
		store:        store,
		provider:     provider,
		pipeline:     ingest.NewPipeline(store, provider, scriptEngine, chunkSize),
		skillEngine:  skillEngine,
		converter:    converter,
		scriptEngine: scriptEngine,
	}

	log.Debug("Agent memory client initialized",
		"dimensions", provider.Dimensions(),
		"chunk_size", chunkSize,
	)

	return client
}

// IngestOptions controls file and text ingestion.
type IngestOptions struct {
	// Type is the memory type for created entries.
	Type memory.MemoryType

	// Tags are attached to every created entry.
	Tags []string

	// Source overrides the source label; for file ingestion it defaults to
	// the file path.
	Source string

	// SkipEmbedding suppresses embedding generation, excluding the entries
	// from similarity search.
	SkipEmbedding bool
}

// Ingest extracts text from the file at path, chunks it, and stores the
// chunks as memory entries. It returns the created entry ids in chunk order.
func (c *Client) Ingest(ctx context.Context, path string, opts IngestOptions) ([]string, error) {
	if c.converter == nil {
		return nil, memerrors.Wrap(memerrors.ErrUnsupportedInput, "no converter configured")
	}

	doc, err := c.converter.Convert(ctx, path)
	if err != nil {
		return nil, err
	}

	source := opts.Source
	if source == "" {
		source = path
	}

	ids, err := c.pipeline.IngestDocument(ctx, doc.Content, ingest.Options{
		Type:           opts.Type,
		Tags:           opts.Tags,
		Source:         source,
		OriginalFormat: doc.Metadata.OriginalFormat,
		SkipEmbedding:  opts.SkipEmbedding,
	})
	if err != nil {
		return ids, err
	}

	log.InfoContext(ctx, "Ingested file", "path", path, "entries", len(ids))
	return ids, nil
}

// IngestText stores a single piece of text as one memory entry and returns
// its id.
func (c *Client) IngestText(ctx context.Context, text string, opts IngestOptions) (string, error) {
	return c.pipeline.IngestText(ctx, text, ingest.Options{
		Type:          opts.Type,
		Tags:          opts.Tags,
		Source:        opts.Source,
		SkipEmbedding: opts.SkipEmbedding,
	})
}

// RecallOptions controls similarity search and post-filtering.
type RecallOptions struct {
	// Limit caps the number of results. Defaults to 10.
	Limit int

	// Threshold is the minimum similarity for a result.
	Threshold float64

	// Type keeps only entries of this memory type when set.
	Type memory.MemoryType

	// Tags keeps only entries carrying every listed tag.
	Tags []string

	// Source keeps only entries with this source label when set.
	Source string
}

// hasFilters reports whether any metadata filter is set.
func (o RecallOptions) hasFilters() bool {
	return o.Type != "" || len(o.Tags) > 0 || o.Source != ""
}

// Recall embeds the query, searches the store, and applies the metadata
// filters. Results are ordered most similar first.
func (c *Client) Recall(ctx context.Context, query string, opts RecallOptions) ([]memory.SearchResult, error) {
	if opts.Limit <= 0 {
		opts.Limit = defaultRecallLimit
	}

	query = c.callBeforeRecallHook(ctx, query)

	vector, err := c.provider.Embed(ctx, query)
	if err != nil {
		return nil, memerrors.Wrap(err, "failed to embed query")
	}

	// Over-fetch when filters will discard candidates after ranking.
	searchLimit := opts.Limit
	if opts.hasFilters() {
		searchLimit = opts.Limit * 5
	}

	results, err := c.store.Search(ctx, vector, searchLimit, opts.Threshold)
	if err != nil {
		return nil, err
	}

	if opts.hasFilters() {
		filtered := results[:0]
		for _, result := range results {
			if matchesFilters(result.Entry.Metadata, opts) {
				filtered = append(filtered, result)
			}
		}
		results = filtered
	}

	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

// matchesFilters checks an entry's metadata against the recall filters. All
// requested tags must be present.
func matchesFilters(meta memory.EntryMetadata, opts RecallOptions) bool {
	if opts.Type != "" && meta.Type != opts.Type {
		return false
	}
	if opts.Source != "" && meta.Source != opts.Source {
		return false
	}
	for _, want := range opts.Tags {
		found := false
		for _, tag := range meta.Tags {
			if tag == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Get returns the entry with the given id.
func (c *Client) Get(ctx context.Context, id string) (memory.MemoryEntry, error) {
	return c.store.Get(ctx, id)
}

// Delete removes the entry with the given id, reporting whether it existed.
func (c *Client) Delete(ctx context.Context, id string) (bool, error) {
	return c.store.Delete(ctx, id)
}

// RegisterSkill adds a skill to the client's catalog.
func (c *Client) RegisterSkill(skill skills.Skill) error {
	return c.skillEngine.Catalog().Register(skill)
}

// Skills returns the registered skills sorted by id.
func (c *Client) Skills() []skills.Skill {
	return c.skillEngine.Catalog().List()
}

// ExecuteSkill recalls memories related to the query and runs the skill with
// them as context. The outcome is recorded in the execution history.
func (c *Client) ExecuteSkill(ctx context.Context, skillID string, query string) (skills.Result, error) {
	memories, err := c.Recall(ctx, query, RecallOptions{
		Limit:     skillContextLimit,
		Threshold: skillContextThreshold,
	})
	if err != nil {
		log.WarnContext(ctx, "Failed to recall context for skill", "skill", skillID, "error", err)
		memories = nil
	}

	return c.skillEngine.Execute(ctx, skillID, skills.ExecutionContext{
		Query:    query,
		Memories: memories,
	})
}

// RecommendSkills ranks registered skills for the query.
func (c *Client) RecommendSkills(ctx context.Context, query string, limit int) ([]skills.Recommendation, error) {
	return c.skillEngine.Recommend(ctx, query, limit)
}

// Stats summarizes the current store contents.
func (c *Client) Stats(ctx context.Context) (memory.Stats, error) {
	entries, err := c.store.GetAll(ctx)
	if err != nil {
		return memory.Stats{}, err
	}
	return memory.ComputeStats(entries), nil
}

// Count returns the number of stored entries.
func (c *Client) Count(ctx context.Context) (int, error) {
	return c.store.Count(ctx)
}

// Clear empties the memory store.
func (c *Client) Clear(ctx context.Context) error {
	return c.store.Clear(ctx)
}

// ClearHistory empties the skill execution history.
func (c *Client) ClearHistory(ctx context.Context) error {
	return c.skillEngine.ClearHistory(ctx)
}

// Close releases resources held by the store and script engine.
func (c *Client) Close() error {
	var firstErr error

	switch s := c.store.(type) {
	case interface{ Close() error }:
		if err := s.Close(); err != nil {
			firstErr = err
		}
	case interface{ Close() }:
		s.Close()
	}

	if c.scriptEngine != nil {
		if err := c.scriptEngine.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// callBeforeRecallHook runs the optional before_recall Lua hook, which may
// rewrite the query. Hook failures never fail the recall.
func (c *Client) callBeforeRecallHook(ctx context.Context, query string) string {
	if c.scriptEngine == nil {
		return query
	}

	result, err := c.scriptEngine.ExecuteFunction(ctx, "before_recall", query)
	if err != nil {
		if !errors.Is(err, scripting.ErrFunctionNotFound) {
			log.WarnContext(ctx, "Error calling Lua hook", "hook", "before_recall", "error", err)
		}
		return query
	}

	if rewritten, ok := result.(string); ok && rewritten != "" {
		return rewritten
	}
	return query
}
