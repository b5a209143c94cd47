// Package chromem implements the memory.VectorStore interface using
// chromem-go, a pure Go embedded vector database.
//
// Known limitations of chromem-go v0.7.0: it has no API for enumerating all
// documents in a collection, so this adapter mirrors entries in memory as
// they are stored. For a persistent database, GetAll and Stats only see
// entries written through the current process; Get, Search and Delete work
// against the full persisted collection.
package chromem

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	chromemgo "github.com/philippgille/chromem-go"
	memerrors "github.com/wuzeru/agent-memory/pkg/errors"
	"github.com/wuzeru/agent-memory/pkg/log"
	"github.com/wuzeru/agent-memory/pkg/memory"
)

const (
	metadataKey  = "entry_metadata"
	createdAtKey = "created_at"
)

// ChromemStore implements the memory.VectorStore interface using chromem-go.
type ChromemStore struct {
	db         *chromemgo.DB
	collection *chromemgo.Collection
	name       string

	mu     sync.RWMutex
	mirror map[string]memory.MemoryEntry
}

// Config contains the configuration for a chromem store.
type Config struct {
	// Collection is the name of the chromem collection.
	Collection string

	// StoragePath is the directory for the persistent database. Empty means
	// a purely in-memory database.
	StoragePath string
}

// NewChromemStore creates a store backed by an existing chromem DB.
func NewChromemStore(db *chromemgo.DB, collectionName string) (*ChromemStore, error) {
	if db == nil {
		return nil, fmt.Errorf("chromem db cannot be nil")
	}
	if collectionName == "" {
		collectionName = "memories"
	}

	// Embeddings are always provided by the caller, so no embedding func.
	col, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create collection: %w", err)
	}

	return &ChromemStore{
		db:         db,
		collection: col,
		name:       collectionName,
		mirror:     make(map[string]memory.MemoryEntry),
	}, nil
}

// NewChromemStoreWithConfig creates a store from configuration, opening a
// persistent database when a storage path is set.
func NewChromemStoreWithConfig(config Config) (*ChromemStore, error) {
	var db *chromemgo.DB
	var err error

	if config.StoragePath != "" {
		db, err = chromemgo.NewPersistentDB(config.StoragePath, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open persistent chromem db: %w", err)
		}
	} else {
		db = chromemgo.NewDB()
	}

	return NewChromemStore(db, config.Collection)
}

// Store implements the memory.VectorStore interface.
func (s *ChromemStore) Store(ctx context.Context, entry memory.MemoryEntry) error {
	if entry.ID == "" {
		return memerrors.Wrap(memerrors.ErrInvalidInput, "entry ID is required")
	}
	if len(entry.Embedding) == 0 {
		return memerrors.Wrap(memerrors.ErrInvalidInput, "entry embedding is required")
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	metadataJSON, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	doc := chromemgo.Document{
		ID:        entry.ID,
		Content:   entry.Content,
		Embedding: entry.Embedding,
		Metadata: map[string]string{
			metadataKey:  string(metadataJSON),
			createdAtKey: entry.CreatedAt.Format(time.RFC3339Nano),
		},
	}

	if err := s.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("failed to add document: %w", err)
	}

	s.mu.Lock()
	s.mirror[entry.ID] = entry
	s.mu.Unlock()

	log.Debug("Stored entry in chromem", "id", entry.ID, "collection", s.name)
	return nil
}

// Get implements the memory.VectorStore interface.
func (s *ChromemStore) Get(ctx context.Context, id string) (memory.MemoryEntry, error) {
	doc, err := s.collection.GetByID(ctx, id)
	if err != nil {
		return memory.MemoryEntry{}, memerrors.Wrap(memerrors.ErrNotFound, "memory entry %s", id)
	}
	return docToEntry(doc)
}

// GetAll implements the memory.VectorStore interface. See the package
// comment for limitations with persistent databases.
func (s *ChromemStore) GetAll(ctx context.Context) ([]memory.MemoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]memory.MemoryEntry, 0, len(s.mirror))
	for _, entry := range s.mirror {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ID < entries[j].ID
	})
	return entries, nil
}

// Delete implements the memory.VectorStore interface.
func (s *ChromemStore) Delete(ctx context.Context, id string) (bool, error) {
	if _, err := s.collection.GetByID(ctx, id); err != nil {
		return false, nil
	}

	if err := s.collection.Delete(ctx, nil, nil, id); err != nil {
		return false, fmt.Errorf("failed to delete document: %w", err)
	}

	s.mu.Lock()
	delete(s.mirror, id)
	s.mu.Unlock()

	return true, nil
}

// Clear implements the memory.VectorStore interface by dropping and
// recreating the collection.
func (s *ChromemStore) Clear(ctx context.Context) error {
	if err := s.db.DeleteCollection(s.name); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}

	col, err := s.db.GetOrCreateCollection(s.name, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to recreate collection: %w", err)
	}

	s.mu.Lock()
	s.collection = col
	s.mirror = make(map[string]memory.MemoryEntry)
	s.mu.Unlock()

	log.DebugContext(ctx, "Cleared chromem memory store", "collection", s.name)
	return nil
}

// Count implements the memory.VectorStore interface.
func (s *ChromemStore) Count(ctx context.Context) (int, error) {
	return s.collection.Count(), nil
}

// Search implements the memory.VectorStore interface. chromem-go requires
// nResults to be at most the collection size, so the query retries with
// smaller limits when necessary.
func (s *ChromemStore) Search(ctx context.Context, query []float32, limit int, threshold float64) ([]memory.SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}

	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	raw, err := s.collection.QueryEmbedding(ctx, query, limit, nil, nil)
	if err != nil {
		// Concurrent deletes can still shrink the collection between the
		// count and the query.
		if isInsufficientDocsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	var results []memory.SearchResult
	for _, r := range raw {
		similarity := float64(r.Similarity)
		if similarity < threshold {
			continue
		}
		entry, err := resultToEntry(r)
		if err != nil {
			log.Warn("Skipping malformed chromem result", "id", r.ID, "error", err)
			continue
		}
		results = append(results, memory.SearchResult{Entry: entry, Similarity: similarity})
	}

	return results, nil
}

func docToEntry(doc chromemgo.Document) (memory.MemoryEntry, error) {
	entry := memory.MemoryEntry{
		ID:        doc.ID,
		Content:   doc.Content,
		Embedding: doc.Embedding,
	}
	if err := decodeMetadata(doc.Metadata, &entry); err != nil {
		return memory.MemoryEntry{}, err
	}
	return entry, nil
}

func resultToEntry(result chromemgo.Result) (memory.MemoryEntry, error) {
	entry := memory.MemoryEntry{
		ID:        result.ID,
		Content:   result.Content,
		Embedding: result.Embedding,
	}
	if err := decodeMetadata(result.Metadata, &entry); err != nil {
		return memory.MemoryEntry{}, err
	}
	return entry, nil
}

func decodeMetadata(meta map[string]string, entry *memory.MemoryEntry) error {
	if raw, ok := meta[metadataKey]; ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &entry.Metadata); err != nil {
			return fmt.Errorf("failed to unmarshal metadata for %s: %w", entry.ID, err)
		}
	}
	if raw, ok := meta[createdAtKey]; ok && raw != "" {
		createdAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return fmt.Errorf("failed to parse created_at for %s: %w", entry.ID, err)
		}
		entry.CreatedAt = createdAt
	}
	return nil
}

// isInsufficientDocsError reports whether the query failed because nResults
// exceeded the number of documents in the collection.
func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}
