// Package file implements the default memory store: an in-memory collection
// serialized in full to a single JSON snapshot file on every mutation.
// Durability is favored over throughput, which is acceptable at the expected
// scale of at most tens of thousands of entries.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/wuzeru/agent-memory/pkg/errors"
	"github.com/wuzeru/agent-memory/pkg/log"
	"github.com/wuzeru/agent-memory/pkg/memory"
)

// FileStore implements the memory.VectorStore interface backed by one
// JSON snapshot file.
type FileStore struct {
	path string

	mu      sync.RWMutex
	entries map[string]memory.MemoryEntry
	order   []string
	// dimensions is fixed by the first embedded entry (or the loaded
	// snapshot); 0 means not yet established
	dimensions int
}

// snapshot is the on-disk representation: an ordered list of entries.
type snapshot struct {
	Entries []memory.MemoryEntry `json:"entries"`
}

// NewFileStore creates a store persisting to path, loading any existing
// snapshot. A missing or unreadable snapshot is treated as an empty store;
// the failure is surfaced as a warning, not an error, favoring availability
// over corruption detection.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("store path cannot be empty")
	}

	s := &FileStore{
		path:    path,
		entries: make(map[string]memory.MemoryEntry),
	}

	if err := s.load(); err != nil {
		log.Warn("Failed to load memory snapshot, starting empty",
			"path", path,
			"error", err,
		)
	}

	log.Debug("Initialized file memory store",
		"path", path,
		"entries", len(s.entries),
	)

	return s, nil
}

// load reads the snapshot file into memory. Returns an error when the file
// exists but cannot be parsed; a missing file is not an error.
func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to parse snapshot: %w", err)
	}

	for _, entry := range snap.Entries {
		if _, exists := s.entries[entry.ID]; !exists {
			s.order = append(s.order, entry.ID)
		}
		s.entries[entry.ID] = entry
		if s.dimensions == 0 && len(entry.Embedding) > 0 {
			s.dimensions = len(entry.Embedding)
		}
	}

	return nil
}

// persist rewrites the entire snapshot file. Callers must hold the write lock.
// The write goes through a temp file and rename so a crash mid-write leaves
// the previous snapshot intact.
func (s *FileStore) persist() error {
	snap := snapshot{Entries: make([]memory.MemoryEntry, 0, len(s.order))}
	for _, id := range s.order {
		snap.Entries = append(snap.Entries, s.entries[id])
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".memories-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close snapshot: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}

	return nil
}

// Store implements the memory.VectorStore interface.
func (s *FileStore) Store(ctx context.Context, entry memory.MemoryEntry) error {
	if entry.ID == "" {
		return errors.Wrap(errors.ErrInvalidInput, "entry ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Enforce a single embedding dimensionality per store instance.
	if len(entry.Embedding) > 0 {
		if s.dimensions == 0 {
			s.dimensions = len(entry.Embedding)
		} else if len(entry.Embedding) != s.dimensions {
			return errors.Wrap(errors.ErrDimensionMismatch,
				"store holds %d-dimensional embeddings, got %d", s.dimensions, len(entry.Embedding))
		}
	}

	if _, exists := s.entries[entry.ID]; !exists {
		s.order = append(s.order, entry.ID)
	}
	s.entries[entry.ID] = entry

	if err := s.persist(); err != nil {
		return err
	}

	log.DebugContext(ctx, "Stored memory entry",
		"id", entry.ID,
		"type", entry.Metadata.Type,
		"content_length", len(entry.Content),
	)

	return nil
}

// Get implements the memory.VectorStore interface.
func (s *FileStore) Get(ctx context.Context, id string) (memory.MemoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok {
		return memory.MemoryEntry{}, errors.Wrap(errors.ErrNotFound, "memory entry %s", id)
	}
	return entry, nil
}

// GetAll implements the memory.VectorStore interface.
func (s *FileStore) GetAll(ctx context.Context) ([]memory.MemoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]memory.MemoryEntry, 0, len(s.order))
	for _, id := range s.order {
		entries = append(entries, s.entries[id])
	}
	return entries, nil
}

// Delete implements the memory.VectorStore interface.
func (s *FileStore) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return false, nil
	}

	delete(s.entries, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	if err := s.persist(); err != nil {
		return false, err
	}

	log.DebugContext(ctx, "Deleted memory entry", "id", id)
	return true, nil
}

// Clear implements the memory.VectorStore interface.
func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]memory.MemoryEntry)
	s.order = nil
	s.dimensions = 0

	if err := s.persist(); err != nil {
		return err
	}

	log.DebugContext(ctx, "Cleared memory store", "path", s.path)
	return nil
}

// Count implements the memory.VectorStore interface.
func (s *FileStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// Search implements the memory.VectorStore interface.
func (s *FileStore) Search(ctx context.Context, query []float32, limit int, threshold float64) ([]memory.SearchResult, error) {
	s.mu.RLock()
	entries := make([]memory.MemoryEntry, 0, len(s.order))
	for _, id := range s.order {
		entries = append(entries, s.entries[id])
	}
	s.mu.RUnlock()

	return memory.RankEntries(entries, query, limit, threshold)
}
