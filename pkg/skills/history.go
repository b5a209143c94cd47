package skills

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	memerrors "github.com/wuzeru/agent-memory/pkg/errors"
	"github.com/wuzeru/agent-memory/pkg/log"
)

// HistoryStore persists the append-only skill execution history.
type HistoryStore interface {
	// Append adds a record and persists the full history before returning.
	Append(ctx context.Context, record ExecutionRecord) error

	// All returns every record in append order.
	All(ctx context.Context) ([]ExecutionRecord, error)

	// Clear empties the history and persists the empty state.
	Clear(ctx context.Context) error
}

// historySnapshot is the on-disk JSON layout.
type historySnapshot struct {
	Records []ExecutionRecord `json:"records"`
}

// FileHistoryStore keeps the history in memory and rewrites a single JSON
// file on every mutation. One instance per history file; concurrent access
// within the process is serialized by a mutex, but two processes sharing a
// file is unsupported.
type FileHistoryStore struct {
	path string

	mu      sync.RWMutex
	records []ExecutionRecord
}

// NewFileHistoryStore creates a history store backed by the given file. A
// missing or unreadable file is treated as an empty history with a warning.
func NewFileHistoryStore(path string) (*FileHistoryStore, error) {
	if path == "" {
		return nil, memerrors.Wrap(memerrors.ErrInvalidInput, "history file path is required")
	}

	store := &FileHistoryStore{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("Failed to read skill history file, starting empty", "path", path, "error", err)
		}
		return store, nil
	}

	var snapshot historySnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		log.Warn("Skill history file is corrupt, starting empty", "path", path, "error", err)
		return store, nil
	}

	store.records = snapshot.Records
	return store, nil
}

// Append implements the HistoryStore interface.
func (s *FileHistoryStore) Append(ctx context.Context, record ExecutionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, record)
	if err := s.persist(); err != nil {
		s.records = s.records[:len(s.records)-1]
		return err
	}
	return nil
}

// All implements the HistoryStore interface.
func (s *FileHistoryStore) All(ctx context.Context) ([]ExecutionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]ExecutionRecord, len(s.records))
	copy(records, s.records)
	return records, nil
}

// Clear implements the HistoryStore interface.
func (s *FileHistoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	return s.persist()
}

// persist rewrites the whole history file. Callers must hold the write lock.
func (s *FileHistoryStore) persist() error {
	snapshot := historySnapshot{Records: s.records}
	if snapshot.Records == nil {
		snapshot.Records = []ExecutionRecord{}
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return memerrors.Wrap(err, "failed to marshal skill history")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return memerrors.Wrap(err, "failed to create history directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return memerrors.Wrap(err, "failed to create temp history file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return memerrors.Wrap(err, "failed to write history file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return memerrors.Wrap(err, "failed to close history file")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return memerrors.Wrap(err, "failed to replace history file")
	}
	return nil
}

// MemoryHistoryStore keeps history in memory only, for tests and ephemeral
// use.
type MemoryHistoryStore struct {
	mu      sync.RWMutex
	records []ExecutionRecord
}

// NewMemoryHistoryStore creates an empty in-memory history store.
func NewMemoryHistoryStore() *MemoryHistoryStore {
	return &MemoryHistoryStore{}
}

// Append implements the HistoryStore interface.
func (s *MemoryHistoryStore) Append(ctx context.Context, record ExecutionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

// All implements the HistoryStore interface.
func (s *MemoryHistoryStore) All(ctx context.Context) ([]ExecutionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]ExecutionRecord, len(s.records))
	copy(records, s.records)
	return records, nil
}

// Clear implements the HistoryStore interface.
func (s *MemoryHistoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	return nil
}
