// Package sqlstore implements the memory.VectorStore interface on a SQL
// database through sqlx. It works against SQLite (driver "sqlite3") and
// PostgreSQL (driver "postgres"); metadata and embeddings are stored as JSON
// text columns and similarity search ranks in memory after a full scan.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/wuzeru/agent-memory/pkg/errors"
	"github.com/wuzeru/agent-memory/pkg/log"
	"github.com/wuzeru/agent-memory/pkg/memory"
)

// SQLStore implements the memory.VectorStore interface using a SQL database.
type SQLStore struct {
	db *sqlx.DB
}

// entryRow is the database representation of a memory entry.
type entryRow struct {
	ID        string    `db:"id"`
	Content   string    `db:"content"`
	Metadata  string    `db:"metadata"`
	Embedding string    `db:"embedding"`
	CreatedAt time.Time `db:"created_at"`
}

// NewSQLStore creates a new SQLStore with the given database connection and
// creates the backing table if it doesn't exist.
func NewSQLStore(db *sqlx.DB) (*SQLStore, error) {
	store := &SQLStore{db: db}

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS memory_entries (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			metadata TEXT NOT NULL,
			embedding TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory_entries table: %w", err)
	}

	log.Debug("Initialized SQL memory store adapter", "driver", db.DriverName())
	return store, nil
}

// toRow serializes an entry for storage.
func toRow(entry memory.MemoryEntry) (entryRow, error) {
	metadataJSON, err := json.Marshal(entry.Metadata)
	if err != nil {
		return entryRow{}, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	embeddingJSON, err := json.Marshal(entry.Embedding)
	if err != nil {
		return entryRow{}, fmt.Errorf("failed to marshal embedding: %w", err)
	}
	return entryRow{
		ID:        entry.ID,
		Content:   entry.Content,
		Metadata:  string(metadataJSON),
		Embedding: string(embeddingJSON),
		CreatedAt: entry.CreatedAt.UTC(),
	}, nil
}

// fromRow deserializes a stored row.
func fromRow(row entryRow) (memory.MemoryEntry, error) {
	entry := memory.MemoryEntry{
		ID:        row.ID,
		Content:   row.Content,
		CreatedAt: row.CreatedAt,
	}
	if err := json.Unmarshal([]byte(row.Metadata), &entry.Metadata); err != nil {
		return memory.MemoryEntry{}, fmt.Errorf("failed to unmarshal metadata for %s: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.Embedding), &entry.Embedding); err != nil {
		return memory.MemoryEntry{}, fmt.Errorf("failed to unmarshal embedding for %s: %w", row.ID, err)
	}
	return entry, nil
}

// Store implements the memory.VectorStore interface.
func (s *SQLStore) Store(ctx context.Context, entry memory.MemoryEntry) error {
	if entry.ID == "" {
		return errors.Wrap(errors.ErrInvalidInput, "entry ID is required")
	}

	row, err := toRow(entry)
	if err != nil {
		return err
	}

	query := s.db.Rebind(`
		INSERT INTO memory_entries (id, content, metadata, embedding, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			content = excluded.content,
			metadata = excluded.metadata,
			embedding = excluded.embedding,
			created_at = excluded.created_at`)

	_, err = s.db.ExecContext(ctx, query, row.ID, row.Content, row.Metadata, row.Embedding, row.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to store entry: %w", err)
	}

	return nil
}

// Get implements the memory.VectorStore interface.
func (s *SQLStore) Get(ctx context.Context, id string) (memory.MemoryEntry, error) {
	var row entryRow
	query := s.db.Rebind(`SELECT id, content, metadata, embedding, created_at FROM memory_entries WHERE id = ?`)

	err := s.db.GetContext(ctx, &row, query, id)
	if err == sql.ErrNoRows {
		return memory.MemoryEntry{}, errors.Wrap(errors.ErrNotFound, "memory entry %s", id)
	}
	if err != nil {
		return memory.MemoryEntry{}, fmt.Errorf("failed to get entry: %w", err)
	}

	return fromRow(row)
}

// GetAll implements the memory.VectorStore interface.
func (s *SQLStore) GetAll(ctx context.Context) ([]memory.MemoryEntry, error) {
	var rows []entryRow
	err := s.db.SelectContext(ctx, &rows, `SELECT id, content, metadata, embedding, created_at FROM memory_entries`)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate entries: %w", err)
	}

	entries := make([]memory.MemoryEntry, 0, len(rows))
	for _, row := range rows {
		entry, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Delete implements the memory.VectorStore interface.
func (s *SQLStore) Delete(ctx context.Context, id string) (bool, error) {
	query := s.db.Rebind(`DELETE FROM memory_entries WHERE id = ?`)
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete entry: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result: %w", err)
	}
	return affected > 0, nil
}

// Clear implements the memory.VectorStore interface.
func (s *SQLStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM memory_entries`)
	if err != nil {
		return fmt.Errorf("failed to clear entries: %w", err)
	}
	log.DebugContext(ctx, "Cleared SQL memory store")
	return nil
}

// Count implements the memory.VectorStore interface.
func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM memory_entries`)
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return count, nil
}

// Search implements the memory.VectorStore interface.
func (s *SQLStore) Search(ctx context.Context, query []float32, limit int, threshold float64) ([]memory.SearchResult, error) {
	entries, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return memory.RankEntries(entries, query, limit, threshold)
}

// Close closes the underlying database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
