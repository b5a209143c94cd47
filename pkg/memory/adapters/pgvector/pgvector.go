// Package pgvector implements the memory.VectorStore interface using
// PostgreSQL with the pgvector extension. Cosine ordering happens in SQL via
// the <=> operator; the similarity threshold is applied to 1 - distance.
package pgvector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	memerrors "github.com/wuzeru/agent-memory/pkg/errors"
	"github.com/wuzeru/agent-memory/pkg/log"
	"github.com/wuzeru/agent-memory/pkg/memory"
)

// PgvectorStore implements the memory.VectorStore interface on PostgreSQL
// with the pgvector extension.
type PgvectorStore struct {
	db            *pgxpool.Pool
	tableName     string
	dimensionSize int
}

// Config contains the configuration for a pgvector store.
type Config struct {
	// ConnectionString is the PostgreSQL connection string
	ConnectionString string

	// TableName is the name of the table to use
	TableName string

	// DimensionSize is the size of vector embeddings
	DimensionSize int
}

// NewPgvectorStore connects to PostgreSQL and prepares the schema.
func NewPgvectorStore(ctx context.Context, config Config) (*PgvectorStore, error) {
	if config.ConnectionString == "" {
		return nil, errors.New("connection string cannot be empty")
	}

	if config.TableName == "" {
		config.TableName = "memory_entries"
	}

	if config.DimensionSize <= 0 {
		config.DimensionSize = 384
	}

	db, err := pgxpool.New(ctx, config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	store := &PgvectorStore{
		db:            db,
		tableName:     config.TableName,
		dimensionSize: config.DimensionSize,
	}

	if err := store.initializeTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize pgvector table: %w", err)
	}

	return store, nil
}

// initializeTable creates the extension, table and index if they don't exist.
func (s *PgvectorStore) initializeTable(ctx context.Context) error {
	_, err := s.db.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create pgvector extension: %w", err)
	}

	_, err = s.db.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}',
			embedding VECTOR(%d) NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL
		)
	`, s.tableName, s.dimensionSize))
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	_, err = s.db.Exec(ctx, fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)",
		s.tableName, s.tableName))
	if err != nil {
		return fmt.Errorf("failed to create vector index: %w", err)
	}

	return nil
}

// DB returns the underlying connection pool, primarily for tests that need
// to manage schema directly.
func (s *PgvectorStore) DB() *pgxpool.Pool {
	return s.db
}

// Close closes the database connection pool.
func (s *PgvectorStore) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

// Store implements the memory.VectorStore interface.
func (s *PgvectorStore) Store(ctx context.Context, entry memory.MemoryEntry) error {
	if entry.ID == "" {
		return memerrors.Wrap(memerrors.ErrInvalidInput, "entry ID is required")
	}

	if len(entry.Embedding) != s.dimensionSize {
		return memerrors.Wrap(memerrors.ErrDimensionMismatch,
			"got %d, expected %d", len(entry.Embedding), s.dimensionSize)
	}

	metadataJSON, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, content, metadata, embedding, created_at)
		VALUES ($1, $2, $3, $4::vector, $5)
		ON CONFLICT (id) DO UPDATE SET
			content = $2,
			metadata = $3,
			embedding = $4::vector,
			created_at = $5
	`, s.tableName),
		entry.ID,
		entry.Content,
		metadataJSON,
		embedToString(entry.Embedding),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store entry: %w", err)
	}

	log.Debug("Stored entry in pgvector", "id", entry.ID, "table", s.tableName)
	return nil
}

// Get implements the memory.VectorStore interface.
func (s *PgvectorStore) Get(ctx context.Context, id string) (memory.MemoryEntry, error) {
	row := s.db.QueryRow(ctx, fmt.Sprintf(`
		SELECT id, content, metadata, embedding::text, created_at FROM %s WHERE id = $1
	`, s.tableName), id)

	entry, err := scanEntry(row)
	if err == pgx.ErrNoRows {
		return memory.MemoryEntry{}, memerrors.Wrap(memerrors.ErrNotFound, "memory entry %s", id)
	}
	if err != nil {
		return memory.MemoryEntry{}, fmt.Errorf("failed to get entry: %w", err)
	}
	return entry, nil
}

// GetAll implements the memory.VectorStore interface.
func (s *PgvectorStore) GetAll(ctx context.Context) ([]memory.MemoryEntry, error) {
	rows, err := s.db.Query(ctx, fmt.Sprintf(`
		SELECT id, content, metadata, embedding::text, created_at FROM %s
	`, s.tableName))
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate entries: %w", err)
	}
	defer rows.Close()

	var entries []memory.MemoryEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return entries, nil
}

// Delete implements the memory.VectorStore interface.
func (s *PgvectorStore) Delete(ctx context.Context, id string) (bool, error) {
	result, err := s.db.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.tableName), id)
	if err != nil {
		return false, fmt.Errorf("failed to delete entry: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// Clear implements the memory.VectorStore interface.
func (s *PgvectorStore) Clear(ctx context.Context) error {
	_, err := s.db.Exec(ctx, fmt.Sprintf(`DELETE FROM %s`, s.tableName))
	if err != nil {
		return fmt.Errorf("failed to clear entries: %w", err)
	}
	log.DebugContext(ctx, "Cleared pgvector memory store", "table", s.tableName)
	return nil
}

// Count implements the memory.VectorStore interface.
func (s *PgvectorStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.tableName)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return count, nil
}

// Search implements the memory.VectorStore interface. Ordering happens in
// SQL; cosine similarity is 1 - cosine distance as computed by <=>.
func (s *PgvectorStore) Search(ctx context.Context, query []float32, limit int, threshold float64) ([]memory.SearchResult, error) {
	if len(query) != s.dimensionSize {
		return nil, memerrors.Wrap(memerrors.ErrDimensionMismatch,
			"got %d, expected %d", len(query), s.dimensionSize)
	}

	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(ctx, fmt.Sprintf(`
		SELECT id, content, metadata, embedding::text, created_at,
			1 - (embedding <=> $1::vector) AS similarity
		FROM %s
		WHERE 1 - (embedding <=> $1::vector) >= $2
		ORDER BY similarity DESC, id ASC
		LIMIT %d
	`, s.tableName, limit), embedToString(query), threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to perform semantic search: %w", err)
	}
	defer rows.Close()

	var results []memory.SearchResult
	for rows.Next() {
		var result memory.SearchResult
		var metadataJSON []byte
		var embeddingStr string

		err := rows.Scan(
			&result.Entry.ID,
			&result.Entry.Content,
			&metadataJSON,
			&embeddingStr,
			&result.Entry.CreatedAt,
			&result.Similarity,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}

		if err := json.Unmarshal(metadataJSON, &result.Entry.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata for %s: %w", result.Entry.ID, err)
		}
		result.Entry.Embedding = stringToEmbed(embeddingStr)

		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return results, nil
}

// scanner abstracts pgx.Row and pgx.Rows for scanEntry.
type scanner interface {
	Scan(dest ...any) error
}

// scanEntry reads one entry row.
func scanEntry(row scanner) (memory.MemoryEntry, error) {
	var entry memory.MemoryEntry
	var metadataJSON []byte
	var embeddingStr string

	err := row.Scan(&entry.ID, &entry.Content, &metadataJSON, &embeddingStr, &entry.CreatedAt)
	if err != nil {
		return memory.MemoryEntry{}, err
	}

	if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
		return memory.MemoryEntry{}, fmt.Errorf("failed to unmarshal metadata for %s: %w", entry.ID, err)
	}
	entry.Embedding = stringToEmbed(embeddingStr)

	return entry, nil
}

// embedToString converts []float32 to the pgvector text format.
func embedToString(embedding []float32) string {
	elements := make([]string, len(embedding))
	for i, v := range embedding {
		elements[i] = strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return "[" + strings.Join(elements, ",") + "]"
}

// stringToEmbed converts the pgvector text format back to []float32.
func stringToEmbed(embeddingStr string) []float32 {
	embeddingStr = strings.TrimPrefix(embeddingStr, "[")
	embeddingStr = strings.TrimSuffix(embeddingStr, "]")

	if embeddingStr == "" {
		return nil
	}

	elements := strings.Split(embeddingStr, ",")
	embedding := make([]float32, len(elements))

	for i, element := range elements {
		val, err := strconv.ParseFloat(strings.TrimSpace(element), 32)
		if err != nil {
			log.Error("Failed to parse embedding element", "error", err, "element", element)
			val = 0
		}
		embedding[i] = float32(val)
	}

	return embedding
}
