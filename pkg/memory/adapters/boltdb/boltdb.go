// Package boltdb implements the memory.VectorStore interface on a BoltDB
// database. Entries are stored as JSON values in a single bucket; similarity
// search scans the bucket and ranks in memory, which is adequate for the
// target scale.
package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wuzeru/agent-memory/pkg/errors"
	"github.com/wuzeru/agent-memory/pkg/log"
	"github.com/wuzeru/agent-memory/pkg/memory"
	bolt "go.etcd.io/bbolt"
)

// entriesBucket holds all memory entries keyed by entry ID.
var entriesBucket = []byte("entries")

// BoltStore implements the memory.VectorStore interface using a BoltDB database.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates a new BoltStore with the given database connection.
func NewBoltStore(db *bolt.DB) (*BoltStore, error) {
	store := &BoltStore{db: db}

	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(entriesBucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize entries bucket: %w", err)
	}

	log.Debug("Initialized BoltDB memory store adapter",
		"db_path", db.Path(),
		"read_only", db.IsReadOnly(),
	)

	return store, nil
}

// Store implements the memory.VectorStore interface.
func (b *BoltStore) Store(ctx context.Context, entry memory.MemoryEntry) error {
	if entry.ID == "" {
		return errors.Wrap(errors.ErrInvalidInput, "entry ID is required")
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(entriesBucket)

		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to marshal entry: %w", err)
		}

		return bucket.Put([]byte(entry.ID), data)
	})
	if err != nil {
		return fmt.Errorf("failed to store entry: %w", err)
	}

	return nil
}

// Get implements the memory.VectorStore interface.
func (b *BoltStore) Get(ctx context.Context, id string) (memory.MemoryEntry, error) {
	var entry memory.MemoryEntry
	found := false

	err := b.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(entriesBucket).Get([]byte(id))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &entry); err != nil {
			return fmt.Errorf("failed to unmarshal entry: %w", err)
		}
		found = true
		return nil
	})
	if err != nil {
		return memory.MemoryEntry{}, fmt.Errorf("failed to get entry: %w", err)
	}

	if !found {
		return memory.MemoryEntry{}, errors.Wrap(errors.ErrNotFound, "memory entry %s", id)
	}
	return entry, nil
}

// GetAll implements the memory.VectorStore interface.
func (b *BoltStore) GetAll(ctx context.Context) ([]memory.MemoryEntry, error) {
	var entries []memory.MemoryEntry

	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(entriesBucket).ForEach(func(k, v []byte) error {
			var entry memory.MemoryEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("failed to unmarshal entry %s: %w", k, err)
			}
			entries = append(entries, entry)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate entries: %w", err)
	}

	return entries, nil
}

// Delete implements the memory.VectorStore interface.
func (b *BoltStore) Delete(ctx context.Context, id string) (bool, error) {
	existed := false

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(entriesBucket)
		if bucket.Get([]byte(id)) == nil {
			return nil
		}
		existed = true
		return bucket.Delete([]byte(id))
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete entry: %w", err)
	}

	return existed, nil
}

// Clear implements the memory.VectorStore interface.
func (b *BoltStore) Clear(ctx context.Context) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(entriesBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(entriesBucket)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to clear entries: %w", err)
	}

	log.DebugContext(ctx, "Cleared BoltDB memory store")
	return nil
}

// Count implements the memory.VectorStore interface.
func (b *BoltStore) Count(ctx context.Context) (int, error) {
	count := 0
	err := b.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(entriesBucket).Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return count, nil
}

// Search implements the memory.VectorStore interface.
func (b *BoltStore) Search(ctx context.Context, query []float32, limit int, threshold float64) ([]memory.SearchResult, error) {
	entries, err := b.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return memory.RankEntries(entries, query, limit, threshold)
}

// Close closes the underlying bolt database and releases its file lock.
func (b *BoltStore) Close() error {
	return b.db.Close()
}
