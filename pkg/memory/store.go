package memory

import (
	"context"
)

// VectorStore is the interface that all memory store adapters implement.
// A store holds entries whose embeddings share one dimensionality; mixing
// dimensionalities fails explicitly rather than corrupting search results.
//
// Mutating calls persist synchronously before returning. Callers must not
// issue overlapping mutating calls against the same persisted location from
// multiple processes; the store always writes its full snapshot, so the last
// writer wins.
type VectorStore interface {
	// Store inserts an entry, or overwrites the whole record when an entry
	// with the same ID already exists.
	Store(ctx context.Context, entry MemoryEntry) error

	// Get returns the entry with the given ID.
	// Returns errors.ErrNotFound when no such entry exists.
	Get(ctx context.Context, id string) (MemoryEntry, error)

	// GetAll returns all entries, in no guaranteed order.
	GetAll(ctx context.Context) ([]MemoryEntry, error)

	// Delete removes the entry with the given ID and reports whether an
	// entry existed and was removed.
	Delete(ctx context.Context, id string) (bool, error)

	// Clear empties the collection and persists the empty state.
	Clear(ctx context.Context) error

	// Count returns the current number of entries.
	Count(ctx context.Context) (int, error)

	// Search returns up to limit entries whose cosine similarity to the
	// query vector is at least threshold, sorted by similarity descending.
	// Ties are broken deterministically for a given store state. A stored
	// vector whose length differs from the query's is a hard error.
	Search(ctx context.Context, query []float32, limit int, threshold float64) ([]SearchResult, error)
}
