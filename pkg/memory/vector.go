package memory

import (
	"fmt"
	"math"
	"sort"

	"github.com/wuzeru/agent-memory/pkg/errors"
)

// Cosine computes the cosine similarity of two vectors,
// dot(a,b) / (||a|| * ||b||). If either vector is all-zero the similarity is
// defined as 0. Vectors of differing length are a hard error.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, errors.Wrap(errors.ErrDimensionMismatch,
			fmt.Sprintf("cannot compare vectors of length %d and %d", len(a), len(b)))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// RankEntries scores every entry against the query vector and returns those
// meeting the threshold, sorted by similarity descending with entry ID as the
// deterministic tie-break, capped at limit. It is the shared ranking routine
// for adapters that scan their whole collection in memory.
func RankEntries(entries []MemoryEntry, query []float32, limit int, threshold float64) ([]SearchResult, error) {
	results := make([]SearchResult, 0, len(entries))
	for _, entry := range entries {
		// Entries stored without an embedding are never candidates.
		if len(entry.Embedding) == 0 {
			continue
		}
		sim, err := Cosine(query, entry.Embedding)
		if err != nil {
			return nil, errors.Wrap(err, "entry %s", entry.ID)
		}
		if sim >= threshold {
			results = append(results, SearchResult{Entry: entry, Similarity: sim})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].Entry.ID < results[j].Entry.ID
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// ComputeStats derives summary statistics from a slice of entries.
func ComputeStats(entries []MemoryEntry) Stats {
	stats := Stats{
		TotalCount:   len(entries),
		CountsByType: make(map[MemoryType]int),
	}

	for _, entry := range entries {
		stats.CountsByType[entry.Metadata.Type]++
		if stats.Oldest.IsZero() || entry.CreatedAt.Before(stats.Oldest) {
			stats.Oldest = entry.CreatedAt
		}
		if stats.Newest.IsZero() || entry.CreatedAt.After(stats.Newest) {
			stats.Newest = entry.CreatedAt
		}
	}

	return stats
}
