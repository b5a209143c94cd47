package memory

import (
	"time"
)

// MemoryType classifies a memory entry. The set is closed; stores reject
// other values at the facade level rather than silently accepting them.
type MemoryType string

const (
	// TypeDocument is a chunk ingested from a converted document
	TypeDocument MemoryType = "document"

	// TypeSkillExecution is a memory recorded from a skill invocation
	TypeSkillExecution MemoryType = "skill_execution"

	// TypeConversation is a remembered conversational exchange
	TypeConversation MemoryType = "conversation"

	// TypeExperience is free-form experiential knowledge
	TypeExperience MemoryType = "experience"
)

// ValidType reports whether t is one of the known memory types.
func ValidType(t MemoryType) bool {
	switch t {
	case TypeDocument, TypeSkillExecution, TypeConversation, TypeExperience:
		return true
	}
	return false
}

// EntryMetadata is the structured metadata attached to a memory entry.
type EntryMetadata struct {
	// Type classifies the entry
	Type MemoryType `json:"type"`

	// Source is an optional label for where the entry came from
	Source string `json:"source,omitempty"`

	// Tags is an optional ordered list of tag strings
	Tags []string `json:"tags,omitempty"`

	// Context is free-form contextual data (chunk index, original format, ...)
	Context map[string]interface{} `json:"context,omitempty"`
}

// MemoryEntry is a single unit of stored knowledge.
type MemoryEntry struct {
	// ID is a unique identifier, generated at creation and immutable
	ID string `json:"id"`

	// Content is the chunk's text
	Content string `json:"content"`

	// Metadata is structured data about this entry
	Metadata EntryMetadata `json:"metadata"`

	// Embedding is the vector representation for semantic search.
	// Its length is constant across all entries of a store instance.
	Embedding []float32 `json:"embedding"`

	// CreatedAt is when this entry was stored, immutable
	CreatedAt time.Time `json:"created_at"`
}

// SearchResult pairs an entry with its similarity to a query vector.
type SearchResult struct {
	Entry      MemoryEntry `json:"entry"`
	Similarity float64     `json:"similarity"`
}

// Stats summarizes the contents of a store.
type Stats struct {
	// TotalCount is the number of stored entries
	TotalCount int `json:"total_count"`

	// CountsByType breaks the total down per memory type
	CountsByType map[MemoryType]int `json:"counts_by_type"`

	// Oldest is the creation time of the oldest entry (zero when empty)
	Oldest time.Time `json:"oldest"`

	// Newest is the creation time of the newest entry (zero when empty)
	Newest time.Time `json:"newest"`
}
