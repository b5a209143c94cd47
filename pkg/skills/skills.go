// Package skills provides pluggable task handlers, an append-only execution
// history, and history-driven skill recommendation.
package skills

import (
	"context"
	"encoding/json"
	"time"

	"github.com/wuzeru/agent-memory/pkg/memory"
)

// Payload is a skill output with a declared content type. Consumers inspect
// ContentType before interpreting Data.
type Payload struct {
	// ContentType describes how Data is encoded, e.g. "text/plain" or
	// "application/json".
	ContentType string `json:"content_type"`

	// Data is the raw payload.
	Data json.RawMessage `json:"data"`
}

// TextPayload wraps plain text in a Payload.
func TextPayload(text string) Payload {
	data, _ := json.Marshal(text)
	return Payload{ContentType: "text/plain", Data: data}
}

// JSONPayload marshals a value into an application/json Payload.
func JSONPayload(value interface{}) (Payload, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return Payload{}, err
	}
	return Payload{ContentType: "application/json", Data: data}, nil
}

// ExecutionContext is the input handed to a skill: the triggering query and
// any memories recalled for it.
type ExecutionContext struct {
	// Query is the natural-language request that triggered the skill.
	Query string `json:"query"`

	// Memories are entries recalled for the query, most similar first.
	Memories []memory.SearchResult `json:"memories,omitempty"`
}

// Handler is a skill's executable logic.
type Handler func(ctx context.Context, execCtx ExecutionContext) (Payload, error)

// Skill is a named, pluggable task handler.
type Skill struct {
	// ID uniquely identifies the skill within a catalog.
	ID string

	// Name is a short human-readable name, matched against query words
	// during recommendation.
	Name string

	// Description explains what the skill does, also matched during
	// recommendation.
	Description string

	// Handler is invoked by Engine.Execute.
	Handler Handler
}

// Result is the structured outcome of one skill execution. Faults inside
// the skill surface here as Success=false, never as an error from Execute.
type Result struct {
	Success bool    `json:"success"`
	Output  Payload `json:"output,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// ExecutionRecord is one entry in the append-only execution history. It
// carries the full ExecutionContext so a persisted record preserves both the
// query and the memory snapshot the skill saw.
type ExecutionRecord struct {
	SkillID   string           `json:"skill_id"`
	Context   ExecutionContext `json:"context"`
	Result    Result           `json:"result"`
	Timestamp time.Time        `json:"timestamp"`
}

// Recommendation is a ranked suggestion to run a skill for a query.
type Recommendation struct {
	SkillID     string  `json:"skill_id"`
	Name        string  `json:"name"`
	Confidence  float64 `json:"confidence"`
	SuccessRate float64 `json:"success_rate"`
	Relevance   float64 `json:"relevance"`
	Reason      string  `json:"reason"`
}
