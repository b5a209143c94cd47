package skills

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wuzeru/agent-memory/pkg/log"
)

// Params are the tunable constants of the recommendation scoring. The
// defaults match observed-reasonable values rather than derived ones, which
// is why they are configuration instead of literals.
type Params struct {
	// ContextSimilarityThreshold is the minimum Jaccard similarity between
	// query token sets for a history record to count as evidence.
	ContextSimilarityThreshold float64

	// NameWeight is added to relevance per query word found in the skill
	// name.
	NameWeight float64

	// DescriptionWeight is added to relevance per query word found in the
	// skill description.
	DescriptionWeight float64

	// NeutralSuccessRate is assumed when a skill has no similar history.
	NeutralSuccessRate float64
}

// DefaultParams returns the default scoring parameters.
func DefaultParams() Params {
	return Params{
		ContextSimilarityThreshold: 0.3,
		NameWeight:                 0.3,
		DescriptionWeight:          0.2,
		NeutralSuccessRate:         0.5,
	}
}

// Engine executes skills from a catalog, records outcomes, and recommends
// skills for new queries based on that history.
type Engine struct {
	catalog *Catalog
	history HistoryStore
	params  Params
}

// NewEngine creates a skill engine over the given catalog and history store.
// A zero Params selects the defaults; use NewEngineWithParams to pass an
// all-zero parameter set deliberately.
func NewEngine(catalog *Catalog, history HistoryStore, params Params) *Engine {
	if params == (Params{}) {
		params = DefaultParams()
	}
	return NewEngineWithParams(catalog, history, params)
}

// NewEngineWithParams creates a skill engine using params verbatim, zeros
// included.
func NewEngineWithParams(catalog *Catalog, history HistoryStore, params Params) *Engine {
	return &Engine{
		catalog: catalog,
		history: history,
		params:  params,
	}
}

// Catalog returns the engine's skill catalog.
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// Execute runs the skill with the given id. A missing skill is an error;
// any fault inside the skill itself, including a panic, is converted into a
// failed Result instead of propagating. The outcome is appended to the
// execution history and persisted before Execute returns.
func (e *Engine) Execute(ctx context.Context, skillID string, execCtx ExecutionContext) (Result, error) {
	skill, err := e.catalog.Get(skillID)
	if err != nil {
		return Result{}, err
	}

	result := e.invoke(ctx, skill, execCtx)

	record := ExecutionRecord{
		SkillID:   skillID,
		Context:   execCtx,
		Result:    result,
		Timestamp: time.Now().UTC(),
	}
	if err := e.history.Append(ctx, record); err != nil {
		log.WarnContext(ctx, "Failed to persist skill execution record",
			"skill", skillID, "error", err)
	}

	return result, nil
}

// invoke runs the skill handler with panic isolation.
func (e *Engine) invoke(ctx context.Context, skill Skill, execCtx ExecutionContext) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			log.ErrorContext(ctx, "Skill panicked", "skill", skill.ID, "panic", r)
			result = Result{Success: false, Error: fmt.Sprintf("skill panicked: %v", r)}
		}
	}()

	output, err := skill.Handler(ctx, execCtx)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	return Result{Success: true, Output: output}
}

// Recommend scores every registered skill against the query and returns the
// top recommendations by confidence.
func (e *Engine) Recommend(ctx context.Context, query string, limit int) ([]Recommendation, error) {
	records, err := e.history.All(ctx)
	if err != nil {
		return nil, err
	}

	queryTokens := tokenSet(query)

	recommendations := make([]Recommendation, 0, e.catalog.Len())
	for _, skill := range e.catalog.List() {
		successRate := e.successRate(skill.ID, queryTokens, records)
		relevance := e.relevance(skill, query)
		confidence := (successRate + relevance) / 2

		recommendations = append(recommendations, Recommendation{
			SkillID:     skill.ID,
			Name:        skill.Name,
			Confidence:  confidence,
			SuccessRate: successRate,
			Relevance:   relevance,
			Reason:      reason(successRate, relevance),
		})
	}

	sort.Slice(recommendations, func(i, j int) bool {
		if recommendations[i].Confidence != recommendations[j].Confidence {
			return recommendations[i].Confidence > recommendations[j].Confidence
		}
		return recommendations[i].SkillID < recommendations[j].SkillID
	})

	if limit > 0 && len(recommendations) > limit {
		recommendations = recommendations[:limit]
	}
	return recommendations, nil
}

// ClearHistory empties the execution history.
func (e *Engine) ClearHistory(ctx context.Context) error {
	return e.history.Clear(ctx)
}

// successRate computes the success fraction among history records for the
// skill whose query is similar to the current one. With no similar history
// the neutral rate applies, neither favoring nor penalizing untried skills.
func (e *Engine) successRate(skillID string, queryTokens map[string]struct{}, records []ExecutionRecord) float64 {
	var similar, succeeded int
	for _, record := range records {
		if record.SkillID != skillID {
			continue
		}
		if jaccard(queryTokens, tokenSet(record.Context.Query)) <= e.params.ContextSimilarityThreshold {
			continue
		}
		similar++
		if record.Result.Success {
			succeeded++
		}
	}

	if similar == 0 {
		return e.params.NeutralSuccessRate
	}
	return float64(succeeded) / float64(similar)
}

// relevance scores how well the skill's name and description match the
// query's significant words, capped at 1.0.
func (e *Engine) relevance(skill Skill, query string) float64 {
	name := strings.ToLower(skill.Name)
	description := strings.ToLower(skill.Description)

	var score float64
	for _, word := range strings.Fields(strings.ToLower(query)) {
		if len(word) <= 3 {
			continue
		}
		if strings.Contains(name, word) {
			score += e.params.NameWeight
		}
		if strings.Contains(description, word) {
			score += e.params.DescriptionWeight
		}
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// reason produces the human-readable explanation for a recommendation.
func reason(successRate, relevance float64) string {
	var parts []string
	if successRate > 0.7 {
		parts = append(parts, fmt.Sprintf("high success rate (%.0f%%)", successRate*100))
	}
	if relevance > 0.5 {
		parts = append(parts, "strong relevance to query")
	}
	if len(parts) == 0 {
		return "potential match"
	}
	return strings.Join(parts, ", ")
}

// tokenSet lowercases and splits text into a set of words.
func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(text)) {
		set[word] = struct{}{}
	}
	return set
}

// jaccard computes the Jaccard similarity of two token sets. Two empty sets
// have similarity 0.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	var intersection int
	for token := range a {
		if _, ok := b[token]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
