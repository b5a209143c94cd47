package embedding

import (
	"context"

	"github.com/wuzeru/agent-memory/pkg/log"
)

// Resilient wraps a primary provider with a deterministic fallback of the
// same dimensionality. When the primary is unavailable or fails on a call,
// the fallback produces the vector instead, so callers never observe an
// embedding failure or a dimensionality change.
type Resilient struct {
	primary  Provider
	fallback Provider
}

// NewResilient creates a resilient provider. The fallback must produce
// vectors of the same length as the primary; a nil primary means every call
// uses the fallback.
func NewResilient(primary, fallback Provider) *Resilient {
	return &Resilient{primary: primary, fallback: fallback}
}

// Embed implements the Provider interface. Primary failures are logged as
// warnings and recovered through the fallback.
func (r *Resilient) Embed(ctx context.Context, text string) ([]float32, error) {
	if r.primary != nil && r.primary.Ready() {
		vec, err := r.primary.Embed(ctx, text)
		if err == nil {
			return vec, nil
		}
		log.WarnContext(ctx, "Primary embedding provider failed, using fallback", "error", err)
	}
	return r.fallback.Embed(ctx, text)
}

// EmbedBatch implements the Provider interface.
func (r *Resilient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if r.primary != nil && r.primary.Ready() {
		vecs, err := r.primary.EmbedBatch(ctx, texts)
		if err == nil {
			return vecs, nil
		}
		log.WarnContext(ctx, "Primary embedding provider failed, using fallback", "error", err)
	}
	return r.fallback.EmbedBatch(ctx, texts)
}

// Dimensions implements the Provider interface.
func (r *Resilient) Dimensions() int {
	return r.fallback.Dimensions()
}

// Ready implements the Provider interface. The resilient provider is always
// ready because the fallback is.
func (r *Resilient) Ready() bool {
	return true
}
