// Package deterministic implements the embedding.Provider interface with a
// hash-based scheme that requires no external model. The same text always
// produces the same vector, and the output is L2-normalized, so it can stand
// in for a real model when one is unavailable.
package deterministic

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"math"
)

// Provider generates deterministic embeddings from text content alone.
type Provider struct {
	dimensions int
}

// NewProvider creates a deterministic provider producing vectors of the
// given length.
func NewProvider(dimensions int) *Provider {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &Provider{dimensions: dimensions}
}

// Embed implements the embedding.Provider interface.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	return p.vector(text), nil
}

// EmbedBatch implements the embedding.Provider interface.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = p.vector(text)
	}
	return vectors, nil
}

// Dimensions implements the embedding.Provider interface.
func (p *Provider) Dimensions() int {
	return p.dimensions
}

// Ready implements the embedding.Provider interface. The deterministic
// provider has no initialization step.
func (p *Provider) Ready() bool {
	return true
}

// vector distributes character-code contributions across the output buckets
// and L2-normalizes the result. Empty input yields the zero vector.
func (p *Provider) vector(text string) []float32 {
	vec := make([]float32, p.dimensions)
	if text == "" {
		return vec
	}

	var buf [8]byte
	pos := 0
	for _, r := range text {
		binary.LittleEndian.PutUint32(buf[0:4], uint32(r))
		binary.LittleEndian.PutUint32(buf[4:8], uint32(pos))
		h := fnv.New64a()
		h.Write(buf[:])
		sum := h.Sum64()

		bucket := int(sum % uint64(p.dimensions))
		// Contribution in (-1, 1), derived from the hash so that equal
		// characters at different positions do not cancel out.
		contribution := float32(int64(sum>>32)%1000)/1000.0 + float32(r%7+1)/8.0
		vec[bucket] += contribution
		pos++
	}

	normalize(vec)
	return vec
}

// normalize scales the vector in place to unit length. Zero vectors are
// left untouched.
func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
}
