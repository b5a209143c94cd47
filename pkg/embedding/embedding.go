// Package embedding defines the interface for text embedding providers.
package embedding

import "context"

// Provider is the interface for components that map text to fixed-length
// numeric vectors.
type Provider interface {
	// Embed converts a single text into an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch converts multiple texts into embedding vectors, one per
	// input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the length of the vectors this provider produces.
	Dimensions() int

	// Ready reports whether the provider is initialized and able to embed.
	Ready() bool
}
