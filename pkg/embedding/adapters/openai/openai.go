// Package openai implements the embedding.Provider interface using the
// OpenAI embeddings API.
package openai

import (
	"context"
	"errors"

	"github.com/sashabaranov/go-openai"
	"github.com/wuzeru/agent-memory/pkg/log"
)

var (
	// ErrEmptyAPIKey is returned when the API key is missing.
	ErrEmptyAPIKey = errors.New("API key cannot be empty")
	// ErrEmptyResponse is returned when the API returns fewer embeddings
	// than inputs.
	ErrEmptyResponse = errors.New("embedding response is incomplete")
)

// Config holds the configuration for the OpenAI provider.
type Config struct {
	// APIKey is the OpenAI API key.
	APIKey string
	// Model is the embedding model, e.g., "text-embedding-3-small".
	Model string
	// Dimensions is the requested output dimensionality. Models that
	// support shortened embeddings honor it; 0 uses the model default.
	Dimensions int
	// BaseURL is the base URL for the OpenAI API (for testing).
	BaseURL string
}

// OpenAIProvider implements the embedding.Provider interface using the
// OpenAI API.
type OpenAIProvider struct {
	client     *openai.Client
	model      string
	dimensions int
}

// NewOpenAIProvider creates a new OpenAI embedding provider.
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	if config.Model == "" {
		config.Model = "text-embedding-3-small"
	}
	if config.Dimensions <= 0 {
		config.Dimensions = 384
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIProvider{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      config.Model,
		dimensions: config.Dimensions,
	}, nil
}

// Embed implements the embedding.Provider interface.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch implements the embedding.Provider interface.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	log.Debug("Generating embeddings", "count", len(texts), "model", p.model)

	request := openai.EmbeddingRequest{
		Input:      texts,
		Model:      openai.EmbeddingModel(p.model),
		Dimensions: p.dimensions,
	}

	response, err := p.client.CreateEmbeddings(ctx, request)
	if err != nil {
		log.Error("Failed to generate embeddings", "error", err)
		return nil, err
	}

	if len(response.Data) < len(texts) {
		return nil, ErrEmptyResponse
	}

	// Align by input position; the response may carry extra elements.
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = response.Data[i].Embedding
	}

	log.Debug("Successfully generated embeddings",
		"count", len(embeddings),
		"model", p.model)

	return embeddings, nil
}

// Dimensions implements the embedding.Provider interface.
func (p *OpenAIProvider) Dimensions() int {
	return p.dimensions
}

// Ready implements the embedding.Provider interface.
func (p *OpenAIProvider) Ready() bool {
	return p.client != nil
}
