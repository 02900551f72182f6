package openai

import (
	"context"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/flarexio/kdvector/embedding"
)

// NewOpenAIEmbedder creates embeddings through the OpenAI API. The configured
// dimension is requested from text-embedding-3 models directly.
func NewOpenAIEmbedder(cfg embedding.Config) embedding.Embedder {
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}

	config := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	model := openai.SmallEmbedding3
	if cfg.Model != "" {
		model = openai.EmbeddingModel(cfg.Model)
	}

	return &embedder{
		client:    openai.NewClientWithConfig(config),
		model:     model,
		dimension: cfg.Dimension,
	}
}

type embedder struct {
	client    *openai.Client
	model     openai.EmbeddingModel
	dimension int
}

func (e *embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      e.model,
		Dimensions: e.dimension,
	})

	if err != nil {
		return nil, fmt.Errorf("openai embedding failed: %w", err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, embedding.ErrEmptyEmbedding
	}

	return resp.Data[0].Embedding, nil
}

func (e *embedder) Dimension() int {
	return e.dimension
}
