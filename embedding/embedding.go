package embedding

import (
	"context"
	"errors"
)

var (
	ErrUnsupportedProvider = errors.New("unsupported embedding provider")
	ErrEmptyEmbedding      = errors.New("empty embedding")
)

type Provider string

const (
	ProviderHash         Provider = "hash"
	ProviderOpenAI       Provider = "openai"
	ProviderOpenAICompat Provider = "openai-compat"
	ProviderOllama       Provider = "ollama"
	ProviderLocalAI      Provider = "localai"
	ProviderDefault      Provider = "default"
)

type Config struct {
	Provider    Provider `yaml:"provider"`
	Model       string   `yaml:"model"`
	BaseURL     string   `yaml:"baseURL"`
	APIKey      string   `yaml:"apiKey"`
	Dimension   int      `yaml:"-"`
	Concurrency int      `yaml:"concurrency"`
}

// Embedder turns text into a vector of a fixed dimension.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// EmbedderFunc adapts a plain function to Embedder.
type EmbedderFunc func(ctx context.Context, text string) ([]float32, error)

func (f EmbedderFunc) Embed(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

// Dimension is unknown for a bare function.
func (f EmbedderFunc) Dimension() int {
	return 0
}
