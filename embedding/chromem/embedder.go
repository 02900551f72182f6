package chromem

import (
	"context"
	"os"

	"github.com/philippgille/chromem-go"

	"github.com/flarexio/kdvector/embedding"
)

// NewChromemEmbedder wraps one of chromem-go's hosted embedding functions.
func NewChromemEmbedder(cfg embedding.Config) (embedding.Embedder, error) {
	var fn chromem.EmbeddingFunc

	switch cfg.Provider {
	case embedding.ProviderOllama:
		model := cfg.Model
		if model == "" {
			model = "all-minilm"
		}

		fn = chromem.NewEmbeddingFuncOllama(model, cfg.BaseURL)

	case embedding.ProviderLocalAI:
		fn = chromem.NewEmbeddingFuncLocalAI(cfg.Model)

	case embedding.ProviderOpenAICompat:
		fn = chromem.NewEmbeddingFuncOpenAICompat(cfg.BaseURL, apiKey(cfg), cfg.Model, nil)

	case embedding.ProviderDefault:
		if cfg.APIKey != "" {
			fn = chromem.NewEmbeddingFuncOpenAI(cfg.APIKey, chromem.EmbeddingModelOpenAI3Small)
		} else {
			fn = chromem.NewEmbeddingFuncDefault()
		}

	default:
		return nil, embedding.ErrUnsupportedProvider
	}

	return &embedder{fn, cfg.Dimension}, nil
}

func apiKey(cfg embedding.Config) string {
	if cfg.APIKey != "" {
		return cfg.APIKey
	}

	return os.Getenv("OPENAI_API_KEY")
}

type embedder struct {
	fn        chromem.EmbeddingFunc
	dimension int
}

func (e *embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.fn(ctx, text)
	if err != nil {
		return nil, err
	}

	if len(vec) == 0 {
		return nil, embedding.ErrEmptyEmbedding
	}

	return vec, nil
}

func (e *embedder) Dimension() int {
	return e.dimension
}
