// Package openai adapts the OpenAI embeddings API to the ports.Embedder
// interface.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"agents-backend/application/ports"
	"agents-backend/infrastructure/di"
)

// ModuleClass is the type-registry identifier for this adapter.
const ModuleClass = "embeddings.openai.Embedder"

// Options are the constructor parameters accepted from configuration.
type Options struct {
	Model   string `mapstructure:"model"`
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// Embedder wraps the OpenAI embeddings API behind ports.Embedder.
type Embedder struct {
	client openai.Client
	opts   Options
}

var _ ports.Embedder = (*Embedder)(nil)

// New creates an Embedder from typed options.
func New(opts Options) *Embedder {
	if opts.Model == "" {
		opts.Model = string(openai.EmbeddingModelTextEmbedding3Small)
	}

	clientOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	return &Embedder{client: openai.NewClient(clientOpts...), opts: opts}
}

// Register adds this adapter to the type registry under ModuleClass.
func Register(types *di.TypeRegistry) {
	types.MustRegisterComponent(ModuleClass, di.Constructors{
		New: func(_ context.Context, params map[string]any) (any, error) {
			var opts Options
			if err := di.DecodeParams(params, &opts); err != nil {
				return nil, err
			}
			return New(opts), nil
		},
	})
}

// Embed returns one dense vector per input text.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: e.opts.Model,
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, item := range resp.Data {
		vec := make([]float32, len(item.Embedding))
		for j, v := range item.Embedding {
			vec[j] = float32(v)
		}
		vectors[i] = vec
	}
	return vectors, nil
}
