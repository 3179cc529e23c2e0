// Package groq adapts the Groq chat completion API (OpenAI-compatible) to
// the ports.ChatModel interface.
package groq

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"agents-backend/application/ports"
	"agents-backend/infrastructure/di"
)

// ModuleClass is the type-registry identifier for this adapter.
const ModuleClass = "llm.groq.ChatModel"

const defaultBaseURL = "https://api.groq.com/openai/v1"

// Options are the constructor parameters accepted from configuration.
type Options struct {
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int64   `mapstructure:"max_tokens"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
}

// ChatModel wraps the Groq API behind ports.ChatModel.
type ChatModel struct {
	client openai.Client
	opts   Options
}

var _ ports.ChatModel = (*ChatModel)(nil)

// New creates a ChatModel from typed options.
func New(opts Options) *ChatModel {
	if opts.Model == "" {
		opts.Model = "llama-3.3-70b-versatile"
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.7
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 4096
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}

	client := openai.NewClient(
		option.WithAPIKey(opts.APIKey),
		option.WithBaseURL(opts.BaseURL),
	)
	return &ChatModel{client: client, opts: opts}
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

func buildMessages(messages []ports.ChatMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func (c *ChatModel) params(messages []ports.ChatMessage) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Messages:            buildMessages(messages),
		Model:               c.opts.Model,
		Temperature:         openai.Float(c.opts.Temperature),
		MaxCompletionTokens: openai.Int(c.opts.MaxTokens),
	}
}

// Generate performs a non-streaming chat completion.
func (c *ChatModel) Generate(ctx context.Context, messages []ports.ChatMessage) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, c.params(messages))
	if err != nil {
		return "", fmt.Errorf("groq completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("groq completion: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream performs a streaming chat completion, emitting text deltas.
func (c *ChatModel) Stream(ctx context.Context, messages []ports.ChatMessage) (<-chan string, <-chan error) {
	out := make(chan string, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		stream := c.client.Chat.Completions.NewStreaming(ctx, c.params(messages))
		for stream.Next() {
			chunk := stream.Current()
			for _, choice := range chunk.Choices {
				if choice.Delta.Content != "" {
					select {
					case out <- choice.Delta.Content:
					case <-ctx.Done():
						errCh <- ctx.Err()
						return
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			errCh <- fmt.Errorf("groq streaming: %w", err)
		}
	}()

	return out, errCh
}
