// Package anthropic adapts the Anthropic Messages API to the
// ports.ChatModel interface.
package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"agents-backend/application/ports"
	"agents-backend/infrastructure/di"
)

// ModuleClass is the type-registry identifier for this adapter.
const ModuleClass = "llm.anthropic.ChatModel"

// Options are the constructor parameters accepted from configuration.
type Options struct {
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int64   `mapstructure:"max_tokens"`
	APIKey      string  `mapstructure:"api_key"`
}

// ChatModel wraps the Anthropic Messages API behind ports.ChatModel.
type ChatModel struct {
	client anthropic.Client
	opts   Options
}

var _ ports.ChatModel = (*ChatModel)(nil)

// New creates a ChatModel from typed options.
func New(opts Options) *ChatModel {
	if opts.Model == "" {
		opts.Model = string(anthropic.ModelClaude3_5Sonnet20241022)
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.7
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 4096
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	return &ChatModel{client: anthropic.NewClient(clientOpts...), opts: opts}
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

func (c *ChatModel) params(messages []ports.ChatMessage) anthropic.MessageNewParams {
	var system []anthropic.TextBlockParam
	var turns []anthropic.MessageParam
	for _, m := range messages {
		switch m.Role {
		case "system":
			system = append(system, anthropic.TextBlockParam{Text: m.Content})
		case "assistant":
			turns = append(turns, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			turns = append(turns, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.opts.Model),
		Messages:    turns,
		MaxTokens:   c.opts.MaxTokens,
		Temperature: anthropic.Float(c.opts.Temperature),
	}
	if len(system) > 0 {
		params.System = system
	}
	return params
}

// Generate performs a non-streaming message request.
func (c *ChatModel) Generate(ctx context.Context, messages []ports.ChatMessage) (string, error) {
	resp, err := c.client.Messages.New(ctx, c.params(messages))
	if err != nil {
		return "", fmt.Errorf("anthropic message: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.AsText().Text
		}
	}
	return text, nil
}

// Stream performs a streaming message request, emitting text deltas.
func (c *ChatModel) Stream(ctx context.Context, messages []ports.ChatMessage) (<-chan string, <-chan error) {
	out := make(chan string, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		stream := c.client.Messages.NewStreaming(ctx, c.params(messages))
		for stream.Next() {
			event := stream.Current()
			switch variant := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				switch delta := variant.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					select {
					case out <- delta.Text:
					case <-ctx.Done():
						errCh <- ctx.Err()
						return
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			errCh <- fmt.Errorf("anthropic streaming: %w", err)
		}
	}()

	return out, errCh
}
